package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/fintel-group/report-extract/internal/config"
	"github.com/fintel-group/report-extract/internal/engine"
	"github.com/fintel-group/report-extract/internal/oracle"
	"github.com/fintel-group/report-extract/internal/store"
	"github.com/fintel-group/report-extract/pkg/chatapi"
)

// buildOracles turns oracle configs into clients.
func buildOracles(cfgs []config.OracleConfig, timeout config.ExtractConfig) ([]oracle.Client, error) {
	oracles := make([]oracle.Client, 0, len(cfgs))
	for _, oc := range cfgs {
		switch oc.Type {
		case "chat", "":
			opts := []chatapi.Option{chatapi.WithTimeout(timeout.RequestTimeout())}
			if oc.RateLimitRPS > 0 {
				opts = append(opts, chatapi.WithRateLimit(oc.RateLimitRPS, 1))
			}
			client := chatapi.NewClient(oc.BaseURL, oc.APIKey, opts...)
			oracles = append(oracles, oracle.NewChat(oc.ID, oc.Model, client))
		case "anthropic":
			oracles = append(oracles, oracle.NewAnthropic(oc.ID, oc.Model, oc.APIKey))
		case "mock":
			oracles = append(oracles, oracle.NewMock(oc.ID, oc.Responses...))
		default:
			return nil, eris.Errorf("setup: unknown oracle type %q for %q", oc.Type, oc.ID)
		}
	}
	return oracles, nil
}

// buildEngine assembles the extraction engine from config.
func buildEngine(c *config.Config) (*engine.Engine, error) {
	oracles, err := buildOracles(c.Oracles, c.Extract)
	if err != nil {
		return nil, err
	}

	var aliases engine.Mapping
	if c.Extract.AliasFile != "" {
		aliases, err = engine.LoadAliases(c.Extract.AliasFile)
		if err != nil {
			return nil, eris.Wrap(err, "setup: load aliases")
		}
	}

	var verifier oracle.Client
	if c.Extract.Verifier != "" {
		for _, o := range oracles {
			if o.ID() == c.Extract.Verifier {
				verifier = o
				break
			}
		}
		if verifier == nil {
			return nil, eris.Errorf("setup: verifier oracle %q not configured", c.Extract.Verifier)
		}
	}

	return engine.New(engine.Options{
		WindowSize:         c.Extract.WindowSize,
		Overlap:            c.Extract.Overlap,
		Concurrency:        c.Extract.Concurrency,
		EnableVerification: c.Extract.EnableVerification,
		MaxPromptChars:     c.Extract.MaxPromptChars,
		MaxOutputTokens:    c.Extract.MaxOutputTokens,
		Temperature:        c.Extract.Temperature,
		TargetMetrics:      c.Extract.Metrics,
		Aliases:            aliases,
		Oracles:            oracles,
		Verifier:           verifier,
	})
}

// openStore opens the configured database backend.
func openStore(ctx context.Context, c config.StoreConfig) (store.Store, error) {
	switch c.Driver {
	case "postgres":
		return store.NewPostgres(ctx, c.DatabaseURL, nil)
	case "sqlite", "":
		return store.NewSQLite(c.Path)
	default:
		return nil, eris.Errorf("setup: unknown store driver %q", c.Driver)
	}
}

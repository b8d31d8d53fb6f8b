// Package engine implements the consensus extraction pipeline: chunking of
// parsed report text, concurrent multi-oracle extraction, an optional
// omission-audit round, metric-name canonicalization, field-level majority
// voting and confidence scoring. The engine's behavior is a pure function of
// its inputs and Options; it reads no environment and keeps no global state.
package engine

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fintel-group/report-extract/internal/model"
	"github.com/fintel-group/report-extract/internal/oracle"
)

// ErrNoOracles is returned when a run is attempted with zero configured
// oracles. This is the engine's only fatal error: oracle-call and parse
// failures are absorbed per task.
var ErrNoOracles = eris.New("engine: no oracles configured")

// Options configures one pipeline run. Zero values fall back to defaults;
// only Oracles is required.
type Options struct {
	// WindowSize and Overlap shape the chunk windows (units per chunk and
	// units shared with the previous chunk).
	WindowSize int
	Overlap    int

	// Concurrency bounds the worker pool for extraction and verification
	// tasks.
	Concurrency int

	// EnableVerification turns on the second-round omission audit.
	EnableVerification bool

	// MaxPromptChars bounds document text per prompt (head+tail truncation).
	MaxPromptChars int

	// MaxOutputTokens and Temperature are passed through to every oracle call.
	MaxOutputTokens int
	Temperature     float64

	// TargetMetrics restricts extraction to named metrics; empty means
	// extract everything the oracles can find.
	TargetMetrics []string

	// Aliases is an optional static raw→canonical metric name mapping layered
	// under the oracle's clustering.
	Aliases Mapping

	// Oracles participate in every extraction round. Verifier and
	// Canonicalizer default to the first oracle when unset.
	Oracles       []oracle.Client
	Verifier      oracle.Client
	Canonicalizer oracle.Client
}

func (o Options) withDefaults() Options {
	if o.WindowSize <= 0 {
		o.WindowSize = 8
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 6
	}
	if o.MaxPromptChars <= 0 {
		o.MaxPromptChars = defaultMaxPromptChars
	}
	if o.MaxOutputTokens <= 0 {
		o.MaxOutputTokens = 1024
	}
	return o
}

// Engine runs the consensus extraction pipeline.
type Engine struct {
	opts Options
}

// New validates options and creates an engine. Zero configured oracles is a
// configuration error surfaced before any work begins.
func New(opts Options) (*Engine, error) {
	if len(opts.Oracles) == 0 {
		return nil, ErrNoOracles
	}
	return &Engine{opts: opts.withDefaults()}, nil
}

func (e *Engine) verifier() oracle.Client {
	if e.opts.Verifier != nil {
		return e.opts.Verifier
	}
	return e.opts.Oracles[0]
}

func (e *Engine) canonicalizer() oracle.Client {
	if e.opts.Canonicalizer != nil {
		return e.opts.Canonicalizer
	}
	return e.opts.Oracles[0]
}

// Run extracts, reconciles and scores metrics for every entity's units and
// returns the final entity → metric → record mapping. Partial oracle failures
// degrade confidence, not availability: the run completes with whatever
// candidates survived.
func (e *Engine) Run(ctx context.Context, entityUnits map[string][]model.TextUnit) (model.FinalResult, error) {
	start := time.Now()

	// Stable entity order keeps candidate order, and therefore first-seen
	// tie-breaks, reproducible across runs.
	entities := make([]string, 0, len(entityUnits))
	for entity := range entityUnits {
		entities = append(entities, entity)
	}
	sort.Strings(entities)

	var candidates []model.Candidate
	for _, entity := range entities {
		units := entityUnits[entity]
		if len(units) == 0 {
			continue
		}
		chunks := BuildChunks(units, e.opts.WindowSize, e.opts.Overlap)

		extracted := e.runExtractionRound(ctx, entity, chunks)
		candidates = append(candidates, extracted...)

		if e.opts.EnableVerification {
			candidates = append(candidates, e.runVerificationRound(ctx, entity, chunks, extracted)...)
		}

		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "engine: run aborted")
		}
	}

	mapping := e.buildMapping(ctx, candidates)
	mapping.Apply(candidates)

	groups := groupCandidates(candidates)
	records := make([]model.MergedRecord, 0, len(groups))
	for _, g := range groups {
		rec := voteMerge(g)
		rec.Confidence = scoreConfidence(rec)
		records = append(records, rec)
	}

	final := aggregate(records)

	zap.L().Info("engine run complete",
		zap.Int("entities", len(entities)),
		zap.Int("candidates", len(candidates)),
		zap.Int("merged_records", len(records)),
		zap.Duration("elapsed", time.Since(start)))

	return final, nil
}

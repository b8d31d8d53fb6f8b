package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fintel-group/report-extract/internal/engine"
	"github.com/fintel-group/report-extract/internal/model"
	"github.com/fintel-group/report-extract/internal/report"
)

var (
	extractUnitsPath string
	extractOutPath   string
	extractXLSXPath  string
	extractEntities  []string
	extractMetrics   []string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run consensus extraction over a parsed units file",
	Long:  "Reads parsed text units from JSON, runs the multi-oracle extraction pipeline and writes the merged, scored result.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		units, err := loadUnits(extractUnitsPath)
		if err != nil {
			return err
		}

		entities := extractEntities
		if len(entities) == 0 {
			entities = cfg.Extract.Entities
		}
		metrics := extractMetrics
		if len(metrics) == 0 {
			metrics = cfg.Extract.Metrics
		}

		extractCfg := cfg.Extract
		extractCfg.Metrics = metrics
		cfgCopy := *cfg
		cfgCopy.Extract = extractCfg
		eng, err := buildEngine(&cfgCopy)
		if err != nil {
			return err
		}

		var entityUnits map[string][]model.TextUnit
		if len(entities) == 0 {
			entityUnits = map[string][]model.TextUnit{model.UnknownEntity: units}
		} else {
			entityUnits = engine.SelectEntityUnits(units, entities)
		}

		final, err := eng.Run(ctx, entityUnits)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(final, "", "  ")
		if err != nil {
			return eris.Wrap(err, "extract: marshal result")
		}
		if err := os.WriteFile(extractOutPath, data, 0o644); err != nil {
			return eris.Wrapf(err, "extract: write %s", extractOutPath)
		}
		zap.L().Info("result written", zap.String("path", extractOutPath))

		if extractXLSXPath != "" {
			if err := report.ExportXLSX(final, extractXLSXPath); err != nil {
				return err
			}
			zap.L().Info("workbook written", zap.String("path", extractXLSXPath))
		}

		return nil
	},
}

func loadUnits(path string) ([]model.TextUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read %s", path)
	}
	var units []model.TextUnit
	if err := json.Unmarshal(data, &units); err != nil {
		return nil, eris.Wrapf(err, "extract: parse %s", path)
	}
	if len(units) == 0 {
		return nil, eris.Errorf("extract: no units in %s", path)
	}
	return units, nil
}

func init() {
	extractCmd.Flags().StringVar(&extractUnitsPath, "units", "", "parsed units JSON file (required)")
	extractCmd.Flags().StringVar(&extractOutPath, "out", "final.json", "output path for the merged result")
	extractCmd.Flags().StringVar(&extractXLSXPath, "xlsx", "", "also export an .xlsx workbook to this path")
	extractCmd.Flags().StringSliceVar(&extractEntities, "entity", nil, "entity to extract for (repeatable, default from config)")
	extractCmd.Flags().StringSliceVar(&extractMetrics, "metric", nil, "restrict extraction to this metric (repeatable)")
	extractCmd.MarkFlagRequired("units")
	rootCmd.AddCommand(extractCmd)
}

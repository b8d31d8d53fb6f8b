package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fintel-group/report-extract/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "report-extract",
	Short: "Consensus metric extraction from parsed financial reports",
	Long:  "Chunks parsed report text, queries multiple LLM oracles concurrently, reconciles their answers by field-level majority vote and serves the scored results.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

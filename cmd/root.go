package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scrimworks/scrimsync/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "scrimsync",
	Short: "Scrim draft ingestion pipeline",
	Long:  "Discovers new League of Legends scrim series from GRID, extracts champion picks and bans from livestats files, and reconciles one row per series into a Google Sheets spreadsheet exactly once.",
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

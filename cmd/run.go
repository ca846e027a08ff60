package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scrimworks/scrimsync/internal/champion"
	"github.com/scrimworks/scrimsync/internal/discovery"
	"github.com/scrimworks/scrimsync/internal/fetch"
	"github.com/scrimworks/scrimsync/internal/model"
	"github.com/scrimworks/scrimsync/internal/pipeline"
	"github.com/scrimworks/scrimsync/internal/reconcile"
	"github.com/scrimworks/scrimsync/internal/resilience"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest new scrim series and update the sheet",
	Long: `Discovers scrim series scheduled within the lookback window, downloads
their livestats files, extracts draft picks and bans, appends one row per
series to the configured spreadsheet, and commits each series to the
processed ledger. Already-processed series are never touched again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Sheets.SpreadsheetID == "" {
			return eris.New("sheets.spreadsheet_id is required; run 'scrimsync sheet init' first")
		}

		lookbackDays, _ := cmd.Flags().GetInt("lookback-days")
		if lookbackDays <= 0 {
			lookbackDays = cfg.Pipeline.LookbackDays
		}
		draftGame, _ := cmd.Flags().GetString("draft-game")
		if draftGame == "" {
			draftGame = cfg.Pipeline.DraftGame
		}
		policy := pipeline.DraftGamePolicy(draftGame)
		if policy != pipeline.DraftGameFirst && policy != pipeline.DraftGameLast {
			return eris.Errorf("invalid draft-game policy %q (want first or last)", draftGame)
		}

		led, err := openLedger(ctx)
		if err != nil {
			return eris.Wrap(err, "run: open ledger")
		}
		defer led.Close() //nolint:errcheck

		gridClient, err := newGridClient()
		if err != nil {
			return eris.Wrap(err, "run: grid client")
		}

		sheetClient, err := newSheetsClient(ctx)
		if err != nil {
			return eris.Wrap(err, "run: sheets client")
		}

		retry := resilience.DefaultRetryConfig()
		retry.MaxAttempts = cfg.Pipeline.MaxAttempts

		orch := pipeline.New(
			pipeline.Config{
				Lookback:  time.Duration(lookbackDays) * 24 * time.Hour,
				DraftGame: policy,
			},
			discovery.New(gridClient, led, retry),
			fetch.New(gridClient, cfg.Cache.Dir, retry),
			reconcile.New(sheetClient, cfg.Sheets.SpreadsheetID, cfg.Sheets.SheetName, retry),
			led,
			champion.Name,
		)

		summary, err := orch.Run(ctx)
		if summary != nil {
			formatSummary(os.Stdout, summary)
		}
		if err != nil {
			zap.L().Error("run failed", zap.Error(err))
			return eris.Wrap(err, "run")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().Int("lookback-days", 0, "override the discovery lookback window in days")
	runCmd.Flags().String("draft-game", "", "which game's draft is authoritative: first or last")
	rootCmd.AddCommand(runCmd)
}

// formatSummary writes the human-readable run summary to w.
func formatSummary(out io.Writer, s *model.RunSummary) {
	fmt.Fprintf(out, "Run %s (%s)\n", s.RunID, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "Window:     %s .. %s\n",
		s.WindowFrom.Format("2006-01-02"), s.WindowTo.Format("2006-01-02"))
	fmt.Fprintf(out, "Discovered: %d\n", s.Discovered)
	fmt.Fprintf(out, "Processed:  %d\n", s.Processed)
	if s.AlreadyRows > 0 {
		fmt.Fprintf(out, "Rows already present (recovered commits): %d\n", s.AlreadyRows)
	}
	fmt.Fprintf(out, "Skipped:    %d\n", len(s.Skipped))

	if len(s.Skipped) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SERIES\tSTAGE\tREASON")
	for _, sk := range s.Skipped {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", sk.SeriesID, sk.Stage, truncate(sk.Reason, 80))
	}
	_ = w.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

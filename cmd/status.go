package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scrimworks/scrimsync/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the processed-series ledger",
	Long:  "Lists every series already committed to the ledger, oldest first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		led, err := openLedger(ctx)
		if err != nil {
			return eris.Wrap(err, "status: open ledger")
		}
		defer led.Close() //nolint:errcheck

		entries, err := led.All(ctx)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		if len(entries) == 0 {
			zap.L().Info("ledger is empty, run 'scrimsync run' to process series")
			return nil
		}

		formatLedgerEntries(os.Stdout, entries)
		fmt.Printf("\n%d series processed\n", len(entries))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// formatLedgerEntries writes a tabular view of ledger entries to w.
func formatLedgerEntries(out io.Writer, entries []model.LedgerEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SERIES\tPROCESSED\tTEAM 1\tTEAM 2\tSOURCE")
	_, _ = fmt.Fprintln(w, "------\t---------\t------\t------\t------")

	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.SeriesID,
			e.ProcessedAt.Format("2006-01-02 15:04"),
			e.Team1Name,
			e.Team2Name,
			e.SourcePath,
		)
	}
	_ = w.Flush()
}

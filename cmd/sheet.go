package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/scrimworks/scrimsync/internal/reconcile"
	"github.com/scrimworks/scrimsync/internal/resilience"
)

var sheetCmd = &cobra.Command{
	Use:   "sheet",
	Short: "Manage the sink spreadsheet",
}

var sheetInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or prepare the sink spreadsheet",
	Long: `Creates a new spreadsheet with the fixed draft schema when no
sheets.spreadsheet_id is configured, or ensures the header row exists on the
configured one. Either way the header row ends up frozen, bold, and sized.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client, err := newSheetsClient(ctx)
		if err != nil {
			return eris.Wrap(err, "sheet init: sheets client")
		}

		spreadsheetID := cfg.Sheets.SpreadsheetID
		if spreadsheetID == "" {
			title, _ := cmd.Flags().GetString("title")
			spreadsheetID, err = client.CreateSpreadsheet(ctx, title, cfg.Sheets.SheetName)
			if err != nil {
				return eris.Wrap(err, "sheet init: create spreadsheet")
			}
			fmt.Printf("Created spreadsheet %s\n", spreadsheetID)
			fmt.Printf("Set sheets.spreadsheet_id: %s in config.yaml to use it\n", spreadsheetID)
		}

		rec := reconcile.New(client, spreadsheetID, cfg.Sheets.SheetName, resilience.DefaultRetryConfig())
		if err := rec.EnsureHeader(ctx); err != nil {
			return eris.Wrap(err, "sheet init: write header")
		}
		if err := client.FormatHeader(ctx, spreadsheetID, int64(len(reconcile.Header))); err != nil {
			return eris.Wrap(err, "sheet init: format header")
		}

		fmt.Printf("https://docs.google.com/spreadsheets/d/%s\n", spreadsheetID)
		return nil
	},
}

func init() {
	sheetInitCmd.Flags().String("title", "LoL Scrim Draft Analysis", "title for a newly created spreadsheet")
	sheetCmd.AddCommand(sheetInitCmd)
	rootCmd.AddCommand(sheetCmd)
}

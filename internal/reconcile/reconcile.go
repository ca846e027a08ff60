// Package reconcile writes extracted draft records into the tabular sink,
// one row per series, without ever creating duplicates.
package reconcile

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scrimworks/scrimsync/internal/model"
	"github.com/scrimworks/scrimsync/internal/resilience"
	"github.com/scrimworks/scrimsync/pkg/sheets"
)

// ErrSinkWriteFailed means the sink rejected the operation unrecoverably
// (schema mismatch, revoked access, retries exhausted). Fatal for the run.
var ErrSinkWriteFailed = eris.New("reconcile: sink write failed")

// Header is the fixed sink schema, in column order.
var Header = []string{
	"Series ID", "Date", "Team 1", "Team 2",
	"Blue Ban 1", "Blue Ban 2", "Blue Ban 3", "Blue Ban 4", "Blue Ban 5",
	"Red Ban 1", "Red Ban 2", "Red Ban 3", "Red Ban 4", "Red Ban 5",
	"Team 1 Pick 1", "Team 1 Pick 2", "Team 1 Pick 3", "Team 1 Pick 4", "Team 1 Pick 5",
	"Team 2 Pick 1", "Team 2 Pick 2", "Team 2 Pick 3", "Team 2 Pick 4", "Team 2 Pick 5",
}

const dateFormat = "2006-01-02 15:04"

// Reconciler appends rows to one sheet of one spreadsheet.
type Reconciler struct {
	sheet         sheets.Client
	spreadsheetID string
	sheetName     string
	retry         resilience.RetryConfig
}

// New creates a Reconciler targeting the given spreadsheet and sheet.
func New(client sheets.Client, spreadsheetID, sheetName string, retry resilience.RetryConfig) *Reconciler {
	return &Reconciler{
		sheet:         client,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		retry:         retry,
	}
}

// Append writes one row for the series. If the sink already holds a row
// keyed by this series ID the call is a no-op and returns false; this covers
// a crash after a prior write but before the ledger commit.
func (r *Reconciler) Append(ctx context.Context, series model.Series, rec model.DraftRecord) (bool, error) {
	keyRange := r.sheetName + "!A:A"

	readRetry := r.retry
	readRetry.OnRetry = resilience.RetryLogger("sheets", "read_keys")
	keys, err := resilience.DoVal(ctx, readRetry, func(ctx context.Context) ([]string, error) {
		return r.sheet.ColumnValues(ctx, r.spreadsheetID, keyRange)
	})
	if err != nil {
		return false, eris.Wrap(ErrSinkWriteFailed, err.Error())
	}

	for _, key := range keys {
		if key == series.ID {
			zap.L().Info("row already present in sink, skipping append",
				zap.String("series_id", series.ID),
			)
			return false, nil
		}
	}

	row := Row(series, rec)
	appendRetry := r.retry
	appendRetry.OnRetry = resilience.RetryLogger("sheets", "append_row")
	err = resilience.Do(ctx, appendRetry, func(ctx context.Context) error {
		return r.sheet.AppendRow(ctx, r.spreadsheetID, r.sheetName+"!A:X", row)
	})
	if err != nil {
		return false, eris.Wrap(ErrSinkWriteFailed, err.Error())
	}

	return true, nil
}

// EnsureHeader writes the header row when the sheet is still empty.
func (r *Reconciler) EnsureHeader(ctx context.Context) error {
	keys, err := r.sheet.ColumnValues(ctx, r.spreadsheetID, r.sheetName+"!A:A")
	if err != nil {
		return eris.Wrap(ErrSinkWriteFailed, err.Error())
	}
	if len(keys) > 0 {
		return nil
	}

	row := make([]any, len(Header))
	for i, h := range Header {
		row[i] = h
	}
	if err := r.sheet.AppendRow(ctx, r.spreadsheetID, r.sheetName+"!A:X", row); err != nil {
		return eris.Wrap(ErrSinkWriteFailed, err.Error())
	}
	return nil
}

// Row flattens a series and its draft record into the fixed 24-column shape.
func Row(series model.Series, rec model.DraftRecord) []any {
	row := make([]any, 0, len(Header))
	row = append(row,
		series.ID,
		series.ScheduledAt.Format(dateFormat),
		series.Team1Name,
		series.Team2Name,
	)
	for _, group := range [][model.DraftSlots]string{rec.BlueBans, rec.RedBans, rec.Team1Picks, rec.Team2Picks} {
		for _, cell := range group {
			row = append(row, cell)
		}
	}
	if len(row) != len(Header) {
		// Header and DraftSlots are compile-time constants; this cannot
		// happen unless the schema is edited inconsistently.
		panic(fmt.Sprintf("reconcile: row has %d columns, header has %d", len(row), len(Header)))
	}
	return row
}

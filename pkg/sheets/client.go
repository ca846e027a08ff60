// Package sheets wraps the Google Sheets API for the tabular draft sink.
package sheets

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/scrimworks/scrimsync/internal/resilience"
)

// Scope is the OAuth scope required for reading and writing spreadsheets.
const Scope = sheetsapi.SpreadsheetsScope

// Client defines the Sheets operations used by the reconciler.
type Client interface {
	// ColumnValues reads a single-column range and returns its cell values,
	// one string per non-empty row.
	ColumnValues(ctx context.Context, spreadsheetID, readRange string) ([]string, error)

	// AppendRow appends one row after the last data row of the given range.
	AppendRow(ctx context.Context, spreadsheetID, appendRange string, row []any) error

	// CreateSpreadsheet creates a new spreadsheet with a single sheet of the
	// given title and returns its ID.
	CreateSpreadsheet(ctx context.Context, title, sheetTitle string) (string, error)

	// FormatHeader freezes and bolds the first row and auto-resizes the first
	// columns of sheet 0.
	FormatHeader(ctx context.Context, spreadsheetID string, columns int64) error
}

// NewClient builds a Sheets client from an injected token source. Credential
// acquisition and refresh live behind the oauth2.TokenSource capability.
func NewClient(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (Client, error) {
	all := append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	svc, err := sheetsapi.NewService(ctx, all...)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: create service")
	}
	return &apiClient{svc: svc}, nil
}

type apiClient struct {
	svc *sheetsapi.Service
}

func (c *apiClient) ColumnValues(ctx context.Context, spreadsheetID, readRange string) ([]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, classify(err, fmt.Sprintf("sheets: read %s", readRange))
	}

	var values []string
	for _, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if s, ok := row[0].(string); ok {
			values = append(values, s)
		}
	}
	return values, nil
}

func (c *apiClient) AppendRow(ctx context.Context, spreadsheetID, appendRange string, row []any) error {
	vr := &sheetsapi.ValueRange{Values: [][]any{row}}
	_, err := c.svc.Spreadsheets.Values.Append(spreadsheetID, appendRange, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return classify(err, fmt.Sprintf("sheets: append to %s", appendRange))
	}
	return nil
}

func (c *apiClient) CreateSpreadsheet(ctx context.Context, title, sheetTitle string) (string, error) {
	req := &sheetsapi.Spreadsheet{
		Properties: &sheetsapi.SpreadsheetProperties{Title: title},
		Sheets: []*sheetsapi.Sheet{{
			Properties: &sheetsapi.SheetProperties{
				Title: sheetTitle,
				GridProperties: &sheetsapi.GridProperties{
					RowCount:    1000,
					ColumnCount: 30,
				},
			},
		}},
	}

	created, err := c.svc.Spreadsheets.Create(req).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return "", classify(err, "sheets: create spreadsheet")
	}
	return created.SpreadsheetId, nil
}

func (c *apiClient) FormatHeader(ctx context.Context, spreadsheetID string, columns int64) error {
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{
			{
				UpdateSheetProperties: &sheetsapi.UpdateSheetPropertiesRequest{
					Properties: &sheetsapi.SheetProperties{
						SheetId:        0,
						GridProperties: &sheetsapi.GridProperties{FrozenRowCount: 1},
					},
					Fields: "gridProperties.frozenRowCount",
				},
			},
			{
				RepeatCell: &sheetsapi.RepeatCellRequest{
					Range: &sheetsapi.GridRange{SheetId: 0, StartRowIndex: 0, EndRowIndex: 1},
					Cell: &sheetsapi.CellData{
						UserEnteredFormat: &sheetsapi.CellFormat{
							TextFormat: &sheetsapi.TextFormat{Bold: true},
						},
					},
					Fields: "userEnteredFormat.textFormat.bold",
				},
			},
			{
				AutoResizeDimensions: &sheetsapi.AutoResizeDimensionsRequest{
					Dimensions: &sheetsapi.DimensionRange{
						SheetId:    0,
						Dimension:  "COLUMNS",
						StartIndex: 0,
						EndIndex:   columns,
					},
				},
			},
		},
	}

	_, err := c.svc.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return classify(err, "sheets: format header")
	}
	return nil
}

// classify wraps Sheets API errors, tagging rate-limit and server errors as
// transient so the reconciler can retry them with backoff.
func classify(err error, msg string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && resilience.IsTransientHTTPStatus(gerr.Code) {
		return resilience.NewTransientError(eris.Wrap(err, msg), gerr.Code)
	}
	return eris.Wrap(err, msg)
}

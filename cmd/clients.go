package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/scrimworks/scrimsync/internal/ledger"
	"github.com/scrimworks/scrimsync/pkg/grid"
	"github.com/scrimworks/scrimsync/pkg/sheets"
)

// openLedger builds the configured ledger backend and runs its migration.
func openLedger(ctx context.Context) (ledger.Ledger, error) {
	var (
		led ledger.Ledger
		err error
	)
	switch cfg.Ledger.Driver {
	case "sqlite", "":
		led, err = ledger.NewSQLite(cfg.Ledger.DSN)
	case "postgres":
		led, err = ledger.NewPostgres(ctx, cfg.Ledger.DSN)
	default:
		return nil, eris.Errorf("unknown ledger driver %q", cfg.Ledger.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := led.Migrate(ctx); err != nil {
		_ = led.Close()
		return nil, err
	}
	return led, nil
}

// newGridClient builds the GRID API client from config.
func newGridClient() (grid.Client, error) {
	if cfg.Grid.APIKey == "" {
		return nil, eris.New("grid.api_key is required")
	}
	return grid.NewClient(cfg.Grid.APIKey,
		grid.WithBaseURL(cfg.Grid.BaseURL),
		grid.WithTitleID(cfg.Grid.TitleID),
		grid.WithRateLimit(cfg.Grid.RateLimit),
	), nil
}

// newSheetsClient builds the Sheets client. Credentials come from the
// configured service account file, or Application Default Credentials when
// none is set; token refresh lives entirely behind the token source.
func newSheetsClient(ctx context.Context) (sheets.Client, error) {
	ts, err := tokenSource(ctx)
	if err != nil {
		return nil, err
	}
	return sheets.NewClient(ctx, ts)
}

func tokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if path := cfg.Sheets.CredentialsFile; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "read credentials file %s", path)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, sheets.Scope)
		if err != nil {
			return nil, eris.Wrapf(err, "parse credentials file %s", path)
		}
		return creds.TokenSource, nil
	}

	ts, err := google.DefaultTokenSource(ctx, sheets.Scope)
	if err != nil {
		return nil, eris.Wrap(err, "application default credentials")
	}
	return ts, nil
}

package ledger

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/scrimworks/scrimsync/internal/model"
)

// SQLiteLedger implements Ledger on a local SQLite file.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLite opens a SQLite ledger at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "ledger: sqlite exec %s", pragma)
		}
	}
	return &SQLiteLedger{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS processed_series (
	series_id    TEXT PRIMARY KEY,
	processed_at DATETIME NOT NULL,
	team1_name   TEXT NOT NULL,
	team2_name   TEXT NOT NULL,
	source_path  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_processed_series_processed_at
	ON processed_series(processed_at);
`

func (l *SQLiteLedger) Migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "ledger: sqlite migrate")
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func (l *SQLiteLedger) Contains(ctx context.Context, seriesID string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx,
		`SELECT 1 FROM processed_series WHERE series_id = ?`,
		seriesID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "ledger: sqlite contains %s", seriesID)
	}
	return true, nil
}

func (l *SQLiteLedger) Commit(ctx context.Context, entry model.LedgerEntry) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO processed_series (series_id, processed_at, team1_name, team2_name, source_path)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(series_id) DO NOTHING`,
		entry.SeriesID, entry.ProcessedAt.UTC(), entry.Team1Name, entry.Team2Name, entry.SourcePath,
	)
	return eris.Wrapf(err, "ledger: sqlite commit %s", entry.SeriesID)
}

func (l *SQLiteLedger) All(ctx context.Context) ([]model.LedgerEntry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT series_id, processed_at, team1_name, team2_name, source_path
		 FROM processed_series ORDER BY processed_at ASC`,
	)
	if err != nil {
		return nil, corrupt(err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.SeriesID, &e.ProcessedAt, &e.Team1Name, &e.Team2Name, &e.SourcePath); err != nil {
			return nil, corrupt(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, corrupt(err)
	}
	return entries, nil
}

package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/scrimworks/scrimsync/internal/model"
)

// Pool is the subset of pgxpool.Pool the ledger needs. pgxmock pools satisfy
// it, which keeps the Postgres ledger testable without a live database.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLedger implements Ledger on a Postgres table, for deployments that
// already run the rest of their tooling against a shared database.
type PostgresLedger struct {
	pool    Pool
	closeFn func()
}

// NewPostgres connects a PostgresLedger to the given database URL.
func NewPostgres(ctx context.Context, connString string) (*PostgresLedger, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: postgres connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "ledger: postgres ping")
	}
	return &PostgresLedger{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresFromPool(pool Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS processed_series (
	series_id    TEXT PRIMARY KEY,
	processed_at TIMESTAMPTZ NOT NULL,
	team1_name   TEXT NOT NULL,
	team2_name   TEXT NOT NULL,
	source_path  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_processed_series_processed_at
	ON processed_series(processed_at);
`

func (l *PostgresLedger) Migrate(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "ledger: postgres migrate")
}

func (l *PostgresLedger) Close() error {
	if l.closeFn != nil {
		l.closeFn()
	}
	return nil
}

func (l *PostgresLedger) Contains(ctx context.Context, seriesID string) (bool, error) {
	var one int
	err := l.pool.QueryRow(ctx,
		`SELECT 1 FROM processed_series WHERE series_id = $1`,
		seriesID,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "ledger: postgres contains %s", seriesID)
	}
	return true, nil
}

func (l *PostgresLedger) Commit(ctx context.Context, entry model.LedgerEntry) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO processed_series (series_id, processed_at, team1_name, team2_name, source_path)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (series_id) DO NOTHING`,
		entry.SeriesID, entry.ProcessedAt.UTC(), entry.Team1Name, entry.Team2Name, entry.SourcePath,
	)
	return eris.Wrapf(err, "ledger: postgres commit %s", entry.SeriesID)
}

func (l *PostgresLedger) All(ctx context.Context) ([]model.LedgerEntry, error) {
	rows, err := l.pool.Query(ctx,
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

package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockLedger(t *testing.T) (*PostgresLedger, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgresLedger_ContainsHit(t *testing.T) {
	led, mock := newMockLedger(t)

	mock.ExpectQuery(`SELECT 1 FROM processed_series`).
		WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	ok, err := led.Contains(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_ContainsMiss(t *testing.T) {
	led, mock := newMockLedger(t)

	mock.ExpectQuery(`SELECT 1 FROM processed_series`).
		WithArgs("s1").
		WillReturnError(pgx.ErrNoRows)

	ok, err := led.Contains(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_Commit(t *testing.T) {
	led, mock := newMockLedger(t)

	e := entry("s1", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	mock.ExpectExec(`INSERT INTO processed_series`).
		WithArgs(e.SeriesID, e.ProcessedAt.UTC(), e.Team1Name, e.Team2Name, e.SourcePath).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, led.Commit(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_All(t *testing.T) {
	led, mock := newMockLedger(t)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT series_id, processed_at`).
		WillReturnRows(pgxmock.NewRows(
			[]string{"series_id", "processed_at", "team1_name", "team2_name", "source_path"}).
			AddRow("s1", base, "T1", "GEN", "a.jsonl").
			AddRow("s2", base.Add(time.Hour), "DK", "KT", "b.jsonl"))

	entries, err := led.All(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "s1", entries[0].SeriesID)
	assert.Equal(t, "KT", entries[1].Team2Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_AllQueryErrorIsCorrupt(t *testing.T) {
	led, mock := newMockLedger(t)

	mock.ExpectQuery(`SELECT series_id, processed_at`).
		WillReturnError(errors.New(`relation "processed_series" does not exist`))

	_, err := led.All(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_Migrate(t *testing.T) {
	led, mock := newMockLedger(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS processed_series`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, led.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

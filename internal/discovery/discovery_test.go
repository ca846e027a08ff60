package discovery

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrimworks/scrimsync/internal/model"
	"github.com/scrimworks/scrimsync/internal/resilience"
	"github.com/scrimworks/scrimsync/pkg/grid"
)

type fakeGrid struct {
	metas    []grid.SeriesMeta
	err      error
	failures int
	calls    int
}

func (f *fakeGrid) ListSeries(ctx context.Context, w grid.Window) ([]grid.SeriesMeta, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, resilience.NewTransientError(errors.New("http 503"), 503)
	}
	return f.metas, f.err
}

func (f *fakeGrid) SeriesFiles(ctx context.Context, seriesID string) ([]grid.FileInfo, error) {
	panic("not used")
}

func (f *fakeGrid) DownloadFile(ctx context.Context, fullURL string) (io.ReadCloser, error) {
	panic("not used")
}

type fakeLedger struct {
	processed map[string]bool
	err       error
}

func (f *fakeLedger) Contains(ctx context.Context, seriesID string) (bool, error) {
	return f.processed[seriesID], f.err
}

func (f *fakeLedger) Commit(ctx context.Context, e model.LedgerEntry) error { return nil }
func (f *fakeLedger) All(ctx context.Context) ([]model.LedgerEntry, error)  { return nil, nil }
func (f *fakeLedger) Migrate(ctx context.Context) error                     { return nil }
func (f *fakeLedger) Close() error                                          { return nil }

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}
}

func meta(id string, at time.Time, teams ...string) grid.SeriesMeta {
	m := grid.SeriesMeta{ID: id, StartTimeScheduled: at}
	for _, name := range teams {
		m.Teams = append(m.Teams, grid.TeamMeta{Name: name})
	}
	return m
}

func TestDiscover_FiltersProcessed(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	g := &fakeGrid{metas: []grid.SeriesMeta{
		meta("s1", base, "T1", "GEN"),
		meta("s2", base.Add(time.Hour), "DK", "KT"),
	}}
	led := &fakeLedger{processed: map[string]bool{"s1": true}}

	d := New(g, led, fastRetry())
	series, err := d.Discover(context.Background(), base.Add(-time.Hour), base.Add(2*time.Hour))
	require.NoError(t, err)

	require.Len(t, series, 1)
	assert.Equal(t, "s2", series[0].ID)
	assert.Equal(t, "DK", series[0].Team1Name)
	assert.Equal(t, "KT", series[0].Team2Name)
}

func TestDiscover_SortsByScheduledTime(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	g := &fakeGrid{metas: []grid.SeriesMeta{
		meta("late", base.Add(6*time.Hour)),
		meta("early", base),
		meta("mid", base.Add(3*time.Hour)),
	}}

	d := New(g, &fakeLedger{}, fastRetry())
	series, err := d.Discover(context.Background(), base, base.Add(24*time.Hour))
	require.NoError(t, err)

	require.Len(t, series, 3)
	assert.Equal(t, "early", series[0].ID)
	assert.Equal(t, "mid", series[1].ID)
	assert.Equal(t, "late", series[2].ID)
}

func TestDiscover_RetriesTransientListFailures(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	g := &fakeGrid{
		metas:    []grid.SeriesMeta{meta("s1", base)},
		failures: 2,
	}

	d := New(g, &fakeLedger{}, fastRetry())
	series, err := d.Discover(context.Background(), base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, series, 1)
	assert.Equal(t, 3, g.calls)
}

func TestDiscover_ExhaustedRetriesFatal(t *testing.T) {
	g := &fakeGrid{failures: 10}

	d := New(g, &fakeLedger{}, fastRetry())
	_, err := d.Discover(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDiscoveryFailed)
	assert.Equal(t, 3, g.calls)
}

func TestDiscover_LedgerLookupErrorPropagates(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	g := &fakeGrid{metas: []grid.SeriesMeta{meta("s1", base)}}
	led := &fakeLedger{err: errors.New("db locked")}

	d := New(g, led, fastRetry())
	_, err := d.Discover(context.Background(), base, base.Add(time.Hour))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDiscoveryFailed)
}

func TestDiscover_EmptyWindow(t *testing.T) {
	d := New(&fakeGrid{}, &fakeLedger{}, fastRetry())
	series, err := d.Discover(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Empty(t, series)
}

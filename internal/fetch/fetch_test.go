package fetch

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrimworks/scrimsync/internal/resilience"
	"github.com/scrimworks/scrimsync/pkg/grid"
)

type fakeGrid struct {
	files     []grid.FileInfo
	filesErr  error
	content   map[string]string // fullURL -> body
	failOnce  map[string]bool   // fullURL -> fail next download
	downloads []string
}

func (f *fakeGrid) ListSeries(ctx context.Context, w grid.Window) ([]grid.SeriesMeta, error) {
	panic("not used")
}

func (f *fakeGrid) SeriesFiles(ctx context.Context, seriesID string) ([]grid.FileInfo, error) {
	return f.files, f.filesErr
}

func (f *fakeGrid) DownloadFile(ctx context.Context, fullURL string) (io.ReadCloser, error) {
	f.downloads = append(f.downloads, fullURL)
	if f.failOnce[fullURL] {
		f.failOnce[fullURL] = false
		return nil, resilience.NewTransientError(errors.New("http 503"), 503)
	}
	body, ok := f.content[fullURL]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func livestatsFile(id, url string) grid.FileInfo {
	return grid.FileInfo{
		ID:          id,
		Description: "Riot livestats games " + id,
		Status:      "ready",
		FileName:    "g" + id + ".jsonl",
		FullURL:     url,
	}
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}
}

func TestFetch_DownloadsAndCaches(t *testing.T) {
	dir := t.TempDir()
	g := &fakeGrid{
		files:   []grid.FileInfo{livestatsFile("1", "u1"), livestatsFile("2", "u2")},
		content: map[string]string{"u1": "game one\n", "u2": "game two\n"},
	}

	f := New(g, dir, fastRetry())
	games, err := f.Fetch(context.Background(), "s1")
	require.NoError(t, err)

	require.Len(t, games, 2)
	assert.Equal(t, "1", games[0].ID)
	assert.Equal(t, []byte("game one\n"), games[0].RawEvents)
	assert.Equal(t, filepath.Join(dir, "livestats", "series_s1_1.jsonl"), games[0].SourcePath)

	// The cached copy landed on disk.
	data, err := os.ReadFile(games[1].SourcePath)
	require.NoError(t, err)
	assert.Equal(t, "game two\n", string(data))
}

func TestFetch_ReusesCachedFile(t *testing.T) {
	dir := t.TempDir()
	cached := filepath.Join(dir, "livestats", "series_s1_1.jsonl")
	require.NoError(t, os.MkdirAll(filepath.Dir(cached), 0o755))
	require.NoError(t, os.WriteFile(cached, []byte("from cache\n"), 0o644))

	g := &fakeGrid{files: []grid.FileInfo{livestatsFile("1", "u1")}}

	f := New(g, dir, fastRetry())
	games, err := f.Fetch(context.Background(), "s1")
	require.NoError(t, err)

	require.Len(t, games, 1)
	assert.Equal(t, []byte("from cache\n"), games[0].RawEvents)
	assert.Empty(t, g.downloads, "cached file must not be re-downloaded")
}

func TestFetch_FiltersNonLivestatsFiles(t *testing.T) {
	g := &fakeGrid{
		files: []grid.FileInfo{
			{ID: "sum", Description: "Series summary", FullURL: "usum"},
			livestatsFile("1", "u1"),
			{ID: "x", Description: "Riot livestats games x", Status: "expired", FullURL: "ux"},
		},
		content: map[string]string{"u1": "only game\n"},
	}

	f := New(g, t.TempDir(), fastRetry())
	games, err := f.Fetch(context.Background(), "s1")
	require.NoError(t, err)

	require.Len(t, games, 1)
	assert.Equal(t, "1", games[0].ID)
}

func TestFetch_RetriesTransientDownload(t *testing.T) {
	g := &fakeGrid{
		files:    []grid.FileInfo{livestatsFile("1", "u1")},
		content:  map[string]string{"u1": "eventually\n"},
		failOnce: map[string]bool{"u1": true},
	}

	f := New(g, t.TempDir(), fastRetry())
	games, err := f.Fetch(context.Background(), "s1")
	require.NoError(t, err)

	require.Len(t, games, 1)
	assert.Equal(t, []byte("eventually\n"), games[0].RawEvents)
	assert.Len(t, g.downloads, 2)
}

func TestFetch_SkipsUnusableGame(t *testing.T) {
	g := &fakeGrid{
		files:   []grid.FileInfo{livestatsFile("1", "gone"), livestatsFile("2", "u2")},
		content: map[string]string{"u2": "second game\n"},
	}

	f := New(g, t.TempDir(), fastRetry())
	games, err := f.Fetch(context.Background(), "s1")
	require.NoError(t, err)

	require.Len(t, games, 1)
	assert.Equal(t, "2", games[0].ID)
}

func TestFetch_AllGamesUnusable(t *testing.T) {
	g := &fakeGrid{
		files: []grid.FileInfo{livestatsFile("1", "gone"), livestatsFile("2", "also-gone")},
	}

	f := New(g, t.TempDir(), fastRetry())
	_, err := f.Fetch(context.Background(), "s1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoPlayableGame)
}

func TestFetch_NoLivestatsFilesAtAll(t *testing.T) {
	g := &fakeGrid{
		files: []grid.FileInfo{{ID: "sum", Description: "Series summary", FullURL: "usum"}},
	}

	f := New(g, t.TempDir(), fastRetry())
	_, err := f.Fetch(context.Background(), "s1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoPlayableGame)
}

func TestFetch_FileListErrorPropagates(t *testing.T) {
	g := &fakeGrid{filesErr: errors.New("forbidden")}

	f := New(g, t.TempDir(), fastRetry())
	_, err := f.Fetch(context.Background(), "s1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoPlayableGame)
}

func TestIsRiotLivestats(t *testing.T) {
	cases := []struct {
		name string
		file grid.FileInfo
		want bool
	}{
		{"ready livestats", livestatsFile("1", "u"), true},
		{"no status", grid.FileInfo{Description: "riot livestats"}, true},
		{"mixed case status", grid.FileInfo{Description: "riot livestats", Status: "Ready"}, true},
		{"expired", grid.FileInfo{Description: "riot livestats", Status: "expired"}, false},
		{"summary file", grid.FileInfo{Description: "Series summary", Status: "ready"}, false},
		{"livestats without riot", grid.FileInfo{Description: "livestats dump", Status: "ready"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isRiotLivestats(tc.file))
		})
	}
}

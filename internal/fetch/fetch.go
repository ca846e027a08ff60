// Package fetch downloads the raw per-game livestats files for a series,
// backed by an append-only on-disk cache keyed by (series, game).
package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scrimworks/scrimsync/internal/model"
	"github.com/scrimworks/scrimsync/internal/resilience"
	"github.com/scrimworks/scrimsync/pkg/grid"
)

// ErrNoPlayableGame means every game file of the series was missing or
// unreadable. The series must not be committed so it is retried next run.
var ErrNoPlayableGame = eris.New("fetch: no usable livestats file for series")

// Fetcher retrieves the livestats files for a series.
type Fetcher struct {
	grid     grid.Client
	cacheDir string
	retry    resilience.RetryConfig
}

// New creates a Fetcher caching downloads under cacheDir/livestats.
func New(client grid.Client, cacheDir string, retry resilience.RetryConfig) *Fetcher {
	return &Fetcher{grid: client, cacheDir: cacheDir, retry: retry}
}

// Fetch returns the series' games with raw events populated, in provider
// file order. A single unusable game is skipped; the series fails only when
// no game is usable.
func (f *Fetcher) Fetch(ctx context.Context, seriesID string) ([]model.Game, error) {
	log := zap.L().With(zap.String("series_id", seriesID))

	listRetry := f.retry
	listRetry.OnRetry = resilience.RetryLogger("grid", "series_files")
	files, err := resilience.DoVal(ctx, listRetry, func(ctx context.Context) ([]grid.FileInfo, error) {
		return f.grid.SeriesFiles(ctx, seriesID)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: list files for series %s", seriesID)
	}

	var games []model.Game
	for _, file := range files {
		if !isRiotLivestats(file) {
			continue
		}

		path, err := f.ensureCached(ctx, seriesID, file)
		if err != nil {
			log.Warn("skipping game: download failed",
				zap.String("game_id", file.ID),
				zap.Error(err),
			)
			continue
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warn("skipping game: cached file unreadable",
				zap.String("game_id", file.ID),
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}

		games = append(games, model.Game{
			ID:         file.ID,
			SourcePath: path,
			RawEvents:  raw,
		})
	}

	if len(games) == 0 {
		return nil, eris.Wrapf(ErrNoPlayableGame, "series %s", seriesID)
	}
	return games, nil
}

// ensureCached downloads the file unless a cached copy already exists.
// Re-fetching is safe: the write goes to a temp file and lands with a rename.
func (f *Fetcher) ensureCached(ctx context.Context, seriesID string, file grid.FileInfo) (string, error) {
	dir := filepath.Join(f.cacheDir, "livestats")
	path := filepath.Join(dir, fmt.Sprintf("series_%s_%s.jsonl", seriesID, file.ID))

	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "fetch: create cache dir %s", dir)
	}

	dlRetry := f.retry
	dlRetry.OnRetry = resilience.RetryLogger("grid", "download_file")
	err := resilience.Do(ctx, dlRetry, func(ctx context.Context) error {
		return f.downloadTo(ctx, file.FullURL, path)
	})
	if err != nil {
		return "", eris.Wrapf(err, "fetch: download %s", file.ID)
	}

	zap.L().Info("downloaded livestats file",
		zap.String("series_id", seriesID),
		zap.String("game_id", file.ID),
		zap.String("path", path),
	)
	return path, nil
}

func (f *Fetcher) downloadTo(ctx context.Context, url, path string) error {
	body, err := f.grid.DownloadFile(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close() //nolint:errcheck

	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return eris.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return eris.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "close temp file")
	}

	// Rename keeps partial downloads out of the cache.
	return eris.Wrap(os.Rename(tmp.Name(), path), "publish cached file")
}

// isRiotLivestats matches the provider's riot livestats blobs by description.
func isRiotLivestats(file grid.FileInfo) bool {
	desc := strings.ToLower(file.Description)
	if !strings.Contains(desc, "riot") || !strings.Contains(desc, "livestats") {
		return false
	}
	return file.Status == "" || strings.EqualFold(file.Status, "ready")
}

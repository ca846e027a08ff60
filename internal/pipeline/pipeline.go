// Package pipeline wires discovery, fetch, extraction, reconciliation and
// the ledger into a single sequential run.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scrimworks/scrimsync/internal/draft"
	"github.com/scrimworks/scrimsync/internal/ledger"
	"github.com/scrimworks/scrimsync/internal/model"
	"github.com/scrimworks/scrimsync/internal/reconcile"
)

// Discoverer lists unprocessed series within a time window.
type Discoverer interface {
	Discover(ctx context.Context, since, until time.Time) ([]model.Series, error)
}

// Fetcher retrieves the raw game files for one series.
type Fetcher interface {
	Fetch(ctx context.Context, seriesID string) ([]model.Game, error)
}

// Reconciler appends one duplicate-safe row per series to the sink.
type Reconciler interface {
	Append(ctx context.Context, series model.Series, rec model.DraftRecord) (bool, error)
}

// DraftGamePolicy selects which game's draft is authoritative when a series
// has more than one game with parseable livestats.
type DraftGamePolicy string

const (
	// DraftGameFirst uses the first game whose livestats parses.
	DraftGameFirst DraftGamePolicy = "first"
	// DraftGameLast uses the last game whose livestats parses.
	DraftGameLast DraftGamePolicy = "last"
)

// Config tunes a pipeline run.
type Config struct {
	Lookback  time.Duration
	DraftGame DraftGamePolicy
}

// Orchestrator runs the per-series state machine:
// discovered -> fetched -> extracted -> reconciled -> committed.
// The ledger commit is the final step, so a crash at any earlier point
// leaves the series eligible for retry on the next run.
type Orchestrator struct {
	cfg        Config
	discoverer Discoverer
	fetcher    Fetcher
	reconciler Reconciler
	ledger     ledger.Ledger
	catalog    draft.Catalog
	now        func() time.Time
}

// New creates an Orchestrator.
func New(cfg Config, d Discoverer, f Fetcher, r Reconciler, led ledger.Ledger, catalog draft.Catalog) *Orchestrator {
	if cfg.DraftGame == "" {
		cfg.DraftGame = DraftGameFirst
	}
	return &Orchestrator{
		cfg:        cfg,
		discoverer: d,
		fetcher:    f,
		reconciler: r,
		ledger:     led,
		catalog:    catalog,
		now:        time.Now,
	}
}

// Run executes one full pipeline pass. Per-series failures are recorded in
// the summary and skipped; fatal failures (corrupt ledger, failed discovery,
// unrecoverable sink errors) abort the run with the partial summary.
func (o *Orchestrator) Run(ctx context.Context) (*model.RunSummary, error) {
	summary := &model.RunSummary{
		RunID:     uuid.New().String(),
		StartedAt: o.now(),
	}
	defer func() {
		summary.Duration = o.now().Sub(summary.StartedAt)
	}()

	log := zap.L().With(zap.String("run_id", summary.RunID))

	// Ledger integrity gate: refuse to run when the persisted state cannot
	// be read back. Proceeding would risk duplicate or silently lost rows.
	entries, err := o.ledger.All(ctx)
	if err != nil {
		return summary, eris.Wrap(err, "pipeline: load ledger")
	}
	log.Info("ledger loaded", zap.Int("processed_series", len(entries)))

	summary.WindowTo = o.now()
	summary.WindowFrom = summary.WindowTo.Add(-o.cfg.Lookback)

	series, err := o.discoverer.Discover(ctx, summary.WindowFrom, summary.WindowTo)
	if err != nil {
		return summary, eris.Wrap(err, "pipeline: discover")
	}
	summary.Discovered = len(series)

	for _, s := range series {
		if err := ctx.Err(); err != nil {
			return summary, eris.Wrap(err, "pipeline: cancelled")
		}

		if err := o.processSeries(ctx, log, s, summary); err != nil {
			return summary, err
		}
	}

	log.Info("run complete",
		zap.Int("discovered", summary.Discovered),
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", len(summary.Skipped)),
	)
	return summary, nil
}

// processSeries advances one series through the state machine. A returned
// error is fatal for the whole run; series-local failures are recorded in
// the summary and swallowed.
func (o *Orchestrator) processSeries(ctx context.Context, log *zap.Logger, s model.Series, summary *model.RunSummary) error {
	slog := log.With(zap.String("series_id", s.ID))

	games, err := o.fetcher.Fetch(ctx, s.ID)
	if err != nil {
		o.skip(slog, summary, s, model.StageFetched, err)
		return nil
	}

	rec, teams, sourcePath, err := o.extract(games)
	if err != nil {
		o.skip(slog, summary, s, model.StageExtracted, err)
		return nil
	}
	rec.SeriesID = s.ID

	// Provider team names win; names observed in the stream fill gaps.
	if s.Team1Name == "" {
		s.Team1Name = teams.Team1
	}
	if s.Team2Name == "" {
		s.Team2Name = teams.Team2
	}

	appended, err := o.reconciler.Append(ctx, s, rec)
	if err != nil {
		if errors.Is(err, reconcile.ErrSinkWriteFailed) {
			return eris.Wrapf(err, "pipeline: series %s", s.ID)
		}
		o.skip(slog, summary, s, model.StageReconciled, err)
		return nil
	}
	if !appended {
		summary.AlreadyRows++
	}

	// Commit only after the row is durably present. If this write fails the
	// series is retried next run and the duplicate-safe append absorbs it.
	entry := model.LedgerEntry{
		SeriesID:    s.ID,
		ProcessedAt: o.now().UTC(),
		Team1Name:   s.Team1Name,
		Team2Name:   s.Team2Name,
		SourcePath:  sourcePath,
	}
	if err := o.ledger.Commit(ctx, entry); err != nil {
		o.skip(slog, summary, s, model.StageCommitted, err)
		return nil
	}

	summary.Processed++
	slog.Info("series processed",
		zap.String("team1", s.Team1Name),
		zap.String("team2", s.Team2Name),
		zap.Bool("row_appended", appended),
	)
	return nil
}

// extract runs the draft extractor over the series' games in policy order
// and returns the first successful record.
func (o *Orchestrator) extract(games []model.Game) (model.DraftRecord, draft.Teams, string, error) {
	ordered := games
	if o.cfg.DraftGame == DraftGameLast {
		ordered = make([]model.Game, len(games))
		for i, g := range games {
			ordered[len(games)-1-i] = g
		}
	}

	var lastErr error
	for _, g := range ordered {
		rec, teams, err := draft.Extract(g.RawEvents, o.catalog)
		if err != nil {
			lastErr = err
			continue
		}
		return rec, teams, g.SourcePath, nil
	}
	if lastErr == nil {
		lastErr = draft.ErrMalformedDraftData
	}
	return model.DraftRecord{}, draft.Teams{}, "", lastErr
}

func (o *Orchestrator) skip(log *zap.Logger, summary *model.RunSummary, s model.Series, stage model.Stage, err error) {
	log.Warn("skipping series",
		zap.String("stage", string(stage)),
		zap.Error(err),
	)
	summary.Skipped = append(summary.Skipped, model.SkippedSeries{
		SeriesID: s.ID,
		Stage:    stage,
		Reason:   err.Error(),
	})
}

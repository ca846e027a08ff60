// Package discovery finds scrim series in the trailing time window that have
// not been processed yet.
package discovery

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scrimworks/scrimsync/internal/ledger"
	"github.com/scrimworks/scrimsync/internal/model"
	"github.com/scrimworks/scrimsync/internal/resilience"
	"github.com/scrimworks/scrimsync/pkg/grid"
)

// ErrDiscoveryFailed means the provider listing could not be completed even
// after retries. The run aborts before any mutation.
var ErrDiscoveryFailed = eris.New("discovery: series listing failed")

// Discoverer queries the provider and filters out already-processed series.
type Discoverer struct {
	grid   grid.Client
	ledger ledger.Ledger
	retry  resilience.RetryConfig
}

// New creates a Discoverer. The retry config bounds provider retries.
func New(client grid.Client, led ledger.Ledger, retry resilience.RetryConfig) *Discoverer {
	retry.OnRetry = resilience.RetryLogger("grid", "list_series")
	return &Discoverer{grid: client, ledger: led, retry: retry}
}

// Discover returns the unprocessed series scheduled within [since, until],
// ascending by scheduled time so a partial run resumes cleanly from where it
// stopped.
func (d *Discoverer) Discover(ctx context.Context, since, until time.Time) ([]model.Series, error) {
	metas, err := resilience.DoVal(ctx, d.retry, func(ctx context.Context) ([]grid.SeriesMeta, error) {
		return d.grid.ListSeries(ctx, grid.Window{From: since, To: until})
	})
	if err != nil {
		return nil, eris.Wrap(ErrDiscoveryFailed, err.Error())
	}

	var out []model.Series
	for _, meta := range metas {
		done, err := d.ledger.Contains(ctx, meta.ID)
		if err != nil {
			return nil, eris.Wrapf(err, "discovery: ledger lookup %s", meta.ID)
		}
		if done {
			continue
		}
		out = append(out, toSeries(meta))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})

	zap.L().Info("discovery complete",
		zap.Time("since", since),
		zap.Time("until", until),
		zap.Int("total", len(metas)),
		zap.Int("new", len(out)),
	)
	return out, nil
}

func toSeries(meta grid.SeriesMeta) model.Series {
	s := model.Series{
		ID:          meta.ID,
		ScheduledAt: meta.StartTimeScheduled,
	}
	if len(meta.Teams) > 0 {
		s.Team1Name = meta.Teams[0].Name
	}
	if len(meta.Teams) > 1 {
		s.Team2Name = meta.Teams[1].Name
	}
	return s
}

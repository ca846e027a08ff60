// Package ledger persists the set of already-processed series. The ledger is
// the exactly-once anchor for the pipeline: an entry exists if and only if
// the series' row is durably present in the sink.
package ledger

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/scrimworks/scrimsync/internal/model"
)

// ErrCorrupt means the persisted ledger cannot be read back. The pipeline
// must refuse to run on a corrupt ledger: treating entries as unprocessed
// risks duplicate rows, treating them as processed silently drops data.
var ErrCorrupt = eris.New("ledger: persisted state is corrupt")

// Ledger is the durable processed-series set.
type Ledger interface {
	// Contains reports whether the series has already been processed.
	Contains(ctx context.Context, seriesID string) (bool, error)

	// Commit durably records a completed series. The write is atomic with
	// respect to process crash: a crash mid-commit leaves the series absent.
	// Committing an already-present series is a no-op.
	Commit(ctx context.Context, entry model.LedgerEntry) error

	// All returns every ledger entry, oldest first. It doubles as the
	// startup integrity check: unreadable state surfaces as ErrCorrupt.
	All(ctx context.Context) ([]model.LedgerEntry, error)

	// Migrate creates the backing schema if needed.
	Migrate(ctx context.Context) error

	Close() error
}

// corrupt tags err so errors.Is(err, ErrCorrupt) holds, keeping the cause text.
func corrupt(err error) error {
	return eris.Wrap(ErrCorrupt, err.Error())
}

// Package model defines the core types shared across the ingestion pipeline.
package model

import "time"

// DraftSlots is the number of ban and pick slots per side.
const DraftSlots = 5

// Series is one scrim match between two teams as reported by the provider.
// The series ID is assigned by the provider and never regenerated locally.
type Series struct {
	ID          string    `json:"id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Team1Name   string    `json:"team1_name"`
	Team2Name   string    `json:"team2_name"`
	Games       []Game    `json:"games,omitempty"`
}

// Game is one played match within a series. RawEvents holds the full
// livestats file content; SourcePath is the cached copy on local disk.
type Game struct {
	ID         string `json:"id"`
	SourcePath string `json:"source_path,omitempty"`
	RawEvents  []byte `json:"-"`
}

// DraftRecord is the extracted draft for one series. All four sequences are
// positional: the slot index encodes ban/pick order, and a slot with no
// observed event stays an empty string rather than shifting later slots.
type DraftRecord struct {
	SeriesID   string             `json:"series_id"`
	BlueBans   [DraftSlots]string `json:"blue_bans"`
	RedBans    [DraftSlots]string `json:"red_bans"`
	Team1Picks [DraftSlots]string `json:"team1_picks"`
	Team2Picks [DraftSlots]string `json:"team2_picks"`
}

// LedgerEntry records that a series has been fully processed. Entries are
// written exactly once, after the sink row is durably present, and never
// mutated or deleted.
type LedgerEntry struct {
	SeriesID    string    `json:"series_id"`
	ProcessedAt time.Time `json:"processed_at"`
	Team1Name   string    `json:"team1_name"`
	Team2Name   string    `json:"team2_name"`
	SourcePath  string    `json:"source_path"`
}

// Stage identifies how far a series got through the pipeline.
type Stage string

const (
	StageDiscovered Stage = "discovered"
	StageFetched    Stage = "fetched"
	StageExtracted  Stage = "extracted"
	StageReconciled Stage = "reconciled"
	StageCommitted  Stage = "committed"
)

// SkippedSeries describes a series that failed at some stage and was skipped
// for this run. It carries enough context for manual replay.
type SkippedSeries struct {
	SeriesID string `json:"series_id"`
	Stage    Stage  `json:"stage"`
	Reason   string `json:"reason"`
}

// RunSummary is the user-visible outcome of one pipeline run.
type RunSummary struct {
	RunID       string          `json:"run_id"`
	WindowFrom  time.Time       `json:"window_from"`
	WindowTo    time.Time       `json:"window_to"`
	Discovered  int             `json:"discovered"`
	Processed   int             `json:"processed"`
	AlreadyRows int             `json:"already_present_rows"`
	Skipped     []SkippedSeries `json:"skipped,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	Duration    time.Duration   `json:"duration"`
}

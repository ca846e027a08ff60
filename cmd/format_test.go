package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/scrimworks/scrimsync/internal/model"
)

func TestFormatSummary(t *testing.T) {
	s := &model.RunSummary{
		RunID:      "run-1",
		WindowFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		WindowTo:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Discovered: 5,
		Processed:  3,
		Skipped: []model.SkippedSeries{
			{SeriesID: "s4", Stage: model.StageFetched, Reason: "no usable livestats file"},
			{SeriesID: "s5", Stage: model.StageExtracted, Reason: "malformed livestats data"},
		},
		Duration: 1234 * time.Millisecond,
	}

	var sb strings.Builder
	formatSummary(&sb, s)
	out := sb.String()

	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "2026-01-01 .. 2026-03-01")
	assert.Contains(t, out, "Discovered: 5")
	assert.Contains(t, out, "Processed:  3")
	assert.Contains(t, out, "Skipped:    2")
	assert.Contains(t, out, "s4")
	assert.Contains(t, out, "fetched")
	assert.NotContains(t, out, "recovered commits", "line only shown when rows were recovered")
}

func TestFormatSummary_RecoveredRows(t *testing.T) {
	s := &model.RunSummary{RunID: "run-2", Processed: 2, AlreadyRows: 1}

	var sb strings.Builder
	formatSummary(&sb, s)
	assert.Contains(t, sb.String(), "recovered commits")
}

func TestFormatLedgerEntries(t *testing.T) {
	entries := []model.LedgerEntry{
		{
			SeriesID:    "s1",
			ProcessedAt: time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC),
			Team1Name:   "T1",
			Team2Name:   "GEN",
			SourcePath:  "cache/livestats/series_s1_1.jsonl",
		},
	}

	var sb strings.Builder
	formatLedgerEntries(&sb, entries)
	out := sb.String()

	assert.Contains(t, out, "SERIES")
	assert.Contains(t, out, "s1")
	assert.Contains(t, out, "2026-03-01 14:30")
	assert.Contains(t, out, "GEN")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly-10", truncate("exactly-10", 10))
	assert.Equal(t, "this is...", truncate("this is far too long", 10))
}

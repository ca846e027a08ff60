// Package draft extracts champion select information from raw livestats
// event streams. The stream is parsed once at the boundary into a tagged
// event sequence; extraction then works purely on typed events.
package draft

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/scrimworks/scrimsync/internal/model"
)

// ErrMalformedDraftData means the stream could not be parsed as structured
// draft events at all. Missing individual slots are not malformed.
var ErrMalformedDraftData = eris.New("draft: malformed livestats data")

// Side is the map side a team plays on.
type Side int

const (
	SideBlue Side = iota
	SideRed
)

func (s Side) String() string {
	if s == SideBlue {
		return "blue"
	}
	return "red"
}

// Event is one draft-relevant occurrence in stream order.
type Event interface {
	isEvent()
}

// SideAssigned announces which team plays which side. It appears before any
// pick or ban that references the side.
type SideAssigned struct {
	Side     Side
	TeamName string
}

// ChampionBanned is one completed ban. Slot is the per-side ban ordinal (0-4).
type ChampionBanned struct {
	Side       Side
	Slot       int
	ChampionID int
}

// ChampionPicked is one locked-in pick, or a swap replacing an earlier pick
// at the same slot. Slot is the per-side pick ordinal (0-4).
type ChampionPicked struct {
	Side       Side
	Slot       int
	ChampionID int
}

func (SideAssigned) isEvent()   {}
func (ChampionBanned) isEvent() {}
func (ChampionPicked) isEvent() {}

// livestats wire types. Each line of the file is one state snapshot; draft
// events are derived from the deltas between snapshots.

type snapshot struct {
	GameState       string           `json:"gameState"`
	BannedChampions []snapshotBan    `json:"bannedChampions"`
	TeamOne         []snapshotPlayer `json:"teamOne"`
	TeamTwo         []snapshotPlayer `json:"teamTwo"`
}

type snapshotBan struct {
	ChampionID int `json:"championID"`
	PickTurn   int `json:"pickTurn"`
	TeamID     int `json:"teamID"`
}

type snapshotPlayer struct {
	ParticipantID int    `json:"participantID"`
	ChampionID    int    `json:"championID"`
	DisplayName   string `json:"displayName"`
}

// Riot team IDs in the livestats feed.
const (
	teamIDBlue = 100
	teamIDRed  = 200
)

// maxLineSize bounds a single livestats line. Full-state snapshots near the
// end of champ select run to a few hundred KB.
const maxLineSize = 4 * 1024 * 1024

type banKey struct {
	championID int
	pickTurn   int
	teamID     int
}

// ParseEvents scans a livestats byte stream in order and emits the tagged
// draft event sequence. Events preserve stream order; no re-sorting happens
// here or downstream.
func ParseEvents(raw []byte) ([]Event, error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var events []Event
	parsedLines := 0

	seenBans := make(map[banKey]bool)
	banCount := map[Side]int{}
	pickCount := map[Side]int{}
	pickSlot := map[int]int{}   // participantID -> slot
	pickChamp := map[int]int{}  // participantID -> last champion ID
	sideNamed := map[Side]bool{}

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var snap snapshot
		if err := json.Unmarshal(line, &snap); err != nil {
			continue
		}
		parsedLines++

		if snap.GameState != "CHAMP_SELECT" && snap.GameState != "PRE_CHAMP_SELECT" {
			continue
		}

		sides := []struct {
			side    Side
			players []snapshotPlayer
		}{{SideBlue, snap.TeamOne}, {SideRed, snap.TeamTwo}}

		// Side assignment comes from player display names ("TEAM player").
		for _, s := range sides {
			if sideNamed[s.side] {
				continue
			}
			if name := teamPrefix(s.players); name != "" {
				events = append(events, SideAssigned{Side: s.side, TeamName: name})
				sideNamed[s.side] = true
			}
		}

		// New bans since the previous snapshot.
		for _, ban := range snap.BannedChampions {
			key := banKey{ban.ChampionID, ban.PickTurn, ban.TeamID}
			if seenBans[key] {
				continue
			}
			seenBans[key] = true

			side := SideBlue
			if ban.TeamID == teamIDRed {
				side = SideRed
			}
			slot := banCount[side]
			banCount[side]++
			if slot >= model.DraftSlots {
				continue
			}
			events = append(events, ChampionBanned{Side: side, Slot: slot, ChampionID: ban.ChampionID})
		}

		// New picks and in-place swaps.
		for _, s := range sides {
			side := s.side
			for _, p := range s.players {
				if p.ChampionID <= 0 {
					continue
				}
				if prev, ok := pickChamp[p.ParticipantID]; ok {
					if prev != p.ChampionID {
						// Swap: replace the earlier pick at its original slot.
						pickChamp[p.ParticipantID] = p.ChampionID
						events = append(events, ChampionPicked{
							Side:       side,
							Slot:       pickSlot[p.ParticipantID],
							ChampionID: p.ChampionID,
						})
					}
					continue
				}

				slot := pickCount[side]
				pickCount[side]++
				if slot >= model.DraftSlots {
					continue
				}
				pickChamp[p.ParticipantID] = p.ChampionID
				pickSlot[p.ParticipantID] = slot
				events = append(events, ChampionPicked{Side: side, Slot: slot, ChampionID: p.ChampionID})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(ErrMalformedDraftData, err.Error())
	}

	if parsedLines == 0 {
		return nil, eris.Wrap(ErrMalformedDraftData, "no parseable JSON lines")
	}
	if len(events) == 0 {
		return nil, eris.Wrap(ErrMalformedDraftData, "no draft events in stream")
	}
	return events, nil
}

// teamPrefix derives the team tag from player display names, which follow
// the "TEAM player" convention in scrim lobbies.
func teamPrefix(players []snapshotPlayer) string {
	for _, p := range players {
		if i := strings.IndexByte(p.DisplayName, ' '); i > 0 {
			return p.DisplayName[:i]
		}
	}
	return ""
}

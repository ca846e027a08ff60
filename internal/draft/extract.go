package draft

import (
	"github.com/scrimworks/scrimsync/internal/model"
)

// Catalog resolves a champion ID to its display name. It must not fail;
// unknown IDs map to a placeholder.
type Catalog func(championID int) string

// Teams reports the team names observed in the stream, in team1/team2 order.
// Names may be empty when the stream never exposed them.
type Teams struct {
	Team1 string
	Team2 string
}

// Extract parses one game's raw livestats stream and builds its draft
// record. Bans and picks land at their announced slot index; slots with no
// event stay empty strings. Which side is team1 follows the first
// SideAssigned event, or the first side seen when none is present.
func Extract(raw []byte, name Catalog) (model.DraftRecord, Teams, error) {
	events, err := ParseEvents(raw)
	if err != nil {
		return model.DraftRecord{}, Teams{}, err
	}

	var rec model.DraftRecord
	var teams Teams
	team1Side := Side(-1)

	claimTeam1 := func(s Side) {
		if team1Side < 0 {
			team1Side = s
		}
	}

	for _, ev := range events {
		switch e := ev.(type) {
		case SideAssigned:
			claimTeam1(e.Side)
			if e.Side == team1Side {
				teams.Team1 = e.TeamName
			} else {
				teams.Team2 = e.TeamName
			}

		case ChampionBanned:
			claimTeam1(e.Side)
			if e.Slot < 0 || e.Slot >= model.DraftSlots {
				continue
			}
			if e.Side == SideBlue {
				rec.BlueBans[e.Slot] = name(e.ChampionID)
			} else {
				rec.RedBans[e.Slot] = name(e.ChampionID)
			}

		case ChampionPicked:
			claimTeam1(e.Side)
			if e.Slot < 0 || e.Slot >= model.DraftSlots {
				continue
			}
			if e.Side == team1Side {
				rec.Team1Picks[e.Slot] = name(e.ChampionID)
			} else {
				rec.Team2Picks[e.Slot] = name(e.ChampionID)
			}
		}
	}

	return rec, teams, nil
}

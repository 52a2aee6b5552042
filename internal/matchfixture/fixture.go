// Package matchfixture builds riot-style match payloads for tests and for
// the replay tool.
package matchfixture

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/riftcoach/insight/internal/domain/types"
)

// FrameInterval is the spacing of generated timeline frames.
const FrameInterval = time.Minute

// Team ids.
const (
	Blue = 100
	Red  = 200
)

// Player describes one participant. ID is the 1-based participant id.
type Player struct {
	ID       int
	PUUID    string
	Name     string
	Champion string
	Team     int
	Role     types.Role
	Vision   float64
}

// Stats is what a frame reports for one participant.
type Stats struct {
	Gold float64
	CS   float64
	X, Y float64
}

// FrameFunc produces per-participant frame stats.
type FrameFunc func(at time.Duration, p Player) Stats

type event struct {
	at     time.Duration
	fields map[string]any
}

// Builder assembles a match payload.
type Builder struct {
	version   string
	id        string
	start     time.Time
	duration  time.Duration
	surrender bool
	gameEnd   bool
	winner    int
	players   []Player
	frameFn   FrameFunc
	events    []event
}

// New starts a payload for schema version "1" or "2".
func New(version, matchID string) *Builder {
	return &Builder{
		version:  version,
		id:       matchID,
		start:    time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC),
		duration: 30 * time.Minute,
		gameEnd:  true,
		winner:   Blue,
		frameFn:  DefaultFrames,
	}
}

// Duration sets the game length.
func (b *Builder) Duration(d time.Duration) *Builder { b.duration = d; return b }

// StartedAt sets the game start time.
func (b *Builder) StartedAt(t time.Time) *Builder { b.start = t; return b }

// Winner sets the winning team.
func (b *Builder) Winner(team int) *Builder { b.winner = team; return b }

// Surrender marks the game as ended by surrender.
func (b *Builder) Surrender() *Builder { b.surrender = true; return b }

// WithoutGameEnd omits the GAME_END timeline event.
func (b *Builder) WithoutGameEnd() *Builder { b.gameEnd = false; return b }

// Frames replaces the frame stats generator.
func (b *Builder) Frames(fn FrameFunc) *Builder { b.frameFn = fn; return b }

// Player adds a participant; its ID is assigned in insertion order.
func (b *Builder) Player(p Player) *Builder {
	p.ID = len(b.players) + 1
	if p.Champion == "" {
		p.Champion = "Champion" + fmt.Sprint(p.ID)
	}
	b.players = append(b.players, p)
	return b
}

// Roster adds ten players, five per team in role order, with puuids
// prefix1..prefix10.
func (b *Builder) Roster(prefix string) *Builder {
	for i, team := range []int{Blue, Red} {
		for j, r := range types.Roles {
			n := i*len(types.Roles) + j + 1
			b.Player(Player{
				PUUID:  fmt.Sprintf("%s%d", prefix, n),
				Name:   fmt.Sprintf("Summoner%d", n),
				Team:   team,
				Role:   r,
				Vision: 20,
			})
		}
	}
	return b
}

// Players returns the participants added so far.
func (b *Builder) Players() []Player {
	return append([]Player(nil), b.players...)
}

// Kill adds a CHAMPION_KILL. killer may be 0 for an execute.
func (b *Builder) Kill(at time.Duration, killer, victim int, assists ...int) *Builder {
	fields := map[string]any{"type": "CHAMPION_KILL", "killerId": killer, "victimId": victim}
	if len(assists) > 0 {
		fields["assistingParticipantIds"] = assists
	}
	if p, ok := b.byID(victim); ok {
		x, y := Anchor(p.Role, p.Team)
		fields["position"] = map[string]any{"x": x, "y": y}
	}
	return b.Event(at, fields)
}

// Ward adds a WARD_PLACED.
func (b *Builder) Ward(at time.Duration, creator int) *Builder {
	return b.Event(at, map[string]any{"type": "WARD_PLACED", "creatorId": creator, "wardType": "YELLOW_TRINKET"})
}

// WardKill adds a WARD_KILL.
func (b *Builder) WardKill(at time.Duration, killer int) *Builder {
	return b.Event(at, map[string]any{"type": "WARD_KILL", "killerId": killer, "wardType": "CONTROL_WARD"})
}

// Monster adds an ELITE_MONSTER_KILL taken by team.
func (b *Builder) Monster(at time.Duration, killer, team int, monster string, assists ...int) *Builder {
	fields := map[string]any{"type": "ELITE_MONSTER_KILL", "killerId": killer, "killerTeamId": team, "monsterType": monster}
	if len(assists) > 0 {
		fields["assistingParticipantIds"] = assists
	}
	return b.Event(at, fields)
}

// Building adds a BUILDING_KILL of a building owned by ownerTeam.
func (b *Builder) Building(at time.Duration, killer, ownerTeam int, building string) *Builder {
	return b.Event(at, map[string]any{"type": "BUILDING_KILL", "killerId": killer, "teamId": ownerTeam, "buildingType": building})
}

// Event adds an arbitrary timeline event at the given time.
func (b *Builder) Event(at time.Duration, fields map[string]any) *Builder {
	b.events = append(b.events, event{at: at, fields: fields})
	return b
}

// Build returns the payload as a generic document.
func (b *Builder) Build() map[string]any {
	info := map[string]any{
		"gameMode":             "CLASSIC",
		"gameEndedInSurrender": b.surrender,
		"participants":         b.participants(),
	}
	if b.version == "1" {
		info["gameDuration"] = b.duration.Milliseconds()
		info["gameCreation"] = b.start.UnixMilli()
	} else {
		info["gameDuration"] = int64(b.duration / time.Second)
		info["gameStartTimestamp"] = b.start.UnixMilli()
		info["gameEndTimestamp"] = b.start.Add(b.duration).UnixMilli()
	}
	return map[string]any{
		"metadata": map[string]any{"matchId": b.id, "dataVersion": b.version},
		"info":     info,
		"timeline": map[string]any{"frames": b.frames()},
	}
}

// JSON returns the encoded payload.
func (b *Builder) JSON() []byte {
	raw, err := json.Marshal(b.Build())
	if err != nil {
		panic(err)
	}
	return raw
}

func (b *Builder) participants() []map[string]any {
	out := make([]map[string]any, 0, len(b.players))
	for _, p := range b.players {
		m := map[string]any{
			"puuid":        p.PUUID,
			"championName": p.Champion,
			"teamId":       p.Team,
			"win":          p.Team == b.winner,
		}
		if b.version == "1" {
			lane, role := legacyLane(p.Role)
			m["summonerName"] = p.Name
			m["lane"] = lane
			m["role"] = role
		} else {
			m["participantId"] = p.ID
			m["riotIdGameName"] = p.Name
			m["teamPosition"] = string(p.Role)
			m["individualPosition"] = string(p.Role)
			m["visionScore"] = p.Vision
		}
		out = append(out, m)
	}
	return out
}

func (b *Builder) frames() []map[string]any {
	var stamps []time.Duration
	for at := time.Duration(0); at < b.duration; at += FrameInterval {
		stamps = append(stamps, at)
	}
	stamps = append(stamps, b.duration)

	events := append([]event(nil), b.events...)
	sort.SliceStable(events, func(i, j int) bool { return events[i].at < events[j].at })

	out := make([]map[string]any, len(stamps))
	for i, at := range stamps {
		pf := make(map[string]any, len(b.players))
		for _, p := range b.players {
			s := b.frameFn(at, p)
			f := map[string]any{
				"participantId":       p.ID,
				"totalGold":           s.Gold,
				"minionsKilled":       s.CS,
				"jungleMinionsKilled": 0,
			}
			if b.version != "1" {
				f["position"] = map[string]any{"x": s.X, "y": s.Y}
			}
			pf[fmt.Sprint(p.ID)] = f
		}
		out[i] = map[string]any{
			"timestamp":         at.Milliseconds(),
			"participantFrames": pf,
			"events":            []map[string]any{},
		}
	}

	// Events belong to the last frame stamped at or before them.
	for _, e := range events {
		idx := sort.Search(len(stamps), func(i int) bool { return stamps[i] > e.at }) - 1
		if idx < 0 {
			idx = 0
		}
		fields := make(map[string]any, len(e.fields)+1)
		for k, v := range e.fields {
			fields[k] = v
		}
		fields["timestamp"] = e.at.Milliseconds()
		out[idx]["events"] = append(out[idx]["events"].([]map[string]any), fields)
	}
	if b.gameEnd {
		last := len(out) - 1
		out[last]["events"] = append(out[last]["events"].([]map[string]any), map[string]any{
			"type":        "GAME_END",
			"timestamp":   b.duration.Milliseconds(),
			"winningTeam": b.winner,
		})
	}
	return out
}

func (b *Builder) byID(id int) (Player, bool) {
	if id < 1 || id > len(b.players) {
		return Player{}, false
	}
	return b.players[id-1], true
}

// DefaultFrames grows gold and cs linearly and keeps players on their
// lane anchor.
func DefaultFrames(at time.Duration, p Player) Stats {
	minutes := at.Minutes()
	perMin := map[types.Role]float64{
		types.RoleTop: 7, types.RoleMiddle: 7.5, types.RoleBottom: 8,
		types.RoleJungle: 5, types.RoleUtility: 1,
	}[p.Role]
	x, y := Anchor(p.Role, p.Team)
	return Stats{Gold: 500 + 380*minutes, CS: perMin * minutes, X: x, Y: y}
}

// Anchor is a representative map position for a role.
func Anchor(r types.Role, team int) (float64, float64) {
	switch r {
	case types.RoleTop:
		return 1500, 13500
	case types.RoleMiddle:
		return 7500, 7500
	case types.RoleBottom, types.RoleUtility:
		return 13500, 1500
	case types.RoleJungle:
		if team == Red {
			return 10900, 7000
		}
		return 3900, 7900
	}
	return 7500, 7500
}

func legacyLane(r types.Role) (string, string) {
	switch r {
	case types.RoleTop:
		return "TOP", "SOLO"
	case types.RoleJungle:
		return "JUNGLE", "NONE"
	case types.RoleMiddle:
		return "MIDDLE", "SOLO"
	case types.RoleBottom:
		return "BOTTOM", "DUO_CARRY"
	case types.RoleUtility:
		return "BOTTOM", "DUO_SUPPORT"
	}
	return "NONE", "NONE"
}

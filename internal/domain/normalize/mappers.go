package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/types"
)

// Timeline stamps may overshoot the reported duration slightly; anything
// within the grace is clamped to the end of the game.
const stampGrace = time.Second

// maxGameDuration rejects durations no real game reaches.
const maxGameDuration = 24 * time.Hour

const (
	teamBlue = 100
	teamRed  = 200
)

// dialect is a table-driven Mapper. Payload versions differ only in the
// flags below; the walk over participants, frames and events is shared.
type dialect struct {
	version string
	// unit of info.gameDuration
	durationUnit    time.Duration
	requireEndStamp bool
	startField      string
	explicitIDs     bool
	positions       bool
	vision          bool
	// surrender flag on info is accepted in place of a GAME_END event
	surrenderCompletes bool
	role               func(p gjson.Result) types.Role
}

// legacyMapper handles version 1: millisecond durations, lane+role pairs,
// implicit participant ids and no positional data.
func legacyMapper() Mapper {
	return &dialect{
		version:            "1",
		durationUnit:       time.Millisecond,
		startField:         "info.gameCreation",
		surrenderCompletes: true,
		role:               legacyRole,
	}
}

// currentMapper handles version 2: second durations with gameEndTimestamp,
// team positions, explicit participant ids, positions and vision score.
func currentMapper() Mapper {
	return &dialect{
		version:         "2",
		durationUnit:    time.Second,
		requireEndStamp: true,
		startField:      "info.gameStartTimestamp",
		explicitIDs:     true,
		positions:       true,
		vision:          true,
		role:            currentRole,
	}
}

func (d *dialect) Version() string { return d.version }

func (d *dialect) Map(doc gjson.Result) (*model.CanonicalMatch, error) {
	id := doc.Get("metadata.matchId").String()
	if id == "" {
		return nil, schemaErr("metadata.matchId", "missing")
	}
	info := doc.Get("info")
	if !info.IsObject() {
		return nil, schemaErr("info", "missing")
	}
	dur := info.Get("gameDuration")
	if dur.Type != gjson.Number || dur.Float() <= 0 {
		return nil, schemaErr("info.gameDuration", "must be a positive number")
	}
	if dur.Float()*float64(d.durationUnit) > float64(maxGameDuration) {
		return nil, schemaErr("info.gameDuration", "longer than %s", maxGameDuration)
	}
	if d.requireEndStamp && !info.Get("gameEndTimestamp").Exists() {
		return nil, schemaErr("info.gameEndTimestamp", "missing")
	}

	m := &model.CanonicalMatch{
		ID:        id,
		Duration:  time.Duration(dur.Float() * float64(d.durationUnit)),
		EndReason: model.EndNexus,
	}
	if ts := doc.Get(d.startField); ts.Type == gjson.Number {
		m.StartedAt = time.UnixMilli(ts.Int()).UTC()
	}

	b := &builder{d: d, m: m, byPID: make(map[int]model.Participant)}
	if err := b.participants(info.Get("participants")); err != nil {
		return nil, err
	}
	if err := b.timeline(doc.Get("timeline.frames")); err != nil {
		return nil, err
	}
	if err := b.conclude(info); err != nil {
		return nil, err
	}
	return m, nil
}

type builder struct {
	d     *dialect
	m     *model.CanonicalMatch
	byPID map[int]model.Participant
	ended bool
}

func (b *builder) participants(list gjson.Result) error {
	if !list.IsArray() || len(list.Array()) == 0 {
		return schemaErr("info.participants", "missing")
	}
	seen := make(map[string]bool)
	for i, p := range list.Array() {
		field := fmt.Sprintf("info.participants[%d]", i)
		puuid := p.Get("puuid").String()
		if puuid == "" {
			return schemaErr(field+".puuid", "missing")
		}
		if seen[puuid] {
			return schemaErr(field+".puuid", "duplicate %q", puuid)
		}
		seen[puuid] = true

		pid := i + 1
		if b.d.explicitIDs {
			v := p.Get("participantId")
			if v.Type != gjson.Number || v.Int() <= 0 {
				return schemaErr(field+".participantId", "missing")
			}
			pid = int(v.Int())
		}
		if _, dup := b.byPID[pid]; dup {
			return schemaErr(field+".participantId", "duplicate %d", pid)
		}
		team := int(p.Get("teamId").Int())
		if team <= 0 {
			return schemaErr(field+".teamId", "missing")
		}

		part := model.Participant{
			PlayerID:      puuid,
			Name:          displayName(p),
			Champion:      p.Get("championName").String(),
			TeamID:        team,
			ParticipantID: pid,
			Role:          b.d.role(p),
		}
		if b.d.vision {
			if vs := p.Get("visionScore"); vs.Type == gjson.Number {
				part.VisionScore = vs.Float()
				part.HasVisionScore = true
			}
		}
		b.byPID[pid] = part
		b.m.Participants = append(b.m.Participants, part)
	}
	return nil
}

func (b *builder) timeline(frames gjson.Result) error {
	if !frames.Exists() {
		return nil
	}
	if !frames.IsArray() {
		return schemaErr("timeline.frames", "expected array")
	}
	last := time.Duration(-1)
	for i, f := range frames.Array() {
		field := fmt.Sprintf("timeline.frames[%d]", i)
		at, err := b.stamp(f.Get("timestamp"), field+".timestamp")
		if err != nil {
			return err
		}
		if at < last {
			return schemaErr(field+".timestamp", "decreasing: %s after %s", at, last)
		}
		last = at
		if err := b.frame(f.Get("participantFrames"), at, field+".participantFrames"); err != nil {
			return err
		}
		for j, e := range f.Get("events").Array() {
			if err := b.event(e, fmt.Sprintf("%s.events[%d]", field, j)); err != nil {
				return err
			}
		}
	}
	return nil
}

// stamp converts a millisecond timeline stamp and bounds it by the duration.
func (b *builder) stamp(v gjson.Result, field string) (time.Duration, error) {
	if v.Type != gjson.Number || v.Float() < 0 {
		return 0, schemaErr(field, "must be a non-negative number")
	}
	limit := b.m.Duration + stampGrace
	if v.Float() > float64(limit/time.Millisecond) {
		return 0, schemaErr(field, "%dms is beyond game duration %s", v.Int(), b.m.Duration)
	}
	at := time.Duration(v.Int()) * time.Millisecond
	if at > b.m.Duration {
		at = b.m.Duration
	}
	return at, nil
}

func (b *builder) frame(pf gjson.Result, at time.Duration, field string) error {
	if !pf.Exists() {
		return nil
	}
	var err error
	pf.ForEach(func(key, value gjson.Result) bool {
		pid, convErr := strconv.Atoi(key.String())
		if convErr != nil {
			err = schemaErr(field, "bad participant key %q", key.String())
			return false
		}
		p, ok := b.byPID[pid]
		if !ok {
			err = schemaErr(field, "unknown participant %d", pid)
			return false
		}
		if g := value.Get("totalGold"); g.Type == gjson.Number {
			b.add(model.TimelineEvent{At: at, Kind: model.EventGoldUpdate, Actor: p.PlayerID, Team: p.TeamID, Value: g.Float()})
		}
		lane, jungle := value.Get("minionsKilled"), value.Get("jungleMinionsKilled")
		if lane.Exists() || jungle.Exists() {
			b.add(model.TimelineEvent{At: at, Kind: model.EventCSUpdate, Actor: p.PlayerID, Team: p.TeamID, Value: lane.Float() + jungle.Float()})
		}
		if b.d.positions {
			if pos, ok := position(value.Get("position")); ok {
				b.add(model.TimelineEvent{At: at, Kind: model.EventPositionSample, Actor: p.PlayerID, Team: p.TeamID, Position: pos, HasPosition: true})
			}
		}
		return true
	})
	return err
}

func (b *builder) event(e gjson.Result, field string) error {
	typ := e.Get("type").String()
	if typ == "" {
		return schemaErr(field+".type", "missing")
	}
	at, err := b.stamp(e.Get("timestamp"), field+".timestamp")
	if err != nil {
		return err
	}
	var pos model.Position
	hasPos := false
	if b.d.positions {
		pos, hasPos = position(e.Get("position"))
	}

	switch typ {
	case "CHAMPION_KILL":
		victim, _, err := b.ref(e.Get("victimId"), field+".victimId", true)
		if err != nil {
			return err
		}
		killer, hasKiller, err := b.ref(e.Get("killerId"), field+".killerId", false)
		if err != nil {
			return err
		}
		assists, err := b.refs(e.Get("assistingParticipantIds"), field+".assistingParticipantIds")
		if err != nil {
			return err
		}
		assistIDs := make([]string, len(assists))
		for i, a := range assists {
			assistIDs[i] = a.PlayerID
		}
		if hasKiller {
			b.add(model.TimelineEvent{At: at, Kind: model.EventKill, Actor: killer.PlayerID, Counterpart: victim.PlayerID,
				Assists: assistIDs, Team: killer.TeamID, Position: pos, HasPosition: hasPos})
		}
		b.add(model.TimelineEvent{At: at, Kind: model.EventDeath, Actor: victim.PlayerID, Counterpart: killer.PlayerID,
			Team: victim.TeamID, Position: pos, HasPosition: hasPos})
		for _, a := range assists {
			b.add(model.TimelineEvent{At: at, Kind: model.EventAssist, Actor: a.PlayerID, Counterpart: victim.PlayerID,
				Team: a.TeamID, Position: pos, HasPosition: hasPos})
		}

	case "WARD_PLACED":
		creator, ok, err := b.ref(e.Get("creatorId"), field+".creatorId", false)
		if err != nil || !ok {
			return err
		}
		b.add(model.TimelineEvent{At: at, Kind: model.EventWardPlace, Actor: creator.PlayerID, Team: creator.TeamID,
			Label: e.Get("wardType").String(), Position: pos, HasPosition: hasPos})

	case "WARD_KILL":
		killer, ok, err := b.ref(e.Get("killerId"), field+".killerId", false)
		if err != nil || !ok {
			return err
		}
		b.add(model.TimelineEvent{At: at, Kind: model.EventWardKill, Actor: killer.PlayerID, Team: killer.TeamID,
			Label: e.Get("wardType").String(), Position: pos, HasPosition: hasPos})

	case "ELITE_MONSTER_KILL":
		killer, hasKiller, err := b.ref(e.Get("killerId"), field+".killerId", false)
		if err != nil {
			return err
		}
		assists, err := b.refs(e.Get("assistingParticipantIds"), field+".assistingParticipantIds")
		if err != nil {
			return err
		}
		team := int(e.Get("killerTeamId").Int())
		if team == 0 && hasKiller {
			team = killer.TeamID
		}
		if team == 0 {
			return schemaErr(field+".killerTeamId", "missing")
		}
		label := e.Get("monsterType").String()
		if sub := e.Get("monsterSubType").String(); sub != "" {
			label += ":" + sub
		}
		ev := model.TimelineEvent{At: at, Kind: model.EventObjectiveTake, Actor: killer.PlayerID, Team: team,
			Label: label, Position: pos, HasPosition: hasPos}
		for _, a := range assists {
			ev.Assists = append(ev.Assists, a.PlayerID)
		}
		b.add(ev)

	case "BUILDING_KILL":
		killer, _, err := b.ref(e.Get("killerId"), field+".killerId", false)
		if err != nil {
			return err
		}
		assists, err := b.refs(e.Get("assistingParticipantIds"), field+".assistingParticipantIds")
		if err != nil {
			return err
		}
		// teamId is the team that lost the building.
		owner := int(e.Get("teamId").Int())
		if owner != teamBlue && owner != teamRed {
			return schemaErr(field+".teamId", "unknown team %d", owner)
		}
		ev := model.TimelineEvent{At: at, Kind: model.EventObjectiveTake, Actor: killer.PlayerID, Team: opponent(owner),
			Label: e.Get("buildingType").String(), Position: pos, HasPosition: hasPos}
		for _, a := range assists {
			ev.Assists = append(ev.Assists, a.PlayerID)
		}
		b.add(ev)

	case "GAME_END":
		b.ended = true
		winner := int(e.Get("winningTeam").Int())
		if winner != 0 {
			b.m.WinningTeam = winner
		}
		b.add(model.TimelineEvent{At: at, Kind: model.EventGameEnd, Team: winner})
	}
	return nil
}

// conclude verifies the match actually finished and fills the end state.
func (b *builder) conclude(info gjson.Result) error {
	surrender := info.Get("gameEndedInSurrender").Bool() || info.Get("gameEndedInEarlySurrender").Bool()
	if surrender {
		b.m.EndReason = model.EndSurrender
	}
	if b.m.WinningTeam == 0 {
		for i, p := range info.Get("participants").Array() {
			if p.Get("win").Bool() {
				b.m.WinningTeam = b.m.Participants[i].TeamID
				break
			}
		}
	}
	if b.ended {
		return nil
	}
	if !b.d.surrenderCompletes || !surrender {
		return fmt.Errorf("%w: match %s has no game end", ErrIncompleteMatch, b.m.ID)
	}
	b.add(model.TimelineEvent{At: b.m.Duration, Kind: model.EventGameEnd, Team: b.m.WinningTeam, Label: string(model.EndSurrender)})
	return nil
}

func (b *builder) add(e model.TimelineEvent) {
	b.m.Events = append(b.m.Events, e)
}

// ref resolves a participant id. Zero means no participant (minions,
// turrets) and is an error only when required is set.
func (b *builder) ref(v gjson.Result, field string, required bool) (model.Participant, bool, error) {
	id := int(v.Int())
	if id == 0 {
		if required {
			return model.Participant{}, false, schemaErr(field, "missing")
		}
		return model.Participant{}, false, nil
	}
	p, ok := b.byPID[id]
	if !ok {
		return model.Participant{}, false, schemaErr(field, "unknown participant %d", id)
	}
	return p, true, nil
}

func (b *builder) refs(v gjson.Result, field string) ([]model.Participant, error) {
	var out []model.Participant
	for i, id := range v.Array() {
		p, ok, err := b.ref(id, fmt.Sprintf("%s[%d]", field, i), false)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func position(v gjson.Result) (model.Position, bool) {
	x, y := v.Get("x"), v.Get("y")
	if x.Type != gjson.Number || y.Type != gjson.Number {
		return model.Position{}, false
	}
	return model.Position{X: x.Float(), Y: y.Float()}, true
}

func opponent(team int) int {
	if team == teamBlue {
		return teamRed
	}
	return teamBlue
}

func displayName(p gjson.Result) string {
	if n := p.Get("riotIdGameName").String(); n != "" {
		return n
	}
	return p.Get("summonerName").String()
}

func legacyRole(p gjson.Result) types.Role {
	lane := strings.TrimSuffix(strings.ToUpper(p.Get("lane").String()), "_LANE")
	role := strings.ToUpper(p.Get("role").String())
	if (lane == "BOTTOM" || lane == "BOT") && (role == "DUO_SUPPORT" || role == "SUPPORT") {
		return types.RoleUtility
	}
	r, err := types.ParseRole(lane)
	if err != nil {
		return types.RoleUnknown
	}
	return r
}

func currentRole(p gjson.Result) types.Role {
	for _, f := range []string{"teamPosition", "individualPosition"} {
		if r, err := types.ParseRole(p.Get(f).String()); err == nil {
			return r
		}
	}
	return types.RoleUnknown
}

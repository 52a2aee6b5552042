package features

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/types"
)

// Defaults for the extractor.
const (
	DefaultWindow    = 60 * time.Second
	DefaultLaningEnd = 14 * time.Minute
)

// Extractor computes feature sets. It holds configuration only and is safe
// for concurrent use.
type Extractor struct {
	window    time.Duration
	laningEnd time.Duration
}

// New constructs an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		window:    DefaultWindow,
		laningEnd: DefaultLaningEnd,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Window returns the configured window size.
func (e *Extractor) Window() time.Duration { return e.window }

// LaningEnd returns the end of the laning phase.
func (e *Extractor) LaningEnd() time.Duration { return e.laningEnd }

// Windows splits a match into windows aligned to zero. A trailing partial
// window is kept only if some event falls inside it.
func (e *Extractor) Windows(m *model.CanonicalMatch) []Window {
	full := int(m.Duration / e.window)
	count := full
	if m.Duration%e.window != 0 {
		edge := time.Duration(full) * e.window
		for i := range m.Events {
			if m.Events[i].At >= edge {
				count++
				break
			}
		}
	}
	ws := make([]Window, count)
	for i := range ws {
		from := time.Duration(i) * e.window
		to := from + e.window
		if to > m.Duration {
			to = m.Duration
		}
		ws[i] = Window{Index: i, From: from, To: to}
	}
	return ws
}

// index maps a timestamp to its window. The end-of-game instant belongs to
// the last window.
func (e *Extractor) index(at time.Duration, n int) int {
	if n == 0 || at < 0 {
		return -1
	}
	i := int(at / e.window)
	if i >= n {
		i = n - 1
	}
	return i
}

// Extract computes a feature set for every participant.
func (e *Extractor) Extract(m *model.CanonicalMatch) (map[string]*PlayerFeatureSet, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil match", ErrInvalidMatch)
	}
	if m.Duration <= 0 {
		return nil, fmt.Errorf("%w: match %s has no duration", ErrInvalidMatch, m.ID)
	}
	if len(m.Participants) == 0 {
		return nil, fmt.Errorf("%w: match %s has no participants", ErrInvalidMatch, m.ID)
	}

	windows := e.Windows(m)
	tc := e.teamCounts(m, len(windows))
	out := make(map[string]*PlayerFeatureSet, len(m.Participants))
	for _, p := range m.Participants {
		out[p.PlayerID] = e.player(m, p, windows, tc)
	}
	return out, nil
}

type teamCounts struct {
	kills      map[int][]int
	killsTotal map[int]int
	objectives map[int]int
}

func (e *Extractor) teamCounts(m *model.CanonicalMatch, n int) teamCounts {
	tc := teamCounts{kills: map[int][]int{}, killsTotal: map[int]int{}, objectives: map[int]int{}}
	for _, p := range m.Participants {
		if _, ok := tc.kills[p.TeamID]; !ok {
			tc.kills[p.TeamID] = make([]int, n)
		}
	}
	for i := range m.Events {
		ev := &m.Events[i]
		switch ev.Kind {
		case model.EventKill:
			if w := e.index(ev.At, n); w >= 0 && tc.kills[ev.Team] != nil {
				tc.kills[ev.Team][w]++
			}
			tc.killsTotal[ev.Team]++
		case model.EventObjectiveTake:
			tc.objectives[ev.Team]++
		}
	}
	return tc
}

type sample struct {
	at time.Duration
	v  float64
}

func (e *Extractor) player(m *model.CanonicalMatch, p model.Participant, windows []Window, tc teamCounts) *PlayerFeatureSet {
	n := len(windows)
	counts := map[string][]float64{
		Kills: make([]float64, n), Deaths: make([]float64, n), Assists: make([]float64, n),
		WardsPlaced: make([]float64, n), WardKills: make([]float64, n), Objectives: make([]float64, n),
	}
	devSum := make([]float64, n)
	devN := make([]int, n)
	var cs []sample
	gold := map[time.Duration]float64{}
	oppGold := map[time.Duration]float64{}
	opp, hasOpp := laneOpponent(m, p)
	positions := 0

	for i := range m.Events {
		ev := &m.Events[i]
		w := e.index(ev.At, n)
		if w < 0 {
			continue
		}
		self := ev.Actor == p.PlayerID
		switch ev.Kind {
		case model.EventKill:
			if self {
				counts[Kills][w]++
			}
		case model.EventDeath:
			if self {
				counts[Deaths][w]++
			}
		case model.EventAssist:
			if self {
				counts[Assists][w]++
			}
		case model.EventWardPlace:
			if self {
				counts[WardsPlaced][w]++
			}
		case model.EventWardKill:
			if self {
				counts[WardKills][w]++
			}
		case model.EventObjectiveTake:
			if self || contains(ev.Assists, p.PlayerID) {
				counts[Objectives][w]++
			}
		case model.EventCSUpdate:
			if self {
				cs = append(cs, sample{at: ev.At, v: ev.Value})
			}
		case model.EventGoldUpdate:
			if self {
				gold[ev.At] = ev.Value
			} else if hasOpp && ev.Actor == opp.PlayerID {
				oppGold[ev.At] = ev.Value
			}
		case model.EventPositionSample:
			if self && ev.HasPosition {
				positions++
				if d, ok := LaneDeviation(p.Role, ev.Position); ok {
					devSum[w] += d
					devN[w]++
				}
			}
		}
	}
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].at < cs[j].at })

	fs := &PlayerFeatureSet{
		PlayerID: p.PlayerID,
		Role:     p.Role,
		Team:     p.TeamID,
		Windows:  append([]Window(nil), windows...),
		Scalars:  map[string]Value{},
		Series:   map[string][]Value{},
	}
	for name, vals := range counts {
		series := make([]Value, n)
		total := 0.0
		for i, v := range vals {
			series[i] = Num(v)
			total += v
		}
		fs.Series[name] = series
		fs.Scalars[name] = Num(total)
	}
	fs.Series[CS] = csSeries(cs, windows)
	fs.Series[KillParticipation] = kpSeries(counts, tc.kills[p.TeamID], n)
	fs.Series[PositionDeviation] = meanSeries(devSum, devN)

	diffs := goldDiffs(gold, oppGold)
	diffSum := make([]float64, n)
	diffN := make([]int, n)
	for _, d := range diffs {
		w := e.index(d.at, n)
		if w < 0 {
			continue
		}
		diffSum[w] += d.v
		diffN[w]++
	}
	fs.Series[GoldDiff] = meanSeries(diffSum, diffN)

	// scalars
	csTotal := 0.0
	if len(cs) > 0 {
		csTotal = cs[len(cs)-1].v
	}
	fs.Scalars[CSTotal] = Num(csTotal)
	fs.Scalars[CSSamples] = Num(float64(len(cs)))
	fs.Scalars[GoldSamples] = Num(float64(len(gold)))
	fs.Scalars[PositionSamples] = Num(float64(positions))
	fs.Scalars[TeamObjectives] = Num(float64(tc.objectives[p.TeamID]))

	fs.Scalars[VisionScore] = Missing()
	if p.HasVisionScore {
		fs.Scalars[VisionScore] = Num(p.VisionScore)
	}
	fs.Scalars[KillParticipation] = ratio(fs.Scalars[Kills].Num+fs.Scalars[Assists].Num, float64(tc.killsTotal[p.TeamID]))
	fs.Scalars[ObjectiveParticipation] = ratio(fs.Scalars[Objectives].Num, float64(tc.objectives[p.TeamID]))
	fs.Scalars[CSPerMin] = Missing()
	if len(cs) > 0 {
		fs.Scalars[CSPerMin] = Num(csTotal / m.Duration.Minutes())
	}
	fs.Scalars[GoldDiffLaningEnd] = Missing()
	for _, d := range diffs {
		if d.at <= e.laningEnd {
			fs.Scalars[GoldDiffLaningEnd] = Num(d.v)
		}
	}
	fs.Scalars[RoleName] = Text(string(p.Role))
	fs.Scalars[TeamName] = Text(strconv.Itoa(p.TeamID))
	fs.Scalars[ChampionName] = Text(p.Champion)
	return fs
}

// csSeries is the farm gained across each window, read from the last
// sample at or before each window edge. Windows without a sample count 0.
func csSeries(cs []sample, windows []Window) []Value {
	out := make([]Value, len(windows))
	j := 0
	base := 0.0
	for i, w := range windows {
		for j < len(cs) && cs[j].at <= w.From {
			base = cs[j].v
			j++
		}
		last, seen := base, false
		for k := j; k < len(cs) && cs[k].at <= w.To; k++ {
			last, seen = cs[k].v, true
		}
		out[i] = Num(0)
		if seen {
			out[i] = Num(math.Max(0, last-base))
		}
	}
	return out
}

func kpSeries(counts map[string][]float64, teamKills []int, n int) []Value {
	out := make([]Value, n)
	for i := range out {
		if teamKills == nil || teamKills[i] == 0 {
			out[i] = Missing()
			continue
		}
		out[i] = Num(math.Min(1, (counts[Kills][i]+counts[Assists][i])/float64(teamKills[i])))
	}
	return out
}

func meanSeries(sum []float64, n []int) []Value {
	out := make([]Value, len(sum))
	for i := range sum {
		if n[i] == 0 {
			out[i] = Missing()
			continue
		}
		out[i] = Num(sum[i] / float64(n[i]))
	}
	return out
}

// goldDiffs pairs player and opponent gold samples taken at the same time,
// in time order.
func goldDiffs(self, opp map[time.Duration]float64) []sample {
	var out []sample
	for at, g := range self {
		if o, ok := opp[at]; ok {
			out = append(out, sample{at: at, v: g - o})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].at < out[j].at })
	return out
}

func ratio(num, den float64) Value {
	if den == 0 {
		return Missing()
	}
	return Num(math.Min(1, num/den))
}

// laneOpponent finds the player in the same role on the other team.
func laneOpponent(m *model.CanonicalMatch, p model.Participant) (model.Participant, bool) {
	if p.Role == types.RoleUnknown {
		return model.Participant{}, false
	}
	for _, o := range m.Participants {
		if o.TeamID != p.TeamID && o.Role == p.Role {
			return o, true
		}
	}
	return model.Participant{}, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

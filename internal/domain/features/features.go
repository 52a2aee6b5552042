// Package features derives per-player scalar and windowed metrics from a
// canonical match.
package features

import (
	"time"

	"github.com/riftcoach/insight/internal/domain/types"
)

// Metric names. Windowed series and scalars share a namespace; a name may be
// both (kills is a per-window count and a match total).
const (
	Kills                  = "kills"
	Deaths                 = "deaths"
	Assists                = "assists"
	WardsPlaced            = "wards_placed"
	WardKills              = "ward_kills"
	Objectives             = "objectives"
	CS                     = "cs"
	KillParticipation      = "kill_participation"
	GoldDiff               = "gold_diff"
	PositionDeviation      = "position_deviation"
	CSTotal                = "cs_total"
	CSSamples              = "samples.cs"
	GoldSamples            = "samples.gold"
	PositionSamples        = "samples.position"
	VisionScore            = "vision_score"
	ObjectiveParticipation = "objective_participation"
	TeamObjectives         = "team_objectives"
	CSPerMin               = "cs_per_min"
	GoldDiffLaningEnd      = "gold_diff_laning_end"
	RoleName               = "role"
	TeamName               = "team"
	ChampionName           = "champion"
)

// SeriesKind tells count series (zero when empty) from rate series
// (missing when empty).
type SeriesKind int

// Series kinds.
const (
	CountSeries SeriesKind = iota
	RateSeries
)

// SeriesKinds maps each windowed series to its kind.
var SeriesKinds = map[string]SeriesKind{ //nolint:gochecknoglobals // read-only lookup table
	Kills:             CountSeries,
	Deaths:            CountSeries,
	Assists:           CountSeries,
	WardsPlaced:       CountSeries,
	WardKills:         CountSeries,
	Objectives:        CountSeries,
	CS:                CountSeries,
	KillParticipation: RateSeries,
	GoldDiff:          RateSeries,
	PositionDeviation: RateSeries,
}

// ValueKind distinguishes numeric from categorical values.
type ValueKind int

// Value kinds.
const (
	Numeric ValueKind = iota
	Categorical
)

// Value is a metric value. A value that is not Present is a missing marker,
// never a zero.
type Value struct {
	Kind    ValueKind `json:"kind"`
	Num     float64   `json:"num,omitempty"`
	Text    string    `json:"text,omitempty"`
	Present bool      `json:"present"`
}

// Num returns a present numeric value.
func Num(v float64) Value { return Value{Kind: Numeric, Num: v, Present: true} }

// Text returns a present categorical value.
func Text(s string) Value { return Value{Kind: Categorical, Text: s, Present: true} }

// Missing returns the missing marker.
func Missing() Value { return Value{Kind: Numeric} }

// IsMissing reports whether v is the missing marker.
func (v Value) IsMissing() bool { return !v.Present }

// Window is one fixed-size slice of game time, [From, To).
type Window struct {
	Index int           `json:"index"`
	From  time.Duration `json:"from"`
	To    time.Duration `json:"to"`
}

// PlayerFeatureSet holds every metric computed for a player in a match.
type PlayerFeatureSet struct {
	PlayerID string
	Role     types.Role
	Team     int
	Windows  []Window
	Scalars  map[string]Value
	Series   map[string][]Value
}

// View returns a read-only accessor over fs.
func (fs *PlayerFeatureSet) View() View { return View{fs: fs} }

// View is an immutable accessor over a PlayerFeatureSet. Every accessor
// returns copies so detectors cannot affect one another.
type View struct {
	fs *PlayerFeatureSet
}

// PlayerID returns the player the features belong to.
func (v View) PlayerID() string { return v.fs.PlayerID }

// Role returns the player's role.
func (v View) Role() types.Role { return v.fs.Role }

// Team returns the player's team id.
func (v View) Team() int { return v.fs.Team }

// WindowCount returns the number of windows.
func (v View) WindowCount() int { return len(v.fs.Windows) }

// Windows returns a copy of the windows.
func (v View) Windows() []Window { return append([]Window(nil), v.fs.Windows...) }

// Window returns window i.
func (v View) Window(i int) (Window, bool) {
	if i < 0 || i >= len(v.fs.Windows) {
		return Window{}, false
	}
	return v.fs.Windows[i], true
}

// Scalar returns a scalar metric, or the missing marker when unknown.
func (v View) Scalar(name string) Value {
	if val, ok := v.fs.Scalars[name]; ok {
		return val
	}
	return Missing()
}

// Series returns a copy of a windowed series, or nil when unknown.
func (v View) Series(name string) []Value {
	s, ok := v.fs.Series[name]
	if !ok {
		return nil
	}
	return append([]Value(nil), s...)
}

// Count returns a count scalar as an int; missing counts read as zero.
func (v View) Count(name string) int {
	return int(v.Scalar(name).Num)
}

// Package model defines the canonical domain records shared across packages.
package model

import (
	"time"

	"github.com/riftcoach/insight/internal/domain/types"
)

// EventKind enumerates canonical timeline event kinds.
type EventKind string

// Timeline event kinds.
const (
	EventKill           EventKind = "kill"
	EventDeath          EventKind = "death"
	EventAssist         EventKind = "assist"
	EventObjectiveTake  EventKind = "objective-take"
	EventWardPlace      EventKind = "ward-place"
	EventWardKill       EventKind = "ward-kill"
	EventGoldUpdate     EventKind = "gold-update"
	EventCSUpdate       EventKind = "cs-update"
	EventPositionSample EventKind = "position-sample"
	EventGameEnd        EventKind = "game-end"
)

// EndReason describes how a match concluded.
type EndReason string

// Match end reasons.
const (
	EndNexus     EndReason = "nexus"
	EndSurrender EndReason = "surrender"
)

// Position is a map coordinate in game units.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TimelineEvent is one immutable canonical event. Seq is its index in the
// owning match timeline and is what finding evidence points at.
type TimelineEvent struct {
	Seq         int           `json:"seq"`
	At          time.Duration `json:"at"`
	Kind        EventKind     `json:"kind"`
	Actor       string        `json:"actor,omitempty"`
	Counterpart string        `json:"counterpart,omitempty"`
	Assists     []string      `json:"assists,omitempty"`
	Team        int           `json:"team,omitempty"`
	Position    Position      `json:"position"`
	HasPosition bool          `json:"has_position"`
	Value       float64       `json:"value,omitempty"`
	Label       string        `json:"label,omitempty"`
}

// Participant is one player in a match.
type Participant struct {
	PlayerID       string     `json:"player_id"`
	Name           string     `json:"name,omitempty"`
	Champion       string     `json:"champion,omitempty"`
	TeamID         int        `json:"team_id"`
	ParticipantID  int        `json:"participant_id"`
	Role           types.Role `json:"role"`
	VisionScore    float64    `json:"vision_score,omitempty"`
	HasVisionScore bool       `json:"has_vision_score"`
}

// CanonicalMatch is a normalized match: participants plus a time-sorted
// timeline where Events[i].Seq == i.
type CanonicalMatch struct {
	ID            string          `json:"id"`
	SchemaVersion string          `json:"schema_version"`
	StartedAt     time.Time       `json:"started_at"`
	Duration      time.Duration   `json:"duration"`
	EndReason     EndReason       `json:"end_reason"`
	WinningTeam   int             `json:"winning_team,omitempty"`
	Participants  []Participant   `json:"participants"`
	Events        []TimelineEvent `json:"events"`
}

// Participant returns the participant with the given player id.
func (m *CanonicalMatch) Participant(playerID string) (Participant, bool) {
	for _, p := range m.Participants {
		if p.PlayerID == playerID {
			return p, true
		}
	}
	return Participant{}, false
}

// Timeline returns a read-only view over the match events.
func (m *CanonicalMatch) Timeline() TimelineView {
	return TimelineView{events: m.Events}
}

// TimelineView gives read access to a timeline without exposing the slice.
type TimelineView struct {
	events []TimelineEvent
}

// Len returns the number of events.
func (v TimelineView) Len() int { return len(v.events) }

// At returns the event at seq. Assists are copied.
func (v TimelineView) At(seq int) (TimelineEvent, bool) {
	if seq < 0 || seq >= len(v.events) {
		return TimelineEvent{}, false
	}
	e := v.events[seq]
	if e.Assists != nil {
		e.Assists = append([]string(nil), e.Assists...)
	}
	return e, true
}

// Filter returns copies of the events accepted by keep, in timeline order.
func (v TimelineView) Filter(keep func(TimelineEvent) bool) []TimelineEvent {
	var out []TimelineEvent
	for i := range v.events {
		if keep(v.events[i]) {
			e, _ := v.At(i)
			out = append(out, e)
		}
	}
	return out
}

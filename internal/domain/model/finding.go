package model

import (
	"fmt"
	"math"
	"time"

	"github.com/riftcoach/insight/internal/domain/types"
)

// Evidence points at the timeline events and the time span a finding is based on.
type Evidence struct {
	Events []int         `json:"events,omitempty"`
	From   time.Duration `json:"from"`
	To     time.Duration `json:"to"`
}

// Finding is a detected mistake or strength. It is never modified after
// a detector emits it.
type Finding struct {
	ID         string             `json:"id"`
	MatchID    string             `json:"match_id"`
	PlayerID   string             `json:"player_id"`
	Detector   string             `json:"detector"`
	Code       string             `json:"code"`
	Category   types.Category     `json:"category"`
	Polarity   types.Polarity     `json:"polarity"`
	Severity   types.Severity     `json:"severity"`
	Confidence float64            `json:"confidence"`
	Evidence   Evidence           `json:"evidence"`
	Detail     string             `json:"detail,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// FindingID builds the deterministic id of the n-th finding a detector
// emitted for a player in a match.
func FindingID(matchID, playerID, detector string, n int) string {
	return fmt.Sprintf("%s:%s:%s:%d", matchID, playerID, detector, n)
}

// ClampConfidence bounds c to [0,1].
func ClampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

// Scope is the role and elo band a recommendation was tailored for.
type Scope struct {
	Role types.Role    `json:"role"`
	Band types.EloBand `json:"band,omitempty"`
}

// Recommendation is a ranked suggestion derived from one or more findings.
type Recommendation struct {
	ID         string            `json:"id"`
	TemplateID string            `json:"template_id"`
	Rank       int               `json:"rank"`
	Category   types.Category    `json:"category"`
	Code       string            `json:"code"`
	Priority   float64           `json:"priority"`
	Text       string            `json:"text"`
	Params     map[string]string `json:"params,omitempty"`
	Scope      Scope             `json:"scope"`
	FindingIDs []string          `json:"finding_ids"`
	MatchCount int               `json:"match_count"`
	Earliest   time.Duration     `json:"earliest"`
}

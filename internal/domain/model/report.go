package model

import (
	"time"

	"github.com/riftcoach/insight/internal/domain/types"
)

// DetectorRunStatus is the outcome of one detector for one player.
type DetectorRunStatus string

// Detector outcomes. Skipped means the detector chose not to run; Ran with
// zero findings means it ran and found nothing.
const (
	DetectorRan     DetectorRunStatus = "ran"
	DetectorSkipped DetectorRunStatus = "skipped"
	DetectorFailed  DetectorRunStatus = "failed"
)

// DetectorStatus reports how a detector fared for a player.
type DetectorStatus struct {
	Name     string            `json:"name"`
	Category types.Category    `json:"category"`
	Status   DetectorRunStatus `json:"status"`
	Reason   string            `json:"reason,omitempty"`
	Findings int               `json:"findings"`
	Duration time.Duration     `json:"duration"`
}

// PlayerInsight is the per-player section of a report.
type PlayerInsight struct {
	PlayerID        string           `json:"player_id"`
	Role            types.Role       `json:"role"`
	Findings        []Finding        `json:"findings"`
	Strengths       []Finding        `json:"strengths,omitempty"`
	Recommendations []Recommendation `json:"recommendations"`
	Unsurfaced      []types.Category `json:"unsurfaced,omitempty"`
	Detectors       []DetectorStatus `json:"detectors"`
}

// InsightReport is the result of analysing one match.
type InsightReport struct {
	ID             string          `json:"id"`
	MatchID        string          `json:"match_id"`
	SchemaVersion  string          `json:"schema_version"`
	GeneratedAt    time.Time       `json:"generated_at"`
	Duration       time.Duration   `json:"duration"`
	EloBand        types.EloBand   `json:"elo_band,omitempty"`
	Players        []PlayerInsight `json:"players"`
	ProgressQueued bool            `json:"progress_queued"`
}

// Player returns the insight for playerID.
func (r *InsightReport) Player(playerID string) (PlayerInsight, bool) {
	for _, p := range r.Players {
		if p.PlayerID == playerID {
			return p, true
		}
	}
	return PlayerInsight{}, false
}

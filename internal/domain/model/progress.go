package model

import (
	"time"

	"github.com/riftcoach/insight/internal/domain/types"
)

// ProgressEntry summarizes the findings of one match for one player.
// Revision 0 is the original record; corrections use higher revisions.
type ProgressEntry struct {
	PlayerID       string                     `json:"player_id"`
	MatchID        string                     `json:"match_id"`
	Revision       int                        `json:"revision"`
	PlayedAt       time.Time                  `json:"played_at"`
	RecordedAt     time.Time                  `json:"recorded_at"`
	CategoryCounts map[types.Category]int     `json:"category_counts"`
	CategoryScores map[types.Category]float64 `json:"category_scores"`
	Score          float64                    `json:"score"`
}

// PlayerProgressRecord is the append-ordered history of a player.
type PlayerProgressRecord struct {
	PlayerID string          `json:"player_id"`
	Entries  []ProgressEntry `json:"entries"`
}

// Latest returns one entry per match, keeping the highest revision, in the
// order each match was first recorded.
func (r PlayerProgressRecord) Latest() []ProgressEntry {
	idx := make(map[string]int, len(r.Entries))
	out := make([]ProgressEntry, 0, len(r.Entries))
	for _, e := range r.Entries {
		if i, ok := idx[e.MatchID]; ok {
			if e.Revision >= out[i].Revision {
				out[i] = e
			}
			continue
		}
		idx[e.MatchID] = len(out)
		out = append(out, e)
	}
	return out
}

// Matches counts distinct matches in the record.
func (r PlayerProgressRecord) Matches() int {
	return len(r.Latest())
}

// ProgressJob asks the progress pipeline to record one player's findings
// for one match.
type ProgressJob struct {
	PlayerID string    `json:"player_id"`
	MatchID  string    `json:"match_id"`
	PlayedAt time.Time `json:"played_at"`
	Findings []Finding `json:"findings"`
}

// Key identifies the delivery for deduplication.
func (j ProgressJob) Key() string {
	return j.PlayerID + "|" + j.MatchID
}

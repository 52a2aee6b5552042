// Package detect runs mistake detectors over per-player feature sets.
//
// A detector is a pure function of an immutable feature view and the match
// context. Detectors never see each other's output, so the registry may run
// them concurrently and in any order.
package detect

import (
	"context"
	"time"

	"github.com/riftcoach/insight/internal/domain/features"
	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/types"
)

// Detector inspects one player's features and reports findings.
type Detector interface {
	Name() string
	Category() types.Category
	Evaluate(ctx context.Context, fv features.View, mc MatchContext) ([]model.Finding, error)
}

// MatchContext is match-wide, read-only information shared by detectors.
type MatchContext struct {
	MatchID      string
	Duration     time.Duration
	Window       time.Duration
	LaningEnd    time.Duration
	EloBand      types.EloBand
	Timeline     model.TimelineView
	Participants []model.Participant
}

// NewMatchContext builds a context for m.
func NewMatchContext(m *model.CanonicalMatch, window, laningEnd time.Duration, band types.EloBand) MatchContext {
	return MatchContext{
		MatchID:      m.ID,
		Duration:     m.Duration,
		Window:       window,
		LaningEnd:    laningEnd,
		EloBand:      band,
		Timeline:     m.Timeline(),
		Participants: append([]model.Participant(nil), m.Participants...),
	}
}

// Team returns the team of playerID, or 0.
func (mc MatchContext) Team(playerID string) int {
	for _, p := range mc.Participants {
		if p.PlayerID == playerID {
			return p.TeamID
		}
	}
	return 0
}

// LaningWindows is the number of windows that lie inside the laning phase.
func (mc MatchContext) LaningWindows(fv features.View) int {
	n := 0
	for _, w := range fv.Windows() {
		if w.From < mc.LaningEnd {
			n++
		}
	}
	return n
}

package detect

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/riftcoach/insight/internal/domain/features"
	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/types"
)

// DeathPattern looks at when and how often a player dies.
type DeathPattern struct {
	// ClusterMin deaths in one window form a cluster.
	ClusterMin int
	// HighTotal deaths in a match is flagged on its own.
	HighTotal int
	// DeathlessAfter is the game length from which zero deaths is a strength.
	DeathlessAfter time.Duration
}

// NewDeathPattern returns the detector with default thresholds.
func NewDeathPattern() *DeathPattern {
	return &DeathPattern{ClusterMin: 2, HighTotal: 8, DeathlessAfter: 20 * time.Minute}
}

func (d *DeathPattern) Name() string             { return "death-pattern" }
func (d *DeathPattern) Category() types.Category { return types.CategoryDeath }

func (d *DeathPattern) Evaluate(_ context.Context, fv features.View, mc MatchContext) ([]model.Finding, error) {
	deaths := fv.Series(features.Deaths)
	all := actorEvents(mc, model.EventDeath, fv.PlayerID(), 0, 0)

	var out []model.Finding
	for i, v := range deaths {
		n := int(v.Num)
		if n < d.ClusterMin {
			continue
		}
		w, _ := fv.Window(i)
		inWindow := eventsIn(all, w.From, w.To, i == len(deaths)-1)
		sev := types.SeverityMedium
		if n > d.ClusterMin {
			sev = types.SeverityHigh
		}
		out = append(out, model.Finding{
			Code:       "death-cluster",
			Polarity:   types.Mistake,
			Severity:   sev,
			Confidence: math.Min(0.9, 0.6+0.1*float64(n-d.ClusterMin)),
			Evidence:   model.Evidence{Events: seqs(inWindow), From: w.From, To: w.To},
			Detail:     fmt.Sprintf("died %d times between %s and %s", n, clock(w.From), clock(w.To)),
			Metrics:    map[string]float64{"deaths": float64(n)},
		})
	}

	total := fv.Count(features.Deaths)
	switch {
	case total >= d.HighTotal && len(all) > 0:
		out = append(out, model.Finding{
			Code:       "high-deaths",
			Polarity:   types.Mistake,
			Severity:   types.SeverityHigh,
			Confidence: 0.7,
			Evidence:   model.Evidence{Events: seqs(all), From: all[0].At, To: all[len(all)-1].At},
			Detail:     fmt.Sprintf("%d deaths in %s", total, clock(mc.Duration)),
			Metrics:    map[string]float64{"deaths": float64(total)},
		})
	case total == 0 && mc.Duration >= d.DeathlessAfter:
		out = append(out, model.Finding{
			Code:       "deathless",
			Polarity:   types.Strength,
			Severity:   types.SeverityLow,
			Confidence: 0.9,
			Evidence:   model.Evidence{From: 0, To: mc.Duration},
			Detail:     "no deaths all game",
		})
	}
	return out, nil
}

// eventsIn filters events to [from, to), or [from, to] for the last window.
func eventsIn(events []model.TimelineEvent, from, to time.Duration, closed bool) []model.TimelineEvent {
	var out []model.TimelineEvent
	for _, e := range events {
		if e.At >= from && (e.At < to || (closed && e.At == to)) {
			out = append(out, e)
		}
	}
	return out
}

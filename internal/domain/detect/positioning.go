package detect

import (
	"context"
	"fmt"
	"math"

	"github.com/riftcoach/insight/internal/domain/features"
	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/types"
)

// Overextension flags deaths in windows where the player strayed far from
// their lane.
type Overextension struct {
	// Threshold is the lane deviation, in map units, that counts as overextended.
	Threshold float64
}

// NewOverextension returns the detector with default thresholds.
func NewOverextension() *Overextension {
	return &Overextension{Threshold: 4000}
}

func (d *Overextension) Name() string             { return "overextension" }
func (d *Overextension) Category() types.Category { return types.CategoryPositioning }

func (d *Overextension) Evaluate(_ context.Context, fv features.View, mc MatchContext) ([]model.Finding, error) {
	if fv.Count(features.PositionSamples) == 0 {
		return nil, Skip("no position samples")
	}
	if _, ok := features.LaneDeviation(fv.Role(), model.Position{}); !ok {
		return nil, Skip("role has no lane")
	}

	deviation := fv.Series(features.PositionDeviation)
	deaths := fv.Series(features.Deaths)
	all := actorEvents(mc, model.EventDeath, fv.PlayerID(), 0, 0)

	var out []model.Finding
	for i, dev := range deviation {
		if dev.IsMissing() || dev.Num <= d.Threshold || deaths[i].Num == 0 {
			continue
		}
		w, _ := fv.Window(i)
		sev := types.SeverityMedium
		if dev.Num > 2*d.Threshold {
			sev = types.SeverityHigh
		}
		out = append(out, model.Finding{
			Code:       "overextended-death",
			Polarity:   types.Mistake,
			Severity:   sev,
			Confidence: math.Min(0.9, 0.5+0.4*(dev.Num-d.Threshold)/d.Threshold),
			Evidence:   model.Evidence{Events: seqs(eventsIn(all, w.From, w.To, i == len(deviation)-1)), From: w.From, To: w.To},
			Detail:     fmt.Sprintf("died %.0f units away from lane around %s", dev.Num, clock(w.From)),
			Metrics:    map[string]float64{"deviation": dev.Num},
		})
	}
	return out, nil
}

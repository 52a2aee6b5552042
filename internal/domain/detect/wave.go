package detect

import (
	"context"
	"fmt"

	"github.com/riftcoach/insight/internal/domain/features"
	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/types"
)

// WaveControl flags runs of laning windows where a laner barely farmed.
type WaveControl struct {
	// LowCS is the per-window farm below which a window counts as missed.
	LowCS float64
	// MinRun is the shortest reported run of missed windows.
	MinRun int
	// SkipFirst windows are ignored while the first waves arrive.
	SkipFirst int
}

// NewWaveControl returns the detector with default thresholds.
func NewWaveControl() *WaveControl {
	return &WaveControl{LowCS: 4, MinRun: 2, SkipFirst: 2}
}

func (d *WaveControl) Name() string             { return "wave-control" }
func (d *WaveControl) Category() types.Category { return types.CategoryWave }

func (d *WaveControl) Evaluate(_ context.Context, fv features.View, mc MatchContext) ([]model.Finding, error) {
	if !fv.Role().Laner() {
		return nil, Skip("role does not farm a lane")
	}
	if fv.Count(features.CSSamples) == 0 {
		return nil, Skip("no cs samples")
	}

	cs := fv.Series(features.CS)
	var out []model.Finding
	low := func(v features.Value) bool { return v.Num < d.LowCS }
	for _, s := range runs(cs, d.SkipFirst, mc.LaningWindows(fv), d.MinRun, low) {
		from, to := windowRange(fv, s)
		missed := 0.0
		for i := s.first; i <= s.last; i++ {
			missed += d.LowCS - cs[i].Num
		}
		sev := types.SeverityLow
		if s.len() >= 2*d.MinRun {
			sev = types.SeverityMedium
		}
		out = append(out, model.Finding{
			Code:       "missed-waves",
			Polarity:   types.Mistake,
			Severity:   sev,
			Confidence: 0.6,
			Evidence:   model.Evidence{From: from, To: to},
			Detail:     fmt.Sprintf("farmed under %.0f cs per minute from %s to %s", d.LowCS, clock(from), clock(to)),
			Metrics:    map[string]float64{"windows": float64(s.len()), "cs_below": missed},
		})
	}
	return out, nil
}

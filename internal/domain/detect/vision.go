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

// VisionGap flags long stretches without a ward placed, and rewards a high
// vision score.
type VisionGap struct {
	// MinWindows is the shortest wardless run reported.
	MinWindows int
	// Grace is the opening period that never counts as a gap.
	Grace time.Duration
	// StrengthPerMinute is the vision score per minute reported as a strength.
	StrengthPerMinute float64
}

// NewVisionGap returns the detector with default thresholds.
func NewVisionGap() *VisionGap {
	return &VisionGap{MinWindows: 5, Grace: 2 * time.Minute, StrengthPerMinute: 2}
}

func (d *VisionGap) Name() string             { return "vision-gap" }
func (d *VisionGap) Category() types.Category { return types.CategoryVision }

func (d *VisionGap) Evaluate(_ context.Context, fv features.View, mc MatchContext) ([]model.Finding, error) {
	wards := fv.Series(features.WardsPlaced)
	if len(wards) == 0 {
		return nil, Skip("no windows")
	}

	first := 0
	for first < len(wards) {
		if w, _ := fv.Window(first); w.From >= d.Grace {
			break
		}
		first++
	}

	var out []model.Finding
	placed := actorEvents(mc, model.EventWardPlace, fv.PlayerID(), 0, 0)
	for _, s := range runs(wards, first, len(wards), d.MinWindows, func(v features.Value) bool { return v.Num == 0 }) {
		from, to := windowRange(fv, s)
		n := s.len()
		sev := types.SeverityLow
		switch {
		case n >= 2*d.MinWindows:
			sev = types.SeverityHigh
		case n >= d.MinWindows+2:
			sev = types.SeverityMedium
		}
		out = append(out, model.Finding{
			Code:       "no-wards",
			Polarity:   types.Mistake,
			Severity:   sev,
			Confidence: math.Min(0.95, 0.5+0.05*float64(n)),
			Evidence:   model.Evidence{Events: boundingWards(placed, from, to), From: from, To: to},
			Detail:     fmt.Sprintf("no wards placed from %s to %s", clock(from), clock(to)),
			Metrics:    map[string]float64{"windows": float64(n)},
		})
	}

	vs := fv.Scalar(features.VisionScore)
	if minutes := mc.Duration.Minutes(); vs.Present && minutes > 0 && vs.Num/minutes >= d.StrengthPerMinute {
		out = append(out, model.Finding{
			Code:       "vision-control",
			Polarity:   types.Strength,
			Severity:   types.SeverityLow,
			Confidence: 0.8,
			Evidence:   model.Evidence{From: 0, To: mc.Duration},
			Detail:     fmt.Sprintf("vision score %.0f (%.1f per minute)", vs.Num, vs.Num/minutes),
			Metrics:    map[string]float64{"vision_score": vs.Num},
		})
	}
	return out, nil
}

// boundingWards returns the last ward placed before a gap and the first one
// after it.
func boundingWards(placed []model.TimelineEvent, from, to time.Duration) []int {
	var out []int
	before, after := -1, -1
	for _, e := range placed {
		if e.At < from {
			before = e.Seq
		}
		if e.At >= to && after < 0 {
			after = e.Seq
		}
	}
	if before >= 0 {
		out = append(out, before)
	}
	if after >= 0 {
		out = append(out, after)
	}
	return out
}

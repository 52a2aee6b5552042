package detect

import (
	"context"
	"fmt"
	"math"

	"github.com/riftcoach/insight/internal/domain/features"
	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/types"
)

// LostTrades flags laning-phase gold swings against the lane opponent.
type LostTrades struct {
	// Drop is the minimum gold lost relative to the opponent between two
	// consecutive windows.
	Drop float64
}

// NewLostTrades returns the detector with default thresholds.
func NewLostTrades() *LostTrades {
	return &LostTrades{Drop: 300}
}

func (d *LostTrades) Name() string             { return "lost-trades" }
func (d *LostTrades) Category() types.Category { return types.CategoryTrading }

func (d *LostTrades) Evaluate(_ context.Context, fv features.View, mc MatchContext) ([]model.Finding, error) {
	diff := fv.Series(features.GoldDiff)
	laning := mc.LaningWindows(fv)
	if laning > len(diff) {
		laning = len(diff)
	}
	present := 0
	for _, v := range diff[:laning] {
		if v.Present {
			present++
		}
	}
	if present < 2 {
		return nil, Skip("no lane opponent gold samples")
	}

	deaths := actorEvents(mc, model.EventDeath, fv.PlayerID(), 0, 0)
	var out []model.Finding
	for i := 1; i < laning; i++ {
		prev, cur := diff[i-1], diff[i]
		if prev.IsMissing() || cur.IsMissing() {
			continue
		}
		drop := prev.Num - cur.Num
		if drop < d.Drop {
			continue
		}
		sev := types.SeverityLow
		switch {
		case drop >= 4*d.Drop:
			sev = types.SeverityHigh
		case drop >= 2*d.Drop:
			sev = types.SeverityMedium
		}
		from, _ := fv.Window(i - 1)
		to, _ := fv.Window(i)
		out = append(out, model.Finding{
			Code:       "gold-swing",
			Polarity:   types.Mistake,
			Severity:   sev,
			Confidence: 0.55 + math.Min(0.35, 0.1*drop/d.Drop),
			Evidence:   model.Evidence{Events: seqs(eventsIn(deaths, from.From, to.To, false)), From: from.From, To: to.To},
			Detail:     fmt.Sprintf("lost %.0f gold to lane opponent around %s", drop, clock(to.From)),
			Metrics:    map[string]float64{"drop": drop},
		})
	}
	return out, nil
}

package detect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riftcoach/insight/internal/domain/features"
	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/types"
)

var epicMonsters = []string{"DRAGON", "BARON_NASHOR", "RIFTHERALD", "HORDE", "ATAKHAN", "ELDER_DRAGON"} //nolint:gochecknoglobals // read-only lookup table

func isEpic(label string) bool {
	for _, m := range epicMonsters {
		if strings.HasPrefix(label, m) {
			return true
		}
	}
	return false
}

// ObjectiveSetup checks the player is alive and present for objectives.
type ObjectiveSetup struct {
	// Lead is how long before an enemy objective a death counts against setup.
	Lead time.Duration
	// LowParticipation is the participation ratio below which presence is flagged.
	LowParticipation float64
	// MinTeamObjectives is the team objective count needed to judge presence.
	MinTeamObjectives int
}

// NewObjectiveSetup returns the detector with default thresholds.
func NewObjectiveSetup() *ObjectiveSetup {
	return &ObjectiveSetup{Lead: 60 * time.Second, LowParticipation: 0.3, MinTeamObjectives: 3}
}

func (d *ObjectiveSetup) Name() string             { return "objective-setup" }
func (d *ObjectiveSetup) Category() types.Category { return types.CategoryObjective }

func (d *ObjectiveSetup) Evaluate(_ context.Context, fv features.View, mc MatchContext) ([]model.Finding, error) {
	team := fv.Team()
	enemy := mc.Timeline.Filter(func(e model.TimelineEvent) bool {
		return e.Kind == model.EventObjectiveTake && e.Team != team && isEpic(e.Label)
	})
	deaths := actorEvents(mc, model.EventDeath, fv.PlayerID(), 0, 0)

	var out []model.Finding
	for _, o := range enemy {
		for _, death := range deaths {
			if death.At > o.At || o.At-death.At > d.Lead {
				continue
			}
			sev := types.SeverityMedium
			if strings.HasPrefix(o.Label, "BARON") || strings.HasPrefix(o.Label, "ELDER") {
				sev = types.SeverityHigh
			}
			monster := strings.SplitN(o.Label, ":", 2)[0]
			out = append(out, model.Finding{
				Code:       "died-before-objective",
				Polarity:   types.Mistake,
				Severity:   sev,
				Confidence: 0.75,
				Evidence:   model.Evidence{Events: []int{death.Seq, o.Seq}, From: death.At, To: o.At},
				Detail:     fmt.Sprintf("died at %s, enemy took %s at %s", clock(death.At), strings.ToLower(monster), clock(o.At)),
				Metrics:    map[string]float64{"lead_seconds": (o.At - death.At).Seconds()},
			})
			break
		}
	}

	part := fv.Scalar(features.ObjectiveParticipation)
	teamObjectives := fv.Count(features.TeamObjectives)
	if part.Present && teamObjectives >= d.MinTeamObjectives && part.Num < d.LowParticipation {
		own := mc.Timeline.Filter(func(e model.TimelineEvent) bool {
			return e.Kind == model.EventObjectiveTake && e.Team == team
		})
		if len(own) == 0 {
			return out, nil
		}
		out = append(out, model.Finding{
			Code:       "low-objective-presence",
			Polarity:   types.Mistake,
			Severity:   types.SeverityLow,
			Confidence: 0.5,
			Evidence:   model.Evidence{Events: seqs(own), From: own[0].At, To: own[len(own)-1].At},
			Detail:     fmt.Sprintf("present for %.0f%% of %d team objectives", part.Num*100, teamObjectives),
			Metrics:    map[string]float64{"participation": part.Num},
		})
	}
	return out, nil
}

package ranking_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/ranking"
	"github.com/riftcoach/insight/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func mistake(id, match string, cat types.Category, code string, sev types.Severity, conf float64, from, to time.Duration, events ...int) model.Finding {
	return model.Finding{
		ID:         id,
		MatchID:    match,
		PlayerID:   "p1",
		Category:   cat,
		Code:       code,
		Polarity:   types.Mistake,
		Severity:   sev,
		Confidence: conf,
		Evidence:   model.Evidence{Events: events, From: from, To: to},
	}
}

func TestRankDeduplicates(t *testing.T) {
	Convey("Given overlapping vision findings", t, func() {
		r := ranking.New()
		fs := []model.Finding{
			mistake("a", "M1", types.CategoryVision, "no-wards", types.SeverityHigh, 0.8, 10*time.Minute, 20*time.Minute),
			mistake("b", "M1", types.CategoryVision, "no-wards", types.SeverityHigh, 0.8, 12*time.Minute, 19*time.Minute),
			mistake("c", "M2", types.CategoryVision, "no-wards", types.SeverityHigh, 0.8, 10*time.Minute, 20*time.Minute),
		}

		res := r.Rank(fs, types.RoleMiddle, types.BandMid)

		Convey("Then findings collapse within a match only", func() {
			So(len(res.Recommendations), ShouldEqual, 1)
			rec := res.Recommendations[0]
			So(rec.FindingIDs, ShouldResemble, []string{"a", "b", "c"})
			So(rec.MatchCount, ShouldEqual, 2)
			So(rec.Params["count"], ShouldEqual, "2")
			So(rec.Params["matches"], ShouldEqual, "2")
		})
	})

	Convey("Given findings sharing most of their events", t, func() {
		groups := ranking.New().Groups([]model.Finding{
			mistake("a", "M1", types.CategoryDeath, "death-cluster", types.SeverityMedium, 0.6, 5*time.Minute, 6*time.Minute, 10, 11),
			mistake("b", "M1", types.CategoryDeath, "death-cluster", types.SeverityMedium, 0.6, 5*time.Minute, 6*time.Minute, 10, 11, 12),
			mistake("c", "M1", types.CategoryDeath, "death-cluster", types.SeverityMedium, 0.6, 9*time.Minute, 10*time.Minute, 20, 21),
		})

		Convey("Then only disjoint evidence survives", func() {
			So(len(groups), ShouldEqual, 1)
			So(len(groups[0].Findings), ShouldEqual, 2)
			So(groups[0].Findings[0].ID, ShouldEqual, "a")
			So(groups[0].Findings[1].ID, ShouldEqual, "c")
		})
	})
}

func TestRankOrdering(t *testing.T) {
	Convey("Given findings across categories", t, func() {
		fs := []model.Finding{
			mistake("d1", "M1", types.CategoryDeath, "death-cluster", types.SeverityMedium, 0.6, 5*time.Minute, 6*time.Minute),
			mistake("v1", "M1", types.CategoryVision, "no-wards", types.SeverityHigh, 1.0, 10*time.Minute, 20*time.Minute),
			mistake("t1", "M1", types.CategoryTrading, "gold-swing", types.SeverityMedium, 0.6, 8*time.Minute, 9*time.Minute),
			mistake("o1", "M1", types.CategoryObjective, "low-objective-presence", types.SeverityLow, 0.5, 0, 20*time.Minute),
			{ID: "s1", MatchID: "M1", Category: types.CategoryDeath, Code: "deathless", Polarity: types.Strength, Severity: types.SeverityLow},
		}

		res := ranking.New().Rank(fs, types.RoleMiddle, types.BandMid)

		Convey("Then priority orders the list and ties break by category", func() {
			So(len(res.Recommendations), ShouldEqual, 3)
			So(res.Recommendations[0].Category, ShouldEqual, types.CategoryVision)
			So(res.Recommendations[0].Priority, ShouldAlmostEqual, 0.8, 1e-9)
			So(res.Recommendations[1].Category, ShouldEqual, types.CategoryDeath)
			So(res.Recommendations[1].Priority, ShouldAlmostEqual, 0.62, 1e-9)
			So(res.Recommendations[2].Category, ShouldEqual, types.CategoryTrading)
			So(res.Recommendations[2].Rank, ShouldEqual, 3)
		})

		Convey("Then groups without a template are reported as unsurfaced", func() {
			So(len(res.Unsurfaced), ShouldEqual, 1)
			So(res.Unsurfaced[0].Code, ShouldEqual, "low-objective-presence")
			So(res.UnsurfacedCategories(), ShouldResemble, []types.Category{types.CategoryObjective})
		})

		Convey("Then strengths never become recommendations", func() {
			for _, rec := range res.Recommendations {
				So(rec.Code, ShouldNotEqual, "deathless")
			}
		})

		Convey("Then the same input in another order ranks the same", func() {
			rev := make([]model.Finding, len(fs))
			for i := range fs {
				rev[len(fs)-1-i] = fs[i]
			}
			again := ranking.New().Rank(rev, types.RoleMiddle, types.BandMid)
			So(again.Recommendations, ShouldResemble, res.Recommendations)
		})
	})
}

func TestRankCap(t *testing.T) {
	Convey("Given more groups than the cap", t, func() {
		var fs []model.Finding
		codes := []string{"c1", "c2", "c3", "c4"}
		for i, code := range codes {
			fs = append(fs, mistake(code, "M1", types.CategoryPositioning, code, types.Severity(i+1), 0.5, 0, time.Minute))
		}

		res := ranking.New(ranking.WithMaxRecommendations(2)).Rank(fs, types.RoleTop, types.BandMid)

		Convey("Then the lowest priority groups are dropped whole", func() {
			So(len(res.Recommendations), ShouldEqual, 2)
			So(res.Recommendations[0].Code, ShouldEqual, "c4")
			So(res.Recommendations[1].Code, ShouldEqual, "c3")
			So(res.Dropped, ShouldEqual, 2)
			So(len(res.Unsurfaced), ShouldEqual, 0)
		})
	})
}

func TestRankTemplates(t *testing.T) {
	Convey("Given a vision gap from 10:00 to 20:00", t, func() {
		fs := []model.Finding{mistake("v", "M1", types.CategoryVision, "no-wards", types.SeverityHigh, 0.9, 10*time.Minute, 20*time.Minute)}
		r := ranking.New()

		Convey("When the player is a mid laner", func() {
			rec := r.Rank(fs, types.RoleMiddle, types.BandMid).Recommendations[0]

			Convey("Then the general template renders its placeholders", func() {
				So(rec.TemplateID, ShouldEqual, "vision-general")
				So(rec.Text, ShouldEqual, "Keep a ward down at all times: you had no vision out during 10:00-20:00 (1 gap(s) across 1 match(es)).")
				So(rec.Scope, ShouldResemble, model.Scope{Role: types.RoleMiddle, Band: types.BandMid})
			})
		})

		Convey("When the player is a support", func() {
			rec := r.Rank(fs, types.RoleUtility, types.BandHigh).Recommendations[0]

			Convey("Then the role template wins", func() {
				So(rec.TemplateID, ShouldEqual, "vision-support")
				So(rec.Text, ShouldStartWith, "As utility,")
			})
		})

		Convey("When the support is in the low band", func() {
			rec := r.Rank(fs, types.RoleUtility, types.BandLow).Recommendations[0]

			Convey("Then the code specific template wins", func() {
				So(rec.TemplateID, ShouldEqual, "vision-low-band")
			})
		})
	})
}

func TestLoadCatalog(t *testing.T) {
	Convey("Given a catalog file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "templates.yaml")

		Convey("When it is valid", func() {
			So(os.WriteFile(path, []byte(`
templates:
  - id: vision-any
    category: vision
    text: "Ward more, {role}."
  - id: vision-jungle
    category: Vision
    roles: [jungler]
    bands: [gold]
    text: "Ward your jungle."
`), 0o600), ShouldBeNil)

			c, err := ranking.LoadCatalog(path)
			So(err, ShouldBeNil)
			So(c.Len(), ShouldEqual, 2)

			tpl, ok := c.Match(types.CategoryVision, "no-wards", types.RoleJungle, types.BandMid)
			So(ok, ShouldBeTrue)
			So(tpl.ID, ShouldEqual, "vision-jungle")

			_, ok = c.Match(types.CategoryWave, "missed-waves", types.RoleTop, types.BandMid)
			So(ok, ShouldBeFalse)

			Convey("Then a ranker uses it", func() {
				res := ranking.New(ranking.WithCatalog(c)).Rank([]model.Finding{
					mistake("v", "M1", types.CategoryVision, "no-wards", types.SeverityLow, 0.5, 0, time.Minute),
				}, types.RoleTop, types.BandMid)
				So(res.Recommendations[0].Text, ShouldEqual, "Ward more, top.")
			})
		})

		Convey("When a category is unknown", func() {
			So(os.WriteFile(path, []byte("templates:\n  - id: x\n    category: macro\n    text: hi\n"), 0o600), ShouldBeNil)
			_, err := ranking.LoadCatalog(path)
			So(errors.Is(err, ranking.ErrInvalidTemplate), ShouldBeTrue)
		})

		Convey("When the file is missing", func() {
			_, err := ranking.LoadCatalog(filepath.Join(dir, "nope.yaml"))
			So(errors.Is(err, ranking.ErrLoadCatalog), ShouldBeTrue)
		})
	})

	Convey("Given duplicate template ids", t, func() {
		_, err := ranking.NewCatalog(
			ranking.Template{ID: "a", Category: types.CategoryVision, Text: "x"},
			ranking.Template{ID: "a", Category: types.CategoryWave, Text: "y"},
		)
		So(errors.Is(err, ranking.ErrInvalidTemplate), ShouldBeTrue)
	})
}

func TestOverlap(t *testing.T) {
	Convey("Given evidence pairs", t, func() {
		So(ranking.Overlap(
			model.Evidence{Events: []int{1, 2}},
			model.Evidence{Events: []int{2, 3, 4}},
		), ShouldEqual, 0.5)
		So(ranking.Overlap(
			model.Evidence{From: 0, To: 4 * time.Minute},
			model.Evidence{From: 3 * time.Minute, To: 5 * time.Minute},
		), ShouldEqual, 0.5)
		So(ranking.Overlap(
			model.Evidence{From: 0, To: time.Minute},
			model.Evidence{From: 2 * time.Minute, To: 3 * time.Minute},
		), ShouldEqual, 0.0)
		So(ranking.Overlap(
			model.Evidence{From: 30 * time.Second, To: 30 * time.Second},
			model.Evidence{From: 0, To: time.Minute},
		), ShouldEqual, 1.0)
	})
}

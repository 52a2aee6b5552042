package detect_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/riftcoach/insight/internal/domain/detect"
	"github.com/riftcoach/insight/internal/domain/features"
	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/normalize"
	"github.com/riftcoach/insight/internal/domain/types"
	"github.com/riftcoach/insight/internal/matchfixture"
	"github.com/riftcoach/insight/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

type stub struct {
	name     string
	category types.Category
	eval     func(ctx context.Context) ([]model.Finding, error)
}

func (s *stub) Name() string             { return s.name }
func (s *stub) Category() types.Category { return s.category }
func (s *stub) Evaluate(ctx context.Context, _ features.View, _ detect.MatchContext) ([]model.Finding, error) {
	return s.eval(ctx)
}

func finding(code string) func(context.Context) ([]model.Finding, error) {
	return func(context.Context) ([]model.Finding, error) {
		return []model.Finding{{Code: code, Severity: types.SeverityMedium, Confidence: 1.7}}, nil
	}
}

// analyze normalizes and extracts raw, returning the view and context for player.
func analyze(raw []byte, player string) (features.View, detect.MatchContext) {
	m, err := normalize.New().Normalize(raw, "")
	So(err, ShouldBeNil)
	ex := features.New()
	fs, err := ex.Extract(m)
	So(err, ShouldBeNil)
	So(fs, ShouldContainKey, player)
	return fs[player].View(), detect.NewMatchContext(m, ex.Window(), ex.LaningEnd(), types.BandMid)
}

func quietMatch() []byte {
	return matchfixture.New("2", "EUW1_1").Roster("p").Duration(20 * time.Minute).JSON()
}

func byCode(fs []model.Finding, code string) []model.Finding {
	var out []model.Finding
	for _, f := range fs {
		if f.Code == code {
			out = append(out, f)
		}
	}
	return out
}

func TestRegistryIsolation(t *testing.T) {
	Convey("Given a registry with a panicking, a failing and a healthy detector", t, func() {
		fv, mc := analyze(quietMatch(), "p1")
		r := detect.NewRegistry(detect.WithParallelism(2))
		So(r.Register(&stub{name: "boom", category: types.CategoryVision, eval: func(context.Context) ([]model.Finding, error) {
			panic("nil map")
		}}), ShouldBeNil)
		So(r.Register(&stub{name: "broken", category: types.CategoryTrading, eval: func(context.Context) ([]model.Finding, error) {
			return nil, errors.New("divide by zero")
		}}), ShouldBeNil)
		So(r.Register(&stub{name: "healthy", category: types.CategoryWave, eval: finding("ok")}), ShouldBeNil)

		res := r.Run(context.Background(), fv, mc)

		Convey("Then failures are reported and others still produce findings", func() {
			st := res.Statuses()
			So(len(st), ShouldEqual, 3)
			So(st[0].Status, ShouldEqual, model.DetectorFailed)
			So(st[1].Status, ShouldEqual, model.DetectorFailed)
			So(st[2].Status, ShouldEqual, model.DetectorRan)

			fails := res.Failures()
			So(len(fails), ShouldEqual, 2)
			So(errors.Is(fails[0], detect.ErrDetectorFailure), ShouldBeTrue)
			So(errors.Is(fails[0], detect.ErrDetectorPanic), ShouldBeTrue)
			So(fails[1].Detector, ShouldEqual, "broken")

			fs := res.Findings()
			So(len(fs), ShouldEqual, 1)

			sum := res.Outcomes[2].Summary()
			So(sum.Name, ShouldEqual, "healthy")
			So(sum.Category, ShouldEqual, types.CategoryWave)
			So(sum.Findings, ShouldEqual, 1)
			So(sum, ShouldResemble, st[2])
		})

		Convey("Then findings are stamped with identity and bounded confidence", func() {
			f := res.Findings()[0]
			So(f.ID, ShouldEqual, "EUW1_1:p1:healthy:0")
			So(f.Detector, ShouldEqual, "healthy")
			So(f.Category, ShouldEqual, types.CategoryWave)
			So(f.Polarity, ShouldEqual, types.Mistake)
			So(f.Confidence, ShouldEqual, 1.0)
		})
	})
}

func TestRegistryTimeout(t *testing.T) {
	Convey("Given a detector slower than the timeout", t, func() {
		fv, mc := analyze(quietMatch(), "p1")
		r := detect.NewRegistry(detect.WithTimeout(20 * time.Millisecond))
		So(r.Register(&stub{name: "slow", category: types.CategoryVision, eval: func(ctx context.Context) ([]model.Finding, error) {
			select {
			case <-time.After(time.Second):
				return []model.Finding{{Code: "late"}}, nil
			case <-ctx.Done():
				// ignore cancellation and keep running
				time.Sleep(50 * time.Millisecond)
				return []model.Finding{{Code: "late"}}, nil
			}
		}}), ShouldBeNil)
		So(r.Register(&stub{name: "fast", category: types.CategoryWave, eval: finding("ok")}), ShouldBeNil)

		res := r.Run(context.Background(), fv, mc)

		Convey("Then the slow detector fails with a timeout and the fast one runs", func() {
			So(res.Outcomes[0].Status, ShouldEqual, model.DetectorFailed)
			So(errors.Is(res.Outcomes[0].Failure, detect.ErrDetectorTimeout), ShouldBeTrue)
			So(len(res.Outcomes[0].Findings), ShouldEqual, 0)
			So(res.Outcomes[1].Status, ShouldEqual, model.DetectorRan)
		})
	})
}

func TestRegistrySkipAndDisable(t *testing.T) {
	Convey("Given a skipping detector and a disabled one", t, func() {
		fv, mc := analyze(quietMatch(), "p1")
		r := detect.NewRegistry(detect.WithDisabled("off"))
		So(r.Register(&stub{name: "skipper", category: types.CategoryVision, eval: func(context.Context) ([]model.Finding, error) {
			return nil, detect.Skip("no samples")
		}}), ShouldBeNil)
		So(r.Register(&stub{name: "off", category: types.CategoryWave, eval: finding("never")}), ShouldBeNil)

		res := r.Run(context.Background(), fv, mc)

		Convey("Then both are skipped with their reasons and nothing fails", func() {
			So(res.Outcomes[0].Status, ShouldEqual, model.DetectorSkipped)
			So(res.Outcomes[0].Reason, ShouldEqual, "no samples")
			So(res.Outcomes[1].Status, ShouldEqual, model.DetectorSkipped)
			So(res.Outcomes[1].Reason, ShouldEqual, "disabled")
			So(len(res.Failures()), ShouldEqual, 0)
			So(len(res.Findings()), ShouldEqual, 0)
		})
	})
}

func TestRegistryRegistration(t *testing.T) {
	Convey("Given the default registry", t, func() {
		r := detect.NewDefaultRegistry()

		Convey("Then the built-ins are listed in registration order", func() {
			So(r.Names(), ShouldResemble, []string{
				"vision-gap", "death-pattern", "objective-setup", "overextension", "lost-trades", "wave-control",
			})
		})

		Convey("Then a duplicate name is rejected", func() {
			err := r.Register(detect.NewVisionGap())
			So(errors.Is(err, detect.ErrDuplicateDetector), ShouldBeTrue)
		})

		Convey("Then a nameless detector is rejected", func() {
			err := r.Register(&stub{})
			So(errors.Is(err, detect.ErrInvalidDetector), ShouldBeTrue)
		})
	})
}

func TestRegistryDeterministic(t *testing.T) {
	Convey("Given the same match analyzed twice", t, func() {
		raw := matchfixture.New("2", "EUW1_2").Roster("p").Duration(25*time.Minute).
			Kill(5*time.Minute+10*time.Second, 8, 3).
			Kill(5*time.Minute+40*time.Second, 8, 3).
			Kill(12*time.Minute, 3, 8).
			JSON()
		fv, mc := analyze(raw, "p3")
		r := detect.NewDefaultRegistry(detect.WithParallelism(4))

		first := r.Run(context.Background(), fv, mc)
		second := r.Run(context.Background(), fv, mc)

		Convey("Then findings are identical and in the same order", func() {
			a, b := first.Findings(), second.Findings()
			So(len(a), ShouldEqual, len(b))
			So(len(a), ShouldBeGreaterThan, 0)
			for i := range a {
				So(a[i].ID, ShouldEqual, b[i].ID)
				So(a[i].Code, ShouldEqual, b[i].Code)
				So(a[i].Evidence, ShouldResemble, b[i].Evidence)
			}
		})
	})
}

func TestVisionGap(t *testing.T) {
	Convey("Given a 24:30 surrender with no wards from 10:00 to 20:00", t, func() {
		raw := matchfixture.New("2", "EUW1_3").Roster("p").
			Duration(24*time.Minute + 30*time.Second).
			Surrender().
			Winner(matchfixture.Red).
			Ward(2*time.Minute+30*time.Second, 5).
			Ward(5*time.Minute+30*time.Second, 5).
			Ward(8*time.Minute+30*time.Second, 5).
			Ward(9*time.Minute+30*time.Second, 5).
			Ward(20*time.Minute+30*time.Second, 5).
			Ward(22*time.Minute+30*time.Second, 5).
			JSON()
		fv, mc := analyze(raw, "p5")

		fs, err := detect.NewVisionGap().Evaluate(context.Background(), fv, mc)
		So(err, ShouldBeNil)

		Convey("Then exactly one gap is reported with its window bounds", func() {
			gaps := byCode(fs, "no-wards")
			So(len(gaps), ShouldEqual, 1)
			So(gaps[0].Evidence.From, ShouldEqual, 10*time.Minute)
			So(gaps[0].Evidence.To, ShouldEqual, 20*time.Minute)
			So(gaps[0].Severity, ShouldEqual, types.SeverityHigh)
			So(len(gaps[0].Evidence.Events), ShouldEqual, 2)
			So(gaps[0].Detail, ShouldEqual, "no wards placed from 10:00 to 20:00")
		})

		Convey("Then a modest vision score is not a strength", func() {
			So(len(byCode(fs, "vision-control")), ShouldEqual, 0)
		})
	})
}

func TestDeathPattern(t *testing.T) {
	Convey("Given a mid laner dying twice in one minute", t, func() {
		raw := matchfixture.New("2", "EUW1_4").Roster("p").Duration(25*time.Minute).
			Kill(5*time.Minute+10*time.Second, 8, 3).
			Kill(5*time.Minute+40*time.Second, 8, 3).
			JSON()
		d := detect.NewDeathPattern()

		Convey("Then a death cluster is reported with both deaths as evidence", func() {
			fv, mc := analyze(raw, "p3")
			fs, err := d.Evaluate(context.Background(), fv, mc)
			So(err, ShouldBeNil)
			cl := byCode(fs, "death-cluster")
			So(len(cl), ShouldEqual, 1)
			So(cl[0].Severity, ShouldEqual, types.SeverityMedium)
			So(len(cl[0].Evidence.Events), ShouldEqual, 2)
			So(cl[0].Evidence.From, ShouldEqual, 5*time.Minute)
		})

		Convey("Then a deathless teammate earns a strength", func() {
			fv, mc := analyze(raw, "p1")
			fs, err := d.Evaluate(context.Background(), fv, mc)
			So(err, ShouldBeNil)
			So(len(fs), ShouldEqual, 1)
			So(fs[0].Code, ShouldEqual, "deathless")
			So(fs[0].Polarity, ShouldEqual, types.Strength)
		})
	})
}

func TestObjectiveSetup(t *testing.T) {
	Convey("Given a death shortly before the enemy takes baron", t, func() {
		raw := matchfixture.New("2", "EUW1_5").Roster("p").Duration(28*time.Minute).
			Kill(19*time.Minute+20*time.Second, 7, 3).
			Monster(20*time.Minute, 7, matchfixture.Red, "BARON_NASHOR").
			JSON()
		fv, mc := analyze(raw, "p3")

		fs, err := detect.NewObjectiveSetup().Evaluate(context.Background(), fv, mc)
		So(err, ShouldBeNil)

		Convey("Then the death is linked to the objective", func() {
			So(len(fs), ShouldEqual, 1)
			So(fs[0].Code, ShouldEqual, "died-before-objective")
			So(fs[0].Severity, ShouldEqual, types.SeverityHigh)
			So(len(fs[0].Evidence.Events), ShouldEqual, 2)
			So(fs[0].Metrics["lead_seconds"], ShouldEqual, 40.0)
		})
	})
}

func TestLaneDetectorsSkip(t *testing.T) {
	Convey("Given a jungler", t, func() {
		fv, mc := analyze(quietMatch(), "p2")

		Convey("Then positioning and wave control skip", func() {
			_, err := detect.NewOverextension().Evaluate(context.Background(), fv, mc)
			var skip *detect.SkipError
			So(errors.As(err, &skip), ShouldBeTrue)
			So(skip.Reason, ShouldEqual, "role has no lane")

			_, err = detect.NewWaveControl().Evaluate(context.Background(), fv, mc)
			So(errors.As(err, &skip), ShouldBeTrue)
		})
	})

	Convey("Given a version 1 match without positions", t, func() {
		raw := matchfixture.New("1", "EUW1_6").Roster("p").Duration(20 * time.Minute).JSON()
		fv, mc := analyze(raw, "p1")

		Convey("Then overextension skips for missing samples", func() {
			_, err := detect.NewOverextension().Evaluate(context.Background(), fv, mc)
			var skip *detect.SkipError
			So(errors.As(err, &skip), ShouldBeTrue)
			So(skip.Reason, ShouldEqual, "no position samples")
		})
	})
}

func TestLaneDetectors(t *testing.T) {
	Convey("Given a top laner who stops farming and falls behind", t, func() {
		raw := matchfixture.New("2", "EUW1_8").Roster("p").Duration(25*time.Minute).
			Frames(func(at time.Duration, p matchfixture.Player) matchfixture.Stats {
				s := matchfixture.DefaultFrames(at, p)
				if p.ID == 1 && at > 6*time.Minute {
					// no farm between 6:00 and 9:00, then a 700 gold deficit
					extra := at - 6*time.Minute
					if extra > 3*time.Minute {
						extra = 3 * time.Minute
					}
					s.CS -= 7 * extra.Minutes()
				}
				if p.ID == 1 && at >= 9*time.Minute {
					s.Gold -= 700
				}
				return s
			}).
			Kill(11*time.Minute+15*time.Second, 6, 1).
			JSON()
		fv, mc := analyze(raw, "p1")

		Convey("Then missed waves cover the farmless windows", func() {
			fs, err := detect.NewWaveControl().Evaluate(context.Background(), fv, mc)
			So(err, ShouldBeNil)
			So(len(fs), ShouldEqual, 1)
			So(fs[0].Code, ShouldEqual, "missed-waves")
			So(fs[0].Evidence.From, ShouldEqual, 6*time.Minute)
			So(fs[0].Evidence.To, ShouldEqual, 9*time.Minute)
		})

		Convey("Then the gold swing is reported", func() {
			fs, err := detect.NewLostTrades().Evaluate(context.Background(), fv, mc)
			So(err, ShouldBeNil)
			So(len(fs), ShouldEqual, 1)
			So(fs[0].Code, ShouldEqual, "gold-swing")
			So(fs[0].Severity, ShouldEqual, types.SeverityMedium)
		})

		Convey("Then a death in lane is not overextended", func() {
			fs, err := detect.NewOverextension().Evaluate(context.Background(), fv, mc)
			So(err, ShouldBeNil)
			So(len(fs), ShouldEqual, 0)
		})
	})
}

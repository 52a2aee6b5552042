package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/riftcoach/insight/internal/app"
	"github.com/riftcoach/insight/internal/domain/features"
	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/normalize"
	"github.com/riftcoach/insight/internal/domain/types"
	"github.com/riftcoach/insight/internal/matchfixture"
	"github.com/riftcoach/insight/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// quietMatch is a 20 minute match where nobody wards.
func quietMatch(id string) []byte {
	return matchfixture.New("2", id).Roster("p").Duration(20 * time.Minute).JSON()
}

func startEngine(opts ...service.Option) *service.Engine {
	e := service.New(append([]service.Option{service.WithWorkerCount(2), service.WithQueueSize(100)}, opts...)...)
	So(e.Start(context.Background()), ShouldBeNil)
	return e
}

func recIDs(p model.PlayerInsight) []string {
	out := make([]string, len(p.Recommendations))
	for i, r := range p.Recommendations {
		out[i] = r.ID
	}
	return out
}

func TestEngine_New(t *testing.T) {
	Convey("Given a new engine with custom options", t, func() {
		e := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(500),
			service.WithDedupeSize(250),
		)

		Convey("Then it reports its configuration before starting", func() {
			stats := e.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["workerCount"], ShouldEqual, 8)
			So(stats["queueSize"], ShouldEqual, 500)
		})

		Convey("Then calls fail until it is started", func() {
			_, err := e.Analyze(context.Background(), service.AnalyzeRequest{Payload: quietMatch("EUW1_1")})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = e.GetProgress(context.Background(), "p1")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(errors.Is(e.Flush(context.Background()), service.ErrNotStarted), ShouldBeTrue)
		})
	})
}

func TestEngine_Analyze(t *testing.T) {
	Convey("Given a started engine", t, func() {
		e := startEngine()
		defer e.Stop()
		ctx := context.Background()

		Convey("When a whole match is analysed", func() {
			report, err := e.Analyze(ctx, service.AnalyzeRequest{Payload: quietMatch("EUW1_1"), EloBand: types.BandMid})
			So(err, ShouldBeNil)

			Convey("Then every participant gets an insight", func() {
				So(report.ID, ShouldNotBeEmpty)
				So(report.MatchID, ShouldEqual, "EUW1_1")
				So(report.SchemaVersion, ShouldEqual, "2")
				So(len(report.Players), ShouldEqual, 10)
				So(report.ProgressQueued, ShouldBeTrue)

				p1, ok := report.Player("p1")
				So(ok, ShouldBeTrue)
				So(p1.Role, ShouldEqual, types.RoleTop)
				So(len(p1.Detectors), ShouldEqual, 6)
				So(recIDs(p1), ShouldContain, "vision:no-wards")
				So(len(p1.Recommendations), ShouldBeLessThanOrEqualTo, 5)
			})

			Convey("Then progress is recorded in the background", func() {
				fctx, cancel := context.WithTimeout(ctx, 2*time.Second)
				defer cancel()
				So(e.Flush(fctx), ShouldBeNil)

				rec, err := e.GetProgress(ctx, "p1")
				So(err, ShouldBeNil)
				So(len(rec.Entries), ShouldEqual, 1)
				So(rec.Entries[0].CategoryCounts[types.CategoryVision], ShouldEqual, 1)
				So(e.GetStats()["progressEntries"], ShouldEqual, 10)
			})
		})

		Convey("When one player is analysed with a role override", func() {
			report, err := e.Analyze(ctx, service.AnalyzeRequest{
				Payload:  quietMatch("EUW1_2"),
				PlayerID: "p1",
				Role:     types.RoleJungle,
			})
			So(err, ShouldBeNil)

			Convey("Then only that player is analysed in the requested role", func() {
				So(len(report.Players), ShouldEqual, 1)
				So(report.Players[0].Role, ShouldEqual, types.RoleJungle)
				for _, d := range report.Players[0].Detectors {
					if d.Name == "wave-control" {
						So(d.Status, ShouldEqual, model.DetectorSkipped)
					}
				}
			})
		})

		Convey("When a normalized match is supplied", func() {
			m, err := normalize.New().Normalize(quietMatch("EUW1_3"), "")
			So(err, ShouldBeNil)
			report, err := e.Analyze(ctx, service.AnalyzeRequest{Match: m, PlayerID: "p5"})
			So(err, ShouldBeNil)
			So(len(report.Players), ShouldEqual, 1)
			So(report.Players[0].Role, ShouldEqual, types.RoleUtility)
		})
	})
}

func TestEngine_AnalyzeErrors(t *testing.T) {
	Convey("Given a started engine", t, func() {
		e := startEngine()
		defer e.Stop()
		ctx := context.Background()

		Convey("Then an empty request is invalid", func() {
			_, err := e.Analyze(ctx, service.AnalyzeRequest{})
			So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
		})

		Convey("Then malformed payloads surface the schema error", func() {
			_, err := e.Analyze(ctx, service.AnalyzeRequest{Payload: []byte(`{"metadata":`)})
			So(errors.Is(err, normalize.ErrSchema), ShouldBeTrue)
		})

		Convey("Then unknown schema versions are rejected", func() {
			_, err := e.Analyze(ctx, service.AnalyzeRequest{Payload: quietMatch("EUW1_1"), SchemaVersion: "9"})
			So(errors.Is(err, normalize.ErrUnsupportedSchema), ShouldBeTrue)
		})

		Convey("Then a player outside the match is invalid", func() {
			_, err := e.Analyze(ctx, service.AnalyzeRequest{Payload: quietMatch("EUW1_1"), PlayerID: "nobody"})
			So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
		})

		Convey("Then a structured match without participants is rejected", func() {
			_, err := e.Analyze(ctx, service.AnalyzeRequest{Match: &model.CanonicalMatch{ID: "X", Duration: time.Minute}})
			So(errors.Is(err, features.ErrInvalidMatch), ShouldBeTrue)
		})

		Convey("Then a cancelled context times out", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := e.Analyze(cctx, service.AnalyzeRequest{Payload: quietMatch("EUW1_1")})
			So(errors.Is(err, service.ErrTimeout), ShouldBeTrue)
		})
	})
}

func TestEngine_StartStop(t *testing.T) {
	Convey("Given an engine", t, func() {
		e := service.New(service.WithWorkerCount(1))

		Convey("Then start and stop are idempotent", func() {
			So(e.Start(context.Background()), ShouldBeNil)
			So(e.Start(context.Background()), ShouldBeNil)
			So(e.GetStats()["started"], ShouldEqual, true)
			e.Stop()
			e.Stop()
			So(e.GetStats()["started"], ShouldEqual, false)
		})
	})
}

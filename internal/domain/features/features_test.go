package features_test

import (
	"errors"
	"testing"
	"time"

	"github.com/riftcoach/insight/internal/domain/features"
	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/normalize"
	"github.com/riftcoach/insight/internal/domain/types"
	"github.com/riftcoach/insight/internal/matchfixture"
	. "github.com/smartystreets/goconvey/convey"
)

func smallMatch(duration time.Duration, events ...model.TimelineEvent) *model.CanonicalMatch {
	for i := range events {
		events[i].Seq = i
	}
	return &model.CanonicalMatch{
		ID:       "M1",
		Duration: duration,
		Participants: []model.Participant{
			{PlayerID: "a", TeamID: 100, Role: types.RoleMiddle, ParticipantID: 1},
			{PlayerID: "b", TeamID: 200, Role: types.RoleMiddle, ParticipantID: 2},
		},
		Events: events,
	}
}

func TestWindows(t *testing.T) {
	Convey("Given an extractor with one minute windows", t, func() {
		ex := features.New()

		Convey("When the last partial window has no events", func() {
			m := smallMatch(150*time.Second,
				model.TimelineEvent{At: 10 * time.Second, Kind: model.EventWardPlace, Actor: "a"},
				model.TimelineEvent{At: 100 * time.Second, Kind: model.EventWardPlace, Actor: "a"},
			)
			ws := ex.Windows(m)

			Convey("Then it is dropped", func() {
				So(len(ws), ShouldEqual, 2)
				So(ws[1].From, ShouldEqual, time.Minute)
				So(ws[1].To, ShouldEqual, 2*time.Minute)
			})
		})

		Convey("When the last partial window has an event", func() {
			m := smallMatch(150*time.Second,
				model.TimelineEvent{At: 130 * time.Second, Kind: model.EventWardPlace, Actor: "a"},
			)
			ws := ex.Windows(m)

			Convey("Then it is kept and ends at the game end", func() {
				So(len(ws), ShouldEqual, 3)
				So(ws[2].To, ShouldEqual, 150*time.Second)
			})
		})

		Convey("When an event lands exactly on the end of an aligned game", func() {
			m := smallMatch(2*time.Minute,
				model.TimelineEvent{At: 2 * time.Minute, Kind: model.EventWardPlace, Actor: "a"},
			)
			fs, err := ex.Extract(m)

			Convey("Then it belongs to the last window", func() {
				So(err, ShouldBeNil)
				wards := fs["a"].View().Series(features.WardsPlaced)
				So(len(wards), ShouldEqual, 2)
				So(wards[1].Num, ShouldEqual, 1.0)
			})
		})
	})
}

func TestZeroVersusMissing(t *testing.T) {
	Convey("Given a window without any relevant events", t, func() {
		m := smallMatch(3*time.Minute,
			model.TimelineEvent{At: 30 * time.Second, Kind: model.EventKill, Actor: "a", Counterpart: "b", Team: 100},
			model.TimelineEvent{At: 30 * time.Second, Kind: model.EventDeath, Actor: "b", Counterpart: "a", Team: 200},
			model.TimelineEvent{At: 150 * time.Second, Kind: model.EventWardPlace, Actor: "a", Team: 100},
		)
		fs, err := features.New().Extract(m)
		So(err, ShouldBeNil)
		v := fs["a"].View()

		Convey("Then count metrics read zero", func() {
			So(v.Series(features.Kills)[1], ShouldResemble, features.Num(0))
			So(v.Series(features.WardsPlaced)[1].Present, ShouldBeTrue)
			So(v.Series(features.WardsPlaced)[1].Num, ShouldEqual, 0.0)
			So(v.Series(features.CS)[1], ShouldResemble, features.Num(0))
		})

		Convey("Then rate metrics are missing, not zero", func() {
			So(v.Series(features.KillParticipation)[1].IsMissing(), ShouldBeTrue)
			So(v.Series(features.GoldDiff)[1].IsMissing(), ShouldBeTrue)
			So(v.Series(features.PositionDeviation)[1].IsMissing(), ShouldBeTrue)
		})

		Convey("Then the window with the kill has a participation rate", func() {
			So(v.Series(features.KillParticipation)[0], ShouldResemble, features.Num(1))
			So(v.Scalar(features.KillParticipation).Num, ShouldEqual, 1.0)
		})

		Convey("Then undefined scalars are missing", func() {
			So(v.Scalar(features.VisionScore).IsMissing(), ShouldBeTrue)
			So(v.Scalar(features.ObjectiveParticipation).IsMissing(), ShouldBeTrue)
			So(v.Scalar(features.CSPerMin).IsMissing(), ShouldBeTrue)
			So(v.Scalar("no_such_metric").IsMissing(), ShouldBeTrue)
			So(fs["b"].View().Scalar(features.KillParticipation).IsMissing(), ShouldBeTrue)
		})
	})
}

func TestExtractFromPayload(t *testing.T) {
	Convey("Given a normalized version 2 match", t, func() {
		raw := matchfixture.New("2", "EUW1_7").
			Roster("p").
			Duration(20*time.Minute).
			Frames(func(at time.Duration, p matchfixture.Player) matchfixture.Stats {
				s := matchfixture.DefaultFrames(at, p)
				if p.ID == 3 && at >= 5*time.Minute {
					// mid laner falls 200 gold per minute behind from minute 5
					s.Gold -= 200 * (at - 5*time.Minute).Minutes()
				}
				return s
			}).
			Ward(2*time.Minute+5*time.Second, 3).
			Monster(10*time.Minute, 2, matchfixture.Blue, "DRAGON", 3).
			Monster(15*time.Minute, 7, matchfixture.Red, "BARON_NASHOR").
			JSON()
		m, err := normalize.New().Normalize(raw, "2")
		So(err, ShouldBeNil)

		fs, err := features.New(features.WithLaningPhase(10 * time.Minute)).Extract(m)
		So(err, ShouldBeNil)
		v := fs["p3"].View()

		Convey("Then every participant has a feature set", func() {
			So(len(fs), ShouldEqual, 10)
			So(v.WindowCount(), ShouldEqual, 20)
			So(v.Role(), ShouldEqual, types.RoleMiddle)
			So(v.Scalar(features.RoleName).Text, ShouldEqual, "MIDDLE")
		})

		Convey("Then cs is farm gained per window", func() {
			cs := v.Series(features.CS)
			So(cs[0].Num, ShouldEqual, 7.5)
			So(cs[19].Num, ShouldEqual, 7.5)
			So(v.Scalar(features.CSTotal).Num, ShouldEqual, 150.0)
			So(v.Scalar(features.CSPerMin).Num, ShouldEqual, 7.5)
		})

		Convey("Then gold difference follows the lane opponent", func() {
			gd := v.Series(features.GoldDiff)
			So(gd[4].Num, ShouldEqual, 0.0)
			So(gd[7].Num, ShouldEqual, -400.0)
			So(v.Scalar(features.GoldDiffLaningEnd).Num, ShouldEqual, -1000.0)
		})

		Convey("Then objective participation counts assists", func() {
			So(v.Scalar(features.Objectives).Num, ShouldEqual, 1.0)
			So(v.Scalar(features.TeamObjectives).Num, ShouldEqual, 1.0)
			So(v.Scalar(features.ObjectiveParticipation).Num, ShouldEqual, 1.0)
		})

		Convey("Then deviation is near zero on the lane", func() {
			dev := v.Series(features.PositionDeviation)
			So(dev[3].Present, ShouldBeTrue)
			So(dev[3].Num, ShouldBeLessThan, 10.0)
			So(fs["p2"].View().Series(features.PositionDeviation)[3].IsMissing(), ShouldBeTrue)
		})

		Convey("Then the view hands out copies", func() {
			s := v.Series(features.WardsPlaced)
			s[2] = features.Num(99)
			So(v.Series(features.WardsPlaced)[2].Num, ShouldEqual, 1.0)
			So(v.Scalar(features.VisionScore).Num, ShouldEqual, 20.0)
		})
	})
}

func TestExtractRejectsEmptyMatch(t *testing.T) {
	Convey("Given a match without duration", t, func() {
		_, err := features.New().Extract(&model.CanonicalMatch{ID: "x"})
		So(errors.Is(err, features.ErrInvalidMatch), ShouldBeTrue)

		_, err = features.New().Extract(nil)
		So(errors.Is(err, features.ErrInvalidMatch), ShouldBeTrue)
	})
}

func TestLaneDeviation(t *testing.T) {
	Convey("Given lane geometry", t, func() {
		d, ok := features.LaneDeviation(types.RoleMiddle, model.Position{X: 7500, Y: 7500})
		So(ok, ShouldBeTrue)
		So(d, ShouldAlmostEqual, 0.0, 0.001)

		d, ok = features.LaneDeviation(types.RoleTop, model.Position{X: 12000, Y: 3000})
		So(ok, ShouldBeTrue)
		So(d, ShouldBeGreaterThan, 5000.0)

		_, ok = features.LaneDeviation(types.RoleJungle, model.Position{})
		So(ok, ShouldBeFalse)
	})
}

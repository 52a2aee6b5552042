package types_test

import (
	"errors"
	"testing"

	types "github.com/riftcoach/insight/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseRole(t *testing.T) {
	Convey("Given role names and aliases", t, func() {
		Convey("When parsing riot positions", func() {
			for _, r := range types.Roles {
				got, err := types.ParseRole(string(r))
				So(err, ShouldBeNil)
				So(got, ShouldEqual, r)
			}
		})

		Convey("When parsing common aliases", func() {
			cases := map[string]types.Role{
				"mid":     types.RoleMiddle,
				"ADC":     types.RoleBottom,
				" jg ":    types.RoleJungle,
				"support": types.RoleUtility,
				"bot":     types.RoleBottom,
			}
			for in, want := range cases {
				got, err := types.ParseRole(in)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, want)
			}
		})

		Convey("When parsing an unknown role", func() {
			got, err := types.ParseRole("roamer")

			Convey("Then it should fail with ErrUnknownValue", func() {
				So(errors.Is(err, types.ErrUnknownValue), ShouldBeTrue)
				So(got, ShouldEqual, types.RoleUnknown)
			})
		})

		Convey("Then only lane roles farm a wave", func() {
			So(types.RoleTop.Laner(), ShouldBeTrue)
			So(types.RoleMiddle.Laner(), ShouldBeTrue)
			So(types.RoleBottom.Laner(), ShouldBeTrue)
			So(types.RoleJungle.Laner(), ShouldBeFalse)
			So(types.RoleUtility.Laner(), ShouldBeFalse)
		})
	})
}

func TestParseEloBand(t *testing.T) {
	Convey("Given elo band inputs", t, func() {
		Convey("When parsing band names", func() {
			b, err := types.ParseEloBand("High")
			So(err, ShouldBeNil)
			So(b, ShouldEqual, types.BandHigh)
		})

		Convey("When parsing ranked tiers", func() {
			cases := map[string]types.EloBand{
				"IRON":        types.BandLow,
				"silver":      types.BandLow,
				"Gold":        types.BandMid,
				"EMERALD":     types.BandMid,
				"diamond":     types.BandHigh,
				"CHALLENGER":  types.BandHigh,
				"grandmaster": types.BandHigh,
			}
			for in, want := range cases {
				got, err := types.ParseEloBand(in)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, want)
			}
		})

		Convey("When parsing garbage", func() {
			_, err := types.ParseEloBand("wood")
			So(errors.Is(err, types.ErrUnknownValue), ShouldBeTrue)
		})
	})
}

func TestSeverity(t *testing.T) {
	Convey("Given severities", t, func() {
		Convey("Then they are ordered", func() {
			So(types.SeverityLow, ShouldBeLessThan, types.SeverityMedium)
			So(types.SeverityMedium, ShouldBeLessThan, types.SeverityHigh)
			So(types.SeverityHigh, ShouldBeLessThan, types.SeverityCritical)
		})

		Convey("When encoding as text", func() {
			b, err := types.SeverityHigh.MarshalText()
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, "high")

			var s types.Severity
			So(s.UnmarshalText([]byte("critical")), ShouldBeNil)
			So(s, ShouldEqual, types.SeverityCritical)
		})

		Convey("When decoding an unknown name", func() {
			var s types.Severity
			err := s.UnmarshalText([]byte("fatal"))
			So(errors.Is(err, types.ErrUnknownValue), ShouldBeTrue)
		})
	})
}

func TestParseCategory(t *testing.T) {
	Convey("Given category names", t, func() {
		c, err := types.ParseCategory("Vision")
		So(err, ShouldBeNil)
		So(c, ShouldEqual, types.CategoryVision)

		_, err = types.ParseCategory("macro")
		So(err, ShouldNotBeNil)

		Convey("Then the default order is lexicographic", func() {
			for i := 1; i < len(types.Categories); i++ {
				So(string(types.Categories[i-1]), ShouldBeLessThan, string(types.Categories[i]))
			}
		})
	})
}

func TestSeverityWeights(t *testing.T) {
	Convey("Given the default weights", t, func() {
		w := types.DefaultSeverityWeights()
		So(w.Weight(types.SeverityLow), ShouldEqual, 1.0)
		So(w.Weight(types.SeverityCritical), ShouldEqual, 5.0)
		So(w.Max(), ShouldEqual, 5.0)

		Convey("When overriding from configuration", func() {
			w, err := types.ParseSeverityWeights(map[string]float64{"high": 4, "Critical": 8})
			So(err, ShouldBeNil)
			So(w.Weight(types.SeverityHigh), ShouldEqual, 4.0)
			So(w.Weight(types.SeverityMedium), ShouldEqual, 2.0)
			So(w.Max(), ShouldEqual, 8.0)
		})

		Convey("When a name is unknown", func() {
			_, err := types.ParseSeverityWeights(map[string]float64{"fatal": 9})
			So(errors.Is(err, types.ErrUnknownValue), ShouldBeTrue)
		})
	})
}

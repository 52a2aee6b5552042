package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/riftcoach/insight/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.MaxRecommendations, convey.ShouldEqual, 5)
			convey.So(cfg.SeverityWeights["critical"], convey.ShouldEqual, 5.0)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad setting", t, func() {
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"unknown driver", func(c *config.Config) { c.StoreDriver = "postgres" }},
			{"sqlite no path", func(c *config.Config) { c.StoreDriver = config.StoreSQLite; c.StorePath = "" }},
			{"zero window", func(c *config.Config) { c.WindowSeconds = 0 }},
			{"overlap too big", func(c *config.Config) { c.DedupeOverlap = 1.5 }},
			{"negative burst", func(c *config.Config) { c.AnalyzeBurst = -1 }},
			{"unknown priority", func(c *config.Config) { c.PriorityWeights = map[string]float64{"luck": 1} }},
		}
		for _, tc := range cases {
			convey.Convey("Then "+tc.name+" is rejected", func() {
				cfg := config.New()
				tc.mutate(cfg)
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}

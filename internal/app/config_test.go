package service_test

import (
	"context"
	"errors"
	"testing"

	service "github.com/riftcoach/insight/internal/app"
	"github.com/riftcoach/insight/internal/config"
	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOptionsFromConfig(t *testing.T) {
	Convey("Given a config disabling two detectors", t, func() {
		cfg := config.New()
		cfg.WorkerCount = 1
		cfg.DisabledDetectors = []string{"vision-gap", "wave-control"}

		opts, err := service.OptionsFromConfig(cfg)
		So(err, ShouldBeNil)
		e := service.New(opts...)
		So(e.Start(context.Background()), ShouldBeNil)
		defer e.Stop()

		Convey("When a match is analysed", func() {
			report, err := e.Analyze(context.Background(), service.AnalyzeRequest{Payload: quietMatch("EUW1_1"), PlayerID: "p1"})
			So(err, ShouldBeNil)

			Convey("Then the disabled detectors are skipped", func() {
				skipped := map[string]string{}
				for _, d := range report.Players[0].Detectors {
					if d.Status == model.DetectorSkipped {
						skipped[d.Name] = d.Reason
					}
				}
				So(skipped["vision-gap"], ShouldEqual, "disabled")
				So(skipped["wave-control"], ShouldEqual, "disabled")
				So(recIDs(report.Players[0]), ShouldNotContain, "vision:no-wards")
			})
		})
	})

	Convey("Given invalid weight, detector or template settings", t, func() {
		cfg := config.New()
		cfg.SeverityWeights = map[string]float64{"apocalyptic": 9}
		_, err := service.OptionsFromConfig(cfg)
		So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)

		cfg = config.New()
		cfg.DisabledDetectors = []string{"wave-control,lost-trades"}
		_, err = service.OptionsFromConfig(cfg)
		So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)

		cfg = config.New()
		cfg.TemplatesFile = "/does/not/exist.yaml"
		_, err = service.OptionsFromConfig(cfg)
		So(errors.Is(err, ranking.ErrLoadCatalog), ShouldBeTrue)
	})
}

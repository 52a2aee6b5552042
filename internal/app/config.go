package service

import (
	"fmt"
	"time"

	"github.com/riftcoach/insight/internal/config"
	"github.com/riftcoach/insight/internal/domain/detect"
	"github.com/riftcoach/insight/internal/domain/features"
	"github.com/riftcoach/insight/internal/domain/progress"
	"github.com/riftcoach/insight/internal/domain/ranking"
	"github.com/riftcoach/insight/internal/domain/types"
)

// OptionsFromConfig translates cfg into engine options.
func OptionsFromConfig(cfg *config.Config) ([]Option, error) {
	severity, err := types.ParseSeverityWeights(cfg.SeverityWeights)
	if err != nil {
		return nil, fmt.Errorf("%w: severity_weights: %w", config.ErrInvalidConfig, err)
	}

	known := map[string]bool{}
	for _, d := range detect.Builtins() {
		known[d.Name()] = true
	}
	for _, name := range cfg.DisabledDetectors {
		if !known[name] {
			return nil, fmt.Errorf("%w: disabled_detectors: unknown detector %q", config.ErrInvalidConfig, name)
		}
	}

	weights := ranking.DefaultWeights()
	if v, ok := cfg.PriorityWeights["severity"]; ok {
		weights.Severity = v
	}
	if v, ok := cfg.PriorityWeights["frequency"]; ok {
		weights.Frequency = v
	}
	if v, ok := cfg.PriorityWeights["confidence"]; ok {
		weights.Confidence = v
	}

	rankingOpts := []ranking.Option{
		ranking.WithMaxRecommendations(cfg.MaxRecommendations),
		ranking.WithOverlap(cfg.DedupeOverlap),
		ranking.WithWeights(weights),
		ranking.WithSeverityWeights(severity),
	}
	if cfg.TemplatesFile != "" {
		catalog, err := ranking.LoadCatalog(cfg.TemplatesFile)
		if err != nil {
			return nil, err
		}
		rankingOpts = append(rankingOpts, ranking.WithCatalog(catalog))
	}

	opts := []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithFeatureOptions(
			features.WithWindow(time.Duration(cfg.WindowSeconds)*time.Second),
			features.WithLaningPhase(time.Duration(cfg.LaningPhaseSeconds)*time.Second),
		),
		WithDetectOptions(
			detect.WithParallelism(cfg.DetectorParallelism),
			detect.WithTimeout(time.Duration(cfg.DetectorTimeoutMS)*time.Millisecond),
			detect.WithDisabled(cfg.DisabledDetectors...),
		),
		WithRankingOptions(rankingOpts...),
		WithProgressOptions(
			progress.WithStoreTimeout(time.Duration(cfg.StoreTimeoutMS)*time.Millisecond),
			progress.WithSeverityWeights(severity),
			progress.WithTrendWindow(cfg.TrendWindow),
			progress.WithDeadband(cfg.TrendDeadband),
		),
	}
	if cfg.StoreDriver == config.StoreSQLite {
		opts = append(opts, WithSQLite(cfg.StorePath))
	}
	return opts, nil
}

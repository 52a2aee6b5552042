package service

import (
	"github.com/riftcoach/insight/internal/adapters/repository"
	"github.com/riftcoach/insight/internal/domain/detect"
	"github.com/riftcoach/insight/internal/domain/features"
	"github.com/riftcoach/insight/internal/domain/progress"
	"github.com/riftcoach/insight/internal/domain/ranking"
	"github.com/riftcoach/insight/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWorkerCount sets the number of progress workers.
func WithWorkerCount(count int) Option {
	return func(e *Engine) {
		if count > 0 {
			e.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the progress queue.
func WithQueueSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.queueSize = size
		}
	}
}

// WithDedupeSize sets how many recent deliveries are remembered.
func WithDedupeSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithStore injects the progress store. The engine closes it on Stop.
func WithStore(s repository.Store) Option {
	return func(e *Engine) {
		if s != nil {
			e.store = s
		}
	}
}

// WithSQLite makes Start open a SQLite store at path.
func WithSQLite(path string) Option {
	return func(e *Engine) {
		e.sqlitePath = path
	}
}

// WithFeatureOptions configures the feature extractor.
func WithFeatureOptions(opts ...features.Option) Option {
	return func(e *Engine) {
		e.featureOpts = append(e.featureOpts, opts...)
	}
}

// WithRegistry replaces the built-in detector registry.
func WithRegistry(r *detect.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// WithDetectOptions configures the built-in detector registry.
func WithDetectOptions(opts ...detect.Option) Option {
	return func(e *Engine) {
		e.detectOpts = append(e.detectOpts, opts...)
	}
}

// WithRankingOptions configures the recommendation ranker.
func WithRankingOptions(opts ...ranking.Option) Option {
	return func(e *Engine) {
		e.rankingOpts = append(e.rankingOpts, opts...)
	}
}

// WithProgressOptions configures the progress tracker.
func WithProgressOptions(opts ...progress.Option) Option {
	return func(e *Engine) {
		e.progressOpts = append(e.progressOpts, opts...)
	}
}

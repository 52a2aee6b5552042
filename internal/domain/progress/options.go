package progress

import (
	"time"

	"github.com/riftcoach/insight/internal/domain/types"
	"github.com/riftcoach/insight/pkg/logger"
)

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithStoreTimeout bounds every store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithSeverityWeights sets the weights used for category scores.
func WithSeverityWeights(w types.SeverityWeights) Option {
	return func(t *Tracker) {
		if len(w) > 0 {
			t.weights = w
		}
	}
}

// WithTrendWindow sets the default number of matches compared by Trend.
func WithTrendWindow(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.window = n
		}
	}
}

// WithDeadband sets the delta magnitude below which a trend is stable.
func WithDeadband(d float64) Option {
	return func(t *Tracker) {
		if d >= 0 {
			t.deadband = d
		}
	}
}

// WithClock overrides the time source used for RecordedAt.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

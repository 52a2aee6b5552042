package features

import "time"

// Option applies a configuration option to the Extractor.
type Option func(*Extractor)

// WithWindow sets the window size.
func WithWindow(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.window = d
		}
	}
}

// WithLaningPhase sets when the laning phase ends.
func WithLaningPhase(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.laningEnd = d
		}
	}
}

package ranking

import "github.com/riftcoach/insight/internal/domain/types"

// Option applies a configuration option to the Ranker.
type Option func(*Ranker)

// WithMaxRecommendations caps the surfaced list.
func WithMaxRecommendations(n int) Option {
	return func(r *Ranker) {
		if n > 0 {
			r.max = n
		}
	}
}

// WithOverlap sets the evidence overlap fraction above which findings collapse.
func WithOverlap(f float64) Option {
	return func(r *Ranker) {
		if f > 0 && f <= 1 {
			r.overlap = f
		}
	}
}

// WithWeights sets the priority weights.
func WithWeights(w Weights) Option {
	return func(r *Ranker) {
		if w.Severity >= 0 && w.Frequency >= 0 && w.Confidence >= 0 && w.Severity+w.Frequency+w.Confidence > 0 {
			r.weights = w
		}
	}
}

// WithSeverityWeights sets the severity weight table.
func WithSeverityWeights(w types.SeverityWeights) Option {
	return func(r *Ranker) {
		if len(w) > 0 {
			r.severity = w
		}
	}
}

// WithCatalog replaces the template catalog.
func WithCatalog(c *Catalog) Option {
	return func(r *Ranker) {
		if c != nil {
			r.catalog = c
		}
	}
}

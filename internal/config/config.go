// Package config defines engine configuration structures and loading hooks.
package config

import (
	"fmt"
	"runtime"
	"slices"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory progress queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of progress workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many recent deliveries are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// StoreDriver selects the progress store: memory or sqlite.
	StoreDriver string `koanf:"store_driver"`

	// StorePath is the SQLite database file.
	StorePath string `koanf:"store_path"`

	// StoreTimeoutMS bounds every progress store call.
	StoreTimeoutMS int `koanf:"store_timeout_ms"`

	// DetectorParallelism bounds concurrent detectors per player; 0 uses GOMAXPROCS.
	DetectorParallelism int `koanf:"detector_parallelism"`

	// DetectorTimeoutMS is the per-detector budget.
	DetectorTimeoutMS int `koanf:"detector_timeout_ms"`

	// DisabledDetectors are reported as skipped.
	DisabledDetectors []string `koanf:"disabled_detectors"`

	// WindowSeconds is the feature window width.
	WindowSeconds int `koanf:"window_seconds"`

	// LaningPhaseSeconds is where the laning phase ends.
	LaningPhaseSeconds int `koanf:"laning_phase_seconds"`

	// MaxRecommendations caps recommendations per player.
	MaxRecommendations int `koanf:"max_recommendations"`

	// DedupeOverlap is the evidence overlap above which findings collapse.
	DedupeOverlap float64 `koanf:"dedupe_overlap"`

	// SeverityWeights maps severity names to weights.
	SeverityWeights map[string]float64 `koanf:"severity_weights"`

	// PriorityWeights maps severity, frequency and confidence to their
	// share of the priority score.
	PriorityWeights map[string]float64 `koanf:"priority_weights"`

	// TemplatesFile replaces the built-in recommendation templates.
	TemplatesFile string `koanf:"templates_file"`

	// TrendWindow is the number of matches per trend window.
	TrendWindow int `koanf:"trend_window"`

	// TrendDeadband is the score change treated as noise.
	TrendDeadband float64 `koanf:"trend_deadband"`

	// AnalyzeRatePerSec and AnalyzeBurst limit POST /analyze. Zero disables.
	AnalyzeRatePerSec float64 `koanf:"analyze_rate_per_sec"`
	AnalyzeBurst      int     `koanf:"analyze_burst"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		QueueSize:          10_000,
		WorkerCount:        runtime.NumCPU(),
		DedupeSize:         50_000,
		StoreDriver:        StoreMemory,
		StorePath:          "insight.db",
		StoreTimeoutMS:     2000,
		DetectorTimeoutMS:  2000,
		WindowSeconds:      60,
		LaningPhaseSeconds: 840,
		MaxRecommendations: 5,
		DedupeOverlap:      0.5,
		SeverityWeights: map[string]float64{
			"low": 1, "medium": 2, "high": 3, "critical": 5,
		},
		PriorityWeights: map[string]float64{
			"severity": 0.5, "frequency": 0.3, "confidence": 0.2,
		},
		TrendWindow:       5,
		TrendDeadband:     0.5,
		AnalyzeRatePerSec: 50,
		AnalyzeBurst:      100,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case !slices.Contains([]string{StoreMemory, StoreSQLite}, c.StoreDriver):
		return fmt.Errorf("%w: store_driver %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver == StoreSQLite && c.StorePath == "":
		return fmt.Errorf("%w: store_path is required for sqlite", ErrInvalidConfig)
	case c.StoreTimeoutMS <= 0, c.DetectorTimeoutMS <= 0:
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	case c.DetectorParallelism < 0:
		return fmt.Errorf("%w: detector_parallelism must not be negative", ErrInvalidConfig)
	case c.WindowSeconds <= 0, c.LaningPhaseSeconds <= 0:
		return fmt.Errorf("%w: window_seconds and laning_phase_seconds must be positive", ErrInvalidConfig)
	case c.MaxRecommendations <= 0:
		return fmt.Errorf("%w: max_recommendations must be positive", ErrInvalidConfig)
	case c.DedupeOverlap <= 0 || c.DedupeOverlap > 1:
		return fmt.Errorf("%w: dedupe_overlap must be in (0,1]", ErrInvalidConfig)
	case c.TrendWindow <= 0:
		return fmt.Errorf("%w: trend_window must be positive", ErrInvalidConfig)
	case c.TrendDeadband < 0:
		return fmt.Errorf("%w: trend_deadband must not be negative", ErrInvalidConfig)
	case c.AnalyzeRatePerSec < 0 || c.AnalyzeBurst < 0:
		return fmt.Errorf("%w: analyze rate limits must not be negative", ErrInvalidConfig)
	}
	for k, v := range c.PriorityWeights {
		if !slices.Contains([]string{"severity", "frequency", "confidence"}, k) {
			return fmt.Errorf("%w: unknown priority weight %q", ErrInvalidConfig, k)
		}
		if v < 0 {
			return fmt.Errorf("%w: priority weight %q is negative", ErrInvalidConfig, k)
		}
	}
	return nil
}

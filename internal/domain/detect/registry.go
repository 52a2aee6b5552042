package detect

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/riftcoach/insight/internal/domain/features"
	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/types"
	"github.com/riftcoach/insight/pkg/logger"
	"github.com/riftcoach/insight/pkg/metrics"
)

// DefaultTimeout bounds a single detector evaluation.
const DefaultTimeout = 2 * time.Second

// Outcome is what one detector produced for one player.
type Outcome struct {
	Detector string
	Category types.Category
	Status   model.DetectorRunStatus
	Reason   string
	Findings []model.Finding
	Failure  *Failure
	Duration time.Duration
}

// Summary condenses the outcome for a report.
func (o Outcome) Summary() model.DetectorStatus {
	return model.DetectorStatus{
		Name:     o.Detector,
		Category: o.Category,
		Status:   o.Status,
		Reason:   o.Reason,
		Findings: len(o.Findings),
		Duration: o.Duration,
	}
}

// Result holds outcomes in registration order.
type Result struct {
	Outcomes []Outcome
}

// Findings returns every finding in registration order.
func (r Result) Findings() []model.Finding {
	var out []model.Finding
	for _, o := range r.Outcomes {
		out = append(out, o.Findings...)
	}
	return out
}

// Statuses returns one status per registered detector.
func (r Result) Statuses() []model.DetectorStatus {
	out := make([]model.DetectorStatus, len(r.Outcomes))
	for i, o := range r.Outcomes {
		out[i] = o.Summary()
	}
	return out
}

// Failures returns the absorbed failures.
func (r Result) Failures() []*Failure {
	var out []*Failure
	for _, o := range r.Outcomes {
		if o.Failure != nil {
			out = append(out, o.Failure)
		}
	}
	return out
}

// Registry holds an ordered set of detectors. Registration is not safe for
// concurrent use; Run is.
type Registry struct {
	detectors   []Detector
	names       map[string]bool
	disabled    map[string]bool
	parallelism int
	timeout     time.Duration
	logger      logger.Logger
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithParallelism bounds how many detectors run at once.
func WithParallelism(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// WithTimeout sets the per-detector timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithDisabled marks detectors as disabled; they are reported as skipped.
func WithDisabled(names ...string) Option {
	return func(r *Registry) {
		for _, n := range names {
			r.disabled[n] = true
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry constructs an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		names:       make(map[string]bool),
		disabled:    make(map[string]bool),
		parallelism: runtime.GOMAXPROCS(0),
		timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("detect")
	}
	return r
}

// Register appends a detector. Names must be unique.
func (r *Registry) Register(d Detector) error {
	if d == nil || d.Name() == "" {
		return fmt.Errorf("%w: detector must have a name", ErrInvalidDetector)
	}
	if r.names[d.Name()] {
		return fmt.Errorf("%w: %s", ErrDuplicateDetector, d.Name())
	}
	r.names[d.Name()] = true
	r.detectors = append(r.detectors, d)
	return nil
}

// Names lists detectors in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.detectors))
	for i, d := range r.detectors {
		out[i] = d.Name()
	}
	return out
}

// Run evaluates every detector for one player and joins the results.
// Detector failures are absorbed into the result.
func (r *Registry) Run(ctx context.Context, fv features.View, mc MatchContext) Result {
	outcomes := make([]Outcome, len(r.detectors))

	var g errgroup.Group
	g.SetLimit(r.parallelism)
	for i, d := range r.detectors {
		if r.disabled[d.Name()] {
			outcomes[i] = Outcome{Detector: d.Name(), Category: d.Category(), Status: model.DetectorSkipped, Reason: "disabled"}
			continue
		}
		g.Go(func() error {
			outcomes[i] = r.evaluate(ctx, d, fv, mc)
			return nil // failures are reported per detector
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		metrics.RecordDetectorRun(o.Detector, string(o.Status), float64(o.Duration.Microseconds())/1000)
		if o.Failure != nil {
			r.logger.Warn(ctx, "detector failure",
				logger.String("detector", o.Detector),
				logger.String("player", fv.PlayerID()),
				logger.String("match", mc.MatchID),
				logger.Error(o.Failure.Cause),
			)
			metrics.RecordErrorByComponent("detect", o.Detector)
		}
		for _, f := range o.Findings {
			metrics.RecordFinding(string(f.Category), string(f.Polarity))
		}
	}
	return Result{Outcomes: outcomes}
}

type reply struct {
	findings []model.Finding
	err      error
}

func (r *Registry) evaluate(ctx context.Context, d Detector, fv features.View, mc MatchContext) Outcome {
	start := time.Now()
	out := Outcome{Detector: d.Name(), Category: d.Category()}

	dctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan reply, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- reply{err: fmt.Errorf("%w: %v", ErrDetectorPanic, p)}
			}
		}()
		findings, err := d.Evaluate(dctx, fv, mc)
		done <- reply{findings: findings, err: err}
	}()

	var rep reply
	select {
	case rep = <-done:
	case <-dctx.Done():
		cause := dctx.Err()
		if errors.Is(cause, context.DeadlineExceeded) && ctx.Err() == nil {
			cause = fmt.Errorf("%w after %s", ErrDetectorTimeout, r.timeout)
		}
		rep = reply{err: cause}
	}
	out.Duration = time.Since(start)

	var skip *SkipError
	switch {
	case errors.As(rep.err, &skip):
		out.Status = model.DetectorSkipped
		out.Reason = skip.Reason
	case rep.err != nil:
		out.Status = model.DetectorFailed
		out.Reason = rep.err.Error()
		out.Failure = &Failure{Detector: d.Name(), PlayerID: fv.PlayerID(), Cause: rep.err}
	default:
		out.Status = model.DetectorRan
		out.Findings = stamp(rep.findings, d, fv.PlayerID(), mc.MatchID)
	}
	return out
}

// stamp fills the identity fields of emitted findings and bounds their
// confidence and severity.
func stamp(in []model.Finding, d Detector, playerID, matchID string) []model.Finding {
	if len(in) == 0 {
		return nil
	}
	out := make([]model.Finding, len(in))
	for i, f := range in {
		f.ID = model.FindingID(matchID, playerID, d.Name(), i)
		f.MatchID = matchID
		f.PlayerID = playerID
		f.Detector = d.Name()
		f.Category = d.Category()
		if f.Polarity == "" {
			f.Polarity = types.Mistake
		}
		if f.Severity < types.SeverityLow {
			f.Severity = types.SeverityLow
		}
		if f.Severity > types.SeverityCritical {
			f.Severity = types.SeverityCritical
		}
		f.Confidence = model.ClampConfidence(f.Confidence)
		f.Evidence.Events = append([]int(nil), f.Evidence.Events...)
		out[i] = f
	}
	return out
}

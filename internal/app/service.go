// Package service wires the insight pipeline into a single engine used by
// the HTTP API and the command line tools.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/riftcoach/insight/internal/adapters/mq/queue"
	"github.com/riftcoach/insight/internal/adapters/mq/worker"
	"github.com/riftcoach/insight/internal/adapters/repository"
	"github.com/riftcoach/insight/internal/domain/dedupe"
	"github.com/riftcoach/insight/internal/domain/detect"
	"github.com/riftcoach/insight/internal/domain/features"
	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/normalize"
	"github.com/riftcoach/insight/internal/domain/progress"
	"github.com/riftcoach/insight/internal/domain/ranking"
	"github.com/riftcoach/insight/internal/domain/types"
	"github.com/riftcoach/insight/pkg/logger"
	"github.com/riftcoach/insight/pkg/metrics"
)

// AnalyzeRequest is one match to analyse. Either Payload or Match is set.
type AnalyzeRequest struct {
	// Payload is a raw riot-style match document.
	Payload []byte
	// SchemaVersion selects the payload mapper; empty reads it from the payload.
	SchemaVersion string
	// PlayerID restricts the analysis to one participant.
	PlayerID string
	// Role overrides the participant's role when PlayerID is set.
	Role types.Role
	// EloBand tailors the recommendations.
	EloBand types.EloBand
	// Match is an already normalized match.
	Match *model.CanonicalMatch
}

// Engine implements the analysis pipeline and the progress bookkeeping
// behind it.
type Engine struct {
	mu sync.RWMutex

	// Core components
	normalizer *normalize.Normalizer
	extractor  *features.Extractor
	registry   *detect.Registry
	ranker     *ranking.Ranker
	tracker    *progress.Tracker
	store      repository.Store
	deduper    dedupe.Deduper
	queue      queue.Queue
	pool       *worker.Pool

	// Configuration
	workerCount  int
	queueSize    int
	dedupeSize   int
	sqlitePath   string
	featureOpts  []features.Option
	detectOpts   []detect.Option
	rankingOpts  []ranking.Option
	progressOpts []progress.Option

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs an Engine. Components are built by Start.
func New(opts ...Option) *Engine {
	e := &Engine{
		workerCount: runtime.NumCPU(),
		queueSize:   10_000,
		dedupeSize:  50_000,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start builds the pipeline and starts the progress workers.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("engine")
	}
	e.logger.Info(ctx, "starting insight engine...")

	if e.store == nil {
		if e.sqlitePath != "" {
			s, err := repository.OpenSQLite(ctx, e.sqlitePath)
			if err != nil {
				return fmt.Errorf("open progress store: %w", err)
			}
			e.store = s
		} else {
			e.store = repository.NewMemoryStore()
		}
	}
	tracker, err := progress.New(e.store, e.progressOpts...)
	if err != nil {
		return err
	}
	e.tracker = tracker

	e.normalizer = normalize.New()
	e.extractor = features.New(e.featureOpts...)
	if e.registry == nil {
		e.registry = detect.NewDefaultRegistry(e.detectOpts...)
	}
	e.ranker = ranking.New(e.rankingOpts...)

	e.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(e.dedupeSize))
	e.queue = queue.NewInMemoryQueue(queue.WithCapacity(e.queueSize))
	// a failed record forgets the key so a redelivery is recorded
	deduper := e.deduper
	e.pool = worker.NewPool(e.workerCount, e.queue, e.tracker,
		worker.WithOnFailure(func(ctx context.Context, j worker.Job, _ error) {
			deduper.Unrecord(ctx, j.Key())
		}),
	)

	// workers outlive the caller's context; Stop ends them
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	e.pool.Start(runCtx)

	e.started = true
	e.logger.Info(ctx, "insight engine started",
		logger.Int("workers", e.pool.Size()),
		logger.Int("queueSize", e.queueSize),
		logger.Int("dedupeSize", e.dedupeSize),
		logger.Any("detectors", e.registry.Names()),
	)
	return nil
}

// Stop lets queued progress jobs finish, then releases the store.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return
	}
	ctx := context.Background()
	e.logger.Info(ctx, "stopping insight engine...")

	if err := e.pool.Shutdown(ctx); err != nil {
		e.logger.Error(ctx, "worker pool shutdown", logger.Error(err))
	}
	e.cancel()
	if err := e.store.Close(); err != nil {
		e.logger.Error(ctx, "closing progress store", logger.Error(err))
	}

	e.started = false
	e.logger.Info(ctx, "insight engine stopped")
}

// Analyze turns one match into a report and queues progress recording for
// every analysed player. Recording happens in the background.
func (e *Engine) Analyze(ctx context.Context, req AnalyzeRequest) (*model.InsightReport, error) {
	start := time.Now()
	m, report, err := e.evaluate(ctx, req)
	if err == nil {
		report.ProgressQueued = e.enqueueProgress(ctx, m, report)
	}
	metrics.RecordAnalyze(outcome(err), float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		return nil, err
	}
	e.logger.Debug(ctx, "match analysed",
		logger.String("match", report.MatchID),
		logger.String("report", report.ID),
		logger.Int("players", len(report.Players)),
		logger.Duration("took", report.Duration),
	)
	return report, nil
}

// Correct re-analyses a match for one player and records the result as a
// new revision of an already recorded match.
func (e *Engine) Correct(ctx context.Context, req AnalyzeRequest) (progress.Result, error) {
	if req.PlayerID == "" {
		return progress.Result{}, fmt.Errorf("%w: player id is required for a correction", ErrInvalidRequest)
	}
	m, report, err := e.evaluate(ctx, req)
	if err != nil {
		return progress.Result{}, err
	}
	p, _ := report.Player(req.PlayerID)
	return e.tracker.Correct(ctx, p.PlayerID, m.ID, m.StartedAt, allFindings(p))
}

// GetProgress returns the recorded history of a player.
func (e *Engine) GetProgress(ctx context.Context, playerID string) (model.PlayerProgressRecord, error) {
	if err := e.ready(); err != nil {
		return model.PlayerProgressRecord{}, err
	}
	return e.tracker.Get(ctx, playerID)
}

// Trend compares a player's recent matches with the ones before. An empty
// category compares total scores; window <= 0 uses the configured default.
func (e *Engine) Trend(ctx context.Context, playerID string, category types.Category, window int) (progress.Trend, error) {
	if err := e.ready(); err != nil {
		return progress.Trend{}, err
	}
	return e.tracker.Trend(ctx, playerID, category, window)
}

// Flush waits until every queued progress job has been recorded.
func (e *Engine) Flush(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}
	return e.queue.Drain(ctx)
}

// GetStats returns engine statistics for monitoring.
func (e *Engine) GetStats() map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     e.started,
		"workerCount": e.workerCount,
		"queueSize":   e.queueSize,
		"dedupeSize":  e.dedupeSize,
	}
	if !e.started {
		return stats
	}

	queueLen := e.queue.Len(ctx)
	stats["workerCount"] = e.pool.Size()
	stats["queueLength"] = queueLen
	stats["pending"] = e.queue.Pending()
	stats["dedupeEntries"] = e.deduper.Size()
	stats["detectors"] = e.registry.Names()
	stats["schemaVersions"] = e.normalizer.Versions()
	if n, err := e.store.Count(ctx); err == nil {
		stats["progressEntries"] = n
	}
	metrics.UpdateQueueSize(queueLen)
	return stats
}

func (e *Engine) ready() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.started {
		return ErrNotStarted
	}
	return nil
}

// evaluate runs normalization, extraction, detection and ranking.
func (e *Engine) evaluate(ctx context.Context, req AnalyzeRequest) (*model.CanonicalMatch, *model.InsightReport, error) {
	start := time.Now()
	if err := e.ready(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	m, err := e.match(req)
	if err != nil {
		return nil, nil, err
	}
	m, players, err := selectPlayers(m, req)
	if err != nil {
		return nil, nil, err
	}
	sets, err := e.extractor.Extract(m)
	if err != nil {
		return nil, nil, fmt.Errorf("extract features: %w", err)
	}

	mc := detect.NewMatchContext(m, e.extractor.Window(), e.extractor.LaningEnd(), req.EloBand)
	report := &model.InsightReport{
		ID:            uuid.NewString(),
		MatchID:       m.ID,
		SchemaVersion: m.SchemaVersion,
		GeneratedAt:   time.Now().UTC(),
		EloBand:       req.EloBand,
		Players:       make([]model.PlayerInsight, 0, len(players)),
	}
	for _, p := range players {
		res := e.registry.Run(ctx, sets[p.PlayerID].View(), mc)
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		report.Players = append(report.Players, e.insight(p, res, req.EloBand))
	}
	report.Duration = time.Since(start)
	return m, report, nil
}

func (e *Engine) match(req AnalyzeRequest) (*model.CanonicalMatch, error) {
	if req.Match != nil {
		return req.Match, nil
	}
	if len(req.Payload) == 0 {
		return nil, fmt.Errorf("%w: payload or match is required", ErrInvalidRequest)
	}
	m, err := e.normalizer.Normalize(req.Payload, req.SchemaVersion)
	if err != nil {
		metrics.RecordNormalizeError(normalizeKind(err))
		return nil, fmt.Errorf("normalize: %w", err)
	}
	return m, nil
}

// selectPlayers returns the participants to analyse. A role override is
// applied to a copy of the match so features see the requested role.
func selectPlayers(m *model.CanonicalMatch, req AnalyzeRequest) (*model.CanonicalMatch, []model.Participant, error) {
	if req.PlayerID == "" {
		return m, m.Participants, nil
	}
	p, ok := m.Participant(req.PlayerID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: player %s is not in match %s", ErrInvalidRequest, req.PlayerID, m.ID)
	}
	if req.Role == "" || req.Role == types.RoleUnknown || req.Role == p.Role {
		return m, []model.Participant{p}, nil
	}

	cp := *m
	cp.Participants = append([]model.Participant(nil), m.Participants...)
	for i := range cp.Participants {
		if cp.Participants[i].PlayerID == req.PlayerID {
			cp.Participants[i].Role = req.Role
			p = cp.Participants[i]
		}
	}
	return &cp, []model.Participant{p}, nil
}

func (e *Engine) insight(p model.Participant, res detect.Result, band types.EloBand) model.PlayerInsight {
	out := model.PlayerInsight{
		PlayerID:  p.PlayerID,
		Role:      p.Role,
		Findings:  []model.Finding{},
		Detectors: res.Statuses(),
	}
	for _, f := range res.Findings() {
		if f.Polarity == types.Strength {
			out.Strengths = append(out.Strengths, f)
			continue
		}
		out.Findings = append(out.Findings, f)
	}

	ranked := e.ranker.Rank(out.Findings, p.Role, band)
	out.Recommendations = ranked.Recommendations
	if out.Recommendations == nil {
		out.Recommendations = []model.Recommendation{}
	}
	out.Unsurfaced = ranked.UnsurfacedCategories()
	metrics.RecordRecommendations(len(ranked.Recommendations), len(ranked.Unsurfaced))
	return out
}

// enqueueProgress hands every player's findings to the progress workers.
// It reports false if any job could not be queued.
func (e *Engine) enqueueProgress(ctx context.Context, m *model.CanonicalMatch, report *model.InsightReport) bool {
	queued := true
	for _, p := range report.Players {
		job := model.ProgressJob{
			PlayerID: p.PlayerID,
			MatchID:  m.ID,
			PlayedAt: m.StartedAt,
			Findings: allFindings(p),
		}
		key := job.Key()
		if e.deduper.SeenAndRecord(ctx, key) {
			e.logger.Debug(ctx, "progress already queued, skipping", logger.String("key", key))
			continue
		}
		if !e.queue.Enqueue(ctx, job) {
			e.deduper.Unrecord(ctx, key)
			metrics.RecordErrorByComponent("engine", "enqueue_failed")
			e.logger.Warn(ctx, "progress queue rejected job",
				logger.String("player", job.PlayerID),
				logger.String("match", job.MatchID),
			)
			queued = false
		}
	}
	return queued
}

func allFindings(p model.PlayerInsight) []model.Finding {
	out := make([]model.Finding, 0, len(p.Findings)+len(p.Strengths))
	out = append(out, p.Findings...)
	return append(out, p.Strengths...)
}

func normalizeKind(err error) string {
	switch {
	case errors.Is(err, normalize.ErrUnsupportedSchema):
		return "unsupported_schema"
	case errors.Is(err, normalize.ErrIncompleteMatch):
		return "incomplete_match"
	case errors.Is(err, normalize.ErrSchema):
		return "schema"
	default:
		return "other"
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNotStarted):
		return "not_started"
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, features.ErrInvalidMatch):
		return "invalid"
	default:
		return normalizeKind(err)
	}
}

// Package progress keeps each player's finding history and computes trends
// across matches.
//
// History is append-only. Recording a match a second time is a no-op, and
// corrections are appended as new revisions instead of editing the past.
// Writes for one player are serialized; different players proceed in parallel.
package progress

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/riftcoach/insight/internal/adapters/repository"
	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/types"
	"github.com/riftcoach/insight/pkg/logger"
	"github.com/riftcoach/insight/pkg/metrics"
)

// Default tracker configuration constants.
const (
	DefaultStoreTimeout = 2 * time.Second
	DefaultTrendWindow  = 5
	DefaultDeadband     = 0.5
)

// Status describes what Record or Correct did.
type Status string

// Record statuses.
const (
	Recorded           Status = "recorded"
	DuplicateMatchNoOp Status = "duplicate_match_noop"
	Corrected          Status = "corrected"
)

// Result is returned by Record and Correct. Entry is the stored entry, which
// for a duplicate is the one recorded first.
type Result struct {
	Status Status              `json:"status"`
	Entry  model.ProgressEntry `json:"entry"`
}

// Label is the qualitative direction of a trend.
type Label string

// Trend labels. Scores count mistakes, so a falling score is improvement.
const (
	Improving  Label = "improving"
	Stable     Label = "stable"
	Regressing Label = "regressing"
)

// Trend compares the most recent matches with the ones before them.
type Trend struct {
	PlayerID string         `json:"player_id"`
	Category types.Category `json:"category,omitempty"`
	Window   int            `json:"window"`
	Recent   float64        `json:"recent"`
	Previous float64        `json:"previous"`
	Delta    float64        `json:"delta"`
	Label    Label          `json:"label"`
	// Sufficient is false when there are no earlier matches to compare with.
	Sufficient      bool `json:"sufficient"`
	RecentMatches   int  `json:"recent_matches"`
	PreviousMatches int  `json:"previous_matches"`
}

// Tracker records and queries progress. It is safe for concurrent use.
type Tracker struct {
	store    repository.Store
	weights  types.SeverityWeights
	timeout  time.Duration
	window   int
	deadband float64
	locks    *keyedLocks
	now      func() time.Time
	logger   logger.Logger
}

// New creates a Tracker over store. The caller owns the store's lifecycle.
func New(store repository.Store, opts ...Option) (*Tracker, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	t := &Tracker{
		store:    store,
		weights:  types.DefaultSeverityWeights(),
		timeout:  DefaultStoreTimeout,
		window:   DefaultTrendWindow,
		deadband: DefaultDeadband,
		locks:    newKeyedLocks(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logger.Get().Named("progress")
	}
	return t, nil
}

// Record appends the summary of one match. A repeat of an already recorded
// match returns the existing entry with status DuplicateMatchNoOp.
func (t *Tracker) Record(ctx context.Context, playerID, matchID string, playedAt time.Time, findings []model.Finding) (Result, error) {
	if playerID == "" || matchID == "" {
		return Result{}, fmt.Errorf("%w: player and match ids are required", ErrInvalidArgument)
	}
	release, err := t.lock(ctx, playerID)
	if err != nil {
		return Result{}, err
	}
	defer release()

	existing, err := t.lookup(ctx, playerID, matchID, 0)
	switch {
	case err == nil:
		metrics.RecordProgressDuplicate()
		return Result{Status: DuplicateMatchNoOp, Entry: existing}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return Result{}, t.fail(ctx, "lookup", playerID, matchID, err)
	}

	e := t.Summarize(playerID, matchID, playedAt, findings)
	if err := t.append(ctx, e); err != nil {
		return Result{}, t.fail(ctx, "append", playerID, matchID, err)
	}
	metrics.RecordProgressRecorded()
	return Result{Status: Recorded, Entry: e}, nil
}

// Correct appends a new revision for a recorded match. Earlier revisions
// stay in the history; trends use the latest one.
func (t *Tracker) Correct(ctx context.Context, playerID, matchID string, playedAt time.Time, findings []model.Finding) (Result, error) {
	if playerID == "" || matchID == "" {
		return Result{}, fmt.Errorf("%w: player and match ids are required", ErrInvalidArgument)
	}
	release, err := t.lock(ctx, playerID)
	if err != nil {
		return Result{}, err
	}
	defer release()

	rec, err := t.get(ctx, playerID)
	if errors.Is(err, repository.ErrNotFound) {
		return Result{}, fmt.Errorf("%w: %s/%s", ErrNotRecorded, playerID, matchID)
	}
	if err != nil {
		return Result{}, t.fail(ctx, "get", playerID, matchID, err)
	}
	revision := -1
	for _, e := range rec.Entries {
		if e.MatchID == matchID && e.Revision > revision {
			revision = e.Revision
		}
	}
	if revision < 0 {
		return Result{}, fmt.Errorf("%w: %s/%s", ErrNotRecorded, playerID, matchID)
	}

	e := t.Summarize(playerID, matchID, playedAt, findings)
	e.Revision = revision + 1
	if err := t.append(ctx, e); err != nil {
		return Result{}, t.fail(ctx, "append", playerID, matchID, err)
	}
	metrics.RecordProgressCorrection()
	t.logger.Info(ctx, "progress corrected",
		logger.String("player", playerID),
		logger.String("match", matchID),
		logger.Int("revision", e.Revision),
	)
	return Result{Status: Corrected, Entry: e}, nil
}

// Get returns the full history of a player.
func (t *Tracker) Get(ctx context.Context, playerID string) (model.PlayerProgressRecord, error) {
	rec, err := t.get(ctx, playerID)
	if err != nil {
		return model.PlayerProgressRecord{}, err
	}
	return rec, nil
}

// Trend compares the mean score of the latest window matches with the
// window matches before them. An empty category compares total scores. A
// non-positive window uses the configured default.
func (t *Tracker) Trend(ctx context.Context, playerID string, category types.Category, window int) (Trend, error) {
	if window <= 0 {
		window = t.window
	}
	rec, err := t.get(ctx, playerID)
	if err != nil {
		return Trend{}, err
	}

	entries := rec.Latest()
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].PlayedAt.Before(entries[j].PlayedAt) })

	recentFrom := max(0, len(entries)-window)
	previousFrom := max(0, recentFrom-window)
	recent := entries[recentFrom:]
	previous := entries[previousFrom:recentFrom]

	tr := Trend{
		PlayerID:        playerID,
		Category:        category,
		Window:          window,
		Recent:          meanScore(recent, category),
		Previous:        meanScore(previous, category),
		RecentMatches:   len(recent),
		PreviousMatches: len(previous),
		Sufficient:      len(previous) > 0,
		Label:           Stable,
	}
	if !tr.Sufficient {
		return tr, nil
	}
	tr.Delta = tr.Recent - tr.Previous
	switch {
	case tr.Delta < -t.deadband:
		tr.Label = Improving
	case tr.Delta > t.deadband:
		tr.Label = Regressing
	}
	return tr, nil
}

// Summarize builds the entry Record would store. Strengths are not counted.
func (t *Tracker) Summarize(playerID, matchID string, playedAt time.Time, findings []model.Finding) model.ProgressEntry {
	e := model.ProgressEntry{
		PlayerID:       playerID,
		MatchID:        matchID,
		PlayedAt:       playedAt.UTC(),
		RecordedAt:     t.now().UTC(),
		CategoryCounts: make(map[types.Category]int, len(types.Categories)),
		CategoryScores: make(map[types.Category]float64, len(types.Categories)),
	}
	for _, c := range types.Categories {
		e.CategoryCounts[c] = 0
		e.CategoryScores[c] = 0
	}
	for _, f := range findings {
		if f.Polarity == types.Strength {
			continue
		}
		w := t.weights.Weight(f.Severity)
		e.CategoryCounts[f.Category]++
		e.CategoryScores[f.Category] += w
		e.Score += w
	}
	return e
}

func meanScore(entries []model.ProgressEntry, category types.Category) float64 {
	if len(entries) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range entries {
		if category == "" {
			sum += e.Score
			continue
		}
		sum += e.CategoryScores[category]
	}
	return math.Round(sum/float64(len(entries))*1e6) / 1e6
}

func (t *Tracker) lock(ctx context.Context, playerID string) (func(), error) {
	release, err := t.locks.acquire(ctx, playerID)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: waiting for %s", ErrTimeout, playerID)
	}
	return release, err
}

func (t *Tracker) lookup(ctx context.Context, playerID, matchID string, revision int) (model.ProgressEntry, error) {
	sctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	e, err := t.store.Lookup(sctx, playerID, matchID, revision)
	return e, t.timeoutErr(sctx, "lookup", err)
}

func (t *Tracker) get(ctx context.Context, playerID string) (model.PlayerProgressRecord, error) {
	sctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	rec, err := t.store.Get(sctx, playerID)
	return rec, t.timeoutErr(sctx, "get", err)
}

func (t *Tracker) append(ctx context.Context, e model.ProgressEntry) error {
	sctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	_, err := t.store.Append(sctx, e)
	return t.timeoutErr(sctx, "append", err)
}

// timeoutErr maps a missed store deadline to ErrTimeout.
func (t *Tracker) timeoutErr(sctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(sctx.Err(), context.DeadlineExceeded) {
		metrics.RecordStoreError(op)
		return fmt.Errorf("%w: %s after %s: %w", ErrTimeout, op, t.timeout, err)
	}
	return err
}

func (t *Tracker) fail(ctx context.Context, op, playerID, matchID string, err error) error {
	metrics.RecordProgressError()
	t.logger.Error(ctx, "progress store failure",
		logger.String("op", op),
		logger.String("player", playerID),
		logger.String("match", matchID),
		logger.Error(err),
	)
	return err
}

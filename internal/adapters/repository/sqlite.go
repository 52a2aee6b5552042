package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/types"
	"github.com/riftcoach/insight/pkg/logger"
	"github.com/riftcoach/insight/pkg/metrics"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore keeps history in a SQLite database.
type SQLiteStore struct {
	conn          *sql.DB
	path          string
	busyTimeoutMS int
	logger        logger.Logger
	closed        atomic.Bool
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{path: path, busyTimeoutMS: 5000}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("repository")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", path, s.busyTimeoutMS)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one connection serializes writers and keeps ":memory:" a single database
	conn.SetMaxOpenConns(1)
	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	s.conn = conn
	s.logger.Info(ctx, "progress store opened", logger.String("path", path))
	return s, nil
}

// Append inserts e unless its key exists.
func (s *SQLiteStore) Append(ctx context.Context, e model.ProgressEntry) (bool, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("append", float64(time.Since(start).Microseconds())/1000) }()

	if s.closed.Load() {
		return false, ErrClosed
	}
	if e.PlayerID == "" || e.MatchID == "" || e.Revision < 0 {
		return false, fmt.Errorf("%w: player, match and a non-negative revision are required", ErrInvalidEntry)
	}
	counts, err := json.Marshal(e.CategoryCounts)
	if err != nil {
		return false, fmt.Errorf("encode counts: %w", err)
	}
	scores, err := json.Marshal(e.CategoryScores)
	if err != nil {
		return false, fmt.Errorf("encode scores: %w", err)
	}

	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO progress_entries(player_id, match_id, revision, played_at, recorded_at, category_counts, category_scores, score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(player_id, match_id, revision) DO NOTHING`,
		e.PlayerID, e.MatchID, e.Revision, toNanos(e.PlayedAt), toNanos(e.RecordedAt),
		string(counts), string(scores), e.Score,
	)
	if err != nil {
		metrics.RecordStoreError("append")
		return false, fmt.Errorf("insert progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert progress: %w", err)
	}
	return n == 1, nil
}

const selectColumns = `player_id, match_id, revision, played_at, recorded_at, category_counts, category_scores, score`

// Lookup returns one entry by key.
func (s *SQLiteStore) Lookup(ctx context.Context, playerID, matchID string, revision int) (model.ProgressEntry, error) {
	if s.closed.Load() {
		return model.ProgressEntry{}, ErrClosed
	}
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM progress_entries WHERE player_id = ? AND match_id = ? AND revision = ?`,
		playerID, matchID, revision)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ProgressEntry{}, ErrNotFound
	}
	if err != nil {
		metrics.RecordStoreError("lookup")
		return model.ProgressEntry{}, fmt.Errorf("lookup progress: %w", err)
	}
	return e, nil
}

// Get returns the player's history in insertion order.
func (s *SQLiteStore) Get(ctx context.Context, playerID string) (model.PlayerProgressRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("get", float64(time.Since(start).Microseconds())/1000) }()

	if s.closed.Load() {
		return model.PlayerProgressRecord{}, ErrClosed
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM progress_entries WHERE player_id = ? ORDER BY rowid`, playerID)
	if err != nil {
		metrics.RecordStoreError("get")
		return model.PlayerProgressRecord{}, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	out := model.PlayerProgressRecord{PlayerID: playerID}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			metrics.RecordStoreError("get")
			return model.PlayerProgressRecord{}, fmt.Errorf("scan progress: %w", err)
		}
		out.Entries = append(out.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return model.PlayerProgressRecord{}, fmt.Errorf("query progress: %w", err)
	}
	if len(out.Entries) == 0 {
		return model.PlayerProgressRecord{}, ErrNotFound
	}
	return out, nil
}

// Count returns the number of entries.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM progress_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count progress: %w", err)
	}
	return n, nil
}

// Close closes the database. Calling it twice is harmless.
func (s *SQLiteStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.logger.Info(context.Background(), "progress store closed", logger.String("path", s.path))
	return s.conn.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (model.ProgressEntry, error) {
	var (
		e              model.ProgressEntry
		played, record int64
		counts, scores string
	)
	if err := sc.Scan(&e.PlayerID, &e.MatchID, &e.Revision, &played, &record, &counts, &scores, &e.Score); err != nil {
		return model.ProgressEntry{}, err
	}
	e.PlayedAt = fromNanos(played)
	e.RecordedAt = fromNanos(record)
	e.CategoryCounts = map[types.Category]int{}
	e.CategoryScores = map[types.Category]float64{}
	if err := json.Unmarshal([]byte(counts), &e.CategoryCounts); err != nil {
		return model.ProgressEntry{}, fmt.Errorf("decode counts: %w", err)
	}
	if err := json.Unmarshal([]byte(scores), &e.CategoryScores); err != nil {
		return model.ProgressEntry{}, fmt.Errorf("decode scores: %w", err)
	}
	if e.CategoryCounts == nil {
		e.CategoryCounts = map[types.Category]int{}
	}
	if e.CategoryScores == nil {
		e.CategoryScores = map[types.Category]float64{}
	}
	return e, nil
}

// toNanos stores the zero time as 0; UnixNano is undefined for it.
func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

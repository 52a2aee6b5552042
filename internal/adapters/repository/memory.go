package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/types"
	"github.com/riftcoach/insight/pkg/metrics"
)

// MemoryStore keeps history in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	players map[string][]model.ProgressEntry
	keys    map[entryKey]int
	total   int
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		players: make(map[string][]model.ProgressEntry),
		keys:    make(map[entryKey]int),
	}
}

// Append adds e unless its key exists.
func (s *MemoryStore) Append(ctx context.Context, e model.ProgressEntry) (bool, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("append", float64(time.Since(start).Microseconds())/1000) }()

	if err := ctx.Err(); err != nil {
		return false, err
	}
	if e.PlayerID == "" || e.MatchID == "" || e.Revision < 0 {
		return false, fmt.Errorf("%w: player, match and a non-negative revision are required", ErrInvalidEntry)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	k := keyOf(e)
	if _, ok := s.keys[k]; ok {
		return false, nil
	}
	s.keys[k] = len(s.players[e.PlayerID])
	s.players[e.PlayerID] = append(s.players[e.PlayerID], clone(e))
	s.total++
	return true, nil
}

// Lookup returns one entry by key.
func (s *MemoryStore) Lookup(ctx context.Context, playerID, matchID string, revision int) (model.ProgressEntry, error) {
	if err := ctx.Err(); err != nil {
		return model.ProgressEntry{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.ProgressEntry{}, ErrClosed
	}
	i, ok := s.keys[entryKey{player: playerID, match: matchID, revision: revision}]
	if !ok {
		return model.ProgressEntry{}, ErrNotFound
	}
	return clone(s.players[playerID][i]), nil
}

// Get returns a copy of the player's history.
func (s *MemoryStore) Get(ctx context.Context, playerID string) (model.PlayerProgressRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("get", float64(time.Since(start).Microseconds())/1000) }()

	if err := ctx.Err(); err != nil {
		return model.PlayerProgressRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.PlayerProgressRecord{}, ErrClosed
	}
	entries, ok := s.players[playerID]
	if !ok {
		return model.PlayerProgressRecord{}, ErrNotFound
	}
	out := model.PlayerProgressRecord{PlayerID: playerID, Entries: make([]model.ProgressEntry, len(entries))}
	for i, e := range entries {
		out.Entries[i] = clone(e)
	}
	return out, nil
}

// Count returns the number of entries.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total, nil
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// clone copies the maps so callers never share them with the store.
func clone(e model.ProgressEntry) model.ProgressEntry {
	counts := make(map[types.Category]int, len(e.CategoryCounts))
	for k, v := range e.CategoryCounts {
		counts[k] = v
	}
	scores := make(map[types.Category]float64, len(e.CategoryScores))
	for k, v := range e.CategoryScores {
		scores[k] = v
	}
	e.CategoryCounts = counts
	e.CategoryScores = scores
	return e
}

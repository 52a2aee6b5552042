// Package repository persists per-player progress history.
package repository

import (
	"context"

	"github.com/riftcoach/insight/internal/domain/model"
)

// Store is an append-only history of progress entries. Entries are keyed by
// (player, match, revision); appending an existing key is a no-op.
//
// A Store is opened once when the engine starts and closed on shutdown.
type Store interface {
	// Append adds e unless its key exists. It reports whether e was new.
	Append(ctx context.Context, e model.ProgressEntry) (bool, error)

	// Lookup returns the entry with the given key, or ErrNotFound.
	Lookup(ctx context.Context, playerID, matchID string, revision int) (model.ProgressEntry, error)

	// Get returns a player's history in append order, or ErrNotFound when
	// the player has none.
	Get(ctx context.Context, playerID string) (model.PlayerProgressRecord, error)

	// Count returns the number of stored entries across all players.
	Count(ctx context.Context) (int, error)

	// Close releases resources. The store must not be used afterwards.
	Close() error
}

type entryKey struct {
	player   string
	match    string
	revision int
}

func keyOf(e model.ProgressEntry) entryKey {
	return entryKey{player: e.PlayerID, match: e.MatchID, revision: e.Revision}
}

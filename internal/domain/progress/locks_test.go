package progress

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestKeyedLocks(t *testing.T) {
	k := newKeyedLocks()
	ctx := context.Background()

	release, err := k.acquire(ctx, "p1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// another key is independent
	other, err := k.acquire(ctx, "p2")
	if err != nil {
		t.Fatalf("acquire other key: %v", err)
	}
	other()

	// the held key times out
	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := k.acquire(tctx, "p1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	release()
	if n := k.size(); n != 0 {
		t.Fatalf("expected no retained locks, got %d", n)
	}
}

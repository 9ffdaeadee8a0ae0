//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	libauth "github.com/cataloghq/libauth"
	"github.com/cataloghq/libauth/session"
)

func TestRotateRaceSingleWinner(t *testing.T) {
	ctx := context.Background()
	store, _, cleanup := newIntegrationStore(t)
	defer cleanup()

	if err := store.SavePointer(ctx, "alice", "jti-current", time.Hour); err != nil {
		t.Fatalf("SavePointer: %v", err)
	}

	const workers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		next := fmt.Sprintf("jti-next-%d", i)
		go func(nextID string) {
			defer wg.Done()
			<-start
			results <- store.Rotate(ctx, "alice", "jti-current", nextID, time.Hour, 30*time.Minute)
		}(next)
	}

	close(start)
	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, session.ErrPointerMismatch):
		default:
			t.Fatalf("unexpected rotate error: %v", err)
		}
	}

	if success != 1 {
		t.Fatalf("expected exactly one winner, got %d", success)
	}

	// The contested id is revoked exactly once, by the winner.
	revoked, err := store.IsBlacklisted(ctx, "jti-current")
	if err != nil || !revoked {
		t.Fatalf("IsBlacklisted = (%v, %v), want (true, nil)", revoked, err)
	}
}

func TestRefreshRaceSingleWinner(t *testing.T) {
	ctx := context.Background()
	engine, cleanup := newIntegrationEngine(t)
	defer cleanup()

	pair := mustLogin(t, engine)

	const workers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err := engine.Refresh(ctx, pair.RefreshToken)
			results <- err
		}()
	}

	close(start)
	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, libauth.ErrSessionSuperseded), errors.Is(err, libauth.ErrTokenRevoked):
			// Losers observe either the pointer mismatch or the blacklist
			// entry the winner wrote, depending on interleaving.
		default:
			t.Fatalf("unexpected refresh error: %v", err)
		}
	}

	if success != 1 {
		t.Fatalf("expected exactly one winner, got %d", success)
	}
}

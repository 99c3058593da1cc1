package auth

import (
	"errors"
	"sync"
	"time"

	"remotectl/internal/logger"
	"remotectl/pkg/replay"
)

// Nonce values are milliseconds since the Unix epoch, on both sides of the
// wire. Clients must use the same unit or every request lands FromPast or
// FromFuture.

var (
	// ErrNonceFromPast is returned for a nonce at or below the last committed
	// value. Ties are rejected; the sequence is strictly increasing.
	ErrNonceFromPast = errors.New("nonce is too old; are server and client clocks out of sync?")

	// ErrNonceFromFuture is returned for a nonce further ahead of the server
	// clock than the configured leeway allows.
	ErrNonceFromFuture = errors.New("nonce is from too far in the future; are server and client clocks out of sync?")
)

// ReplayGuard tracks the highest nonce ever committed and admits new ones
// through a two-phase begin/commit protocol.
//
// The two phases exist because nonce freshness is only half of a valid
// request; the secret check comes after. Advancing the stored nonce on
// freshness alone would let an attacker burn a valid future nonce with a
// garbage secret and lock the legitimate client out. Begin validates and
// returns a witness; only Commit advances the value.
//
// One guard is shared by every connection. Begin acquires the guard's lock
// and the witness holds it until Commit or Discard, so the whole
// validate-then-commit span is a critical section: two connections racing the
// same nonce serialize, and the loser sees FromPast.
type ReplayGuard struct {
	mu     sync.Mutex
	last   uint64
	leeway time.Duration
	store  replay.NonceStore
	now    func() time.Time
}

// Witness is the pending commitment from ReplayGuard.Begin.
//
// Exactly one of Commit or Discard must be called on every witness; both
// release the guard's lock. A dropped witness deadlocks the guard, which is
// deliberate: it turns a forgotten decision into an obvious bug instead of a
// silent replay hole.
type Witness struct {
	guard     *ReplayGuard
	candidate uint64
}

// NewReplayGuard creates a guard whose floor is the current wall clock, in
// milliseconds, so nothing sent before server start can ever validate. If the
// store holds a persisted high-water mark above the clock (the clock moved
// backwards while the server was down), the persisted value wins.
func NewReplayGuard(leeway time.Duration, store replay.NonceStore) (*ReplayGuard, error) {
	return newReplayGuard(leeway, store, time.Now)
}

func newReplayGuard(leeway time.Duration, store replay.NonceStore, now func() time.Time) (*ReplayGuard, error) {
	g := &ReplayGuard{
		last:   uint64(now().UnixMilli()),
		leeway: leeway,
		store:  store,
		now:    now,
	}

	if store != nil {
		persisted, found, err := store.Load()
		if err != nil {
			return nil, err
		}
		if found && persisted > g.last {
			logger.Warn("Persisted nonce %d is ahead of the clock; keeping it as the floor", persisted)
			g.last = persisted
		}
	}

	return g, nil
}

// Begin validates candidate and, if it is admissible, returns a witness that
// can commit it. The guard stays locked until the witness is resolved.
func (g *ReplayGuard) Begin(candidate uint64) (*Witness, error) {
	g.mu.Lock()

	if candidate <= g.last {
		g.mu.Unlock()
		return nil, ErrNonceFromPast
	}
	horizon := uint64(g.now().Add(g.leeway).UnixMilli())
	if candidate > horizon {
		g.mu.Unlock()
		return nil, ErrNonceFromFuture
	}

	return &Witness{guard: g, candidate: candidate}, nil
}

// Last returns the highest committed nonce.
func (g *ReplayGuard) Last() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// Commit advances the guard to the witness's candidate and persists it.
//
// A persistence failure is logged but does not fail the request; the
// in-memory guard has already advanced, so the request stays unreplayable for
// the lifetime of this process.
func (w *Witness) Commit() {
	g := w.guard
	g.last = w.candidate
	if g.store != nil {
		if err := g.store.Save(w.candidate); err != nil {
			logger.Error("Failed to persist committed nonce %d: %v", w.candidate, err)
		}
	}
	g.mu.Unlock()
}

// Discard abandons the pending update, leaving the stored nonce untouched.
// Used when a later check (the secret) fails.
func (w *Witness) Discard() {
	w.guard.mu.Unlock()
}

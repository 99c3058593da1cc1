package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remotectl/pkg/replay/memory"
)

// fixedClock returns a now() func pinned to a single instant.
func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func newTestGuard(t *testing.T, leeway time.Duration) (*ReplayGuard, uint64) {
	t.Helper()

	start := time.Now()
	guard, err := newReplayGuard(leeway, nil, fixedClock(start))
	require.NoError(t, err)

	return guard, uint64(start.UnixMilli())
}

func TestBegin_RejectsPastAndTies(t *testing.T) {
	guard, now := newTestGuard(t, 2*time.Second)

	_, err := guard.Begin(now - 1)
	assert.ErrorIs(t, err, ErrNonceFromPast)

	// Ties are rejected too; the sequence is strictly increasing.
	_, err = guard.Begin(now)
	assert.ErrorIs(t, err, ErrNonceFromPast)
}

func TestBegin_RejectsBeyondLeeway(t *testing.T) {
	guard, now := newTestGuard(t, 2*time.Second)

	_, err := guard.Begin(now + 5000)
	assert.ErrorIs(t, err, ErrNonceFromFuture)

	// Exactly at the horizon is still admissible.
	w, err := guard.Begin(now + 2000)
	require.NoError(t, err)
	w.Discard()
}

func TestCommit_AdvancesValue(t *testing.T) {
	guard, now := newTestGuard(t, 2*time.Second)

	w, err := guard.Begin(now + 1)
	require.NoError(t, err)
	w.Commit()

	assert.Equal(t, now+1, guard.Last())

	// The committed value is now the floor.
	_, err = guard.Begin(now + 1)
	assert.ErrorIs(t, err, ErrNonceFromPast)
}

func TestDiscard_LeavesValueUntouched(t *testing.T) {
	guard, now := newTestGuard(t, 2*time.Second)

	w, err := guard.Begin(now + 100)
	require.NoError(t, err)
	w.Discard()

	assert.Equal(t, now, guard.Last())

	// The discarded nonce is still admissible afterwards.
	w, err = guard.Begin(now + 100)
	require.NoError(t, err)
	w.Commit()
	assert.Equal(t, now+100, guard.Last())
}

func TestCommit_PersistsThroughStore(t *testing.T) {
	store := memory.NewMemoryNonceStore()
	start := time.Now()
	guard, err := newReplayGuard(2*time.Second, store, fixedClock(start))
	require.NoError(t, err)

	now := uint64(start.UnixMilli())
	w, err := guard.Begin(now + 7)
	require.NoError(t, err)
	w.Commit()

	saved, ok := store.Last()
	assert.True(t, ok)
	assert.Equal(t, now+7, saved)
}

func TestNewReplayGuard_PersistedValueAheadOfClockWins(t *testing.T) {
	store := memory.NewMemoryNonceStore()
	start := time.Now()
	ahead := uint64(start.UnixMilli()) + 60_000
	require.NoError(t, store.Save(ahead))

	// Fake a persisted high-water mark from a clock that has since gone back.
	guard, err := newReplayGuard(2*time.Second, &loadableStore{nonce: ahead}, fixedClock(start))
	require.NoError(t, err)

	assert.Equal(t, ahead, guard.Last())
}

// loadableStore is a stub whose Load reports a persisted value.
type loadableStore struct {
	nonce uint64
}

func (s *loadableStore) Load() (uint64, bool, error) { return s.nonce, true, nil }
func (s *loadableStore) Save(uint64) error           { return nil }
func (s *loadableStore) Close() error                { return nil }

func TestGuard_ConcurrentCommitsStayStrictlyIncreasing(t *testing.T) {
	guard, now := newTestGuard(t, time.Hour)

	const workers = 16
	var wg sync.WaitGroup
	succeeded := make([]bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, err := guard.Begin(now + uint64(i%4) + 1)
			if err != nil {
				return
			}
			w.Commit()
			succeeded[i] = true
		}(i)
	}
	wg.Wait()

	// Whatever interleaving happened, the final value is one of the four
	// candidates and at least one commit went through.
	last := guard.Last()
	assert.GreaterOrEqual(t, last, now+1)
	assert.LessOrEqual(t, last, now+4)

	var any bool
	for _, ok := range succeeded {
		any = any || ok
	}
	assert.True(t, any)
}

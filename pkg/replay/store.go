// Package replay defines persistence for the replay guard's high-water mark.
//
// The guard itself (pkg/auth) only needs three operations: load the last
// committed nonce at startup, save a newly committed nonce, and close. Two
// implementations exist:
//   - memory: nothing survives a restart; the guard falls back to the wall
//     clock, which already closes the restart-replay window
//   - badger: the high-water mark survives restarts, protecting against a
//     server clock that jumped backwards while the process was down
package replay

// NonceStore persists the last committed nonce value.
//
// Implementations must be safe for use from a single goroutine at a time;
// the replay guard serializes all access under its own lock.
type NonceStore interface {
	// Load returns the persisted nonce and whether one was present.
	Load() (uint64, bool, error)

	// Save records a newly committed nonce. Values are committed in strictly
	// increasing order, so Save never observes a regression.
	Save(nonce uint64) error

	// Close releases any underlying resources.
	Close() error
}

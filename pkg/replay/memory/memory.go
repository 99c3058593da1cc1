// Package memory provides a non-persistent NonceStore.
package memory

// MemoryNonceStore keeps the high-water mark in process memory only.
//
// Load always reports absence so the replay guard seeds itself from the wall
// clock, which is the behavior wanted when persistence is disabled: anything
// sent before server start is stale by construction.
type MemoryNonceStore struct {
	nonce uint64
	saved bool
}

// NewMemoryNonceStore creates an empty in-memory store.
func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{}
}

// Load reports no persisted value. The stored value is intentionally not
// returned: a value that cannot outlive the process adds nothing over the
// guard's own state.
func (s *MemoryNonceStore) Load() (uint64, bool, error) {
	return 0, false, nil
}

// Save records the nonce. Kept for interface symmetry and for tests that
// inspect the last committed value.
func (s *MemoryNonceStore) Save(nonce uint64) error {
	s.nonce = nonce
	s.saved = true
	return nil
}

// Last returns the most recently saved nonce, if any.
func (s *MemoryNonceStore) Last() (uint64, bool) {
	return s.nonce, s.saved
}

// Close is a no-op.
func (s *MemoryNonceStore) Close() error {
	return nil
}

// Package badger provides a BadgerDB-backed NonceStore.
package badger

import (
	"encoding/binary"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"remotectl/internal/logger"
)

// nonceKey is the single key holding the committed high-water mark.
var nonceKey = []byte("replay/last_nonce")

// BadgerNonceStore persists the replay guard's high-water mark in BadgerDB.
//
// Persistence matters in one scenario the in-memory guard cannot cover: the
// server clock moved backwards while the process was down. On restart the
// guard seeds itself from max(now, persisted value), so nonces accepted by the
// previous process stay burned.
//
// The store holds a single 8-byte value, so none of BadgerDB's caching knobs
// are worth tuning here; the options below just keep the footprint small.
type BadgerNonceStore struct {
	db *badger.DB
}

// BadgerNonceStoreConfig configures the BadgerDB nonce store.
type BadgerNonceStoreConfig struct {
	// DBPath is the directory for the BadgerDB files. Required.
	DBPath string `mapstructure:"db_path"`

	// SyncWrites forces an fsync on every commit. Slower, but the high-water
	// mark can never run behind what clients were told was accepted.
	SyncWrites bool `mapstructure:"sync_writes"`
}

// NewBadgerNonceStore opens (or creates) the database at the configured path.
//
// Returns an error if the path is empty or BadgerDB cannot be opened.
func NewBadgerNonceStore(config BadgerNonceStoreConfig) (*BadgerNonceStore, error) {
	if config.DBPath == "" {
		return nil, fmt.Errorf("badger nonce store: db path is required")
	}

	opts := badger.DefaultOptions(config.DBPath)
	opts = opts.WithLoggingLevel(badger.WARNING) // Reduce log noise
	opts = opts.WithCompression(options.None)    // One tiny value, compression is pure overhead
	opts = opts.WithSyncWrites(config.SyncWrites)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	logger.Debug("Opened replay nonce store at %s (sync_writes=%v)", config.DBPath, config.SyncWrites)

	return &BadgerNonceStore{db: db}, nil
}

// Load reads the persisted high-water mark.
//
// A missing key is not an error; it means this is a fresh database.
func (s *BadgerNonceStore) Load() (uint64, bool, error) {
	var nonce uint64
	var found bool

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nonceKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt nonce value: %d bytes", len(val))
			}
			nonce = binary.BigEndian.Uint64(val)
			found = true
			return nil
		})
	})
	if err != nil {
		return 0, false, fmt.Errorf("load nonce: %w", err)
	}

	return nonce, found, nil
}

// Save writes the committed nonce.
func (s *BadgerNonceStore) Save(nonce uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(nonceKey, buf[:])
	})
	if err != nil {
		return fmt.Errorf("save nonce: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *BadgerNonceStore) Close() error {
	return s.db.Close()
}

// Package auth implements the shared-secret authentication scheme of the
// control protocol: a validated key, a replay guard over a monotonically
// increasing nonce, and the header check that ties the two together.
//
// The secret a client sends is never the key itself. It is
// hex(sha512(decimal(nonce) || key)), so a captured (Nonce, Secret) pair
// cannot be replayed (the guard rejects reused nonces) and cannot be reused
// for a different nonce (the hash binds the two).
package auth

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strconv"
)

// KeySize is the exact length a key must have, in bytes.
const KeySize = 32

// Key is the shared secret agreed out-of-band with the client.
//
// A Key can only be obtained through NewKey, so any Key value in the program
// has already passed validation. The raw value is deliberately kept out of
// String/GoString output so it cannot leak through logging.
type Key struct {
	raw string
}

// KeyError describes why a key was rejected at construction.
type KeyError struct {
	reason string
}

func (e *KeyError) Error() string {
	return e.reason
}

// NewKey validates s and returns it as a Key.
//
// The policy is strict: exactly KeySize bytes, printable ASCII only (no tabs
// or newlines), and no leading or trailing space.
func NewKey(s string) (Key, error) {
	if len(s) != KeySize {
		return Key{}, &KeyError{fmt.Sprintf("key has the wrong size (expected %d bytes, got %d)", KeySize, len(s))}
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return Key{}, &KeyError{"key contains invalid characters. keys can only contain printable ascii characters (no \\n, or \\t)"}
		}
	}
	if s[0] == ' ' || s[len(s)-1] == ' ' {
		return Key{}, &KeyError{"key can't begin or end with a space"}
	}
	return Key{raw: s}, nil
}

// Secret computes the proof value for a nonce: the hex-encoded SHA-512 of the
// nonce's decimal representation followed by the raw key bytes. The order
// matters; clients must hash nonce first, key second.
func (k Key) Secret(nonce uint64) string {
	h := sha512.New()
	h.Write([]byte(strconv.FormatUint(nonce, 10)))
	h.Write([]byte(k.raw))
	return hex.EncodeToString(h.Sum(nil))
}

// IsZero reports whether k is the zero value (never produced by NewKey).
func (k Key) IsZero() bool {
	return k.raw == ""
}

// String redacts the key. The raw value is intentionally unreachable from
// format verbs.
func (k Key) String() string {
	return "Key(...)"
}

// GoString redacts the key for %#v as well.
func (k Key) GoString() string {
	return "auth.Key(...)"
}

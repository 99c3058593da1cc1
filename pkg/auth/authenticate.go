package auth

import (
	"crypto/subtle"
	"errors"
	"strconv"
)

var (
	// ErrMissingSecret is returned when the Secret header is absent.
	ErrMissingSecret = errors.New("secret header not found")

	// ErrMissingNonce is returned when the Nonce header is absent.
	ErrMissingNonce = errors.New("nonce header not found")

	// ErrMalformedHeaders is returned when the Nonce header is not an
	// unsigned integer.
	ErrMalformedHeaders = errors.New("a header is malformed")

	// ErrInvalidKey is returned when the received secret does not match the
	// one derived from the key and nonce.
	ErrInvalidKey = errors.New("key is invalid")
)

// Header names, matched case-sensitively.
const (
	HeaderNonce  = "Nonce"
	HeaderSecret = "Secret"
)

// Authenticate checks a request's auth headers against the key and the replay
// guard.
//
// The order of operations is load-bearing:
//  1. Both headers must be present and the nonce must parse.
//  2. guard.Begin validates freshness and reserves the nonce.
//  3. The expected secret is derived and compared in constant time.
//  4. Only a matching secret commits the reserved nonce; a mismatch discards
//     it so a wrong-secret request can never burn a nonce value.
//
// A nil return is the only proof of authentication the rest of the server
// relies on.
func Authenticate(headers map[string]string, key Key, guard *ReplayGuard) error {
	secret, ok := headers[HeaderSecret]
	if !ok {
		return ErrMissingSecret
	}

	rawNonce, ok := headers[HeaderNonce]
	if !ok {
		return ErrMissingNonce
	}
	nonce, err := strconv.ParseUint(rawNonce, 10, 64)
	if err != nil {
		return ErrMalformedHeaders
	}

	witness, err := guard.Begin(nonce)
	if err != nil {
		return err
	}

	expected := key.Secret(nonce)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(secret)) != 1 {
		witness.Discard()
		return ErrInvalidKey
	}

	witness.Commit()
	return nil
}

package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedHTTP is returned when the request line is missing,
	// incomplete, or carries an unsupported method.
	ErrMalformedHTTP = errors.New("http is malformed")
)

// IllegalEndpointError is returned for paths that are rejected outright,
// before authentication, so browser probe traffic can never burn a nonce.
type IllegalEndpointError struct {
	Path string
}

func (e *IllegalEndpointError) Error() string {
	return fmt.Sprintf("tried to reach illegal endpoint %s", e.Path)
}

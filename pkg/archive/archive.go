// Package archive persists binary action output. When an action produces
// binary content (a screenshot), the server can keep a server-side copy in a
// configured artifact store in addition to returning the bytes to the client.
//
// Two implementations exist:
//   - fs: local filesystem directory
//   - s3: Amazon S3 or S3-compatible storage
//
// Archiving is best-effort: a failed Put is logged but never fails the
// request that produced the artifact.
package archive

import "context"

// Store is the artifact persistence interface.
//
// Keys are opaque relative paths chosen by the caller (for example
// "screenshot/20260831T120000Z-<id>.png"). Implementations must be safe for
// concurrent use.
type Store interface {
	// Put stores an artifact under the given key, overwriting any previous
	// artifact with the same key.
	Put(ctx context.Context, key string, data []byte) error

	// Get retrieves a previously stored artifact.
	Get(ctx context.Context, key string) ([]byte, error)

	// Close releases any resources held by the store.
	Close() error
}

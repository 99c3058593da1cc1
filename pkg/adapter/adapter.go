package adapter

import (
	"context"
)

// Adapter represents a protocol-specific server adapter managed by the
// Server orchestrator.
//
// Lifecycle:
//  1. Creation: adapter is created with protocol-specific configuration
//  2. Startup: Serve() starts the listener and blocks until shutdown
//  3. Shutdown: Stop() initiates graceful shutdown with timeout
//
// Thread safety:
// Implementations must be safe for concurrent use. Stop() may be called
// concurrently with Serve().
type Adapter interface {
	// Serve starts the protocol server and blocks until the context is
	// cancelled or an unrecoverable error occurs.
	//
	// When the context is cancelled, Serve must initiate graceful shutdown:
	// stop accepting new connections, wait for active connections to
	// complete (with timeout), clean up resources. If Serve returns before
	// context cancellation, the orchestrator treats it as a fatal error and
	// stops all other adapters.
	Serve(ctx context.Context) error

	// Stop initiates graceful shutdown. Must be idempotent, safe to call
	// concurrently with Serve(), and must respect the context timeout.
	Stop(ctx context.Context) error

	// Protocol returns the human-readable protocol name for logging and
	// metrics. Constant for the lifecycle of the adapter.
	Protocol() string

	// Port returns the TCP port the adapter is listening on. Used for
	// logging and health checks.
	Port() int
}

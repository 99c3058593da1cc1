// Package control implements the TCP control adapter: a listener loop that
// speaks the minimal HTTP-like control protocol. Each accepted connection
// carries exactly one request, which is parsed, authenticated against the
// shared key and replay guard, dispatched to an action handler, answered,
// and closed.
package control

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"remotectl/internal/logger"
	"remotectl/pkg/auth"
	"remotectl/pkg/dispatch"
	"remotectl/pkg/metrics"
)

// ControlAdapter implements the adapter.Adapter interface for the control
// protocol.
//
// The adapter manages the TCP listener and connection lifecycle. Each
// accepted connection is handled by a ControlConnection in its own
// goroutine. Graceful shutdown is coordinated via context cancellation and
// a wait group.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. Listener closed (no new connections)
//  3. shutdownCtx cancelled (signals in-flight requests to abort)
//  4. Wait for active connections to complete (up to ShutdownTimeout)
//  5. Force-close any remaining connections after timeout
//
// Thread safety:
// All methods are safe for concurrent use. The shutdown mechanism uses
// sync.Once so Stop() may be called multiple times.
type ControlAdapter struct {
	config ControlConfig

	// key and guard are shared by every connection; the guard serializes
	// nonce validation-then-commit across concurrent handlers.
	key   auth.Key
	guard *auth.ReplayGuard

	// mux routes authenticated requests to action handlers.
	mux *dispatch.Mux

	// events receives connection lifecycle notifications.
	events EventLogger

	// metrics provides optional Prometheus metrics collection.
	metrics metrics.ControlMetrics

	// listener is closed during shutdown to stop accepting new connections.
	listener net.Listener

	// activeConns tracks in-flight connections for graceful shutdown.
	activeConns sync.WaitGroup

	// shutdownOnce protects the shutdown channel close and listener cleanup.
	shutdownOnce sync.Once

	// shutdown is closed by initiateShutdown(), monitored by Serve().
	shutdown chan struct{}

	// connCount tracks the current number of active connections.
	connCount atomic.Int32

	// connSemaphore limits concurrent connections when MaxConnections > 0.
	// nil means unlimited.
	connSemaphore chan struct{}

	// shutdownCtx is cancelled during shutdown to abort in-flight requests.
	shutdownCtx    context.Context
	cancelRequests context.CancelFunc

	// activeConnections maps remote address to net.Conn for forced closure.
	activeConnections sync.Map
}

// ControlConfig holds configuration parameters for the control server.
//
// Default values (applied by New if zero):
//   - Address: 0.0.0.0
//   - ReadTimeout: 2s
//   - WriteTimeout: 2s
//   - ReadBufferSize: 4096
//   - ShutdownTimeout: 30s
//
// Port has no default: the adapter refuses to start without one.
type ControlConfig struct {
	// Address is the IP address to listen on.
	Address string `mapstructure:"address"`

	// Port is the TCP port to listen on. Required.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// MaxConnections limits the number of concurrent client connections.
	// 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" validate:"min=0"`

	// ReadTimeout bounds the single request read. A stalled client is
	// abandoned when it expires.
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds the response write.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`

	// ReadBufferSize is the size of the request read buffer. Requests
	// larger than one read into this buffer are not supported.
	ReadBufferSize int `mapstructure:"read_buffer_size" validate:"min=0"`

	// ShutdownTimeout is the maximum duration to wait for active
	// connections during graceful shutdown. After it expires, remaining
	// connections are forcibly closed.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
}

func (c *ControlConfig) applyDefaults() {
	if c.Address == "" {
		c.Address = "0.0.0.0"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 2 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 2 * time.Second
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = 4096
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

func (c *ControlConfig) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 1-65535", c.Port)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("invalid MaxConnections %d: must be >= 0", c.MaxConnections)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("invalid ReadTimeout %v: must be >= 0", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("invalid WriteTimeout %v: must be >= 0", c.WriteTimeout)
	}
	if c.ReadBufferSize < 128 {
		return fmt.Errorf("invalid ReadBufferSize %d: must be >= 128", c.ReadBufferSize)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	return nil
}

// New creates a ControlAdapter.
//
// Zero config values are replaced with defaults; an invalid configuration
// is returned as an error rather than deferred to Serve(). events and
// controlMetrics may be nil, in which case the log-backed event logger and
// no-op metrics are used.
func New(
	config ControlConfig,
	key auth.Key,
	guard *auth.ReplayGuard,
	mux *dispatch.Mux,
	events EventLogger,
	controlMetrics metrics.ControlMetrics,
) (*ControlAdapter, error) {
	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid control config: %w", err)
	}
	if key.IsZero() {
		return nil, fmt.Errorf("control adapter requires a key")
	}
	if guard == nil {
		return nil, fmt.Errorf("control adapter requires a replay guard")
	}
	if mux == nil {
		return nil, fmt.Errorf("control adapter requires a dispatch mux")
	}

	var connSemaphore chan struct{}
	if config.MaxConnections > 0 {
		connSemaphore = make(chan struct{}, config.MaxConnections)
		logger.Debug("Control connection limit: %d", config.MaxConnections)
	} else {
		logger.Debug("Control connection limit: unlimited")
	}

	if events == nil {
		events = NewLogEventLogger()
	}
	if controlMetrics == nil {
		controlMetrics = metrics.NewNoopControlMetrics()
	}

	shutdownCtx, cancelRequests := context.WithCancel(context.Background())

	return &ControlAdapter{
		config:         config,
		key:            key,
		guard:          guard,
		mux:            mux,
		events:         events,
		metrics:        controlMetrics,
		shutdown:       make(chan struct{}),
		connSemaphore:  connSemaphore,
		shutdownCtx:    shutdownCtx,
		cancelRequests: cancelRequests,
	}, nil
}

// Serve starts the control server and blocks until the context is cancelled
// or an unrecoverable error occurs.
//
// Each accepted connection is handled to completion in its own goroutine;
// accept errors are logged and the loop continues. Only a failure to bind
// the listening socket is fatal.
func (s *ControlAdapter) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.config.Address, s.config.Port))
	if err != nil {
		return fmt.Errorf("failed to create control listener on %s:%d: %w",
			s.config.Address, s.config.Port, err)
	}

	s.listener = listener
	s.events.Info(fmt.Sprintf("control server listening on %s:%d", s.config.Address, s.config.Port))
	logger.Debug("Control config: max_connections=%d read_timeout=%v write_timeout=%v buffer=%d",
		s.config.MaxConnections, s.config.ReadTimeout, s.config.WriteTimeout, s.config.ReadBufferSize)

	// Monitor context cancellation separately so the accept loop stays hot.
	go func() {
		<-ctx.Done()
		logger.Info("Control shutdown signal received: %v", ctx.Err())
		s.initiateShutdown()
	}()

	for {
		if s.connSemaphore != nil {
			select {
			case s.connSemaphore <- struct{}{}:
			case <-s.shutdown:
				return s.gracefulShutdown()
			}
		}

		tcpConn, err := s.listener.Accept()
		if err != nil {
			if s.connSemaphore != nil {
				<-s.connSemaphore
			}

			select {
			case <-s.shutdown:
				// Expected: listener was closed during shutdown.
				return s.gracefulShutdown()
			default:
				s.events.ServerError(fmt.Errorf("accept failed: %w", err))
				continue
			}
		}

		s.activeConns.Add(1)
		s.connCount.Add(1)

		connAddr := tcpConn.RemoteAddr().String()
		s.activeConnections.Store(connAddr, tcpConn)

		s.metrics.RecordConnectionAccepted()
		currentConns := s.connCount.Load()
		s.metrics.SetActiveConnections(currentConns)

		logger.Debug("Control connection accepted from %s (active: %d)", connAddr, currentConns)

		conn := newControlConnection(s, tcpConn)
		go func(addr string, tcp net.Conn) {
			defer func() {
				s.activeConnections.Delete(addr)

				s.activeConns.Done()
				s.connCount.Add(-1)
				if s.connSemaphore != nil {
					<-s.connSemaphore
				}

				s.metrics.RecordConnectionClosed()
				currentConns := s.connCount.Load()
				s.metrics.SetActiveConnections(currentConns)

				logger.Debug("Control connection closed from %s (active: %d)", addr, currentConns)
			}()

			conn.Serve(s.shutdownCtx)
		}(connAddr, tcpConn)
	}
}

// initiateShutdown signals the server to begin graceful shutdown. Safe to
// call multiple times and from multiple goroutines.
func (s *ControlAdapter) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("Control shutdown initiated")

		close(s.shutdown)

		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("Error closing control listener: %v", err)
			}
		}

		s.cancelRequests()
	})
}

// gracefulShutdown waits for active connections to complete or the shutdown
// timeout to expire, then force-closes any stragglers.
func (s *ControlAdapter) gracefulShutdown() error {
	activeCount := s.connCount.Load()
	logger.Info("Control graceful shutdown: waiting for %d active connection(s) (timeout: %v)",
		activeCount, s.config.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Control graceful shutdown complete: all connections closed")
		return nil

	case <-time.After(s.config.ShutdownTimeout):
		remaining := s.connCount.Load()
		logger.Warn("Control shutdown timeout exceeded: %d connection(s) still active after %v - forcing closure",
			remaining, s.config.ShutdownTimeout)

		s.forceCloseConnections()

		return fmt.Errorf("control shutdown timeout: %d connections force-closed", remaining)
	}
}

// forceCloseConnections closes all tracked TCP connections so stuck reads
// and writes fail immediately.
func (s *ControlAdapter) forceCloseConnections() {
	closedCount := 0
	s.activeConnections.Range(func(key, value any) bool {
		addr := key.(string)
		conn := value.(net.Conn)

		if err := conn.Close(); err != nil {
			logger.Debug("Error force-closing connection to %s: %v", addr, err)
		} else {
			closedCount++
		}
		return true
	})

	if closedCount > 0 {
		logger.Info("Force-closed %d connection(s)", closedCount)
	}
}

// Stop initiates graceful shutdown of the control server. Safe to call
// multiple times and concurrently with Serve().
func (s *ControlAdapter) Stop(ctx context.Context) error {
	s.initiateShutdown()

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.forceCloseConnections()
		return ctx.Err()
	}
}

// Protocol returns the protocol name for logging and metrics.
func (s *ControlAdapter) Protocol() string {
	return "control"
}

// Port returns the TCP port the adapter listens on.
func (s *ControlAdapter) Port() int {
	return s.config.Port
}

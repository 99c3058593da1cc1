// Package server orchestrates the lifecycle of protocol adapters: the
// control adapter and any auxiliary servers (metrics) run concurrently and
// shut down together.
package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"remotectl/internal/logger"
	"remotectl/pkg/adapter"
)

// Server manages the lifecycle of registered protocol adapters.
//
// Lifecycle:
//  1. Creation: New()
//  2. Registration: AddAdapter() for each protocol
//  3. Startup: Serve() starts all adapters concurrently
//  4. Shutdown: context cancellation triggers graceful shutdown of all
//     adapters, in reverse registration order
//
// Thread safety:
// AddAdapter() may be called concurrently before Serve(). Serve() must only
// be called once.
type Server struct {
	// adapters contains all registered protocol adapters.
	adapters []adapter.Adapter

	// mu protects the adapters slice and the served flag.
	mu sync.Mutex

	// served indicates whether Serve() has been called.
	served bool
}

// New creates an empty Server. Call AddAdapter() to register protocols,
// then Serve() to start.
func New() *Server {
	return &Server{
		adapters: make([]adapter.Adapter, 0, 2),
	}
}

// AddAdapter registers a protocol adapter. Duplicate protocols and port
// conflicts are rejected. Must not be called after Serve().
func (s *Server) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		panic("cannot add adapter after Serve() has been called")
	}

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		if existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	s.adapters = append(s.adapters, a)
	logger.Info("Registered %s adapter on port %d", protocol, port)

	return nil
}

// Serve starts all registered adapters and blocks until the context is
// cancelled or an adapter fails.
//
// When either happens, all adapters receive Stop() in reverse registration
// order and Serve() waits for them to finish before returning.
//
// Returns:
//   - context.Canceled when shutdown was triggered by context cancellation
//   - the adapter error when an adapter failed
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		panic("Serve() has already been called on this server instance")
	}
	s.served = true

	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	s.mu.Unlock()

	logger.Info("Starting server with %d adapter(s)", len(adapters))

	// Buffered so adapter goroutines never block reporting a failure.
	errChan := make(chan adapterError, len(adapters))

	var wg sync.WaitGroup

	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			logger.Info("Starting %s adapter on port %d", protocol, a.Port())

			if err := a.Serve(ctx); err != nil {
				// context.Canceled is expected during shutdown.
				if err != context.Canceled && ctx.Err() == nil {
					logger.Error("%s adapter failed: %v", protocol, err)
					errChan <- adapterError{protocol: protocol, err: err}
				} else {
					logger.Debug("%s adapter stopped gracefully", protocol)
				}
			} else {
				logger.Info("%s adapter stopped", protocol)
			}
		}(adp)
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		s.stopAllAdapters(adapters)
		shutdownErr = ctx.Err()

	case adapterErr := <-errChan:
		logger.Error("Adapter %s failed: %v - stopping all adapters",
			adapterErr.protocol, adapterErr.err)
		s.stopAllAdapters(adapters)
		shutdownErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)
	}

	wg.Wait()
	logger.Info("Server stopped")

	return shutdownErr
}

// adapterError pairs an adapter protocol name with its error.
type adapterError struct {
	protocol string
	err      error
}

// stopAllAdapters signals graceful shutdown in reverse registration order.
// A single misbehaving adapter cannot block shutdown beyond the timeout.
func (s *Server) stopAllAdapters(adapters []adapter.Adapter) {
	const stopTimeout = 30 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		protocol := adp.Protocol()

		if err := adp.Stop(ctx); err != nil && err != context.Canceled {
			logger.Error("Error stopping %s adapter: %v", protocol, err)
		} else {
			logger.Debug("%s adapter stop signal sent", protocol)
		}
	}
}

// Adapters returns a snapshot of currently registered adapters.
func (s *Server) Adapters() []adapter.Adapter {
	s.mu.Lock()
	defer s.mu.Unlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}

// Package dispatch routes authenticated requests to action handlers by path.
//
// The mux is deliberately small: exact path match only, no wildcards, no
// method-based routing. Handlers own their failures and return an error
// response (typically status 500) instead of signalling a fault to the
// connection loop.
package dispatch

import (
	"context"
	"sync"

	"remotectl/internal/logger"
	"remotectl/pkg/protocol"
)

// HandlerFunc processes a single authenticated request and produces the
// response to write back. It is invoked synchronously, exactly once per
// request, and must not panic; a handler that fails internally returns an
// error response itself.
type HandlerFunc func(ctx context.Context, req *protocol.Request) *protocol.Response

// handlerInfo carries a handler plus its name for logging.
type handlerInfo struct {
	Name    string
	Handler HandlerFunc
}

// Mux maps request paths to handlers. The zero value is not usable; call
// NewMux. Registration normally happens once during startup, but the table
// is guarded so late registration during tests is safe.
type Mux struct {
	mu    sync.RWMutex
	table map[string]*handlerInfo
}

// NewMux creates an empty mux.
func NewMux() *Mux {
	return &Mux{
		table: make(map[string]*handlerInfo),
	}
}

// Register binds a handler to an exact path. Registering the same path twice
// replaces the previous handler.
func (m *Mux) Register(path string, name string, handler HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.table[path] = &handlerInfo{
		Name:    name,
		Handler: handler,
	}
}

// Paths returns the registered paths, for startup logging.
func (m *Mux) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	paths := make([]string, 0, len(m.table))
	for path := range m.table {
		paths = append(paths, path)
	}
	return paths
}

// Dispatch looks up the handler for the request path and invokes it. An
// unregistered path yields a 404 response without reaching any handler.
func (m *Mux) Dispatch(ctx context.Context, req *protocol.Request) *protocol.Response {
	m.mu.RLock()
	info, found := m.table[req.Path]
	m.mu.RUnlock()

	if !found {
		logger.Warn("No handler registered for path %s", req.Path)
		return protocol.FromStatus(404)
	}

	logger.Debug("Dispatching %s %s to %s", req.Method, req.Path, info.Name)
	return info.Handler(ctx, req)
}

package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"

	"remotectl/internal/logger"
	"remotectl/pkg/auth"
	"remotectl/pkg/protocol"
)

// ControlConnection handles one accepted TCP connection: a single
// parse → authenticate → dispatch → respond cycle, then close.
type ControlConnection struct {
	server *ControlAdapter
	conn   net.Conn

	// id correlates the connection's log lines.
	id string
}

func newControlConnection(server *ControlAdapter, conn net.Conn) *ControlConnection {
	return &ControlConnection{
		server: server,
		conn:   conn,
		id:     uuid.NewString(),
	}
}

// Serve processes the connection's single request. Panic recovery prevents a
// misbehaving connection from crashing the server; the connection is always
// closed on return.
func (c *ControlConnection) Serve(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in connection handler from %s: %v", c.remoteAddr(), r)
		}
		_ = c.conn.Close()
	}()

	select {
	case <-ctx.Done():
		logger.Debug("Connection from %s closed due to shutdown", c.remoteAddr())
		return
	default:
	}

	// A stalled client must never block the server. If the deadlines cannot
	// be set, the connection is abandoned without a response.
	if err := c.conn.SetReadDeadline(time.Now().Add(c.server.config.ReadTimeout)); err != nil {
		c.server.events.ServerError(fmt.Errorf("failed to set read deadline for %s: %w", c.remoteAddr(), err))
		return
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.server.config.WriteTimeout)); err != nil {
		c.server.events.ServerError(fmt.Errorf("failed to set write deadline for %s: %w", c.remoteAddr(), err))
		return
	}

	// One read; headers are expected to fit in a single buffer.
	buf := make([]byte, c.server.config.ReadBufferSize)
	n, err := c.conn.Read(buf)
	if err != nil {
		if err == io.EOF {
			logger.Debug("Connection from %s closed by client", c.remoteAddr())
		} else if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			logger.Debug("Connection from %s timed out reading request", c.remoteAddr())
		} else {
			c.server.events.ServerError(fmt.Errorf("failed to read request from %s: %w", c.remoteAddr(), err))
		}
		return
	}

	start := time.Now()

	raw, err := protocol.ParseRequest(buf[:n])
	if err != nil {
		c.reject(err)
		return
	}

	if err := auth.Authenticate(raw.Headers, c.server.key, c.server.guard); err != nil {
		c.reject(err)
		return
	}

	// Authentication passed; only now does a Request value exist.
	req := &protocol.Request{
		Method: raw.Method,
		Path:   raw.Path,
	}

	c.server.events.Info(fmt.Sprintf("[%s] %s %s from %s", c.id, req.Method, req.Path, c.remoteAddr()))

	resp := c.server.mux.Dispatch(ctx, req)
	c.write(resp)

	c.server.metrics.RecordRequest(req.Path, resp.Status, time.Since(start))
}

// reject synthesizes and writes the error response mapped from a parse or
// authentication failure. The error message is the response body; secret
// material never appears in it.
func (c *ControlConnection) reject(cause error) {
	c.server.metrics.RecordAuthFailure(failureReason(cause))
	c.server.events.ConnectionRejected(c.remoteAddr(), cause)

	c.write(protocol.FromMessage(statusFor(cause), cause.Error()))
}

func (c *ControlConnection) write(resp *protocol.Response) {
	if _, err := resp.WriteTo(c.conn); err != nil {
		c.server.events.ServerError(fmt.Errorf("failed to write response to %s: %w", c.remoteAddr(), err))
	}
}

func (c *ControlConnection) remoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// statusFor maps a parse or authentication failure to the response status:
// a wrong secret is 401, everything else is 400.
func statusFor(err error) int {
	if errors.Is(err, auth.ErrInvalidKey) {
		return 401
	}
	return 400
}

// failureReason maps a failure to its metrics label.
func failureReason(err error) string {
	var illegal *protocol.IllegalEndpointError

	switch {
	case errors.Is(err, auth.ErrInvalidKey):
		return "invalid_key"
	case errors.Is(err, auth.ErrNonceFromPast):
		return "nonce_from_past"
	case errors.Is(err, auth.ErrNonceFromFuture):
		return "nonce_from_future"
	case errors.Is(err, auth.ErrMissingNonce):
		return "missing_nonce"
	case errors.Is(err, auth.ErrMissingSecret):
		return "missing_secret"
	case errors.Is(err, auth.ErrMalformedHeaders):
		return "malformed_headers"
	case errors.Is(err, protocol.ErrMalformedHTTP):
		return "malformed_http"
	case errors.As(err, &illegal):
		return "illegal_endpoint"
	default:
		return "other"
	}
}

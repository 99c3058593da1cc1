package control

import (
	"remotectl/internal/logger"
)

// EventLogger receives connection lifecycle notifications from the control
// adapter. It is invoked synchronously at each connection, parse, and
// authentication decision point, so implementations must be fast and safe
// for concurrent use.
//
// Messages never contain secret material.
type EventLogger interface {
	// Info reports general server events, such as listening on a port or a
	// request being served.
	Info(msg string)

	// ConnectionRejected reports a request that was refused before reaching
	// a handler: parse failures, authentication failures, illegal endpoints.
	ConnectionRejected(remoteAddr string, reason error)

	// ServerError reports a server-side fault: accept failures, deadline
	// configuration failures, write failures.
	ServerError(err error)
}

// logEventLogger is the default EventLogger, backed by the process logger.
type logEventLogger struct{}

// NewLogEventLogger returns an EventLogger that writes to the process log.
func NewLogEventLogger() EventLogger {
	return logEventLogger{}
}

func (logEventLogger) Info(msg string) {
	logger.Info("%s", msg)
}

func (logEventLogger) ConnectionRejected(remoteAddr string, reason error) {
	logger.Warn("Rejected connection from %s: %v", remoteAddr, reason)
}

func (logEventLogger) ServerError(err error) {
	logger.Error("Server error: %v", err)
}

// Package metrics provides Prometheus metrics collection for the control
// server.
//
// All metrics are optional - if the registry is never initialized, components
// get no-op implementations with zero overhead, so the server runs the same
// with or without metrics collection enabled.
//
// Usage:
//
//	// Initialize global registry (typically in main.go)
//	metrics.InitRegistry()
//
//	// Create metrics instances for components
//	controlMetrics := metrics.NewControlMetrics()
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is the global Prometheus registry.
	// Protected by registryOnce for write-once, read-many pattern.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// This must be called before creating any metrics instances. Safe to call
// multiple times - subsequent calls are ignored.
//
// If not called, GetRegistry() returns nil and all metrics constructors
// return no-op implementations.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global Prometheus registry, or nil if metrics are
// disabled.
//
// Safe to call concurrently. The sync.Once in InitRegistry() provides a
// happens-before relationship ensuring the registry value is visible.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled returns true if metrics collection is enabled.
func IsEnabled() bool {
	return GetRegistry() != nil
}

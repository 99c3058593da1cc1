package config

import (
	"remotectl/pkg/metrics"
)

// MetricsResult contains all metrics-related components created from
// configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if
	// disabled).
	Server *metrics.Server

	// ControlMetrics is the collector for the control adapter (never nil,
	// no-op when disabled).
	ControlMetrics metrics.ControlMetrics
}

// InitializeMetrics creates all metrics components based on configuration.
//
// When metrics are enabled, the global Prometheus registry is initialized
// and a /metrics HTTP server is created. When disabled, the result carries
// a nil server and no-op collectors with zero overhead.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{
			Server:         nil,
			ControlMetrics: metrics.NewNoopControlMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port: cfg.Server.Metrics.Port,
	})

	return &MetricsResult{
		Server:         server,
		ControlMetrics: metrics.NewControlMetrics(),
	}
}

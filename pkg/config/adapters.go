package config

import (
	"fmt"

	"remotectl/pkg/adapter"
	"remotectl/pkg/adapter/control"
	"remotectl/pkg/auth"
	"remotectl/pkg/dispatch"
	"remotectl/pkg/metrics"
)

// CreateAdapters creates all protocol adapters from the configuration.
//
// Parameters:
//   - cfg: the complete configuration
//   - key: the shared key (from CreateKey)
//   - guard: the shared replay guard
//   - mux: the dispatch mux with action handlers registered
//   - controlMetrics: metrics collector (nil = no metrics)
func CreateAdapters(
	cfg *Config,
	key auth.Key,
	guard *auth.ReplayGuard,
	mux *dispatch.Mux,
	controlMetrics metrics.ControlMetrics,
) ([]adapter.Adapter, error) {
	controlAdapter, err := control.New(cfg.Adapters.Control, key, guard, mux, nil, controlMetrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create control adapter: %w", err)
	}

	return []adapter.Adapter{controlAdapter}, nil
}

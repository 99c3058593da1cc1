package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"remotectl/internal/logger"
	"remotectl/pkg/actions"
	"remotectl/pkg/auth"
	"remotectl/pkg/config"
	"remotectl/pkg/dispatch"
	"remotectl/pkg/server"
)

func main() {
	configPath := flag.String("config", "", "Path to the configuration file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The flag wins over the config file.
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	logger.SetLevel(cfg.Logging.Level)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure log output: %v", err)
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Println("remotectl - authenticated remote control server")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	key, err := config.CreateKey(cfg)
	if err != nil {
		log.Fatalf("Failed to load key: %v", err)
	}

	nonceStore, err := config.CreateReplayStore(ctx, &cfg.Replay)
	if err != nil {
		log.Fatalf("Failed to create replay store: %v", err)
	}
	defer func() {
		if err := nonceStore.Close(); err != nil {
			logger.Error("Failed to close replay store: %v", err)
		}
	}()
	logger.Info("Replay store: %s", cfg.Replay.Type)

	guard, err := auth.NewReplayGuard(cfg.Auth.Leeway, nonceStore)
	if err != nil {
		log.Fatalf("Failed to create replay guard: %v", err)
	}
	logger.Info("Nonce leeway: %v", cfg.Auth.Leeway)

	archiveStore, err := config.CreateArchiveStore(ctx, &cfg.Archive)
	if err != nil {
		log.Fatalf("Failed to create archive store: %v", err)
	}
	if archiveStore != nil {
		defer func() {
			if err := archiveStore.Close(); err != nil {
				logger.Error("Failed to close archive store: %v", err)
			}
		}()
		logger.Info("Artifact archiving enabled (%s)", cfg.Archive.Type)
	}

	// Register the action handlers
	specs := config.CreateActionSpecs(&cfg.Actions)
	runner := actions.NewRunner(cfg.Actions.Timeout, archiveStore)
	mux := dispatch.NewMux()
	runner.RegisterAll(mux, specs)

	configured := 0
	for _, spec := range specs {
		if len(spec.Command) > 0 {
			configured++
		}
	}
	logger.Info("Registered %d action(s), %d with configured commands", len(specs), configured)

	// Metrics server (optional)
	metricsResult := config.InitializeMetrics(cfg)
	if metricsResult.Server != nil {
		go func() {
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
		defer func() {
			if err := metricsResult.Server.Stop(context.Background()); err != nil {
				logger.Error("Failed to stop metrics server: %v", err)
			}
		}()
		logger.Info("Metrics server listening on port %d", cfg.Server.Metrics.Port)
	}

	adapters, err := config.CreateAdapters(cfg, key, guard, mux, metricsResult.ControlMetrics)
	if err != nil {
		log.Fatalf("Failed to create adapters: %v", err)
	}

	srv := server.New()
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			log.Fatalf("Failed to add %s adapter: %v", a.Protocol(), err)
		}
	}

	// Start server in background
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running on port %d. Press Ctrl+C to stop.", cfg.Adapters.Control.Port)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel() // Cancel context to initiate shutdown

		// Wait for server to shut down gracefully
		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		if err != nil {
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped")
	}
}

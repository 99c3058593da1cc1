package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

const testKey = "this is a key and it's 32 bytes."

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return configPath
}

func TestLoad_MinimalConfig(t *testing.T) {
	configPath := writeConfigFile(t, `
auth:
  key: "`+testKey+`"

adapters:
  control:
    port: 4444
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Defaults were applied around the required values.
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Auth.Leeway != 2*time.Second {
		t.Errorf("Expected default leeway 2s, got %v", cfg.Auth.Leeway)
	}
	if cfg.Replay.Type != "memory" {
		t.Errorf("Expected default replay type 'memory', got %q", cfg.Replay.Type)
	}
	if cfg.Adapters.Control.Port != 4444 {
		t.Errorf("Expected control port 4444, got %d", cfg.Adapters.Control.Port)
	}
	if cfg.Adapters.Control.ReadTimeout != 2*time.Second {
		t.Errorf("Expected default read_timeout 2s, got %v", cfg.Adapters.Control.ReadTimeout)
	}
	if cfg.Adapters.Control.ReadBufferSize != 4096 {
		t.Errorf("Expected default read_buffer_size 4096, got %d", cfg.Adapters.Control.ReadBufferSize)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	// Build the fixture through the YAML encoder so structure mistakes in
	// the test itself surface as marshal errors.
	fixture := map[string]any{
		"logging": map[string]any{
			"level":  "debug",
			"output": "stderr",
		},
		"auth": map[string]any{
			"key":    testKey,
			"leeway": "5s",
		},
		"replay": map[string]any{
			"type": "badger",
			"badger": map[string]any{
				"db_path":     "/var/lib/remotectl/replay",
				"sync_writes": true,
			},
		},
		"archive": map[string]any{
			"enabled": true,
			"type":    "filesystem",
			"filesystem": map[string]any{
				"path": "/var/lib/remotectl/artifacts",
			},
		},
		"actions": map[string]any{
			"timeout": "10s",
			"commands": map[string]any{
				"lock":       []string{"loginctl", "lock-session"},
				"screenshot": []string{"grim", "-"},
			},
		},
		"adapters": map[string]any{
			"control": map[string]any{
				"port":            1337,
				"max_connections": 64,
			},
		},
	}

	data, err := yaml.Marshal(fixture)
	if err != nil {
		t.Fatalf("Failed to marshal fixture: %v", err)
	}
	configPath := writeConfigFile(t, string(data))

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized level 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Auth.Leeway != 5*time.Second {
		t.Errorf("Expected leeway 5s, got %v", cfg.Auth.Leeway)
	}
	if cfg.Replay.Type != "badger" {
		t.Errorf("Expected replay type 'badger', got %q", cfg.Replay.Type)
	}
	if cfg.Replay.Badger["db_path"] != "/var/lib/remotectl/replay" {
		t.Errorf("Unexpected badger db_path: %v", cfg.Replay.Badger["db_path"])
	}
	if !cfg.Archive.Enabled {
		t.Error("Expected archive to be enabled")
	}
	if cfg.Actions.Timeout != 10*time.Second {
		t.Errorf("Expected actions timeout 10s, got %v", cfg.Actions.Timeout)
	}
	if len(cfg.Actions.Commands["lock"]) != 2 {
		t.Errorf("Unexpected lock command: %v", cfg.Actions.Commands["lock"])
	}
	if cfg.Adapters.Control.MaxConnections != 64 {
		t.Errorf("Expected max_connections 64, got %d", cfg.Adapters.Control.MaxConnections)
	}
}

func TestLoad_NoConfigFileFailsValidation(t *testing.T) {
	// Without a file there is no key and no port, so loading must fail.
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	if _, err := Load(nonExistentPath); err == nil {
		t.Fatal("Expected validation error without key and port, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfigFile(t, `
auth:
  key: INFO
  invalid yaml here [[[
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for invalid YAML, got nil")
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
}

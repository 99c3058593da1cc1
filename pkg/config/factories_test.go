package config

import (
	"context"
	"testing"
)

func TestCreateKey(t *testing.T) {
	cfg := validTestConfig()

	key, err := CreateKey(cfg)
	if err != nil {
		t.Fatalf("Failed to create key: %v", err)
	}
	if key.IsZero() {
		t.Error("Expected a usable key, got the zero value")
	}
}

func TestCreateReplayStore_Memory(t *testing.T) {
	cfg := &ReplayConfig{Type: "memory"}

	store, err := CreateReplayStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create memory replay store: %v", err)
	}
	defer store.Close()
}

func TestCreateReplayStore_Badger(t *testing.T) {
	cfg := &ReplayConfig{
		Type: "badger",
		Badger: map[string]any{
			"db_path": t.TempDir(),
		},
	}

	store, err := CreateReplayStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create badger replay store: %v", err)
	}
	defer store.Close()
}

func TestCreateReplayStore_BadgerMissingPath(t *testing.T) {
	cfg := &ReplayConfig{Type: "badger", Badger: map[string]any{}}

	if _, err := CreateReplayStore(context.Background(), cfg); err == nil {
		t.Error("Expected error for badger store without db_path, got nil")
	}
}

func TestCreateReplayStore_UnknownType(t *testing.T) {
	cfg := &ReplayConfig{Type: "redis"}

	if _, err := CreateReplayStore(context.Background(), cfg); err == nil {
		t.Error("Expected error for unknown replay store type, got nil")
	}
}

func TestCreateArchiveStore_Disabled(t *testing.T) {
	cfg := &ArchiveConfig{Enabled: false}

	store, err := CreateArchiveStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if store != nil {
		t.Error("Expected nil store when archiving is disabled")
	}
}

func TestCreateArchiveStore_Filesystem(t *testing.T) {
	cfg := &ArchiveConfig{
		Enabled: true,
		Type:    "filesystem",
		Filesystem: map[string]any{
			"path": t.TempDir(),
		},
	}

	store, err := CreateArchiveStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create filesystem archive store: %v", err)
	}
	defer store.Close()

	if err := store.Put(context.Background(), "probe/key.png", []byte("data")); err != nil {
		t.Errorf("Failed to write through store: %v", err)
	}
}

func TestCreateArchiveStore_FilesystemMissingPath(t *testing.T) {
	cfg := &ArchiveConfig{Enabled: true, Type: "filesystem", Filesystem: map[string]any{}}

	if _, err := CreateArchiveStore(context.Background(), cfg); err == nil {
		t.Error("Expected error for filesystem store without path, got nil")
	}
}

func TestCreateArchiveStore_S3MissingBucket(t *testing.T) {
	cfg := &ArchiveConfig{
		Enabled: true,
		Type:    "s3",
		S3: map[string]any{
			"region": "us-east-1",
		},
	}

	if _, err := CreateArchiveStore(context.Background(), cfg); err == nil {
		t.Error("Expected error for s3 store without bucket, got nil")
	}
}

func TestCreateActionSpecs_BindsCommands(t *testing.T) {
	cfg := &ActionsConfig{
		Commands: map[string][]string{
			"lock": {"loginctl", "lock-session"},
			"ping": {"true"},
		},
	}

	specs := CreateActionSpecs(cfg)

	byName := make(map[string][]string)
	for _, spec := range specs {
		byName[spec.Name] = spec.Command
	}

	if len(byName["lock"]) != 2 || byName["lock"][0] != "loginctl" {
		t.Errorf("Unexpected lock command: %v", byName["lock"])
	}
	if len(byName["ping"]) != 1 {
		t.Errorf("Unexpected ping command: %v", byName["ping"])
	}
	// Actions without a configured command keep an empty command.
	if len(byName["sleep"]) != 0 {
		t.Errorf("Expected no command for sleep, got %v", byName["sleep"])
	}
}

func TestCreateActionSpecs_PreservesBinaryFlag(t *testing.T) {
	specs := CreateActionSpecs(&ActionsConfig{})

	for _, spec := range specs {
		if spec.Name == "screenshot" && !spec.Binary {
			t.Error("Expected screenshot to stay a binary action")
		}
		if spec.Name == "ping" && spec.Binary {
			t.Error("Expected ping not to be a binary action")
		}
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	cfg := validTestConfig()
	cfg.Server.Metrics.Enabled = false

	result := InitializeMetrics(cfg)
	if result.Server != nil {
		t.Error("Expected no metrics server when disabled")
	}
	if result.ControlMetrics == nil {
		t.Error("Expected a noop metrics recorder, got nil")
	}
}

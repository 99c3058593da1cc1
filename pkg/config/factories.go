package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"remotectl/internal/logger"
	"remotectl/pkg/actions"
	"remotectl/pkg/archive"
	archiveFs "remotectl/pkg/archive/fs"
	archiveS3 "remotectl/pkg/archive/s3"
	"remotectl/pkg/auth"
	"remotectl/pkg/replay"
	replayBadger "remotectl/pkg/replay/badger"
	"remotectl/pkg/replay/memory"
)

// CreateKey constructs the shared key from configuration.
func CreateKey(cfg *Config) (auth.Key, error) {
	return auth.NewKey(cfg.Auth.Key)
}

// CreateReplayStore creates a nonce store based on configuration.
//
// Supported types:
//   - "memory": committed nonces live only in process memory; a restart
//     falls back to the clock floor
//   - "badger": the high-water mark survives restarts in a BadgerDB
//     database
func CreateReplayStore(ctx context.Context, cfg *ReplayConfig) (replay.NonceStore, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewMemoryNonceStore(), nil
	case "badger":
		return createBadgerReplayStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown replay store type: %q", cfg.Type)
	}
}

func createBadgerReplayStore(ctx context.Context, options map[string]any) (replay.NonceStore, error) {
	var storeCfg replayBadger.BadgerNonceStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger replay store config: %w", err)
	}

	if storeCfg.DBPath == "" {
		return nil, fmt.Errorf("badger replay store: db_path is required")
	}

	store, err := replayBadger.NewBadgerNonceStore(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger replay store: %w", err)
	}

	logger.Info("Badger replay store initialized: path=%s", storeCfg.DBPath)

	return store, nil
}

// CreateArchiveStore creates the artifact archive based on configuration.
// Returns (nil, nil) when archiving is disabled.
//
// Supported types:
//   - "filesystem": local directory
//   - "s3": Amazon S3 or S3-compatible storage
func CreateArchiveStore(ctx context.Context, cfg *ArchiveConfig) (archive.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Type {
	case "filesystem":
		return createFilesystemArchiveStore(ctx, cfg.Filesystem)
	case "s3":
		return createS3ArchiveStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown archive store type: %q", cfg.Type)
	}
}

func createFilesystemArchiveStore(ctx context.Context, options map[string]any) (archive.Store, error) {
	type FilesystemArchiveStoreConfig struct {
		Path string `mapstructure:"path"`
	}

	var storeCfg FilesystemArchiveStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem archive store config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem archive store: path is required")
	}

	store, err := archiveFs.NewFSArchiveStore(ctx, storeCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem archive store: %w", err)
	}

	logger.Info("Filesystem archive store initialized: path=%s", storeCfg.Path)

	return store, nil
}

func createS3ArchiveStore(ctx context.Context, options map[string]any) (archive.Store, error) {
	type S3ArchiveStoreConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeCfg S3ArchiveStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 archive store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 archive store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 archive store: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	// Custom endpoint for S3-compatible storage (MinIO, Localstack).
	if storeCfg.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               storeCfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Static credentials if provided, otherwise the default chain.
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Path-style addressing for compatibility with MinIO/Localstack.
		if storeCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	store, err := archiveS3.NewS3ArchiveStore(ctx, archiveS3.S3ArchiveStoreConfig{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 archive store: %w", err)
	}

	logger.Info("S3 archive store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}

// CreateActionSpecs binds the configured commands to the standard action
// set.
func CreateActionSpecs(cfg *ActionsConfig) []actions.Spec {
	specs := actions.DefaultSpecs()
	for i := range specs {
		if command, ok := cfg.Commands[specs[i].Name]; ok {
			specs[i].Command = command
		}
	}
	return specs
}

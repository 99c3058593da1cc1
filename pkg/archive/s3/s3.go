package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3ArchiveStore implements archive.Store on Amazon S3 or S3-compatible
// storage (MinIO, Localstack). Keys map directly to object keys under an
// optional prefix, so the bucket stays human-readable and inspectable.
//
// Safe for concurrent use. Concurrent Puts to the same key are
// last-write-wins under S3's consistency model.
type S3ArchiveStore struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// S3ArchiveStoreConfig contains configuration for the S3 archive store.
type S3ArchiveStoreConfig struct {
	// Client is the configured S3 client.
	Client *s3.Client

	// Bucket is the S3 bucket name. The bucket must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys, e.g.
	// "remotectl/artifacts".
	KeyPrefix string
}

// NewS3ArchiveStore creates an S3-backed archive and verifies bucket access.
func NewS3ArchiveStore(ctx context.Context, cfg S3ArchiveStoreConfig) (*S3ArchiveStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3ArchiveStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

func (s *S3ArchiveStore) objectKey(key string) string {
	if s.keyPrefix == "" {
		return key
	}
	return path.Join(s.keyPrefix, key)
}

func (s *S3ArchiveStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to store artifact %q: %w", key, err)
	}

	return nil
}

func (s *S3ArchiveStore) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artifact %q: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %q: %w", key, err)
	}

	return data, nil
}

func (s *S3ArchiveStore) Close() error {
	return nil
}

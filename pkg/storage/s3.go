package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// S3Storage implements Storage using Amazon S3 or S3-compatible services
// TODO: Implement using aws-sdk-go-v2 once the bucket is provisioned
type S3Storage struct {
	bucket string
	region string
	prefix string
}

// NewS3Storage creates a new S3 storage instance
func NewS3Storage(cfg *Config) (*S3Storage, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required")
	}
	if cfg.S3Region == "" {
		return nil, fmt.Errorf("S3 region is required")
	}

	return &S3Storage{
		bucket: cfg.S3Bucket,
		region: cfg.S3Region,
		prefix: cfg.S3Prefix,
	}, nil
}

// Put stores an artifact in S3
func (s *S3Storage) Put(ctx context.Context, notificationID uuid.UUID, kind Kind, contentType string, r io.Reader) (*Artifact, error) {
	return nil, fmt.Errorf("S3 storage not implemented - set STORAGE_BACKEND=local")
}

// Open returns a reader for an artifact stored in S3
func (s *S3Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, fmt.Errorf("S3 storage not implemented")
}

// Delete removes an artifact from S3
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	return fmt.Errorf("S3 storage not implemented")
}

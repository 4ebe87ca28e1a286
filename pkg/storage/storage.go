// Package storage persists capture artifacts (visit photos and citizen
// signatures) with local filesystem and S3 backends.
package storage

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes the artifact types a capture can carry.
type Kind string

const (
	KindPhoto     Kind = "photo"
	KindSignature Kind = "signature"
)

// Artifact describes one stored file.
type Artifact struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	StoredAt    time.Time `json:"stored_at"`
}

// Storage stores and retrieves capture artifacts. Put must be durable before
// it returns: callers record the artifact URL in the database only after Put
// succeeds, so a lost write surfaces as an error, never as a dangling
// reference.
type Storage interface {
	// Put stores an artifact for a notification and returns its metadata.
	Put(ctx context.Context, notificationID uuid.UUID, kind Kind, contentType string, r io.Reader) (*Artifact, error)

	// Open returns a reader for a previously stored artifact.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an artifact. A missing artifact is not an error.
	Delete(ctx context.Context, key string) error
}

// Backend identifies the storage implementation
type Backend string

const (
	BackendLocal Backend = "local"
	BackendS3    Backend = "s3"
)

// Config holds storage configuration
type Config struct {
	Backend Backend

	// Local storage config
	LocalPath string

	// S3 storage config
	S3Bucket string
	S3Region string
	S3Prefix string
}

// New creates a new Storage implementation based on configuration
func New(cfg *Config) (Storage, error) {
	switch cfg.Backend {
	case BackendS3:
		return NewS3Storage(cfg)
	case BackendLocal:
		fallthrough
	default:
		return NewLocalStorage(cfg.LocalPath)
	}
}

// ArtifactKey builds the canonical object key for an artifact. The key embeds
// the notification id and a millisecond timestamp so repeated captures never
// overwrite each other.
func ArtifactKey(notificationID uuid.UUID, kind Kind, at time.Time) string {
	ext := ".jpg"
	if kind == KindSignature {
		ext = ".png"
	}
	return "captures/" + string(kind) + "_" + notificationID.String() + "_" +
		strconv.FormatInt(at.UnixMilli(), 10) + ext
}

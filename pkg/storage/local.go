package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStorage implements Storage using the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local filesystem storage
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	// Ensure base path exists
	if err := os.MkdirAll(filepath.Join(basePath, "captures"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{basePath: basePath}, nil
}

// Put stores an artifact under the canonical key and syncs it to disk before
// returning, so the caller can safely persist the URL afterwards.
func (s *LocalStorage) Put(ctx context.Context, notificationID uuid.UUID, kind Kind, contentType string, r io.Reader) (*Artifact, error) {
	now := time.Now()
	key := ArtifactKey(notificationID, kind, now)
	filePath := filepath.Join(s.basePath, filepath.FromSlash(key))

	// Write to a temp file first so a partial write never occupies the key.
	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to finalize artifact: %w", err)
	}

	return &Artifact{
		Key:         key,
		URL:         "/uploads/" + key,
		Size:        size,
		ContentType: contentType,
		StoredAt:    now,
	}, nil
}

// Open returns a reader for a previously stored artifact
func (s *LocalStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	filePath := filepath.Join(s.basePath, filepath.FromSlash(key))

	// Keys come from the database, but reject traversal anyway.
	if rel, err := filepath.Rel(s.basePath, filePath); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("invalid artifact key: %s", key)
	}

	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("artifact not found: %s", key)
		}
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	return f, nil
}

// Delete removes an artifact; missing files are ignored
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	filePath := filepath.Join(s.basePath, filepath.FromSlash(key))
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}

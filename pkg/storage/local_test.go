package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_PutAndOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	id := uuid.New()
	art, err := store.Put(context.Background(), id, KindPhoto, "image/jpeg", strings.NewReader("jpeg bytes"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(art.Key, "captures/photo_"+id.String()))
	assert.True(t, strings.HasSuffix(art.Key, ".jpg"))
	assert.Equal(t, "/uploads/"+art.Key, art.URL)
	assert.Equal(t, int64(len("jpeg bytes")), art.Size)
	assert.Equal(t, "image/jpeg", art.ContentType)

	r, err := store.Open(context.Background(), art.Key)
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))
}

func TestLocalStorage_SignatureUsesPNGExtension(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	art, err := store.Put(context.Background(), uuid.New(), KindSignature, "image/png", strings.NewReader("png bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(art.Key, ".png"))
}

func TestLocalStorage_PutLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Put(context.Background(), uuid.New(), KindPhoto, "image/jpeg", strings.NewReader("x"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "captures"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, strings.HasPrefix(entries[0].Name(), ".upload-"))
}

func TestLocalStorage_Delete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	art, err := store.Put(context.Background(), uuid.New(), KindPhoto, "image/jpeg", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), art.Key))
	_, err = store.Open(context.Background(), art.Key)
	assert.Error(t, err)

	// deleting again is fine
	assert.NoError(t, store.Delete(context.Background(), art.Key))
}

func TestLocalStorage_OpenRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{
		"../etc/passwd",
		"captures/../../secret",
		"..",
	} {
		_, err := store.Open(context.Background(), key)
		assert.Error(t, err, "key %q", key)
	}
}

func TestArtifactKey(t *testing.T) {
	id := uuid.New()
	at := time.Date(2026, 3, 12, 11, 30, 0, 0, time.UTC)

	key := ArtifactKey(id, KindPhoto, at)
	assert.Equal(t, "captures/photo_"+id.String()+"_1773315000000.jpg", key)
}

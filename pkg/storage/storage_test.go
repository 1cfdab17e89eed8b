package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoragePutAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir, "http://localhost:8080/uploads/")
	require.NoError(t, err)

	obj, err := store.Put(context.Background(), "covers/abc.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/covers/abc.png", obj.URL)
	assert.Equal(t, "covers/abc.png", obj.PublicID)
	assert.Equal(t, int64(9), obj.Size)

	data, err := os.ReadFile(filepath.Join(dir, "covers", "abc.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, store.Delete(context.Background(), obj.PublicID))
	_, err = os.Stat(filepath.Join(dir, "covers", "abc.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(context.Background(), obj.PublicID))
}

func TestLocalStorageConfinesKeys(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(filepath.Join(dir, "root"), "")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../../escape.txt", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "root", "escape.txt"))
	assert.NoError(t, statErr)

	_, err = store.Put(context.Background(), "", "text/plain", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestPublicURLEscapesSegments(t *testing.T) {
	assert.Equal(t, "https://storage.googleapis.com/bucket/pdf/my%20book.pdf", PublicURL("bucket", "pdf/my book.pdf"))
}

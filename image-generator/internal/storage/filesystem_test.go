package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileSystemStore_Put(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileSystemStore(root, "/static/avatars/", zap.NewNop())
	require.NoError(t, err)

	ref, err := store.Put(context.Background(), "avatars/abc.png", []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/static/avatars/avatars/abc.png", ref)

	data, err := os.ReadFile(filepath.Join(root, "avatars", "abc.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	_, err = os.Stat(filepath.Join(root, "avatars", "abc.png.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileSystemStore_RejectsEscapingKeys(t *testing.T) {
	store, err := NewFileSystemStore(t.TempDir(), "/static", zap.NewNop())
	require.NoError(t, err)

	for _, key := range []string{"", "/etc/passwd", "../x.png", "a/../../x.png", "a//b.png"} {
		_, err := store.Put(context.Background(), key, []byte("x"), "image/png")
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".jpg", ExtensionFor("image/jpeg"))
	assert.Equal(t, ".webp", ExtensionFor("image/webp; charset=binary"))
	assert.Equal(t, ".png", ExtensionFor("application/octet-stream"))
}

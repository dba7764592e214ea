package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// FileSystemStore writes blobs below a root directory that is served under PublicBaseURL.
type FileSystemStore struct {
	root          string
	publicBaseURL string
	logger        *zap.Logger
}

var _ BlobStore = (*FileSystemStore)(nil)

func NewFileSystemStore(root, publicBaseURL string, logger *zap.Logger) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory %s: %w", root, err)
	}
	return &FileSystemStore{root: root, publicBaseURL: publicBaseURL, logger: logger.Named("FileSystemStore")}, nil
}

func (s *FileSystemStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	if !validKey(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	// Write then rename so readers never see a partial file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to move %s into place: %w", key, err)
	}
	s.logger.Debug("Image saved", zap.String("path", path), zap.Int("size_bytes", len(data)))
	return joinURL(s.publicBaseURL, key), nil
}

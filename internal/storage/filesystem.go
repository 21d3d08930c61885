package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemStorage implements Reader for a local directory laid out as <baseDir>/<bucket>/<key>
type FilesystemStorage struct {
	baseDir string
}

// NewFilesystemStorage creates a new filesystem storage reader
func NewFilesystemStorage(baseDir string) (*FilesystemStorage, error) {
	// Ensure base directory exists
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FilesystemStorage{
		baseDir: baseDir,
	}, nil
}

func (fs *FilesystemStorage) resolve(bucket, key string) (string, error) {
	base := filepath.Clean(fs.baseDir)
	path := filepath.Clean(filepath.Join(base, bucket, key))

	// Security: prevent directory traversal
	if path != base && !strings.HasPrefix(path, base+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key: path traversal detected")
	}
	return path, nil
}

// GetReader returns a reader for the file at bucket/key
func (fs *FilesystemStorage) GetReader(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	path, err := fs.resolve(bucket, key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, key)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Exists checks if a file exists at bucket/key
func (fs *FilesystemStorage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	path, err := fs.resolve(bucket, key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat file: %w", err)
	}

	return !info.IsDir(), nil
}

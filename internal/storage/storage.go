package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when an object does not exist
var ErrNotFound = errors.New("object not found")

// Reader provides read access to stored images
type Reader interface {
	// GetReader returns a reader for the object at bucket/key
	GetReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// Exists checks if an object exists at bucket/key
	Exists(ctx context.Context, bucket, key string) (bool, error)
}

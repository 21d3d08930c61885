package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStorage implements Reader for Cloud Storage buckets
type GCSStorage struct {
	client *gcs.Client
}

// NewGCSStorage creates a Cloud Storage reader using application default credentials
func NewGCSStorage(ctx context.Context, opts ...option.ClientOption) (*GCSStorage, error) {
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStorage{client: client}, nil
}

// GetReader opens the object for reading
func (s *GCSStorage) GetReader(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: gs://%s/%s", ErrNotFound, bucket, key)
		}
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return r, nil
}

// Exists checks object attributes
func (s *GCSStorage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.Bucket(bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) || errors.Is(err, gcs.ErrBucketNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return true, nil
}

// Close closes the client
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// FirestoreWriter merges picture records into a Firestore collection
type FirestoreWriter struct {
	client *firestore.Client
}

// NewFirestoreWriter connects to Firestore. An empty projectID detects the project
// from the environment.
func NewFirestoreWriter(ctx context.Context, projectID string, opts ...option.ClientOption) (*FirestoreWriter, error) {
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &FirestoreWriter{client: client}, nil
}

// MergePicture sets labels, color and created with MergeAll, leaving other fields untouched
func (w *FirestoreWriter) MergePicture(ctx context.Context, rec PictureRecord) (time.Time, error) {
	// document IDs cannot contain a path separator
	if rec.Key == "" || strings.Contains(rec.Key, "/") {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidKey, rec.Key)
	}

	res, err := w.client.Collection(CollectionPictures).Doc(rec.Key).Set(ctx, rec.fields(), firestore.MergeAll)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to merge picture %s: %w", rec.Key, err)
	}
	return res.UpdateTime, nil
}

// Close closes the client
func (w *FirestoreWriter) Close() error {
	return w.client.Close()
}

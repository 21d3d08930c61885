package storage

import (
	"context"
	"errors"
	"time"
)

// CollectionPictures is the collection (or table) holding picture records
const CollectionPictures = "pictures"

// ErrInvalidKey is returned when a record key cannot be stored by the backend
var ErrInvalidKey = errors.New("invalid record key")

// PictureRecord is the persisted summary of a safe image
type PictureRecord struct {
	Key     string
	Labels  []string
	Color   string
	Created time.Time
}

// fields returns the merged field set. Labels are never written as null.
func (r PictureRecord) fields() map[string]interface{} {
	labels := r.Labels
	if labels == nil {
		labels = []string{}
	}
	return map[string]interface{}{
		"labels":  labels,
		"color":   r.Color,
		"created": r.Created,
	}
}

// PictureWriter merges a record into the store and returns the update time
type PictureWriter interface {
	MergePicture(ctx context.Context, rec PictureRecord) (time.Time, error)
}

package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryWriter keeps picture documents in memory with merge semantics
type MemoryWriter struct {
	mu   sync.Mutex
	docs map[string]map[string]interface{}
	now  func() time.Time
}

// NewMemoryWriter creates an empty in-memory store
func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{
		docs: make(map[string]map[string]interface{}),
		now:  time.Now,
	}
}

// MergePicture overwrites labels, color and created on the document
func (w *MemoryWriter) MergePicture(ctx context.Context, rec PictureRecord) (time.Time, error) {
	if rec.Key == "" {
		return time.Time{}, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	doc, ok := w.docs[rec.Key]
	if !ok {
		doc = make(map[string]interface{})
		w.docs[rec.Key] = doc
	}
	for k, v := range rec.fields() {
		doc[k] = v
	}
	return w.now(), nil
}

// Get returns a copy of the document stored under key
func (w *MemoryWriter) Get(key string) (map[string]interface{}, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc, ok := w.docs[key]
	if !ok {
		return nil, false
	}
	cp := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		cp[k] = v
	}
	return cp, true
}

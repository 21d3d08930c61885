// Package vision submits analysis requests to an image annotation backend.
//
// Two backends exist: CloudAnnotator talks to the Cloud Vision API, LocalAnalyzer
// computes image properties from the pixels for development. Callers obtain an
// Annotator through a Provider for the duration of one invocation.
package vision

import (
	"context"

	"github.com/tendant/image-analysis-pipeline/internal/analysis"
)

// Annotator submits one request and returns the batch of per-image results
type Annotator interface {
	Annotate(ctx context.Context, req analysis.Request) ([]analysis.Result, error)
}

// Provider hands out an Annotator for a single invocation. The returned release
// function must be called on every exit path.
type Provider interface {
	Acquire(ctx context.Context) (Annotator, func(), error)
}

// SharedProvider returns the same long-lived annotator on every Acquire
type SharedProvider struct {
	annotator Annotator
}

// NewSharedProvider wraps a long-lived annotator
func NewSharedProvider(annotator Annotator) *SharedProvider {
	return &SharedProvider{annotator: annotator}
}

// Acquire returns the shared annotator with a no-op release
func (p *SharedProvider) Acquire(ctx context.Context) (Annotator, func(), error) {
	return p.annotator, func() {}, nil
}

// AnnotatorCloser is an annotator holding a connection
type AnnotatorCloser interface {
	Annotator
	Close() error
}

// DialFunc opens a new annotator connection
type DialFunc func(ctx context.Context) (AnnotatorCloser, error)

// ScopedProvider dials a fresh annotator per invocation and closes it on release
type ScopedProvider struct {
	dial    DialFunc
	onClose func(error)
}

// NewScopedProvider creates a provider that dials per Acquire. onClose, if set,
// receives the error returned by Close.
func NewScopedProvider(dial DialFunc, onClose func(error)) *ScopedProvider {
	return &ScopedProvider{dial: dial, onClose: onClose}
}

// Acquire dials a new annotator
func (p *ScopedProvider) Acquire(ctx context.Context) (Annotator, func(), error) {
	a, err := p.dial(ctx)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		err := a.Close()
		if p.onClose != nil {
			p.onClose(err)
		}
	}
	return a, release, nil
}

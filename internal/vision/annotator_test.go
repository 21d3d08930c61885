package vision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/image-analysis-pipeline/internal/analysis"
)

type closingAnnotator struct {
	closed   int
	closeErr error
}

func (c *closingAnnotator) Annotate(ctx context.Context, req analysis.Request) ([]analysis.Result, error) {
	return nil, nil
}

func (c *closingAnnotator) Close() error {
	c.closed++
	return c.closeErr
}

func TestSharedProvider(t *testing.T) {
	inner := &closingAnnotator{}
	p := NewSharedProvider(inner)

	a, release, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, inner, a)
	release()
	assert.Equal(t, 0, inner.closed)
}

func TestScopedProvider_ClosesOnRelease(t *testing.T) {
	inner := &closingAnnotator{closeErr: errors.New("close failed")}
	var closeErr error
	p := NewScopedProvider(func(ctx context.Context) (AnnotatorCloser, error) {
		return inner, nil
	}, func(err error) { closeErr = err })

	a, release, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, inner, a)
	assert.Equal(t, 0, inner.closed)

	release()
	assert.Equal(t, 1, inner.closed)
	assert.EqualError(t, closeErr, "close failed")
}

func TestScopedProvider_DialError(t *testing.T) {
	p := NewScopedProvider(func(ctx context.Context) (AnnotatorCloser, error) {
		return nil, errors.New("no credentials")
	}, nil)

	a, release, err := p.Acquire(context.Background())
	assert.Error(t, err)
	assert.Nil(t, a)
	assert.Nil(t, release)
}

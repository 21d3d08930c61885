package vision

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/image-analysis-pipeline/internal/analysis"
)

type memorySource struct {
	objects map[string][]byte
	err     error
}

func (m *memorySource) GetReader(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.objects[bucket+"/"+key])), nil
}

func (m *memorySource) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.objects[bucket+"/"+key]
	return ok, nil
}

// twoToneImage is 3/4 fill and 1/4 accent, split by columns
func twoToneImage(t *testing.T, fill, accent color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			if x < 30 {
				img.SetNRGBA(x, y, fill)
			} else {
				img.SetNRGBA(x, y, accent)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func TestLocalAnalyzer_DominantColors(t *testing.T) {
	src := &memorySource{objects: map[string][]byte{
		"uploads/cat.png": twoToneImage(t,
			color.NRGBA{R: 10, G: 20, B: 30, A: 255},
			color.NRGBA{R: 240, G: 240, B: 240, A: 255}),
	}}
	a := NewLocalAnalyzer(src, false)

	results, err := a.Annotate(context.Background(), analysis.BuildRequest(analysis.ImageRef{Bucket: "uploads", Name: "cat.png"}))
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Nil(t, res.Err)
	assert.Empty(t, res.Labels)
	assert.Nil(t, res.SafeSearch)
	require.Len(t, res.DominantColors, 2)
	assert.Equal(t, "#0a141e", analysis.DominantColor(res.DominantColors))
	assert.InDelta(t, 0.75, res.DominantColors[0].PixelFraction, 0.001)
	assert.InDelta(t, 0.25, res.DominantColors[1].Score, 0.001)
}

func TestLocalAnalyzer_AssumeSafe(t *testing.T) {
	src := &memorySource{objects: map[string][]byte{
		"b/n.png": twoToneImage(t, color.NRGBA{A: 255}, color.NRGBA{A: 255}),
	}}

	results, err := NewLocalAnalyzer(src, true).Annotate(context.Background(), analysis.BuildRequest(analysis.ImageRef{Bucket: "b", Name: "n.png"}))
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].SafeSearch)
	assert.True(t, analysis.IsSafe(results[0].SafeSearch))
}

func TestLocalAnalyzer_MissingObject(t *testing.T) {
	a := NewLocalAnalyzer(&memorySource{objects: map[string][]byte{}}, true)

	results, err := a.Annotate(context.Background(), analysis.BuildRequest(analysis.ImageRef{Bucket: "b", Name: "missing.jpg"}))
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Err)
	assert.Equal(t, codeNotFound, results[0].Err.Code)
}

func TestLocalAnalyzer_BadImageData(t *testing.T) {
	src := &memorySource{objects: map[string][]byte{"b/n.jpg": []byte("not an image")}}

	results, err := NewLocalAnalyzer(src, true).Annotate(context.Background(), analysis.BuildRequest(analysis.ImageRef{Bucket: "b", Name: "n.jpg"}))
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Err)
	assert.Equal(t, codeInvalidArgument, results[0].Err.Code)
}

func TestLocalAnalyzer_SourceError(t *testing.T) {
	cause := errors.New("connection refused")
	a := NewLocalAnalyzer(&memorySource{err: cause}, false)

	_, err := a.Annotate(context.Background(), analysis.BuildRequest(analysis.ImageRef{Bucket: "b", Name: "n"}))
	assert.ErrorIs(t, err, cause)
}

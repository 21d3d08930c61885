package vision

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/genproto/googleapis/type/color"

	"github.com/tendant/image-analysis-pipeline/internal/analysis"
)

type fakeAnnotatorClient struct {
	requests []*visionpb.BatchAnnotateImagesRequest
	resp     *visionpb.BatchAnnotateImagesResponse
	err      error
	closed   bool
}

func (f *fakeAnnotatorClient) BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error) {
	f.requests = append(f.requests, req)
	return f.resp, f.err
}

func (f *fakeAnnotatorClient) Close() error {
	f.closed = true
	return nil
}

func TestToProto(t *testing.T) {
	req := toProto(analysis.BuildRequest(analysis.ImageRef{Bucket: "uploads", Name: "cat.jpg"}))

	assert.Equal(t, "gs://uploads/cat.jpg", req.GetImage().GetSource().GetImageUri())
	require.Len(t, req.GetFeatures(), 3)
	assert.Equal(t, visionpb.Feature_LABEL_DETECTION, req.GetFeatures()[0].GetType())
	assert.Equal(t, visionpb.Feature_IMAGE_PROPERTIES, req.GetFeatures()[1].GetType())
	assert.Equal(t, visionpb.Feature_SAFE_SEARCH_DETECTION, req.GetFeatures()[2].GetType())
}

func TestFromProto(t *testing.T) {
	resp := &visionpb.AnnotateImageResponse{
		LabelAnnotations: []*visionpb.EntityAnnotation{
			{Description: "cat", Score: 0.7},
			{Description: "sofa", Score: 0.9},
		},
		ImagePropertiesAnnotation: &visionpb.ImageProperties{
			DominantColors: &visionpb.DominantColorsAnnotation{
				Colors: []*visionpb.ColorInfo{
					{Color: &color.Color{Red: 10, Green: 20, Blue: 30}, Score: 0.4, PixelFraction: 0.2},
					{Color: &color.Color{Red: 200, Green: 200, Blue: 200}, Score: 0.6},
				},
			},
		},
		SafeSearchAnnotation: &visionpb.SafeSearchAnnotation{
			Adult:    visionpb.Likelihood_LIKELY,
			Medical:  visionpb.Likelihood_VERY_UNLIKELY,
			Racy:     visionpb.Likelihood_POSSIBLE,
			Spoof:    visionpb.Likelihood_UNLIKELY,
			Violence: visionpb.Likelihood_VERY_LIKELY,
		},
	}

	res := fromProto(resp)

	assert.Nil(t, res.Err)
	assert.Equal(t, []analysis.Label{{Description: "cat", Score: 0.7}, {Description: "sofa", Score: 0.9}}, res.Labels)
	require.Len(t, res.DominantColors, 2)
	assert.Equal(t, analysis.ColorCandidate{Red: 10, Green: 20, Blue: 30, Score: 0.4, PixelFraction: 0.2}, res.DominantColors[0])
	require.NotNil(t, res.SafeSearch)
	assert.Equal(t, analysis.SafeSearch{
		Adult:    analysis.LikelihoodLikely,
		Medical:  analysis.LikelihoodVeryUnlikely,
		Racy:     analysis.LikelihoodPossible,
		Spoof:    analysis.LikelihoodUnlikely,
		Violence: analysis.LikelihoodVeryLikely,
	}, *res.SafeSearch)
}

func TestFromProto_EmptyAndError(t *testing.T) {
	res := fromProto(&visionpb.AnnotateImageResponse{})
	assert.Nil(t, res.Err)
	assert.Empty(t, res.Labels)
	assert.Empty(t, res.DominantColors)
	assert.Nil(t, res.SafeSearch)

	res = fromProto(&visionpb.AnnotateImageResponse{
		Error: &status.Status{Code: 7, Message: "denied"},
	})
	require.NotNil(t, res.Err)
	assert.Equal(t, int32(7), res.Err.Code)
	assert.Equal(t, "denied", res.Err.Message)
}

func TestCloudAnnotator_Annotate(t *testing.T) {
	fake := &fakeAnnotatorClient{
		resp: &visionpb.BatchAnnotateImagesResponse{
			Responses: []*visionpb.AnnotateImageResponse{
				{LabelAnnotations: []*visionpb.EntityAnnotation{{Description: "cat"}}},
			},
		},
	}
	a := newCloudAnnotator(fake, zaptest.NewLogger(t))

	results, err := a.Annotate(context.Background(), analysis.BuildRequest(analysis.ImageRef{Bucket: "b", Name: "n"}))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "cat", results[0].Labels[0].Description)

	require.Len(t, fake.requests, 1)
	assert.Len(t, fake.requests[0].GetRequests(), 1)

	require.NoError(t, a.Close())
	assert.True(t, fake.closed)
}

func TestCloudAnnotator_EmptyBatch(t *testing.T) {
	a := newCloudAnnotator(&fakeAnnotatorClient{resp: &visionpb.BatchAnnotateImagesResponse{}}, nil)

	results, err := a.Annotate(context.Background(), analysis.BuildRequest(analysis.ImageRef{Bucket: "b", Name: "n"}))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCloudAnnotator_TransportError(t *testing.T) {
	cause := errors.New("unavailable")
	a := newCloudAnnotator(&fakeAnnotatorClient{err: cause}, nil)

	_, err := a.Annotate(context.Background(), analysis.BuildRequest(analysis.ImageRef{Bucket: "b", Name: "n"}))
	assert.ErrorIs(t, err, cause)
}

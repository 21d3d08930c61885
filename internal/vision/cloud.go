package vision

import (
	"context"
	"fmt"

	visionapi "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/tendant/image-analysis-pipeline/internal/analysis"
)

// imageAnnotatorClient is the subset of visionapi.ImageAnnotatorClient we use
type imageAnnotatorClient interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

// CloudAnnotator calls the Cloud Vision batch annotate endpoint
type CloudAnnotator struct {
	client imageAnnotatorClient
	logger *zap.Logger
}

// NewCloudAnnotator dials the Cloud Vision API
func NewCloudAnnotator(ctx context.Context, logger *zap.Logger, opts ...option.ClientOption) (*CloudAnnotator, error) {
	client, err := visionapi.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return newCloudAnnotator(client, logger), nil
}

func newCloudAnnotator(client imageAnnotatorClient, logger *zap.Logger) *CloudAnnotator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloudAnnotator{client: client, logger: logger}
}

// CloudDialer returns a DialFunc creating one Cloud Vision client per call
func CloudDialer(logger *zap.Logger, opts ...option.ClientOption) DialFunc {
	return func(ctx context.Context) (AnnotatorCloser, error) {
		return NewCloudAnnotator(ctx, logger, opts...)
	}
}

// Annotate submits a single-image batch
func (a *CloudAnnotator) Annotate(ctx context.Context, req analysis.Request) ([]analysis.Result, error) {
	resp, err := a.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{toProto(req)},
	})
	if err != nil {
		return nil, fmt.Errorf("batch annotate %s: %w", req.ImageURI, err)
	}

	if ce := a.logger.Check(zap.DebugLevel, "raw vision output"); ce != nil {
		raw, err := protojson.Marshal(resp)
		if err != nil {
			raw = []byte("## error marshalling data ##")
		}
		ce.Write(zap.String("image_uri", req.ImageURI), zap.ByteString("response", raw))
	}

	results := make([]analysis.Result, 0, len(resp.GetResponses()))
	for _, r := range resp.GetResponses() {
		results = append(results, fromProto(r))
	}
	return results, nil
}

// Close releases the underlying gRPC connection
func (a *CloudAnnotator) Close() error {
	return a.client.Close()
}

package vision

import (
	"context"
	"fmt"
	"image"
	"io"
	"sort"

	"github.com/disintegration/imaging"

	"github.com/tendant/image-analysis-pipeline/internal/analysis"
)

// gRPC status codes the local analyzer reports, matching what the API returns
const (
	codeInvalidArgument int32 = 3
	codeNotFound        int32 = 5
)

const (
	sampleSize        = 64
	defaultMaxColors  = 10
	quantizationShift = 4
)

// ImageSource reads image objects addressed by bucket and object name
type ImageSource interface {
	GetReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, bucket, key string) (bool, error)
}

// LocalAnalyzer derives image properties from the pixels. It detects no labels.
// Safe search is only reported when assumeSafe is set, as all UNKNOWN.
type LocalAnalyzer struct {
	source     ImageSource
	assumeSafe bool
	maxColors  int
}

// NewLocalAnalyzer creates a local analyzer reading from source
func NewLocalAnalyzer(source ImageSource, assumeSafe bool) *LocalAnalyzer {
	return &LocalAnalyzer{
		source:     source,
		assumeSafe: assumeSafe,
		maxColors:  defaultMaxColors,
	}
}

// Annotate always returns a batch of exactly one result unless reading fails
func (a *LocalAnalyzer) Annotate(ctx context.Context, req analysis.Request) ([]analysis.Result, error) {
	ref := req.Image

	exists, err := a.source.Exists(ctx, ref.Bucket, ref.Name)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", req.ImageURI, err)
	}
	if !exists {
		return []analysis.Result{{
			Err: &analysis.ServiceError{
				Code:    codeNotFound,
				Message: fmt.Sprintf("object not found: %s", req.ImageURI),
			},
		}}, nil
	}

	reader, err := a.source.GetReader(ctx, ref.Bucket, ref.Name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", req.ImageURI, err)
	}
	defer reader.Close()

	img, err := imaging.Decode(reader)
	if err != nil {
		return []analysis.Result{{
			Err: &analysis.ServiceError{Code: codeInvalidArgument, Message: "Bad image data."},
		}}, nil
	}

	var res analysis.Result
	for _, f := range req.Features {
		switch f {
		case analysis.FeatureImageProperties:
			res.DominantColors = a.dominantColors(img)
		case analysis.FeatureSafeSearchDetection:
			if a.assumeSafe {
				res.SafeSearch = &analysis.SafeSearch{}
			}
		}
	}

	return []analysis.Result{res}, nil
}

type colorBin struct {
	key     uint16
	r, g, b float64
	count   int
}

// dominantColors buckets a downscaled copy into 4-bit-per-channel bins and returns
// the bin means ordered by pixel count
func (a *LocalAnalyzer) dominantColors(img image.Image) []analysis.ColorCandidate {
	small := imaging.Fit(img, sampleSize, sampleSize, imaging.Box)
	bounds := small.Bounds()

	bins := make(map[uint16]*colorBin)
	total := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			i := small.PixOffset(x, y)
			r, g, b, alpha := small.Pix[i], small.Pix[i+1], small.Pix[i+2], small.Pix[i+3]
			if alpha == 0 {
				continue
			}
			key := uint16(r>>quantizationShift)<<8 | uint16(g>>quantizationShift)<<4 | uint16(b>>quantizationShift)
			bin, ok := bins[key]
			if !ok {
				bin = &colorBin{key: key}
				bins[key] = bin
			}
			bin.r += float64(r)
			bin.g += float64(g)
			bin.b += float64(b)
			bin.count++
			total++
		}
	}
	if total == 0 {
		return nil
	}

	sorted := make([]*colorBin, 0, len(bins))
	for _, bin := range bins {
		sorted = append(sorted, bin)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].key < sorted[j].key
	})
	if len(sorted) > a.maxColors {
		sorted = sorted[:a.maxColors]
	}

	colors := make([]analysis.ColorCandidate, 0, len(sorted))
	for _, bin := range sorted {
		n := float64(bin.count)
		fraction := float32(n / float64(total))
		colors = append(colors, analysis.ColorCandidate{
			Red:           float32(bin.r / n),
			Green:         float32(bin.g / n),
			Blue:          float32(bin.b / n),
			Score:         fraction,
			PixelFraction: fraction,
		})
	}
	return colors
}

package analysis

import (
	"errors"
	"fmt"
)

// ErrInvalidImageRef is returned when an image reference is missing a bucket or name
var ErrInvalidImageRef = errors.New("invalid image reference")

// DefaultColor is used when the response carries no dominant color
const DefaultColor = "#ffffff"

// ImageRef identifies the source image. Name doubles as the record key.
type ImageRef struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// URI returns the gs:// URI of the image
func (r ImageRef) URI() string {
	return fmt.Sprintf("gs://%s/%s", r.Bucket, r.Name)
}

// Validate checks that both fields are set
func (r ImageRef) Validate() error {
	if r.Bucket == "" {
		return fmt.Errorf("%w: bucket is required", ErrInvalidImageRef)
	}
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidImageRef)
	}
	return nil
}

// Feature is a detector requested from the vision service
type Feature int

const (
	FeatureLabelDetection Feature = iota + 1
	FeatureImageProperties
	FeatureSafeSearchDetection
)

func (f Feature) String() string {
	switch f {
	case FeatureLabelDetection:
		return "LABEL_DETECTION"
	case FeatureImageProperties:
		return "IMAGE_PROPERTIES"
	case FeatureSafeSearchDetection:
		return "SAFE_SEARCH_DETECTION"
	default:
		return fmt.Sprintf("Feature(%d)", int(f))
	}
}

// Request is a single-image analysis request
type Request struct {
	Image    ImageRef
	ImageURI string
	Features []Feature
}

// Likelihood is the ordinal safe-search scale. Values match the Vision API enum.
type Likelihood int32

const (
	LikelihoodUnknown Likelihood = iota
	LikelihoodVeryUnlikely
	LikelihoodUnlikely
	LikelihoodPossible
	LikelihoodLikely
	LikelihoodVeryLikely
)

var likelihoodNames = map[Likelihood]string{
	LikelihoodUnknown:      "UNKNOWN",
	LikelihoodVeryUnlikely: "VERY_UNLIKELY",
	LikelihoodUnlikely:     "UNLIKELY",
	LikelihoodPossible:     "POSSIBLE",
	LikelihoodLikely:       "LIKELY",
	LikelihoodVeryLikely:   "VERY_LIKELY",
}

func (l Likelihood) String() string {
	if name, ok := likelihoodNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Likelihood(%d)", int32(l))
}

// Label is a single label annotation
type Label struct {
	Description string
	Score       float32
}

// ColorCandidate is one entry of the dominant-colors list
type ColorCandidate struct {
	Red           float32
	Green         float32
	Blue          float32
	Score         float32
	PixelFraction float32
}

// SafeSearch holds the five independent safe-search likelihoods
type SafeSearch struct {
	Adult    Likelihood
	Medical  Likelihood
	Racy     Likelihood
	Spoof    Likelihood
	Violence Likelihood
}

// ServiceError is an error reported by the vision service for a single image
type ServiceError struct {
	Code    int32
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("vision service error: code %d, message: '%s'", e.Code, e.Message)
}

// Result is the raw per-image response. DominantColors is ordered by the service.
type Result struct {
	Err            *ServiceError
	Labels         []Label
	DominantColors []ColorCandidate
	SafeSearch     *SafeSearch
}

// Summary is the product of interpretation
type Summary struct {
	Labels []string `json:"labels"`
	Color  string   `json:"color"`
	IsSafe bool     `json:"is_safe"`
}

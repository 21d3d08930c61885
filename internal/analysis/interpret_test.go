package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scale = []Likelihood{
	LikelihoodVeryUnlikely,
	LikelihoodUnlikely,
	LikelihoodPossible,
	LikelihoodLikely,
	LikelihoodVeryLikely,
}

func TestBuildRequest(t *testing.T) {
	req := BuildRequest(ImageRef{Bucket: "uploads", Name: "cat.jpg"})

	assert.Equal(t, "gs://uploads/cat.jpg", req.ImageURI)
	assert.Equal(t, []Feature{
		FeatureLabelDetection,
		FeatureImageProperties,
		FeatureSafeSearchDetection,
	}, req.Features)
	assert.Equal(t, "cat.jpg", req.Image.Name)
}

func TestImageRef_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ref     ImageRef
		wantErr bool
	}{
		{name: "valid", ref: ImageRef{Bucket: "b", Name: "n"}},
		{name: "missing bucket", ref: ImageRef{Name: "n"}, wantErr: true},
		{name: "missing name", ref: ImageRef{Bucket: "b"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ref.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidImageRef)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsSafe_AllCombinations(t *testing.T) {
	for _, adult := range scale {
		for _, medical := range scale {
			for _, racy := range scale {
				for _, spoof := range scale {
					for _, violence := range scale {
						s := &SafeSearch{adult, medical, racy, spoof, violence}
						want := adult < LikelihoodLikely && medical < LikelihoodLikely &&
							racy < LikelihoodLikely && spoof < LikelihoodLikely &&
							violence < LikelihoodLikely
						if got := IsSafe(s); got != want {
							t.Fatalf("IsSafe(%+v) = %v, want %v", *s, got, want)
						}
					}
				}
			}
		}
	}
}

func TestIsSafe_MissingAnnotationFailsClosed(t *testing.T) {
	assert.False(t, IsSafe(nil))

	summary, err := Interpret(Result{
		Labels:         []Label{{Description: "cat"}},
		DominantColors: []ColorCandidate{{Red: 1, Green: 2, Blue: 3}},
	})
	require.NoError(t, err)
	assert.False(t, summary.IsSafe)
	assert.Equal(t, []string{"cat"}, summary.Labels)
	assert.Equal(t, "#010203", summary.Color)
}

func TestIsSafe_UnknownPasses(t *testing.T) {
	assert.True(t, IsSafe(&SafeSearch{}))
}

func TestFormatColor(t *testing.T) {
	tests := []struct {
		name             string
		red, green, blue float32
		want             string
	}{
		{name: "truncates", red: 255.9, green: 0.4, blue: 128.0, want: "#ff0080"},
		{name: "zero padded", red: 10, green: 20, blue: 30, want: "#0a141e"},
		{name: "black", want: "#000000"},
		{name: "clamped", red: 300, green: -4, blue: 254.99, want: "#ff00fe"},
		{name: "nan is zero", red: float32(math.NaN()), green: 255, blue: float32(math.Inf(1)), want: "#00ffff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatColor(tt.red, tt.green, tt.blue))
		})
	}
}

func TestDominantColor(t *testing.T) {
	assert.Equal(t, DefaultColor, DominantColor(nil))
	assert.Equal(t, DefaultColor, DominantColor([]ColorCandidate{}))

	// first entry wins even when a later one has a higher score
	got := DominantColor([]ColorCandidate{
		{Red: 1, Green: 1, Blue: 1, Score: 0.1},
		{Red: 200, Green: 200, Blue: 200, Score: 0.9},
	})
	assert.Equal(t, "#010101", got)
}

func TestLabelDescriptions(t *testing.T) {
	assert.Equal(t, []string{}, LabelDescriptions(nil))

	got := LabelDescriptions([]Label{
		{Description: "sofa", Score: 0.5},
		{Description: "cat", Score: 0.9},
	})
	assert.Equal(t, []string{"sofa", "cat"}, got)
}

func TestInterpret_ServiceError(t *testing.T) {
	svcErr := &ServiceError{Code: 7, Message: "permission denied"}

	summary, err := Interpret(Result{
		Err:        svcErr,
		Labels:     []Label{{Description: "ignored"}},
		SafeSearch: &SafeSearch{},
	})

	var target *ServiceError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, int32(7), target.Code)
	assert.Equal(t, Summary{}, summary)
}

func TestInterpret_Idempotent(t *testing.T) {
	res := Result{
		Labels:         []Label{{Description: "cat"}, {Description: "sofa"}},
		DominantColors: []ColorCandidate{{Red: 10, Green: 20, Blue: 30}},
		SafeSearch:     &SafeSearch{1, 1, 1, 1, 1},
	}

	first, err := Interpret(res)
	require.NoError(t, err)
	second, err := Interpret(res)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, Summary{Labels: []string{"cat", "sofa"}, Color: "#0a141e", IsSafe: true}, first)
}

func TestLikelihood_String(t *testing.T) {
	assert.Equal(t, "VERY_LIKELY", LikelihoodVeryLikely.String())
	assert.Equal(t, "Likelihood(42)", Likelihood(42).String())
	assert.Equal(t, "SAFE_SEARCH_DETECTION", FeatureSafeSearchDetection.String())
}

package analysis

import (
	"fmt"
	"math"
)

// BuildRequest turns an image reference into a request for the three detectors,
// always in the order labels, image properties, safe search
func BuildRequest(ref ImageRef) Request {
	return Request{
		Image:    ref,
		ImageURI: ref.URI(),
		Features: []Feature{
			FeatureLabelDetection,
			FeatureImageProperties,
			FeatureSafeSearchDetection,
		},
	}
}

// Interpret derives a Summary from a single result. It returns the service error
// untouched when the result carries one, in which case nothing else is computed.
func Interpret(res Result) (Summary, error) {
	if res.Err != nil {
		return Summary{}, res.Err
	}

	return Summary{
		Labels: LabelDescriptions(res.Labels),
		Color:  DominantColor(res.DominantColors),
		IsSafe: IsSafe(res.SafeSearch),
	}, nil
}

// LabelDescriptions keeps response order. The result is never nil.
func LabelDescriptions(labels []Label) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		out = append(out, l.Description)
	}
	return out
}

// DominantColor formats the first candidate; the service already orders by dominance
func DominantColor(colors []ColorCandidate) string {
	if len(colors) == 0 {
		return DefaultColor
	}
	c := colors[0]
	return FormatColor(c.Red, c.Green, c.Blue)
}

// FormatColor truncates each channel to 8 bits and renders #rrggbb
func FormatColor(red, green, blue float32) string {
	return fmt.Sprintf("#%02x%02x%02x", channel(red), channel(green), channel(blue))
}

func channel(v float32) uint8 {
	switch {
	case v <= 0 || math.IsNaN(float64(v)):
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

// IsSafe reports whether every likelihood is strictly below LIKELY.
// A missing annotation is unsafe.
func IsSafe(s *SafeSearch) bool {
	if s == nil {
		return false
	}
	for _, l := range []Likelihood{s.Adult, s.Medical, s.Racy, s.Spoof, s.Violence} {
		if l >= LikelihoodLikely {
			return false
		}
	}
	return true
}

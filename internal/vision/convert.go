package vision

import (
	"cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/tendant/image-analysis-pipeline/internal/analysis"
)

var featureTypes = map[analysis.Feature]visionpb.Feature_Type{
	analysis.FeatureLabelDetection:      visionpb.Feature_LABEL_DETECTION,
	analysis.FeatureImageProperties:     visionpb.Feature_IMAGE_PROPERTIES,
	analysis.FeatureSafeSearchDetection: visionpb.Feature_SAFE_SEARCH_DETECTION,
}

func toProto(req analysis.Request) *visionpb.AnnotateImageRequest {
	features := make([]*visionpb.Feature, 0, len(req.Features))
	for _, f := range req.Features {
		features = append(features, &visionpb.Feature{Type: featureTypes[f]})
	}

	return &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{
			Source: &visionpb.ImageSource{ImageUri: req.ImageURI},
		},
		Features: features,
	}
}

func fromProto(r *visionpb.AnnotateImageResponse) analysis.Result {
	var res analysis.Result

	if st := r.GetError(); st != nil {
		res.Err = &analysis.ServiceError{Code: st.GetCode(), Message: st.GetMessage()}
	}

	for _, l := range r.GetLabelAnnotations() {
		res.Labels = append(res.Labels, analysis.Label{
			Description: l.GetDescription(),
			Score:       l.GetScore(),
		})
	}

	for _, c := range r.GetImagePropertiesAnnotation().GetDominantColors().GetColors() {
		res.DominantColors = append(res.DominantColors, analysis.ColorCandidate{
			Red:           c.GetColor().GetRed(),
			Green:         c.GetColor().GetGreen(),
			Blue:          c.GetColor().GetBlue(),
			Score:         c.GetScore(),
			PixelFraction: c.GetPixelFraction(),
		})
	}

	if ss := r.GetSafeSearchAnnotation(); ss != nil {
		res.SafeSearch = &analysis.SafeSearch{
			Adult:    analysis.Likelihood(ss.GetAdult()),
			Medical:  analysis.Likelihood(ss.GetMedical()),
			Racy:     analysis.Likelihood(ss.GetRacy()),
			Spoof:    analysis.Likelihood(ss.GetSpoof()),
			Violence: analysis.Likelihood(ss.GetViolence()),
		}
	}

	return res
}

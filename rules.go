package inksep

import (
	"context"
	"fmt"
)

// RuleAdvisor is the deterministic decision table. It yields a valid
// method for every region, including empty and uniform ones.
type RuleAdvisor struct{}

func (RuleAdvisor) AdviseRegions(_ context.Context, _ *Image, regions []Region, palette Palette, _ Hints) *Strategy {
	advice := make([]RegionAdvice, len(regions))
	for i := range regions {
		advice[i] = adviseRegion(&regions[i])
	}
	return &Strategy{
		Overall:          fmt.Sprintf("Rule-based hybrid separation with %d regions", len(regions)),
		ComplexityRating: ComplexityModerate,
		Regions:          advice,
		Confidence:       0.7,
		ExpectedQuality:  "good",
		ExpectedChannels: len(palette),
		EstimatedTime:    estimateTime(advice),
		Source:           SourceRules,
	}
}

func adviseRegion(r *Region) RegionAdvice {
	a := RegionAdvice{
		RegionID:   r.ID,
		Type:       r.Type,
		Complexity: r.Complexity,
		Priority:   5,
	}
	switch {
	case r.Type == RegionVector || (r.EdgeSharpness > 0.7 && !r.HasGradients):
		a.Method = MethodSpotColor
		a.Confidence = 0.8
		a.Reasoning = "Sharp edges and flat colors suggest vector content"
	case r.Type == RegionPhoto || (r.HasGradients && r.TextureScore > 0.5):
		a.Method = MethodSimulatedProcess
		a.Confidence = 0.75
		a.Reasoning = "Gradients and texture suggest photographic content"
	default:
		a.Method = MethodIndexColor
		a.Confidence = 0.7
		a.Reasoning = "Mixed characteristics work well with index color"
	}
	return a
}

func (RuleAdvisor) AdviseMethod(_ context.Context, _ *Image, palette Palette, hints Hints) *MethodAdvice {
	n := len(palette)
	rec := MethodRecommendation{
		Confidence:       0.75,
		ExpectedChannels: min(n, 8),
		Quality:          "good",
	}
	switch {
	case n <= 6 && hints.EdgeType == "sharp" && !hints.HasGradients:
		rec.Method = MethodSpotColor
		rec.Score = 90
		rec.Reasoning = "Few colors with sharp edges ideal for spot color separation"
		rec.Strengths = []string{"Crisp edges", "Accurate color matching", "Cost-effective"}
		rec.Limitations = []string{"Cannot handle gradients well"}
	case hints.TextureType == "photo" && hints.HasGradients:
		rec.Method = MethodSimulatedProcess
		rec.Score = 85
		rec.Reasoning = "Photo texture and gradients work best with simulated process"
		rec.Strengths = []string{"Smooth gradients", "Photorealistic quality", "Good detail"}
		rec.Limitations = []string{"More complex printing", "Higher cost"}
	case n >= 6 && n <= 12:
		rec.Method = MethodIndexColor
		rec.Score = 80
		rec.Reasoning = "Moderate color count balanced with index color separation"
		rec.Strengths = []string{"Good quality/cost balance", "Handles moderate complexity"}
		rec.Limitations = []string{"May show banding in gradients"}
	default:
		rec.Method = MethodSimulatedProcess
		rec.Score = 75
		rec.Reasoning = "Complex image best handled by simulated process"
		rec.Strengths = []string{"Handles complexity well", "Good overall quality"}
		rec.Limitations = []string{"Higher printing cost"}
	}
	rec.describe()

	alt := MethodRecommendation{
		Method:           MethodCMYK,
		Score:            65,
		Confidence:       0.7,
		Reasoning:        "Standard CMYK always available as fallback",
		Strengths:        []string{"Industry standard", "Predictable results"},
		Limitations:      []string{"Limited to 4 colors", "Less accurate color matching"},
		ExpectedChannels: 4,
		Quality:          "fair",
	}
	alt.describe()

	return &MethodAdvice{
		Recommended:  rec,
		Alternatives: []MethodRecommendation{alt},
		Source:       SourceRules,
	}
}

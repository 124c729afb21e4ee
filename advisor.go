package inksep

import (
	"context"
	"time"
)

// Source tells where a recommendation came from.
type Source string

const (
	SourceOracle Source = "oracle"
	SourceRules  Source = "rules"
)

// RegionAdvice is the recommended method for one region.
type RegionAdvice struct {
	RegionID   string     `json:"region_id"`
	Type       RegionType `json:"region_type,omitempty"`
	Complexity Complexity `json:"complexity,omitempty"`
	Method     Method     `json:"recommended_method"`
	Confidence float64    `json:"method_confidence"`
	Reasoning  string     `json:"reasoning"`
	Priority   int        `json:"priority"`
}

// Strategy is the per-region separation plan for a hybrid run.
type Strategy struct {
	Overall          string         `json:"overall_strategy"`
	ComplexityRating Complexity     `json:"complexity_rating"`
	Regions          []RegionAdvice `json:"regions"`
	Confidence       float64        `json:"overall_confidence"`
	ExpectedQuality  string         `json:"expected_quality"`
	ExpectedChannels int            `json:"expected_channels"`
	EstimatedTime    time.Duration  `json:"estimated_time"`

	Source Source `json:"source"`
	// Set when the oracle was configured but its answer was not used.
	FallbackReason string `json:"fallback_reason,omitempty"`
}

// Advice returns the recommendation for a region id.
func (s *Strategy) Advice(id string) (RegionAdvice, bool) {
	for _, a := range s.Regions {
		if a.RegionID == id {
			return a, true
		}
	}
	return RegionAdvice{}, false
}

// MethodRecommendation is one scored whole-image method.
type MethodRecommendation struct {
	Method           Method   `json:"method"`
	Score            float64  `json:"score"`
	Confidence       float64  `json:"confidence"`
	Reasoning        string   `json:"reasoning"`
	Strengths        []string `json:"strengths"`
	Limitations      []string `json:"limitations"`
	ExpectedChannels int      `json:"expected_channels"`
	Quality          string   `json:"quality"`

	BestFor         string `json:"best_for"`
	PrintComplexity string `json:"print_complexity"`
	Cost            string `json:"cost"`
}

// MethodAdvice ranks whole-image methods, best first.
type MethodAdvice struct {
	Recommended    MethodRecommendation   `json:"recommended"`
	Alternatives   []MethodRecommendation `json:"alternatives"`
	Source         Source                 `json:"source"`
	FallbackReason string                 `json:"fallback_reason,omitempty"`
}

// Advisor recommends separation methods. Implementations never fail: any
// problem with an external source degrades to the rule table.
type Advisor interface {
	AdviseRegions(ctx context.Context, img *Image, regions []Region, palette Palette, hints Hints) *Strategy
	AdviseMethod(ctx context.Context, img *Image, palette Palette, hints Hints) *MethodAdvice
}

// applyStrategy returns copies of regions carrying the advised method,
// with per-region overrides taking precedence.
func applyStrategy(regions []Region, s *Strategy, overrides map[string]Method) []Region {
	out := make([]Region, len(regions))
	for i, r := range regions {
		if a, ok := s.Advice(r.ID); ok {
			r.Method = a.Method
			r.MethodConfidence = a.Confidence
			r.Reasoning = a.Reasoning
			r.Priority = a.Priority
		}
		if m, ok := overrides[r.ID]; ok && m.IsEngine() {
			r.Method = m
			r.MethodConfidence = 1
			r.Reasoning = "Method set by user"
		}
		out[i] = r
	}
	return out
}

// estimateTime is a rough wall-clock estimate for printing prep per method.
func estimateTime(advice []RegionAdvice) time.Duration {
	t := 5 * time.Second
	for _, a := range advice {
		switch a.Method {
		case MethodSpotColor:
			t += 2 * time.Second
		case MethodSimulatedProcess:
			t += 10 * time.Second
		case MethodIndexColor:
			t += 5 * time.Second
		}
	}
	return t
}

var bestFor = map[Method]string{
	MethodSpotColor:        "Logos, graphics, text with solid colors",
	MethodSimulatedProcess: "Photographs, complex artwork, fine art prints",
	MethodIndexColor:       "Illustrations with moderate gradients",
	MethodCMYK:             "Standard commercial printing",
	MethodRGB:              "Experimental applications only",
	MethodHybrid:           "Complex images with both vector and photo elements",
}

var printComplexity = map[Method]string{
	MethodSpotColor:        "low",
	MethodSimulatedProcess: "high",
	MethodIndexColor:       "moderate",
	MethodCMYK:             "moderate",
	MethodRGB:              "low",
	MethodHybrid:           "very_high",
}

func costForChannels(n int) string {
	switch {
	case n <= 4:
		return "low"
	case n <= 8:
		return "medium"
	default:
		return "high"
	}
}

// describe fills the derived descriptive fields.
func (m *MethodRecommendation) describe() {
	m.BestFor = bestFor[m.Method]
	m.PrintComplexity = printComplexity[m.Method]
	m.Cost = costForChannels(m.ExpectedChannels)
}

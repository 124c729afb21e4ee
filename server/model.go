package server

import (
	"github.com/setanarut/inksep"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type SeparateResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    *SeparationData `json:"data"`
}

type SeparationData struct {
	Method            inksep.Method    `json:"method"`
	Width             int              `json:"width"`
	Height            int              `json:"height"`
	ProcessingMillis  int64            `json:"processing_ms"`
	PaletteColorsUsed int              `json:"palette_colors_used"`
	TotalCoverage     float64          `json:"total_coverage"`
	Channels          []Channel        `json:"channels"`
	Strategy          *inksep.Strategy `json:"strategy,omitempty"`
	Regions           []RegionOutcome  `json:"regions,omitempty"`
}

// Channel is one ink with its coverage map as a grayscale PNG.
type Channel struct {
	ColorID            string  `json:"color_id"`
	Name               string  `json:"name"`
	Hex                string  `json:"hex"`
	MatchCode          string  `json:"match_code,omitempty"`
	Order              int     `json:"order"`
	PixelCount         int     `json:"pixel_count"`
	CoveragePercentage float64 `json:"coverage_percentage"`
	HalftoneAngle      float64 `json:"halftone_angle"`
	HalftoneFrequency  float64 `json:"halftone_frequency"`
	PNG                []byte  `json:"png"`
}

type RegionOutcome struct {
	RegionID string        `json:"region_id"`
	Method   inksep.Method `json:"method"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Millis   int64         `json:"ms"`
}

type MethodInfo struct {
	Name        string         `json:"name"`
	UsesPalette bool           `json:"uses_palette"`
	Parameters  map[string]any `json:"parameters"`
}

type RecommendResponse struct {
	Success bool                 `json:"success"`
	Data    *inksep.MethodAdvice `json:"data"`
}

// optionsPatch overrides individual fields of the configured options.
type optionsPatch struct {
	Tolerance       *float64                 `json:"tolerance"`
	Dither          *inksep.Dither           `json:"dither"`
	Halftone        *inksep.Halftone         `json:"halftone"`
	MinRegionSize   *int                     `json:"min_region_size"`
	EdgeSensitivity *float64                 `json:"edge_sensitivity"`
	BlendEdges      *bool                    `json:"blend_edges"`
	BlendRadius     *int                     `json:"blend_radius"`
	DetailLevel     *inksep.DetailLevel      `json:"detail_level"`
	RegionMethods   map[string]inksep.Method `json:"region_methods"`
}

func (p optionsPatch) apply(opt inksep.Options) inksep.Options {
	if p.Tolerance != nil {
		opt.Tolerance = *p.Tolerance
	}
	if p.Dither != nil {
		opt.Dither = *p.Dither
	}
	if p.Halftone != nil {
		opt.Halftone = *p.Halftone
	}
	if p.MinRegionSize != nil {
		opt.MinRegionSize = *p.MinRegionSize
	}
	if p.EdgeSensitivity != nil {
		opt.EdgeSensitivity = *p.EdgeSensitivity
	}
	if p.BlendEdges != nil {
		opt.BlendEdges = *p.BlendEdges
	}
	if p.BlendRadius != nil {
		opt.BlendRadius = *p.BlendRadius
	}
	if p.DetailLevel != nil {
		opt.DetailLevel = *p.DetailLevel
	}
	if p.RegionMethods != nil {
		opt.RegionMethods = p.RegionMethods
	}
	return opt
}

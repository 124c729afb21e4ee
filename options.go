package inksep

import (
	"fmt"
	"image"
	"math"
)

type Dither string

const (
	DitherNone           Dither = "none"
	DitherFloydSteinberg Dither = "floyd_steinberg"
)

type Halftone string

const (
	HalftoneStochastic     Halftone = "stochastic"
	HalftoneErrorDiffusion Halftone = "error_diffusion"
)

type DetailLevel string

const (
	DetailLow    DetailLevel = "low"
	DetailMedium DetailLevel = "medium"
	DetailHigh   DetailLevel = "high"
)

type Options struct {
	// Delta-E radius for spot color coverage. 0 keeps exact matches only;
	// negative or non-finite values are invalid.
	Tolerance float64
	// Index color quantization dithering.
	Dither Dither
	// Simulated process post-pass. HalftoneErrorDiffusion binarizes each
	// channel with Floyd-Steinberg.
	Halftone Halftone

	// Hybrid segmentation: candidate regions claiming fewer pixels are dropped
	// and their pixels fall through to later cues or the residual region.
	MinRegionSize int
	// 0-1. Scales the edge dilation kernel (10*sensitivity pixels).
	EdgeSensitivity float64
	// Superpixel density of the color cue.
	DetailLevel DetailLevel

	// Merge: blur region masks into weights (BlendRadius pixels) instead of
	// taking a hard per-pixel maximum.
	BlendEdges  bool
	BlendRadius int

	// User overrides of advised methods, keyed by region id.
	RegionMethods map[string]Method
	// Region worker count; <= 0 means GOMAXPROCS.
	Workers int
}

func DefaultOptions() Options {
	return Options{
		Tolerance:       10,
		Dither:          DitherFloydSteinberg,
		Halftone:        HalftoneStochastic,
		MinRegionSize:   1000,
		EdgeSensitivity: 0.5,
		DetailLevel:     DetailHigh,
		BlendEdges:      true,
		BlendRadius:     15,
	}
}

// OptionsFromSize scales the region thresholds to the image area. The
// defaults are tuned for roughly one megapixel.
func OptionsFromSize(size image.Point) Options {
	opt := DefaultOptions()
	if size.X <= 0 || size.Y <= 0 {
		return opt
	}
	pixels := float64(size.X * size.Y)
	scale := pixels / (1000 * 1000)
	opt.MinRegionSize = max(100, min(20000, int(1000*scale)))
	opt.BlendRadius = max(3, min(40, int(math.Round(15*math.Sqrt(scale)))))
	return opt
}

// Validate reports option values no component can work with.
func (o Options) Validate() error {
	switch o.Dither {
	case DitherNone, DitherFloydSteinberg, "":
	default:
		return fmt.Errorf("%w: unknown dither method %q", ErrInvalidOptions, o.Dither)
	}
	switch o.Halftone {
	case HalftoneStochastic, HalftoneErrorDiffusion, "":
	default:
		return fmt.Errorf("%w: unknown halftone method %q", ErrInvalidOptions, o.Halftone)
	}
	switch o.DetailLevel {
	case DetailLow, DetailMedium, DetailHigh, "":
	default:
		return fmt.Errorf("%w: unknown detail level %q", ErrInvalidOptions, o.DetailLevel)
	}
	if math.IsNaN(o.Tolerance) || math.IsInf(o.Tolerance, 0) || o.Tolerance < 0 {
		return fmt.Errorf("%w: tolerance %v", ErrInvalidOptions, o.Tolerance)
	}
	if !(o.EdgeSensitivity >= 0 && o.EdgeSensitivity <= 1) {
		return fmt.Errorf("%w: edge sensitivity %v outside [0,1]", ErrInvalidOptions, o.EdgeSensitivity)
	}
	for id, m := range o.RegionMethods {
		if !m.IsEngine() {
			return fmt.Errorf("%w: region %q override %v", ErrUnknownMethod, id, m)
		}
	}
	return nil
}

// Hints are image-level signals computed by the host's analysis step.
// The core consumes them but never derives them.
type Hints struct {
	EdgeType      string  `json:"edge_type"`    // sharp, soft, mixed
	HasGradients  bool    `json:"has_gradients"`
	TextureType   string  `json:"texture_type"` // photo, flat, mixed
	UniqueColors  int     `json:"unique_colors"`
	LineWorkScore float64 `json:"line_work_score"`
	Complexity    float64 `json:"complexity"`
}

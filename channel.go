package inksep

import (
	"image"
	"image/color"
	"time"
)

// Default halftone screen settings.
const (
	defaultHalftoneFrequency   = 55
	simulatedHalftoneFrequency = 65
)

// InkChannel is the coverage map of one ink: 0 is no ink, 255 full deposition.
type InkChannel struct {
	ColorID   string
	Name      string
	Color     color.RGBA
	MatchCode string
	// 1-based print order.
	Order    int
	Coverage *image.Gray

	PixelCount         int
	CoveragePercentage float64

	HalftoneAngle     float64
	HalftoneFrequency float64
}

func newInkChannel(c PaletteColor, order, w, h int) InkChannel {
	return InkChannel{
		ColorID:           c.ID,
		Name:              c.Name,
		Color:             c.RGB,
		MatchCode:         c.MatchCode,
		Order:             order + 1,
		Coverage:          image.NewGray(image.Rect(0, 0, w, h)),
		HalftoneAngle:     paletteScreenAngle(order),
		HalftoneFrequency: defaultHalftoneFrequency,
	}
}

// paletteScreenAngle rotates consecutive palette screens by 15 degrees.
func paletteScreenAngle(order int) float64 {
	return float64(45 + 15*order)
}

// updateStats recomputes PixelCount and CoveragePercentage from Coverage.
func (ch *InkChannel) updateStats() {
	n := 0
	for _, v := range ch.Coverage.Pix {
		if v > 0 {
			n++
		}
	}
	ch.PixelCount = n
	if total := len(ch.Coverage.Pix); total > 0 {
		ch.CoveragePercentage = float64(n) / float64(total) * 100
	} else {
		ch.CoveragePercentage = 0
	}
}

func updateAllStats(channels []InkChannel) {
	for i := range channels {
		channels[i].updateStats()
	}
}

// SeparationResult is the output of one Separate call.
type SeparationResult struct {
	Method   Method
	Channels []InkChannel
	Success  bool

	ProcessingTime    time.Duration
	PaletteColorsUsed int
	// Sum of channel coverage percentages, capped at 100.
	TotalCoverage float64

	// Hybrid only.
	Strategy *Strategy
	Regions  []RegionStatus
}

// RegionStatus reports how one region fared. Region channels are merged
// into Channels and not kept.
type RegionStatus struct {
	RegionID string
	Method   Method
	Bounds   image.Rectangle
	Success  bool
	Err      error
	Duration time.Duration
}

func (r *SeparationResult) summarize() {
	used, total := 0, 0.0
	for _, ch := range r.Channels {
		if ch.PixelCount > 0 {
			used++
		}
		total += ch.CoveragePercentage
	}
	r.PaletteColorsUsed = used
	r.TotalCoverage = min(total, 100)
}

// Channel returns the channel with the given color id.
func (r *SeparationResult) Channel(id string) (InkChannel, bool) {
	for _, ch := range r.Channels {
		if ch.ColorID == id {
			return ch, true
		}
	}
	return InkChannel{}, false
}

// Coverages returns the coverage layers in print order.
func (r *SeparationResult) Coverages() []*image.Gray {
	out := make([]*image.Gray, len(r.Channels))
	for i, ch := range r.Channels {
		out[i] = ch.Coverage
	}
	return out
}

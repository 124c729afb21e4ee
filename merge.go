package inksep

import (
	"image"
	"math"

	"go.uber.org/zap"
)

// ChannelMerger recombines per-region channels into one full-image channel
// per palette ink.
type ChannelMerger struct {
	log *zap.Logger
}

func NewChannelMerger(log *zap.Logger) *ChannelMerger {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChannelMerger{log: log}
}

// Merge matches region channels to palette inks by color id and places
// them at their region's Bounds. With BlendEdges each region contributes its
// coverage times a Gaussian-blurred copy of its mask, so weights of disjoint
// covering regions sum to one. Without it each pixel takes the maximum
// coverage among the regions that own it. Failed regions and channels of
// unknown inks contribute nothing.
func (m *ChannelMerger) Merge(results []RegionResult, regions []Region, palette Palette, w, h int, opt Options) []InkChannel {
	masks := make(map[string]Mask, len(regions))
	for _, r := range regions {
		masks[r.ID] = r.Mask
	}
	full := image.Rect(0, 0, w, h)

	out := make([]InkChannel, len(palette))
	acc := make([][]float64, len(palette))
	for ci, c := range palette {
		out[ci] = newInkChannel(c, ci, w, h)
		acc[ci] = make([]float64, w*h)
	}
	seen := make([]bool, len(palette))
	merged := 0
	for i := range results {
		res := &results[i]
		mask, ok := masks[res.RegionID]
		if !res.Success || !ok {
			continue
		}
		area := res.Bounds
		if area.Empty() {
			area = full
		}
		if !area.In(full) || mask.W != w || mask.H != h {
			m.log.Warn("skipping region outside the image",
				zap.String("region", res.RegionID), zap.Stringer("bounds", area))
			continue
		}
		local := mask.crop(area)
		var weights []float64 // nil without blending
		if opt.BlendEdges {
			weights = blendWeights(local, opt.BlendRadius)
		}
		aw := area.Dx()
		for k := range res.Channels {
			ch := &res.Channels[k]
			ci := palette.IndexOf(ch.ColorID)
			if ci < 0 {
				continue
			}
			if ch.Coverage == nil || len(ch.Coverage.Pix) != aw*area.Dy() {
				m.log.Warn("skipping channel with wrong shape",
					zap.String("region", res.RegionID), zap.String("color", ch.ColorID))
				continue
			}
			if !seen[ci] {
				out[ci].HalftoneAngle = ch.HalftoneAngle
				out[ci].HalftoneFrequency = ch.HalftoneFrequency
				seen[ci] = true
			}
			dst := acc[ci]
			for j, v := range ch.Coverage.Pix {
				if weights == nil && !local.Pix[j] {
					continue
				}
				at := labelOffset(w, area.Min.X+j%aw, area.Min.Y+j/aw)
				if weights != nil {
					dst[at] += float64(v) * weights[j]
					continue
				}
				dst[at] = max(dst[at], float64(v))
			}
		}
		merged++
	}
	for ci := range out {
		for i, v := range acc[ci] {
			out[ci].Coverage.Pix[i] = clampUint8(math.Round(v))
		}
		out[ci].updateStats()
	}
	m.log.Debug("merged region channels",
		zap.Int("regions", merged),
		zap.Int("channels", len(out)),
		zap.Bool("blend", opt.BlendEdges))
	return out
}

// blendWeights blurs a binary mask with a kernel of half-width radius and
// sigma radius/2.
func blendWeights(mask Mask, radius int) []float64 {
	plane := make([]float64, len(mask.Pix))
	for i, in := range mask.Pix {
		if in {
			plane[i] = 1
		}
	}
	if radius <= 0 {
		return plane
	}
	return convolveSeparable(plane, mask.W, mask.H, gaussianKernel(float64(radius)/2, radius))
}

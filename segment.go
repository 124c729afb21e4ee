package inksep

import (
	"cmp"
	"fmt"
	"image/color"
	"math"
	"slices"

	"github.com/muesli/clusters"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

const (
	slicCompactness = 10.0
	textureWindow   = 15
	// Lightness gradients below this never count as edges, so flat images
	// do not yield noise edges from a near-zero percentile.
	minEdgeGradient   = 2.0
	dominantColorsK   = 3
	maxKMeansSamples  = 4096
	maxKMeansIter     = 10
	residualTextureLo = 0.3
)

// Segmenter partitions an image into disjoint regions covering every pixel.
type Segmenter struct {
	log *zap.Logger
}

func NewSegmenter(log *zap.Logger) *Segmenter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Segmenter{log: log}
}

// Segment runs the edge, color and texture cues in that priority order. A
// candidate claims its still unclaimed pixels only if there are at least
// MinRegionSize of them; whatever is left forms the last region.
func (s *Segmenter) Segment(img *Image, _ Hints, opt Options) []Region {
	n := img.Len()
	minSize := max(opt.MinRegionSize, 1)
	owner := make([]int, n)
	for i := range owner {
		owner[i] = -1
	}
	var sizes []int
	claim := func(candidate []int) bool {
		free := 0
		for _, i := range candidate {
			if owner[i] < 0 {
				free++
			}
		}
		if free < minSize {
			return false
		}
		id := len(sizes)
		for _, i := range candidate {
			if owner[i] < 0 {
				owner[i] = id
			}
		}
		sizes = append(sizes, free)
		return true
	}

	l := img.lightness()

	edges := edgeCandidates(l, img.W, img.H, opt.EdgeSensitivity)
	for _, c := range edges {
		claim(c)
	}
	nEdge := len(sizes)

	for _, c := range colorCandidates(img, opt.DetailLevel) {
		claim(c)
	}
	nColor := len(sizes) - nEdge

	gray := img.luma()
	if len(sizes) < 2 {
		for _, c := range textureCandidates(gray, img.W, img.H) {
			claim(c)
		}
	}
	nTexture := len(sizes) - nEdge - nColor

	masks := make([]Mask, len(sizes), len(sizes)+1)
	for i := range masks {
		masks[i] = NewMask(img.W, img.H)
	}
	var residual []int
	for i, o := range owner {
		if o < 0 {
			residual = append(residual, i)
			continue
		}
		masks[o].Pix[i] = true
	}
	if len(residual) > 0 {
		m := NewMask(img.W, img.H)
		for _, i := range residual {
			m.Pix[i] = true
		}
		masks = append(masks, m)
	}

	sobel := sobelMagnitude(l, img.W, img.H)
	regions := make([]Region, len(masks))
	for i, m := range masks {
		regions[i] = characterize(img, m, l, gray, sobel)
		regions[i].ID = fmt.Sprintf("region_%d", i+1)
	}
	if len(residual) > 0 {
		last := &regions[len(regions)-1]
		if last.TextureScore < residualTextureLo {
			last.Type = RegionBackground
		} else {
			last.Type = RegionMixed
		}
	}

	s.log.Debug("segmented image",
		zap.Int("regions", len(regions)),
		zap.Int("edge", nEdge),
		zap.Int("color", nColor),
		zap.Int("texture", nTexture),
		zap.Int("residual_pixels", len(residual)))
	return regions
}

// ============ CUES ============

// edgeCandidates thresholds the lightness gradient at two smoothing scales,
// dilates the union and returns its connected components.
func edgeCandidates(l []float64, w, h int, sensitivity float64) [][]int {
	edges := make([]bool, len(l))
	for _, sigma := range []float64{1, 3} {
		g := centralGradient(gaussianBlur(l, w, h, sigma), w, h)
		sorted := slices.Clone(g)
		slices.Sort(sorted)
		thr := max(stat.Quantile(0.75, stat.Empirical, sorted, nil), minEdgeGradient)
		for i, v := range g {
			if v > thr {
				edges[i] = true
			}
		}
	}
	radius := int(10*sensitivity) / 2
	labels, count := components(dilate(edges, w, h, radius), w, h)
	return groupLabels(labels, count)
}

// colorCandidates returns SLIC superpixels.
func colorCandidates(img *Image, detail DetailLevel) [][]int {
	labels := slic(img, superpixelCount(img.Len(), detail), slicCompactness)
	count := 0
	for _, v := range labels {
		count = max(count, v+1)
	}
	return groupLabels(labels, count)
}

func superpixelCount(area int, detail DetailLevel) int {
	divisor := 5000
	switch detail {
	case DetailLow:
		divisor = 20000
	case DetailMedium:
		divisor = 10000
	}
	return max(10, area/divisor)
}

// textureCandidates splits the image by local luminance deviation at its
// 60th percentile: textured first, then smooth.
func textureCandidates(gray []float64, w, h int) [][]int {
	std := localStdDev(gray, w, h, textureWindow)
	sorted := slices.Clone(std)
	slices.Sort(sorted)
	thr := stat.Quantile(0.6, stat.Empirical, sorted, nil)
	var textured, smooth []int
	for i, v := range std {
		if v > thr {
			textured = append(textured, i)
		} else {
			smooth = append(smooth, i)
		}
	}
	return [][]int{textured, smooth}
}

func groupLabels(labels []int, count int) [][]int {
	out := make([][]int, count)
	for i, l := range labels {
		if l >= 0 {
			out[l] = append(out[l], i)
		}
	}
	return out
}

// ============ CHARACTERIZATION ============

func characterize(img *Image, m Mask, l, gray, sobel []float64) Region {
	r := Region{Mask: m, Priority: 5}
	idx := r.pixels()
	r.PixelCount = len(idx)
	r.CoveragePercentage = float64(len(idx)) / float64(img.Len()) * 100
	r.Bounds = m.Bounds()
	if len(idx) == 0 {
		r.Type = RegionMixed
		r.Complexity = ComplexitySimple
		return r
	}

	edgeSum := 0.0
	ls := make([]float64, len(idx))
	gs := make([]float64, len(idx))
	unique := make(map[uint32]struct{})
	for k, i := range idx {
		edgeSum += sobel[i]
		ls[k] = l[i]
		gs[k] = gray[i]
		cr, cg, cb := img.RGBAt(i)
		unique[uint32(cr)<<16|uint32(cg)<<8|uint32(cb)] = struct{}{}
	}
	r.EdgeSharpness = min(1, edgeSum/float64(len(idx))/50)
	r.HasGradients = hasSmoothRamp(ls)
	r.TextureScore = min(1, stat.PopStdDev(gs, nil)/30)
	r.UniqueColors = len(unique)
	r.DominantColors = dominantColors(img, idx, dominantColorsK)
	r.Type = guessType(r.EdgeSharpness, r.TextureScore, r.HasGradients, r.UniqueColors)
	r.Complexity = rateComplexity(r.UniqueColors, r.HasGradients)
	return r
}

// hasSmoothRamp sorts the lightness values and reports whether more than
// 70% of adjacent steps are below 5. Dense fine texture also passes.
func hasSmoothRamp(ls []float64) bool {
	if len(ls) < 2 {
		return false
	}
	sorted := slices.Clone(ls)
	slices.Sort(sorted)
	small := 0
	for i := 1; i < len(sorted); i++ {
		if sorted[i]-sorted[i-1] < 5 {
			small++
		}
	}
	return float64(small)/float64(len(sorted)-1) > 0.7
}

func guessType(edge, texture float64, gradients bool, unique int) RegionType {
	switch {
	case edge > 0.7 && !gradients && unique < 10:
		return RegionVector
	case texture > 0.6 && gradients:
		return RegionPhoto
	case edge > 0.8 && unique < 3:
		return RegionText
	default:
		return RegionMixed
	}
}

func rateComplexity(unique int, gradients bool) Complexity {
	switch {
	case unique < 3 && !gradients:
		return ComplexitySimple
	case unique <= 6:
		return ComplexityModerate
	default:
		return ComplexityComplex
	}
}

// dominantColors runs a seeded k-means over the region's RGB values. Seeds
// are the means of the most populated 32-level color bins, so the result is
// deterministic. Colors are ordered by cluster population.
func dominantColors(img *Image, idx []int, k int) []color.RGBA {
	stride := max(1, len(idx)/maxKMeansSamples)
	type bin struct {
		key     uint32
		n       int
		r, g, b float64
	}
	bins := make(map[uint32]*bin)
	var data clusters.Observations
	for s := 0; s < len(idx); s += stride {
		cr, cg, cb := img.RGBAt(idx[s])
		key := uint32(cr>>5)<<16 | uint32(cg>>5)<<8 | uint32(cb>>5)
		b, ok := bins[key]
		if !ok {
			b = &bin{key: key}
			bins[key] = b
		}
		b.n++
		b.r += float64(cr)
		b.g += float64(cg)
		b.b += float64(cb)
		data = append(data, clusters.Coordinates{float64(cr), float64(cg), float64(cb)})
	}
	ranked := make([]*bin, 0, len(bins))
	for _, b := range bins {
		ranked = append(ranked, b)
	}
	slices.SortFunc(ranked, func(a, b *bin) int {
		if c := cmp.Compare(b.n, a.n); c != 0 {
			return c
		}
		return cmp.Compare(a.key, b.key)
	})

	k = min(k, len(ranked))
	cc := make(clusters.Clusters, k)
	for i := range k {
		n := float64(ranked[i].n)
		cc[i].Center = clusters.Coordinates{ranked[i].r / n, ranked[i].g / n, ranked[i].b / n}
	}
	for range maxKMeansIter {
		cc.Reset()
		for _, p := range data {
			ci := cc.Nearest(p)
			cc[ci].Append(p)
		}
		moved := false
		for i := range cc {
			prev := slices.Clone(cc[i].Center)
			cc[i].Recenter()
			if !slices.Equal(prev, cc[i].Center) {
				moved = true
			}
		}
		if !moved {
			break
		}
	}

	order := make([]int, k)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(len(cc[b].Observations), len(cc[a].Observations))
	})
	out := make([]color.RGBA, 0, k)
	for _, i := range order {
		if len(cc[i].Observations) == 0 {
			continue
		}
		c := cc[i].Center
		out = append(out, color.RGBA{
			R: uint8(math.Round(c[0])),
			G: uint8(math.Round(c[1])),
			B: uint8(math.Round(c[2])),
			A: 255,
		})
	}
	return out
}

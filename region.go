package inksep

import (
	"image"
	"image/color"
)

type RegionType string

const (
	RegionVector     RegionType = "vector"
	RegionPhoto      RegionType = "photo"
	RegionText       RegionType = "text"
	RegionMixed      RegionType = "mixed"
	RegionBackground RegionType = "background"
)

type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Mask is a boolean raster with the source image's dimensions.
type Mask struct {
	W, H int
	Pix  []bool
}

func NewMask(w, h int) Mask {
	return Mask{W: w, H: h, Pix: make([]bool, w*h)}
}

// FullMask covers every pixel.
func FullMask(w, h int) Mask {
	m := NewMask(w, h)
	for i := range m.Pix {
		m.Pix[i] = true
	}
	return m
}

func (m Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Bounds returns the smallest rectangle holding every set pixel.
func (m Mask) Bounds() image.Rectangle {
	r := image.Rectangle{}
	first := true
	for i, v := range m.Pix {
		if !v {
			continue
		}
		x, y := i%m.W, i/m.W
		if first {
			r = image.Rect(x, y, x+1, y+1)
			first = false
			continue
		}
		r.Min.X = min(r.Min.X, x)
		r.Min.Y = min(r.Min.Y, y)
		r.Max.X = max(r.Max.X, x+1)
		r.Max.Y = max(r.Max.Y, y+1)
	}
	return r
}

// crop returns the part of m inside r with its origin at r.Min.
func (m Mask) crop(r image.Rectangle) Mask {
	out := NewMask(r.Dx(), r.Dy())
	for y := range out.H {
		copy(out.Pix[y*out.W:(y+1)*out.W], m.Pix[(r.Min.Y+y)*m.W+r.Min.X:])
	}
	return out
}

// Gray renders the mask as 0/255 for export.
func (m Mask) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.W, m.H))
	for i, v := range m.Pix {
		if v {
			g.Pix[i] = 255
		}
	}
	return g
}

// Region is one content area of the image together with its measured
// characteristics and, once advised, its separation method.
type Region struct {
	ID         string
	Mask       Mask
	Type       RegionType
	Complexity Complexity

	Bounds             image.Rectangle
	PixelCount         int
	CoveragePercentage float64

	DominantColors []color.RGBA
	UniqueColors   int
	HasGradients   bool
	EdgeSharpness  float64 // 0-1
	TextureScore   float64 // 0-1

	Method           Method
	MethodConfidence float64 // 0-1
	Reasoning        string
	Priority         int // 1-10
}

// pixels returns the raster indices covered by the region.
func (r *Region) pixels() []int {
	out := make([]int, 0, r.PixelCount)
	for i, v := range r.Mask.Pix {
		if v {
			out = append(out, i)
		}
	}
	return out
}

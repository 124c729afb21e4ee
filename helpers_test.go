package inksep

import (
	"image/color"
	"testing"
)

// fillImage returns a w×h image painted by f.
func fillImage(t *testing.T, w, h int, f func(x, y int) color.RGBA) *Image {
	t.Helper()
	pix := make([]uint8, w*h*3)
	for y := range h {
		for x := range w {
			c := f(x, y)
			off := pixOffset(w, x, y)
			pix[off], pix[off+1], pix[off+2] = c.R, c.G, c.B
		}
	}
	img, err := NewImageFromRGB(w, h, pix)
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func solidImage(t *testing.T, w, h int, c color.RGBA) *Image {
	return fillImage(t, w, h, func(int, int) color.RGBA { return c })
}

// splitImage has a flat red left half and a blue to white ramp on the right.
func splitImage(t *testing.T, w, h int) *Image {
	return fillImage(t, w, h, func(x, y int) color.RGBA {
		if x < w/2 {
			return color.RGBA{220, 30, 30, 255}
		}
		v := uint8(255 * (x - w/2) / max(w/2-1, 1))
		return color.RGBA{v, v, 255, 255}
	})
}

func testPalette(t *testing.T, hexes ...string) Palette {
	t.Helper()
	p := make(Palette, len(hexes))
	for i, h := range hexes {
		c, err := ParsePaletteColor(string(rune('a'+i)), h, h)
		if err != nil {
			t.Fatal(err)
		}
		p[i] = c
	}
	return p
}

// halfMasks splits a w×h raster into left and right halves.
func halfMasks(w, h int) (left, right Mask) {
	left, right = NewMask(w, h), NewMask(w, h)
	for y := range h {
		for x := range w {
			i := labelOffset(w, x, y)
			if x < w/2 {
				left.Pix[i] = true
			} else {
				right.Pix[i] = true
			}
		}
	}
	return left, right
}

func regionFromMask(id string, m Mask, img *Image) Region {
	n := m.Count()
	return Region{
		ID:                 id,
		Mask:               m,
		Type:               RegionMixed,
		Complexity:         ComplexityModerate,
		Bounds:             m.Bounds(),
		PixelCount:         n,
		CoveragePercentage: float64(n) / float64(img.Len()) * 100,
		Priority:           5,
	}
}

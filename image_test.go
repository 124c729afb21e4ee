package inksep

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
)

func TestLabFromRGB(t *testing.T) {
	white := LabFromRGB(255, 255, 255)
	if math.Abs(white.L-100) > 0.5 || math.Abs(white.A) > 0.5 || math.Abs(white.B) > 0.5 {
		t.Errorf("white = %+v, want L=100 a=0 b=0", white)
	}
	black := LabFromRGB(0, 0, 0)
	if black.L != 0 {
		t.Errorf("black L = %g, want 0", black.L)
	}
	red := LabFromRGB(255, 0, 0)
	if red.A <= 0 {
		t.Errorf("red a* = %f, want positive", red.A)
	}
}

func TestRGBToLab(t *testing.T) {
	pix := []uint8{255, 255, 255, 0, 0, 0, 12, 200, 99}
	lab := RGBToLab(pix)
	if len(lab) != len(pix) {
		t.Fatalf("len = %d, want %d", len(lab), len(pix))
	}
	for i := 0; i < len(pix); i += 3 {
		want := LabFromRGB(pix[i], pix[i+1], pix[i+2])
		got := Lab{lab[i], lab[i+1], lab[i+2]}
		if got != want {
			t.Errorf("pixel %d: %+v != %+v", i/3, got, want)
		}
		if got.L < 0 || got.L > 100 {
			t.Errorf("pixel %d: L out of range: %g", i/3, got.L)
		}
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic for a buffer of 4 bytes")
		}
	}()
	RGBToLab(make([]uint8, 4))
}

func TestNewImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(2, 3, 6, 5))
	src.Set(2, 3, color.NRGBA{10, 20, 30, 255})
	img, err := NewImage(src)
	if err != nil {
		t.Fatal(err)
	}
	if img.W != 4 || img.H != 2 {
		t.Fatalf("size = %dx%d, want 4x2", img.W, img.H)
	}
	if r, g, b := img.RGBAt(0); r != 10 || g != 20 || b != 30 {
		t.Errorf("origin = %d,%d,%d", r, g, b)
	}

	for _, bad := range []image.Image{nil, image.NewRGBA(image.Rectangle{})} {
		if _, err := NewImage(bad); !errors.Is(err, ErrInvalidImage) {
			t.Errorf("NewImage(%v) error = %v, want ErrInvalidImage", bad, err)
		}
	}
}

func TestNewImageFromRGB(t *testing.T) {
	tests := []struct {
		w, h, n int
		ok      bool
	}{
		{2, 2, 12, true},
		{2, 2, 11, false},
		{0, 2, 0, false},
		{2, -1, 0, false},
	}
	for _, tc := range tests {
		_, err := NewImageFromRGB(tc.w, tc.h, make([]uint8, tc.n))
		if tc.ok && err != nil {
			t.Errorf("%dx%d/%d: %v", tc.w, tc.h, tc.n, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidImage) {
			t.Errorf("%dx%d/%d: error = %v, want ErrInvalidImage", tc.w, tc.h, tc.n, err)
		}
	}

	pix := []uint8{1, 2, 3}
	img, _ := NewImageFromRGB(1, 1, pix)
	pix[0] = 99
	if img.RGB[0] != 1 {
		t.Error("NewImageFromRGB must copy its buffer")
	}
}

func TestFingerprint(t *testing.T) {
	a := solidImage(t, 4, 4, color.RGBA{1, 2, 3, 255})
	b := solidImage(t, 4, 4, color.RGBA{1, 2, 3, 255})
	c := solidImage(t, 4, 4, color.RGBA{1, 2, 4, 255})
	d := solidImage(t, 2, 8, color.RGBA{1, 2, 3, 255})
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("equal images differ")
	}
	if a.Fingerprint() == c.Fingerprint() || a.Fingerprint() == d.Fingerprint() {
		t.Error("different images collide")
	}
}

func TestLabLightnessRange(t *testing.T) {
	for _, v := range []uint8{0, 1, 2, 128, 254, 255} {
		for _, c := range [][3]uint8{{v, v, v}, {v, 0, 0}, {0, v, 0}, {0, 0, v}} {
			if l := LabFromRGB(c[0], c[1], c[2]).L; l < 0 || l > 100 {
				t.Errorf("L(%v) = %g outside [0,100]", c, l)
			}
		}
	}
}

func TestMaskedCrop(t *testing.T) {
	img := fillImage(t, 6, 4, func(x, y int) color.RGBA {
		return color.RGBA{uint8(10 * x), uint8(10 * y), 0, 255}
	})
	// diagonal mask: x == y
	mask := NewMask(6, 4)
	for i := range 4 {
		mask.Pix[labelOffset(6, i, i)] = true
	}
	area := image.Rect(1, 1, 4, 3)
	c := img.maskedCrop(mask, area)
	if c.W != 3 || c.H != 2 || len(c.RGB) != 18 || len(c.Lab) != 18 {
		t.Fatalf("crop is %dx%d with %d/%d values", c.W, c.H, len(c.RGB), len(c.Lab))
	}
	local := mask.crop(area)
	white := LabFromRGB(255, 255, 255)
	for y := range c.H {
		for x := range c.W {
			i := labelOffset(c.W, x, y)
			r, g, b := c.RGBAt(i)
			sx, sy := x+area.Min.X, y+area.Min.Y
			if local.Pix[i] != mask.Pix[labelOffset(6, sx, sy)] {
				t.Errorf("mask crop differs at %d,%d", sx, sy)
			}
			if sx == sy {
				if r != uint8(10*sx) || g != uint8(10*sy) || b != 0 || c.LabAt(i) != img.LabAt(labelOffset(6, sx, sy)) {
					t.Errorf("pixel %d,%d changed inside mask", sx, sy)
				}
				continue
			}
			if r != 255 || g != 255 || b != 255 || c.LabAt(i) != white {
				t.Errorf("pixel %d,%d not white outside mask", sx, sy)
			}
		}
	}
	if r, _, _ := img.RGBAt(labelOffset(6, 2, 1)); r != 20 {
		t.Error("maskedCrop modified the source image")
	}
}

package inksep

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Lab is a CIE L*a*b* value under D65, L in [0,100].
type Lab struct {
	L, A, B float64
}

// Image is an immutable RGB raster with its LAB form derived once on creation.
type Image struct {
	W, H int
	RGB  []uint8   // Interleaved RGB, len = W*H*3
	Lab  []float64 // Interleaved LAB, len = W*H*3
}

// NewImage copies src into an Image, dropping alpha.
func NewImage(src image.Image) (*Image, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: empty bounds %v", ErrInvalidImage, bounds)
	}
	pix := make([]uint8, w*h*3)
	for y := range h {
		for x := range w {
			r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			off := pixOffset(w, x, y)
			pix[off] = uint8(r >> 8)
			pix[off+1] = uint8(g >> 8)
			pix[off+2] = uint8(b >> 8)
		}
	}
	return newImage(w, h, pix), nil
}

// NewImageFromRGB builds an Image from an interleaved 8-bit RGB buffer.
// The buffer is copied.
func NewImageFromRGB(w, h int, pix []uint8) (*Image, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrInvalidImage, w, h)
	}
	if len(pix) != w*h*3 {
		return nil, fmt.Errorf("%w: buffer has %d bytes, want %d", ErrInvalidImage, len(pix), w*h*3)
	}
	return newImage(w, h, append([]uint8(nil), pix...)), nil
}

func newImage(w, h int, pix []uint8) *Image {
	return &Image{W: w, H: h, RGB: pix, Lab: RGBToLab(pix)}
}

func (img *Image) Bounds() image.Rectangle { return image.Rect(0, 0, img.W, img.H) }

// Len returns the pixel count.
func (img *Image) Len() int { return img.W * img.H }

// LabAt returns the LAB value of pixel i in raster order.
func (img *Image) LabAt(i int) Lab {
	off := i * 3
	return Lab{img.Lab[off], img.Lab[off+1], img.Lab[off+2]}
}

func (img *Image) RGBAt(i int) (r, g, b uint8) {
	off := i * 3
	return img.RGB[off], img.RGB[off+1], img.RGB[off+2]
}

// RGBA converts the image back to a standard library raster.
func (img *Image) RGBA() *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	for i := range img.Len() {
		r, g, b := img.RGBAt(i)
		out.Pix[i*4] = r
		out.Pix[i*4+1] = g
		out.Pix[i*4+2] = b
		out.Pix[i*4+3] = 255
	}
	return out
}

// Fingerprint is a content hash of the RGB buffer and its size.
func (img *Image) Fingerprint() string {
	h := md5.New()
	fmt.Fprintf(h, "%dx%d:", img.W, img.H)
	h.Write(img.RGB)
	return hex.EncodeToString(h.Sum(nil))
}

// maskedCrop returns the part of img inside area as a new Image with its
// origin at area.Min. Pixels outside mask are white in both the RGB and LAB
// buffers. area must lie within the image.
func (img *Image) maskedCrop(mask Mask, area image.Rectangle) *Image {
	white := LabFromRGB(255, 255, 255)
	w, h := area.Dx(), area.Dy()
	out := &Image{
		W:   w,
		H:   h,
		RGB: make([]uint8, w*h*3),
		Lab: make([]float64, w*h*3),
	}
	for y := range h {
		sy := area.Min.Y + y
		for x := range w {
			sx := area.Min.X + x
			dst, src := pixOffset(w, x, y), pixOffset(img.W, sx, sy)
			if !mask.Pix[labelOffset(mask.W, sx, sy)] {
				out.RGB[dst], out.RGB[dst+1], out.RGB[dst+2] = 255, 255, 255
				out.Lab[dst], out.Lab[dst+1], out.Lab[dst+2] = white.L, white.A, white.B
				continue
			}
			copy(out.RGB[dst:dst+3], img.RGB[src:src+3])
			copy(out.Lab[dst:dst+3], img.Lab[src:src+3])
		}
	}
	return out
}

// lightness returns the L plane.
func (img *Image) lightness() []float64 {
	out := make([]float64, img.Len())
	for i := range out {
		out[i] = img.Lab[i*3]
	}
	return out
}

// luma returns Rec. 601 luminance in [0,255].
func (img *Image) luma() []float64 {
	out := make([]float64, img.Len())
	for i := range out {
		r, g, b := img.RGBAt(i)
		out[i] = 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	}
	return out
}

// ============ RGB → LAB ============

// maxLabMemo bounds the per-conversion cache of already converted colors.
const maxLabMemo = 1 << 16

// RGBToLab converts an interleaved 8-bit sRGB buffer to interleaved LAB
// (D65). A buffer whose length is not a multiple of three is a programming
// error.
func RGBToLab(pix []uint8) []float64 {
	if len(pix)%3 != 0 {
		panic(fmt.Sprintf("inksep: RGB buffer length %d is not a multiple of 3", len(pix)))
	}
	lab := make([]float64, len(pix))
	memo := make(map[uint32]Lab)
	for off := 0; off < len(pix); off += 3 {
		key := uint32(pix[off])<<16 | uint32(pix[off+1])<<8 | uint32(pix[off+2])
		c, ok := memo[key]
		if !ok {
			c = LabFromRGB(pix[off], pix[off+1], pix[off+2])
			if len(memo) < maxLabMemo {
				memo[key] = c
			}
		}
		lab[off] = c.L
		lab[off+1] = c.A
		lab[off+2] = c.B
	}
	return lab
}

// LabFromRGB converts one 8-bit sRGB color. go-colorful reports L in [0,1];
// the result is rescaled to the conventional [0,100] range. L is clamped
// since black comes out a rounding error below zero.
func LabFromRGB(r, g, b uint8) Lab {
	c := colorful.Color{R: float64(r) / 255.0, G: float64(g) / 255.0, B: float64(b) / 255.0}
	l, a, bb := c.Lab()
	return Lab{L: min(max(l*100, 0), 100), A: a * 100, B: bb * 100}
}

// LabFromColor converts any color.Color, ignoring alpha.
func LabFromColor(c color.Color) Lab {
	r, g, b, _ := c.RGBA()
	return LabFromRGB(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

func pixOffset(w, x, y int) int {
	return (y*w + x) * 3
}

func labelOffset(w, x, y int) int {
	return y*w + x
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampUint8 clips to [0,255] and truncates.
func clampUint8(v float64) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

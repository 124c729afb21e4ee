package inksep

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// PaletteColor is one ink of the target palette.
type PaletteColor struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	RGB        color.RGBA `json:"-"`
	Lab        Lab        `json:"lab"`
	MatchCode  string     `json:"match_code,omitempty"` // e.g. a Pantone reference
	Confidence float64    `json:"confidence"`
}

// NewPaletteColor derives the LAB value with the same converter used for
// image pixels, so a pixel of exactly this color has zero Delta-E to it.
func NewPaletteColor(id, name string, c color.Color) PaletteColor {
	r, g, b, _ := c.RGBA()
	rgb := color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}
	return PaletteColor{
		ID:         id,
		Name:       name,
		RGB:        rgb,
		Lab:        LabFromRGB(rgb.R, rgb.G, rgb.B),
		Confidence: 1,
	}
}

// ParsePaletteColor builds a color from a "#rrggbb" string.
func ParsePaletteColor(id, name, hex string) (PaletteColor, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return PaletteColor{}, fmt.Errorf("palette color %q: %w", id, err)
	}
	r, g, b := c.RGB255()
	return NewPaletteColor(id, name, color.RGBA{R: r, G: g, B: b, A: 255}), nil
}

func (c PaletteColor) Hex() string {
	cf, _ := colorful.MakeColor(c.RGB)
	return cf.Hex()
}

// Palette is ordered; the order is the print/layer stacking order.
type Palette []PaletteColor

// Validate checks the palette is non-empty with unique ids.
func (p Palette) Validate() error {
	if len(p) == 0 {
		return ErrEmptyPalette
	}
	seen := make(map[string]struct{}, len(p))
	for _, c := range p {
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateColorID, c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

// IndexOf returns the position of the color with the given id, or -1.
func (p Palette) IndexOf(id string) int {
	for i, c := range p {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (p Palette) labs() []Lab {
	out := make([]Lab, len(p))
	for i, c := range p {
		out[i] = c.Lab
	}
	return out
}

package inksep

import "image/color"

// fixedInk describes one palette-independent process ink.
type fixedInk struct {
	id, name string
	color    color.RGBA
	angle    float64
}

var cmykInks = [4]fixedInk{
	{"cyan", "Cyan", color.RGBA{0, 255, 255, 255}, 15},
	{"magenta", "Magenta", color.RGBA{255, 0, 255, 255}, 75},
	{"yellow", "Yellow", color.RGBA{255, 255, 0, 255}, 0},
	{"black", "Black", color.RGBA{0, 0, 0, 255}, 45},
}

func fixedChannels(inks []fixedInk, w, h int) []InkChannel {
	channels := make([]InkChannel, len(inks))
	for i, ink := range inks {
		ch := newInkChannel(PaletteColor{ID: ink.id, Name: ink.name, RGB: ink.color}, i, w, h)
		ch.HalftoneAngle = ink.angle
		channels[i] = ch
	}
	return channels
}

// cmykEngine is the naive undercolor-removal process split. The palette is
// ignored.
type cmykEngine struct{}

func (cmykEngine) Separate(img *Image, _ Palette, _ Hints, _ Options) ([]InkChannel, error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}
	channels := fixedChannels(cmykInks[:], img.W, img.H)
	for i := range img.Len() {
		r, g, b := img.RGBAt(i)
		c, m, y, k := rgbToCMYK(r, g, b)
		channels[0].Coverage.Pix[i] = clampUint8(c * 255)
		channels[1].Coverage.Pix[i] = clampUint8(m * 255)
		channels[2].Coverage.Pix[i] = clampUint8(y * 255)
		channels[3].Coverage.Pix[i] = clampUint8(k * 255)
	}
	updateAllStats(channels)
	return channels, nil
}

// rgbToCMYK returns ink fractions in [0,1].
func rgbToCMYK(r8, g8, b8 uint8) (c, m, y, k float64) {
	r := float64(r8) / 255
	g := float64(g8) / 255
	b := float64(b8) / 255
	k = 1 - max(r, g, b)
	inv := 1 - k
	if inv == 0 {
		inv = 1e-10
	}
	c = (1 - r - k) / inv
	m = (1 - g - k) / inv
	y = (1 - b - k) / inv
	return c, m, y, k
}

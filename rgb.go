package inksep

import "image/color"

var rgbInks = [3]fixedInk{
	{"red", "Red", color.RGBA{255, 0, 0, 255}, 15},
	{"green", "Green", color.RGBA{0, 255, 0, 255}, 75},
	{"blue", "Blue", color.RGBA{0, 0, 255, 255}, 45},
}

// rgbEngine copies each RGB component into its own channel. The palette is
// ignored.
type rgbEngine struct{}

func (rgbEngine) Separate(img *Image, _ Palette, _ Hints, _ Options) ([]InkChannel, error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}
	channels := fixedChannels(rgbInks[:], img.W, img.H)
	for i := range img.Len() {
		r, g, b := img.RGBAt(i)
		channels[0].Coverage.Pix[i] = r
		channels[1].Coverage.Pix[i] = g
		channels[2].Coverage.Pix[i] = b
	}
	updateAllStats(channels)
	return channels, nil
}

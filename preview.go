package inksep

import (
	"image"
	"image/color"
	"slices"
)

// Preview simulates the print: channels are composited bottom to top in
// print order over an opaque substrate, each ink's coverage acting as its
// alpha.
func Preview(channels []InkChannel, substrate color.Color) *image.RGBA {
	if len(channels) == 0 {
		return image.NewRGBA(image.Rectangle{})
	}
	bounds := channels[0].Coverage.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	ordered := slices.Clone(channels)
	slices.SortStableFunc(ordered, func(a, b InkChannel) int { return a.Order - b.Order })

	sr, sg, sb, _ := substrate.RGBA()
	base := [3]float64{float64(sr>>8) / 255, float64(sg>>8) / 255, float64(sb>>8) / 255}
	for y := range h {
		for x := range w {
			i := labelOffset(w, x, y)
			outR, outG, outB := base[0], base[1], base[2]
			for _, ch := range ordered {
				if len(ch.Coverage.Pix) != w*h {
					continue
				}
				a := float64(ch.Coverage.Pix[i]) / 255.0
				if a == 0 {
					continue
				}
				oneMinusA := 1 - a
				outR = a*float64(ch.Color.R)/255 + oneMinusA*outR
				outG = a*float64(ch.Color.G)/255 + oneMinusA*outG
				outB = a*float64(ch.Color.B)/255 + oneMinusA*outB
			}
			out.SetRGBA(x, y, color.RGBA{
				uint8(max(0, min(255, outR*255))),
				uint8(max(0, min(255, outG*255))),
				uint8(max(0, min(255, outB*255))),
				255,
			})
		}
	}
	return out
}

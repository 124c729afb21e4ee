package inksep

// indexColorEngine assigns every pixel to exactly one ink. With
// DitherFloydSteinberg the quantization error is diffused in LAB before the
// next pixel is matched.
type indexColorEngine struct{}

func (indexColorEngine) Separate(img *Image, palette Palette, _ Hints, opt Options) ([]InkChannel, error) {
	if err := checkInput(img, palette); err != nil {
		return nil, err
	}
	channels := paletteChannels(img, palette)
	indices := quantize(img, palette, opt.Dither)
	for i, ci := range indices {
		channels[ci].Coverage.Pix[i] = 255
	}
	updateAllStats(channels)
	return channels, nil
}

// quantize returns the palette index chosen for every pixel in raster order.
func quantize(img *Image, palette Palette, dither Dither) []int {
	m := NewMatcher(palette)
	indices := make([]int, img.Len())
	if dither != DitherFloydSteinberg {
		for i := range indices {
			indices[i], _ = m.Closest(img.LabAt(i))
		}
		return indices
	}

	work := append([]float64(nil), img.Lab...)
	var e [3]float64
	for y := range img.H {
		for x := range img.W {
			i := labelOffset(img.W, x, y)
			off := i * 3
			old := Lab{work[off], work[off+1], work[off+2]}
			ci, _ := m.Closest(old)
			indices[i] = ci
			q := palette[ci].Lab
			e[0], e[1], e[2] = old.L-q.L, old.A-q.A, old.B-q.B
			work[off], work[off+1], work[off+2] = q.L, q.A, q.B
			diffuseError(work, img.W, img.H, 3, x, y, e[:])
		}
	}
	return indices
}

package inksep

// spotColorEngine gives each ink coverage only where a pixel lies within
// Tolerance Delta-E of it, falling off linearly to zero at the radius.
// Pixels far from every ink get nothing.
type spotColorEngine struct{}

func (spotColorEngine) Separate(img *Image, palette Palette, _ Hints, opt Options) ([]InkChannel, error) {
	if err := checkInput(img, palette); err != nil {
		return nil, err
	}
	channels := paletteChannels(img, palette)
	tol := opt.Tolerance
	n := img.Len()
	for ci, c := range palette {
		pix := channels[ci].Coverage.Pix
		for i := range n {
			pix[i] = spotCoverage(DeltaE(img.LabAt(i), c.Lab), tol)
		}
		channels[ci].updateStats()
	}
	return channels, nil
}

func spotCoverage(d, tol float64) uint8 {
	if !(tol > 0) {
		if d == 0 {
			return 255
		}
		return 0
	}
	if d > tol {
		return 0
	}
	return clampUint8(255 * (1 - d/tol))
}

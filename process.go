package inksep

// simulatedProcessEngine blends every ink by its normalized inverse LAB
// distance, so coverage overlaps smoothly across gradients.
type simulatedProcessEngine struct{}

func (simulatedProcessEngine) Separate(img *Image, palette Palette, _ Hints, opt Options) ([]InkChannel, error) {
	if err := checkInput(img, palette); err != nil {
		return nil, err
	}
	channels := paletteChannels(img, palette)
	m := NewMatcher(palette)
	weights := make([]float64, len(palette))
	for i := range img.Len() {
		weights = m.Contributions(img.LabAt(i), weights)
		for ci, w := range weights {
			channels[ci].Coverage.Pix[i] = clampUint8(w * 255)
		}
	}
	for ci := range channels {
		channels[ci].HalftoneFrequency = simulatedHalftoneFrequency
		if opt.Halftone == HalftoneErrorDiffusion {
			ditherGray(channels[ci].Coverage.Pix, img.W, img.H)
		}
		channels[ci].updateStats()
	}
	return channels, nil
}

package inksep

import "fmt"

// Engine turns an image into per-ink coverage channels. Implementations are
// stateless: the same inputs always produce the same channels.
type Engine interface {
	Separate(img *Image, palette Palette, hints Hints, opt Options) ([]InkChannel, error)
}

// engines is the single dispatch point from Method to implementation.
var engines = [...]Engine{
	MethodSpotColor:        spotColorEngine{},
	MethodSimulatedProcess: simulatedProcessEngine{},
	MethodIndexColor:       indexColorEngine{},
	MethodCMYK:             cmykEngine{},
	MethodRGB:              rgbEngine{},
}

// EngineFor returns the engine implementing m. MethodHybrid has no single
// engine; use Separator.
func EngineFor(m Method) (Engine, error) {
	if !m.IsEngine() {
		return nil, fmt.Errorf("%w: no engine for %v", ErrUnknownMethod, m)
	}
	return engines[m], nil
}

func checkImage(img *Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	if img.W <= 0 || img.H <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidImage, img.W, img.H)
	}
	n := img.W * img.H * 3
	if len(img.RGB) != n || len(img.Lab) != n {
		return fmt.Errorf("%w: buffers do not match %dx%d", ErrInvalidImage, img.W, img.H)
	}
	return nil
}

func checkInput(img *Image, palette Palette) error {
	if err := checkImage(img); err != nil {
		return err
	}
	return palette.Validate()
}

// paletteChannels allocates one empty channel per palette color.
func paletteChannels(img *Image, palette Palette) []InkChannel {
	channels := make([]InkChannel, len(palette))
	for i, c := range palette {
		channels[i] = newInkChannel(c, i, img.W, img.H)
	}
	return channels
}

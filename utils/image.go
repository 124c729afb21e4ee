package utils

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/setanarut/inksep"
)

// ReadImage decodes any registered format: png, jpeg, gif, bmp, tiff, webp.
func ReadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, err := DecodeImage(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func DecodeImage(r io.Reader) (image.Image, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if format == "" {
		return nil, fmt.Errorf("decode image: unknown format")
	}
	return img, nil
}

func SaveImage(img image.Image, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ChannelFilename is "<order>_<color id>.png", e.g. "01_ink_3.png".
func ChannelFilename(ch inksep.InkChannel) string {
	return fmt.Sprintf("%02d_%s.png", ch.Order, ch.ColorID)
}

// SaveChannels writes each coverage map as a grayscale PNG into dir and
// returns the written paths in print order.
func SaveChannels(channels []inksep.InkChannel, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(channels))
	for _, ch := range channels {
		p := filepath.Join(dir, ChannelFilename(ch))
		if err := SaveImage(ch.Coverage, p); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// SavePalette writes one tileSize square per ink, left to right.
func SavePalette(palette inksep.Palette, tileSize int, filename string) error {
	if len(palette) == 0 {
		return inksep.ErrEmptyPalette
	}
	if tileSize <= 0 {
		tileSize = 64
	}
	img := image.NewRGBA(image.Rect(0, 0, tileSize*len(palette), tileSize))
	for i, c := range palette {
		x0 := i * tileSize
		for y := range tileSize {
			for x := x0; x < x0+tileSize; x++ {
				img.SetRGBA(x, y, color.RGBA{R: c.RGB.R, G: c.RGB.G, B: c.RGB.B, A: 255})
			}
		}
	}
	return SaveImage(img, filename)
}

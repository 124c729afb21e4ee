package utils

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"go.uber.org/zap"

	"github.com/setanarut/inksep"
)

type PaletteMethod int

const (
	PaletteMethodDominantColor PaletteMethod = iota
	PaletteMethodKMeans
)

func (m PaletteMethod) String() string {
	switch m {
	case PaletteMethodKMeans:
		return "kmeans"
	default:
		return "dominantcolor"
	}
}

func ParsePaletteMethod(s string) (PaletteMethod, error) {
	switch s {
	case "kmeans":
		return PaletteMethodKMeans, nil
	case "dominantcolor", "":
		return PaletteMethodDominantColor, nil
	}
	return 0, fmt.Errorf("unknown palette method %q", s)
}

// SortPaletteByBrightness orders inks from brightest to darkest, so dark
// inks print last and sit on top.
func SortPaletteByBrightness(palette inksep.Palette) {
	slices.SortStableFunc(palette, func(a, b inksep.PaletteColor) int {
		ya := luminance(a.RGB)
		yb := luminance(b.RGB)
		if ya > yb {
			return -1
		}
		if ya < yb {
			return 1
		}
		return 0
	})
}

func luminance(c color.RGBA) float64 {
	cf, _ := colorful.MakeColor(c)
	r, g, b := cf.LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// minInkSeparation is the smallest Delta-E between two extracted inks.
// Closer pairs print as the same color.
const minInkSeparation = 5.0

// maxKMeansSamples bounds the pixels handed to k-means.
const maxKMeansSamples = 12000

// inkCandidate is a color proposed by an extractor and its share of the image.
type inkCandidate struct {
	rgb    color.RGBA
	lab    inksep.Lab
	weight float64
}

func newInkCandidate(c color.RGBA, weight float64) inkCandidate {
	c.A = 255
	return inkCandidate{rgb: c, lab: inksep.LabFromRGB(c.R, c.G, c.B), weight: max(weight, 1e-6)}
}

// ExtractPalette suggests up to k inks for an image, fewer when the image
// holds fewer distinguishable colors. Ids are "ink_1", "ink_2", ... in
// extraction order, heaviest first; names are hex codes.
func ExtractPalette(img image.Image, k int, method PaletteMethod, log *zap.Logger) inksep.Palette {
	if log == nil {
		log = zap.NewNop()
	}
	if k <= 0 {
		return nil
	}
	var cands []inkCandidate
	if method == PaletteMethodKMeans {
		cands = kmeansCandidates(img, max(k*4, k+2))
		if len(cands) == 0 {
			log.Warn("kmeans found no clusters, falling back to dominantcolor")
		}
	}
	if len(cands) == 0 {
		cands = dominantCandidates(img, max(24, k*8))
	}
	chosen := selectDiverse(cands, k)
	if len(chosen) < k {
		log.Debug("fewer distinct inks than requested",
			zap.Int("requested", k), zap.Int("found", len(chosen)))
	}
	palette := make(inksep.Palette, len(chosen))
	for i, c := range chosen {
		pc := inksep.NewPaletteColor(fmt.Sprintf("ink_%d", i+1), "", c.rgb)
		pc.Name = pc.Hex()
		palette[i] = pc
	}
	return palette
}

func dominantCandidates(img image.Image, n int) []inkCandidate {
	found := dominantcolor.FindWeight(img, n)
	if len(found) == 0 {
		return []inkCandidate{newInkCandidate(color.RGBA{R: 128, G: 128, B: 128}, 1)}
	}
	out := make([]inkCandidate, len(found))
	for i, c := range found {
		out[i] = newInkCandidate(c.RGBA, c.Weight)
	}
	return out
}

// kmeansCandidates clusters a subsample of opaque pixels in LAB, weighting
// each center by its population. Seeding is random, so repeated calls may
// differ.
func kmeansCandidates(img image.Image, n int) []inkCandidate {
	b := img.Bounds()
	area := b.Dx() * b.Dy()
	if area == 0 {
		return nil
	}
	step := 1
	if area > maxKMeansSamples {
		step = int(math.Sqrt(float64(area)/maxKMeansSamples)) + 1
	}
	data := make(clusters.Observations, 0, min(area, maxKMeansSamples))
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A == 0 {
				continue
			}
			lab := inksep.LabFromRGB(c.R, c.G, c.B)
			data = append(data, clusters.Coordinates{lab.L, lab.A, lab.B})
		}
	}
	if len(data) == 0 {
		return nil
	}
	cc, err := kmeans.New().Partition(data, min(n, len(data)))
	if err != nil {
		return nil
	}
	out := make([]inkCandidate, 0, len(cc))
	for _, c := range cc {
		if len(c.Observations) == 0 || len(c.Center) < 3 {
			continue
		}
		out = append(out, newInkCandidate(labToRGBA(c.Center[0], c.Center[1], c.Center[2]), float64(len(c.Observations))))
	}
	return out
}

// labToRGBA maps a LAB center back to the nearest displayable sRGB color.
func labToRGBA(l, a, b float64) color.RGBA {
	r, g, bl := colorful.Lab(l/100, a/100, b/100).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: bl, A: 255}
}

// selectDiverse greedily picks up to k candidates starting from the
// heaviest. Each next pick maximizes its Delta-E to the nearest chosen ink,
// scaled up for heavy candidates. Candidates within minInkSeparation of a
// chosen ink are never picked.
func selectDiverse(cands []inkCandidate, k int) []inkCandidate {
	if k <= 0 || len(cands) == 0 {
		return nil
	}
	seed, maxW := 0, 0.0
	for i, c := range cands {
		if c.weight > cands[seed].weight {
			seed = i
		}
		maxW = max(maxW, c.weight)
	}
	chosen := []inkCandidate{cands[seed]}
	// Delta-E from each candidate to its nearest chosen ink
	nearest := make([]float64, len(cands))
	for i, c := range cands {
		nearest[i] = inksep.DeltaE(c.lab, cands[seed].lab)
	}
	for len(chosen) < k {
		best, bestScore := -1, 0.0
		for i, c := range cands {
			if nearest[i] < minInkSeparation {
				continue
			}
			score := nearest[i] * (0.55 + 0.45*math.Sqrt(c.weight/maxW))
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			break
		}
		chosen = append(chosen, cands[best])
		for i, c := range cands {
			nearest[i] = min(nearest[i], inksep.DeltaE(c.lab, cands[best].lab))
		}
	}
	return chosen
}

// ParsePalette reads a comma separated list of "name=#rrggbb" or "#rrggbb"
// entries. Ids follow the same "ink_N" scheme as ExtractPalette.
func ParsePalette(s string) (inksep.Palette, error) {
	var palette inksep.Palette
	for i, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		name, hex, ok := strings.Cut(field, "=")
		if !ok {
			name, hex = field, field
		}
		c, err := inksep.ParsePaletteColor(fmt.Sprintf("ink_%d", i+1), strings.TrimSpace(name), strings.TrimSpace(hex))
		if err != nil {
			return nil, err
		}
		palette = append(palette, c)
	}
	if err := palette.Validate(); err != nil {
		return nil, err
	}
	return palette, nil
}

// PaletteFileEntry is one ink of a JSON palette file.
type PaletteFileEntry struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Hex        string   `json:"hex"`
	MatchCode  string   `json:"match_code,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"` // 1 when absent
}

// DecodePalette converts JSON palette entries, keeping their order.
func DecodePalette(entries []PaletteFileEntry) (inksep.Palette, error) {
	palette := make(inksep.Palette, 0, len(entries))
	for i, e := range entries {
		id := e.ID
		if id == "" {
			id = fmt.Sprintf("ink_%d", i+1)
		}
		c, err := inksep.ParsePaletteColor(id, e.Name, e.Hex)
		if err != nil {
			return nil, err
		}
		c.MatchCode = e.MatchCode
		if e.Confidence != nil {
			c.Confidence = *e.Confidence
		}
		palette = append(palette, c)
	}
	if err := palette.Validate(); err != nil {
		return nil, err
	}
	return palette, nil
}

// LoadPaletteFile reads a JSON array of PaletteFileEntry.
func LoadPaletteFile(path string) (inksep.Palette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []PaletteFileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("palette %s: %w", path, err)
	}
	return DecodePalette(entries)
}

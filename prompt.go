package inksep

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"text/template"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
)

// thumbnailSide bounds the longest side of the image sent to an oracle.
const thumbnailSide = 512

var promptFuncs = template.FuncMap{
	"inc":  func(i int) int { return i + 1 },
	"join": strings.Join,
}

var regionPrompt = template.Must(template.New("regions").Funcs(promptFuncs).Parse(
	`You are a screen printing color separation advisor. Recommend a separation method for every region of the attached image.

IMAGE
- Size: {{.Width}}x{{.Height}}
- Palette: {{len .Palette}} colors: {{range $i, $c := .Palette}}{{if $i}}, {{end}}{{$c.Name}} ({{$c.Hex}}){{end}}
- Texture type: {{.Hints.TextureType}}
- Has gradients: {{.Hints.HasGradients}}
- Edge type: {{.Hints.EdgeType}}

REGIONS
{{range $i, $r := .Regions}}Region {{inc $i}} ({{$r.ID}}): {{$r.Type}} area, {{printf "%.1f" $r.CoveragePercentage}}% of image, edge sharpness {{printf "%.2f" $r.EdgeSharpness}}, texture {{printf "%.2f" $r.TextureScore}}, gradients {{$r.HasGradients}}, {{$r.UniqueColors}} unique colors, dominant {{join $r.DominantColors " "}}
{{end}}
METHODS
- spot_color: flat colors, sharp edges, vector content
- simulated_process: photographs, gradients, fine detail
- index_color: moderate complexity, some gradients
- cmyk: standard four color process
- rgb: three channel fallback

Answer with one JSON object and nothing else:
{
  "overall_strategy": "short summary",
  "complexity_rating": "simple|moderate|complex",
  "regions": [
    {
      "region_id": "region_1",
      "region_type": "vector|photo|text|mixed|background",
      "complexity": "simple|moderate|complex",
      "recommended_method": "spot_color|simulated_process|index_color|cmyk|rgb",
      "method_confidence": 0.0,
      "reasoning": "why",
      "priority": 5
    }
  ],
  "expected_results": {"quality_rating": "excellent|good|fair", "channel_count": 0},
  "confidence_assessment": {"overall_confidence": 0.0}
}
Every region listed above must appear exactly once.
`))

var methodPrompt = template.Must(template.New("method").Funcs(promptFuncs).Parse(
	`You are a screen printing color separation advisor. Recommend the best separation method for the attached image.

IMAGE
- Palette: {{len .Palette}} colors: {{range $i, $c := .Palette}}{{if $i}}, {{end}}{{$c.Name}} ({{$c.Hex}}){{end}}
- Edge type: {{.Hints.EdgeType}}
- Has gradients: {{.Hints.HasGradients}}
- Texture type: {{.Hints.TextureType}}
- Line work score: {{printf "%.2f" .Hints.LineWorkScore}}
- Unique colors: {{.Hints.UniqueColors}}
- Complexity: {{printf "%.2f" .Hints.Complexity}}

METHODS
spot_color, simulated_process, index_color, cmyk, rgb, hybrid

Answer with one JSON object and nothing else:
{
  "recommended": {
    "method": "spot_color",
    "score": 0,
    "confidence": 0.0,
    "reasoning": "why",
    "strengths": ["..."],
    "limitations": ["..."],
    "expected_channels": 0,
    "quality": "excellent|good|fair"
  },
  "alternatives": [ {"method": "...", "score": 0, "confidence": 0.0} ]
}
`))

type promptData struct {
	Width, Height int
	Palette       []PaletteEntry
	Regions       []RegionSummary
	Hints         Hints
}

func regionRequest(img *Image, regions []Region, palette Palette, hints Hints) (*OracleRequest, error) {
	req := &OracleRequest{
		Kind:    requestRegions,
		Palette: paletteEntries(palette),
		Regions: summarizeRegions(regions),
		Hints:   hints,
	}
	return req, fillRequest(req, img, regionPrompt)
}

func methodRequest(img *Image, palette Palette, hints Hints) (*OracleRequest, error) {
	req := &OracleRequest{
		Kind:    requestMethod,
		Palette: paletteEntries(palette),
		Hints:   hints,
	}
	return req, fillRequest(req, img, methodPrompt)
}

func fillRequest(req *OracleRequest, img *Image, t *template.Template) error {
	var buf bytes.Buffer
	err := t.Execute(&buf, promptData{
		Width:   img.W,
		Height:  img.H,
		Palette: req.Palette,
		Regions: req.Regions,
		Hints:   req.Hints,
	})
	if err != nil {
		return err
	}
	req.Prompt = buf.String()
	req.Image, err = thumbnail(img, thumbnailSide)
	return err
}

func paletteEntries(p Palette) []PaletteEntry {
	out := make([]PaletteEntry, len(p))
	for i, c := range p {
		out[i] = PaletteEntry{ID: c.ID, Name: c.Name, Hex: c.Hex()}
	}
	return out
}

// summarizeRegions strips masks for transport.
func summarizeRegions(regions []Region) []RegionSummary {
	out := make([]RegionSummary, len(regions))
	for i, r := range regions {
		dom := make([]string, len(r.DominantColors))
		for k, c := range r.DominantColors {
			cf, _ := colorful.MakeColor(c)
			dom[k] = cf.Hex()
		}
		b := r.Bounds
		out[i] = RegionSummary{
			ID:                 r.ID,
			Type:               r.Type,
			Complexity:         r.Complexity,
			Bounds:             [4]int{b.Min.X, b.Min.Y, b.Dx(), b.Dy()},
			CoveragePercentage: r.CoveragePercentage,
			EdgeSharpness:      r.EdgeSharpness,
			TextureScore:       r.TextureScore,
			HasGradients:       r.HasGradients,
			UniqueColors:       r.UniqueColors,
			DominantColors:     dom,
		}
	}
	return out
}

// thumbnail scales the image so its longest side is at most side pixels
// and encodes it as PNG.
func thumbnail(img *Image, side int) ([]byte, error) {
	src := img.RGBA()
	w, h := img.W, img.H
	if longest := max(w, h); longest > side {
		w = max(1, w*side/longest)
		h = max(1, h*side/longest)
	}
	var dst image.Image = src
	if w != img.W || h != img.H {
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Src, nil)
		dst = scaled
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package utils

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/setanarut/inksep"
)

func TestParsePalette(t *testing.T) {
	p, err := ParsePalette("Red=#ff0000, #00ff00 ,Ink Blue=#0000FF")
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, c := range p {
		got = append(got, c.ID+"|"+c.Name+"|"+c.Hex())
	}
	want := []string{
		"ink_1|Red|#ff0000",
		"ink_2|#00ff00|#00ff00",
		"ink_3|Ink Blue|#0000ff",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("palette (-want +got):\n%s", diff)
	}

	if _, err := ParsePalette(""); !errors.Is(err, inksep.ErrEmptyPalette) {
		t.Errorf("empty: %v", err)
	}
	if _, err := ParsePalette("Red=#ff00"); err == nil {
		t.Error("short hex accepted")
	}
}

func TestDecodePalette(t *testing.T) {
	conf := 0.4
	p, err := DecodePalette([]PaletteFileEntry{
		{ID: "pms186", Name: "Red 186", Hex: "#c8102e", MatchCode: "PMS 186 C", Confidence: &conf},
		{Name: "White", Hex: "#ffffff"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p[0].ID != "pms186" || p[0].MatchCode != "PMS 186 C" || p[0].Confidence != 0.4 {
		t.Errorf("first = %+v", p[0])
	}
	if p[1].ID != "ink_2" || p[1].Confidence != 1 {
		t.Errorf("second = %+v", p[1])
	}
	_, err = DecodePalette([]PaletteFileEntry{{ID: "a", Hex: "#000000"}, {ID: "a", Hex: "#ffffff"}})
	if !errors.Is(err, inksep.ErrDuplicateColorID) {
		t.Errorf("duplicate ids: %v", err)
	}
}

func TestLoadPaletteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palette.json")
	data := `[{"id":"k","name":"Black","hex":"#000000"},{"name":"Gold","hex":"#d4af37"}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadPaletteFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(p) != 2 || p[1].Hex() != "#d4af37" {
		t.Errorf("palette = %+v", p)
	}
}

func TestSortPaletteByBrightness(t *testing.T) {
	p, _ := ParsePalette("#000000,#ffffff,#808080")
	SortPaletteByBrightness(p)
	got := []string{p[0].Hex(), p[1].Hex(), p[2].Hex()}
	if diff := cmp.Diff([]string{"#ffffff", "#808080", "#000000"}, got); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
}

func stripes() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 30, 30))
	cols := []color.RGBA{{255, 0, 0, 255}, {0, 0, 255, 255}, {255, 255, 255, 255}}
	for y := range 30 {
		for x := range 30 {
			img.SetRGBA(x, y, cols[x/10])
		}
	}
	return img
}

func TestExtractPalette(t *testing.T) {
	for _, m := range []PaletteMethod{PaletteMethodDominantColor, PaletteMethodKMeans} {
		p := ExtractPalette(stripes(), 3, m, nil)
		if len(p) == 0 || len(p) > 3 {
			t.Fatalf("%v: %d colors", m, len(p))
		}
		if err := p.Validate(); err != nil {
			t.Errorf("%v: %v", m, err)
		}
		for i, a := range p {
			if a.Name != a.Hex() || a.ID != fmt.Sprintf("ink_%d", i+1) {
				t.Errorf("%v: ink %d is %s/%s", m, i, a.ID, a.Name)
			}
			for _, b := range p[i+1:] {
				if d := inksep.DeltaE(a.Lab, b.Lab); d < minInkSeparation {
					t.Errorf("%v: %s and %s are only %.2f apart", m, a.Name, b.Name, d)
				}
			}
		}
	}
	if p := ExtractPalette(stripes(), 0, PaletteMethodKMeans, nil); p != nil {
		t.Errorf("k=0 gave %d inks", len(p))
	}
}

func TestSelectDiverse(t *testing.T) {
	cands := []inkCandidate{
		newInkCandidate(color.RGBA{R: 253, G: 2, B: 2}, 9),
		newInkCandidate(color.RGBA{R: 255, G: 255, B: 255}, 1),
		newInkCandidate(color.RGBA{R: 255}, 10),
		newInkCandidate(color.RGBA{B: 255}, 5),
	}
	hexes := func(cs []inkCandidate) []string {
		var out []string
		for _, c := range cs {
			out = append(out, inksep.NewPaletteColor("", "", c.rgb).Hex())
		}
		return out
	}
	tests := []struct {
		k    int
		want []string
	}{
		{0, nil},
		{1, []string{"#ff0000"}},
		{2, []string{"#ff0000", "#0000ff"}},
		// the near-red candidate is never picked
		{4, []string{"#ff0000", "#0000ff", "#ffffff"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, hexes(selectDiverse(cands, tt.k))); diff != "" {
			t.Errorf("k=%d (-want +got):\n%s", tt.k, diff)
		}
	}
}

func TestLabToRGBA(t *testing.T) {
	for _, c := range []color.RGBA{{12, 200, 99, 255}, {0, 0, 0, 255}, {255, 255, 255, 255}} {
		lab := inksep.LabFromRGB(c.R, c.G, c.B)
		got := labToRGBA(lab.L, lab.A, lab.B)
		if d := inksep.DeltaE(lab, inksep.LabFromRGB(got.R, got.G, got.B)); d > 1 {
			t.Errorf("%v came back as %v (Delta-E %.2f)", c, got, d)
		}
	}
	// out of gamut clamps instead of wrapping
	if got := labToRGBA(100, 0, -200); got.A != 255 || got.B != 255 {
		t.Errorf("out of gamut = %v", got)
	}
}

func TestSaveChannels(t *testing.T) {
	img, err := inksep.NewImage(stripes())
	if err != nil {
		t.Fatal(err)
	}
	p, _ := ParsePalette("Red=#ff0000,Blue=#0000ff,White=#ffffff")
	res, err := inksep.NewSeparator().Separate(t.Context(), img, p, inksep.MethodIndexColor, inksep.Hints{}, inksep.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := SaveChannels(res.Channels, dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(dir, "01_ink_1.png"),
		filepath.Join(dir, "02_ink_2.png"),
		filepath.Join(dir, "03_ink_3.png"),
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("paths (-want +got):\n%s", diff)
	}
	back, err := ReadImage(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if back.Bounds() != img.Bounds() {
		t.Errorf("bounds = %v", back.Bounds())
	}
	if g, ok := back.(*image.Gray); !ok || g.GrayAt(0, 0).Y != 255 || g.GrayAt(29, 0).Y != 0 {
		t.Errorf("red channel not round-tripped: %T", back)
	}

	if err := SavePalette(p, 8, filepath.Join(dir, "palette.png")); err != nil {
		t.Fatal(err)
	}
	if err := SavePalette(nil, 8, filepath.Join(dir, "none.png")); !errors.Is(err, inksep.ErrEmptyPalette) {
		t.Errorf("empty palette: %v", err)
	}
}

func TestParsePaletteMethod(t *testing.T) {
	if m, err := ParsePaletteMethod("kmeans"); err != nil || m != PaletteMethodKMeans {
		t.Errorf("kmeans = %v, %v", m, err)
	}
	if _, err := ParsePaletteMethod("median-cut"); err == nil {
		t.Error("unknown method accepted")
	}
}

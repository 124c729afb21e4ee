package inksep

import (
	"fmt"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func checkPartition(t *testing.T, img *Image, regions []Region) {
	t.Helper()
	if len(regions) == 0 {
		t.Fatal("no regions")
	}
	owners := make([]int, img.Len())
	ids := make(map[string]bool)
	for _, r := range regions {
		if ids[r.ID] {
			t.Errorf("duplicate region id %q", r.ID)
		}
		ids[r.ID] = true
		if r.Mask.W != img.W || r.Mask.H != img.H {
			t.Fatalf("%s mask is %dx%d", r.ID, r.Mask.W, r.Mask.H)
		}
		if r.PixelCount != r.Mask.Count() {
			t.Errorf("%s pixel count %d != mask count %d", r.ID, r.PixelCount, r.Mask.Count())
		}
		if r.Bounds != r.Mask.Bounds() {
			t.Errorf("%s bounds %v != %v", r.ID, r.Bounds, r.Mask.Bounds())
		}
		for _, v := range []float64{r.EdgeSharpness, r.TextureScore} {
			if v < 0 || v > 1 {
				t.Errorf("%s score %f out of range", r.ID, v)
			}
		}
		for i, in := range r.Mask.Pix {
			if in {
				owners[i]++
			}
		}
	}
	for i, n := range owners {
		if n != 1 {
			t.Fatalf("pixel %d owned by %d regions", i, n)
		}
	}
}

func TestSegmentPartition(t *testing.T) {
	tests := []struct {
		name string
		img  *Image
	}{
		{"split", splitImage(t, 64, 48)},
		{"box", fillImage(t, 60, 60, func(x, y int) color.RGBA {
			if x > 15 && x < 45 && y > 15 && y < 45 {
				return color.RGBA{0, 0, 0, 255}
			}
			return color.RGBA{255, 255, 255, 255}
		})},
		{"noise", fillImage(t, 40, 40, func(x, y int) color.RGBA {
			v := uint8((x*37 + y*91 + x*y*13) % 256)
			return color.RGBA{v, 255 - v, v / 2, 255}
		})},
		{"tiny", solidImage(t, 1, 1, color.RGBA{9, 9, 9, 255})},
	}
	s := NewSegmenter(nil)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opt := DefaultOptions()
			opt.MinRegionSize = 50
			regions := s.Segment(tc.img, Hints{}, opt)
			checkPartition(t, tc.img, regions)
			for i, r := range regions {
				if want := fmt.Sprintf("region_%d", i+1); r.ID != want {
					t.Errorf("id = %q, want %q", r.ID, want)
				}
			}
		})
	}
}

func TestSegmentDeterministic(t *testing.T) {
	img := splitImage(t, 64, 48)
	opt := DefaultOptions()
	opt.MinRegionSize = 50
	s := NewSegmenter(nil)
	first := s.Segment(img, Hints{}, opt)
	second := s.Segment(img, Hints{}, opt)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}

func TestSegmentUniform(t *testing.T) {
	img := solidImage(t, 32, 32, color.RGBA{255, 255, 255, 255})
	opt := DefaultOptions()
	opt.MinRegionSize = 1000
	regions := NewSegmenter(nil).Segment(img, Hints{}, opt)
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(regions))
	}
	r := regions[0]
	if r.PixelCount != img.Len() || r.CoveragePercentage != 100 {
		t.Errorf("region covers %d pixels (%f%%)", r.PixelCount, r.CoveragePercentage)
	}
	if r.EdgeSharpness > 1e-6 || r.TextureScore > 1e-6 {
		t.Errorf("flat region scored edge=%f texture=%f", r.EdgeSharpness, r.TextureScore)
	}
	if r.UniqueColors != 1 {
		t.Errorf("unique colors = %d", r.UniqueColors)
	}
	if diff := cmp.Diff([]color.RGBA{{255, 255, 255, 255}}, r.DominantColors); diff != "" {
		t.Errorf("dominant colors (-want +got):\n%s", diff)
	}
}

func TestSegmentLargeMinimumLeavesResidual(t *testing.T) {
	img := splitImage(t, 30, 20)
	opt := DefaultOptions()
	opt.MinRegionSize = img.Len() + 1
	regions := NewSegmenter(nil).Segment(img, Hints{}, opt)
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want the residual only", len(regions))
	}
	if typ := regions[0].Type; typ != RegionBackground && typ != RegionMixed {
		t.Errorf("residual type = %s", typ)
	}
	checkPartition(t, img, regions)
}

func TestHasSmoothRamp(t *testing.T) {
	tests := []struct {
		ls   []float64
		want bool
	}{
		{nil, false},
		{[]float64{50}, false},
		{[]float64{50, 50, 50}, true},
		{[]float64{0, 1, 2, 3, 4, 5, 6}, true},
		{[]float64{0, 20, 40, 60, 80}, false},
	}
	for _, tc := range tests {
		if got := hasSmoothRamp(tc.ls); got != tc.want {
			t.Errorf("hasSmoothRamp(%v) = %v", tc.ls, got)
		}
	}
}

func TestComponents(t *testing.T) {
	// two blobs separated by a column of false
	mask := []bool{
		true, false, true,
		true, false, true,
	}
	labels, n := components(mask, 3, 2)
	if n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
	if labels[0] != labels[3] || labels[2] != labels[5] || labels[0] == labels[2] {
		t.Errorf("labels = %v", labels)
	}
	if labels[1] != -1 {
		t.Errorf("background label = %d", labels[1])
	}
}

func TestSuperpixelCount(t *testing.T) {
	if n := superpixelCount(100, DetailHigh); n != 10 {
		t.Errorf("small image: %d", n)
	}
	if n := superpixelCount(1_000_000, DetailHigh); n != 200 {
		t.Errorf("high: %d", n)
	}
	if n := superpixelCount(1_000_000, DetailLow); n != 50 {
		t.Errorf("low: %d", n)
	}
}

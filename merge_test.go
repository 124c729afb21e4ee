package inksep

import (
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMergeSingleRegionIdentity(t *testing.T) {
	img := splitImage(t, 24, 16)
	p := testPalette(t, "#dc1e1e", "#0000ff", "#ffffff")
	channels, err := simulatedProcessEngine{}.Separate(img, p, Hints{}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	region := regionFromMask("region_1", FullMask(img.W, img.H), img)
	results := []RegionResult{{RegionID: "region_1", Method: MethodSimulatedProcess, Channels: channels, Success: true}}

	for _, blend := range []bool{false, true} {
		opt := DefaultOptions()
		opt.BlendEdges = blend
		opt.BlendRadius = 4
		merged := NewChannelMerger(nil).Merge(results, []Region{region}, p, img.W, img.H, opt)
		if len(merged) != len(p) {
			t.Fatalf("blend=%v: %d channels", blend, len(merged))
		}
		for i := range merged {
			if diff := cmp.Diff(channels[i].Coverage.Pix, merged[i].Coverage.Pix); diff != "" {
				t.Errorf("blend=%v %s (-region +merged):\n%s", blend, p[i].ID, diff)
			}
			if merged[i].HalftoneFrequency != simulatedHalftoneFrequency {
				t.Errorf("frequency not carried over: %f", merged[i].HalftoneFrequency)
			}
		}
	}
}

// fullInk returns one channel per palette color, each at value v.
func fullInk(p Palette, w, h int, v uint8) []InkChannel {
	out := make([]InkChannel, len(p))
	for i, c := range p {
		out[i] = newInkChannel(c, i, w, h)
		for k := range out[i].Coverage.Pix {
			out[i].Coverage.Pix[k] = v
		}
		out[i].updateStats()
	}
	return out
}

func TestMergeBlendIsPartitionOfUnity(t *testing.T) {
	w, h := 20, 10
	img := solidImage(t, w, h, color.RGBA{0, 0, 0, 255})
	p := testPalette(t, "#000000")
	left, right := halfMasks(w, h)
	regions := []Region{regionFromMask("region_1", left, img), regionFromMask("region_2", right, img)}
	results := []RegionResult{
		{RegionID: "region_1", Channels: fullInk(p, w, h, 255), Success: true},
		{RegionID: "region_2", Channels: fullInk(p, w, h, 255), Success: true},
	}
	for _, radius := range []int{0, 1, 3, 8} {
		opt := DefaultOptions()
		opt.BlendRadius = radius
		merged := NewChannelMerger(nil).Merge(results, regions, p, w, h, opt)
		for i, v := range merged[0].Coverage.Pix {
			if v != 255 {
				t.Fatalf("radius %d: pixel %d = %d, want 255", radius, i, v)
			}
		}
	}
}

func TestMergeHardEdges(t *testing.T) {
	w, h := 10, 4
	img := solidImage(t, w, h, color.RGBA{0, 0, 0, 255})
	p := testPalette(t, "#000000", "#ffffff")
	left, right := halfMasks(w, h)
	regions := []Region{regionFromMask("region_1", left, img), regionFromMask("region_2", right, img)}
	results := []RegionResult{
		{RegionID: "region_1", Channels: fullInk(p[:1], w, h, 200), Success: true},
		{RegionID: "region_2", Channels: fullInk(p, w, h, 100), Success: true},
	}
	opt := DefaultOptions()
	opt.BlendEdges = false
	merged := NewChannelMerger(nil).Merge(results, regions, p, w, h, opt)
	for i := range w * h {
		wantA, wantB := uint8(100), uint8(100)
		if left.Pix[i] {
			wantA, wantB = 200, 0
		}
		if merged[0].Coverage.Pix[i] != wantA || merged[1].Coverage.Pix[i] != wantB {
			t.Fatalf("pixel %d = %d/%d, want %d/%d", i,
				merged[0].Coverage.Pix[i], merged[1].Coverage.Pix[i], wantA, wantB)
		}
	}
	if merged[1].PixelCount != w*h/2 || merged[1].CoveragePercentage != 50 {
		t.Errorf("stats not recomputed: %d / %f", merged[1].PixelCount, merged[1].CoveragePercentage)
	}
	if merged[0].Order != 1 || merged[1].Order != 2 || merged[1].ColorID != p[1].ID {
		t.Errorf("palette order lost: %+v", merged)
	}
}

func TestMergeSkipsFailedRegions(t *testing.T) {
	w, h := 8, 4
	img := solidImage(t, w, h, color.RGBA{0, 0, 0, 255})
	p := testPalette(t, "#000000")
	left, right := halfMasks(w, h)
	regions := []Region{regionFromMask("region_1", left, img), regionFromMask("region_2", right, img)}
	results := []RegionResult{
		{RegionID: "region_1", Channels: fullInk(p, w, h, 255), Success: true},
		{RegionID: "region_2", Channels: fullInk(p, w, h, 255), Success: false},
		{RegionID: "region_9", Channels: fullInk(p, w, h, 255), Success: true},
	}
	opt := DefaultOptions()
	opt.BlendEdges = false
	merged := NewChannelMerger(nil).Merge(results, regions, p, w, h, opt)
	for i, v := range merged[0].Coverage.Pix {
		want := uint8(0)
		if left.Pix[i] {
			want = 255
		}
		if v != want {
			t.Fatalf("pixel %d = %d, want %d", i, v, want)
		}
	}
}

func TestBlendWeights(t *testing.T) {
	left, right := halfMasks(12, 6)
	a := blendWeights(left, 3)
	b := blendWeights(right, 3)
	for i := range a {
		if s := a[i] + b[i]; s < 1-1e-9 || s > 1+1e-9 {
			t.Fatalf("weights at %d sum to %f", i, s)
		}
	}
	if a[0] < 0.99 || a[11] > 0.01 {
		t.Errorf("far weights = %f, %f", a[0], a[11])
	}
}

func TestMergePlacesCroppedChannels(t *testing.T) {
	w, h := 10, 4
	img := solidImage(t, w, h, color.RGBA{0, 0, 0, 255})
	p := testPalette(t, "#000000")
	left, right := halfMasks(w, h)
	regions := []Region{regionFromMask("region_1", left, img), regionFromMask("region_2", right, img)}
	leftBox, rightBox := left.Bounds(), right.Bounds()
	results := []RegionResult{
		{RegionID: "region_1", Bounds: leftBox, Channels: fullInk(p, leftBox.Dx(), leftBox.Dy(), 40), Success: true},
		{RegionID: "region_2", Bounds: rightBox, Channels: fullInk(p, rightBox.Dx(), rightBox.Dy(), 220), Success: true},
		// channels that do not fit their bounds are skipped
		{RegionID: "region_2", Bounds: rightBox, Channels: fullInk(p, w, h, 255), Success: true},
	}
	opt := DefaultOptions()
	opt.BlendEdges = false
	merged := NewChannelMerger(nil).Merge(results, regions, p, w, h, opt)
	if got := merged[0].Coverage.Bounds(); got != img.Bounds() {
		t.Fatalf("merged bounds = %v", got)
	}
	for i, v := range merged[0].Coverage.Pix {
		want := uint8(220)
		if left.Pix[i] {
			want = 40
		}
		if v != want {
			t.Fatalf("pixel %d = %d, want %d", i, v, want)
		}
	}
}

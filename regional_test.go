package inksep

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type panicEngine struct{}

func (panicEngine) Separate(*Image, Palette, Hints, Options) ([]InkChannel, error) {
	panic("boom")
}

type failEngine struct{}

func (failEngine) Separate(*Image, Palette, Hints, Options) ([]InkChannel, error) {
	return nil, errors.New("engine exploded")
}

func regionalFixture(t *testing.T, n int) (*Image, []Region, Palette) {
	t.Helper()
	w, h := 6*n, 6
	img := splitImage(t, w, h)
	regions := make([]Region, n)
	for k := range n {
		m := NewMask(w, h)
		for y := range h {
			for x := k * 6; x < (k+1)*6; x++ {
				m.Pix[labelOffset(w, x, y)] = true
			}
		}
		regions[k] = regionFromMask(fmt.Sprintf("region_%d", k+1), m, img)
		regions[k].Method = MethodIndexColor
	}
	return img, regions, testPalette(t, "#dc1e1e", "#0000ff", "#ffffff")
}

func TestRegionalIsolatesFailures(t *testing.T) {
	img, regions, p := regionalFixture(t, 4)
	regions[1].Method = MethodSpotColor
	regions[2].Method = MethodSimulatedProcess

	rs := NewRegionalSeparator(2, nil)
	rs.engine = func(m Method) (Engine, error) {
		switch m {
		case MethodSpotColor:
			return failEngine{}, nil
		case MethodSimulatedProcess:
			return panicEngine{}, nil
		}
		return EngineFor(m)
	}
	results := rs.Apply(context.Background(), img, regions, p, Hints{}, DefaultOptions())
	if len(results) != len(regions) {
		t.Fatalf("%d results", len(results))
	}
	for i, r := range results {
		if r.RegionID != regions[i].ID {
			t.Errorf("result %d is for %s", i, r.RegionID)
		}
	}
	for _, i := range []int{0, 3} {
		if !results[i].Success || results[i].Err != nil || len(results[i].Channels) != len(p) {
			t.Errorf("%s: success=%v err=%v", results[i].RegionID, results[i].Success, results[i].Err)
		}
	}
	for _, i := range []int{1, 2} {
		if results[i].Success || results[i].Err == nil || results[i].Channels != nil {
			t.Errorf("%s should have failed: %+v", results[i].RegionID, results[i])
		}
	}
}

// triangleRegion owns the pixels of the box x∈[4,10), y∈[2,8) on or
// below its diagonal.
func triangleRegion(t *testing.T, img *Image) Region {
	t.Helper()
	m := NewMask(img.W, img.H)
	for y := 2; y < 8; y++ {
		for x := 4; x <= y+2; x++ {
			m.Pix[labelOffset(img.W, x, y)] = true
		}
	}
	r := regionFromMask("region_1", m, img)
	r.Method = MethodSpotColor
	return r
}

func TestRegionalCropsToBounds(t *testing.T) {
	img := splitImage(t, 20, 10)
	p := testPalette(t, "#dc1e1e", "#0000ff", "#ffffff")
	region := triangleRegion(t, img)

	tests := []struct {
		blend  bool
		radius int
		want   image.Rectangle
	}{
		{false, 5, image.Rect(4, 2, 10, 8)},
		{true, 0, image.Rect(4, 2, 10, 8)},
		{true, 1, image.Rect(3, 1, 11, 9)},
		{true, 3, image.Rect(1, 0, 13, 10)},
	}
	for _, tt := range tests {
		opt := DefaultOptions()
		opt.BlendEdges = tt.blend
		opt.BlendRadius = tt.radius
		res := NewRegionalSeparator(1, nil).Apply(context.Background(), img, []Region{region}, p, Hints{}, opt)[0]
		if !res.Success {
			t.Fatalf("blend=%v radius=%d: %v", tt.blend, tt.radius, res.Err)
		}
		if res.Bounds != tt.want {
			t.Errorf("blend=%v radius=%d: bounds = %v, want %v", tt.blend, tt.radius, res.Bounds, tt.want)
		}
		white := res.Channels[p.IndexOf("c")]
		for _, ch := range res.Channels {
			if got := ch.Coverage.Bounds().Size(); got != tt.want.Size() {
				t.Errorf("channel %s is %v, want %v", ch.ColorID, got, tt.want.Size())
			}
		}
		for y := range tt.want.Dy() {
			for x := range tt.want.Dx() {
				sx, sy := tt.want.Min.X+x, tt.want.Min.Y+y
				if !region.Mask.Pix[labelOffset(img.W, sx, sy)] && white.Coverage.Pix[labelOffset(tt.want.Dx(), x, y)] != 255 {
					t.Fatalf("pixel %d,%d outside the region is not white ink", sx, sy)
				}
			}
		}
	}
}

func TestRegionalMergeMatchesFullImage(t *testing.T) {
	img := splitImage(t, 20, 10)
	p := testPalette(t, "#dc1e1e", "#0000ff", "#ffffff")
	region := triangleRegion(t, img)
	rest := region.Mask
	rest.Pix = make([]bool, len(region.Mask.Pix))
	for i, in := range region.Mask.Pix {
		rest.Pix[i] = !in
	}
	regions := []Region{region, regionFromMask("region_2", rest, img)}
	regions[1].Method = MethodSpotColor

	for _, blend := range []bool{false, true} {
		opt := DefaultOptions()
		opt.BlendEdges = blend
		opt.BlendRadius = 2
		cropped := NewRegionalSeparator(2, nil).Apply(context.Background(), img, regions, p, Hints{}, opt)

		whole := make([]RegionResult, len(regions))
		for i := range regions {
			r := &regions[i]
			channels, err := spotColorEngine{}.Separate(img.maskedCrop(r.Mask, img.Bounds()), p, Hints{}, regionOptions(r, MethodSpotColor, opt))
			if err != nil {
				t.Fatal(err)
			}
			whole[i] = RegionResult{RegionID: r.ID, Method: MethodSpotColor, Channels: channels, Success: true}
		}

		merger := NewChannelMerger(nil)
		got := merger.Merge(cropped, regions, p, img.W, img.H, opt)
		want := merger.Merge(whole, regions, p, img.W, img.H, opt)
		for i := range want {
			if diff := cmp.Diff(want[i].Coverage.Pix, got[i].Coverage.Pix); diff != "" {
				t.Errorf("blend=%v %s (-whole +cropped):\n%s", blend, p[i].ID, diff)
			}
		}
	}
}

func TestRegionalCancelled(t *testing.T) {
	img, regions, p := regionalFixture(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := NewRegionalSeparator(1, nil).Apply(ctx, img, regions, p, Hints{}, DefaultOptions())
	for _, r := range results {
		if r.Success || !errors.Is(r.Err, context.Canceled) {
			t.Errorf("%s: success=%v err=%v", r.RegionID, r.Success, r.Err)
		}
	}
}

func TestRegionEngineMethod(t *testing.T) {
	tests := map[Method]Method{
		MethodSpotColor:        MethodSpotColor,
		MethodSimulatedProcess: MethodSimulatedProcess,
		MethodIndexColor:       MethodIndexColor,
		MethodCMYK:             MethodIndexColor,
		MethodRGB:              MethodIndexColor,
		MethodHybrid:           MethodIndexColor,
	}
	for in, want := range tests {
		if got := regionEngineMethod(in); got != want {
			t.Errorf("regionEngineMethod(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestRegionOptions(t *testing.T) {
	base := DefaultOptions()
	base.Halftone = HalftoneErrorDiffusion

	sharp := &Region{EdgeSharpness: 0.9}
	soft := &Region{EdgeSharpness: 0.3, HasGradients: true}
	if o := regionOptions(sharp, MethodSpotColor, base); o.Tolerance != 15 {
		t.Errorf("sharp spot tolerance = %f", o.Tolerance)
	}
	if o := regionOptions(soft, MethodSpotColor, base); o.Tolerance != 20 {
		t.Errorf("soft spot tolerance = %f", o.Tolerance)
	}
	if o := regionOptions(soft, MethodSimulatedProcess, base); o.Halftone != HalftoneStochastic {
		t.Errorf("simulated halftone = %s", o.Halftone)
	}
	if o := regionOptions(soft, MethodIndexColor, base); o.Dither != DitherFloydSteinberg {
		t.Errorf("gradient index dither = %s", o.Dither)
	}
	if o := regionOptions(sharp, MethodIndexColor, base); o.Dither != DitherNone {
		t.Errorf("flat index dither = %s", o.Dither)
	}
	if base.Tolerance != DefaultOptions().Tolerance {
		t.Error("regionOptions modified its input")
	}
}

func TestPreview(t *testing.T) {
	p := testPalette(t, "#ff0000", "#0000ff")
	img := solidImage(t, 2, 1, color.RGBA{0, 0, 0, 255})
	channels := paletteChannels(img, p)
	channels[0].Coverage.Pix[0] = 255
	channels[1].Coverage.Pix[0] = 255

	// later order prints on top
	out := Preview([]InkChannel{channels[1], channels[0]}, color.White)
	if got := out.RGBAAt(0, 0); got != (color.RGBA{0, 0, 255, 255}) {
		t.Errorf("stacked pixel = %v, want blue", got)
	}
	if got := out.RGBAAt(1, 0); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("bare pixel = %v, want substrate", got)
	}
	if Preview(nil, color.White).Bounds().Dx() != 0 {
		t.Error("empty preview has pixels")
	}
}

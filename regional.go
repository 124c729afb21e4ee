package inksep

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RegionResult is the outcome of separating one region.
type RegionResult struct {
	RegionID string
	// Engine actually run for the region.
	Method Method
	// Area of the image the channels cover; their origin is Bounds.Min.
	// An empty Bounds means the whole image.
	Bounds   image.Rectangle
	Channels []InkChannel
	Success  bool
	Err      error
	Duration time.Duration
}

// RegionalSeparator runs each region's engine on the region's bounding box,
// grown by the blend radius, with every pixel outside the region white. Regions run concurrently;
// one region failing never affects the others.
type RegionalSeparator struct {
	workers int
	log     *zap.Logger
	engine  func(Method) (Engine, error)
}

func NewRegionalSeparator(workers int, log *zap.Logger) *RegionalSeparator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RegionalSeparator{workers: workers, log: log, engine: EngineFor}
}

// Apply returns one result per region, in region order. It returns only
// after every region has finished.
func (rs *RegionalSeparator) Apply(ctx context.Context, img *Image, regions []Region, palette Palette, hints Hints, opt Options) []RegionResult {
	results := make([]RegionResult, len(regions))
	sem := make(chan struct{}, rs.workers)
	var wg sync.WaitGroup
	for i := range regions {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = rs.separateRegion(ctx, img, &regions[idx], palette, hints, opt)
		}(i)
	}
	wg.Wait()
	return results
}

func (rs *RegionalSeparator) separateRegion(ctx context.Context, img *Image, r *Region, palette Palette, hints Hints, opt Options) (res RegionResult) {
	start := time.Now()
	res = RegionResult{RegionID: r.ID, Method: regionEngineMethod(r.Method)}
	defer func() {
		if p := recover(); p != nil {
			res.Channels = nil
			res.Success = false
			res.Err = fmt.Errorf("region %s: panic: %v", r.ID, p)
		}
		res.Duration = time.Since(start)
		if res.Err != nil {
			rs.log.Warn("region separation failed",
				zap.String("region", r.ID),
				zap.Stringer("method", res.Method),
				zap.Error(res.Err))
			return
		}
		rs.log.Debug("region separated",
			zap.String("region", r.ID),
			zap.Stringer("method", res.Method),
			zap.Int("channels", len(res.Channels)),
			zap.Duration("cost", res.Duration))
	}()

	if err := ctx.Err(); err != nil {
		res.Err = fmt.Errorf("region %s: %w", r.ID, err)
		return res
	}
	engine, err := rs.engine(res.Method)
	if err != nil {
		res.Err = fmt.Errorf("region %s: %w", r.ID, err)
		return res
	}
	res.Bounds = regionArea(r, img.Bounds(), opt)
	if res.Bounds.Empty() {
		res.Err = fmt.Errorf("region %s: %w: empty mask", r.ID, ErrInvalidImage)
		return res
	}
	channels, err := engine.Separate(img.maskedCrop(r.Mask, res.Bounds), palette, hints, regionOptions(r, res.Method, opt))
	if err != nil {
		res.Err = fmt.Errorf("region %s: %w", r.ID, err)
		return res
	}
	res.Channels = channels
	res.Success = true
	return res
}

func (r *RegionResult) status() RegionStatus {
	return RegionStatus{
		RegionID: r.RegionID,
		Method:   r.Method,
		Bounds:   r.Bounds,
		Success:  r.Success,
		Err:      r.Err,
		Duration: r.Duration,
	}
}

// regionArea is the part of the image a region's engine sees. With blending
// it extends BlendRadius past the region so the blurred mask never reaches
// beyond it.
func regionArea(r *Region, full image.Rectangle, opt Options) image.Rectangle {
	area := r.Mask.Bounds()
	if area.Empty() {
		return image.Rectangle{}
	}
	if opt.BlendEdges && opt.BlendRadius > 0 {
		area = area.Inset(-opt.BlendRadius)
	}
	return area.Intersect(full)
}

// regionEngineMethod maps palette-independent methods to index color, since
// merged channels are per palette ink.
func regionEngineMethod(m Method) Method {
	if !m.IsEngine() || !m.UsesPalette() {
		return MethodIndexColor
	}
	return m
}

// regionOptions tunes engine parameters to the region's characteristics.
func regionOptions(r *Region, m Method, opt Options) Options {
	switch m {
	case MethodSpotColor:
		if r.EdgeSharpness > 0.8 {
			opt.Tolerance = 15
		} else {
			opt.Tolerance = 20
		}
	case MethodSimulatedProcess:
		opt.Halftone = HalftoneStochastic
	case MethodIndexColor:
		if r.HasGradients {
			opt.Dither = DitherFloydSteinberg
		} else {
			opt.Dither = DitherNone
		}
	}
	return opt
}

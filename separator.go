package inksep

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Separator runs whole-image and hybrid separations.
type Separator struct {
	advisor   Advisor
	log       *zap.Logger
	workers   int
	segmenter *Segmenter
	regional  *RegionalSeparator
	merger    *ChannelMerger
}

type Option func(*Separator)

// WithAdvisor sets the strategy advisor. The default is RuleAdvisor.
func WithAdvisor(a Advisor) Option {
	return func(s *Separator) {
		if a != nil {
			s.advisor = a
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Separator) {
		if l != nil {
			s.log = l
		}
	}
}

// WithWorkers bounds concurrent region separations. Options.Workers, when
// positive, takes precedence per call.
func WithWorkers(n int) Option {
	return func(s *Separator) { s.workers = n }
}

func NewSeparator(opts ...Option) *Separator {
	s := &Separator{
		advisor: RuleAdvisor{},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.segmenter = NewSegmenter(s.log.Named("segment"))
	s.regional = NewRegionalSeparator(s.workers, s.log.Named("regional"))
	s.merger = NewChannelMerger(s.log.Named("merge"))
	return s
}

func validateInput(img *Image, palette Palette, method Method, opt Options) error {
	if err := checkImage(img); err != nil {
		return err
	}
	if method < 0 || method > MethodHybrid {
		return fmt.Errorf("%w: %d", ErrUnknownMethod, int(method))
	}
	if method.UsesPalette() {
		if err := palette.Validate(); err != nil {
			return err
		}
	}
	return opt.Validate()
}

// Separate produces one channel per ink. Only input contract violations
// and cancellation of ctx are returned as errors; oracle and per-region
// failures are recorded in the result.
func (s *Separator) Separate(ctx context.Context, img *Image, palette Palette, method Method, hints Hints, opt Options) (*SeparationResult, error) {
	if err := validateInput(img, palette, method, opt); err != nil {
		return nil, err
	}
	if method == MethodHybrid {
		plan, err := s.Plan(ctx, img, palette, hints, opt)
		if err != nil {
			return nil, err
		}
		return s.Execute(ctx, plan)
	}

	start := time.Now()
	engine, err := EngineFor(method)
	if err != nil {
		return nil, err
	}
	channels, err := engine.Separate(img, palette, hints, opt)
	if err != nil {
		return nil, err
	}
	res := &SeparationResult{
		Method:         method,
		Channels:       channels,
		Success:        true,
		ProcessingTime: time.Since(start),
	}
	res.summarize()
	s.log.Info("separation complete",
		zap.Stringer("method", method),
		zap.Int("channels", len(channels)),
		zap.Duration("cost", res.ProcessingTime))
	return res, nil
}

// RecommendMethod suggests a whole-image method.
func (s *Separator) RecommendMethod(ctx context.Context, img *Image, palette Palette, hints Hints) (*MethodAdvice, error) {
	if err := checkInput(img, palette); err != nil {
		return nil, err
	}
	advice := s.advisor.AdviseMethod(ctx, img, palette, hints)
	s.log.Info("method recommended",
		zap.Stringer("method", advice.Recommended.Method),
		zap.String("source", string(advice.Source)))
	return advice, nil
}

// ============ HYBRID ============

// Plan is a segmented and advised hybrid separation awaiting execution.
// Hosts may inspect and override region methods before Execute.
type Plan struct {
	Image    *Image
	Palette  Palette
	Hints    Hints
	Options  Options
	Regions  []Region
	Strategy *Strategy
	created  time.Time
}

// Override replaces the method of one region.
func (p *Plan) Override(regionID string, m Method) error {
	if !m.IsEngine() {
		return fmt.Errorf("%w: %v is not a region method", ErrUnknownMethod, m)
	}
	for i := range p.Regions {
		if p.Regions[i].ID == regionID {
			p.Regions[i].Method = m
			p.Regions[i].MethodConfidence = 1
			p.Regions[i].Reasoning = "Method set by user"
			return nil
		}
	}
	return fmt.Errorf("inksep: unknown region %q", regionID)
}

// Plan segments the image and asks the advisor for per-region methods.
// Options.RegionMethods overrides are applied to the returned regions.
func (s *Separator) Plan(ctx context.Context, img *Image, palette Palette, hints Hints, opt Options) (*Plan, error) {
	if err := validateInput(img, palette, MethodHybrid, opt); err != nil {
		return nil, err
	}
	start := time.Now()
	regions := s.segmenter.Segment(img, hints, opt)
	strategy := s.advisor.AdviseRegions(ctx, img, regions, palette, hints)
	regions = applyStrategy(regions, strategy, opt.RegionMethods)
	s.log.Info("hybrid plan ready",
		zap.Int("regions", len(regions)),
		zap.String("source", string(strategy.Source)),
		zap.String("fallback", strategy.FallbackReason),
		zap.Duration("cost", time.Since(start)))
	return &Plan{
		Image:    img,
		Palette:  palette,
		Hints:    hints,
		Options:  opt,
		Regions:  regions,
		Strategy: strategy,
		created:  start,
	}, nil
}

// Execute separates every region of the plan and merges the results.
func (s *Separator) Execute(ctx context.Context, p *Plan) (*SeparationResult, error) {
	if p == nil {
		return nil, fmt.Errorf("inksep: nil plan")
	}
	if err := validateInput(p.Image, p.Palette, MethodHybrid, p.Options); err != nil {
		return nil, err
	}
	start := p.created
	if start.IsZero() {
		start = time.Now()
	}
	regional := s.regional
	if p.Options.Workers > 0 {
		regional = NewRegionalSeparator(p.Options.Workers, s.log.Named("regional"))
	}
	results := regional.Apply(ctx, p.Image, p.Regions, p.Palette, p.Hints, p.Options)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	failed := 0
	statuses := make([]RegionStatus, len(results))
	for i := range results {
		statuses[i] = results[i].status()
		if !results[i].Success {
			failed++
		}
	}
	channels := s.merger.Merge(results, p.Regions, p.Palette, p.Image.W, p.Image.H, p.Options)
	res := &SeparationResult{
		Method:         MethodHybrid,
		Channels:       channels,
		Success:        true,
		ProcessingTime: time.Since(start),
		Strategy:       p.Strategy,
		Regions:        statuses,
	}
	res.summarize()
	s.log.Info("hybrid separation complete",
		zap.Int("regions", len(results)),
		zap.Int("failed", failed),
		zap.Int("channels", len(channels)),
		zap.Duration("cost", res.ProcessingTime))
	return res, nil
}

package inksep

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"go.uber.org/zap"
)

const (
	requestRegions = "regions"
	requestMethod  = "method"

	defaultOracleTimeout = 30 * time.Second
	maxOracleResponse    = 1 << 20
)

// OracleRequest is what an advisory service receives.
type OracleRequest struct {
	Kind    string          `json:"kind"`
	Prompt  string          `json:"prompt"`
	Image   []byte          `json:"image,omitempty"` // PNG thumbnail
	Palette []PaletteEntry  `json:"palette"`
	Regions []RegionSummary `json:"regions,omitempty"`
	Hints   Hints           `json:"hints"`
}

type PaletteEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// RegionSummary is the mask-free description of a region sent to an oracle.
type RegionSummary struct {
	ID                 string     `json:"region_id"`
	Type               RegionType `json:"type"`
	Complexity         Complexity `json:"complexity"`
	Bounds             [4]int     `json:"bounding_box"` // x, y, width, height
	CoveragePercentage float64    `json:"coverage"`
	EdgeSharpness      float64    `json:"edge_sharpness"`
	TextureScore       float64    `json:"texture_score"`
	HasGradients       bool       `json:"has_gradients"`
	UniqueColors       int        `json:"unique_colors"`
	DominantColors     []string   `json:"dominant_colors"`
}

// Oracle is an external advisory service. It returns the raw response text,
// which may wrap the JSON answer in prose or markdown fences.
type Oracle interface {
	Advise(ctx context.Context, req *OracleRequest) ([]byte, error)
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(ctx context.Context, req *OracleRequest) ([]byte, error)

func (f OracleFunc) Advise(ctx context.Context, req *OracleRequest) ([]byte, error) {
	return f(ctx, req)
}

// ============ HTTP ORACLE ============

// HTTPOracle posts the request as JSON to an advisory gateway. A JSON reply
// with a "text" field is unwrapped; any other body is returned as is.
type HTTPOracle struct {
	Endpoint string
	APIKey   string
	Model    string
	Client   *http.Client
}

func (o *HTTPOracle) Advise(ctx context.Context, req *OracleRequest) ([]byte, error) {
	payload, err := json.Marshal(struct {
		Model string `json:"model,omitempty"`
		*OracleRequest
	}{o.Model, req})
	if err != nil {
		return nil, err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	if o.APIKey != "" {
		hreq.Header.Set("Authorization", "Bearer "+o.APIKey)
	}
	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxOracleResponse))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("oracle: %s", resp.Status)
	}
	var wrapped struct {
		Text *string `json:"text"`
	}
	if json.Unmarshal(body, &wrapped) == nil && wrapped.Text != nil {
		return []byte(*wrapped.Text), nil
	}
	return body, nil
}

// ============ ORACLE ADVISOR ============

// OracleAdvisor asks an Oracle first and falls back to RuleAdvisor on any
// failure: missing oracle, timeout, cancellation, transport error, or a
// response that does not validate. A fallback result is exactly the rule
// result plus FallbackReason.
type OracleAdvisor struct {
	oracle  Oracle
	rules   RuleAdvisor
	cache   Cache
	timeout time.Duration
	log     *zap.Logger
}

type OracleOption func(*OracleAdvisor)

func WithCache(c Cache) OracleOption {
	return func(a *OracleAdvisor) {
		if c != nil {
			a.cache = c
		}
	}
}

func WithTimeout(d time.Duration) OracleOption {
	return func(a *OracleAdvisor) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithOracleLogger(l *zap.Logger) OracleOption {
	return func(a *OracleAdvisor) {
		if l != nil {
			a.log = l
		}
	}
}

// NewOracleAdvisor accepts a nil oracle; every call then uses the rules.
func NewOracleAdvisor(o Oracle, opts ...OracleOption) *OracleAdvisor {
	a := &OracleAdvisor{
		oracle:  o,
		cache:   NopCache{},
		timeout: defaultOracleTimeout,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *OracleAdvisor) AdviseRegions(ctx context.Context, img *Image, regions []Region, palette Palette, hints Hints) *Strategy {
	if a.oracle == nil {
		return a.regionFallback(ctx, img, regions, palette, hints, ErrNoOracle)
	}
	req, err := regionRequest(img, regions, palette, hints)
	if err != nil {
		return a.regionFallback(ctx, img, regions, palette, hints, err)
	}
	key := adviceKey(requestRegions, img, palette, req)
	var s *Strategy
	err = a.ask(ctx, key, req, func(raw []byte) (err error) {
		s, err = parseStrategy(raw, regions, palette)
		return err
	})
	if err != nil {
		return a.regionFallback(ctx, img, regions, palette, hints, err)
	}
	a.log.Info("region strategy from oracle", zap.Int("regions", len(s.Regions)))
	return s
}

func (a *OracleAdvisor) regionFallback(ctx context.Context, img *Image, regions []Region, palette Palette, hints Hints, cause error) *Strategy {
	a.log.Warn("oracle region advice unavailable, using rules", zap.Error(cause))
	s := a.rules.AdviseRegions(ctx, img, regions, palette, hints)
	s.FallbackReason = cause.Error()
	return s
}

func (a *OracleAdvisor) AdviseMethod(ctx context.Context, img *Image, palette Palette, hints Hints) *MethodAdvice {
	if a.oracle == nil {
		return a.methodFallback(ctx, img, palette, hints, ErrNoOracle)
	}
	req, err := methodRequest(img, palette, hints)
	if err != nil {
		return a.methodFallback(ctx, img, palette, hints, err)
	}
	key := adviceKey(requestMethod, img, palette, req)
	var m *MethodAdvice
	err = a.ask(ctx, key, req, func(raw []byte) (err error) {
		m, err = parseMethodAdvice(raw, palette)
		return err
	})
	if err != nil {
		return a.methodFallback(ctx, img, palette, hints, err)
	}
	a.log.Info("method advice from oracle", zap.Stringer("method", m.Recommended.Method))
	return m
}

func (a *OracleAdvisor) methodFallback(ctx context.Context, img *Image, palette Palette, hints Hints, cause error) *MethodAdvice {
	a.log.Warn("oracle method advice unavailable, using rules", zap.Error(cause))
	m := a.rules.AdviseMethod(ctx, img, palette, hints)
	m.FallbackReason = cause.Error()
	return m
}

// ask serves from cache when a cached response still validates, otherwise
// calls the oracle. Only responses accepted by parse are cached.
func (a *OracleAdvisor) ask(ctx context.Context, key string, req *OracleRequest, parse func([]byte) error) error {
	if raw, err := a.cache.Get(ctx, key); err != nil {
		a.log.Debug("advice cache read failed", zap.String("key", key), zap.Error(err))
	} else if raw != nil {
		if parse(raw) == nil {
			a.log.Debug("advice cache hit", zap.String("key", key))
			return nil
		}
	}
	raw, err := a.call(ctx, req)
	if err != nil {
		return err
	}
	if err := parse(raw); err != nil {
		return err
	}
	if err := a.cache.Set(ctx, key, raw); err != nil {
		a.log.Debug("advice cache write failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// call bounds the oracle by the advisor timeout. An oracle that ignores its
// context is abandoned when the deadline passes.
func (a *OracleAdvisor) call(ctx context.Context, req *OracleRequest) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	type reply struct {
		raw []byte
		err error
	}
	done := make(chan reply, 1)
	go func() {
		raw, err := a.oracle.Advise(ctx, req)
		done <- reply{raw, err}
	}()
	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("oracle: %w", r.err)
		}
		return r.raw, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("oracle: %w", ctx.Err())
	}
}

// ============ RESPONSE VALIDATION ============

// extractJSON returns the span from the first '{' to the last '}'.
func extractJSON(raw []byte) ([]byte, error) {
	start := bytes.IndexByte(raw, '{')
	end := bytes.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object", ErrInvalidAdvice)
	}
	return raw[start : end+1], nil
}

type strategyReply struct {
	OverallStrategy  string `json:"overall_strategy"`
	ComplexityRating string `json:"complexity_rating"`
	Regions          []struct {
		RegionID          string   `json:"region_id"`
		RegionType        string   `json:"region_type"`
		Complexity        string   `json:"complexity"`
		RecommendedMethod string   `json:"recommended_method"`
		MethodConfidence  *float64 `json:"method_confidence"`
		Reasoning         string   `json:"reasoning"`
		Priority          int      `json:"priority"`
	} `json:"regions"`
	ExpectedResults struct {
		QualityRating string `json:"quality_rating"`
		ChannelCount  int    `json:"channel_count"`
	} `json:"expected_results"`
	ConfidenceAssessment struct {
		OverallConfidence *float64 `json:"overall_confidence"`
	} `json:"confidence_assessment"`
}

// parseStrategy decodes and validates a region strategy. Every supplied
// region must be advised exactly once with an engine method and a
// confidence in [0,1]; unknown region ids are rejected.
func parseStrategy(raw []byte, regions []Region, palette Palette) (*Strategy, error) {
	body, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	var r strategyReply
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAdvice, err)
	}
	if r.OverallStrategy == "" {
		return nil, fmt.Errorf("%w: missing overall_strategy", ErrInvalidAdvice)
	}
	known := make(map[string]*Region, len(regions))
	for i := range regions {
		known[regions[i].ID] = &regions[i]
	}
	seen := make(map[string]RegionAdvice, len(r.Regions))
	sum := 0.0
	for _, ra := range r.Regions {
		region, ok := known[ra.RegionID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown region %q", ErrInvalidAdvice, ra.RegionID)
		}
		if _, dup := seen[ra.RegionID]; dup {
			return nil, fmt.Errorf("%w: region %q advised twice", ErrInvalidAdvice, ra.RegionID)
		}
		m, err := ParseMethod(ra.RecommendedMethod)
		if err != nil || !m.IsEngine() {
			return nil, fmt.Errorf("%w: region %q method %q", ErrInvalidAdvice, ra.RegionID, ra.RecommendedMethod)
		}
		if ra.MethodConfidence == nil || !unitInterval(*ra.MethodConfidence) {
			return nil, fmt.Errorf("%w: region %q confidence out of range", ErrInvalidAdvice, ra.RegionID)
		}
		a := RegionAdvice{
			RegionID:   ra.RegionID,
			Type:       region.Type,
			Complexity: region.Complexity,
			Method:     m,
			Confidence: *ra.MethodConfidence,
			Reasoning:  ra.Reasoning,
			Priority:   5,
		}
		if t := RegionType(ra.RegionType); validRegionType(t) {
			a.Type = t
		}
		if c := Complexity(ra.Complexity); validComplexity(c) {
			a.Complexity = c
		}
		if ra.Priority != 0 {
			a.Priority = clampInt(ra.Priority, 1, 10)
		}
		seen[ra.RegionID] = a
		sum += a.Confidence
	}
	if len(seen) != len(regions) {
		return nil, fmt.Errorf("%w: %d of %d regions advised", ErrInvalidAdvice, len(seen), len(regions))
	}

	s := &Strategy{
		Overall:          r.OverallStrategy,
		ComplexityRating: ComplexityModerate,
		Regions:          make([]RegionAdvice, len(regions)),
		ExpectedQuality:  cmp.Or(r.ExpectedResults.QualityRating, "good"),
		ExpectedChannels: cmp.Or(r.ExpectedResults.ChannelCount, len(palette)),
		Source:           SourceOracle,
	}
	for i := range regions {
		s.Regions[i] = seen[regions[i].ID]
	}
	if c := Complexity(r.ComplexityRating); validComplexity(c) {
		s.ComplexityRating = c
	}
	switch oc := r.ConfidenceAssessment.OverallConfidence; {
	case oc == nil:
		if len(regions) > 0 {
			s.Confidence = sum / float64(len(regions))
		}
	case unitInterval(*oc):
		s.Confidence = *oc
	default:
		return nil, fmt.Errorf("%w: overall confidence out of range", ErrInvalidAdvice)
	}
	s.EstimatedTime = estimateTime(s.Regions)
	return s, nil
}

type methodReply struct {
	Method           string   `json:"method"`
	Score            *float64 `json:"score"`
	Confidence       *float64 `json:"confidence"`
	Reasoning        string   `json:"reasoning"`
	Strengths        []string `json:"strengths"`
	Limitations      []string `json:"limitations"`
	ExpectedChannels int      `json:"expected_channels"`
	Quality          string   `json:"quality"`
}

func (r methodReply) recommendation(channels int) (MethodRecommendation, error) {
	m, err := ParseMethod(r.Method)
	if err != nil {
		return MethodRecommendation{}, fmt.Errorf("%w: %v", ErrInvalidAdvice, err)
	}
	if r.Confidence == nil || !unitInterval(*r.Confidence) {
		return MethodRecommendation{}, fmt.Errorf("%w: %v confidence out of range", ErrInvalidAdvice, m)
	}
	if r.Score == nil || *r.Score < 0 || *r.Score > 100 {
		return MethodRecommendation{}, fmt.Errorf("%w: %v score out of range", ErrInvalidAdvice, m)
	}
	rec := MethodRecommendation{
		Method:           m,
		Score:            *r.Score,
		Confidence:       *r.Confidence,
		Reasoning:        r.Reasoning,
		Strengths:        r.Strengths,
		Limitations:      r.Limitations,
		ExpectedChannels: cmp.Or(r.ExpectedChannels, channels),
		Quality:          cmp.Or(r.Quality, "good"),
	}
	rec.describe()
	return rec, nil
}

// parseMethodAdvice decodes a whole-image recommendation. Any method,
// including hybrid, is acceptable at this granularity.
func parseMethodAdvice(raw []byte, palette Palette) (*MethodAdvice, error) {
	body, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	var r struct {
		Recommended  *methodReply  `json:"recommended"`
		Alternatives []methodReply `json:"alternatives"`
	}
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAdvice, err)
	}
	if r.Recommended == nil {
		return nil, fmt.Errorf("%w: missing recommended", ErrInvalidAdvice)
	}
	rec, err := r.Recommended.recommendation(len(palette))
	if err != nil {
		return nil, err
	}
	alts := make([]MethodRecommendation, 0, len(r.Alternatives))
	for _, ar := range r.Alternatives {
		alt, err := ar.recommendation(len(palette))
		if err != nil {
			return nil, err
		}
		alts = append(alts, alt)
	}
	slices.SortStableFunc(alts, func(a, b MethodRecommendation) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(alts) > 2 {
		alts = alts[:2]
	}
	return &MethodAdvice{Recommended: rec, Alternatives: alts, Source: SourceOracle}, nil
}

func unitInterval(v float64) bool { return v >= 0 && v <= 1 }

func validRegionType(t RegionType) bool {
	switch t {
	case RegionVector, RegionPhoto, RegionText, RegionMixed, RegionBackground:
		return true
	}
	return false
}

func validComplexity(c Complexity) bool {
	switch c {
	case ComplexitySimple, ComplexityModerate, ComplexityComplex:
		return true
	}
	return false
}

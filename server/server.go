package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/setanarut/inksep"
	"github.com/setanarut/inksep/config"
	"github.com/setanarut/inksep/utils"
)

type Handler struct {
	cfg *config.Config
	sep *inksep.Separator
	log *zap.Logger
}

func NewHandler(cfg *config.Config, sep *inksep.Separator, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{cfg: cfg, sep: sep, log: log}
}

// NewRouter wires the HTTP API.
func NewRouter(cfg *config.Config, sep *inksep.Separator, log *zap.Logger, version string) *gin.Engine {
	h := NewHandler(cfg, sep, log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(Logger(h.log))
	r.Use(CORS())
	r.MaxMultipartMemory = cfg.Server.MaxUploadSize

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": version,
		})
	})

	api := r.Group("/api/v1")
	{
		api.GET("/methods", h.Methods)
		api.POST("/separate", h.Separate)
		api.POST("/recommend", h.Recommend)
	}
	return r
}

// Methods lists the selectable separation methods.
func (h *Handler) Methods(c *gin.Context) {
	methods := inksep.AvailableMethods()
	out := make([]MethodInfo, len(methods))
	for i, m := range methods {
		out[i] = MethodInfo{
			Name:        m.String(),
			UsesPalette: m.UsesPalette(),
			Parameters:  m.DefaultParameters(),
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"methods": out,
		"default": h.cfg.Separation.Method,
	})
}

// Separate handles a multipart upload:
//
//	image    file (required)
//	palette  "name=#hex,..." or a JSON array of {id,name,hex}
//	method   separation method, defaults to the configured one
//	hints    JSON object of image hints
//	options  JSON object overriding configured options
func (h *Handler) Separate(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	method, err := h.method(c.PostForm("method"))
	if err != nil {
		h.fail(c, http.StatusBadRequest, "unknown method", err)
		return
	}

	res, err := h.sep.Separate(c.Request.Context(), req.img, req.palette, method, req.hints, req.opt)
	if err != nil {
		h.fail(c, statusFor(err), "separation failed", err)
		return
	}

	data, err := encodeResult(res, req.img)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to encode channels", err)
		return
	}
	h.log.Info("separation served",
		zap.Stringer("method", method),
		zap.Int("channels", len(data.Channels)),
		zap.String("md5", req.img.Fingerprint()))
	c.JSON(http.StatusOK, SeparateResponse{
		Success: true,
		Message: fmt.Sprintf("%d channels", len(data.Channels)),
		Data:    data,
	})
}

// Recommend takes the same form as Separate and returns ranked methods.
func (h *Handler) Recommend(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	advice, err := h.sep.RecommendMethod(c.Request.Context(), req.img, req.palette, req.hints)
	if err != nil {
		h.fail(c, statusFor(err), "recommendation failed", err)
		return
	}
	c.JSON(http.StatusOK, RecommendResponse{Success: true, Data: advice})
}

type request struct {
	img     *inksep.Image
	palette inksep.Palette
	hints   inksep.Hints
	opt     inksep.Options
}

// bind reads the shared form fields. It writes the error response itself.
func (h *Handler) bind(c *gin.Context) (*request, bool) {
	file, err := c.FormFile("image")
	if err != nil {
		h.fail(c, http.StatusBadRequest, "image file is required", err)
		return nil, false
	}
	if limit := h.cfg.Server.MaxUploadSize; limit > 0 && file.Size > limit {
		h.fail(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds %d MB", limit/(1024*1024)), nil)
		return nil, false
	}
	f, err := file.Open()
	if err != nil {
		h.fail(c, http.StatusBadRequest, "failed to open upload", err)
		return nil, false
	}
	defer f.Close()
	src, err := utils.DecodeImage(f)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "unsupported image", err)
		return nil, false
	}
	img, err := inksep.NewImage(src)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "invalid image", err)
		return nil, false
	}

	req := &request{img: img}
	if req.palette, err = parsePalette(c.PostForm("palette")); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid palette", err)
		return nil, false
	}
	if s := c.PostForm("hints"); s != "" {
		if err := json.Unmarshal([]byte(s), &req.hints); err != nil {
			h.fail(c, http.StatusBadRequest, "invalid hints", err)
			return nil, false
		}
	}
	if req.opt, err = h.options(c.PostForm("options")); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid options", err)
		return nil, false
	}
	return req, true
}

func (h *Handler) method(s string) (inksep.Method, error) {
	if s == "" {
		return h.cfg.Method()
	}
	return inksep.ParseMethod(s)
}

func (h *Handler) options(s string) (inksep.Options, error) {
	opt, err := h.cfg.Options()
	if err != nil {
		return opt, err
	}
	if s == "" {
		return opt, nil
	}
	var patch optionsPatch
	if err := json.Unmarshal([]byte(s), &patch); err != nil {
		return opt, err
	}
	opt = patch.apply(opt)
	return opt, opt.Validate()
}

func parsePalette(s string) (inksep.Palette, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, nil
	case strings.HasPrefix(s, "["):
		var entries []utils.PaletteFileEntry
		if err := json.Unmarshal([]byte(s), &entries); err != nil {
			return nil, err
		}
		return utils.DecodePalette(entries)
	default:
		return utils.ParsePalette(s)
	}
}

func (h *Handler) fail(c *gin.Context, status int, msg string, err error) {
	resp := ErrorResponse{Success: false, Message: msg}
	if err != nil {
		resp.Error = err.Error()
		h.log.Warn(msg, zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, inksep.ErrInvalidImage),
		errors.Is(err, inksep.ErrEmptyPalette),
		errors.Is(err, inksep.ErrDuplicateColorID),
		errors.Is(err, inksep.ErrUnknownMethod),
		errors.Is(err, inksep.ErrInvalidOptions):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func encodeResult(res *inksep.SeparationResult, img *inksep.Image) (*SeparationData, error) {
	data := &SeparationData{
		Method:            res.Method,
		Width:             img.W,
		Height:            img.H,
		ProcessingMillis:  res.ProcessingTime.Milliseconds(),
		PaletteColorsUsed: res.PaletteColorsUsed,
		TotalCoverage:     res.TotalCoverage,
		Channels:          make([]Channel, len(res.Channels)),
		Strategy:          res.Strategy,
	}
	var buf bytes.Buffer
	for i, ch := range res.Channels {
		buf.Reset()
		if err := png.Encode(&buf, ch.Coverage); err != nil {
			return nil, fmt.Errorf("channel %s: %w", ch.ColorID, err)
		}
		data.Channels[i] = Channel{
			ColorID:            ch.ColorID,
			Name:               ch.Name,
			Hex:                inksep.NewPaletteColor(ch.ColorID, ch.Name, ch.Color).Hex(),
			MatchCode:          ch.MatchCode,
			Order:              ch.Order,
			PixelCount:         ch.PixelCount,
			CoveragePercentage: ch.CoveragePercentage,
			HalftoneAngle:      ch.HalftoneAngle,
			HalftoneFrequency:  ch.HalftoneFrequency,
			PNG:                bytes.Clone(buf.Bytes()),
		}
	}
	for _, r := range res.Regions {
		o := RegionOutcome{
			RegionID: r.RegionID,
			Method:   r.Method,
			Success:  r.Success,
			Millis:   r.Duration.Milliseconds(),
		}
		if r.Err != nil {
			o.Error = r.Err.Error()
		}
		data.Regions = append(data.Regions, o)
	}
	return data, nil
}

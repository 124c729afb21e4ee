package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/setanarut/inksep"
	"github.com/setanarut/inksep/config"
	"github.com/setanarut/inksep/utils"
)

func main() {
	in := flag.String("in", "", "input image (png, jpeg, gif, bmp, tiff, webp)")
	out := flag.String("out", "output", "output directory")
	configPath := flag.String("config", "", "YAML config file")
	method := flag.String("method", "", "spot_color, simulated_process, index_color, cmyk, rgb or hybrid")
	paletteFlag := flag.String("palette", "", `inks as "name=#rrggbb,..."`)
	paletteFile := flag.String("palette-file", "", "JSON palette file")
	extract := flag.Int("extract", 6, "extract this many inks when no palette is given")
	extractMethod := flag.String("extract-method", "dominantcolor", "palette extraction: dominantcolor or kmeans")
	tolerance := flag.Float64("tolerance", -1, "spot color delta-E tolerance (negative keeps config)")
	hintsJSON := flag.String("hints", "", "image hints as JSON")
	recommend := flag.Bool("recommend", false, "print method recommendations and exit")
	preview := flag.Bool("preview", true, "write a composite preview")
	logMode := flag.String("log-mode", "debug", "debug or release")
	help := flag.Bool("help", false, "show usage")
	flag.Parse()
	if *help || *in == "" {
		flag.Usage()
		return
	}

	log, err := utils.NewLogger(*logMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := config.New(*configPath)
	if *method != "" {
		cfg.Separation.Method = *method
	}
	if *tolerance >= 0 {
		cfg.Separation.Tolerance = *tolerance
	}
	m, err := cfg.Method()
	if err != nil {
		log.Fatal("invalid method", zap.Error(err))
	}
	opt, err := cfg.Options()
	if err != nil {
		log.Fatal("invalid options", zap.Error(err))
	}

	src, err := utils.ReadImage(*in)
	if err != nil {
		log.Fatal("failed to read image", zap.Error(err))
	}
	img, err := inksep.NewImage(src)
	if err != nil {
		log.Fatal("invalid image", zap.Error(err))
	}

	var hints inksep.Hints
	if *hintsJSON != "" {
		if err := json.Unmarshal([]byte(*hintsJSON), &hints); err != nil {
			log.Fatal("invalid hints", zap.Error(err))
		}
	}

	palette, err := loadPalette(*paletteFlag, *paletteFile)
	if err != nil {
		log.Fatal("invalid palette", zap.Error(err))
	}
	if len(palette) == 0 {
		pm, err := utils.ParsePaletteMethod(*extractMethod)
		if err != nil {
			log.Fatal("invalid extract method", zap.Error(err))
		}
		palette = utils.ExtractPalette(src, *extract, pm, log)
		utils.SortPaletteByBrightness(palette)
	}

	ctx := context.Background()
	advisor, closeAdvisor := cfg.NewAdvisor(ctx, log)
	defer closeAdvisor()
	sep := inksep.NewSeparator(
		inksep.WithAdvisor(advisor),
		inksep.WithLogger(log),
		inksep.WithWorkers(cfg.Hybrid.Workers))

	if *recommend {
		advice, err := sep.RecommendMethod(ctx, img, palette, hints)
		if err != nil {
			log.Fatal("recommendation failed", zap.Error(err))
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(advice)
		return
	}

	res, err := sep.Separate(ctx, img, palette, m, hints, opt)
	if err != nil {
		log.Fatal("separation failed", zap.Error(err))
	}

	if err := os.MkdirAll(*out, 0755); err != nil {
		log.Fatal("failed to create output directory", zap.Error(err))
	}
	files, err := utils.SaveChannels(res.Channels, *out)
	if err != nil {
		log.Fatal("failed to save channels", zap.Error(err))
	}
	if m.UsesPalette() {
		if err := utils.SavePalette(palette, 64, filepath.Join(*out, "palette.png")); err != nil {
			log.Warn("failed to save palette", zap.Error(err))
		}
	}
	if *preview {
		recon := inksep.Preview(res.Channels, color.White)
		if err := utils.SaveImage(recon, filepath.Join(*out, "preview.png")); err != nil {
			log.Warn("failed to save preview", zap.Error(err))
		}
	}
	for _, r := range res.Regions {
		if !r.Success {
			log.Warn("region fell back to blank", zap.String("region", r.RegionID), zap.Error(r.Err))
		}
	}
	log.Info("done",
		zap.Stringer("method", res.Method),
		zap.Int("channels", len(files)),
		zap.Float64("total_coverage", res.TotalCoverage),
		zap.Duration("cost", res.ProcessingTime),
		zap.String("out", *out))
}

func loadPalette(list, file string) (inksep.Palette, error) {
	switch {
	case file != "":
		return utils.LoadPaletteFile(file)
	case list != "":
		return utils.ParsePalette(list)
	}
	return nil, nil
}

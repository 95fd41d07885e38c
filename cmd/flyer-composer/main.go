package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"
	"unicode"

	"github.com/disintegration/imaging"

	"github.com/menta2k/flyer-composer/internal/config"
	"github.com/menta2k/flyer-composer/internal/logging"
	"github.com/menta2k/flyer-composer/pkg/asset"
	"github.com/menta2k/flyer-composer/pkg/editor"
	"github.com/menta2k/flyer-composer/pkg/export"
	"github.com/menta2k/flyer-composer/pkg/processing"
	"github.com/menta2k/flyer-composer/pkg/types"
)

type options struct {
	in         string
	outDir     string
	configPath string
	template   string
	assets     string
	cropFmt    string
	quality    int
	zoom       float64
	panX, panY float64
	region     types.CropRegion
	debug      bool
	logLevel   string
	logFormat  string
}

func main() {
	var opts options

	flag.StringVar(&opts.in, "in", "", "input photo path or URL (jpg/png/webp/gif)")
	flag.StringVar(&opts.outDir, "out", "", "output directory (default from config)")
	flag.StringVar(&opts.configPath, "config", "", "config file (default "+config.GetConfigPath()+" if present)")
	flag.StringVar(&opts.template, "template", "", "flyer template path or URL (default from config)")
	flag.StringVar(&opts.assets, "assets", "", "asset root for relative template paths")

	flag.StringVar(&opts.cropFmt, "cropfmt", "", "circular crop format: png|webp")
	flag.IntVar(&opts.quality, "quality", 0, "JPEG quality of the flyer (1-100)")

	flag.Float64Var(&opts.zoom, "zoom", 1.0, "crop zoom (1.0..3.0, step 0.1)")
	flag.Float64Var(&opts.panX, "panx", 0, "crop centre offset from image centre, x (source px)")
	flag.Float64Var(&opts.panY, "pany", 0, "crop centre offset from image centre, y (source px)")
	flag.Float64Var(&opts.region.X, "x", 0, "explicit crop region left (source px)")
	flag.Float64Var(&opts.region.Y, "y", 0, "explicit crop region top (source px)")
	flag.Float64Var(&opts.region.Width, "w", 0, "explicit crop region width; overrides -zoom/-panx/-pany when set")
	flag.Float64Var(&opts.region.Height, "h", 0, "explicit crop region height")

	flag.BoolVar(&opts.debug, "debug", false, "also write the circular crop and a crop-box overlay")
	flag.StringVar(&opts.logLevel, "log-level", "", "log level: debug|info|warn|error")
	flag.StringVar(&opts.logFormat, "log-format", "", "log format: text|json")

	flag.Parse()
	if opts.in == "" {
		fmt.Fprintf(os.Stderr, "usage: %s -in photo.jpg|URL [-template flyer.jpg|URL] [-out outdir] [-zoom 1.5 -panx 40 -pany -20 | -x 0 -y 0 -w 800 -h 800] [-debug]\n", filepath.Base(os.Args[0]))
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		slog.Error("Flyer generation failed", "error", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := logging.InitLogger(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	template, err := cfg.TemplateSource()
	if err != nil {
		return fmt.Errorf("template: %w", err)
	}
	proc, err := processing.NewProcessorWithConfig(template, cfg.ProcessingConfig())
	if err != nil {
		return err
	}
	proc.SetLogger(logger)
	session := editor.NewSession(proc, editor.WithLogger(logger))

	name, data, err := readInput(ctx, opts.in, time.Duration(cfg.Template.Timeout))
	if err != nil {
		return err
	}
	logger.Info("Loaded photo", "name", name, "bytes", len(data))

	if err := session.SelectFile(name, data); err != nil {
		return err
	}

	if opts.region.Width > 0 || opts.region.Height > 0 {
		if err := session.SetCropRegion(opts.region); err != nil {
			return err
		}
	} else if _, err := session.AdjustCrop(opts.zoom, types.Pan{X: opts.panX, Y: opts.panY}); err != nil {
		return err
	}

	snap := session.Snapshot()
	logger.Info("Crop region", "x", snap.Region.X, "y", snap.Region.Y, "size", snap.Region.Size(), "zoom", snap.Zoom)

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if opts.debug {
		writeDebug(ctx, logger, proc, session.Source(), *snap.Region, cfg.Output.Dir, name)
	}

	if _, err := session.Generate(ctx); err != nil {
		return err
	}

	outPath := filepath.Join(cfg.Output.Dir, export.Filename)
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	if _, err := session.Download(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	logger.Info("wrote flyer", "path", outPath)
	return nil
}

// loadConfig reads the config file, if any, and applies explicit flags on top
func loadConfig(opts options) (*config.Config, error) {
	cfg := config.Default()

	if configPath := config.ResolvePath(opts.configPath); configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if opts.outDir != "" {
		cfg.Output.Dir = opts.outDir
	}
	if opts.template != "" {
		cfg.Template.Location = opts.template
	}
	if opts.assets != "" {
		cfg.Template.AssetRoot = opts.assets
	}
	if opts.cropFmt != "" {
		cfg.Crop.Format = opts.cropFmt
	}
	if opts.quality != 0 {
		cfg.Output.Quality = opts.quality
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// readInput loads the photo from a local path or an http(s) URL
func readInput(ctx context.Context, in string, timeout time.Duration) (string, []byte, error) {
	if !strings.HasPrefix(in, "http://") && !strings.HasPrefix(in, "https://") {
		data, err := os.ReadFile(in)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read input: %w", err)
		}
		return filepath.Base(in), data, nil
	}

	src, err := asset.NewHTTPSource(in, timeout)
	if err != nil {
		return "", nil, err
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return "", nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", nil, fmt.Errorf("failed to download input: %w", err)
	}

	return photoName(in), data, nil
}

// photoName derives a display name from a photo URL's path
func photoName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "photo"
	}
	name := path.Base(u.Path)
	if len(path.Ext(name)) < 2 {
		return "photo"
	}
	return name
}

// debugPath names a debug artifact after the input photo:
// <outDir>/<photo stem><suffix>.<format>
func debugPath(outDir, photo, suffix, format string) string {
	base := filepath.Base(photo)
	stem := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		stem = "photo"
	}
	return filepath.Join(outDir, stem+suffix+"."+format)
}

// writeDebug saves the Stage A crop and an overlay of the crop box. Failures
// are logged and do not stop generation.
func writeDebug(ctx context.Context, logger *slog.Logger, proc *processing.Processor, src *types.SourceImage, region types.CropRegion, outDir, name string) {
	overlay := processing.CreateDebugOverlay(src.Image, region)
	overlayPath := debugPath(outDir, name, "_crop_box", "png")
	if err := imaging.Save(overlay, overlayPath); err != nil {
		logger.Warn("debug overlay save failed", "path", overlayPath, "error", err)
	} else {
		logger.Info("wrote debug overlay", "path", overlayPath)
	}

	crop, err := proc.CropCircle(ctx, src, region)
	if err != nil {
		logger.Warn("debug crop failed", "error", err)
		return
	}
	cropPath := debugPath(outDir, name, "_circle", crop.Format)
	if err := os.WriteFile(cropPath, crop.Encoded, 0o644); err != nil {
		logger.Warn("debug crop save failed", "path", cropPath, "error", err)
		return
	}
	logger.Info("wrote circular crop", "path", cropPath, "size", crop.Size)
}

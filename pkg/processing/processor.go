package processing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/menta2k/flyer-composer/internal/logging"
	"github.com/menta2k/flyer-composer/internal/metrics"
	"github.com/menta2k/flyer-composer/pkg/analyzer"
	"github.com/menta2k/flyer-composer/pkg/asset"
	"github.com/menta2k/flyer-composer/pkg/canvas"
	"github.com/menta2k/flyer-composer/pkg/cropper"
	"github.com/menta2k/flyer-composer/pkg/overlay"
	"github.com/menta2k/flyer-composer/pkg/types"
)

// DefaultQuality is the JPEG quality of the final flyer
const DefaultQuality = 95

// Config holds configuration for the composition pipeline
type Config struct {
	CropFormat canvas.Format
	Quality    int
	Geometry   types.FlyerGeometry
	Analyzer   analyzer.Config
}

// DefaultConfig returns the pipeline defaults
func DefaultConfig() Config {
	return Config{
		CropFormat: canvas.FormatPNG,
		Quality:    DefaultQuality,
		Geometry:   types.DefaultFlyerGeometry,
		Analyzer:   analyzer.DefaultConfig(),
	}
}

// Processor runs the crop -> circular mask -> flyer overlay pipeline
type Processor struct {
	analyzer   *analyzer.ImageAnalyzer
	cropper    *cropper.CircularCropper
	compositor *overlay.Compositor
	template   asset.Source
	quality    int
	logger     *slog.Logger
	clock      clockwork.Clock
}

// NewProcessor creates a processor with default configuration
func NewProcessor(template asset.Source) *Processor {
	return &Processor{
		analyzer:   analyzer.New(),
		cropper:    cropper.New(),
		compositor: overlay.New(),
		template:   template,
		quality:    DefaultQuality,
		logger:     logging.Logger,
		clock:      clockwork.NewRealClock(),
	}
}

// NewProcessorWithConfig creates a processor with custom configuration
func NewProcessorWithConfig(template asset.Source, config Config) (*Processor, error) {
	if template == nil {
		return nil, errors.New("template source is required")
	}
	if config.Quality < 1 || config.Quality > 100 {
		return nil, fmt.Errorf("quality must be between 1 and 100, got %d", config.Quality)
	}

	c, err := cropper.NewWithConfig(cropper.CropConfig{Format: config.CropFormat})
	if err != nil {
		return nil, err
	}
	compositor, err := overlay.NewWithGeometry(config.Geometry)
	if err != nil {
		return nil, err
	}

	return &Processor{
		analyzer:   analyzer.NewWithConfig(config.Analyzer),
		cropper:    c,
		compositor: compositor,
		template:   template,
		quality:    config.Quality,
		logger:     logging.Logger,
		clock:      clockwork.NewRealClock(),
	}, nil
}

// SetLogger replaces the processor logger
func (p *Processor) SetLogger(logger *slog.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// SetClock replaces the clock used to stamp composites
func (p *Processor) SetClock(clock clockwork.Clock) {
	if clock != nil {
		p.clock = clock
	}
}

// Template returns the configured template source
func (p *Processor) Template() asset.Source {
	return p.template
}

// LoadSource decodes a selected file into a SourceImage
func (p *Processor) LoadSource(name string, data []byte) (*types.SourceImage, error) {
	img, format, err := p.analyzer.DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}
	if err := p.analyzer.ValidateImage(img); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}

	return &types.SourceImage{
		Name:   name,
		Format: format,
		Data:   data,
		Image:  img,
	}, nil
}

// CropCircle runs Stage A only
func (p *Processor) CropCircle(ctx context.Context, src *types.SourceImage, region types.CropRegion) (*types.CircularCrop, error) {
	if src == nil || src.Image == nil {
		return nil, fmt.Errorf("%w: no source image", types.ErrDecode)
	}
	return p.cropper.Crop(ctx, src.Image, region)
}

// Generate produces the encoded flyer. It is atomic: on any error no
// composite is returned.
func (p *Processor) Generate(ctx context.Context, src *types.SourceImage, region types.CropRegion) (*types.Composite, error) {
	id := uuid.NewString()
	log := logging.WithGeneration(p.logger, id)

	crop, err := p.CropCircle(ctx, src, region)
	if err != nil {
		return nil, fmt.Errorf("circular crop failed: %w", err)
	}
	log.Debug("circular crop ready", "size", crop.Size, "format", crop.Format, "bytes", len(crop.Encoded))

	img, err := p.overlayTemplate(ctx, log, crop)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return nil, fmt.Errorf("%w: encode composite: %v", types.ErrSurface, err)
	}

	bounds := img.Bounds()
	log.Debug("composite encoded", "width", bounds.Dx(), "height", bounds.Dy(), "bytes", buf.Len())

	return &types.Composite{
		ID:          id,
		Data:        buf.Bytes(),
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		GeneratedAt: p.clock.Now(),
	}, nil
}

// overlayTemplate fetches and decodes the template and draws the crop onto
// it. The template handle is released once the overlay draw is done.
func (p *Processor) overlayTemplate(ctx context.Context, log *slog.Logger, crop *types.CircularCrop) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rc, err := p.template.Open(ctx)
	if err != nil {
		metrics.TemplateFetchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("template %s: %w", p.template, err)
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			log.Warn("failed to release template", "error", cerr)
		}
	}()

	// Read the whole body first so a dropped connection counts as a fetch
	// failure rather than a corrupt image.
	data, err := io.ReadAll(rc)
	if err != nil {
		metrics.TemplateFetchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: template %s: read body: %v", types.ErrAssetFetch, p.template, err)
	}
	metrics.TemplateFetchesTotal.WithLabelValues("success").Inc()

	template, _, err := p.analyzer.DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", p.template, err)
	}
	log.Debug("template decoded", "source", p.template.String(), "width", template.Bounds().Dx(), "height", template.Bounds().Dy())

	img, err := p.compositor.Overlay(ctx, crop.Image, template)
	if err != nil {
		return nil, fmt.Errorf("flyer overlay failed: %w", err)
	}
	return img, nil
}

// ErrorClass names the taxonomy bucket of a pipeline error
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, types.ErrDecode):
		return "decode"
	case errors.Is(err, types.ErrSurface):
		return "surface"
	case errors.Is(err, types.ErrAssetFetch):
		return "asset_fetch"
	case errors.Is(err, types.ErrEmptyRegion):
		return "empty_region"
	case errors.Is(err, types.ErrInvalidRegion):
		return "invalid_region"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}

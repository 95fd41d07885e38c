package analyzer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"io"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/flyer-composer/pkg/types"
)

// ImageAnalyzer decodes and validates uploaded photos and template assets
type ImageAnalyzer struct {
	config Config
}

// Config holds configuration for the image analyzer
type Config struct {
	SupportedFormats []string
	MinImageSize     int
}

// DefaultConfig returns the formats a browser upload control typically offers
func DefaultConfig() Config {
	return Config{
		SupportedFormats: []string{"jpeg", "png", "gif", "webp", "bmp", "tiff"},
		MinImageSize:     1,
	}
}

// New creates a new ImageAnalyzer with default configuration
func New() *ImageAnalyzer {
	return &ImageAnalyzer{config: DefaultConfig()}
}

// NewWithConfig creates a new ImageAnalyzer with custom configuration
func NewWithConfig(config Config) *ImageAnalyzer {
	return &ImageAnalyzer{config: config}
}

// Decode reads an entire image into memory and decodes it, applying EXIF
// orientation so phone photos are upright. It returns the format name.
func (a *ImageAnalyzer) Decode(r io.Reader) (image.Image, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read image: %v", types.ErrDecode, err)
	}
	return a.DecodeBytes(data)
}

// DecodeBytes decodes an in-memory image
func (a *ImageAnalyzer) DecodeBytes(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty image data", types.ErrDecode)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		// Fallback: explicit WebP decode for variants the registered decoder rejects
		if img, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
			return img, "webp", a.checkFormat("webp")
		}
		return nil, "", fmt.Errorf("%w: %v", types.ErrDecode, err)
	}

	if err := a.checkFormat(format); err != nil {
		return nil, "", err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", types.ErrDecode, format, err)
	}

	return img, format, nil
}

func (a *ImageAnalyzer) checkFormat(format string) error {
	if !a.isFormatSupported(format) {
		return fmt.Errorf("%w: unsupported image format: %s", types.ErrDecode, format)
	}
	return nil
}

// GetImageInfo returns basic information about an image
func (a *ImageAnalyzer) GetImageInfo(img image.Image) ImageInfo {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	return ImageInfo{
		Width:       width,
		Height:      height,
		AspectRatio: float64(width) / float64(height),
		Area:        width * height,
	}
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	Area        int     `json:"area"`
}

func (a *ImageAnalyzer) isFormatSupported(format string) bool {
	for _, supported := range a.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
}

// ValidateImage checks if an image meets minimum requirements
func (a *ImageAnalyzer) ValidateImage(img image.Image) error {
	bounds := img.Bounds()
	if bounds.Dx() < a.config.MinImageSize || bounds.Dy() < a.config.MinImageSize {
		return fmt.Errorf("%w: image too small: %dx%d (minimum: %d)",
			types.ErrDecode, bounds.Dx(), bounds.Dy(), a.config.MinImageSize)
	}
	return nil
}

package cropper

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/flyer-composer/pkg/canvas"
	"github.com/menta2k/flyer-composer/pkg/types"
)

// CircularCropper extracts a circular photo from a crop region
type CircularCropper struct {
	config CropConfig
}

// CropConfig holds configuration for circular cropping
type CropConfig struct {
	// Format is the lossless encoding of the crop (png or webp)
	Format canvas.Format
}

// New creates a new CircularCropper with default configuration
func New() *CircularCropper {
	return &CircularCropper{
		config: CropConfig{Format: canvas.FormatPNG},
	}
}

// NewWithConfig creates a new CircularCropper with custom configuration
func NewWithConfig(config CropConfig) (*CircularCropper, error) {
	if !config.Format.Lossless() {
		return nil, fmt.Errorf("crop format must be lossless to keep transparency, got %q", config.Format)
	}
	return &CircularCropper{config: config}, nil
}

// Format returns the encoding used for crops
func (c *CircularCropper) Format() canvas.Format {
	return c.config.Format
}

// Crop masks the region of src to a circle of diameter min(width, height).
// The region maps onto a size x size square; pixels outside the circle are
// transparent.
func (c *CircularCropper) Crop(ctx context.Context, src image.Image, region types.CropRegion) (*types.CircularCrop, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bounds := src.Bounds()
	if err := ValidateRegion(region, bounds.Dx(), bounds.Dy()); err != nil {
		return nil, err
	}

	size := int(math.Round(region.Size()))

	surface, err := canvas.New(size, size)
	if err != nil {
		return nil, err
	}
	defer surface.Close()

	half := float64(size) / 2
	surface.ClipCircle(half, half, float64(size))
	surface.DrawImageRect(extractRegion(src, region), 0, 0, float64(size), float64(size))

	var buf bytes.Buffer
	if err := surface.Encode(&buf, c.config.Format, 0); err != nil {
		return nil, err
	}

	return &types.CircularCrop{
		Image:   surface.Image(),
		Encoded: buf.Bytes(),
		Format:  string(c.config.Format),
		Size:    size,
	}, nil
}

// extractRegion copies the pixel-snapped region out of src. Parts of the
// region that fall outside the image stay transparent.
func extractRegion(src image.Image, region types.CropRegion) *image.NRGBA {
	x0 := int(math.Round(region.X))
	y0 := int(math.Round(region.Y))
	w := int(math.Round(region.Width))
	h := int(math.Round(region.Height))

	bounds := src.Bounds()
	rect := image.Rect(x0, y0, x0+w, y0+h).Add(bounds.Min)
	if rect.In(bounds) {
		return imaging.Crop(src, rect)
	}

	dst := imaging.New(w, h, color.Transparent)
	return imaging.Paste(dst, src, image.Pt(-x0, -y0))
}

package cropper

import (
	"fmt"
	"math"

	"github.com/menta2k/flyer-composer/pkg/types"
)

// Zoom limits of the interactive crop view
const (
	MinZoom  = 1.0
	MaxZoom  = 3.0
	ZoomStep = 0.1
)

// ClampZoom bounds zoom to [MinZoom, MaxZoom] and snaps it to ZoomStep
func ClampZoom(zoom float64) float64 {
	if math.IsNaN(zoom) || zoom < MinZoom {
		return MinZoom
	}
	if zoom > MaxZoom {
		return MaxZoom
	}
	steps := math.Round((zoom - MinZoom) / ZoomStep)
	return math.Round((MinZoom+steps*ZoomStep)*10) / 10
}

// Viewport is the pan/zoom state of the square (1:1) crop view over a
// source image. At zoom 1 the crop box is the largest centred square that
// fits the image; zooming shrinks the box, panning moves its centre.
type Viewport struct {
	ImageWidth  int
	ImageHeight int
	Zoom        float64
	Pan         types.Pan
}

// NewViewport returns the default view: no pan, zoom 1
func NewViewport(width, height int) Viewport {
	return Viewport{ImageWidth: width, ImageHeight: height, Zoom: MinZoom}
}

// Side returns the crop box side in source pixels
func (v Viewport) Side() float64 {
	return math.Min(float64(v.ImageWidth), float64(v.ImageHeight)) / ClampZoom(v.Zoom)
}

// Clamp returns the viewport with zoom snapped and pan limited so the crop
// box stays on the image
func (v Viewport) Clamp() Viewport {
	v.Zoom = ClampZoom(v.Zoom)
	side := v.Side()
	maxX := (float64(v.ImageWidth) - side) / 2
	maxY := (float64(v.ImageHeight) - side) / 2
	v.Pan.X = clamp(v.Pan.X, -maxX, maxX)
	v.Pan.Y = clamp(v.Pan.Y, -maxY, maxY)
	return v
}

// Region maps the viewport to a crop region in source pixels
func (v Viewport) Region() types.CropRegion {
	v = v.Clamp()
	side := v.Side()
	cx := float64(v.ImageWidth)/2 + v.Pan.X
	cy := float64(v.ImageHeight)/2 + v.Pan.Y

	return types.CropRegion{
		X:      cx - side/2,
		Y:      cy - side/2,
		Width:  side,
		Height: side,
	}
}

// MaxRegionScale bounds an explicit crop box side to this multiple of the
// source's longer side
const MaxRegionScale = 2

// ValidateRegion checks that region can be cut from a width x height source.
// The box may hang over the edges (that part renders transparent) but must
// be finite, non-empty, overlap the image and stay within MaxRegionScale.
func ValidateRegion(region types.CropRegion, width, height int) error {
	for _, v := range []float64{region.X, region.Y, region.Width, region.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinates", types.ErrInvalidRegion)
		}
	}
	if region.Empty() {
		return fmt.Errorf("%w: %.1fx%.1f", types.ErrEmptyRegion, region.Width, region.Height)
	}

	limit := MaxRegionScale * math.Max(float64(width), float64(height))
	if region.Width > limit || region.Height > limit {
		return fmt.Errorf("%w: %.0fx%.0f exceeds %.0f px for a %dx%d image",
			types.ErrInvalidRegion, region.Width, region.Height, limit, width, height)
	}
	if region.X >= float64(width) || region.Y >= float64(height) ||
		region.X+region.Width <= 0 || region.Y+region.Height <= 0 {
		return fmt.Errorf("%w: (%.0f, %.0f %.0fx%.0f) does not overlap the %dx%d image",
			types.ErrInvalidRegion, region.X, region.Y, region.Width, region.Height, width, height)
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

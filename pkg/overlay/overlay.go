package overlay

import (
	"context"
	"fmt"
	"image"

	"github.com/menta2k/flyer-composer/pkg/canvas"
	"github.com/menta2k/flyer-composer/pkg/types"
)

// Compositor places a circular crop into the flyer template's photo slot
type Compositor struct {
	geometry types.FlyerGeometry
}

// New creates a Compositor for the default flyer artwork
func New() *Compositor {
	return &Compositor{geometry: types.DefaultFlyerGeometry}
}

// NewWithGeometry creates a Compositor for a different template calibration
func NewWithGeometry(geometry types.FlyerGeometry) (*Compositor, error) {
	if geometry.DiameterRatio <= 0 {
		return nil, fmt.Errorf("diameter ratio must be positive, got %f", geometry.DiameterRatio)
	}
	return &Compositor{geometry: geometry}, nil
}

// Geometry returns the slot calibration
func (c *Compositor) Geometry() types.FlyerGeometry {
	return c.geometry
}

// Target returns the slot circle for a template of the given bounds
func (c *Compositor) Target(bounds image.Rectangle) types.Circle {
	return c.geometry.Target(bounds.Dx(), bounds.Dy())
}

// Overlay draws template at its native size and the crop scaled into the
// slot, clipped to the slot circle. The result always has the template's
// dimensions.
func (c *Compositor) Overlay(ctx context.Context, crop, template image.Image) (*image.NRGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds := template.Bounds()
	surface, err := canvas.New(bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}
	defer surface.Close()

	surface.DrawImage(template, 0, 0)

	target := c.Target(bounds)
	box := target.Bounds()
	surface.ClipCircle(target.CenterX, target.CenterY, target.Diameter)
	surface.DrawImageRect(crop, box.X, box.Y, box.Width, box.Height)
	surface.ResetClip()

	return surface.Image(), nil
}

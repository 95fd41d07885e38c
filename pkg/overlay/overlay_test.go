package overlay

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/flyer-composer/pkg/types"
)

var (
	templateColor = color.NRGBA{20, 40, 160, 255}
	photoColor    = color.NRGBA{250, 200, 10, 255}
)

func TestNewWithGeometry(t *testing.T) {
	_, err := NewWithGeometry(types.FlyerGeometry{CenterXRatio: 0.5, CenterYRatio: 0.5})
	assert.Error(t, err)

	c, err := NewWithGeometry(types.FlyerGeometry{CenterXRatio: 0.5, CenterYRatio: 0.5, DiameterRatio: 0.2})
	require.NoError(t, err)
	assert.Equal(t, 0.2, c.Geometry().DiameterRatio)
}

func TestTarget(t *testing.T) {
	target := New().Target(image.Rect(0, 0, 1000, 1000))

	assert.InDelta(t, 505.1, target.CenterX, 1e-9)
	assert.InDelta(t, 625.1, target.CenterY, 1e-9)
	assert.InDelta(t, 336.0, target.Diameter, 1e-9)
}

func TestOverlayKeepsTemplateSize(t *testing.T) {
	template := imaging.New(1000, 1000, templateColor)

	for _, size := range []int{50, 200, 1200} {
		crop := imaging.New(size, size, photoColor)
		out, err := New().Overlay(context.Background(), crop, template)
		require.NoError(t, err)
		assert.Equal(t, template.Bounds(), out.Bounds(), "crop size %d", size)
	}
}

func TestOverlayPlacesCropInSlot(t *testing.T) {
	template := imaging.New(1000, 1000, templateColor)
	// Slot diameter for a 1000px wide template is 336, so no resampling.
	crop := imaging.New(336, 336, photoColor)

	out, err := New().Overlay(context.Background(), crop, template)
	require.NoError(t, err)

	// Centre of the slot carries the photo.
	assert.Equal(t, photoColor, out.NRGBAAt(505, 625))
	assert.Equal(t, photoColor, out.NRGBAAt(505, 500))

	// Corners of the slot's bounding box stay template.
	assert.Equal(t, templateColor, out.NRGBAAt(340, 460))
	assert.Equal(t, templateColor, out.NRGBAAt(670, 790))

	// Far away from the slot.
	assert.Equal(t, templateColor, out.NRGBAAt(10, 10))
	assert.Equal(t, templateColor, out.NRGBAAt(505, 200))
}

func TestOverlayTransparentCropShowsTemplate(t *testing.T) {
	template := imaging.New(400, 400, templateColor)
	crop := imaging.New(100, 100, color.Transparent)

	out, err := New().Overlay(context.Background(), crop, template)
	require.NoError(t, err)
	assert.Equal(t, templateColor, out.NRGBAAt(202, 250))
}

func TestOverlayIsDeterministic(t *testing.T) {
	template := imaging.New(600, 800, templateColor)
	crop := imaging.New(333, 333, photoColor)

	a, err := New().Overlay(context.Background(), crop, template)
	require.NoError(t, err)
	b, err := New().Overlay(context.Background(), crop, template)
	require.NoError(t, err)

	assert.Equal(t, a.Pix, b.Pix)
}

func TestOverlayEmptyTemplate(t *testing.T) {
	_, err := New().Overlay(context.Background(), imaging.New(10, 10, photoColor), image.NewNRGBA(image.Rect(0, 0, 0, 0)))
	assert.ErrorIs(t, err, types.ErrSurface)
}

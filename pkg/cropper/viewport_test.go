package cropper

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/menta2k/flyer-composer/pkg/types"
)

func TestClampZoom(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.0, 1.0},
		{0.2, 1.0},
		{-3, 1.0},
		{3.0, 3.0},
		{7.5, 3.0},
		{1.54, 1.5},
		{1.56, 1.6},
		{math.NaN(), 1.0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, ClampZoom(tt.in), 1e-9, "ClampZoom(%v)", tt.in)
	}
}

func TestDefaultViewportRegion(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		region types.CropRegion
	}{
		{"landscape", 400, 300, types.CropRegion{X: 50, Y: 0, Width: 300, Height: 300}},
		{"portrait", 300, 500, types.CropRegion{X: 0, Y: 100, Width: 300, Height: 300}},
		{"square", 256, 256, types.CropRegion{X: 0, Y: 0, Width: 256, Height: 256}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.region, NewViewport(tt.w, tt.h).Region())
		})
	}
}

func TestViewportZoomShrinksBox(t *testing.T) {
	v := NewViewport(400, 300)
	v.Zoom = 2

	region := v.Region()
	assert.Equal(t, 150.0, region.Width)
	assert.Equal(t, 150.0, region.Height)
	assert.Equal(t, 125.0, region.X)
	assert.Equal(t, 75.0, region.Y)
}

func TestViewportPanIsClamped(t *testing.T) {
	v := NewViewport(400, 300)
	v.Zoom = 2
	v.Pan = types.Pan{X: 1000, Y: -1000}

	clamped := v.Clamp()
	assert.Equal(t, 125.0, clamped.Pan.X)
	assert.Equal(t, -75.0, clamped.Pan.Y)

	region := v.Region()
	assert.Equal(t, 250.0, region.X)
	assert.Equal(t, 0.0, region.Y)
	assert.LessOrEqual(t, region.X+region.Width, 400.0)
}

func TestViewportPanWithinRange(t *testing.T) {
	v := NewViewport(400, 300)
	v.Pan = types.Pan{X: -20, Y: 0}

	region := v.Region()
	assert.Equal(t, 30.0, region.X)
	assert.Equal(t, 0.0, region.Y)
}

func TestValidateRegion(t *testing.T) {
	tests := []struct {
		name    string
		region  types.CropRegion
		wantErr error
	}{
		{"inside", types.CropRegion{X: 10, Y: 10, Width: 100, Height: 100}, nil},
		{"overhang", types.CropRegion{X: -50, Y: 250, Width: 100, Height: 100}, nil},
		{"twice the long side", types.CropRegion{Width: 800, Height: 800}, nil},
		{"empty", types.CropRegion{Width: 0.3, Height: 0.3}, types.ErrEmptyRegion},
		{"too tall", types.CropRegion{Width: 100, Height: 1e12}, types.ErrInvalidRegion},
		{"inf", types.CropRegion{Width: math.Inf(1), Height: 100}, types.ErrInvalidRegion},
		{"nan", types.CropRegion{Y: math.NaN(), Width: 100, Height: 100}, types.ErrInvalidRegion},
		{"right of image", types.CropRegion{X: 400, Width: 50, Height: 50}, types.ErrInvalidRegion},
		{"left of image", types.CropRegion{X: -50, Width: 50, Height: 50}, types.ErrInvalidRegion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegion(tt.region, 400, 300)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestViewportRegionAlwaysValid(t *testing.T) {
	v := NewViewport(640, 480)
	for _, zoom := range []float64{1, 1.7, 3} {
		v.Zoom = zoom
		v.Pan = types.Pan{X: 1e6, Y: -1e6}
		assert.NoError(t, ValidateRegion(v.Region(), 640, 480), "zoom %v", zoom)
	}
}

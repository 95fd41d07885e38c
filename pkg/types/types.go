package types

import (
	"errors"
	"image"
	"math"
	"time"
)

// Error taxonomy shared by the pipeline stages
var (
	ErrDecode        = errors.New("decode error")
	ErrSurface       = errors.New("surface error")
	ErrAssetFetch    = errors.New("asset fetch error")
	ErrEmptyRegion   = errors.New("empty crop region")
	ErrInvalidRegion = errors.New("crop region cannot be cut from the source")
)

// SourceImage is the uploaded photo, decoded once at selection time
type SourceImage struct {
	Name   string
	Format string
	Data   []byte
	Image  image.Image
}

// CropRegion is an axis-aligned box in source-image pixel coordinates
type CropRegion struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Size returns the diameter of the circle inscribed in the region
func (r CropRegion) Size() float64 {
	return math.Min(r.Width, r.Height)
}

// Empty reports whether the region cannot produce a single pixel
func (r CropRegion) Empty() bool {
	return math.Round(r.Size()) < 1
}

// Pan is the crop centre offset from the image centre, in source pixels
type Pan struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Circle describes a disc by centre and diameter
type Circle struct {
	CenterX  float64 `json:"center_x"`
	CenterY  float64 `json:"center_y"`
	Diameter float64 `json:"diameter"`
}

// Radius returns half the diameter
func (c Circle) Radius() float64 {
	return c.Diameter / 2
}

// Bounds returns the bounding box of the circle as a CropRegion-shaped rectangle
func (c Circle) Bounds() CropRegion {
	return CropRegion{
		X:      c.CenterX - c.Diameter/2,
		Y:      c.CenterY - c.Diameter/2,
		Width:  c.Diameter,
		Height: c.Diameter,
	}
}

// FlyerGeometry places the photo slot relative to the template size
type FlyerGeometry struct {
	CenterXRatio  float64 `json:"center_x_ratio"`
	CenterYRatio  float64 `json:"center_y_ratio"`
	DiameterRatio float64 `json:"diameter_ratio"`
}

// DefaultFlyerGeometry is calibrated against the youth camp flyer artwork
var DefaultFlyerGeometry = FlyerGeometry{
	CenterXRatio:  0.5051,
	CenterYRatio:  0.6251,
	DiameterRatio: 0.336,
}

// Target returns the slot circle for a template of the given size.
// The diameter follows the template width only.
func (g FlyerGeometry) Target(width, height int) Circle {
	w, h := float64(width), float64(height)
	return Circle{
		CenterX:  w * g.CenterXRatio,
		CenterY:  h * g.CenterYRatio,
		Diameter: w * g.DiameterRatio,
	}
}

// CircularCrop is the Stage A artifact
type CircularCrop struct {
	Image   image.Image
	Encoded []byte
	Format  string
	Size    int
}

// Composite is the final flyer image, already encoded
type Composite struct {
	ID          string    `json:"id"`
	Data        []byte    `json:"-"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	GeneratedAt time.Time `json:"generated_at"`
}

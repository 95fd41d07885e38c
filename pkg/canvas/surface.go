// Package canvas provides an off-screen raster surface with circular
// clipping, used by both pipeline stages.
//
// A Surface is acquired per call, drawn on, encoded and released. It is never
// shared between callers.
package canvas

import (
	"fmt"
	"image"
	"image/draw"
	"io"
	"math"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gogpu/gg"

	"github.com/menta2k/flyer-composer/pkg/types"
)

// Format is an output encoding
type Format string

// Supported encodings
const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpg"
	FormatWebP Format = "webp"
)

// ParseFormat normalises a user supplied format name
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", name)
	}
}

// Lossless reports whether the format keeps exact pixels and alpha
func (f Format) Lossless() bool {
	return f == FormatPNG || f == FormatWebP
}

// Surface is a drawing target with an optional circular clip
type Surface struct {
	dc   *gg.Context
	dst  *image.NRGBA
	clip *image.Alpha
}

// New acquires a transparent surface of the given size
func New(width, height int) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid surface size %dx%d", types.ErrSurface, width, height)
	}

	return &Surface{
		dc:  gg.NewContext(width, height),
		dst: image.NewNRGBA(image.Rect(0, 0, width, height)),
	}, nil
}

// Bounds returns the surface rectangle
func (s *Surface) Bounds() image.Rectangle {
	return s.dst.Bounds()
}

// Image returns the surface pixels. The returned image stays valid after Close.
func (s *Surface) Image() *image.NRGBA {
	return s.dst
}

// ClipCircle restricts subsequent draws to a disc. The circle is rasterised
// by gg with anti-aliased edges, so boundary pixels get partial coverage.
func (s *Surface) ClipCircle(cx, cy, diameter float64) {
	s.dc.ClearPath()
	s.dc.DrawCircle(cx, cy, diameter/2)
	mask := s.dc.AsMask()
	s.dc.ClearPath()

	s.clip = &image.Alpha{
		Pix:    mask.Data(),
		Stride: mask.Width(),
		Rect:   mask.Bounds(),
	}
}

// ResetClip makes the whole surface drawable again
func (s *Surface) ResetClip() {
	s.clip = nil
}

// Clipped reports whether a clip is active
func (s *Surface) Clipped() bool {
	return s.clip != nil
}

// DrawImage draws img unscaled with its top-left corner at (x, y)
func (s *Surface) DrawImage(img image.Image, x, y int) {
	b := img.Bounds()
	s.draw(img, image.Rect(x, y, x+b.Dx(), y+b.Dy()))
}

// DrawImageRect draws img scaled to fill the destination box given in
// surface coordinates. The box is snapped to whole pixels.
func (s *Surface) DrawImageRect(img image.Image, x, y, width, height float64) {
	x0 := int(math.Round(x))
	y0 := int(math.Round(y))
	w := int(math.Round(width))
	h := int(math.Round(height))
	if w <= 0 || h <= 0 {
		return
	}

	b := img.Bounds()
	if b.Dx() != w || b.Dy() != h {
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}
	s.draw(img, image.Rect(x0, y0, x0+w, y0+h))
}

func (s *Surface) draw(img image.Image, r image.Rectangle) {
	sp := img.Bounds().Min
	if s.clip == nil {
		draw.Draw(s.dst, r, img, sp, draw.Over)
		return
	}
	draw.DrawMask(s.dst, r, img, sp, s.clip, r.Min, draw.Over)
}

// Encode writes the surface in the requested format. Quality applies to JPEG only.
func (s *Surface) Encode(w io.Writer, format Format, quality int) error {
	var err error
	switch format {
	case FormatPNG:
		err = imaging.Encode(w, s.dst, imaging.PNG)
	case FormatJPEG:
		err = imaging.Encode(w, s.dst, imaging.JPEG, imaging.JPEGQuality(quality))
	case FormatWebP:
		err = webp.Encode(w, s.dst, &webp.Options{Lossless: true})
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", types.ErrSurface, format, err)
	}
	return nil
}

// Close releases the surface. Close is idempotent.
func (s *Surface) Close() error {
	if s.dc == nil {
		return nil
	}
	err := s.dc.Close()
	s.dc = nil
	s.dst = nil
	s.clip = nil
	return err
}

// Package flyercomposer turns a personal photo into an "I'm attending"
// flyer: the photo is cropped to a circle and composited onto a fixed flyer
// template at a pre-defined slot, producing a JPEG.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//		"os"
//
//		flyercomposer "github.com/menta2k/flyer-composer"
//		"github.com/menta2k/flyer-composer/pkg/types"
//	)
//
//	func main() {
//		composer, err := flyercomposer.New("https://example.com/flyer-template.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		photo, err := os.ReadFile("me.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		// Zoom in 1.5x and move the crop 40px to the right of centre
//		flyer, err := composer.Compose(context.Background(), "me.jpg", photo, 1.5, types.Pan{X: 40})
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		path, err := flyercomposer.SaveFlyer("out", flyer)
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("wrote %s", path)
//	}
//
// The package consists of these components:
//
// 1. Analyzer (pkg/analyzer): decodes uploads with EXIF orientation
// 2. Cropper (pkg/cropper): the circular crop and the pan/zoom viewport
// 3. Overlay (pkg/overlay): places the circle onto the template slot
// 4. Processing (pkg/processing): the full crop -> fetch -> overlay -> JPEG pipeline
// 5. Editor (pkg/editor): the Empty/Cropping/Previewing session used by UIs
//
// Generation is deterministic: the same photo, crop and template produce the
// same bytes. The template is fetched fresh for every generation.
package flyercomposer

import (
	"context"
	"fmt"

	"github.com/menta2k/flyer-composer/internal/version"
	"github.com/menta2k/flyer-composer/pkg/asset"
	"github.com/menta2k/flyer-composer/pkg/cropper"
	"github.com/menta2k/flyer-composer/pkg/editor"
	"github.com/menta2k/flyer-composer/pkg/export"
	"github.com/menta2k/flyer-composer/pkg/processing"
	"github.com/menta2k/flyer-composer/pkg/types"
)

// Composer provides a high-level interface over the composition pipeline
type Composer struct {
	processor *processing.Processor
}

// New creates a Composer for a template path or http(s) URL with default
// configuration
func New(template string) (*Composer, error) {
	src, err := asset.NewSource(template, "", 0)
	if err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	return &Composer{processor: processing.NewProcessor(src)}, nil
}

// NewWithConfig creates a Composer with custom configuration
func NewWithConfig(template asset.Source, config processing.Config) (*Composer, error) {
	proc, err := processing.NewProcessorWithConfig(template, config)
	if err != nil {
		return nil, err
	}
	return &Composer{processor: proc}, nil
}

// Compose decodes the photo, places a square crop with the given zoom and
// pan, and renders the flyer
func (c *Composer) Compose(ctx context.Context, name string, photo []byte, zoom float64, pan types.Pan) (*types.Composite, error) {
	src, err := c.processor.LoadSource(name, photo)
	if err != nil {
		return nil, err
	}
	bounds := src.Image.Bounds()
	view := cropper.NewViewport(bounds.Dx(), bounds.Dy())
	view.Zoom = zoom
	view.Pan = pan
	return c.processor.Generate(ctx, src, view.Region())
}

// ComposeRegion renders the flyer from an explicit crop region in source pixels
func (c *Composer) ComposeRegion(ctx context.Context, name string, photo []byte, region types.CropRegion) (*types.Composite, error) {
	src, err := c.processor.LoadSource(name, photo)
	if err != nil {
		return nil, err
	}
	return c.processor.Generate(ctx, src, region)
}

// CropCircle runs only the circular crop and returns it encoded losslessly
func (c *Composer) CropCircle(ctx context.Context, name string, photo []byte, region types.CropRegion) (*types.CircularCrop, error) {
	src, err := c.processor.LoadSource(name, photo)
	if err != nil {
		return nil, err
	}
	return c.processor.CropCircle(ctx, src, region)
}

// NewSession returns an interactive editor session backed by this composer
func (c *Composer) NewSession(opts ...editor.Option) *editor.Session {
	return editor.NewSession(c.processor, opts...)
}

// SaveFlyer writes the flyer into dir under its fixed download name
func SaveFlyer(dir string, flyer *types.Composite) (string, error) {
	return export.SaveToDir(dir, flyer)
}

// Version returns the library version
func Version() string {
	return version.Get().Version
}

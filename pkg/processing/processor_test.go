package processing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"testing"
	"testing/iotest"
	"time"

	"github.com/disintegration/imaging"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/flyer-composer/internal/metrics"
	"github.com/menta2k/flyer-composer/pkg/canvas"
	"github.com/menta2k/flyer-composer/pkg/types"
)

// memorySource serves template bytes from memory and counts handle lifecycle
type memorySource struct {
	data    []byte
	err     error
	readErr error
	opened  int
	closed  int
}

func (s *memorySource) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.opened++
	var r io.Reader = bytes.NewReader(s.data)
	if s.readErr != nil {
		r = io.MultiReader(r, iotest.ErrReader(s.readErr))
	}
	return &trackedReader{Reader: r, src: s}, nil
}

func (s *memorySource) String() string { return "memory" }

type trackedReader struct {
	io.Reader
	src *memorySource
}

func (r *trackedReader) Close() error {
	r.src.closed++
	return nil
}

func encodeTemplate(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(width, height, color.NRGBA{30, 60, 90, 255}), imaging.PNG))
	return buf.Bytes()
}

func sourceImage(width, height int, c color.NRGBA) *types.SourceImage {
	return &types.SourceImage{Name: "photo.png", Format: "png", Image: imaging.New(width, height, c)}
}

func TestGenerateKeepsTemplateSize(t *testing.T) {
	src := &memorySource{data: encodeTemplate(t, 1000, 1000)}
	p := NewProcessor(src)

	out, err := p.Generate(context.Background(), sourceImage(256, 256, color.NRGBA{200, 10, 10, 255}),
		types.CropRegion{X: 10, Y: 10, Width: 200, Height: 200})
	require.NoError(t, err)

	assert.Equal(t, 1000, out.Width)
	assert.Equal(t, 1000, out.Height)
	assert.NotEmpty(t, out.ID)

	decoded, err := imaging.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1000, 1000), decoded.Bounds())

	// JPEG is lossy; the slot centre should still be close to the photo colour.
	c := color.NRGBAModel.Convert(decoded.At(505, 625)).(color.NRGBA)
	assert.InDelta(t, 200, int(c.R), 12)
	assert.InDelta(t, 10, int(c.G), 12)

	bg := color.NRGBAModel.Convert(decoded.At(20, 20)).(color.NRGBA)
	assert.InDelta(t, 30, int(bg.R), 12)
	assert.InDelta(t, 90, int(bg.B), 12)
}

func TestGenerateIsIdempotent(t *testing.T) {
	p := NewProcessor(&memorySource{data: encodeTemplate(t, 600, 900)})
	src := &types.SourceImage{Image: gradient(320, 240)}
	region := types.CropRegion{X: 40, Y: 20, Width: 180, Height: 180}

	a, err := p.Generate(context.Background(), src, region)
	require.NoError(t, err)
	b, err := p.Generate(context.Background(), src, region)
	require.NoError(t, err)

	assert.Equal(t, a.Data, b.Data)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestGenerateReleasesTemplate(t *testing.T) {
	src := &memorySource{data: encodeTemplate(t, 300, 300)}
	p := NewProcessor(src)

	for i := 0; i < 3; i++ {
		_, err := p.Generate(context.Background(), sourceImage(100, 100, color.NRGBA{1, 2, 3, 255}),
			types.CropRegion{Width: 100, Height: 100})
		require.NoError(t, err)
	}

	assert.Equal(t, 3, src.opened, "template must be fetched for every generation")
	assert.Equal(t, src.opened, src.closed)
}

func TestGenerateTemplateFetchFailure(t *testing.T) {
	before := testutil.ToFloat64(metrics.TemplateFetchesTotal.WithLabelValues("error"))
	src := &memorySource{err: fmt.Errorf("%w: connection refused", types.ErrAssetFetch)}
	p := NewProcessor(src)

	out, err := p.Generate(context.Background(), sourceImage(50, 50, color.NRGBA{A: 255}), types.CropRegion{Width: 50, Height: 50})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, types.ErrAssetFetch)
	assert.Equal(t, "asset_fetch", ErrorClass(err))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.TemplateFetchesTotal.WithLabelValues("error")))
}

func TestGenerateTemplateReadFailure(t *testing.T) {
	before := testutil.ToFloat64(metrics.TemplateFetchesTotal.WithLabelValues("error"))
	template := encodeTemplate(t, 100, 100)
	src := &memorySource{data: template[:len(template)/2], readErr: errors.New("connection reset by peer")}
	p := NewProcessor(src)

	out, err := p.Generate(context.Background(), sourceImage(50, 50, color.NRGBA{A: 255}), types.CropRegion{Width: 50, Height: 50})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, types.ErrAssetFetch)
	assert.NotErrorIs(t, err, types.ErrDecode)
	assert.Equal(t, "asset_fetch", ErrorClass(err))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.TemplateFetchesTotal.WithLabelValues("error")))
	assert.Equal(t, 1, src.closed)
}

func TestGenerateStampsComposite(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 7, 1, 9, 30, 0, 0, time.UTC))
	p := NewProcessor(&memorySource{data: encodeTemplate(t, 100, 100)})
	p.SetClock(clock)

	out, err := p.Generate(context.Background(), sourceImage(50, 50, color.NRGBA{A: 255}), types.CropRegion{Width: 50, Height: 50})
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), out.GeneratedAt)
	assert.NotEmpty(t, out.ID)
}

func TestGenerateTemplateDecodeFailureReleasesHandle(t *testing.T) {
	src := &memorySource{data: []byte("<html>not found</html>")}
	p := NewProcessor(src)

	out, err := p.Generate(context.Background(), sourceImage(50, 50, color.NRGBA{A: 255}), types.CropRegion{Width: 50, Height: 50})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, types.ErrDecode)
	assert.Equal(t, 1, src.opened)
	assert.Equal(t, 1, src.closed)
}

func TestGenerateEmptyRegion(t *testing.T) {
	src := &memorySource{data: encodeTemplate(t, 100, 100)}
	p := NewProcessor(src)

	_, err := p.Generate(context.Background(), sourceImage(50, 50, color.NRGBA{A: 255}), types.CropRegion{})
	assert.ErrorIs(t, err, types.ErrEmptyRegion)
	assert.Zero(t, src.opened, "template must not be fetched when Stage A fails")
}

func TestGenerateWithoutSource(t *testing.T) {
	p := NewProcessor(&memorySource{data: encodeTemplate(t, 100, 100)})

	_, err := p.Generate(context.Background(), nil, types.CropRegion{Width: 10, Height: 10})
	assert.ErrorIs(t, err, types.ErrDecode)
}

func TestLoadSource(t *testing.T) {
	p := NewProcessor(&memorySource{})

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, gradient(64, 32), imaging.JPEG))

	src, err := p.LoadSource("me.jpg", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "me.jpg", src.Name)
	assert.Equal(t, "jpeg", src.Format)
	assert.Equal(t, 64, src.Image.Bounds().Dx())

	_, err = p.LoadSource("notes.txt", []byte("hello"))
	assert.ErrorIs(t, err, types.ErrDecode)
}

func TestNewProcessorWithConfig(t *testing.T) {
	src := &memorySource{}

	_, err := NewProcessorWithConfig(nil, DefaultConfig())
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Quality = 0
	_, err = NewProcessorWithConfig(src, cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.CropFormat = canvas.FormatJPEG
	_, err = NewProcessorWithConfig(src, cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.CropFormat = canvas.FormatWebP
	p, err := NewProcessorWithConfig(src, cfg)
	require.NoError(t, err)
	assert.Equal(t, src, p.Template())
}

func TestErrorClass(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{fmt.Errorf("x: %w", types.ErrDecode), "decode"},
		{fmt.Errorf("x: %w", types.ErrSurface), "surface"},
		{fmt.Errorf("x: %w", types.ErrAssetFetch), "asset_fetch"},
		{types.ErrEmptyRegion, "empty_region"},
		{fmt.Errorf("x: %w", types.ErrInvalidRegion), "invalid_region"},
		{context.Canceled, "cancelled"},
		{errors.New("boom"), "other"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorClass(tt.err))
	}
}

func TestCreateDebugOverlay(t *testing.T) {
	img := imaging.New(200, 100, color.NRGBA{0, 0, 0, 255})
	out := CreateDebugOverlay(img, types.CropRegion{X: 50, Y: 0, Width: 100, Height: 100})

	assert.Equal(t, color.NRGBA{255, 204, 0, 255}, out.NRGBAAt(50, 50))
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, out.NRGBAAt(10, 10))
	// Original is untouched.
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, img.NRGBAAt(50, 50))
}

func gradient(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x), uint8(y), 90, 255})
		}
	}
	return img
}

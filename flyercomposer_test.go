package flyercomposer

import (
	"bytes"
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/flyer-composer/pkg/asset"
	"github.com/menta2k/flyer-composer/pkg/canvas"
	"github.com/menta2k/flyer-composer/pkg/editor"
	"github.com/menta2k/flyer-composer/pkg/export"
	"github.com/menta2k/flyer-composer/pkg/processing"
	"github.com/menta2k/flyer-composer/pkg/types"
)

func writeTemplate(t *testing.T, width, height int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flyer.png")
	require.NoError(t, imaging.Save(imaging.New(width, height, color.NRGBA{10, 20, 30, 255}), path))
	return path
}

func encodePhoto(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(width, height, color.NRGBA{240, 240, 0, 255}), imaging.JPEG))
	return buf.Bytes()
}

func TestCompose(t *testing.T) {
	composer, err := New(writeTemplate(t, 600, 800))
	require.NoError(t, err)

	flyer, err := composer.Compose(context.Background(), "me.jpg", encodePhoto(t, 320, 240), 1.5, types.Pan{X: 10})
	require.NoError(t, err)
	assert.Equal(t, 600, flyer.Width)
	assert.Equal(t, 800, flyer.Height)
	assert.False(t, flyer.GeneratedAt.IsZero())

	img, err := imaging.Decode(bytes.NewReader(flyer.Data))
	require.NoError(t, err)
	c := color.NRGBAModel.Convert(img.At(303, 500)).(color.NRGBA)
	assert.InDelta(t, 240, int(c.R), 16)
}

func TestComposeRegionAndSave(t *testing.T) {
	composer, err := New(writeTemplate(t, 400, 400))
	require.NoError(t, err)

	flyer, err := composer.ComposeRegion(context.Background(), "me.jpg", encodePhoto(t, 200, 200), types.CropRegion{X: 20, Y: 20, Width: 100, Height: 100})
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := SaveFlyer(dir, flyer)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, export.Filename), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, flyer.Data, data)
}

func TestComposeRegionOffImage(t *testing.T) {
	composer, err := New(writeTemplate(t, 100, 100))
	require.NoError(t, err)

	_, err = composer.ComposeRegion(context.Background(), "me.jpg", encodePhoto(t, 50, 50), types.CropRegion{X: 500, Width: 40, Height: 40})
	assert.ErrorIs(t, err, types.ErrInvalidRegion)
}

func TestComposeBadPhoto(t *testing.T) {
	composer, err := New(writeTemplate(t, 100, 100))
	require.NoError(t, err)

	_, err = composer.Compose(context.Background(), "notes.txt", []byte("not an image"), 1, types.Pan{})
	assert.ErrorIs(t, err, types.ErrDecode)
}

func TestCropCircle(t *testing.T) {
	cfg := processing.DefaultConfig()
	cfg.CropFormat = canvas.FormatWebP
	composer, err := NewWithConfig(asset.NewFileSource("", writeTemplate(t, 100, 100)), cfg)
	require.NoError(t, err)

	crop, err := composer.CropCircle(context.Background(), "me.jpg", encodePhoto(t, 120, 90), types.CropRegion{Width: 90, Height: 90})
	require.NoError(t, err)
	assert.Equal(t, 90, crop.Size)
	assert.Equal(t, "webp", crop.Format)
	assert.NotEmpty(t, crop.Encoded)
}

func TestNewSession(t *testing.T) {
	composer, err := New(writeTemplate(t, 100, 100))
	require.NoError(t, err)

	session := composer.NewSession()
	assert.Equal(t, editor.Empty, session.State())
	require.NoError(t, session.SelectFile("me.jpg", encodePhoto(t, 50, 50)))
	_, err = session.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, editor.Previewing, session.State())
}

func TestNewWithConfigValidation(t *testing.T) {
	cfg := processing.DefaultConfig()
	cfg.Quality = 200
	_, err := NewWithConfig(asset.NewFileSource("", "x.png"), cfg)
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, Version())
}

package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/menta2k/flyer-composer/pkg/types"
)

// Filename is the fixed name of the downloaded flyer
const Filename = "UNTIED-Youth-Camp-26-Attending-Graphics.jpg"

// ContentType of the exported flyer
const ContentType = "image/jpeg"

// ErrNoComposite is returned when there is nothing to export
var ErrNoComposite = errors.New("no composite to export")

// Write copies the encoded composite to w. The composite is not modified.
func Write(w io.Writer, composite *types.Composite) (int64, error) {
	if composite == nil || len(composite.Data) == 0 {
		return 0, ErrNoComposite
	}
	return io.Copy(w, bytes.NewReader(composite.Data))
}

// SaveToDir writes the composite into dir under the fixed filename and
// returns the full path
func SaveToDir(dir string, composite *types.Composite) (string, error) {
	if composite == nil || len(composite.Data) == 0 {
		return "", ErrNoComposite
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, Filename)
	if err := os.WriteFile(path, composite.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// ContentDisposition returns the attachment header value for downloads
func ContentDisposition() string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": Filename})
}

// Package asset retrieves the flyer template. The template is fetched fresh
// for every generation; callers must Close what Open returns.
package asset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/menta2k/flyer-composer/pkg/types"
)

// DefaultTemplatePath is the template location relative to the asset root
const DefaultTemplatePath = "flyer-template.jpg"

// Source opens the template asset
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// NewSource picks an HTTP source for http(s) locations and a file source
// (relative to root) for everything else
func NewSource(location, root string, timeout time.Duration) (Source, error) {
	if location == "" {
		location = DefaultTemplatePath
	}
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPSource(location, timeout)
	}
	if strings.HasPrefix(root, "http://") || strings.HasPrefix(root, "https://") {
		base, err := url.Parse(strings.TrimSuffix(root, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid asset root: %v", err)
		}
		ref, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("invalid template location: %v", err)
		}
		return NewHTTPSource(base.ResolveReference(ref).String(), timeout)
	}
	return NewFileSource(root, location), nil
}

// FileSource reads the template from disk
type FileSource struct {
	path string
}

// NewFileSource joins root and path; an absolute path ignores root
func NewFileSource(root, path string) *FileSource {
	if !filepath.IsAbs(path) && root != "" {
		path = filepath.Join(root, path)
	}
	return &FileSource{path: path}
}

// Open implements Source
func (s *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrAssetFetch, err)
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrAssetFetch, err)
	}
	return f, nil
}

func (s *FileSource) String() string {
	return s.path
}

// HTTPSource downloads the template from a URL
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource validates the URL and creates a source with its own client.
// A zero timeout waits for the server indefinitely.
func NewHTTPSource(rawURL string, timeout time.Duration) (*HTTPSource, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}
	return &HTTPSource{
		url:    rawURL,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Open implements Source. The returned body must be closed by the caller.
func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", types.ErrAssetFetch, err)
	}
	req.Header.Set("User-Agent", "Flyer-Composer/1.0")
	// The template is fetched fresh every time.
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to download template: %v", types.ErrAssetFetch, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: failed to download template: HTTP %d", types.ErrAssetFetch, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") && !strings.HasPrefix(contentType, "application/octet-stream") {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: URL does not point to an image (Content-Type: %s)", types.ErrAssetFetch, contentType)
	}

	return resp.Body, nil
}

func (s *HTTPSource) String() string {
	return s.url
}

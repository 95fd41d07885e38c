package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/menta2k/flyer-composer/pkg/export"
	"github.com/menta2k/flyer-composer/pkg/types"
	"github.com/menta2k/flyer-composer/web"
)

var (
	errBadRequest = errors.New("bad request")
	errNotFound   = errors.New("not found")
)

type cropRequest struct {
	Zoom   *float64          `json:"zoom"`
	PanX   float64           `json:"pan_x"`
	PanY   float64           `json:"pan_y"`
	Region *types.CropRegion `json:"region"`
}

func (s *Server) handleIndex(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, web.IndexHTML)
}

func (s *Server) handleState(c echo.Context) error {
	return c.JSON(http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleUpload(c echo.Context) error {
	limit := s.config.Server.MaxUploadBytes
	req := c.Request()
	if req.ContentLength > limit+multipartOverhead {
		return s.handleError(c, errTooLarge)
	}
	req.Body = http.MaxBytesReader(c.Response(), req.Body, limit+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return s.handleError(c, errTooLarge)
		}
		return s.handleError(c, fmt.Errorf("%w: missing file field: %v", errBadRequest, err))
	}
	if fh.Size > limit {
		return s.handleError(c, fmt.Errorf("%w: %d bytes", errTooLarge, fh.Size))
	}

	f, err := fh.Open()
	if err != nil {
		return s.handleError(c, fmt.Errorf("%w: failed to open upload: %v", errBadRequest, err))
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return s.handleError(c, fmt.Errorf("%w: failed to read upload: %v", errBadRequest, err))
	}

	name := uploadName(fh.Filename)
	s.logger.Info("Upload received", "name", name, "bytes", len(data))

	if err := s.session.SelectFile(name, data); err != nil {
		return s.handleError(c, err)
	}
	return c.JSON(http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleCrop(c echo.Context) error {
	var req cropRequest
	if err := c.Bind(&req); err != nil {
		return s.handleError(c, fmt.Errorf("%w: invalid crop request: %v", errBadRequest, err))
	}

	if req.Region != nil {
		if err := s.session.SetCropRegion(*req.Region); err != nil {
			return s.handleError(c, err)
		}
		return c.JSON(http.StatusOK, s.session.Snapshot())
	}

	zoom := s.session.Snapshot().Zoom
	if req.Zoom != nil {
		zoom = *req.Zoom
	}
	if _, err := s.session.AdjustCrop(zoom, types.Pan{X: req.PanX, Y: req.PanY}); err != nil {
		return s.handleError(c, err)
	}
	return c.JSON(http.StatusOK, s.session.Snapshot())
}

// handleGenerate runs to completion even if the client goes away; the
// result is picked up by the next state poll.
func (s *Server) handleGenerate(c echo.Context) error {
	ctx := context.WithoutCancel(c.Request().Context())
	if _, err := s.session.Generate(ctx); err != nil {
		return s.handleError(c, err)
	}
	return c.JSON(http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleEditAgain(c echo.Context) error {
	if err := s.session.EditAgain(); err != nil {
		return s.handleError(c, err)
	}
	return c.JSON(http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleReset(c echo.Context) error {
	s.session.Reset()
	return c.JSON(http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleSource(c echo.Context) error {
	src := s.session.Source()
	if src == nil || len(src.Data) == 0 {
		return s.handleError(c, fmt.Errorf("%w: no source image selected", errNotFound))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.Blob(http.StatusOK, http.DetectContentType(src.Data), src.Data)
}

func (s *Server) handlePreview(c echo.Context) error {
	out := s.session.Output()
	if out == nil {
		return s.handleError(c, fmt.Errorf("%w: nothing generated yet", errNotFound))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.Blob(http.StatusOK, export.ContentType, out.Data)
}

func (s *Server) handleDownload(c echo.Context) error {
	var buf bytes.Buffer
	if _, err := s.session.Download(&buf); err != nil {
		return s.handleError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, export.ContentDisposition())
	return c.Blob(http.StatusOK, export.ContentType, buf.Bytes())
}

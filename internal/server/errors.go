package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/menta2k/flyer-composer/pkg/editor"
	"github.com/menta2k/flyer-composer/pkg/export"
	"github.com/menta2k/flyer-composer/pkg/processing"
	"github.com/menta2k/flyer-composer/pkg/types"
)

var errTooLarge = errors.New("upload exceeds the size limit")

// statusFor maps session and pipeline errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, editor.ErrBusy),
		errors.Is(err, editor.ErrInvalidTransition),
		errors.Is(err, editor.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, editor.ErrNothingToGenerate),
		errors.Is(err, types.ErrDecode),
		errors.Is(err, types.ErrEmptyRegion),
		errors.Is(err, types.ErrInvalidRegion):
		return http.StatusBadRequest
	case errors.Is(err, errNotFound), errors.Is(err, export.ErrNoComposite):
		return http.StatusNotFound
	case errors.Is(err, types.ErrAssetFetch),
		errors.Is(err, types.ErrSurface):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleError(c echo.Context, err error) error {
	status := statusFor(err)
	attrs := []any{
		"error", err,
		"class", processing.ErrorClass(err),
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", status,
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", attrs...)
	} else {
		s.logger.Info("Request rejected", attrs...)
	}

	return c.JSON(status, map[string]string{"error": err.Error()})
}

package server

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/menta2k/flyer-composer/internal/version"
)

func (s *Server) handleHealth(c echo.Context) error {
	response := map[string]any{
		"status":  "ok",
		"uptime":  s.clock.Since(s.startTime).Seconds(),
		"version": version.Get().Version,
		"state":   s.session.State().String(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write health response: %w", err)
	}

	return nil
}

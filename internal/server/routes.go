package server

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())

	// Observability endpoints
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo.GET("/", s.handleIndex)

	var limited []echo.MiddlewareFunc
	if s.config.Server.RateLimit > 0 {
		limited = append(limited, newRateLimiter(s.config.Server.RateLimit, s.config.Server.RateBurst))
	}

	api := s.echo.Group("/api")
	api.GET("/state", s.handleState)
	api.POST("/upload", s.handleUpload, limited...)
	api.POST("/crop", s.handleCrop)
	api.POST("/generate", s.handleGenerate, limited...)
	api.POST("/edit", s.handleEditAgain)
	api.POST("/reset", s.handleReset)
	api.GET("/source", s.handleSource)
	api.GET("/preview", s.handlePreview)
	api.GET("/download", s.handleDownload)
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			s.logger.Debug("Request", attrs...)
			return nil
		},
	})
}

package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"

	"github.com/menta2k/flyer-composer/internal/config"
	"github.com/menta2k/flyer-composer/internal/logging"
	"github.com/menta2k/flyer-composer/pkg/editor"
)

// multipartOverhead is allowed on top of the upload limit for form headers
const multipartOverhead = 64 << 10

// Server is the local single-session editor UI
type Server struct {
	echo      *echo.Echo
	config    *config.Config
	session   *editor.Session
	clock     clockwork.Clock
	logger    *slog.Logger
	startTime time.Time
}

// NewServer wires the HTTP routes onto a session
func NewServer(cfg *config.Config, session *editor.Session, clock clockwork.Clock) *Server {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:      e,
		config:    cfg,
		session:   session,
		clock:     clock,
		logger:    logging.Logger.With("component", "server"),
		startTime: clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	s.logger.Info("Starting server", "addr", s.config.Server.Addr)
	return s.echo.Start(s.config.Server.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

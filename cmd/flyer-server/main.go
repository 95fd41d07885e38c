package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/menta2k/flyer-composer/internal/config"
	"github.com/menta2k/flyer-composer/internal/logging"
	"github.com/menta2k/flyer-composer/internal/server"
	"github.com/menta2k/flyer-composer/internal/version"
	"github.com/menta2k/flyer-composer/pkg/editor"
	"github.com/menta2k/flyer-composer/pkg/processing"
)

func runGracefulShutdown(srv *server.Server, session *editor.Session) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		// Nothing outlives the process.
		session.Reset()

		close(done)
	}()

	return done
}

func setupConfig(path, addr string) *config.Config {
	cfg := config.Default()
	if path = config.ResolvePath(path); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			// Use log before slog is initialized
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	return cfg
}

func main() {
	var configPath, addr string
	flag.StringVar(&configPath, "config", "", "config file (default "+config.GetConfigPath()+" if present)")
	flag.StringVar(&addr, "addr", "", "listen address (default from config)")
	flag.Parse()

	cfg := setupConfig(configPath, addr)
	logger := logging.InitLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting flyer-composer", "version", version.Get().Version, "template", cfg.Template.Location)

	template, err := cfg.TemplateSource()
	if err != nil {
		slog.Error("Invalid template location", "error", err)
		os.Exit(1)
	}
	proc, err := processing.NewProcessorWithConfig(template, cfg.ProcessingConfig())
	if err != nil {
		slog.Error("Failed to create processor", "error", err)
		os.Exit(1)
	}

	clock := clockwork.NewRealClock()
	proc.SetClock(clock)
	proc.SetLogger(logger)
	session := editor.NewSession(proc, editor.WithClock(clock), editor.WithLogger(logger))
	srv := server.NewServer(cfg, session, clock)

	done := runGracefulShutdown(srv, session)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
	slog.Info("Server stopped")
}

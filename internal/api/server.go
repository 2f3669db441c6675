// File: internal/api/server.go

// Package api hosts the HTTP surface of the dispatcher: /send, /send_all,
// /open_whatsapp, and /health, backed by the shared browser session.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/asolfandco/dispatcher/internal/browser"
	"github.com/asolfandco/dispatcher/internal/config"
	"github.com/asolfandco/dispatcher/internal/dispatch"
	"github.com/asolfandco/dispatcher/internal/media"
)

// Server owns the HTTP listener and the browser session manager behind it.
type Server struct {
	cfg        *config.Config
	logger     *zap.Logger
	manager    *browser.Manager
	httpServer *http.Server
}

// NewServer wires the full stack: session manager, attachment fetcher,
// dispatcher, handlers, and the chi router.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	log := logger.Named("server")
	manager := browser.NewManager(cfg, logger)
	fetcher := media.NewFetcher(cfg.Dispatch.DownloadTimeout, logger)
	runner := newSessionRunner(manager, cfg.WhatsApp, logger)
	dispatcher := dispatch.NewDispatcher(cfg.Dispatch, cfg.WhatsApp, runner, fetcher, logger)
	handlers := NewHandlers(logger, dispatcher, fetcher, cfg.Server.MaxUploadBytes)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	handlers.RegisterRoutes(r)

	return &Server{
		cfg:     cfg,
		logger:  log,
		manager: manager,
		httpServer: &http.Server{
			Addr:    cfg.Server.ListenAddr,
			Handler: r,
		},
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests within
// the shutdown timeout and closes the browser session.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening.", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		s.manager.Shutdown()
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down.")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)
	s.manager.Shutdown()
	if serveErr := <-errCh; serveErr != nil {
		return serveErr
	}
	return err
}

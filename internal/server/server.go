// Package server provides the HTTP server setup for go-pdftools.
//
// NewServer creates and configures the HTTP server, session manager,
// rasterizer and file directories.
//
// Expected outputs:
// - Server listens on the configured port (default 8080)
// - Idle sessions and their files are removed periodically
//
// Usage:
//
//	httpServer, srv, err := server.NewServer(ctx, cfg, logger)
//	httpServer.ListenAndServe()
//
// See internal/server/routes.go for route registration.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"go-pdftools/internal/config"
	"go-pdftools/internal/render"
	"go-pdftools/internal/session"
)

type Server struct {
	cfg            *config.Config
	logger         *logrus.Logger
	SessionManager *session.SessionManager
	Rasterizer     *render.Rasterizer
}

// New returns a Server rendering with open, or MuPDF when open is nil.
func New(cfg *config.Config, logger *logrus.Logger, open render.Opener) *Server {
	return &Server{
		cfg:            cfg,
		logger:         logger,
		SessionManager: session.NewSessionManager(session.Settings{Language: cfg.DefaultLanguage}),
		Rasterizer:     render.NewRasterizer(open, logger.WithField("component", "render")),
	}
}

// NewServer creates the upload and output directories and returns the HTTP
// server. Idle sessions are swept until ctx is done.
func NewServer(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*http.Server, *Server, error) {
	for _, dir := range []string{cfg.UploadDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	srv := New(cfg, logger, nil)
	go srv.sweep(ctx)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}
	return server, srv, nil
}

// sweep removes sessions idle for longer than the session TTL.
func (s *Server) sweep(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.SessionManager.Sweep(s.cfg.SessionTTL); n > 0 {
				s.logger.WithField("sessions", n).Info("removed idle sessions")
			}
		}
	}
}

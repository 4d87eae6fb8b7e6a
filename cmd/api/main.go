// Package main API.
//
// go-pdftools provides a REST API for merging, splitting, editing, signing,
// converting and protecting PDF files.
//
//	Schemes: http
//	BasePath: /
//	Version: 1.0.0
//	Host: localhost:8080
//
//	Consumes:
//	- application/json
//	- multipart/form-data
//
//	Produces:
//	- application/json
//	- application/pdf
//	- application/zip
//
// swagger:meta
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"go-pdftools/internal/config"
	"go-pdftools/internal/server"
	"go-pdftools/internal/session"
)

func gracefulShutdown(ctx context.Context, stop context.CancelFunc, apiServer *http.Server, sm *session.SessionManager, cfg *config.Config, log *logrus.Logger, done chan bool) {
	// Listen for the interrupt signal.
	<-ctx.Done()
	// Restore default behavior so a second signal kills the process
	stop()

	log.Info("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server forced to shutdown")
	}

	// Cancel running jobs and remove every session file
	log.Info("cleaning directories")
	sm.CleanupAll()
	cleanupDirs(log, cfg.UploadDir, cfg.OutputDir)

	log.Info("server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func cleanupDirs(log *logrus.Logger, dirs ...string) {
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				log.WithError(err).WithField("file", entry.Name()).Warn("cleanup failed")
			}
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := cfg.Logger()

	// Leftovers from a previous run belong to sessions that no longer exist
	cleanupDirs(log, cfg.UploadDir, cfg.OutputDir)

	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiServer, srv, err := server.NewServer(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("server setup failed")
	}

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(ctx, stop, apiServer, srv.SessionManager, cfg, log, done)

	log.WithField("addr", apiServer.Addr).Info("starting server")
	if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("http server error")
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info("graceful shutdown complete")
}

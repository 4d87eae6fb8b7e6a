// Package server sets up the HTTP server and registers API routes for go-pdftools.
//
// RegisterRoutes returns an http.Handler with all API endpoints for sessions,
// uploads, previews, tools, jobs and downloads.
//
// Expected outputs:
// - All API endpoints are available under /api/sessions
// - CORS and logging middleware are enabled
// - JSON responses are compressed with zstd or gzip when the client accepts it
package server

import (
	"io"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-pdftools/docs"
	"go-pdftools/internal/handlers"
)

const compressionLevel = 5

// Only allow requests from localhost to /swagger/*
func localhostOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, _ := net.SplitHostPort(r.RemoteAddr)
		if host != "127.0.0.1" && host != "::1" && host != "localhost" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// newCompressor compresses JSON with zstd, falling back to gzip.
func newCompressor() *middleware.Compressor {
	c := middleware.NewCompressor(compressionLevel, "application/json")
	c.SetEncoder("gzip", func(w io.Writer, level int) io.Writer {
		gz, err := gzip.NewWriterLevel(w, level)
		if err != nil {
			return nil
		}
		return gz
	})
	c.SetEncoder("zstd", func(w io.Writer, level int) io.Writer {
		zw, err := zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
			zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil
		}
		return zw
	})
	return c
}

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
	}))
	r.With(localhostOnly).Get("/swagger/*", httpSwagger.WrapHandler)

	h := handlers.NewAPIHandler(s.cfg, s.SessionManager, s.Rasterizer, s.logger)
	compressor := newCompressor()
	r.Route("/api/sessions", func(api chi.Router) {
		// Raw and hijacked responses stay outside the compressor.
		api.Get("/{sessionID}/outputs/{filename}", h.DownloadOutput)
		api.Get("/{sessionID}/job/events", h.JobEvents)

		api.Group(func(api chi.Router) {
			api.Use(compressor.Handler)
			api.Post("/", h.CreateSession)
			api.Delete("/{sessionID}", h.DeleteSession)
			api.Get("/{sessionID}/settings", h.GetSettings)
			api.Put("/{sessionID}/settings", h.UpdateSettings)
			api.Post("/{sessionID}/files", h.UploadFile)
			api.Post("/{sessionID}/images", h.UploadImage)
			api.Get("/{sessionID}/files", h.ListFiles)
			api.Delete("/{sessionID}/files/{fileID}", h.RemoveFile)
			api.Put("/{sessionID}/order", h.UpdateOrder)
			api.Get("/{sessionID}/files/{fileID}/pages", h.PagePreviews)
			api.Get("/{sessionID}/files/{fileID}/form", h.ExportForm)
			api.Post("/{sessionID}/actions/{tool}", h.RunAction)
			api.Get("/{sessionID}/job", h.JobStatus)
			api.Delete("/{sessionID}/job", h.CancelJob)
		})
	})

	return r
}

// Package handlers provides HTTP handlers for the PDF tools API.
//
// This package contains the HTTP endpoints for session management, file
// upload and ordering, page previews, the PDF tools, job progress and
// output download.
//
// Example usage:
//
//	h := handlers.NewAPIHandler(cfg, sessionManager, rasterizer, logger)
//	r := chi.NewRouter()
//	r.Post("/api/sessions/", h.CreateSession)
//
// All handlers are designed to be used with the chi router.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"go-pdftools/internal/config"
	"go-pdftools/internal/i18n"
	"go-pdftools/internal/overlay"
	"go-pdftools/internal/pdf"
	"go-pdftools/internal/render"
	"go-pdftools/internal/session"
)

var (
	errBadRequest       = errors.New("bad request")
	errTooLarge         = errors.New("upload too large")
	errUnknownTool      = errors.New("unknown tool")
	errNoImages         = errors.New("document contains no images")
	errOriginNotAllowed = errors.New("origin not allowed")
	errNoJob            = errors.New("no job")
)

type APIHandler struct {
	SessionManager *session.SessionManager
	Rasterizer     *render.Rasterizer
	Config         *config.Config
	Logger         logrus.FieldLogger
}

func NewAPIHandler(cfg *config.Config, sm *session.SessionManager, rz *render.Rasterizer, logger logrus.FieldLogger) *APIHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &APIHandler{SessionManager: sm, Rasterizer: rz, Config: cfg, Logger: logger}
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string   `json:"error"`
	Code  i18n.Key `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// classify maps an error to its HTTP status and message key.
func classify(err error) (int, i18n.Key) {
	switch {
	case errors.Is(err, pdf.ErrWrongPassword), errors.Is(err, render.ErrPasswordRequired):
		return http.StatusUnauthorized, i18n.WrongPassword
	case errors.Is(err, session.ErrJobRunning):
		return http.StatusConflict, i18n.JobRunning
	case errors.Is(err, context.Canceled):
		return http.StatusConflict, i18n.Canceled
	case errors.Is(err, session.ErrFileNotFound):
		return http.StatusNotFound, i18n.FileNotFound
	case errors.Is(err, errNoJob):
		return http.StatusNotFound, i18n.NoJob
	case errors.Is(err, errUnknownTool):
		return http.StatusNotFound, i18n.UnknownTool
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge, i18n.FileTooLarge
	case errors.Is(err, pdf.ErrPageOutOfRange), errors.Is(err, render.ErrPageOutOfRange):
		return http.StatusBadRequest, i18n.PageOutOfRange
	case errors.Is(err, pdf.ErrNoPagesSelected):
		return http.StatusBadRequest, i18n.NoPagesSelected
	case errors.Is(err, pdf.ErrAllPagesSelected):
		return http.StatusBadRequest, i18n.AllPagesDeleted
	case errors.Is(err, pdf.ErrInvalidRotation):
		return http.StatusBadRequest, i18n.InvalidRotation
	case errors.Is(err, pdf.ErrUnsupportedImage):
		return http.StatusBadRequest, i18n.InvalidImage
	case errors.Is(err, pdf.ErrNotPDF), errors.Is(err, render.ErrNoPages):
		return http.StatusBadRequest, i18n.InvalidPDF
	case errors.Is(err, pdf.ErrNoInput):
		return http.StatusBadRequest, i18n.NoFiles
	case errors.Is(err, errNoImages):
		return http.StatusBadRequest, i18n.NoImages
	case errors.Is(err, pdf.ErrNoForm):
		return http.StatusBadRequest, i18n.NoForm
	case errors.Is(err, errBadRequest), errors.Is(err, session.ErrInvalidOrder), errors.Is(err, pdf.ErrEmptyText),
		errors.Is(err, overlay.ErrInvalidDescriptor):
		return http.StatusBadRequest, i18n.InvalidRequest
	}
	return http.StatusInternalServerError, i18n.ProcessFailed
}

// language returns the preferred language of s, or the configured default
// when there is no session.
func (h *APIHandler) language(s *session.Session) i18n.Language {
	if s != nil {
		return s.Settings().Language
	}
	return h.Config.DefaultLanguage
}

func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, s *session.Session, status int, key i18n.Key) {
	writeJSON(w, status, errorResponse{Error: i18n.Message(h.language(s), key), Code: key})
}

// failErr writes the localized message for err. Server errors are logged
// with their details, which never reach the client.
func (h *APIHandler) failErr(w http.ResponseWriter, r *http.Request, s *session.Session, err error) {
	status, key := classify(err)
	entry := h.Logger.WithError(err).WithField("path", r.URL.Path)
	if s != nil {
		entry = entry.WithField("session", s.ID)
	}
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.WithField("status", status).Debug("request rejected")
	}
	h.fail(w, r, s, status, key)
}

// session resolves the {sessionID} URL parameter, writing a 404 when the
// session does not exist.
func (h *APIHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := h.SessionManager.GetSession(chi.URLParam(r, "sessionID"))
	if !ok {
		h.fail(w, r, nil, http.StatusNotFound, i18n.SessionNotFound)
	}
	return s, ok
}

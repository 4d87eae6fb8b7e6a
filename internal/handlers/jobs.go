package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/websocket"

	"go-pdftools/internal/i18n"
	"go-pdftools/internal/job"
	"go-pdftools/internal/utils"
)

// DownloadOutput godoc
// @Summary      Download an output
// @Description  Downloads a generated file. The output is removed once it has been served.
// @Tags         outputs
// @Produce      application/pdf
// @Produce      application/zip
// @Param        sessionID  path  string  true  "Session ID"
// @Param        filename   path  string  true  "Output filename"
// @Success      200  {file}    file
// @Failure      404  {object}  errorResponse
// @Router       /api/sessions/{sessionID}/outputs/{filename} [get]
func (h *APIHandler) DownloadOutput(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	filename := chi.URLParam(r, "filename")
	out, ok := s.GetOutput(filename)
	if !ok {
		h.fail(w, r, s, http.StatusNotFound, i18n.FileNotFound)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.DownloadName))
	w.Header().Set("Content-Type", out.ContentType)
	http.ServeFile(w, r, out.Path)
	s.RemoveOutput(filename)
}

// JobStatus godoc
// @Summary      Job status
// @Description  Returns the state and progress of the latest job of the session
// @Tags         jobs
// @Produce      json
// @Param        sessionID  path  string  true  "Session ID"
// @Success      200  {object}  job.Event
// @Failure      404  {object}  errorResponse
// @Router       /api/sessions/{sessionID}/job [get]
func (h *APIHandler) JobStatus(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	j := s.Job()
	if j == nil {
		h.failErr(w, r, s, errNoJob)
		return
	}
	writeJSON(w, http.StatusOK, j.Snapshot())
}

// CancelJob godoc
// @Summary      Cancel the running job
// @Description  Cancels the running job. The request that started it fails with 409 and produces no output.
// @Tags         jobs
// @Produce      json
// @Param        sessionID  path  string  true  "Session ID"
// @Success      202  {object}  job.Event
// @Failure      404  {object}  errorResponse  "No running job"
// @Router       /api/sessions/{sessionID}/job [delete]
func (h *APIHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	j := s.Job()
	if j == nil || !j.Cancel() {
		h.failErr(w, r, s, errNoJob)
		return
	}
	h.Logger.WithField("session", s.ID).WithField("job", j.ID).Info("job cancel requested")
	writeJSON(w, http.StatusAccepted, j.Snapshot())
}

// JobEvents godoc
// @Summary      Stream job events
// @Description  Upgrades to a websocket and sends the latest job's events as JSON until the job finishes. A finished job sends its final event and closes the stream.
// @Tags         jobs
// @Param        sessionID  path  string  true  "Session ID"
// @Success      101
// @Failure      404  {object}  errorResponse
// @Router       /api/sessions/{sessionID}/job/events [get]
func (h *APIHandler) JobEvents(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	j := s.Job()
	if j == nil {
		h.failErr(w, r, s, errNoJob)
		return
	}
	websocket.Server{
		// Browsers must come from an allowed origin; clients that send no
		// Origin header are not subject to CORS and are accepted.
		Handshake: func(cfg *websocket.Config, req *http.Request) error {
			origin, err := websocket.Origin(cfg, req)
			if err != nil {
				return err
			}
			if origin != nil && !utils.OriginAllowed(req.Header.Get("Origin"), h.Config.AllowedOrigins) {
				h.Logger.WithField("origin", origin.String()).Warn("websocket origin rejected")
				return errOriginNotAllowed
			}
			cfg.Origin = origin
			return nil
		},
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			// Drop the server's write timeout on the hijacked connection.
			ws.SetDeadline(time.Time{})
			h.streamEvents(ws, j)
		},
	}.ServeHTTP(w, r)
}

func (h *APIHandler) streamEvents(ws *websocket.Conn, j *job.Job) {
	events, unsubscribe := j.Subscribe()
	defer unsubscribe()
	for ev := range events {
		if err := websocket.JSON.Send(ws, ev); err != nil {
			h.Logger.WithError(err).WithField("job", j.ID).Debug("event stream closed")
			return
		}
	}
}

package handlers

import (
	"encoding/json"
	"net/http"

	"go-pdftools/internal/i18n"
	"go-pdftools/internal/session"
)

// CreateSession godoc
// @Summary      Create a new session
// @Description  Creates a new session and returns its ID and settings
// @Tags         sessions
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "{ sessionId: string, settings: object }"
// @Router       /api/sessions/ [post]
func (h *APIHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.SessionManager.CreateSession()
	h.Logger.WithField("session", s.ID).Debug("session created")
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": s.ID,
		"settings":  s.Settings(),
	})
}

// DeleteSession godoc
// @Summary      Reset a session
// @Description  Cancels the running job and removes every uploaded file and output of the session
// @Tags         sessions
// @Param        sessionID  path  string  true  "Session ID"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /api/sessions/{sessionID} [delete]
func (h *APIHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if j := s.Job(); j != nil {
		j.Cancel()
	}
	h.SessionManager.DeleteSession(s.ID)
	w.WriteHeader(http.StatusNoContent)
}

// GetSettings godoc
// @Summary      Read session settings
// @Tags         sessions
// @Produce      json
// @Param        sessionID  path  string  true  "Session ID"
// @Success      200  {object}  session.Settings
// @Failure      404  {object}  errorResponse
// @Router       /api/sessions/{sessionID}/settings [get]
func (h *APIHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Settings())
}

// UpdateSettings godoc
// @Summary      Replace session settings
// @Description  Replaces the settings of the session. Supported languages are "id" and "en".
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string            true  "Session ID"
// @Param        settings   body  session.Settings  true  "New settings"
// @Success      200  {object}  session.Settings
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/sessions/{sessionID}/settings [put]
func (h *APIHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, s, http.StatusBadRequest, i18n.InvalidRequest)
		return
	}
	lang, valid := i18n.ParseLanguage(req.Language)
	if !valid {
		h.fail(w, r, s, http.StatusBadRequest, i18n.InvalidRequest)
		return
	}
	settings := session.Settings{Language: lang}
	s.SetSettings(settings)
	writeJSON(w, http.StatusOK, settings)
}

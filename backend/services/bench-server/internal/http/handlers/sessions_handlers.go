package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"cellbench/backend/services/bench-server/internal/redisstore"
	"cellbench/backend/services/bench-server/internal/repository"
)

// SessionsHandlers serves session history and the live active set.
type SessionsHandlers struct {
	sessions *repository.SessionRepository
	active   *redisstore.Store
	logger   *zap.Logger
}

// NewSessionsHandlers returns handler struct. active may be nil when
// redis is not configured.
func NewSessionsHandlers(sessions *repository.SessionRepository, active *redisstore.Store, logger *zap.Logger) *SessionsHandlers {
	return &SessionsHandlers{sessions: sessions, active: active, logger: logger}
}

// List handles GET /api/sessions.
func (h *SessionsHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	sessions, err := h.sessions.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list sessions failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// Get handles GET /api/sessions/{id}.
func (h *SessionsHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	session, err := h.sessions.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// ActiveAll handles GET /api/sessions/active/all from the redis-backed
// active set. Without redis the set is simply empty.
func (h *SessionsHandlers) ActiveAll(w http.ResponseWriter, r *http.Request) {
	if h.active == nil {
		writeJSON(w, http.StatusOK, []redisstore.ActiveSession{})
		return
	}
	sessions, err := h.active.All(r.Context())
	if err != nil {
		h.logger.Error("list active sessions failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	if sessions == nil {
		sessions = []redisstore.ActiveSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

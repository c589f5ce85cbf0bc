package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/padsync/padsync/pkg/middleware"
	"github.com/padsync/padsync/pkg/registry"
)

// Pagination bounds for session listing.
const (
	defaultListLimit = 50
	maxListLimit     = 100
)

type createSessionRequest struct {
	Language    registry.Language `json:"language,omitempty"`
	InitialCode *string           `json:"initial_code,omitempty"`
	Title       string            `json:"title,omitempty"`
}

type updateSessionRequest struct {
	Language *registry.Language `json:"language,omitempty"`
	Title    *string            `json:"title,omitempty"`
}

type sessionResponse struct {
	ID                string            `json:"id"`
	URL               string            `json:"url"`
	WebSocketURL      string            `json:"websocket_url"`
	Language          registry.Language `json:"language"`
	Title             string            `json:"title,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	Status            registry.Status   `json:"status"`
	ParticipantsCount int               `json:"participants_count"`
}

type sessionListResponse struct {
	Sessions []sessionResponse `json:"sessions"`
	Total    int               `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

type healthResponse struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	Version        string    `json:"version"`
	ActiveSessions int       `json:"active_sessions"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// toResponse fills in the connect URLs for a session snapshot.
func (s *Server) toResponse(sess registry.Session) sessionResponse {
	return sessionResponse{
		ID:                sess.ID,
		URL:               s.config.BaseURL + "/?session=" + sess.ID,
		WebSocketURL:      s.config.WSBaseURL + "/ws/" + sess.ID,
		Language:          sess.Language,
		Title:             sess.Title,
		CreatedAt:         sess.CreatedAt,
		Status:            sess.Status,
		ParticipantsCount: sess.Participants,
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid request body")
			return
		}
	}

	if req.Language != "" && !req.Language.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "unsupported language")
		return
	}
	if len(req.Title) > registry.MaxTitleLen {
		writeError(w, http.StatusUnprocessableEntity, "title too long")
		return
	}
	if req.InitialCode != nil && len(*req.InitialCode) > registry.MaxInitialCodeLen {
		writeError(w, http.StatusUnprocessableEntity, "initial_code too long")
		return
	}

	sess := s.relay.Sessions().Create(registry.CreateOptions{
		Language:    req.Language,
		InitialCode: req.InitialCode,
		Title:       req.Title,
	})
	middleware.RecordSessionCreate()

	writeJSON(w, http.StatusCreated, s.toResponse(sess))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	offset := 0

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListLimit {
			writeError(w, http.StatusUnprocessableEntity, "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusUnprocessableEntity, "offset must be non-negative")
			return
		}
		offset = n
	}

	page, total := s.relay.Sessions().List(limit, offset)
	resp := sessionListResponse{
		Sessions: make([]sessionResponse, 0, len(page)),
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	}
	for _, sess := range page {
		resp.Sessions = append(resp.Sessions, s.toResponse(sess))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	sess, ok := s.relay.Sessions().Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, s.toResponse(sess))
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	var req updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if req.Language != nil && !req.Language.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "unsupported language")
		return
	}
	if req.Title != nil && len(*req.Title) > registry.MaxTitleLen {
		writeError(w, http.StatusUnprocessableEntity, "title too long")
		return
	}

	sess, ok := s.relay.Sessions().Update(id, registry.UpdateOptions{
		Language: req.Language,
		Title:    req.Title,
	})
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, s.toResponse(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	if _, ok := s.relay.Sessions().Get(id); !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	// Close the room's connections first, then drop the session, so no
	// one observes a live connection to a deleted session.
	s.relay.OnSessionDelete(id)
	middleware.RecordSessionDelete()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRoomInfo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if _, ok := s.relay.Sessions().Get(id); !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, s.relay.RoomInfo(id))
}

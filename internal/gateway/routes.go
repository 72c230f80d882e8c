package gateway

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/deskflow/internal/domain"
	"github.com/soyeahso/deskflow/internal/orchestrator"
	"github.com/soyeahso/deskflow/internal/version"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// registerRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/healthz", s.handleHealth)
	mux.HandleFunc("POST /v1/chat/message", s.handleChatMessage)
	mux.HandleFunc("GET /v1/escalations", s.handleEscalationsList)
	mux.HandleFunc("POST /v1/escalations/{id}/status", s.handleEscalationStatus)
	mux.HandleFunc("PUT /v1/users/{id}/preferences", s.handlePreferences)
	mux.HandleFunc("GET /v1/engagements/feed", s.handleFeed)

	mux.HandleFunc("/", handleNotFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"version":       version.Version,
		"uptimeSeconds": int(time.Since(s.startedAt).Seconds()),
	})
}

type chatRequest struct {
	UserID    string         `json:"userId"`
	SessionID string         `json:"sessionId,omitempty"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type chatResponse struct {
	SessionID string `json:"sessionId"`
	domain.Response
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	resp := s.orch.ProcessMessage(r.Context(), orchestrator.Request{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Message:   req.Message,
		Metadata:  req.Metadata,
	})
	writeJSON(w, http.StatusOK, chatResponse{SessionID: req.SessionID, Response: resp})
}

func (s *Server) handleEscalationsList(w http.ResponseWriter, r *http.Request) {
	if s.escalations == nil {
		writeError(w, http.StatusServiceUnavailable, "escalation store not configured")
		return
	}

	q := r.URL.Query()
	status := q.Get("status")
	priority := domain.Priority(q.Get("priority"))
	if priority != "" && !domain.ValidPriority(priority) {
		writeError(w, http.StatusBadRequest, "invalid priority")
		return
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	records, err := s.escalations.List(r.Context(), status, priority, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("listing escalations failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if records == nil {
		records = []domain.EscalationRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"escalations": records})
}

type escalationStatusRequest struct {
	Status        string `json:"status"`
	AssignedAgent string `json:"assignedAgent,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

var escalationStatuses = []string{
	domain.EscalationPending,
	domain.EscalationInProgress,
	domain.EscalationResolved,
	domain.EscalationCancelled,
}

func (s *Server) handleEscalationStatus(w http.ResponseWriter, r *http.Request) {
	if s.escalations == nil {
		writeError(w, http.StatusServiceUnavailable, "escalation store not configured")
		return
	}

	var req escalationStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !slices.Contains(escalationStatuses, req.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	id := r.PathValue("id")
	rec, err := s.escalations.UpdateStatus(r.Context(), id, req.Status, req.AssignedAgent, req.Notes)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "escalation not found")
			return
		}
		s.log.Error().Err(err).Str("id", id).Msg("updating escalation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type preferencesRequest struct {
	Preferences map[string]string `json:"preferences"`
}

func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	if s.profiles == nil {
		writeError(w, http.StatusServiceUnavailable, "profile store not configured")
		return
	}

	var req preferencesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Preferences) == 0 {
		writeError(w, http.StatusBadRequest, "preferences are required")
		return
	}

	profile, err := s.profiles.UpdatePreferences(r.Context(), r.PathValue("id"), req.Preferences)
	if err != nil {
		s.log.Error().Err(err).Msg("updating preferences failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

// decodeBody parses a JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

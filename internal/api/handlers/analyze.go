package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/edulab-ai/progresscluster/internal/asset"
	"github.com/edulab-ai/progresscluster/internal/domain"
	"github.com/edulab-ai/progresscluster/internal/service"
)

type AnalyzeHandler struct {
	assigner    *service.Assigner
	assignments domain.AssignmentStore
}

func NewAnalyzeHandler(assigner *service.Assigner, assignments domain.AssignmentStore) *AnalyzeHandler {
	return &AnalyzeHandler{assigner: assigner, assignments: assignments}
}

type analyzeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type analyzeRequest struct {
	ParticipantID string           `json:"participant_id"`
	Messages      []analyzeMessage `json:"messages"`
	UserOnly      bool             `json:"user_only,omitempty"`
}

func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ParticipantID == "" {
		writeError(w, http.StatusBadRequest, "participant_id is required")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required")
		return
	}

	msgs := make([]domain.Message, 0, len(req.Messages))
	for i, m := range req.Messages {
		if req.UserOnly && domain.Role(m.Role) != domain.RoleUser {
			continue
		}
		msgs = append(msgs, domain.Message{
			Role:    domain.Role(m.Role),
			Content: m.Content,
			Index:   i,
		})
	}

	result, err := h.assigner.Analyze(r.Context(), req.ParticipantID, msgs)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoBundle), errors.Is(err, asset.ErrAssetMissing):
			writeError(w, http.StatusServiceUnavailable, "model assets unavailable")
		case errors.Is(err, asset.ErrDimensionMismatch):
			writeError(w, http.StatusInternalServerError, "model assets inconsistent")
		default:
			writeError(w, http.StatusInternalServerError, "analysis failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// History returns recent assignments for one participant.
func (h *AnalyzeHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.assignments == nil {
		writeError(w, http.StatusNotImplemented, "assignment history not enabled")
		return
	}
	participantID := chi.URLParam(r, "participantID")
	if participantID == "" {
		writeError(w, http.StatusBadRequest, "participant id is required")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	rowsOut, err := h.assignments.ListByParticipant(r.Context(), participantID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing assignments failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assignments": rowsOut})
}

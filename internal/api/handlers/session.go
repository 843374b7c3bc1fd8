package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sattva-labs/sattva/internal/api"
	"github.com/sattva-labs/sattva/internal/domain"
)

type SessionService interface {
	Create() string
	List() []domain.SessionInfo
	History(id string) []domain.ConversationTurn
	Clear(id string)
	Delete(id string)
}

type SessionHandler struct {
	svc SessionService
}

func NewSessionHandler(svc SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type SessionListResponse struct {
	ActiveSessions []string `json:"active_sessions"`
	TotalSessions  int      `json:"total_sessions"`
}

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type HistoryResponse struct {
	SessionID string        `json:"session_id"`
	History   []HistoryTurn `json:"history"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	infos := h.svc.List()

	ids := make([]string, len(infos))
	for i, info := range infos {
		ids[i] = info.ID
	}

	api.JSON(w, http.StatusOK, SessionListResponse{
		ActiveSessions: ids,
		TotalSessions:  len(ids),
	})
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := h.svc.Create()
	api.JSON(w, http.StatusCreated, CreateSessionResponse{SessionID: id})
}

func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "session id is required")
		return
	}

	turns := h.svc.History(id)
	history := make([]HistoryTurn, len(turns))
	for i, turn := range turns {
		history[i] = HistoryTurn{Role: string(turn.Role), Content: turn.Content}
	}

	api.JSON(w, http.StatusOK, HistoryResponse{SessionID: id, History: history})
}

func (h *SessionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "session id is required")
		return
	}

	h.svc.Clear(id)
	api.JSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("conversation %s cleared", id)})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "session id is required")
		return
	}

	// Deleting an unknown session is a no-op, not an error.
	h.svc.Delete(id)
	api.JSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("session %s deleted", id)})
}

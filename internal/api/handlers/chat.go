package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sattva-labs/sattva/internal/api"
	"github.com/sattva-labs/sattva/internal/service"
)

// DefaultSessionID is used when the client does not name a session,
// matching the wire contract of the chat frontend.
const DefaultSessionID = "default"

type ChatService interface {
	Chat(ctx context.Context, sessionID, message string) (*service.ChatResult, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type ChatResponse struct {
	Response  string   `json:"response"`
	SessionID string   `json:"session_id"`
	Sources   []string `json:"sources"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	result, err := h.svc.Chat(r.Context(), sessionID, req.Message)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	sources := result.Sources
	if sources == nil {
		sources = []string{}
	}

	api.JSON(w, http.StatusOK, ChatResponse{
		Response:  result.Answer,
		SessionID: result.SessionID,
		Sources:   sources,
	})
}

package handlers

import (
	"net/http"

	"skillswap-gateway/internal/services"
)

// ConversationHandler serves the messages screen
type ConversationHandler struct {
	conversations *services.ConversationService
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(conversations *services.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// SendMessageRequest is a new message
type SendMessageRequest struct {
	Content string `json:"content"`
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	convs, err := h.conversations.List(r.Context(), userID(r))
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": convs,
	})
}

// LastViewed handles GET /api/v1/conversations/last
func (h *ConversationHandler) LastViewed(w http.ResponseWriter, r *http.Request) {
	matchID, err := h.conversations.LastViewed(r.Context(), userID(r))
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"match_id": matchID,
	})
}

// Open handles POST /api/v1/conversations/{match_id}/open
func (h *ConversationHandler) Open(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathID(r, "match_id")
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	msgs, err := h.conversations.Open(r.Context(), userID(r), matchID)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"match_id": matchID,
		"messages": msgs,
	})
}

// Close handles POST /api/v1/conversations/close
func (h *ConversationHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.conversations.Close(r.Context(), userID(r))
	w.WriteHeader(http.StatusNoContent)
}

// Messages handles GET /api/v1/conversations/{match_id}/messages
func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathID(r, "match_id")
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	msgs, err := h.conversations.Messages(r.Context(), userID(r), matchID)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"match_id": matchID,
		"messages": msgs,
	})
}

// Send handles POST /api/v1/conversations/{match_id}/messages
func (h *ConversationHandler) Send(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathID(r, "match_id")
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	var req SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	msg, err := h.conversations.Send(r.Context(), userID(r), matchID, req.Content)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, msg)
}

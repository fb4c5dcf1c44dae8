package handlers

import (
	"context"
	"net/http"

	"skillswap-gateway/internal/apperr"
	"skillswap-gateway/internal/middleware"
	"skillswap-gateway/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Client message types
const (
	msgOpenConversation  = "open_conversation"
	msgCloseConversation = "close_conversation"
	msgRefresh           = "refresh"
	msgClearMatches      = "clear_matches"
	msgClearMessages     = "clear_messages"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub           *services.WSHub
	sessions      *services.SessionService
	feed          *services.FeedService
	conversations *services.ConversationService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *services.WSHub,
	sessions *services.SessionService,
	feed *services.FeedService,
	conversations *services.ConversationService,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		sessions:      sessions,
		feed:          feed,
		conversations: conversations,
	}
}

// HandleWebSocket handles GET /ws?token=...
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.ValidateWebSocketToken(r.Context(), r.URL.Query().Get("token"), h.sessions)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := h.hub.Register(userID, conn)
	ctx := r.Context()

	// The feed publishes only on change, so a new connection gets the current badges now.
	if counts, err := h.feed.Counts(ctx, userID); err == nil {
		client.Send(services.WSMessage{Type: services.EventCounts, Data: services.NewBadgeEvent(counts)})
	}

	log.Info().Int64("user_id", userID).Msg("WebSocket connection established")

	client.ReadPump(func(msg services.WSMessage) {
		if err := h.handleMessage(ctx, client, userID, msg); err != nil {
			log.Error().Err(err).Int64("user_id", userID).Str("type", msg.Type).Msg("Failed to handle message")
			client.Send(services.WSMessage{Type: services.EventError, Message: apperr.MessageOf(err)})
		}
	})

	// Nobody is left to receive message updates; the saved conversation is kept for the next visit.
	if !h.hub.IsOnline(userID) {
		h.feed.CloseConversation(userID)
	}
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(ctx context.Context, client *services.WSClient, userID int64, msg services.WSMessage) error {
	switch msg.Type {
	case msgOpenConversation:
		if msg.MatchID == nil {
			return apperr.InvalidArg("match_id is required")
		}
		msgs, err := h.conversations.Open(ctx, userID, *msg.MatchID)
		if err != nil {
			return err
		}
		client.Send(services.WSMessage{Type: services.EventMessages, MatchID: msg.MatchID, Data: msgs})
		return nil
	case msgCloseConversation:
		h.conversations.Close(ctx, userID)
		return nil
	case msgRefresh:
		h.feed.Refresh(userID)
		return nil
	case msgClearMatches:
		_, err := h.feed.ClearMatches(ctx, userID)
		return err
	case msgClearMessages:
		_, err := h.feed.ClearMessages(ctx, userID)
		return err
	default:
		return apperr.InvalidArg("unknown message type")
	}
}

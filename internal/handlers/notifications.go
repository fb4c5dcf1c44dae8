package handlers

import (
	"net/http"

	"skillswap-gateway/internal/notify"
	"skillswap-gateway/internal/services"
)

// NotificationHandler serves the unread badge counts
type NotificationHandler struct {
	feed *services.FeedService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(feed *services.FeedService) *NotificationHandler {
	return &NotificationHandler{feed: feed}
}

// Get handles GET /api/v1/notifications
func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.feed.Counts(r.Context(), userID(r)))
}

// ClearMatches handles POST /api/v1/notifications/matches/clear
func (h *NotificationHandler) ClearMatches(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.feed.ClearMatches(r.Context(), userID(r)))
}

// ClearMessages handles POST /api/v1/notifications/messages/clear
func (h *NotificationHandler) ClearMessages(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.feed.ClearMessages(r.Context(), userID(r)))
}

func (h *NotificationHandler) respond(w http.ResponseWriter, r *http.Request) func(notify.Counts, error) {
	return func(counts notify.Counts, err error) {
		if err != nil {
			respondAppError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, services.NewBadgeEvent(counts))
	}
}

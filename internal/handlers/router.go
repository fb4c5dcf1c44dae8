package handlers

import (
	"net/http"

	"skillswap-gateway/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// API groups the HTTP handlers of the gateway
type API struct {
	Auth          *AuthHandler
	Notifications *NotificationHandler
	Discover      *DiscoverHandler
	Conversations *ConversationHandler
	Profile       *ProfileHandler
	Photos        *PhotoHandler
	WebSocket     *WebSocketHandler
}

// NewRouter mounts the REST API under /api/v1, the WebSocket at /ws and a
// health check, wrapped in CORS for the given origins
func NewRouter(api API, auth middleware.Authenticator, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/health", Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/register", api.Auth.Register)
		r.Post("/auth/login", api.Auth.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(auth))

			r.Post("/auth/logout", api.Auth.Logout)
			r.Get("/me", api.Auth.Me)
			r.Put("/me", api.Auth.UpdateMe)
			r.Put("/me/push-token", api.Auth.SetPushToken)

			r.Get("/notifications", api.Notifications.Get)
			r.Post("/notifications/matches/clear", api.Notifications.ClearMatches)
			r.Post("/notifications/messages/clear", api.Notifications.ClearMessages)

			r.Get("/discover", api.Discover.Candidates)
			r.Post("/discover/swipes", api.Discover.Swipe)
			r.Get("/discover/stats", api.Discover.Stats)

			r.Get("/conversations", api.Conversations.List)
			r.Get("/conversations/last", api.Conversations.LastViewed)
			r.Post("/conversations/close", api.Conversations.Close)
			r.Post("/conversations/{match_id}/open", api.Conversations.Open)
			r.Get("/conversations/{match_id}/messages", api.Conversations.Messages)
			r.Post("/conversations/{match_id}/messages", api.Conversations.Send)

			r.Get("/profile", api.Profile.Get)
			r.Put("/profile", api.Profile.Save)
			r.Put("/profile/location", api.Profile.UpdateLocation)
			r.Post("/profile/{kind}", api.Profile.AddAttribute)
			r.Delete("/profile/{kind}/{id}", api.Profile.DeleteAttribute)
			r.Get("/users/{user_id}/profile", api.Profile.View)

			r.Post("/photos/upload-url", api.Photos.UploadURL)
			r.Post("/photos/complete", api.Photos.Complete)
			r.Post("/photos", api.Photos.Upload)
		})
	})

	r.Get("/ws", api.WebSocket.HandleWebSocket)

	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(r)
}

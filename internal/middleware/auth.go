package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"skillswap-gateway/internal/apperr"

	"github.com/rs/zerolog/log"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Authenticator resolves a bearer token to a signed-in user.
// *services.SessionService implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (int64, error)
}

// AuthMiddleware creates a middleware for JWT authentication
func AuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			userID, err := auth.Authenticate(r.Context(), parts[1])
			if err != nil {
				if apperr.CodeOf(err) != apperr.CodeUnauthenticated {
					log.Error().Err(err).Msg("Failed to authenticate request")
					respondError(w, "Authentication unavailable", http.StatusServiceUnavailable)
					return
				}
				respondError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns a context carrying the signed-in user
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// ValidateWebSocketToken authenticates the token passed as a WebSocket query parameter
func ValidateWebSocketToken(ctx context.Context, token string, auth Authenticator) (int64, error) {
	if token == "" {
		return 0, apperr.Unauthorized("token required")
	}
	return auth.Authenticate(ctx, token)
}

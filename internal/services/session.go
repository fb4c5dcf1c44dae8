package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"skillswap-gateway/internal/apperr"
	"skillswap-gateway/internal/models"
	"skillswap-gateway/internal/upstream"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultTokenTTL = 30 * 24 * time.Hour
	minPasswordLen  = 6
)

// SessionService handles sign-up, sign-in and the signed-in user's account
type SessionService struct {
	users     UserBackend
	sessions  SessionStore
	feed      *FeedService
	hub       *WSHub
	jwtSecret string
	tokenTTL  time.Duration
}

// NewSessionService creates a new session service
func NewSessionService(
	users UserBackend,
	sessions SessionStore,
	feed *FeedService,
	hub *WSHub,
	jwtSecret string,
	tokenTTL time.Duration,
) *SessionService {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &SessionService{
		users:     users,
		sessions:  sessions,
		feed:      feed,
		hub:       hub,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

// RegisterRequest represents a sign-up request
type RegisterRequest struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	University string `json:"university"`
	Password   string `json:"password"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Register creates an account and signs it in
func (s *SessionService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)

	if req.FirstName == "" || req.LastName == "" {
		return nil, apperr.InvalidArg("first_name and last_name are required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, apperr.InvalidArg("a valid email is required")
	}
	if len(req.Password) < minPasswordLen {
		return nil, apperr.InvalidArg(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}

	existing, err := s.users.FindUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperr.ErrUpstream(err)
	}
	if existing != nil {
		return nil, apperr.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, upstream.NewUser{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		University:   strings.TrimSpace(req.University),
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, apperr.ErrUpstream(err)
	}

	log.Info().Int64("user_id", user.ID).Msg("User registered")
	return s.signIn(ctx, user)
}

// Login verifies credentials and opens a session
func (s *SessionService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperr.InvalidArg("email and password are required")
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, apperr.ErrUpstream(err)
	}
	if user == nil || !checkPassword(user.PasswordHash, password) {
		return nil, apperr.ErrInvalidCredentials
	}

	return s.signIn(ctx, user)
}

// checkPassword accepts bcrypt hashes and, for accounts created before
// hashing, the stored plaintext
func checkPassword(stored, password string) bool {
	if stored == "" {
		return false
	}
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

func (s *SessionService) signIn(ctx context.Context, user *models.User) (*AuthResponse, error) {
	now := time.Now()
	sess := &models.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Upsert(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	token, expiresAt, err := s.GenerateJWT(user.ID, sess.ID)
	if err != nil {
		return nil, err
	}

	s.feed.Start(user.ID)

	log.Info().Int64("user_id", user.ID).Msg("User signed in")
	return &AuthResponse{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Logout ends the session: the session row goes first so no request can
// resume the feed, then the feed stops, badges are dropped and live
// connections are closed
func (s *SessionService) Logout(ctx context.Context, userID int64) error {
	if err := s.sessions.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.feed.Forget(ctx, userID)
	s.hub.CloseUser(userID)

	log.Info().Int64("user_id", userID).Msg("User signed out")
	return nil
}

// GenerateJWT generates a JWT token for a user session
func (s *SessionService) GenerateJWT(userID int64, sessionID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	claims := jwt.MapClaims{
		"user_id": userID,
		"sid":     sessionID,
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateJWT validates a JWT token and returns the user ID
func (s *SessionService) ValidateJWT(tokenString string) (int64, error) {
	userID, _, err := s.parseJWT(tokenString)
	return userID, err
}

func (s *SessionService) parseJWT(tokenString string) (int64, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return 0, "", apperr.Wrap(apperr.CodeUnauthenticated, "invalid token", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, "", apperr.ErrInvalidToken
	}

	// JSON numbers decode as float64
	raw, ok := claims["user_id"].(float64)
	if !ok || raw <= 0 {
		return 0, "", apperr.ErrInvalidToken
	}
	sid, _ := claims["sid"].(string)

	return int64(raw), sid, nil
}

// Authenticate validates a token and checks that its session is still the
// user's current one
func (s *SessionService) Authenticate(ctx context.Context, tokenString string) (int64, error) {
	userID, sid, err := s.parseJWT(tokenString)
	if err != nil {
		return 0, err
	}

	sess, err := s.sessions.GetByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if sid != sess.ID {
		return 0, apperr.ErrSessionNotFound
	}

	return userID, nil
}

// CurrentUser returns the signed-in user's account
func (s *SessionService) CurrentUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if upstream.IsNotFound(err) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.ErrUpstream(err)
	}
	return user, nil
}

// UpdateUserRequest represents an account update
type UpdateUserRequest struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	University string `json:"university"`
	Email      string `json:"email"`
}

// UpdateUser overwrites the non-empty fields of the signed-in user's account
func (s *SessionService) UpdateUser(ctx context.Context, userID int64, req UpdateUserRequest) (*models.User, error) {
	email := strings.TrimSpace(req.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, apperr.InvalidArg("a valid email is required")
		}
		other, err := s.users.FindUserByEmail(ctx, email)
		if err != nil {
			return nil, apperr.ErrUpstream(err)
		}
		if other != nil && other.ID != userID {
			return nil, apperr.ErrEmailTaken
		}
	}

	user, err := s.users.UpdateUser(ctx, userID, upstream.UserUpdate{
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		University: strings.TrimSpace(req.University),
		Email:      email,
	})
	if err != nil {
		if upstream.IsNotFound(err) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.ErrUpstream(err)
	}
	return user, nil
}

// SetPushToken registers or, with an empty token, removes the user's APNs device token
func (s *SessionService) SetPushToken(ctx context.Context, userID int64, pushToken string) error {
	var tok *string
	if t := strings.TrimSpace(pushToken); t != "" {
		tok = &t
	}
	if err := s.sessions.UpdatePushToken(ctx, userID, tok); err != nil {
		if errors.Is(err, apperr.ErrSessionNotFound) {
			return err
		}
		return fmt.Errorf("failed to update push token: %w", err)
	}
	return nil
}

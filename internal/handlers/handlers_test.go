package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"skillswap-gateway/internal/apperr"
	"skillswap-gateway/internal/models"
	"skillswap-gateway/internal/services"
	"skillswap-gateway/internal/upstream"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// restBackend is a minimal SkillSwap REST backend
type restBackend struct {
	mu      sync.Mutex
	nextID  int64
	users   []map[string]any
	matches []map[string]any
}

func (b *restBackend) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/users", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(b.users)
	})
	r.Post("/api/users", func(w http.ResponseWriter, r *http.Request) {
		var u map[string]any
		json.NewDecoder(r.Body).Decode(&u)
		b.mu.Lock()
		defer b.mu.Unlock()
		b.nextID++
		u["userId"] = b.nextID
		b.users = append(b.users, u)
		json.NewEncoder(w).Encode(u)
	})
	r.Get("/api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, u := range b.users {
			if idOf(u["userId"]) == chi.URLParam(r, "id") {
				json.NewEncoder(w).Encode(u)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/api/matches", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(b.matches)
	})
	r.Get("/api/matches/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, m := range b.matches {
			if idOf(m["matchId"]) == chi.URLParam(r, "id") {
				json.NewEncoder(w).Encode(m)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/api/messages/match/{id}/latest", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/api/messages/match/{id}", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "[]")
	})
	r.Put("/api/messages/{id}/read-all", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/api/profiles", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "[]")
	})
	r.Get("/api/swipes/user/{id}", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "[]")
	})
	for _, path := range []string{"/api/skills", "/api/interests", "/api/organizations", "/api/languages/user/{id}"} {
		r.Get(path, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "[]")
		})
	}
	r.Post("/api/swipes", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"message":"swipe table locked"}`)
	})
	return r
}

func (b *restBackend) addMatch(id, user1, user2 int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.matches = append(b.matches, map[string]any{
		"matchId": id,
		"user1":   map[string]any{"userId": user1},
		"user2":   map[string]any{"userId": user2},
	})
}

func idOf(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatInt(int64(n), 10)
	case int64:
		return strconv.FormatInt(n, 10)
	}
	return ""
}

// memSessions is an in-memory session store
type memSessions struct {
	mu       sync.Mutex
	sessions map[int64]*models.Session
}

func (m *memSessions) Upsert(ctx context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[s.UserID]; ok {
		s.ID = existing.ID
		return nil
	}
	cp := *s
	m.sessions[s.UserID] = &cp
	return nil
}

func (m *memSessions) GetByUserID(ctx context.Context, userID int64) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, apperr.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) DeleteByUserID(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

func (m *memSessions) UpdatePushToken(ctx context.Context, userID int64, pushToken *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return apperr.ErrSessionNotFound
	}
	s.PushToken = pushToken
	return nil
}

func (m *memSessions) SetLastConversation(ctx context.Context, userID int64, matchID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return apperr.ErrSessionNotFound
	}
	s.LastConversationID = matchID
	return nil
}

func (m *memSessions) ListActive(ctx context.Context) ([]*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Session
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out, nil
}

type testAPI struct {
	backend *restBackend
	feed    *services.FeedService
	url     string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	backend := &restBackend{nextID: 100}
	upstreamSrv := httptest.NewServer(backend.routes())
	t.Cleanup(upstreamSrv.Close)
	client := upstream.New(upstreamSrv.URL, 2*time.Second)

	sessions := &memSessions{sessions: make(map[int64]*models.Session)}
	hub := services.NewWSHub()
	feed := services.NewFeedService(client, nil, hub, nil, services.FeedConfig{
		NotifyInterval:        time.Hour,
		ConversationsInterval: time.Hour,
		MessagesInterval:      time.Hour,
	})
	sessionService := services.NewSessionService(client, sessions, feed, hub, "test-secret", time.Hour)
	discoverService := services.NewDiscoverService(client, feed, 50)
	conversationService := services.NewConversationService(client, sessions, feed)
	profileService := services.NewProfileService(client)

	router := NewRouter(API{
		Auth:          NewAuthHandler(sessionService, discoverService),
		Notifications: NewNotificationHandler(feed),
		Discover:      NewDiscoverHandler(discoverService),
		Conversations: NewConversationHandler(conversationService),
		Profile:       NewProfileHandler(profileService, discoverService),
		Photos:        NewPhotoHandler(services.NewPhotoService(nil, nil, profileService)),
		WebSocket:     NewWebSocketHandler(hub, sessionService, feed, conversationService),
	}, sessionService, []string{"*"})

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
		feed.Shutdown()
	})

	return &testAPI{backend: backend, feed: feed, url: srv.URL}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, a.url+path, r)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, data
}

func (a *testAPI) register(t *testing.T, first, email string) services.AuthResponse {
	t.Helper()
	status, body := a.do(t, http.MethodPost, "/api/v1/auth/register", "", services.RegisterRequest{
		FirstName: first,
		LastName:  "Test",
		Email:     email,
		Password:  "secret1",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var res services.AuthResponse
	require.NoError(t, json.Unmarshal(body, &res))
	return res
}

func TestAPI_Auth(t *testing.T) {
	api := newTestAPI(t)
	ada := api.register(t, "Ada", "ada@uni.edu")

	t.Run("me with token", func(t *testing.T) {
		status, body := api.do(t, http.MethodGet, "/api/v1/me", ada.Token, nil)
		require.Equal(t, http.StatusOK, status)
		var u models.User
		require.NoError(t, json.Unmarshal(body, &u))
		assert.Equal(t, "Ada", u.FirstName)
		assert.NotContains(t, string(body), "secret1")
	})

	t.Run("me without token", func(t *testing.T) {
		status, _ := api.do(t, http.MethodGet, "/api/v1/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("duplicate email", func(t *testing.T) {
		status, body := api.do(t, http.MethodPost, "/api/v1/auth/register", "", services.RegisterRequest{
			FirstName: "Ada", LastName: "Again", Email: "ADA@uni.edu", Password: "secret1",
		})
		assert.Equal(t, http.StatusConflict, status)
		assert.Contains(t, string(body), `"code":"ALREADY_EXISTS"`)
	})

	t.Run("login", func(t *testing.T) {
		status, _ := api.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Email: "ada@uni.edu", Password: "secret1"})
		assert.Equal(t, http.StatusOK, status)

		status, body := api.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Email: "ada@uni.edu", Password: "nope"})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Contains(t, string(body), `"code":"UNAUTHENTICATED"`)
	})

	t.Run("invalid body", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, api.url+"/api/v1/auth/login", strings.NewReader("{"))
		require.NoError(t, err)
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("logout ends the session", func(t *testing.T) {
		status, _ := api.do(t, http.MethodPost, "/api/v1/auth/logout", ada.Token, nil)
		assert.Equal(t, http.StatusNoContent, status)

		status, _ = api.do(t, http.MethodGet, "/api/v1/me", ada.Token, nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestAPI_Notifications(t *testing.T) {
	api := newTestAPI(t)
	ada := api.register(t, "Ada", "ada@uni.edu")

	status, body := api.do(t, http.MethodGet, "/api/v1/notifications", ada.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"unread_matches":0,"unread_messages":0,"total":0}`, string(body))

	status, body = api.do(t, http.MethodPost, "/api/v1/notifications/matches/clear", ada.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"unread_matches":0,"unread_messages":0,"total":0}`, string(body))
}

func TestAPI_Discover(t *testing.T) {
	api := newTestAPI(t)
	ada := api.register(t, "Ada", "ada@uni.edu")
	grace := api.register(t, "Grace", "grace@uni.edu")

	status, body := api.do(t, http.MethodGet, "/api/v1/discover", ada.Token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var deck struct {
		Candidates []struct {
			User models.User `json:"user"`
		} `json:"candidates"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(body, &deck))
	require.Equal(t, 1, deck.Total)
	assert.Equal(t, grace.User.ID, deck.Candidates[0].User.ID)

	t.Run("rejected swipe is reverted", func(t *testing.T) {
		status, body := api.do(t, http.MethodPost, "/api/v1/discover/swipes", ada.Token, SwipeRequest{SwipeeID: grace.User.ID, Like: true})
		assert.Equal(t, http.StatusBadGateway, status)
		assert.Contains(t, string(body), `"status":"reverted"`)
	})

	t.Run("card not in the deck", func(t *testing.T) {
		status, body := api.do(t, http.MethodPost, "/api/v1/discover/swipes", ada.Token, SwipeRequest{SwipeeID: 999, Like: true})
		assert.Equal(t, http.StatusPreconditionFailed, status)
		assert.Contains(t, string(body), `"code":"FAILED_PRECONDITION"`)
	})

	t.Run("missing swipee", func(t *testing.T) {
		status, _ := api.do(t, http.MethodPost, "/api/v1/discover/swipes", ada.Token, SwipeRequest{})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("invalid filter", func(t *testing.T) {
		status, _ := api.do(t, http.MethodGet, "/api/v1/discover?nearby=maybe", ada.Token, nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestAPI_Conversations(t *testing.T) {
	api := newTestAPI(t)
	ada := api.register(t, "Ada", "ada@uni.edu")
	grace := api.register(t, "Grace", "grace@uni.edu")
	api.backend.addMatch(500, 1, 2)
	api.backend.addMatch(501, ada.User.ID, grace.User.ID)

	t.Run("list", func(t *testing.T) {
		status, body := api.do(t, http.MethodGet, "/api/v1/conversations", ada.Token, nil)
		require.Equal(t, http.StatusOK, status)
		var res struct {
			Conversations []services.Conversation `json:"conversations"`
		}
		require.NoError(t, json.Unmarshal(body, &res))
		require.Len(t, res.Conversations, 1)
		assert.Equal(t, grace.User.ID, res.Conversations[0].OtherUserID)
	})

	t.Run("open and restore", func(t *testing.T) {
		status, _ := api.do(t, http.MethodPost, "/api/v1/conversations/501/open", ada.Token, nil)
		require.Equal(t, http.StatusOK, status)

		status, body := api.do(t, http.MethodGet, "/api/v1/conversations/last", ada.Token, nil)
		require.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"match_id":501}`, string(body))
	})

	t.Run("close forgets the conversation", func(t *testing.T) {
		status, _ := api.do(t, http.MethodPost, "/api/v1/conversations/501/open", ada.Token, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, int64(501), api.feed.OpenConversationID(ada.User.ID))

		status, _ = api.do(t, http.MethodPost, "/api/v1/conversations/close", ada.Token, nil)
		require.Equal(t, http.StatusNoContent, status)
		assert.Zero(t, api.feed.OpenConversationID(ada.User.ID))

		status, body := api.do(t, http.MethodGet, "/api/v1/conversations/last", ada.Token, nil)
		require.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"match_id":null}`, string(body))
	})

	t.Run("not a member", func(t *testing.T) {
		status, _ := api.do(t, http.MethodPost, "/api/v1/conversations/500/open", ada.Token, nil)
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("unknown match", func(t *testing.T) {
		status, _ := api.do(t, http.MethodGet, "/api/v1/conversations/999/messages", ada.Token, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("bad match id", func(t *testing.T) {
		status, _ := api.do(t, http.MethodGet, "/api/v1/conversations/abc/messages", ada.Token, nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("empty message", func(t *testing.T) {
		status, _ := api.do(t, http.MethodPost, "/api/v1/conversations/501/messages", ada.Token, SendMessageRequest{Content: "  "})
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestAPI_PhotosWithoutBucket(t *testing.T) {
	api := newTestAPI(t)
	ada := api.register(t, "Ada", "ada@uni.edu")

	status, _ := api.do(t, http.MethodPost, "/api/v1/photos/upload-url", ada.Token, services.UploadRequest{Filename: "me.jpg", ContentType: "image/jpeg"})
	assert.Equal(t, http.StatusPreconditionFailed, status)
}

func TestAPI_ProfileKinds(t *testing.T) {
	api := newTestAPI(t)
	ada := api.register(t, "Ada", "ada@uni.edu")

	status, _ := api.do(t, http.MethodPost, "/api/v1/profile/hobbies", ada.Token, services.AttributeInput{Name: "chess"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_WebSocket(t *testing.T) {
	api := newTestAPI(t)
	ada := api.register(t, "Ada", "ada@uni.edu")
	wsURL := "ws" + strings.TrimPrefix(api.url, "http") + "/ws"

	t.Run("rejects a missing token", func(t *testing.T) {
		_, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.Error(t, err)
		require.NotNil(t, res)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("sends counts and answers client messages", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+ada.Token, nil)
		require.NoError(t, err)
		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		msg := readEvent(t, conn)
		assert.Equal(t, services.EventCounts, msg.Type)

		require.NoError(t, conn.WriteJSON(map[string]any{"type": "bogus"}))
		msg = readEvent(t, conn)
		assert.Equal(t, services.EventError, msg.Type)
		assert.Equal(t, "unknown message type", msg.Message)

		require.NoError(t, conn.WriteJSON(map[string]any{"type": "open_conversation"}))
		msg = readEvent(t, conn)
		assert.Equal(t, services.EventError, msg.Type)
		assert.Equal(t, "match_id is required", msg.Message)
	})
}

func TestAPI_WebSocketDisconnect(t *testing.T) {
	api := newTestAPI(t)
	ada := api.register(t, "Ada", "ada@uni.edu")
	grace := api.register(t, "Grace", "grace@uni.edu")
	api.backend.addMatch(501, ada.User.ID, grace.User.ID)
	wsURL := "ws" + strings.TrimPrefix(api.url, "http") + "/ws?token=" + ada.Token

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	assert.Equal(t, services.EventCounts, readEvent(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "open_conversation", "match_id": 501}))
	for readEvent(t, conn).Type != services.EventMessages {
	}
	require.Equal(t, int64(501), api.feed.OpenConversationID(ada.User.ID))

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return api.feed.OpenConversationID(ada.User.ID) == 0
	}, 2*time.Second, 10*time.Millisecond)

	status, body := api.do(t, http.MethodGet, "/api/v1/conversations/last", ada.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"match_id":501}`, string(body))
}

func TestAPI_ViewProfile(t *testing.T) {
	api := newTestAPI(t)
	ada := api.register(t, "Ada", "ada@uni.edu")
	grace := api.register(t, "Grace", "grace@uni.edu")
	alan := api.register(t, "Alan", "alan@uni.edu")
	profilePath := func(id int64) string { return fmt.Sprintf("/api/v1/users/%d/profile", id) }

	t.Run("own profile", func(t *testing.T) {
		status, body := api.do(t, http.MethodGet, profilePath(ada.User.ID), ada.Token, nil)
		require.Equal(t, http.StatusOK, status, string(body))
		assert.Contains(t, string(body), `"Ada"`)
	})

	t.Run("hidden until the card is dealt", func(t *testing.T) {
		status, body := api.do(t, http.MethodGet, profilePath(grace.User.ID), ada.Token, nil)
		assert.Equal(t, http.StatusForbidden, status)
		assert.Contains(t, string(body), `"code":"PERMISSION_DENIED"`)

		status, _ = api.do(t, http.MethodGet, "/api/v1/discover", ada.Token, nil)
		require.Equal(t, http.StatusOK, status)

		status, body = api.do(t, http.MethodGet, profilePath(grace.User.ID), ada.Token, nil)
		require.Equal(t, http.StatusOK, status, string(body))
		assert.Contains(t, string(body), `"Grace"`)
	})

	t.Run("match partner", func(t *testing.T) {
		status, _ := api.do(t, http.MethodGet, profilePath(ada.User.ID), alan.Token, nil)
		assert.Equal(t, http.StatusForbidden, status)

		api.backend.addMatch(600, alan.User.ID, ada.User.ID)
		status, body := api.do(t, http.MethodGet, profilePath(ada.User.ID), alan.Token, nil)
		require.Equal(t, http.StatusOK, status, string(body))
		assert.Contains(t, string(body), `"Ada"`)
	})

	t.Run("bad user id", func(t *testing.T) {
		status, _ := api.do(t, http.MethodGet, "/api/v1/users/abc/profile", ada.Token, nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

// readEvent returns the next event, skipping conversation list pushes from the poller
func readEvent(t *testing.T, conn *websocket.Conn) services.WSMessage {
	t.Helper()
	for {
		var msg services.WSMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type != services.EventConversations {
			return msg
		}
	}
}

func TestParseFilter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/discover?years=Junior,%20Senior&years=Freshman&nearby=1&max_distance_km=12.5", nil)
	f, err := parseFilter(req)
	require.NoError(t, err)
	assert.Equal(t, []string{"Junior", "Senior", "Freshman"}, f.Years)
	assert.True(t, f.NearbyOnly)
	assert.Equal(t, 12.5, f.MaxDistanceKm)

	req = httptest.NewRequest(http.MethodGet, "/discover?max_distance_km=-1", nil)
	_, err = parseFilter(req)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))

	req = httptest.NewRequest(http.MethodGet, "/discover", nil)
	f, err = parseFilter(req)
	require.NoError(t, err)
	assert.Empty(t, f.Years)
	assert.False(t, f.NearbyOnly)
}

func TestStatusOf(t *testing.T) {
	tests := map[apperr.Code]int{
		apperr.CodeInvalidArgument:    http.StatusBadRequest,
		apperr.CodeNotFound:           http.StatusNotFound,
		apperr.CodeAlreadyExists:      http.StatusConflict,
		apperr.CodePermissionDenied:   http.StatusForbidden,
		apperr.CodeUnauthenticated:    http.StatusUnauthorized,
		apperr.CodeFailedPrecondition: http.StatusPreconditionFailed,
		apperr.CodeUnavailable:        http.StatusBadGateway,
		apperr.CodeUnknown:            http.StatusInternalServerError,
	}
	for code, want := range tests {
		t.Run(string(code), func(t *testing.T) {
			assert.Equal(t, want, statusOf(code))
		})
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

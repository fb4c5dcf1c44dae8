package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"skillswap-gateway/internal/apperr"
	"skillswap-gateway/internal/models"
	"skillswap-gateway/internal/notify"
	"skillswap-gateway/internal/upstream"
)

func notFound(path string) error {
	return &upstream.APIError{StatusCode: http.StatusNotFound, Method: http.MethodGet, Path: path}
}

// fakeBackend is an in-memory SkillSwap backend
type fakeBackend struct {
	mu sync.Mutex

	nextID        int64
	users         []*models.User
	profiles      []*models.Profile
	swipes        []*models.Swipe
	matches       []*models.Match
	messages      map[int64][]*models.Message
	photos        map[int64][]*models.Photo
	skills        []*models.Skill
	interests     []*models.Interest
	organizations []*models.Organization
	languages     []*models.Language

	failMatches error
	failSwipe   error
	failMarkAll error
	markedRead  []int64
	markedOne   []int64
	uploaded    map[string]string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		nextID:   1000,
		messages: make(map[int64][]*models.Message),
		photos:   make(map[int64][]*models.Photo),
		uploaded: make(map[string]string),
	}
}

func (b *fakeBackend) id() int64 {
	b.nextID++
	return b.nextID
}

func (b *fakeBackend) addUser(u *models.User) *models.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users = append(b.users, u)
	return u
}

func (b *fakeBackend) addProfile(p *models.Profile) *models.Profile {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.profiles = append(b.profiles, p)
	return p
}

func (b *fakeBackend) addMatch(id, user1, user2 int64) *models.Match {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := &models.Match{ID: id, User1ID: user1, User2ID: user2, CreatedAt: time.Now()}
	b.matches = append(b.matches, m)
	return m
}

func (b *fakeBackend) addMessage(matchID, senderID int64, content string, sentAt time.Time, read bool) *models.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := &models.Message{ID: b.id(), MatchID: matchID, SenderID: senderID, Content: content, SentAt: sentAt, IsRead: read}
	b.messages[matchID] = append(b.messages[matchID], m)
	return m
}

func (b *fakeBackend) setFailMatches(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failMatches = err
}

func (b *fakeBackend) GetUser(ctx context.Context, id int64) (*models.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound("/api/users")
}

func (b *fakeBackend) ListUsers(ctx context.Context) ([]*models.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*models.User(nil), b.users...), nil
}

func (b *fakeBackend) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return u, nil
		}
	}
	return nil, nil
}

func (b *fakeBackend) CreateUser(ctx context.Context, u upstream.NewUser) (*models.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	user := &models.User{
		ID:           b.id(),
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		University:   u.University,
		PasswordHash: u.PasswordHash,
	}
	b.users = append(b.users, user)
	return user, nil
}

func (b *fakeBackend) UpdateUser(ctx context.Context, id int64, u upstream.UserUpdate) (*models.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, user := range b.users {
		if user.ID != id {
			continue
		}
		if u.FirstName != "" {
			user.FirstName = u.FirstName
		}
		if u.LastName != "" {
			user.LastName = u.LastName
		}
		if u.University != "" {
			user.University = u.University
		}
		if u.Email != "" {
			user.Email = u.Email
		}
		return user, nil
	}
	return nil, notFound("/api/users")
}

func (b *fakeBackend) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*models.Profile(nil), b.profiles...), nil
}

func (b *fakeBackend) ProfileForUser(ctx context.Context, userID int64) (*models.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.profiles {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, nil
}

func (b *fakeBackend) CreateProfile(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := *p
	cp.ID = b.id()
	b.profiles = append(b.profiles, &cp)
	return &cp, nil
}

func (b *fakeBackend) UpdateProfile(ctx context.Context, id int64, p *models.Profile) (*models.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, existing := range b.profiles {
		if existing.ID == id {
			cp := *p
			cp.ID = id
			b.profiles[i] = &cp
			return &cp, nil
		}
	}
	return nil, notFound("/api/profiles")
}

func (b *fakeBackend) UpdateProfileLocation(ctx context.Context, id int64, loc upstream.Location) (*models.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.profiles {
		if p.ID == id {
			lat, lon := loc.Latitude, loc.Longitude
			p.Latitude, p.Longitude = &lat, &lon
			p.Location = loc.Location
			p.ShowLocation = loc.ShowLocation
			return p, nil
		}
	}
	return nil, notFound("/api/profiles")
}

func (b *fakeBackend) SwipesByUser(ctx context.Context, userID int64) ([]*models.Swipe, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*models.Swipe
	for _, s := range b.swipes {
		if s.SwiperID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

// CreateSwipe creates a match on a mutual like, like the real backend
func (b *fakeBackend) CreateSwipe(ctx context.Context, swiperID, swipeeID int64, isLike bool) (*models.Swipe, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failSwipe != nil {
		return nil, b.failSwipe
	}
	s := &models.Swipe{ID: b.id(), SwiperID: swiperID, SwipeeID: swipeeID, IsLike: isLike}
	b.swipes = append(b.swipes, s)
	if isLike {
		for _, other := range b.swipes {
			if other.SwiperID == swipeeID && other.SwipeeID == swiperID && other.IsLike {
				b.matches = append(b.matches, &models.Match{ID: b.id(), User1ID: swipeeID, User2ID: swiperID})
				break
			}
		}
	}
	return s, nil
}

func (b *fakeBackend) MatchesForUser(ctx context.Context, userID int64) ([]*models.Match, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failMatches != nil {
		return nil, b.failMatches
	}
	var out []*models.Match
	for _, m := range b.matches {
		if m.Involves(userID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (b *fakeBackend) GetMatch(ctx context.Context, id int64) (*models.Match, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.matches {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, notFound("/api/matches")
}

func (b *fakeBackend) LatestMessage(ctx context.Context, matchID int64) (*models.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	msgs := b.messages[matchID]
	if len(msgs) == 0 {
		return nil, nil
	}
	cp := *msgs[len(msgs)-1]
	return &cp, nil
}

func (b *fakeBackend) MessagesByMatch(ctx context.Context, matchID int64) ([]*models.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*models.Message(nil), b.messages[matchID]...), nil
}

func (b *fakeBackend) SendMessage(ctx context.Context, matchID, senderID int64, content string) (*models.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := &models.Message{ID: b.id(), MatchID: matchID, SenderID: senderID, Content: content, SentAt: time.Now()}
	b.messages[matchID] = append(b.messages[matchID], m)
	return m, nil
}

func (b *fakeBackend) MarkAllRead(ctx context.Context, matchID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failMarkAll != nil {
		return b.failMarkAll
	}
	for _, m := range b.messages[matchID] {
		m.IsRead = true
	}
	b.markedRead = append(b.markedRead, matchID)
	return nil
}

func (b *fakeBackend) MarkRead(ctx context.Context, messageID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, msgs := range b.messages {
		for _, m := range msgs {
			if m.ID == messageID {
				m.IsRead = true
			}
		}
	}
	b.markedOne = append(b.markedOne, messageID)
	return nil
}

func (b *fakeBackend) PhotosByProfile(ctx context.Context, profileID int64) ([]*models.Photo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*models.Photo(nil), b.photos[profileID]...), nil
}

func (b *fakeBackend) PrimaryPhotoURL(ctx context.Context, profileID int64) (string, error) {
	photos, _ := b.PhotosByProfile(ctx, profileID)
	if p := models.PrimaryPhoto(photos); p != nil {
		return p.URL, nil
	}
	return "", nil
}

func (b *fakeBackend) UploadPhoto(ctx context.Context, profileID int64, isPrimary bool, filename string, r io.Reader) (*models.Photo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p := &models.Photo{ID: b.id(), ProfileID: profileID, URL: "http://backend/uploads/" + filename, IsPrimary: isPrimary}
	b.photos[profileID] = append(b.photos[profileID], p)
	b.uploaded[filename] = string(data)
	return p, nil
}

func (b *fakeBackend) SkillsForUser(ctx context.Context, userID int64) ([]*models.Skill, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*models.Skill
	for _, s := range b.skills {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (b *fakeBackend) CreateSkill(ctx context.Context, s *models.Skill) (*models.Skill, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := *s
	cp.ID = b.id()
	b.skills = append(b.skills, &cp)
	return &cp, nil
}

func (b *fakeBackend) DeleteSkill(ctx context.Context, id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.skills {
		if s.ID == id {
			b.skills = append(b.skills[:i], b.skills[i+1:]...)
			return nil
		}
	}
	return notFound("/api/skills")
}

func (b *fakeBackend) InterestsForUser(ctx context.Context, userID int64) ([]*models.Interest, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*models.Interest
	for _, in := range b.interests {
		if in.UserID == userID {
			out = append(out, in)
		}
	}
	return out, nil
}

func (b *fakeBackend) CreateInterest(ctx context.Context, in *models.Interest) (*models.Interest, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := *in
	cp.ID = b.id()
	b.interests = append(b.interests, &cp)
	return &cp, nil
}

func (b *fakeBackend) DeleteInterest(ctx context.Context, id int64) error {
	return nil
}

func (b *fakeBackend) OrganizationsForUser(ctx context.Context, userID int64) ([]*models.Organization, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*models.Organization
	for _, o := range b.organizations {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (b *fakeBackend) CreateOrganization(ctx context.Context, o *models.Organization) (*models.Organization, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := *o
	cp.ID = b.id()
	b.organizations = append(b.organizations, &cp)
	return &cp, nil
}

func (b *fakeBackend) DeleteOrganization(ctx context.Context, id int64) error {
	return nil
}

func (b *fakeBackend) LanguagesForUser(ctx context.Context, userID int64) ([]*models.Language, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*models.Language
	for _, l := range b.languages {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (b *fakeBackend) CreateLanguage(ctx context.Context, l *models.Language) (*models.Language, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := *l
	cp.ID = b.id()
	b.languages = append(b.languages, &cp)
	return &cp, nil
}

func (b *fakeBackend) DeleteLanguage(ctx context.Context, id int64) error {
	return nil
}

// fakeSessions is an in-memory SessionStore
type fakeSessions struct {
	mu       sync.Mutex
	sessions map[int64]*models.Session
	onDelete func(userID int64)
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[int64]*models.Session)}
}

func (f *fakeSessions) Upsert(ctx context.Context, s *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.sessions[s.UserID]; ok {
		s.ID = existing.ID
		s.CreatedAt = existing.CreatedAt
		existing.Email = s.Email
		return nil
	}
	cp := *s
	f.sessions[s.UserID] = &cp
	return nil
}

func (f *fakeSessions) GetByUserID(ctx context.Context, userID int64) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[userID]
	if !ok {
		return nil, apperr.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) DeleteByUserID(ctx context.Context, userID int64) error {
	f.mu.Lock()
	delete(f.sessions, userID)
	hook := f.onDelete
	f.mu.Unlock()

	if hook != nil {
		hook(userID)
	}
	return nil
}

func (f *fakeSessions) UpdatePushToken(ctx context.Context, userID int64, pushToken *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[userID]
	if !ok {
		return apperr.ErrSessionNotFound
	}
	s.PushToken = pushToken
	return nil
}

func (f *fakeSessions) SetLastConversation(ctx context.Context, userID int64, matchID *int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[userID]
	if !ok {
		return apperr.ErrSessionNotFound
	}
	s.LastConversationID = matchID
	return nil
}

func (f *fakeSessions) ListActive(ctx context.Context) ([]*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Session
	for _, s := range f.sessions {
		out = append(out, s)
	}
	return out, nil
}

func newSession(userID int64) *models.Session {
	return &models.Session{
		ID:        fmt.Sprintf("session-%d", userID),
		UserID:    userID,
		Email:     fmt.Sprintf("user%d@uni.edu", userID),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// fakeBadges is an in-memory BadgeStore
type fakeBadges struct {
	mu     sync.Mutex
	states map[int64]notify.State
}

func newFakeBadges() *fakeBadges {
	return &fakeBadges{states: make(map[int64]notify.State)}
}

func (f *fakeBadges) Get(ctx context.Context, userID int64) (*notify.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.states[userID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeBadges) Save(ctx context.Context, userID int64, s notify.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[userID] = s
	return nil
}

func (f *fakeBadges) Delete(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, userID)
	return nil
}

// fakeUploads is an in-memory UploadStore
type fakeUploads struct {
	mu      sync.Mutex
	uploads map[string]*models.StagedUpload
}

func newFakeUploads() *fakeUploads {
	return &fakeUploads{uploads: make(map[string]*models.StagedUpload)}
}

func (f *fakeUploads) Create(ctx context.Context, u *models.StagedUpload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.uploads[u.Key] = &cp
	return nil
}

func (f *fakeUploads) GetByKey(ctx context.Context, key string) (*models.StagedUpload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.uploads[key]
	if !ok {
		return nil, apperr.ErrUploadNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUploads) MarkCompleted(ctx context.Context, key string, photoID int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.uploads[key]
	if !ok || u.CompletedAt != nil {
		return apperr.ErrUploadCompleted
	}
	u.PhotoID = &photoID
	u.CompletedAt = &at
	return nil
}

// fakePublisher records feed events
type fakePublisher struct {
	mu     sync.Mutex
	online map[int64]bool
	events map[int64][]WSMessage
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{
		online: make(map[int64]bool),
		events: make(map[int64][]WSMessage),
	}
}

func (p *fakePublisher) Publish(userID int64, message WSMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[userID] = append(p.events[userID], message)
}

func (p *fakePublisher) IsOnline(userID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID]
}

func (p *fakePublisher) setOnline(userID int64, online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID] = online
}

func (p *fakePublisher) ofType(userID int64, typ string) []WSMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []WSMessage
	for _, e := range p.events[userID] {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// fakeNotifier records push requests
type fakeNotifier struct {
	mu      sync.Mutex
	updates map[int64][]notify.Update
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{updates: make(map[int64][]notify.Update)}
}

func (n *fakeNotifier) NotifyBadge(ctx context.Context, userID int64, u notify.Update) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates[userID] = append(n.updates[userID], u)
	return nil
}

func (n *fakeNotifier) count(userID int64) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.updates[userID])
}

var errBackendDown = errors.New("backend down")

// testFeed builds a feed service whose tickers never fire during a test
func testFeed(backend MatchBackend, badges BadgeStore, pub Publisher, notifier BadgeNotifier) *FeedService {
	return NewFeedService(backend, badges, pub, notifier, FeedConfig{
		NotifyInterval:        time.Hour,
		ConversationsInterval: time.Hour,
		MessagesInterval:      time.Hour,
	})
}

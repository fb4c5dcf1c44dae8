package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"skillswap-gateway/internal/apperr"
	"skillswap-gateway/internal/models"
	"skillswap-gateway/internal/notify"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const defaultFetchConcurrency = 8

// FeedConfig sets the poll cadence of every user feed
type FeedConfig struct {
	NotifyInterval        time.Duration
	ConversationsInterval time.Duration
	MessagesInterval      time.Duration
	// Concurrency caps the latest-message requests of one poll.
	Concurrency int
}

// Publisher delivers feed events to a user's live connections
type Publisher interface {
	Publish(userID int64, message WSMessage)
	IsOnline(userID int64) bool
}

// BadgeNotifier alerts a user that is not connected
type BadgeNotifier interface {
	NotifyBadge(ctx context.Context, userID int64, u notify.Update) error
}

// BadgeEvent is the payload of a feed.counts event
type BadgeEvent struct {
	notify.Counts
	Total int `json:"total"`
}

// NewBadgeEvent builds the feed.counts payload for c
func NewBadgeEvent(c notify.Counts) BadgeEvent {
	return BadgeEvent{Counts: c, Total: c.Total()}
}

// NewMatchesEvent is the payload of a feed.new_matches event
type NewMatchesEvent struct {
	Count   int    `json:"count"`
	Message string `json:"message"`
}

func newMatchesEvent(n int) NewMatchesEvent {
	if n == 1 {
		return NewMatchesEvent{Count: 1, Message: "You have a new match!"}
	}
	return NewMatchesEvent{Count: n, Message: fmt.Sprintf("You have %d new matches!", n)}
}

// FeedService runs one poller per signed-in user. Each poll fetches the
// user's matches and their latest messages once, feeds the notification
// counter and publishes the badge counts and conversation list to every
// connection of the user.
type FeedService struct {
	backend   MatchBackend
	badges    BadgeStore
	publisher Publisher
	notifier  BadgeNotifier
	cfg       FeedConfig

	mu    sync.Mutex
	feeds map[int64]*userFeed
	wg    sync.WaitGroup
}

type userFeed struct {
	userID  int64
	counter *notify.Counter
	cancel  context.CancelFunc
	refresh chan struct{}
	ready   chan struct{}
	done    chan struct{}

	mu        sync.Mutex
	openMatch int64
}

func (f *userFeed) openConversation() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.openMatch
}

func (f *userFeed) setOpenConversation(matchID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openMatch = matchID
}

// feedSnapshot is the result of one poll
type feedSnapshot struct {
	matches []*models.Match
	latest  []*models.Message
}

func (s *feedSnapshot) notify(userID int64) notify.Snapshot {
	return notify.Snapshot{
		MatchCount:          len(s.matches),
		UnreadConversations: notify.CountUnread(userID, s.latest),
	}
}

// NewFeedService creates a new feed service. badges and notifier may be nil.
func NewFeedService(
	backend MatchBackend,
	badges BadgeStore,
	publisher Publisher,
	notifier BadgeNotifier,
	cfg FeedConfig,
) *FeedService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultFetchConcurrency
	}
	if cfg.NotifyInterval <= 0 {
		cfg.NotifyInterval = 20 * time.Second
	}
	if cfg.ConversationsInterval <= 0 {
		cfg.ConversationsInterval = 15 * time.Second
	}
	if cfg.MessagesInterval <= 0 {
		cfg.MessagesInterval = 5 * time.Second
	}
	return &FeedService{
		backend:   backend,
		badges:    badges,
		publisher: publisher,
		notifier:  notifier,
		cfg:       cfg,
		feeds:     make(map[int64]*userFeed),
	}
}

// Start begins a new session feed for a user. Saved badges are discarded and
// the counters are initialized from the current backend state. A feed that is
// already running is left alone.
func (s *FeedService) Start(userID int64) {
	s.attach(userID, true)
}

// Resume restarts the feed of an existing session, keeping saved badges
func (s *FeedService) Resume(userID int64) {
	s.attach(userID, false)
}

// ResumeSessions restarts the feed of every stored session
func (s *FeedService) ResumeSessions(ctx context.Context, store SessionStore) error {
	sessions, err := store.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		s.Resume(sess.UserID)
	}
	log.Info().Int("sessions", len(sessions)).Msg("Resumed user feeds")
	return nil
}

// Stop ends a user's feed and waits for its poller to exit
func (s *FeedService) Stop(userID int64) {
	s.mu.Lock()
	f, ok := s.feeds[userID]
	delete(s.feeds, userID)
	s.mu.Unlock()

	if !ok {
		return
	}
	f.cancel()
	<-f.done
}

// Forget stops a user's feed and drops its saved badges, as on sign-out
func (s *FeedService) Forget(ctx context.Context, userID int64) {
	s.Stop(userID)
	if s.badges == nil {
		return
	}
	if err := s.badges.Delete(ctx, userID); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to delete badges")
	}
}

// Shutdown stops every feed
func (s *FeedService) Shutdown() {
	s.mu.Lock()
	for userID, f := range s.feeds {
		f.cancel()
		delete(s.feeds, userID)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// Running reports whether a user's feed is active
func (s *FeedService) Running(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.feeds[userID]
	return ok
}

// Refresh asks a user's poller for an immediate poll
func (s *FeedService) Refresh(userID int64) {
	s.mu.Lock()
	f, ok := s.feeds[userID]
	s.mu.Unlock()

	if !ok {
		return
	}
	select {
	case f.refresh <- struct{}{}:
	default:
	}
}

// Counts returns a user's current badge values
func (s *FeedService) Counts(ctx context.Context, userID int64) (notify.Counts, error) {
	f, err := s.ensure(ctx, userID)
	if err != nil {
		return notify.Counts{}, err
	}
	return f.counter.Counts(), nil
}

// ClearMatches dismisses the pending new-match badge of a user
func (s *FeedService) ClearMatches(ctx context.Context, userID int64) (notify.Counts, error) {
	f, err := s.ensure(ctx, userID)
	if err != nil {
		return notify.Counts{}, err
	}

	snap, err := s.fetch(ctx, userID)
	if err != nil {
		return notify.Counts{}, apperr.ErrUpstream(err)
	}

	counts := f.counter.ClearMatches(snap.notify(userID))
	s.save(ctx, f)
	s.publisher.Publish(userID, WSMessage{Type: EventCounts, Data: NewBadgeEvent(counts)})

	log.Info().Int64("user_id", userID).Msg("Match notifications cleared")
	return counts, nil
}

// ClearMessages re-syncs a user's message badge with the backend
func (s *FeedService) ClearMessages(ctx context.Context, userID int64) (notify.Counts, error) {
	f, err := s.ensure(ctx, userID)
	if err != nil {
		return notify.Counts{}, err
	}

	snap, err := s.fetch(ctx, userID)
	if err != nil {
		return notify.Counts{}, apperr.ErrUpstream(err)
	}

	counts := f.counter.ClearMessages(snap.notify(userID))
	s.save(ctx, f)
	s.publisher.Publish(userID, WSMessage{Type: EventCounts, Data: NewBadgeEvent(counts)})
	return counts, nil
}

// OpenConversation switches a user's feed to polling one conversation's messages
func (s *FeedService) OpenConversation(ctx context.Context, userID, matchID int64) error {
	f, err := s.ensure(ctx, userID)
	if err != nil {
		return err
	}
	f.setOpenConversation(matchID)
	return nil
}

// CloseConversation switches a user's feed back to polling the conversation list
func (s *FeedService) CloseConversation(userID int64) {
	s.mu.Lock()
	f, ok := s.feeds[userID]
	s.mu.Unlock()

	if ok {
		f.setOpenConversation(0)
	}
}

// OpenConversationID returns the conversation a user's feed is polling, 0 for none
func (s *FeedService) OpenConversationID(userID int64) int64 {
	s.mu.Lock()
	f, ok := s.feeds[userID]
	s.mu.Unlock()

	if !ok {
		return 0
	}
	return f.openConversation()
}

func (s *FeedService) attach(userID int64, fresh bool) *userFeed {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.feeds[userID]; ok {
		return f
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := &userFeed{
		userID:  userID,
		counter: notify.NewCounter(),
		cancel:  cancel,
		refresh: make(chan struct{}, 1),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.feeds[userID] = f

	s.wg.Add(1)
	go s.run(ctx, f, fresh)
	return f
}

// ensure returns a user's running feed, resuming it when needed, once its
// counters are initialized
func (s *FeedService) ensure(ctx context.Context, userID int64) (*userFeed, error) {
	f := s.attach(userID, false)
	select {
	case <-f.ready:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *FeedService) run(ctx context.Context, f *userFeed, fresh bool) {
	defer s.wg.Done()
	defer close(f.done)

	s.initialize(ctx, f, fresh)
	close(f.ready)

	notifyTicker := time.NewTicker(s.cfg.NotifyInterval)
	conversationsTicker := time.NewTicker(s.cfg.ConversationsInterval)
	messagesTicker := time.NewTicker(s.cfg.MessagesInterval)
	defer notifyTicker.Stop()
	defer conversationsTicker.Stop()
	defer messagesTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Int64("user_id", f.userID).Msg("Feed stopped")
			return
		case <-notifyTicker.C:
			s.poll(ctx, f)
		case <-f.refresh:
			s.poll(ctx, f)
		case <-conversationsTicker.C:
			if f.openConversation() == 0 {
				s.poll(ctx, f)
			}
		case <-messagesTicker.C:
			if matchID := f.openConversation(); matchID != 0 {
				s.publishMessages(ctx, f.userID, matchID)
			}
		}
	}
}

// initialize arms the counter. A resumed feed restores its saved state; a
// fresh one, or one without saved state, takes the current backend state as
// its baseline. When that fetch fails the counter stays unarmed and the first
// successful poll becomes the baseline.
func (s *FeedService) initialize(ctx context.Context, f *userFeed, fresh bool) {
	if s.badges != nil {
		if fresh {
			if err := s.badges.Delete(ctx, f.userID); err != nil {
				log.Warn().Err(err).Int64("user_id", f.userID).Msg("Failed to discard saved badges")
			}
		} else {
			state, err := s.badges.Get(ctx, f.userID)
			if err != nil {
				log.Warn().Err(err).Int64("user_id", f.userID).Msg("Failed to load saved badges")
			}
			if state != nil && state.Armed {
				f.counter.Restore(*state)
				log.Debug().Int64("user_id", f.userID).Msg("Feed resumed from saved badges")
				return
			}
		}
	}

	snap, err := s.fetch(ctx, f.userID)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Int64("user_id", f.userID).Msg("Initial poll failed")
		}
		return
	}

	f.counter.Init(snap.notify(f.userID))
	s.save(ctx, f)
	s.publisher.Publish(f.userID, WSMessage{Type: EventConversations, Data: buildConversations(f.userID, snap.matches, snap.latest)})
	log.Info().
		Int64("user_id", f.userID).
		Int("matches", len(snap.matches)).
		Msg("Feed initialized")
}

// poll runs one notification tick. Failures are logged and the tick is skipped.
func (s *FeedService) poll(ctx context.Context, f *userFeed) {
	snap, err := s.fetch(ctx, f.userID)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Int64("user_id", f.userID).Msg("Feed poll failed")
		}
		return
	}

	u := f.counter.Observe(snap.notify(f.userID))
	s.save(ctx, f)

	if u.Changed {
		s.publisher.Publish(f.userID, WSMessage{Type: EventCounts, Data: NewBadgeEvent(u.Counts)})
	}
	s.publisher.Publish(f.userID, WSMessage{Type: EventConversations, Data: buildConversations(f.userID, snap.matches, snap.latest)})
	if u.NewMatches > 0 {
		s.publisher.Publish(f.userID, WSMessage{Type: EventNewMatches, Data: newMatchesEvent(u.NewMatches)})
	}

	if u.NewMatches == 0 && u.NewUnread == 0 {
		return
	}
	log.Info().
		Int64("user_id", f.userID).
		Int("new_matches", u.NewMatches).
		Int("new_unread", u.NewUnread).
		Msg("New activity")

	if s.notifier != nil && !s.publisher.IsOnline(f.userID) {
		if err := s.notifier.NotifyBadge(ctx, f.userID, u); err != nil {
			log.Warn().Err(err).Int64("user_id", f.userID).Msg("Failed to send push notification")
		}
	}
}

func (s *FeedService) publishMessages(ctx context.Context, userID, matchID int64) {
	msgs, err := s.backend.MessagesByMatch(ctx, matchID)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Int64("user_id", userID).Int64("match_id", matchID).Msg("Message poll failed")
		}
		return
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	s.publisher.Publish(userID, WSMessage{Type: EventMessages, MatchID: &matchID, Data: msgs})
}

// fetch loads a user's matches and the latest message of each
func (s *FeedService) fetch(ctx context.Context, userID int64) (*feedSnapshot, error) {
	matches, err := s.backend.MatchesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	latest, err := latestMessages(ctx, s.backend, matches, s.cfg.Concurrency)
	if err != nil {
		return nil, err
	}
	return &feedSnapshot{matches: matches, latest: latest}, nil
}

func (s *FeedService) save(ctx context.Context, f *userFeed) {
	if s.badges == nil {
		return
	}
	if err := s.badges.Save(ctx, f.userID, f.counter.State()); err != nil && ctx.Err() == nil {
		log.Warn().Err(err).Int64("user_id", f.userID).Msg("Failed to save badges")
	}
}

// latestMessages fetches the latest message of every match concurrently.
// The result is index-aligned with matches; nil means no messages yet.
func latestMessages(ctx context.Context, backend MatchBackend, matches []*models.Match, limit int) ([]*models.Message, error) {
	latest := make([]*models.Message, len(matches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, m := range matches {
		i, m := i, m
		g.Go(func() error {
			msg, err := backend.LatestMessage(gctx, m.ID)
			if err != nil {
				return err
			}
			latest[i] = msg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return latest, nil
}

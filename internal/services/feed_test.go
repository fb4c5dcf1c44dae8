package services

import (
	"context"
	"testing"
	"time"

	"skillswap-gateway/internal/models"
	"skillswap-gateway/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedFixture struct {
	backend  *fakeBackend
	badges   *fakeBadges
	pub      *fakePublisher
	notifier *fakeNotifier
	feed     *FeedService
}

func newFeedFixture(t *testing.T) *feedFixture {
	t.Helper()
	fx := &feedFixture{
		backend:  newFakeBackend(),
		badges:   newFakeBadges(),
		pub:      newFakePublisher(),
		notifier: newFakeNotifier(),
	}
	fx.feed = testFeed(fx.backend, fx.badges, fx.pub, fx.notifier)
	t.Cleanup(fx.feed.Shutdown)
	return fx
}

// started attaches a feed and waits for its counters to be initialized
func (fx *feedFixture) started(t *testing.T, userID int64, fresh bool) *userFeed {
	t.Helper()
	f := fx.feed.attach(userID, fresh)
	select {
	case <-f.ready:
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not initialize")
	}
	return f
}

func TestFeedService_NewMatches(t *testing.T) {
	ctx := context.Background()

	t.Run("several new matches in one poll", func(t *testing.T) {
		fx := newFeedFixture(t)
		f := fx.started(t, 7, true)

		fx.backend.addMatch(1, 7, 2)
		fx.backend.addMatch(2, 3, 7)
		fx.feed.poll(ctx, f)

		toasts := fx.pub.ofType(7, EventNewMatches)
		require.Len(t, toasts, 1)
		assert.Equal(t, NewMatchesEvent{Count: 2, Message: "You have 2 new matches!"}, toasts[0].Data)

		fx.feed.poll(ctx, f)
		assert.Len(t, fx.pub.ofType(7, EventNewMatches), 1)
	})

	t.Run("existing matches raise nothing at start", func(t *testing.T) {
		fx := newFeedFixture(t)
		fx.backend.addMatch(1, 7, 2)
		fx.backend.addMatch(2, 3, 7)

		f := fx.started(t, 7, true)
		fx.feed.poll(ctx, f)

		counts, err := fx.feed.Counts(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, notify.Counts{}, counts)
		assert.Empty(t, fx.pub.ofType(7, EventCounts))
		assert.Equal(t, 0, fx.notifier.count(7))
	})

	t.Run("a new match raises the badge and is published", func(t *testing.T) {
		fx := newFeedFixture(t)
		fx.backend.addMatch(1, 7, 2)
		f := fx.started(t, 7, true)

		fx.backend.addMatch(2, 7, 3)
		fx.feed.poll(ctx, f)

		counts, err := fx.feed.Counts(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, 1, counts.UnreadMatches)

		events := fx.pub.ofType(7, EventCounts)
		require.Len(t, events, 1)
		assert.Equal(t, BadgeEvent{Counts: notify.Counts{UnreadMatches: 1}, Total: 1}, events[0].Data)

		toasts := fx.pub.ofType(7, EventNewMatches)
		require.Len(t, toasts, 1)
		assert.Equal(t, NewMatchesEvent{Count: 1, Message: "You have a new match!"}, toasts[0].Data)
	})

	t.Run("clearing survives an unchanged poll", func(t *testing.T) {
		fx := newFeedFixture(t)
		f := fx.started(t, 7, true)

		fx.backend.addMatch(1, 7, 2)
		fx.feed.poll(ctx, f)

		counts, err := fx.feed.ClearMatches(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, 0, counts.UnreadMatches)

		fx.feed.poll(ctx, f)
		assert.Equal(t, 0, f.counter.Counts().UnreadMatches)

		fx.backend.addMatch(2, 7, 3)
		fx.feed.poll(ctx, f)
		assert.Equal(t, 1, f.counter.Counts().UnreadMatches)
	})

	t.Run("failed poll is skipped", func(t *testing.T) {
		fx := newFeedFixture(t)
		f := fx.started(t, 7, true)

		fx.backend.addMatch(1, 7, 2)
		fx.backend.setFailMatches(errBackendDown)
		fx.feed.poll(ctx, f)
		assert.Equal(t, 0, f.counter.Counts().UnreadMatches)

		fx.backend.setFailMatches(nil)
		fx.feed.poll(ctx, f)
		assert.Equal(t, 1, f.counter.Counts().UnreadMatches)
	})
}

func TestFeedService_UnreadMessages(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	fx := newFeedFixture(t)
	fx.backend.addMatch(1, 7, 2)
	fx.backend.addMatch(2, 7, 3)
	f := fx.started(t, 7, true)

	fx.backend.addMessage(1, 2, "hi", now, false)
	fx.backend.addMessage(2, 3, "hello", now, false)
	fx.feed.poll(ctx, f)
	assert.Equal(t, 2, f.counter.Counts().UnreadMessages)

	require.NoError(t, fx.backend.MarkAllRead(ctx, 1))
	fx.feed.poll(ctx, f)
	assert.Equal(t, 1, f.counter.Counts().UnreadMessages)

	// the user's own reply is never unread for them
	fx.backend.addMessage(2, 7, "hey", now.Add(time.Second), false)
	counts, err := fx.feed.ClearMessages(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.UnreadMessages)
}

func TestFeedService_Push(t *testing.T) {
	ctx := context.Background()

	t.Run("offline user is notified", func(t *testing.T) {
		fx := newFeedFixture(t)
		f := fx.started(t, 7, true)

		fx.backend.addMatch(1, 7, 2)
		fx.feed.poll(ctx, f)
		assert.Equal(t, 1, fx.notifier.count(7))
	})

	t.Run("online user is not", func(t *testing.T) {
		fx := newFeedFixture(t)
		fx.pub.setOnline(7, true)
		f := fx.started(t, 7, true)

		fx.backend.addMatch(1, 7, 2)
		fx.feed.poll(ctx, f)
		assert.Equal(t, 0, fx.notifier.count(7))
		assert.Len(t, fx.pub.ofType(7, EventCounts), 1)
	})

	t.Run("nothing new, no push", func(t *testing.T) {
		fx := newFeedFixture(t)
		fx.backend.addMatch(1, 7, 2)
		f := fx.started(t, 7, true)

		fx.feed.poll(ctx, f)
		assert.Equal(t, 0, fx.notifier.count(7))
	})
}

func TestFeedService_Persistence(t *testing.T) {
	ctx := context.Background()

	t.Run("resume keeps saved badges", func(t *testing.T) {
		fx := newFeedFixture(t)
		require.NoError(t, fx.badges.Save(ctx, 7, notify.State{
			Armed:         true,
			MatchBaseline: 2,
			UnreadMatches: 2,
		}))
		fx.backend.addMatch(1, 7, 2)
		fx.backend.addMatch(2, 7, 3)

		f := fx.started(t, 7, false)
		assert.Equal(t, 2, f.counter.Counts().UnreadMatches)

		fx.backend.addMatch(3, 7, 4)
		fx.feed.poll(ctx, f)
		assert.Equal(t, 3, f.counter.Counts().UnreadMatches)

		saved, err := fx.badges.Get(ctx, 7)
		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.Equal(t, 3, saved.MatchBaseline)
	})

	t.Run("start discards saved badges", func(t *testing.T) {
		fx := newFeedFixture(t)
		require.NoError(t, fx.badges.Save(ctx, 7, notify.State{Armed: true, UnreadMatches: 5}))

		f := fx.started(t, 7, true)
		assert.Equal(t, notify.Counts{}, f.counter.Counts())
	})

	t.Run("forget stops the feed and drops badges", func(t *testing.T) {
		fx := newFeedFixture(t)
		fx.started(t, 7, true)
		require.True(t, fx.feed.Running(7))

		fx.feed.Forget(ctx, 7)
		assert.False(t, fx.feed.Running(7))
		saved, err := fx.badges.Get(ctx, 7)
		require.NoError(t, err)
		assert.Nil(t, saved)
	})
}

func TestFeedService_Sessions(t *testing.T) {
	ctx := context.Background()
	fx := newFeedFixture(t)
	sessions := newFakeSessions()
	require.NoError(t, sessions.Upsert(ctx, newSession(7)))
	require.NoError(t, sessions.Upsert(ctx, newSession(8)))

	require.NoError(t, fx.feed.ResumeSessions(ctx, sessions))
	assert.True(t, fx.feed.Running(7))
	assert.True(t, fx.feed.Running(8))

	fx.feed.Shutdown()
	assert.False(t, fx.feed.Running(7))
	assert.False(t, fx.feed.Running(8))
}

func TestFeedService_OpenConversation(t *testing.T) {
	ctx := context.Background()
	fx := newFeedFixture(t)
	fx.backend.addMatch(1, 7, 2)
	fx.backend.addMessage(1, 2, "hi", time.Now(), false)

	require.NoError(t, fx.feed.OpenConversation(ctx, 7, 1))
	assert.Equal(t, int64(1), fx.feed.OpenConversationID(7))

	fx.feed.publishMessages(ctx, 7, 1)
	events := fx.pub.ofType(7, EventMessages)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].MatchID)
	assert.Equal(t, int64(1), *events[0].MatchID)

	fx.feed.CloseConversation(7)
	assert.Equal(t, int64(0), fx.feed.OpenConversationID(7))
}

func TestLatestMessages(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	m1 := b.addMatch(1, 7, 2)
	m2 := b.addMatch(2, 7, 3)
	m3 := b.addMatch(3, 7, 4)
	b.addMessage(1, 2, "a", time.Now(), false)
	b.addMessage(3, 4, "c", time.Now(), true)

	latest, err := latestMessages(ctx, b, []*models.Match{m1, m2, m3}, 2)
	require.NoError(t, err)
	require.Len(t, latest, 3)
	assert.Equal(t, "a", latest[0].Content)
	assert.Nil(t, latest[1])
	assert.Equal(t, "c", latest[2].Content)
}

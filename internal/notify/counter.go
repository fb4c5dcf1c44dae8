// Package notify derives the unread-match and unread-message badge counts of a
// signed-in user from periodic observations of the backend.
//
// The two counters deliberately behave differently. The match counter is
// edge-triggered: it accumulates new-match events until the user clears them.
// The message counter is level-triggered: it always equals the number of
// conversations whose latest message is unread and was sent by the other side.
package notify

import (
	"sync"

	"skillswap-gateway/internal/models"
)

// Snapshot is one observation of the backend for a user
type Snapshot struct {
	MatchCount          int
	UnreadConversations int
}

// Counts are the badge values shown to the user
type Counts struct {
	UnreadMatches  int `json:"unread_matches"`
	UnreadMessages int `json:"unread_messages"`
}

// Total is the combined badge value
func (c Counts) Total() int {
	return c.UnreadMatches + c.UnreadMessages
}

// Update is the result of applying a Snapshot
type Update struct {
	Counts Counts
	// NewMatches is the number of matches first seen by this observation.
	NewMatches int
	// NewUnread is how much the unread-conversation level rose, zero when it fell.
	NewUnread int
	// Changed reports whether Counts differs from before the observation.
	Changed bool
}

// Counter holds the reconciliation state of one user session
type Counter struct {
	mu sync.Mutex

	armed           bool
	matchBaseline   int
	messageBaseline int
	unreadMatches   int
	unreadMessages  int
}

// NewCounter returns an unarmed counter
func NewCounter() *Counter {
	return &Counter{}
}

// Init records the session's starting point without raising any badge.
// The counter is armed afterwards, so the first increase seen by Observe counts.
func (c *Counter) Init(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.matchBaseline = s.MatchCount
	c.messageBaseline = s.UnreadConversations
	c.unreadMatches = 0
	c.unreadMessages = 0
	c.armed = true
}

// Observe applies one poll result.
//
// New matches are counted against the highest match count seen since the last
// Init or ClearMatches, so a match that disappears and a later one that takes
// its place are not reported twice. The unread-message badge is set to the
// observed level, never accumulated. An unarmed counter treats the observation
// as its Init.
func (c *Counter) Observe(s Snapshot) Update {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := c.countsLocked()

	if !c.armed {
		c.matchBaseline = s.MatchCount
		c.messageBaseline = s.UnreadConversations
		c.armed = true
		return Update{Counts: before}
	}

	var u Update
	if s.MatchCount > c.matchBaseline {
		u.NewMatches = s.MatchCount - c.matchBaseline
		c.unreadMatches += u.NewMatches
		c.matchBaseline = s.MatchCount
	}

	if s.UnreadConversations > c.messageBaseline {
		u.NewUnread = s.UnreadConversations - c.messageBaseline
	}
	c.messageBaseline = s.UnreadConversations
	c.unreadMessages = s.UnreadConversations

	u.Counts = c.countsLocked()
	u.Changed = u.Counts != before
	return u
}

// ClearMatches dismisses every pending new-match event and moves the baseline
// to the current match count.
func (c *Counter) ClearMatches(s Snapshot) Counts {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.unreadMatches = 0
	c.matchBaseline = s.MatchCount
	c.armed = true
	return c.countsLocked()
}

// ClearMessages re-syncs the message badge to the current unread level.
// Conversations that are still unread keep the badge up.
func (c *Counter) ClearMessages(s Snapshot) Counts {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messageBaseline = s.UnreadConversations
	c.unreadMessages = s.UnreadConversations
	return c.countsLocked()
}

// Reset drops all state, as on sign-out
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.armed = false
	c.matchBaseline = 0
	c.messageBaseline = 0
	c.unreadMatches = 0
	c.unreadMessages = 0
}

// State is the persistable form of a Counter
type State struct {
	Armed           bool
	MatchBaseline   int
	MessageBaseline int
	UnreadMatches   int
	UnreadMessages  int
}

// State returns a copy of the counter's state
func (c *Counter) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return State{
		Armed:           c.armed,
		MatchBaseline:   c.matchBaseline,
		MessageBaseline: c.messageBaseline,
		UnreadMatches:   c.unreadMatches,
		UnreadMessages:  c.unreadMessages,
	}
}

// Restore replaces the counter's state, as after a gateway restart
func (c *Counter) Restore(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.armed = s.Armed
	c.matchBaseline = s.MatchBaseline
	c.messageBaseline = s.MessageBaseline
	c.unreadMatches = s.UnreadMatches
	c.unreadMessages = s.UnreadMessages
}

// Counts returns the current badge values
func (c *Counter) Counts() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.countsLocked()
}

// Armed reports whether the counter has a baseline
func (c *Counter) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.armed
}

func (c *Counter) countsLocked() Counts {
	return Counts{
		UnreadMatches:  c.unreadMatches,
		UnreadMessages: c.unreadMessages,
	}
}

// CountUnread counts the conversations whose latest message is unread by userID.
// nil entries are conversations without messages.
func CountUnread(userID int64, latest []*models.Message) int {
	n := 0
	for _, m := range latest {
		if m.UnreadFor(userID) {
			n++
		}
	}
	return n
}

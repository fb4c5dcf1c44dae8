package discover

import "sync"

// SwipeStatus is the final state of a swipe
type SwipeStatus string

const (
	SwipeRecorded SwipeStatus = "recorded"
	SwipeReverted SwipeStatus = "reverted"
)

// SwipeOutcome reports what happened to a swipe. A reverted swipe carries the
// error that caused it and the candidate is back in the deck.
type SwipeOutcome struct {
	SwipeeID int64       `json:"swipee_id"`
	Liked    bool        `json:"liked"`
	Status   SwipeStatus `json:"status"`
	Matched  bool        `json:"matched"`
	Err      error       `json:"-"`
	Error    string      `json:"error,omitempty"`
}

// Recorded builds the outcome of a swipe the backend accepted
func Recorded(swipeeID int64, liked, matched bool) SwipeOutcome {
	return SwipeOutcome{SwipeeID: swipeeID, Liked: liked, Status: SwipeRecorded, Matched: matched}
}

// Reverted builds the outcome of a swipe the backend rejected
func Reverted(swipeeID int64, liked bool, err error) SwipeOutcome {
	o := SwipeOutcome{SwipeeID: swipeeID, Liked: liked, Status: SwipeReverted, Err: err}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}

type entryState int

const (
	entryVisible entryState = iota
	entryPending
)

type entry struct {
	candidate *Candidate
	state     entryState
}

// Queue is one user's deck. A swipe hides the card at once (Begin) and is
// then either confirmed, which drops it, or reverted, which shows it again at
// its old position.
type Queue struct {
	mu      sync.Mutex
	entries []*entry
}

// NewQueue returns an empty deck
func NewQueue() *Queue {
	return &Queue{}
}

// Replace loads a fresh deck. Cards with a swipe in flight stay hidden.
func (q *Queue) Replace(cands []*Candidate) {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := make(map[int64]struct{})
	for _, e := range q.entries {
		if e.state == entryPending {
			pending[e.candidate.User.ID] = struct{}{}
		}
	}

	entries := make([]*entry, 0, len(cands))
	for _, c := range cands {
		if c == nil || c.User == nil {
			continue
		}
		e := &entry{candidate: c}
		if _, ok := pending[c.User.ID]; ok {
			e.state = entryPending
		}
		entries = append(entries, e)
	}
	q.entries = entries
}

// Visible returns the cards currently shown, in deck order
func (q *Queue) Visible() []*Candidate {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*Candidate, 0, len(q.entries))
	for _, e := range q.entries {
		if e.state == entryVisible {
			out = append(out, e.candidate)
		}
	}
	return out
}

// Len is the number of visible cards
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, e := range q.entries {
		if e.state == entryVisible {
			n++
		}
	}
	return n
}

// Begin hides the card of swipeeID. It returns false when no such card is visible.
func (q *Queue) Begin(swipeeID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	e := q.find(swipeeID)
	if e == nil || e.state != entryVisible {
		return false
	}
	e.state = entryPending
	return true
}

// Confirm drops the pending card of swipeeID
func (q *Queue) Confirm(swipeeID int64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.candidate.User.ID == swipeeID && e.state == entryPending {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}

// Revert shows the pending card of swipeeID again
func (q *Queue) Revert(swipeeID int64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if e := q.find(swipeeID); e != nil && e.state == entryPending {
		e.state = entryVisible
	}
}

// Contains reports whether userID has a visible or pending card
func (q *Queue) Contains(userID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.find(userID) != nil
}

func (q *Queue) find(userID int64) *entry {
	for _, e := range q.entries {
		if e.candidate.User.ID == userID {
			return e
		}
	}
	return nil
}

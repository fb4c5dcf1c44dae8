package services

import (
	"context"
	"sync"

	"skillswap-gateway/internal/apperr"
	"skillswap-gateway/internal/discover"
	"skillswap-gateway/internal/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DiscoverService handles the swipe deck
type DiscoverService struct {
	backend       DiscoverBackend
	feed          *FeedService
	maxDistanceKm float64

	mu     sync.Mutex
	queues map[int64]*discover.Queue
}

// NewDiscoverService creates a new discover service
func NewDiscoverService(backend DiscoverBackend, feed *FeedService, maxDistanceKm float64) *DiscoverService {
	if maxDistanceKm <= 0 {
		maxDistanceKm = discover.DefaultMaxDistanceKm
	}
	return &DiscoverService{
		backend:       backend,
		feed:          feed,
		maxDistanceKm: maxDistanceKm,
		queues:        make(map[int64]*discover.Queue),
	}
}

// DiscoverStats summarizes the user's matches
type DiscoverStats struct {
	TotalMatches int `json:"total_matches"`
	ActiveChats  int `json:"active_chats"`
}

func (s *DiscoverService) queue(userID int64) *discover.Queue {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queues[userID]
	if !ok {
		q = discover.NewQueue()
		s.queues[userID] = q
	}
	return q
}

// Forget drops a user's deck
func (s *DiscoverService) Forget(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.queues, userID)
}

// Candidates loads a fresh deck for the user
func (s *DiscoverService) Candidates(ctx context.Context, userID int64, filter discover.Filter) ([]*discover.Candidate, error) {
	var (
		users    []*models.User
		profiles []*models.Profile
		swipes   []*models.Swipe
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.backend.ListUsers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		profiles, err = s.backend.ListProfiles(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		swipes, err = s.backend.SwipesByUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.ErrUpstream(err)
	}

	if filter.MaxDistanceKm <= 0 {
		filter.MaxDistanceKm = s.maxDistanceKm
	}
	cands := discover.BuildCandidates(discover.Input{
		UserID:   userID,
		Users:    users,
		Profiles: profiles,
		Swipes:   swipes,
		Filter:   filter,
	})

	s.loadPhotos(ctx, cands)

	q := s.queue(userID)
	q.Replace(cands)

	log.Debug().Int64("user_id", userID).Int("candidates", len(cands)).Msg("Discover deck loaded")
	return q.Visible(), nil
}

// loadPhotos sets each candidate's primary photo. A missing photo is not an error.
func (s *DiscoverService) loadPhotos(ctx context.Context, cands []*discover.Candidate) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultFetchConcurrency)
	for _, c := range cands {
		c := c
		if c.Profile == nil {
			continue
		}
		g.Go(func() error {
			url, err := s.backend.PrimaryPhotoURL(gctx, c.Profile.ID)
			if err != nil {
				log.Debug().Err(err).Int64("user_id", c.User.ID).Msg("Failed to load candidate photo")
				return nil
			}
			c.PhotoURL = url
			return nil
		})
	}
	g.Wait()
}

// Swipe records a like or pass. The card leaves the deck at once and comes
// back if the backend rejects the swipe; the outcome says which happened.
func (s *DiscoverService) Swipe(ctx context.Context, userID, swipeeID int64, like bool) (discover.SwipeOutcome, error) {
	if swipeeID == userID {
		return discover.SwipeOutcome{}, apperr.ErrSelfSwipe
	}

	q := s.queue(userID)
	if !q.Begin(swipeeID) {
		return discover.SwipeOutcome{}, apperr.ErrCandidateNotQueued
	}

	if _, err := s.backend.CreateSwipe(ctx, userID, swipeeID, like); err != nil {
		q.Revert(swipeeID)
		log.Error().Err(err).Int64("user_id", userID).Int64("swipee_id", swipeeID).Msg("Failed to record swipe")
		return discover.Reverted(swipeeID, like, apperr.ErrUpstream(err)), nil
	}
	q.Confirm(swipeeID)

	matched := false
	if like {
		matched = s.matchedWith(ctx, userID, swipeeID)
		s.feed.Refresh(userID)
		if matched {
			s.feed.Refresh(swipeeID)
		}
	}

	log.Info().
		Int64("user_id", userID).
		Int64("swipee_id", swipeeID).
		Bool("like", like).
		Bool("matched", matched).
		Msg("Swipe recorded")

	return discover.Recorded(swipeeID, like, matched), nil
}

func (s *DiscoverService) matchedWith(ctx context.Context, userID, otherID int64) bool {
	matches, err := s.backend.MatchesForUser(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to check for new match")
		return false
	}
	for _, m := range matches {
		if m.Other(userID) == otherID {
			return true
		}
	}
	return false
}

// CanView reports whether viewerID may open userID's profile: their own, a
// match partner's, or that of a card in the viewer's deck
func (s *DiscoverService) CanView(ctx context.Context, viewerID, userID int64) (bool, error) {
	if viewerID == userID || s.queue(viewerID).Contains(userID) {
		return true, nil
	}

	matches, err := s.backend.MatchesForUser(ctx, viewerID)
	if err != nil {
		return false, apperr.ErrUpstream(err)
	}
	for _, m := range matches {
		if m.Involves(userID) {
			return true, nil
		}
	}
	return false, nil
}

// Stats counts the user's matches and the ones with at least one message
func (s *DiscoverService) Stats(ctx context.Context, userID int64) (*DiscoverStats, error) {
	matches, err := s.backend.MatchesForUser(ctx, userID)
	if err != nil {
		return nil, apperr.ErrUpstream(err)
	}

	latest, err := latestMessages(ctx, s.backend, matches, defaultFetchConcurrency)
	if err != nil {
		return nil, apperr.ErrUpstream(err)
	}

	stats := &DiscoverStats{TotalMatches: len(matches)}
	for _, m := range latest {
		if m != nil {
			stats.ActiveChats++
		}
	}
	return stats, nil
}

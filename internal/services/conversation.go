package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"skillswap-gateway/internal/apperr"
	"skillswap-gateway/internal/models"
	"skillswap-gateway/internal/upstream"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// MaxMessageLength is the longest message content accepted, in characters
const MaxMessageLength = 1000

// ConversationService handles the messages screen
type ConversationService struct {
	backend  ConversationBackend
	sessions SessionStore
	feed     *FeedService
}

// NewConversationService creates a new conversation service
func NewConversationService(backend ConversationBackend, sessions SessionStore, feed *FeedService) *ConversationService {
	return &ConversationService{
		backend:  backend,
		sessions: sessions,
		feed:     feed,
	}
}

// List returns the user's conversations with the other user's name and
// primary photo, most recent message first
func (s *ConversationService) List(ctx context.Context, userID int64) ([]*Conversation, error) {
	matches, err := s.backend.MatchesForUser(ctx, userID)
	if err != nil {
		return nil, apperr.ErrUpstream(err)
	}

	latest, err := latestMessages(ctx, s.backend, matches, defaultFetchConcurrency)
	if err != nil {
		return nil, apperr.ErrUpstream(err)
	}

	convs := buildConversations(userID, matches, latest)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultFetchConcurrency)
	for _, c := range convs {
		c := c
		g.Go(func() error {
			s.enrich(gctx, c)
			return nil
		})
	}
	g.Wait()

	return convs, nil
}

// enrich fills in the other user and their photo. Missing data is not an error.
func (s *ConversationService) enrich(ctx context.Context, c *Conversation) {
	user, err := s.backend.GetUser(ctx, c.OtherUserID)
	if err != nil {
		log.Debug().Err(err).Int64("user_id", c.OtherUserID).Msg("Failed to load conversation partner")
		return
	}
	c.OtherUser = user

	profile, err := s.backend.ProfileForUser(ctx, c.OtherUserID)
	if err != nil || profile == nil {
		return
	}
	url, err := s.backend.PrimaryPhotoURL(ctx, profile.ID)
	if err != nil {
		log.Debug().Err(err).Int64("user_id", c.OtherUserID).Msg("Failed to load conversation photo")
		return
	}
	c.PhotoURL = url
}

// member returns the match if userID is one of its sides
func (s *ConversationService) member(ctx context.Context, userID, matchID int64) (*models.Match, error) {
	match, err := s.backend.GetMatch(ctx, matchID)
	if err != nil {
		if upstream.IsNotFound(err) {
			return nil, apperr.ErrMatchNotFound
		}
		return nil, apperr.ErrUpstream(err)
	}
	if !match.Involves(userID) {
		return nil, apperr.ErrNotMatchMember
	}
	return match, nil
}

// Open marks a conversation read, remembers it as the last viewed one and
// switches the user's feed to polling its messages
func (s *ConversationService) Open(ctx context.Context, userID, matchID int64) ([]*models.Message, error) {
	if _, err := s.member(ctx, userID, matchID); err != nil {
		return nil, err
	}

	markErr := s.backend.MarkAllRead(ctx, matchID)
	if markErr != nil {
		log.Warn().Err(markErr).Int64("user_id", userID).Int64("match_id", matchID).Msg("Failed to mark conversation read")
	}

	msgs, err := s.backend.MessagesByMatch(ctx, matchID)
	if err != nil {
		return nil, apperr.ErrUpstream(err)
	}
	if markErr != nil {
		s.markEach(ctx, userID, msgs)
	}

	if err := s.sessions.SetLastConversation(ctx, userID, &matchID); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to save last viewed conversation")
	}
	if err := s.feed.OpenConversation(ctx, userID, matchID); err != nil {
		return nil, err
	}
	s.feed.Refresh(userID)

	if msgs == nil {
		msgs = []*models.Message{}
	}
	return msgs, nil
}

// markEach marks the other side's unread messages one at a time
func (s *ConversationService) markEach(ctx context.Context, userID int64, msgs []*models.Message) {
	for _, m := range msgs {
		if !m.UnreadFor(userID) {
			continue
		}
		if err := s.backend.MarkRead(ctx, m.ID); err != nil {
			log.Debug().Err(err).Int64("user_id", userID).Int64("message_id", m.ID).Msg("Failed to mark message read")
			continue
		}
		m.IsRead = true
	}
}

// Close switches the user's feed back to the conversation list and forgets
// the last viewed conversation
func (s *ConversationService) Close(ctx context.Context, userID int64) {
	s.feed.CloseConversation(userID)
	if err := s.sessions.SetLastConversation(ctx, userID, nil); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to clear last viewed conversation")
	}
}

// Messages returns a conversation's messages, oldest first
func (s *ConversationService) Messages(ctx context.Context, userID, matchID int64) ([]*models.Message, error) {
	if _, err := s.member(ctx, userID, matchID); err != nil {
		return nil, err
	}

	msgs, err := s.backend.MessagesByMatch(ctx, matchID)
	if err != nil {
		return nil, apperr.ErrUpstream(err)
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	return msgs, nil
}

// Send posts a message. Content is trimmed and must be 1 to MaxMessageLength characters.
func (s *ConversationService) Send(ctx context.Context, userID, matchID int64, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, apperr.ErrMessageTooLong
	}

	match, err := s.member(ctx, userID, matchID)
	if err != nil {
		return nil, err
	}

	msg, err := s.backend.SendMessage(ctx, matchID, userID, content)
	if err != nil {
		return nil, apperr.ErrUpstream(err)
	}

	log.Info().Int64("user_id", userID).Int64("match_id", matchID).Msg("Message sent")

	s.feed.Refresh(match.Other(userID))
	return msg, nil
}

// LastViewed returns the conversation the user viewed last, or nil when there
// is none or it no longer exists. A stale id is cleared.
func (s *ConversationService) LastViewed(ctx context.Context, userID int64) (*int64, error) {
	sess, err := s.sessions.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess.LastConversationID == nil {
		return nil, nil
	}

	matchID := *sess.LastConversationID
	if _, err := s.member(ctx, userID, matchID); err != nil {
		if apperr.CodeOf(err) == apperr.CodeUnavailable {
			return nil, err
		}
		if err := s.sessions.SetLastConversation(ctx, userID, nil); err != nil {
			log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to clear last viewed conversation")
		}
		return nil, nil
	}
	return &matchID, nil
}

package services

import (
	"sort"
	"time"

	"skillswap-gateway/internal/models"
)

// Conversation is one row of the messages list
type Conversation struct {
	MatchID       int64           `json:"match_id"`
	OtherUserID   int64           `json:"other_user_id"`
	OtherUser     *models.User    `json:"other_user,omitempty"`
	PhotoURL      string          `json:"photo_url,omitempty"`
	LatestMessage *models.Message `json:"latest_message,omitempty"`
	Unread        bool            `json:"unread"`
	MatchedAt     time.Time       `json:"matched_at,omitempty"`
}

func (c *Conversation) latestAt() time.Time {
	if c.LatestMessage == nil {
		return time.Time{}
	}
	return c.LatestMessage.SentAt
}

// sortConversations orders by latest message, newest first. Conversations
// without messages go last and keep their relative order.
func sortConversations(convs []*Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].latestAt().After(convs[j].latestAt())
	})
}

func buildConversations(userID int64, matches []*models.Match, latest []*models.Message) []*Conversation {
	convs := make([]*Conversation, 0, len(matches))
	for i, m := range matches {
		var msg *models.Message
		if i < len(latest) {
			msg = latest[i]
		}
		convs = append(convs, &Conversation{
			MatchID:       m.ID,
			OtherUserID:   m.Other(userID),
			LatestMessage: msg,
			Unread:        msg.UnreadFor(userID),
			MatchedAt:     m.CreatedAt,
		})
	}
	sortConversations(convs)
	return convs
}

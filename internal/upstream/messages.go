package upstream

import (
	"context"
	"fmt"

	"skillswap-gateway/internal/models"
)

// MessagesByMatch returns the conversation of a match, oldest first
func (c *Client) MessagesByMatch(ctx context.Context, matchID int64) ([]*models.Message, error) {
	var wire []messageWire
	if err := c.get(ctx, fmt.Sprintf("/api/messages/match/%d", matchID), &wire); err != nil {
		return nil, fmt.Errorf("failed to list messages of match %d: %w", matchID, err)
	}
	messages := make([]*models.Message, 0, len(wire))
	for i := range wire {
		messages = append(messages, wire[i].toModel())
	}
	return messages, nil
}

// LatestMessage returns the newest message of a match.
// A 404 means the conversation is empty and yields nil, nil.
func (c *Client) LatestMessage(ctx context.Context, matchID int64) (*models.Message, error) {
	var wire messageWire
	err := c.get(ctx, fmt.Sprintf("/api/messages/match/%d/latest", matchID), &wire)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest message of match %d: %w", matchID, err)
	}
	msg := wire.toModel()
	if msg.ID == 0 && msg.Content == "" {
		return nil, nil
	}
	return msg, nil
}

// SendMessage posts a message from senderID into a match
func (c *Client) SendMessage(ctx context.Context, matchID, senderID int64, content string) (*models.Message, error) {
	body := messageWire{
		Match:          matchRef(matchID),
		Sender:         userRef(senderID),
		MessageContent: content,
	}
	var wire messageWire
	if err := c.post(ctx, "/api/messages", body, &wire); err != nil {
		return nil, fmt.Errorf("failed to send message to match %d: %w", matchID, err)
	}
	return wire.toModel(), nil
}

// MarkRead marks one message as read
func (c *Client) MarkRead(ctx context.Context, messageID int64) error {
	if err := c.put(ctx, fmt.Sprintf("/api/messages/%d/read", messageID), nil, nil); err != nil {
		return fmt.Errorf("failed to mark message %d read: %w", messageID, err)
	}
	return nil
}

// MarkAllRead marks every message of a match as read
func (c *Client) MarkAllRead(ctx context.Context, matchID int64) error {
	if err := c.put(ctx, fmt.Sprintf("/api/messages/%d/read-all", matchID), nil, nil); err != nil {
		return fmt.Errorf("failed to mark match %d read: %w", matchID, err)
	}
	return nil
}

package upstream

import (
	"context"
	"fmt"

	"skillswap-gateway/internal/models"
)

// CreateSwipe records a like or pass of swiper on swipee
func (c *Client) CreateSwipe(ctx context.Context, swiperID, swipeeID int64, isLike bool) (*models.Swipe, error) {
	body := swipeWire{
		Swiper: userRef(swiperID),
		Swipee: userRef(swipeeID),
		IsLike: isLike,
	}
	var wire swipeWire
	if err := c.post(ctx, "/api/swipes", body, &wire); err != nil {
		return nil, fmt.Errorf("failed to create swipe: %w", err)
	}
	return wire.toModel(), nil
}

// SwipesByUser returns the swipe history of userID as swiper
func (c *Client) SwipesByUser(ctx context.Context, userID int64) ([]*models.Swipe, error) {
	var wire []swipeWire
	if err := c.get(ctx, fmt.Sprintf("/api/swipes/user/%d", userID), &wire); err != nil {
		return nil, fmt.Errorf("failed to list swipes of user %d: %w", userID, err)
	}
	swipes := make([]*models.Swipe, 0, len(wire))
	for i := range wire {
		swipes = append(swipes, wire[i].toModel())
	}
	return swipes, nil
}

// ListMatches returns every match known to the backend
func (c *Client) ListMatches(ctx context.Context) ([]*models.Match, error) {
	var wire []matchWire
	if err := c.get(ctx, "/api/matches", &wire); err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	matches := make([]*models.Match, 0, len(wire))
	for i := range wire {
		matches = append(matches, wire[i].toModel())
	}
	return matches, nil
}

// GetMatch returns one match by ID
func (c *Client) GetMatch(ctx context.Context, id int64) (*models.Match, error) {
	var wire matchWire
	if err := c.get(ctx, fmt.Sprintf("/api/matches/%d", id), &wire); err != nil {
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}
	return wire.toModel(), nil
}

// MatchesForUser returns the matches that involve userID, in backend order
func (c *Client) MatchesForUser(ctx context.Context, userID int64) ([]*models.Match, error) {
	all, err := c.ListMatches(ctx)
	if err != nil {
		return nil, err
	}
	var mine []*models.Match
	for _, m := range all {
		if m.Involves(userID) {
			mine = append(mine, m)
		}
	}
	return mine, nil
}

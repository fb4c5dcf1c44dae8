package upstream

import (
	"context"
	"fmt"
	"strings"

	"skillswap-gateway/internal/models"
)

// NewUser is the registration payload
type NewUser struct {
	FirstName    string
	LastName     string
	Email        string
	University   string
	PasswordHash string
}

// UserUpdate carries the fields the backend overwrites when non-empty
type UserUpdate struct {
	FirstName  string
	LastName   string
	University string
	Email      string
}

// ListUsers returns every user
func (c *Client) ListUsers(ctx context.Context) ([]*models.User, error) {
	var wire []userWire
	if err := c.get(ctx, "/api/users", &wire); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]*models.User, 0, len(wire))
	for i := range wire {
		users = append(users, wire[i].toModel())
	}
	return users, nil
}

// GetUser returns one user by ID
func (c *Client) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var wire userWire
	if err := c.get(ctx, fmt.Sprintf("/api/users/%d", id), &wire); err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return wire.toModel(), nil
}

// FindUserByEmail scans the user list for a case-insensitive email match.
// It returns nil, nil when nobody has that email.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	users, err := c.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, nil
}

// CreateUser registers a new user
func (c *Client) CreateUser(ctx context.Context, u NewUser) (*models.User, error) {
	body := userWire{
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		University:   u.University,
		PasswordHash: u.PasswordHash,
	}
	var wire userWire
	if err := c.post(ctx, "/api/users", body, &wire); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return wire.toModel(), nil
}

// UpdateUser updates the name, university and email of a user
func (c *Client) UpdateUser(ctx context.Context, id int64, u UserUpdate) (*models.User, error) {
	body := userWire{
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		University: u.University,
		Email:      u.Email,
	}
	var wire userWire
	if err := c.put(ctx, fmt.Sprintf("/api/users/%d", id), body, &wire); err != nil {
		return nil, fmt.Errorf("failed to update user %d: %w", id, err)
	}
	return wire.toModel(), nil
}

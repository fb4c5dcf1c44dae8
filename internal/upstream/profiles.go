package upstream

import (
	"context"
	"fmt"

	"skillswap-gateway/internal/models"
)

// Location is the payload of the precise-location update
type Location struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Location     string  `json:"location"`
	ShowLocation bool    `json:"showLocation"`
}

// ListProfiles returns every profile
func (c *Client) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	var wire []profileWire
	if err := c.get(ctx, "/api/profiles", &wire); err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	profiles := make([]*models.Profile, 0, len(wire))
	for i := range wire {
		profiles = append(profiles, wire[i].toModel())
	}
	return profiles, nil
}

// GetProfile returns one profile by ID
func (c *Client) GetProfile(ctx context.Context, id int64) (*models.Profile, error) {
	var wire profileWire
	if err := c.get(ctx, fmt.Sprintf("/api/profiles/%d", id), &wire); err != nil {
		return nil, fmt.Errorf("failed to get profile %d: %w", id, err)
	}
	return wire.toModel(), nil
}

// ProfileForUser returns the first profile owned by userID, or nil when there is none
func (c *Client) ProfileForUser(ctx context.Context, userID int64) (*models.Profile, error) {
	profiles, err := c.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, nil
}

// CreateProfile creates the profile of p.UserID
func (c *Client) CreateProfile(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	var wire profileWire
	if err := c.post(ctx, "/api/profiles", profileToWire(p), &wire); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return wire.toModel(), nil
}

// UpdateProfile overwrites the editable fields of profile id
func (c *Client) UpdateProfile(ctx context.Context, id int64, p *models.Profile) (*models.Profile, error) {
	var wire profileWire
	if err := c.put(ctx, fmt.Sprintf("/api/profiles/%d", id), profileToWire(p), &wire); err != nil {
		return nil, fmt.Errorf("failed to update profile %d: %w", id, err)
	}
	return wire.toModel(), nil
}

// UpdateProfileLocation stores precise coordinates on profile id
func (c *Client) UpdateProfileLocation(ctx context.Context, id int64, loc Location) (*models.Profile, error) {
	var wire profileWire
	if err := c.put(ctx, fmt.Sprintf("/api/profiles/%d/location", id), loc, &wire); err != nil {
		return nil, fmt.Errorf("failed to update location of profile %d: %w", id, err)
	}
	return wire.toModel(), nil
}

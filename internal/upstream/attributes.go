package upstream

import (
	"context"
	"fmt"

	"skillswap-gateway/internal/models"
)

// Skills, interests, organizations and languages are independent child
// collections of a user. The backend only offers list-all, create and delete
// for most of them, so the *ForUser helpers filter client-side.

// ListSkills returns every user skill
func (c *Client) ListSkills(ctx context.Context) ([]*models.Skill, error) {
	var wire []skillWire
	if err := c.get(ctx, "/api/skills", &wire); err != nil {
		return nil, fmt.Errorf("failed to list skills: %w", err)
	}
	out := make([]*models.Skill, 0, len(wire))
	for i := range wire {
		out = append(out, wire[i].toModel())
	}
	return out, nil
}

// SkillsForUser returns the skills owned by userID
func (c *Client) SkillsForUser(ctx context.Context, userID int64) ([]*models.Skill, error) {
	all, err := c.ListSkills(ctx)
	if err != nil {
		return nil, err
	}
	var mine []*models.Skill
	for _, s := range all {
		if s.UserID == userID {
			mine = append(mine, s)
		}
	}
	return mine, nil
}

// CreateSkill adds a skill to s.UserID
func (c *Client) CreateSkill(ctx context.Context, s *models.Skill) (*models.Skill, error) {
	body := skillWire{
		User:       userRef(s.UserID),
		SkillName:  s.Name,
		SkillLevel: s.Level,
		Offering:   s.Offering,
		Seeking:    s.Seeking,
	}
	var wire skillWire
	if err := c.post(ctx, "/api/skills", body, &wire); err != nil {
		return nil, fmt.Errorf("failed to create skill: %w", err)
	}
	return wire.toModel(), nil
}

// DeleteSkill removes a skill
func (c *Client) DeleteSkill(ctx context.Context, id int64) error {
	if err := c.delete(ctx, fmt.Sprintf("/api/skills/%d", id)); err != nil {
		return fmt.Errorf("failed to delete skill %d: %w", id, err)
	}
	return nil
}

// ListInterests returns every user interest
func (c *Client) ListInterests(ctx context.Context) ([]*models.Interest, error) {
	var wire []interestWire
	if err := c.get(ctx, "/api/interests", &wire); err != nil {
		return nil, fmt.Errorf("failed to list interests: %w", err)
	}
	out := make([]*models.Interest, 0, len(wire))
	for i := range wire {
		out = append(out, wire[i].toModel())
	}
	return out, nil
}

// InterestsForUser returns the interests owned by userID
func (c *Client) InterestsForUser(ctx context.Context, userID int64) ([]*models.Interest, error) {
	all, err := c.ListInterests(ctx)
	if err != nil {
		return nil, err
	}
	var mine []*models.Interest
	for _, in := range all {
		if in.UserID == userID {
			mine = append(mine, in)
		}
	}
	return mine, nil
}

// CreateInterest adds an interest to in.UserID
func (c *Client) CreateInterest(ctx context.Context, in *models.Interest) (*models.Interest, error) {
	body := interestWire{
		User:         userRef(in.UserID),
		InterestName: in.Name,
		Category:     in.Category,
	}
	var wire interestWire
	if err := c.post(ctx, "/api/interests", body, &wire); err != nil {
		return nil, fmt.Errorf("failed to create interest: %w", err)
	}
	return wire.toModel(), nil
}

// DeleteInterest removes an interest
func (c *Client) DeleteInterest(ctx context.Context, id int64) error {
	if err := c.delete(ctx, fmt.Sprintf("/api/interests/%d", id)); err != nil {
		return fmt.Errorf("failed to delete interest %d: %w", id, err)
	}
	return nil
}

// ListOrganizations returns every user organization
func (c *Client) ListOrganizations(ctx context.Context) ([]*models.Organization, error) {
	var wire []organizationWire
	if err := c.get(ctx, "/api/organizations", &wire); err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	out := make([]*models.Organization, 0, len(wire))
	for i := range wire {
		out = append(out, wire[i].toModel())
	}
	return out, nil
}

// OrganizationsForUser returns the organizations owned by userID
func (c *Client) OrganizationsForUser(ctx context.Context, userID int64) ([]*models.Organization, error) {
	all, err := c.ListOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	var mine []*models.Organization
	for _, o := range all {
		if o.UserID == userID {
			mine = append(mine, o)
		}
	}
	return mine, nil
}

// CreateOrganization adds an organization to o.UserID
func (c *Client) CreateOrganization(ctx context.Context, o *models.Organization) (*models.Organization, error) {
	body := organizationWire{
		User:             userRef(o.UserID),
		OrganizationName: o.Name,
		Role:             o.Role,
	}
	var wire organizationWire
	if err := c.post(ctx, "/api/organizations", body, &wire); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}
	return wire.toModel(), nil
}

// DeleteOrganization removes an organization
func (c *Client) DeleteOrganization(ctx context.Context, id int64) error {
	if err := c.delete(ctx, fmt.Sprintf("/api/organizations/%d", id)); err != nil {
		return fmt.Errorf("failed to delete organization %d: %w", id, err)
	}
	return nil
}

// ListLanguages returns every user language
func (c *Client) ListLanguages(ctx context.Context) ([]*models.Language, error) {
	var wire []languageWire
	if err := c.get(ctx, "/api/languages", &wire); err != nil {
		return nil, fmt.Errorf("failed to list languages: %w", err)
	}
	out := make([]*models.Language, 0, len(wire))
	for i := range wire {
		out = append(out, wire[i].toModel())
	}
	return out, nil
}

// LanguagesForUser returns the languages of userID using the per-user route
func (c *Client) LanguagesForUser(ctx context.Context, userID int64) ([]*models.Language, error) {
	var wire []languageWire
	if err := c.get(ctx, fmt.Sprintf("/api/languages/user/%d", userID), &wire); err != nil {
		return nil, fmt.Errorf("failed to list languages of user %d: %w", userID, err)
	}
	out := make([]*models.Language, 0, len(wire))
	for i := range wire {
		out = append(out, wire[i].toModel())
	}
	return out, nil
}

// CreateLanguage adds a language to l.UserID
func (c *Client) CreateLanguage(ctx context.Context, l *models.Language) (*models.Language, error) {
	body := languageWire{
		User:             userRef(l.UserID),
		LanguageName:     l.Name,
		ProficiencyLevel: l.Proficiency,
	}
	var wire languageWire
	if err := c.post(ctx, "/api/languages", body, &wire); err != nil {
		return nil, fmt.Errorf("failed to create language: %w", err)
	}
	return wire.toModel(), nil
}

// DeleteLanguage removes a language
func (c *Client) DeleteLanguage(ctx context.Context, id int64) error {
	if err := c.delete(ctx, fmt.Sprintf("/api/languages/%d", id)); err != nil {
		return fmt.Errorf("failed to delete language %d: %w", id, err)
	}
	return nil
}

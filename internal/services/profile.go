package services

import (
	"context"
	"io"
	"strings"

	"skillswap-gateway/internal/apperr"
	"skillswap-gateway/internal/models"
	"skillswap-gateway/internal/upstream"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// AttributeKind names one of a profile's child collections
type AttributeKind string

const (
	KindSkills        AttributeKind = "skills"
	KindInterests     AttributeKind = "interests"
	KindOrganizations AttributeKind = "organizations"
	KindLanguages     AttributeKind = "languages"
)

// ParseAttributeKind validates a kind taken from a request path
func ParseAttributeKind(s string) (AttributeKind, error) {
	switch k := AttributeKind(s); k {
	case KindSkills, KindInterests, KindOrganizations, KindLanguages:
		return k, nil
	}
	return "", apperr.ErrUnknownAttributeKind
}

// ProfileView is everything the profile screen shows
type ProfileView struct {
	User          *models.User           `json:"user"`
	Profile       *models.Profile        `json:"profile"`
	Photos        []*models.Photo        `json:"photos"`
	Skills        []*models.Skill        `json:"skills"`
	Interests     []*models.Interest     `json:"interests"`
	Organizations []*models.Organization `json:"organizations"`
	Languages     []*models.Language     `json:"languages"`
}

// ProfileInput is a profile save. Empty account fields are left unchanged.
type ProfileInput struct {
	FirstName            string   `json:"first_name"`
	LastName             string   `json:"last_name"`
	University           string   `json:"university"`
	Bio                  string   `json:"bio"`
	Major                string   `json:"major"`
	Year                 string   `json:"year"`
	Location             string   `json:"location"`
	Latitude             *float64 `json:"latitude"`
	Longitude            *float64 `json:"longitude"`
	ShowLocation         bool     `json:"show_location"`
	CareerGoals          string   `json:"career_goals"`
	Availability         string   `json:"availability"`
	Career               string   `json:"career"`
	CareerExperience     string   `json:"career_experience"`
	ResearchPublications string   `json:"research_publications"`
	Awards               string   `json:"awards"`
	LinkedIn             string   `json:"linkedin"`
	GitHub               string   `json:"github"`
	Portfolio            string   `json:"portfolio"`
}

// AttributeInput is a new skill, interest, organization or language.
// Only the fields of the given kind are used.
type AttributeInput struct {
	Name        string `json:"name"`
	Level       string `json:"level"`
	Offering    bool   `json:"offering"`
	Seeking     bool   `json:"seeking"`
	Category    string `json:"category"`
	Role        string `json:"role"`
	Proficiency string `json:"proficiency"`
}

// ProfileService handles the profile screen
type ProfileService struct {
	backend ProfileBackend
}

// NewProfileService creates a new profile service
func NewProfileService(backend ProfileBackend) *ProfileService {
	return &ProfileService{backend: backend}
}

// Get loads the user's account, profile, photos and attributes
func (s *ProfileService) Get(ctx context.Context, userID int64) (*ProfileView, error) {
	view := &ProfileView{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user, err := s.backend.GetUser(gctx, userID)
		if err != nil {
			return err
		}
		view.User = user
		return nil
	})
	g.Go(func() error {
		profile, err := s.backend.ProfileForUser(gctx, userID)
		if err != nil || profile == nil {
			return err
		}
		view.Profile = profile
		photos, err := s.backend.PhotosByProfile(gctx, profile.ID)
		if err != nil {
			return err
		}
		view.Photos = photos
		return nil
	})
	g.Go(func() error {
		var err error
		view.Skills, err = s.backend.SkillsForUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		view.Interests, err = s.backend.InterestsForUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		view.Organizations, err = s.backend.OrganizationsForUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		view.Languages, err = s.backend.LanguagesForUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		if upstream.IsNotFound(err) && view.User == nil {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.ErrUpstream(err)
	}

	return view, nil
}

// ViewerAccess decides whether one user may see another's profile
type ViewerAccess interface {
	CanView(ctx context.Context, viewerID, userID int64) (bool, error)
}

// View returns userID's profile as seen by viewerID. Coordinates are left out
// unless the owner shows their location.
func (s *ProfileService) View(ctx context.Context, viewerID, userID int64, access ViewerAccess) (*ProfileView, error) {
	ok, err := access.CanView(ctx, viewerID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrProfileHidden
	}

	view, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if viewerID != userID {
		hideLocation(view)
	}
	return view, nil
}

func hideLocation(view *ProfileView) {
	if view.Profile != nil && view.Profile.ShowLocation {
		return
	}
	if view.User != nil {
		u := *view.User
		u.Latitude, u.Longitude = nil, nil
		view.User = &u
	}
	if view.Profile != nil {
		p := *view.Profile
		p.Location = ""
		p.Latitude, p.Longitude = nil, nil
		view.Profile = &p
	}
}

// Save updates the account names and creates or updates the profile
func (s *ProfileService) Save(ctx context.Context, userID int64, in ProfileInput) (*ProfileView, error) {
	update := upstream.UserUpdate{
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		University: strings.TrimSpace(in.University),
	}
	if update != (upstream.UserUpdate{}) {
		if _, err := s.backend.UpdateUser(ctx, userID, update); err != nil {
			return nil, apperr.ErrUpstream(err)
		}
	}

	if (in.Latitude == nil) != (in.Longitude == nil) {
		return nil, apperr.InvalidArg("latitude and longitude must be set together")
	}
	if in.Latitude != nil {
		if err := validateCoordinates(*in.Latitude, *in.Longitude); err != nil {
			return nil, err
		}
	}

	existing, err := s.backend.ProfileForUser(ctx, userID)
	if err != nil {
		return nil, apperr.ErrUpstream(err)
	}

	p := &models.Profile{
		UserID:               userID,
		Bio:                  strings.TrimSpace(in.Bio),
		Major:                strings.TrimSpace(in.Major),
		Year:                 strings.TrimSpace(in.Year),
		Location:             strings.TrimSpace(in.Location),
		Latitude:             in.Latitude,
		Longitude:            in.Longitude,
		ShowLocation:         in.ShowLocation,
		CareerGoals:          in.CareerGoals,
		Availability:         in.Availability,
		Career:               in.Career,
		CareerExperience:     in.CareerExperience,
		ResearchPublications: in.ResearchPublications,
		Awards:               in.Awards,
		LinkedIn:             strings.TrimSpace(in.LinkedIn),
		GitHub:               strings.TrimSpace(in.GitHub),
		Portfolio:            strings.TrimSpace(in.Portfolio),
	}

	if existing == nil {
		if _, err := s.backend.CreateProfile(ctx, p); err != nil {
			return nil, apperr.ErrUpstream(err)
		}
		log.Info().Int64("user_id", userID).Msg("Profile created")
	} else {
		if p.Latitude == nil {
			p.Latitude, p.Longitude = existing.Latitude, existing.Longitude
		}
		if _, err := s.backend.UpdateProfile(ctx, existing.ID, p); err != nil {
			return nil, apperr.ErrUpstream(err)
		}
	}

	return s.Get(ctx, userID)
}

// EnsureProfile returns the user's profile, creating an empty one if needed
func (s *ProfileService) EnsureProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	profile, err := s.backend.ProfileForUser(ctx, userID)
	if err != nil {
		return nil, apperr.ErrUpstream(err)
	}
	if profile != nil {
		return profile, nil
	}

	profile, err = s.backend.CreateProfile(ctx, &models.Profile{UserID: userID})
	if err != nil {
		return nil, apperr.ErrUpstream(err)
	}
	log.Info().Int64("user_id", userID).Int64("profile_id", profile.ID).Msg("Profile created")
	return profile, nil
}

// UpdateLocation stores the device's precise position on the profile
func (s *ProfileService) UpdateLocation(ctx context.Context, userID int64, loc upstream.Location) (*models.Profile, error) {
	if err := validateCoordinates(loc.Latitude, loc.Longitude); err != nil {
		return nil, err
	}

	profile, err := s.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	updated, err := s.backend.UpdateProfileLocation(ctx, profile.ID, loc)
	if err != nil {
		return nil, apperr.ErrUpstream(err)
	}
	return updated, nil
}

func validateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return apperr.InvalidArg("coordinates out of range")
	}
	return nil
}

// AddPhoto uploads a photo to the user's profile, creating the profile if
// needed. The first photo becomes the primary one.
func (s *ProfileService) AddPhoto(ctx context.Context, userID int64, filename string, r io.Reader) (*models.Photo, error) {
	profile, err := s.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	photos, err := s.backend.PhotosByProfile(ctx, profile.ID)
	if err != nil {
		return nil, apperr.ErrUpstream(err)
	}

	photo, err := s.backend.UploadPhoto(ctx, profile.ID, len(photos) == 0, filename, r)
	if err != nil {
		return nil, apperr.ErrUpstream(err)
	}

	log.Info().Int64("user_id", userID).Int64("photo_id", photo.ID).Msg("Photo uploaded")
	return photo, nil
}

// AddAttribute adds a skill, interest, organization or language to the user
func (s *ProfileService) AddAttribute(ctx context.Context, userID int64, kind AttributeKind, in AttributeInput) (interface{}, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.InvalidArg("name is required")
	}

	var (
		created interface{}
		err     error
	)
	switch kind {
	case KindSkills:
		created, err = s.backend.CreateSkill(ctx, &models.Skill{
			UserID: userID, Name: name, Level: in.Level, Offering: in.Offering, Seeking: in.Seeking,
		})
	case KindInterests:
		created, err = s.backend.CreateInterest(ctx, &models.Interest{
			UserID: userID, Name: name, Category: in.Category,
		})
	case KindOrganizations:
		created, err = s.backend.CreateOrganization(ctx, &models.Organization{
			UserID: userID, Name: name, Role: in.Role,
		})
	case KindLanguages:
		created, err = s.backend.CreateLanguage(ctx, &models.Language{
			UserID: userID, Name: name, Proficiency: in.Proficiency,
		})
	default:
		return nil, apperr.ErrUnknownAttributeKind
	}
	if err != nil {
		return nil, apperr.ErrUpstream(err)
	}
	return created, nil
}

// DeleteAttribute removes one of the user's own attributes
func (s *ProfileService) DeleteAttribute(ctx context.Context, userID int64, kind AttributeKind, id int64) error {
	owned, err := s.ownedAttributeIDs(ctx, userID, kind)
	if err != nil {
		return err
	}
	if _, ok := owned[id]; !ok {
		return apperr.ErrAttributeNotFound
	}

	switch kind {
	case KindSkills:
		err = s.backend.DeleteSkill(ctx, id)
	case KindInterests:
		err = s.backend.DeleteInterest(ctx, id)
	case KindOrganizations:
		err = s.backend.DeleteOrganization(ctx, id)
	case KindLanguages:
		err = s.backend.DeleteLanguage(ctx, id)
	}
	if err != nil {
		return apperr.ErrUpstream(err)
	}
	return nil
}

func (s *ProfileService) ownedAttributeIDs(ctx context.Context, userID int64, kind AttributeKind) (map[int64]struct{}, error) {
	ids := make(map[int64]struct{})
	var err error
	switch kind {
	case KindSkills:
		var items []*models.Skill
		if items, err = s.backend.SkillsForUser(ctx, userID); err == nil {
			for _, it := range items {
				ids[it.ID] = struct{}{}
			}
		}
	case KindInterests:
		var items []*models.Interest
		if items, err = s.backend.InterestsForUser(ctx, userID); err == nil {
			for _, it := range items {
				ids[it.ID] = struct{}{}
			}
		}
	case KindOrganizations:
		var items []*models.Organization
		if items, err = s.backend.OrganizationsForUser(ctx, userID); err == nil {
			for _, it := range items {
				ids[it.ID] = struct{}{}
			}
		}
	case KindLanguages:
		var items []*models.Language
		if items, err = s.backend.LanguagesForUser(ctx, userID); err == nil {
			for _, it := range items {
				ids[it.ID] = struct{}{}
			}
		}
	default:
		return nil, apperr.ErrUnknownAttributeKind
	}
	if err != nil {
		return nil, apperr.ErrUpstream(err)
	}
	return ids, nil
}

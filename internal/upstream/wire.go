package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"skillswap-gateway/internal/models"
)

// The backend serializes JPA entities directly: identifiers are named after the
// entity (userId, matchId, ...) but some responses and older builds use plain
// "id", and relations arrive as nested stubs. Everything in this file exists so
// that the rest of the gateway only ever sees models.* with a single ID field.

func firstID(ids ...*int64) int64 {
	for _, id := range ids {
		if id != nil {
			return *id
		}
	}
	return 0
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ref is a nested relation stub such as {"userId": 7}
type ref struct {
	ID        *int64 `json:"id,omitempty"`
	UserID    *int64 `json:"userId,omitempty"`
	MatchID   *int64 `json:"matchId,omitempty"`
	ProfileID *int64 `json:"profileId,omitempty"`
}

func (r *ref) value() int64 {
	if r == nil {
		return 0
	}
	return firstID(r.UserID, r.MatchID, r.ProfileID, r.ID)
}

func userRef(id int64) *ref  { return &ref{UserID: &id} }
func matchRef(id int64) *ref { return &ref{MatchID: &id} }

// wireTime accepts RFC 3339 and zone-less ISO local date-times
type wireTime time.Time

var localLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *wireTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	if s == "" {
		return nil
	}
	for _, layout := range localLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = wireTime(parsed)
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp format %q", s)
}

func (t *wireTime) value() time.Time {
	if t == nil {
		return time.Time{}
	}
	return time.Time(*t)
}

type userWire struct {
	ID           *int64   `json:"id,omitempty"`
	UserID       *int64   `json:"userId,omitempty"`
	FirstName    string   `json:"firstName,omitempty"`
	LastName     string   `json:"lastName,omitempty"`
	Email        string   `json:"email,omitempty"`
	University   string   `json:"university,omitempty"`
	Location     string   `json:"location,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	PasswordHash string   `json:"passwordHash,omitempty"`
}

func (w *userWire) toModel() *models.User {
	return &models.User{
		ID:           firstID(w.UserID, w.ID),
		FirstName:    w.FirstName,
		LastName:     w.LastName,
		Email:        w.Email,
		University:   w.University,
		Location:     w.Location,
		Latitude:     w.Latitude,
		Longitude:    w.Longitude,
		PasswordHash: w.PasswordHash,
	}
}

type profileWire struct {
	ID                   *int64   `json:"id,omitempty"`
	ProfileID            *int64   `json:"profileId,omitempty"`
	User                 *ref     `json:"user,omitempty"`
	Bio                  string   `json:"bio"`
	Major                string   `json:"major"`
	Year                 string   `json:"year"`
	Location             string   `json:"location"`
	Latitude             *float64 `json:"latitude,omitempty"`
	Longitude            *float64 `json:"longitude,omitempty"`
	ShowLocation         bool     `json:"showLocation"`
	CareerGoals          string   `json:"careerGoals"`
	Availability         string   `json:"availability"`
	Career               string   `json:"career"`
	CareerExperience     string   `json:"careerExperience"`
	ResearchPublications string   `json:"researchPublications"`
	Awards               string   `json:"awards"`
	LinkedIn             string   `json:"linkedin"`
	GitHub               string   `json:"github"`
	Portfolio            string   `json:"portfolio"`
}

func (w *profileWire) toModel() *models.Profile {
	return &models.Profile{
		ID:                   firstID(w.ProfileID, w.ID),
		UserID:               w.User.value(),
		Bio:                  w.Bio,
		Major:                w.Major,
		Year:                 w.Year,
		Location:             w.Location,
		Latitude:             w.Latitude,
		Longitude:            w.Longitude,
		ShowLocation:         w.ShowLocation,
		CareerGoals:          w.CareerGoals,
		Availability:         w.Availability,
		Career:               w.Career,
		CareerExperience:     w.CareerExperience,
		ResearchPublications: w.ResearchPublications,
		Awards:               w.Awards,
		LinkedIn:             w.LinkedIn,
		GitHub:               w.GitHub,
		Portfolio:            w.Portfolio,
	}
}

func profileToWire(p *models.Profile) *profileWire {
	return &profileWire{
		User:                 userRef(p.UserID),
		Bio:                  p.Bio,
		Major:                p.Major,
		Year:                 p.Year,
		Location:             p.Location,
		Latitude:             p.Latitude,
		Longitude:            p.Longitude,
		ShowLocation:         p.ShowLocation,
		CareerGoals:          p.CareerGoals,
		Availability:         p.Availability,
		Career:               p.Career,
		CareerExperience:     p.CareerExperience,
		ResearchPublications: p.ResearchPublications,
		Awards:               p.Awards,
		LinkedIn:             p.LinkedIn,
		GitHub:               p.GitHub,
		Portfolio:            p.Portfolio,
	}
}

type swipeWire struct {
	ID        *int64    `json:"id,omitempty"`
	SwipeID   *int64    `json:"swipeId,omitempty"`
	Swiper    *ref      `json:"swiper"`
	Swipee    *ref      `json:"swipee"`
	IsLike    bool      `json:"isLike"`
	CreatedAt *wireTime `json:"createdAt,omitempty"`
}

func (w *swipeWire) toModel() *models.Swipe {
	return &models.Swipe{
		ID:        firstID(w.SwipeID, w.ID),
		SwiperID:  w.Swiper.value(),
		SwipeeID:  w.Swipee.value(),
		IsLike:    w.IsLike,
		CreatedAt: w.CreatedAt.value(),
	}
}

type matchWire struct {
	ID        *int64    `json:"id,omitempty"`
	MatchID   *int64    `json:"matchId,omitempty"`
	User1     *ref      `json:"user1"`
	User2     *ref      `json:"user2"`
	MatchedAt *wireTime `json:"matchedAt,omitempty"`
	CreatedAt *wireTime `json:"createdAt,omitempty"`
}

func (w *matchWire) toModel() *models.Match {
	created := w.MatchedAt.value()
	if created.IsZero() {
		created = w.CreatedAt.value()
	}
	return &models.Match{
		ID:        firstID(w.MatchID, w.ID),
		User1ID:   w.User1.value(),
		User2ID:   w.User2.value(),
		CreatedAt: created,
	}
}

type messageWire struct {
	ID             *int64    `json:"id,omitempty"`
	MessageID      *int64    `json:"messageId,omitempty"`
	Match          *ref      `json:"match,omitempty"`
	Sender         *ref      `json:"sender,omitempty"`
	MessageContent string    `json:"messageContent,omitempty"`
	Content        string    `json:"content,omitempty"`
	SentAt         *wireTime `json:"sentAt,omitempty"`
	Timestamp      *wireTime `json:"timestamp,omitempty"`
	IsRead         *bool     `json:"isRead,omitempty"`
	Read           *bool     `json:"read,omitempty"`
}

func (w *messageWire) toModel() *models.Message {
	sent := w.SentAt.value()
	if sent.IsZero() {
		sent = w.Timestamp.value()
	}
	read := false
	switch {
	case w.IsRead != nil:
		read = *w.IsRead
	case w.Read != nil:
		read = *w.Read
	}
	return &models.Message{
		ID:       firstID(w.MessageID, w.ID),
		MatchID:  w.Match.value(),
		SenderID: w.Sender.value(),
		Content:  firstString(w.MessageContent, w.Content),
		SentAt:   sent,
		IsRead:   read,
	}
}

type photoWire struct {
	ID        *int64 `json:"id,omitempty"`
	PhotoID   *int64 `json:"photoId,omitempty"`
	Profile   *ref   `json:"profile,omitempty"`
	ProfileID *int64 `json:"profileId,omitempty"`
	PhotoURL  string `json:"photoUrl,omitempty"`
	URL       string `json:"url,omitempty"`
	IsPrimary bool   `json:"isPrimary"`
}

func (w *photoWire) toModel() *models.Photo {
	profileID := firstID(w.ProfileID)
	if profileID == 0 {
		profileID = w.Profile.value()
	}
	return &models.Photo{
		ID:        firstID(w.PhotoID, w.ID),
		ProfileID: profileID,
		URL:       firstString(w.PhotoURL, w.URL),
		IsPrimary: w.IsPrimary,
	}
}

type skillWire struct {
	ID          *int64 `json:"id,omitempty"`
	SkillID     *int64 `json:"skillId,omitempty"`
	UserSkillID *int64 `json:"userSkillId,omitempty"`
	User        *ref   `json:"user"`
	SkillName   string `json:"skillName"`
	SkillLevel  string `json:"skillLevel"`
	Offering    bool   `json:"offering"`
	Seeking     bool   `json:"seeking"`
}

func (w *skillWire) toModel() *models.Skill {
	return &models.Skill{
		ID:       firstID(w.UserSkillID, w.SkillID, w.ID),
		UserID:   w.User.value(),
		Name:     w.SkillName,
		Level:    w.SkillLevel,
		Offering: w.Offering,
		Seeking:  w.Seeking,
	}
}

type interestWire struct {
	ID             *int64 `json:"id,omitempty"`
	InterestID     *int64 `json:"interestId,omitempty"`
	UserInterestID *int64 `json:"userInterestId,omitempty"`
	User           *ref   `json:"user"`
	InterestName   string `json:"interestName"`
	Category       string `json:"category"`
}

func (w *interestWire) toModel() *models.Interest {
	return &models.Interest{
		ID:       firstID(w.UserInterestID, w.InterestID, w.ID),
		UserID:   w.User.value(),
		Name:     w.InterestName,
		Category: w.Category,
	}
}

type organizationWire struct {
	ID               *int64 `json:"id,omitempty"`
	OrganizationID   *int64 `json:"organizationId,omitempty"`
	UserOrgID        *int64 `json:"userOrganizationId,omitempty"`
	User             *ref   `json:"user"`
	OrganizationName string `json:"organizationName"`
	Role             string `json:"role"`
}

func (w *organizationWire) toModel() *models.Organization {
	return &models.Organization{
		ID:     firstID(w.UserOrgID, w.OrganizationID, w.ID),
		UserID: w.User.value(),
		Name:   w.OrganizationName,
		Role:   w.Role,
	}
}

type languageWire struct {
	ID               *int64 `json:"id,omitempty"`
	LanguageID       *int64 `json:"languageId,omitempty"`
	User             *ref   `json:"user"`
	LanguageName     string `json:"languageName"`
	ProficiencyLevel string `json:"proficiencyLevel"`
}

func (w *languageWire) toModel() *models.Language {
	return &models.Language{
		ID:          firstID(w.LanguageID, w.ID),
		UserID:      w.User.value(),
		Name:        w.LanguageName,
		Proficiency: w.ProficiencyLevel,
	}
}

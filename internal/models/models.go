package models

import "time"

// User represents a SkillSwap account as seen by the gateway
type User struct {
	ID           int64    `json:"id"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Email        string   `json:"email"`
	University   string   `json:"university"`
	Location     string   `json:"location,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	PasswordHash string   `json:"-"`
}

// Profile is the 1:1 extension of a user edited on the profile screen
type Profile struct {
	ID                   int64    `json:"id"`
	UserID               int64    `json:"user_id"`
	Bio                  string   `json:"bio"`
	Major                string   `json:"major"`
	Year                 string   `json:"year"`
	Location             string   `json:"location"`
	Latitude             *float64 `json:"latitude,omitempty"`
	Longitude            *float64 `json:"longitude,omitempty"`
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

// Swipe is a single like/pass decision by Swiper about Swipee
type Swipe struct {
	ID        int64     `json:"id"`
	SwiperID  int64     `json:"swiper_id"`
	SwipeeID  int64     `json:"swipee_id"`
	IsLike    bool      `json:"is_like"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Match is a mutually liked pair of users
type Match struct {
	ID        int64     `json:"id"`
	User1ID   int64     `json:"user1_id"`
	User2ID   int64     `json:"user2_id"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Involves reports whether userID is one side of the match
func (m *Match) Involves(userID int64) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// Other returns the side of the match that is not userID
func (m *Match) Other(userID int64) int64 {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// Message is one entry of a match's conversation
type Message struct {
	ID       int64     `json:"id"`
	MatchID  int64     `json:"match_id"`
	SenderID int64     `json:"sender_id"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sent_at"`
	IsRead   bool      `json:"is_read"`
}

// UnreadFor reports whether the message is unread from userID's point of view
func (m *Message) UnreadFor(userID int64) bool {
	return m != nil && m.SenderID != userID && !m.IsRead
}

// Photo belongs to a profile
type Photo struct {
	ID        int64  `json:"id"`
	ProfileID int64  `json:"profile_id"`
	URL       string `json:"url"`
	IsPrimary bool   `json:"is_primary"`
}

// PrimaryPhoto returns the first photo flagged primary, else the first photo
func PrimaryPhoto(photos []*Photo) *Photo {
	for _, p := range photos {
		if p.IsPrimary {
			return p
		}
	}
	if len(photos) > 0 {
		return photos[0]
	}
	return nil
}

// Skill is a skill a user offers or seeks
type Skill struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	Name     string `json:"name"`
	Level    string `json:"level"`
	Offering bool   `json:"offering"`
	Seeking  bool   `json:"seeking"`
}

// Interest is a free-form user interest
type Interest struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Organization is a club or group the user belongs to
type Organization struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// Language is a spoken language with proficiency
type Language struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	Name        string `json:"name"`
	Proficiency string `json:"proficiency"`
}

// Session is the gateway-side record of a signed-in user
type Session struct {
	ID                 string    `json:"id"`
	UserID             int64     `json:"user_id"`
	Email              string    `json:"email"`
	PushToken          *string   `json:"push_token,omitempty"`
	LastConversationID *int64    `json:"last_conversation_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// StagedUpload is a photo the client put into the staging bucket and has not
// yet been forwarded to the backend
type StagedUpload struct {
	Key         string     `json:"key"`
	UserID      int64      `json:"user_id"`
	Filename    string     `json:"filename"`
	ContentType string     `json:"content_type"`
	PhotoID     *int64     `json:"photo_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

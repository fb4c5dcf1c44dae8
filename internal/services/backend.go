package services

import (
	"context"
	"io"
	"time"

	"skillswap-gateway/internal/models"
	"skillswap-gateway/internal/notify"
	"skillswap-gateway/internal/upstream"
)

// The services only see the slices of the backend client they need.
// *upstream.Client satisfies all of them.

// UserBackend reads and writes accounts
type UserBackend interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, u upstream.NewUser) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, u upstream.UserUpdate) (*models.User, error)
}

// MatchBackend reads matches and their messages
type MatchBackend interface {
	MatchesForUser(ctx context.Context, userID int64) ([]*models.Match, error)
	LatestMessage(ctx context.Context, matchID int64) (*models.Message, error)
	MessagesByMatch(ctx context.Context, matchID int64) ([]*models.Message, error)
}

// ConversationBackend is what the messages screen needs
type ConversationBackend interface {
	MatchBackend
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetMatch(ctx context.Context, id int64) (*models.Match, error)
	SendMessage(ctx context.Context, matchID, senderID int64, content string) (*models.Message, error)
	MarkAllRead(ctx context.Context, matchID int64) error
	MarkRead(ctx context.Context, messageID int64) error
	ProfileForUser(ctx context.Context, userID int64) (*models.Profile, error)
	PrimaryPhotoURL(ctx context.Context, profileID int64) (string, error)
}

// DiscoverBackend is what the swipe deck needs
type DiscoverBackend interface {
	MatchBackend
	ListUsers(ctx context.Context) ([]*models.User, error)
	ListProfiles(ctx context.Context) ([]*models.Profile, error)
	SwipesByUser(ctx context.Context, userID int64) ([]*models.Swipe, error)
	CreateSwipe(ctx context.Context, swiperID, swipeeID int64, isLike bool) (*models.Swipe, error)
	PrimaryPhotoURL(ctx context.Context, profileID int64) (string, error)
}

// ProfileBackend is what the profile screen needs
type ProfileBackend interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, u upstream.UserUpdate) (*models.User, error)
	ProfileForUser(ctx context.Context, userID int64) (*models.Profile, error)
	CreateProfile(ctx context.Context, p *models.Profile) (*models.Profile, error)
	UpdateProfile(ctx context.Context, id int64, p *models.Profile) (*models.Profile, error)
	UpdateProfileLocation(ctx context.Context, id int64, loc upstream.Location) (*models.Profile, error)
	PhotosByProfile(ctx context.Context, profileID int64) ([]*models.Photo, error)
	UploadPhoto(ctx context.Context, profileID int64, isPrimary bool, filename string, r io.Reader) (*models.Photo, error)

	SkillsForUser(ctx context.Context, userID int64) ([]*models.Skill, error)
	CreateSkill(ctx context.Context, s *models.Skill) (*models.Skill, error)
	DeleteSkill(ctx context.Context, id int64) error
	InterestsForUser(ctx context.Context, userID int64) ([]*models.Interest, error)
	CreateInterest(ctx context.Context, in *models.Interest) (*models.Interest, error)
	DeleteInterest(ctx context.Context, id int64) error
	OrganizationsForUser(ctx context.Context, userID int64) ([]*models.Organization, error)
	CreateOrganization(ctx context.Context, o *models.Organization) (*models.Organization, error)
	DeleteOrganization(ctx context.Context, id int64) error
	LanguagesForUser(ctx context.Context, userID int64) ([]*models.Language, error)
	CreateLanguage(ctx context.Context, l *models.Language) (*models.Language, error)
	DeleteLanguage(ctx context.Context, id int64) error
}

// SessionStore persists signed-in users
type SessionStore interface {
	Upsert(ctx context.Context, s *models.Session) error
	GetByUserID(ctx context.Context, userID int64) (*models.Session, error)
	DeleteByUserID(ctx context.Context, userID int64) error
	UpdatePushToken(ctx context.Context, userID int64, pushToken *string) error
	SetLastConversation(ctx context.Context, userID int64, matchID *int64) error
	ListActive(ctx context.Context) ([]*models.Session, error)
}

// BadgeStore persists notification counters
type BadgeStore interface {
	Get(ctx context.Context, userID int64) (*notify.State, error)
	Save(ctx context.Context, userID int64, s notify.State) error
	Delete(ctx context.Context, userID int64) error
}

// UploadStore tracks staged photo uploads
type UploadStore interface {
	Create(ctx context.Context, u *models.StagedUpload) error
	GetByKey(ctx context.Context, key string) (*models.StagedUpload, error)
	MarkCompleted(ctx context.Context, key string, photoID int64, at time.Time) error
}

package services

import (
	"context"
	"fmt"

	"skillswap-gateway/internal/notify"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// APNsConfig holds token-based APNs credentials
type APNsConfig struct {
	KeyFile    string
	KeyID      string
	TeamID     string
	Topic      string
	Production bool
}

// apnsPusher is the part of *apns2.Client the push service uses
type apnsPusher interface {
	Push(n *apns2.Notification) (*apns2.Response, error)
}

// PushService sends badge alerts to users that are not connected
type PushService struct {
	client   apnsPusher
	topic    string
	sessions SessionStore
}

// NewPushService creates an APNs client from a .p8 auth key
func NewPushService(cfg APNsConfig, sessions SessionStore) (*PushService, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return newPushService(client, cfg.Topic, sessions), nil
}

func newPushService(client apnsPusher, topic string, sessions SessionStore) *PushService {
	return &PushService{
		client:   client,
		topic:    topic,
		sessions: sessions,
	}
}

// NotifyBadge alerts a user about new matches or messages. Users without a
// registered device are skipped.
func (s *PushService) NotifyBadge(ctx context.Context, userID int64, u notify.Update) error {
	sess, err := s.sessions.GetByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if sess.PushToken == nil || *sess.PushToken == "" {
		return nil
	}

	title, body := alertText(u)
	p := payload.NewPayload().
		AlertTitle(title).
		AlertBody(body).
		Badge(u.Counts.Total()).
		Sound("default").
		Custom("unread_matches", u.Counts.UnreadMatches).
		Custom("unread_messages", u.Counts.UnreadMessages)

	res, err := s.client.Push(&apns2.Notification{
		DeviceToken: *sess.PushToken,
		Topic:       s.topic,
		Payload:     p,
	})
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("apns rejected notification: %d %s", res.StatusCode, res.Reason)
	}

	log.Info().Int64("user_id", userID).Str("apns_id", res.ApnsID).Msg("Push notification sent")
	return nil
}

func alertText(u notify.Update) (string, string) {
	switch {
	case u.NewMatches == 1:
		return "New match!", "You have a new match. Say hello!"
	case u.NewMatches > 1:
		return "New matches!", fmt.Sprintf("You have %d new matches.", u.NewMatches)
	case u.NewUnread == 1:
		return "New message", "You have a new message."
	default:
		return "New messages", fmt.Sprintf("You have %d unread conversations.", u.Counts.UnreadMessages)
	}
}

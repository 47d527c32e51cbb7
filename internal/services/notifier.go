package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"firebase.google.com/go/messaging"

	"roomfinder/internal/models"
)

// Notification is a push message for every device of one user.
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

type Notifier interface {
	Notify(ctx context.Context, userID int, n Notification) error
}

// NopNotifier is used when push credentials are not configured.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, int, Notification) error { return nil }

// MessageSender is the part of *messaging.Client the notifier uses.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMNotifier pushes through Firebase Cloud Messaging to the tokens a user
// registered. Tokens reported as unregistered are dropped.
type FCMNotifier struct {
	sender MessageSender
	tokens DeviceTokenStore
	logger *slog.Logger
}

func NewFCMNotifier(sender MessageSender, tokens DeviceTokenStore, logger *slog.Logger) *FCMNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &FCMNotifier{sender: sender, tokens: tokens, logger: logger.With("component", "fcm")}
}

func buildMessage(token string, n Notification) *messaging.Message {
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: n.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority_channel",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority": "10",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: n.Title,
						Body:  n.Body,
					},
					Sound: "default",
				},
			},
		},
	}
}

// Notify sends n to every device of userID. It returns the first send error
// after trying all tokens.
func (f *FCMNotifier) Notify(ctx context.Context, userID int, n Notification) error {
	if userID <= 0 {
		return nil
	}
	tokens, err := f.tokens.TokensByUser(ctx, userID)
	if err != nil {
		return err
	}

	var firstErr error
	for _, token := range tokens {
		id, err := f.sender.Send(ctx, buildMessage(token, n))
		if err == nil {
			f.logger.Debug("push sent", "user_id", userID, "message_id", id)
			continue
		}
		if messaging.IsRegistrationTokenNotRegistered(err) {
			if derr := f.tokens.Delete(ctx, token); derr != nil {
				f.logger.Warn("drop stale token failed", "user_id", userID, "err", derr)
			}
			continue
		}
		f.logger.Error("push failed", "user_id", userID, "err", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeviceService registers push tokens.
type DeviceService struct {
	Tokens DeviceTokenStore
}

var validPlatforms = map[string]bool{"": true, "android": true, "ios": true, "web": true}

func (s *DeviceService) Register(ctx context.Context, sess models.Session, token, platform string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.ValidationError{"token": "Token is required"}
	}
	platform = strings.ToLower(strings.TrimSpace(platform))
	if !validPlatforms[platform] {
		return models.ValidationError{"platform": "Unknown platform"}
	}
	return s.Tokens.Upsert(ctx, models.DeviceToken{
		UserID:    sess.UserID(),
		Token:     token,
		Platform:  platform,
		UpdatedAt: time.Now().UTC(),
	})
}

// notifyAsync delivers a push without holding up the request that caused
// it. Failures are logged.
func notifyAsync(n Notifier, logger *slog.Logger, userID int, msg Notification) {
	if n == nil || userID <= 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := n.Notify(ctx, userID, msg); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("notification not delivered", "user_id", userID, "err", err)
		}
	}()
}

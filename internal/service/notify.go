package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flicky/go-marketplace-api/internal/model"
)

// Notification is one entry for the user-facing notification feed.
type Notification struct {
	Type      string
	Title     string
	Message   string
	RelatedID string
	Link      string
}

// NotificationSink delivers in-app notifications. Fire-and-forget: errors
// are logged by callers, never propagated.
type NotificationSink interface {
	Notify(ctx context.Context, userID uuid.UUID, n Notification) error
}

// EmailSink sends transactional order mail.
type EmailSink interface {
	SendOrderConfirmation(ctx context.Context, order *model.Order, user *model.User) error
	SendOrderDelivered(ctx context.Context, order *model.Order, user *model.User) error
}

const emailRetries = 2

// SendEmailWithRetry runs fn with bounded retries and increasing backoff,
// giving up silently after the last attempt. Respects the user's opt-out.
func SendEmailWithRetry(ctx context.Context, log *slog.Logger, user *model.User, kind string, fn func() error) {
	if user.EmailOptOut {
		return
	}
	backoff := time.Second
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return
		}
		if attempt >= emailRetries {
			log.Error("email delivery gave up", "kind", kind, "user_id", user.ID, "error", err)
			return
		}
		log.Warn("email delivery retry", "kind", kind, "attempt", attempt+1, "error", err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff *= 2
	}
}

// LogNotificationSink writes notifications to the log; the real push
// service plugs in behind the same interface.
type LogNotificationSink struct{ Log *slog.Logger }

func (s *LogNotificationSink) Notify(_ context.Context, userID uuid.UUID, n Notification) error {
	s.Log.Info("notification", "user_id", userID, "type", n.Type, "title", n.Title)
	return nil
}

// LogEmailSink logs instead of sending; the SMTP-backed sink plugs in
// behind the same interface.
type LogEmailSink struct{ Log *slog.Logger }

func (s *LogEmailSink) SendOrderConfirmation(_ context.Context, order *model.Order, user *model.User) error {
	s.Log.Info("order confirmation email", "order_code", order.OrderCode, "email", user.Email)
	return nil
}

func (s *LogEmailSink) SendOrderDelivered(_ context.Context, order *model.Order, user *model.User) error {
	s.Log.Info("order delivered email", "order_code", order.OrderCode, "email", user.Email)
	return nil
}

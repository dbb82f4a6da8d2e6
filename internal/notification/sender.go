package notification

import (
	"context"
	"errors"

	"alarmbell-backend/pkg/fcm"
	"alarmbell-backend/pkg/label"
	"alarmbell-backend/pkg/logger"
	"alarmbell-backend/pkg/notify"
)

// bodyMaxLength bounds notification bodies; most platforms truncate earlier.
const bodyMaxLength = 240

// Outcome is the result of one delivery attempt.
type Outcome int

const (
	OutcomeSent Outcome = iota
	OutcomeInvalidated
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeInvalidated:
		return "invalidated"
	default:
		return "failed"
	}
}

// Pusher delivers one message to one device token.
type Pusher interface {
	SendToDevice(ctx context.Context, token string, n fcm.NotificationData) (string, error)
}

// Sender turns a payload into a push message for a single recipient.
type Sender struct {
	pusher      Pusher
	invalidator *Invalidator
	appOrigin   string
	logger      *logger.Logger
}

func NewSender(pusher Pusher, invalidator *Invalidator, appOrigin string, log *logger.Logger) *Sender {
	return &Sender{pusher: pusher, invalidator: invalidator, appOrigin: appOrigin, logger: log}
}

// Send delivers p to r. Failures are classified and contained here; an
// unregistered token is cleared before Send returns.
func (s *Sender) Send(ctx context.Context, r Recipient, p notify.Payload) Outcome {
	title := label.Sanitize(p.Title)
	body := label.Text(p.Body, "", bodyMaxLength)

	data := p.WireData(r.UserID)
	data[notify.KeyTitle] = title
	target := notify.Route(p.Type, p.GroupID)
	data[notify.KeyURL] = target.Path

	messageID, err := s.pusher.SendToDevice(ctx, r.Token, fcm.NotificationData{
		Title: title,
		Body:  body,
		Data:  data,
		Tag:   p.Tag,
		Link:  s.appOrigin + target.Path,
	})
	if err == nil {
		s.logger.Debug("[FCM] Sent %s to user %s (%s)", p.Type, r.UserID, messageID)
		return OutcomeSent
	}

	if errors.Is(err, fcm.ErrUnregistered) {
		s.logger.Warn("[FCM] Token for user %s is no longer registered: %v", data[notify.KeyUserID], err)
		if s.invalidator != nil {
			_ = s.invalidator.Invalidate(ctx, data[notify.KeyUserID], r.Token)
		}
		return OutcomeInvalidated
	}

	s.logger.Error("[FCM] Error sending %s to user %s: %v", p.Type, r.UserID, err)
	return OutcomeFailed
}

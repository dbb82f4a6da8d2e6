// Package render turns a push message into a displayed notification. It
// tries progressively simpler strategies so that a message is never dropped
// because one field made the platform reject it.
package render

import (
	"context"
	"errors"
	"fmt"

	"alarmbell-backend/pkg/label"
	"alarmbell-backend/pkg/logger"
	"alarmbell-backend/pkg/notify"
)

// ErrAllTiersFailed is returned when even the minimal notification could not
// be shown.
var ErrAllTiersFailed = errors.New("all notification tiers failed")

const genericBody = "You have a new notification"

// Tier identifies which strategy produced the displayed notification.
type Tier int

const (
	TierRich Tier = iota
	TierDefaultTitle
	TierMinimal
)

func (t Tier) String() string {
	switch t {
	case TierRich:
		return "rich"
	case TierDefaultTitle:
		return "default_title"
	case TierMinimal:
		return "minimal"
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// Notification is what a Displayer puts on screen.
type Notification struct {
	Title              string            `json:"title"`
	Body               string            `json:"body"`
	Icon               string            `json:"icon,omitempty"`
	Tag                string            `json:"tag,omitempty"`
	RequireInteraction bool              `json:"requireInteraction"`
	Data               map[string]string `json:"data,omitempty"`
	Target             notify.Target     `json:"target"`
}

// Displayer shows one notification on the platform.
type Displayer interface {
	Show(ctx context.Context, n Notification) error
}

// DisplayFunc adapts a function to Displayer.
type DisplayFunc func(ctx context.Context, n Notification) error

func (f DisplayFunc) Show(ctx context.Context, n Notification) error { return f(ctx, n) }

// Strategy builds a notification from a message. Build must not fail; the
// platform decides whether the result is acceptable.
type Strategy struct {
	Tier  Tier
	Build func(msg notify.PushMessage) Notification
}

// Result reports what was finally shown.
type Result struct {
	Tier         Tier
	Notification Notification
}

// Renderer runs the strategies in order until one is displayed.
type Renderer struct {
	display    Displayer
	strategies []Strategy
	logger     *logger.Logger
}

// New builds a renderer with the rich, default-title and minimal tiers.
func New(display Displayer, icon string, log *logger.Logger) *Renderer {
	return NewWithStrategies(display, log,
		Strategy{Tier: TierRich, Build: func(msg notify.PushMessage) Notification { return Rich(msg, icon) }},
		Strategy{Tier: TierDefaultTitle, Build: func(msg notify.PushMessage) Notification { return DefaultTitle(msg, icon) }},
		Strategy{Tier: TierMinimal, Build: Minimal},
	)
}

// NewWithStrategies builds a renderer with a custom strategy order.
func NewWithStrategies(display Displayer, log *logger.Logger, strategies ...Strategy) *Renderer {
	return &Renderer{display: display, strategies: strategies, logger: log}
}

// Render shows msg using the first strategy the platform accepts.
func (r *Renderer) Render(ctx context.Context, msg notify.PushMessage) (Result, error) {
	var errs []error
	for _, s := range r.strategies {
		n := s.Build(msg)
		err := r.display.Show(ctx, n)
		if err == nil {
			if s.Tier != TierRich {
				r.logger.Warn("[Render] Shown with %s tier after %d failure(s)", s.Tier, len(errs))
			}
			return Result{Tier: s.Tier, Notification: n}, nil
		}
		r.logger.Warn("[Render] %s tier failed: %v", s.Tier, err)
		errs = append(errs, fmt.Errorf("%s: %w", s.Tier, err))
		if ctx.Err() != nil {
			break
		}
	}
	r.logger.Error("[Render] Notification dropped: %v", errors.Join(errs...))
	return Result{}, fmt.Errorf("%w: %v", ErrAllTiersFailed, errors.Join(errs...))
}

// Title picks notification.title, then data.title, then data.label, then
// the default label. The result is always sanitized.
func Title(msg notify.PushMessage) string {
	var candidates []string
	if msg.Notification != nil {
		candidates = append(candidates, msg.Notification.Title)
	}
	candidates = append(candidates, msg.Field(notify.KeyTitle), msg.Field(notify.KeyLabel))
	for _, c := range candidates {
		if t := label.Text(c, "", label.MaxLength); t != "" {
			return t
		}
	}
	return label.DefaultLabel
}

// Body picks notification.body, then data.body.
func Body(msg notify.PushMessage) string {
	if msg.Notification != nil && msg.Notification.Body != "" {
		return msg.Notification.Body
	}
	return msg.Field(notify.KeyBody)
}

// ClickTarget derives the click target from the routing fields.
func ClickTarget(msg notify.PushMessage) notify.Target {
	return notify.Route(notify.Type(msg.Field(notify.KeyType)), msg.Field(notify.KeyGroupID))
}

// Rich keeps every piece of context the message carries.
func Rich(msg notify.PushMessage, icon string) Notification {
	target := ClickTarget(msg)
	data := make(map[string]string, len(msg.Data)+1)
	for k, v := range msg.Data {
		data[k] = v
	}
	data[notify.KeyURL] = target.Path

	return Notification{
		Title:              Title(msg),
		Body:               Body(msg),
		Icon:               icon,
		Tag:                tagFor(msg),
		RequireInteraction: true,
		Data:               data,
		Target:             target,
	}
}

// DefaultTitle replaces the title with the default label and keeps the
// computed one under originalTitle.
func DefaultTitle(msg notify.PushMessage, icon string) Notification {
	n := Rich(msg, icon)
	n.Data[notify.KeyOriginalTitle] = n.Title
	n.Title = label.DefaultLabel
	return n
}

// Minimal carries nothing from the message except the click target.
func Minimal(msg notify.PushMessage) Notification {
	return Notification{
		Title:  label.DefaultLabel,
		Body:   genericBody,
		Target: ClickTarget(msg),
	}
}

func tagFor(msg notify.PushMessage) string {
	typ := notify.Type(msg.Field(notify.KeyType))
	if id := msg.Field(notify.KeyAlarmID); id != "" && typ.Valid() {
		return notify.TagFor(typ, id)
	}
	return msg.MessageID
}

package foreground

import (
	"context"

	"alarmbell-backend/internal/render"
	"alarmbell-backend/pkg/logger"
	"alarmbell-backend/pkg/notify"
)

// Router handles frames from the agent while the UI is focused. Pushes go
// through the same renderer the agent uses, so titles match.
type Router struct {
	renderer *render.Renderer
	pinger   *Pinger
	navigate func(notify.Navigate)
	logger   *logger.Logger
}

func NewRouter(renderer *render.Renderer, pinger *Pinger, navigate func(notify.Navigate), log *logger.Logger) *Router {
	return &Router{renderer: renderer, pinger: pinger, navigate: navigate, logger: log}
}

// HandleControl dispatches one agent frame.
func (r *Router) HandleControl(ctx context.Context, c notify.Control) {
	switch c.Type {
	case notify.MsgPush:
		if c.Push == nil {
			r.logger.Warn("[Foreground] PUSH frame without a message")
			return
		}
		_, _ = r.HandlePush(ctx, *c.Push)
	case notify.MsgKeepAliveAck:
		if r.pinger != nil {
			r.pinger.HandleAck(c)
		}
	case notify.MsgNavigate:
		if r.navigate != nil {
			r.navigate(notify.Navigate{Type: c.Type, GroupID: c.GroupID, Action: c.Action})
		}
	default:
		r.logger.Debug("[Foreground] Ignoring %s frame", c.Type)
	}
}

// HandlePush renders a message received in the foreground.
func (r *Router) HandlePush(ctx context.Context, msg notify.PushMessage) (render.Result, error) {
	res, err := r.renderer.Render(ctx, msg)
	if err != nil {
		r.logger.Error("[Foreground] Push %s not shown: %v", msg.MessageID, err)
		return res, err
	}
	r.logger.Debug("[Foreground] Push %s shown with %s tier", msg.MessageID, res.Tier)
	return res, nil
}

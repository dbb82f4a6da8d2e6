// Package agent is the on-device background agent. It receives pushes while
// no UI instance is focused, renders them through the tiered renderer and
// routes notification clicks back to a UI window.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"alarmbell-backend/internal/render"
	"alarmbell-backend/pkg/logger"
	"alarmbell-backend/pkg/notify"
)

var (
	ErrNotActive    = errors.New("agent is not active")
	ErrShuttingDown = errors.New("agent is shutting down")
)

// PushResult says what the agent did with one push.
type PushResult struct {
	ForwardedTo string      `json:"forwardedTo,omitempty"`
	Rendered    bool        `json:"rendered"`
	Tier        render.Tier `json:"tier"`
}

// ClickResult says which window received the navigation.
type ClickResult struct {
	ClientID string        `json:"clientId"`
	Opened   bool          `json:"opened"`
	Target   notify.Target `json:"target"`
}

type Agent struct {
	lifecycle *Lifecycle
	clients   *Clients
	cache     *AlarmCache
	renderer  *render.Renderer
	host      Host
	origin    string
	now       func() time.Time
	logger    *logger.Logger

	mu       sync.RWMutex
	closing  bool
	inflight sync.WaitGroup
}

func New(host Host, renderer *render.Renderer, origin string, log *logger.Logger) *Agent {
	return &Agent{
		lifecycle: NewLifecycle(),
		clients:   NewClients(),
		cache:     NewAlarmCache(),
		renderer:  renderer,
		host:      host,
		origin:    origin,
		now:       time.Now,
		logger:    log,
	}
}

func (a *Agent) Lifecycle() *Lifecycle { return a.lifecycle }
func (a *Agent) Clients() *Clients     { return a.clients }
func (a *Agent) Cache() *AlarmCache    { return a.cache }

// Start activates without waiting for a previous agent and claims every
// connected client.
func (a *Agent) Start() {
	a.lifecycle.SkipWaiting()
	if !a.lifecycle.Activate() {
		return
	}
	n := a.clients.Claim()
	a.logger.Info("[Agent] Activated, controlling %d client(s)", n)
}

// OnPush handles one received push. With a focused UI instance the message
// is forwarded and the agent shows nothing; otherwise it renders before
// returning. Shutdown waits for renders already in progress.
func (a *Agent) OnPush(ctx context.Context, msg notify.PushMessage) (PushResult, error) {
	if !a.track() {
		return PushResult{}, ErrShuttingDown
	}
	defer a.inflight.Done()

	if a.lifecycle.State() != StateActivated {
		return PushResult{}, ErrNotActive
	}
	msg = a.withCachedLabel(msg)

	if c, ok := a.clients.Focused(); ok {
		err := a.clients.Post(c.ID, notify.Control{Type: notify.MsgPush, Push: &msg})
		if err == nil {
			a.logger.Debug("[Agent] Forwarded push %s to focused client %s", msg.MessageID, c.ID)
			return PushResult{ForwardedTo: c.ID}, nil
		}
		a.logger.Warn("[Agent] Forward to %s failed, rendering instead: %v", c.ID, err)
	}

	res, err := a.renderer.Render(context.WithoutCancel(ctx), msg)
	if err != nil {
		return PushResult{}, err
	}
	return PushResult{Rendered: true, Tier: res.Tier}, nil
}

// HandleControl applies one frame from a UI instance and returns the reply,
// if any.
func (a *Agent) HandleControl(clientID string, c notify.Control) (*notify.Control, error) {
	switch c.Type {
	case notify.MsgCacheAlarms:
		a.cache.Replace(c.Alarms)
		a.logger.Debug("[Agent] Cached %d alarm(s) from %s", a.cache.Len(), clientID)
		return nil, nil
	case notify.MsgKeepAlive:
		ack := notify.KeepAliveAck(a.now())
		return &ack, nil
	case notify.MsgSkipWaiting:
		a.Start()
		return nil, nil
	case notify.MsgFocus:
		focused := true
		if c.Focused != nil {
			focused = *c.Focused
		}
		a.clients.SetFocus(clientID, focused, c.URL)
		return nil, nil
	}
	return nil, fmt.Errorf("unknown control type %q", c.Type)
}

// OnNotificationClick focuses a window on the app origin, or opens one at the
// click target, and tells it where to navigate.
func (a *Agent) OnNotificationClick(ctx context.Context, data map[string]string) (ClickResult, error) {
	if !a.track() {
		return ClickResult{}, ErrShuttingDown
	}
	defer a.inflight.Done()

	target := notify.Route(notify.Type(data[notify.KeyType]), data[notify.KeyGroupID])
	nav := target.Navigate()

	if c, ok := a.clients.MatchOrigin(a.origin); ok {
		if err := a.host.Focus(ctx, c.ID); err != nil {
			a.logger.Warn("[Agent] Focus %s failed: %v", c.ID, err)
		}
		if err := a.clients.Post(c.ID, nav.Control()); err != nil {
			return ClickResult{}, fmt.Errorf("navigate %s: %w", c.ID, err)
		}
		return ClickResult{ClientID: c.ID, Target: target}, nil
	}

	id, err := a.host.OpenWindow(ctx, a.origin+target.Path)
	if err != nil {
		return ClickResult{}, fmt.Errorf("open window: %w", err)
	}
	a.clients.QueueNavigate(id, nav)
	return ClickResult{ClientID: id, Opened: true, Target: target}, nil
}

// Shutdown stops accepting work and waits for in-flight renders.
func (a *Agent) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	a.closing = true
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.inflight.Wait()
		close(done)
	}()

	defer a.lifecycle.Retire()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Agent) track() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closing {
		return false
	}
	a.inflight.Add(1)
	return true
}

// withCachedLabel fills data.label from the alarm cache when the message
// has no title of its own.
func (a *Agent) withCachedLabel(msg notify.PushMessage) notify.PushMessage {
	if msg.Field(notify.KeyLabel) != "" || msg.Field(notify.KeyTitle) != "" {
		return msg
	}
	if msg.Notification != nil && msg.Notification.Title != "" {
		return msg
	}
	cached, ok := a.cache.Lookup(msg.Field(notify.KeyAlarmID))
	if !ok || cached.Label == "" {
		return msg
	}

	data := make(map[string]string, len(msg.Data)+1)
	for k, v := range msg.Data {
		data[k] = v
	}
	data[notify.KeyLabel] = cached.Label
	msg.Data = data
	return msg
}

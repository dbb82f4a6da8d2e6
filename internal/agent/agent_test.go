package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"alarmbell-backend/internal/render"
	"alarmbell-backend/pkg/logger"
	"alarmbell-backend/pkg/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	mu       sync.Mutex
	shown    []render.Notification
	showErrs int
	focused  []string
	opened   []string
	entered  chan struct{}
	block    chan struct{}
}

func (h *fakeHost) Show(ctx context.Context, n render.Notification) error {
	if h.block != nil {
		if h.entered != nil {
			h.entered <- struct{}{}
		}
		<-h.block
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shown = append(h.shown, n)
	if h.showErrs > 0 {
		h.showErrs--
		return errors.New("rejected")
	}
	return nil
}

func (h *fakeHost) OpenWindow(ctx context.Context, url string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opened = append(h.opened, url)
	return "win-1", nil
}

func (h *fakeHost) Focus(ctx context.Context, clientID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.focused = append(h.focused, clientID)
	return nil
}

type recordingConn struct {
	mu     sync.Mutex
	frames []notify.Control
	err    error
}

func (c *recordingConn) Send(f notify.Control) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *recordingConn) Frames() []notify.Control {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]notify.Control(nil), c.frames...)
}

func newTestAgent(host *fakeHost) *Agent {
	r := render.New(host, "/icon.png", logger.Discard())
	a := New(host, r, "http://localhost:3000", logger.Discard())
	a.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return a
}

func TestLifecycle(t *testing.T) {
	l := NewLifecycle()
	assert.Equal(t, StateInstalling, l.State())

	l.SkipWaiting()
	assert.Equal(t, StateActivating, l.State())
	assert.True(t, l.Activate())
	assert.Equal(t, StateActivated, l.State())

	l.Retire()
	assert.Equal(t, StateRedundant, l.State())
	assert.False(t, l.Activate())
	l.SkipWaiting()
	assert.Equal(t, StateRedundant, l.State())
}

func TestStart_ClaimsExistingAndLaterClients(t *testing.T) {
	a := newTestAgent(&fakeHost{})
	a.Clients().Register("c1", "http://localhost:3000/alarms", &recordingConn{})

	a.Start()
	assert.Equal(t, StateActivated, a.Lifecycle().State())

	a.Clients().SetFocus("c1", true, "")
	c, ok := a.Clients().Focused()
	require.True(t, ok)
	assert.True(t, c.Controlled)

	late := a.Clients().Register("c2", "http://localhost:3000/alarms", &recordingConn{})
	assert.True(t, late.Controlled)
}

func TestOnPush_RendersWhenNoClientFocused(t *testing.T) {
	host := &fakeHost{}
	a := newTestAgent(host)
	a.Start()

	res, err := a.OnPush(context.Background(), notify.PushMessage{
		Data: map[string]string{"label": "  Team  Sync  ", "type": "personal_alarm", "groupId": ""},
	})
	require.NoError(t, err)

	assert.True(t, res.Rendered)
	assert.Equal(t, render.TierRich, res.Tier)
	require.Len(t, host.shown, 1)
	assert.Equal(t, "Team Sync", host.shown[0].Title)
}

func TestOnPush_RetriesWithDefaultTitle(t *testing.T) {
	host := &fakeHost{showErrs: 1}
	a := newTestAgent(host)
	a.Start()

	res, err := a.OnPush(context.Background(), notify.PushMessage{Data: map[string]string{"label": "Gym"}})
	require.NoError(t, err)

	assert.Equal(t, render.TierDefaultTitle, res.Tier)
	require.Len(t, host.shown, 2)
	assert.Equal(t, "Alarm", host.shown[1].Title)
}

func TestOnPush_ForwardsToFocusedClient(t *testing.T) {
	host := &fakeHost{}
	a := newTestAgent(host)
	conn := &recordingConn{}
	a.Clients().Register("c1", "http://localhost:3000/alarms", conn)
	a.Start()
	_, err := a.HandleControl("c1", notify.Control{Type: notify.MsgFocus})
	require.NoError(t, err)

	res, err := a.OnPush(context.Background(), notify.PushMessage{MessageID: "m1", Data: map[string]string{"label": "Gym"}})
	require.NoError(t, err)

	assert.Equal(t, "c1", res.ForwardedTo)
	assert.False(t, res.Rendered)
	assert.Empty(t, host.shown)
	frames := conn.Frames()
	require.Len(t, frames, 1)
	assert.Equal(t, notify.MsgPush, frames[0].Type)
	assert.Equal(t, "m1", frames[0].Push.MessageID)
}

func TestOnPush_RendersWhenForwardFails(t *testing.T) {
	host := &fakeHost{}
	a := newTestAgent(host)
	a.Clients().Register("c1", "http://localhost:3000/alarms", &recordingConn{err: errors.New("closed")})
	a.Start()
	a.Clients().SetFocus("c1", true, "")

	res, err := a.OnPush(context.Background(), notify.PushMessage{Data: map[string]string{"label": "Gym"}})
	require.NoError(t, err)
	assert.True(t, res.Rendered)
	assert.Len(t, host.shown, 1)
}

func TestOnPush_BeforeActivation(t *testing.T) {
	a := newTestAgent(&fakeHost{})
	_, err := a.OnPush(context.Background(), notify.PushMessage{})
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestOnPush_FillsLabelFromCache(t *testing.T) {
	host := &fakeHost{}
	a := newTestAgent(host)
	a.Start()
	_, err := a.HandleControl("c1", notify.Control{
		Type:   notify.MsgCacheAlarms,
		Alarms: []notify.CachedAlarm{{ID: "a1", Label: "Morning run"}},
	})
	require.NoError(t, err)

	_, err = a.OnPush(context.Background(), notify.PushMessage{Data: map[string]string{"alarmId": "a1"}})
	require.NoError(t, err)
	require.Len(t, host.shown, 1)
	assert.Equal(t, "Morning run", host.shown[0].Title)
}

func TestAlarmCache_ReplacedWholesale(t *testing.T) {
	c := NewAlarmCache()
	c.Replace([]notify.CachedAlarm{{ID: "a1", Label: "One"}, {ID: "a2", Label: "Two"}})
	c.Replace([]notify.CachedAlarm{{ID: "a3", Label: "Three"}})

	_, ok := c.Lookup("a1")
	assert.False(t, ok)
	got, ok := c.Lookup("a3")
	require.True(t, ok)
	assert.Equal(t, "Three", got.Label)
	assert.Equal(t, 1, c.Len())
}

func TestHandleControl(t *testing.T) {
	a := newTestAgent(&fakeHost{})

	reply, err := a.HandleControl("c1", notify.Control{Type: notify.MsgKeepAlive, Timestamp: 1})
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, notify.MsgKeepAliveAck, reply.Type)
	assert.Equal(t, int64(1700000000000), reply.Timestamp)

	reply, err = a.HandleControl("c1", notify.Control{Type: notify.MsgSkipWaiting})
	require.NoError(t, err)
	assert.Nil(t, reply)
	assert.Equal(t, StateActivated, a.Lifecycle().State())

	_, err = a.HandleControl("c1", notify.Control{Type: "BOGUS"})
	assert.Error(t, err)
}

func TestOnNotificationClick_FocusesMatchingClient(t *testing.T) {
	host := &fakeHost{}
	a := newTestAgent(host)
	other := &recordingConn{}
	conn := &recordingConn{}
	a.Clients().Register("a-other", "http://elsewhere.test/", other)
	a.Clients().Register("b-app", "http://localhost:3000/alarms", conn)
	a.Start()

	res, err := a.OnNotificationClick(context.Background(), map[string]string{"type": "join_request", "groupId": "g1"})
	require.NoError(t, err)

	assert.Equal(t, "b-app", res.ClientID)
	assert.False(t, res.Opened)
	assert.Equal(t, []string{"b-app"}, host.focused)
	assert.Empty(t, host.opened)
	frames := conn.Frames()
	require.Len(t, frames, 1)
	assert.Equal(t, notify.MsgNavigate, frames[0].Type)
	assert.Equal(t, notify.ActionShowPending, frames[0].Action)
	assert.Equal(t, "g1", frames[0].GroupID)
	assert.Empty(t, other.Frames())
}

func TestOnNotificationClick_OpensWindowAndNavigatesOnConnect(t *testing.T) {
	host := &fakeHost{}
	a := newTestAgent(host)
	a.Start()

	res, err := a.OnNotificationClick(context.Background(), map[string]string{"type": "group_alarm", "groupId": "g1"})
	require.NoError(t, err)

	assert.True(t, res.Opened)
	assert.Equal(t, []string{"http://localhost:3000/groups/g1"}, host.opened)

	conn := &recordingConn{}
	a.Clients().Register("win-1", "http://localhost:3000/groups/g1", conn)
	frames := conn.Frames()
	require.Len(t, frames, 1)
	assert.Equal(t, notify.ActionShowGroup, frames[0].Action)
}

func TestOnNotificationClick_MissingGroupFallsBackToPersonal(t *testing.T) {
	host := &fakeHost{}
	a := newTestAgent(host)
	a.Start()

	res, err := a.OnNotificationClick(context.Background(), map[string]string{"type": "member_left"})
	require.NoError(t, err)
	assert.Equal(t, notify.ActionShowPersonal, res.Target.Action)
	assert.Equal(t, []string{"http://localhost:3000/alarms"}, host.opened)
}

func TestShutdown_WaitsForInFlightRender(t *testing.T) {
	host := &fakeHost{entered: make(chan struct{}, 1), block: make(chan struct{})}
	a := newTestAgent(host)
	a.Start()

	done := make(chan error, 1)
	go func() {
		_, err := a.OnPush(context.Background(), notify.PushMessage{Data: map[string]string{"label": "Gym"}})
		done <- err
	}()
	<-host.entered

	shutdown := make(chan error, 1)
	go func() { shutdown <- a.Shutdown(context.Background()) }()

	select {
	case <-shutdown:
		t.Fatal("shutdown returned before the render finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(host.block)
	require.NoError(t, <-done)
	require.NoError(t, <-shutdown)
	assert.Equal(t, StateRedundant, a.Lifecycle().State())

	_, err := a.OnPush(context.Background(), notify.PushMessage{})
	assert.ErrorIs(t, err, ErrShuttingDown)
}

func TestShutdown_HonoursDeadline(t *testing.T) {
	host := &fakeHost{entered: make(chan struct{}, 1), block: make(chan struct{})}
	defer close(host.block)
	a := newTestAgent(host)
	a.Start()

	go func() { _, _ = a.OnPush(context.Background(), notify.PushMessage{}) }()
	<-host.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, a.Shutdown(ctx), context.DeadlineExceeded)
}

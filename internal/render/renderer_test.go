package render

import (
	"context"
	"errors"
	"testing"

	"alarmbell-backend/pkg/logger"
	"alarmbell-backend/pkg/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyDisplay rejects the first failures calls.
type flakyDisplay struct {
	failures int
	shown    []Notification
}

func (d *flakyDisplay) Show(_ context.Context, n Notification) error {
	d.shown = append(d.shown, n)
	if len(d.shown) <= d.failures {
		return errors.New("platform rejected notification")
	}
	return nil
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name string
		msg  notify.PushMessage
		want string
	}{
		{"label only, no notification block", notify.PushMessage{Data: map[string]string{"label": "  Team  Sync  "}}, "Team Sync"},
		{"empty data", notify.PushMessage{Data: map[string]string{}}, "Alarm"},
		{"nil data", notify.PushMessage{}, "Alarm"},
		{"notification title wins", notify.PushMessage{
			Notification: &notify.Notice{Title: "Standup"},
			Data:         map[string]string{"title": "Other", "label": "Third"},
		}, "Standup"},
		{"blank notification title falls through", notify.PushMessage{
			Notification: &notify.Notice{Title: "   "},
			Data:         map[string]string{"title": "From data"},
		}, "From data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Title(tt.msg))
		})
	}
}

func TestRender_RichFirst(t *testing.T) {
	display := &flakyDisplay{}
	r := New(display, "/icon.png", logger.Discard())

	msg := notify.PushMessage{
		Notification: &notify.Notice{Title: "Standup · Climbers", Body: "Alarm scheduled"},
		Data:         map[string]string{"type": "group_alarm", "groupId": "g1", "alarmId": "a1"},
	}
	res, err := r.Render(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, TierRich, res.Tier)
	assert.Len(t, display.shown, 1)
	n := res.Notification
	assert.Equal(t, "Standup · Climbers", n.Title)
	assert.Equal(t, "Alarm scheduled", n.Body)
	assert.Equal(t, "/icon.png", n.Icon)
	assert.Equal(t, "group_alarm:a1", n.Tag)
	assert.True(t, n.RequireInteraction)
	assert.Equal(t, "/groups/g1", n.Data["url"])
	assert.Equal(t, notify.ActionShowGroup, n.Target.Action)
}

func TestRender_FallsBackToDefaultTitle(t *testing.T) {
	display := &flakyDisplay{failures: 1}
	r := New(display, "", logger.Discard())

	res, err := r.Render(context.Background(), notify.PushMessage{Data: map[string]string{"label": "Gym"}})
	require.NoError(t, err)

	require.Len(t, display.shown, 2)
	assert.Equal(t, "Gym", display.shown[0].Title)
	assert.Equal(t, TierDefaultTitle, res.Tier)
	assert.Equal(t, "Alarm", display.shown[1].Title)
	assert.Equal(t, "Gym", display.shown[1].Data["originalTitle"])
}

func TestRender_MinimalTier(t *testing.T) {
	display := &flakyDisplay{failures: 2}
	r := New(display, "/icon.png", logger.Discard())

	res, err := r.Render(context.Background(), notify.PushMessage{
		Data: map[string]string{"type": "join_request", "groupId": "g9", "label": "x"},
	})
	require.NoError(t, err)

	assert.Equal(t, TierMinimal, res.Tier)
	assert.Equal(t, "Alarm", res.Notification.Title)
	assert.Empty(t, res.Notification.Icon)
	assert.Empty(t, res.Notification.Data)
	assert.Equal(t, "/groups/g9/pending", res.Notification.Target.Path)
}

func TestRender_AllTiersFail(t *testing.T) {
	display := &flakyDisplay{failures: 3}
	r := New(display, "", logger.Discard())

	_, err := r.Render(context.Background(), notify.PushMessage{})
	assert.ErrorIs(t, err, ErrAllTiersFailed)
	assert.Len(t, display.shown, 3)
}

func TestRender_CustomStrategies(t *testing.T) {
	var shown []string
	display := DisplayFunc(func(_ context.Context, n Notification) error {
		shown = append(shown, n.Title)
		return nil
	})
	r := NewWithStrategies(display, logger.Discard(), Strategy{Tier: TierMinimal, Build: Minimal})

	res, err := r.Render(context.Background(), notify.PushMessage{})
	require.NoError(t, err)
	assert.Equal(t, TierMinimal, res.Tier)
	assert.Equal(t, []string{"Alarm"}, shown)
}

func TestTier_String(t *testing.T) {
	assert.Equal(t, "rich", TierRich.String())
	assert.Equal(t, "default_title", TierDefaultTitle.String())
	assert.Equal(t, "minimal", TierMinimal.String())
}

package delivery

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"alarmbell-backend/internal/alarm/domain"
	"alarmbell-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAlarmRepo struct {
	alarms map[string][]domain.Alarm
}

func (s *stubAlarmRepo) Create(context.Context, *domain.Alarm) error { return nil }

func (s *stubAlarmRepo) FindByID(context.Context, string) (*domain.Alarm, error) { return nil, nil }

func (s *stubAlarmRepo) FindVisibleToUser(_ context.Context, userID string) ([]domain.Alarm, error) {
	return s.alarms[userID], nil
}

func TestStreamAlarms_SendsSnapshots(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &stubAlarmRepo{alarms: map[string][]domain.Alarm{
		"u1": {{ID: "a1", Label: "Wake", Active: true}},
	}}
	h := NewSyncHandler(repo, 20*time.Millisecond, logger.Discard())

	r := gin.New()
	r.GET("/api/sync/alarms", func(c *gin.Context) {
		c.Set("userID", c.Query("user"))
		c.Next()
	}, h.StreamAlarms)

	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sync/alarms?user=u1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 2; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var snap domain.Snapshot
		require.NoError(t, conn.ReadJSON(&snap))
		require.Len(t, snap.Alarms, 1)
		assert.Equal(t, "a1", snap.Alarms[0].ID)
		assert.False(t, snap.SentAt.IsZero())
	}
}

func TestStreamAlarms_EmptySetIsArray(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewSyncHandler(&stubAlarmRepo{}, time.Hour, logger.Discard())

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { c.Set("userID", "nobody") }, h.StreamAlarms)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"alarms":[]`)
}

func TestStreamAlarms_RequiresUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewSyncHandler(&stubAlarmRepo{}, time.Hour, logger.Discard())

	r := gin.New()
	r.GET("/ws", h.StreamAlarms)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ws", nil))

	assert.Equal(t, 401, w.Code)
}

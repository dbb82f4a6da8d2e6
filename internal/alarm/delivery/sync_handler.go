package delivery

import (
	"context"
	"net/http"
	"time"

	"alarmbell-backend/internal/alarm/domain"
	"alarmbell-backend/internal/alarm/repository"
	"alarmbell-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SyncHandler streams alarm snapshots to on-device mirrors
type SyncHandler struct {
	alarmRepo repository.AlarmRepository
	interval  time.Duration
	logger    *logger.Logger
}

func NewSyncHandler(alarmRepo repository.AlarmRepository, interval time.Duration, logger *logger.Logger) *SyncHandler {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &SyncHandler{
		alarmRepo: alarmRepo,
		interval:  interval,
		logger:    logger,
	}
}

// StreamAlarms sends a snapshot on connect and then every interval until the
// client goes away.
// GET /api/sync/alarms
func (h *SyncHandler) StreamAlarms(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("[Sync] Failed to upgrade connection to WebSocket: %v", err)
		return
	}
	defer conn.Close()

	h.logger.Info("[Sync] Stream opened for user %s", userID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Client frames carry nothing; reading keeps ping/close handling alive.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		if err := h.sendSnapshot(ctx, conn, userID); err != nil {
			h.logger.Warn("[Sync] Write failed for user %s: %v", userID, err)
			break
		}

		select {
		case <-ctx.Done():
			h.logger.Info("[Sync] Stream closed for user %s", userID)
			return
		case <-ticker.C:
		}
	}
}

func (h *SyncHandler) sendSnapshot(ctx context.Context, conn *websocket.Conn, userID string) error {
	alarms, err := h.alarmRepo.FindVisibleToUser(ctx, userID)
	if err != nil {
		// Keep the stream open; the next tick tries again.
		h.logger.Error("[Sync] Error loading alarms for user %s: %v", userID, err)
		return nil
	}
	if alarms == nil {
		alarms = []domain.Alarm{}
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(domain.Snapshot{Alarms: alarms, SentAt: time.Now().UTC()})
}

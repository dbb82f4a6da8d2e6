package delivery

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"alarmbell-backend/internal/notification"
	"alarmbell-backend/pkg/queue"

	"github.com/gin-gonic/gin"
)

const maxEventBytes = 1 << 20

// EventHandler accepts record events over HTTP
type EventHandler struct {
	intake *notification.Intake
	token  string
}

// NewEventHandler creates a new EventHandler; an empty token disables the endpoint
func NewEventHandler(intake *notification.Intake, token string) *EventHandler {
	return &EventHandler{intake: intake, token: token}
}

// RequireInternalToken guards the internal endpoints with X-Internal-Token
func (h *EventHandler) RequireInternalToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.token == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "internal events are disabled"})
			c.Abort()
			return
		}
		got := c.GetHeader("X-Internal-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid internal token"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// PostEvent dispatches one record event and reports what happened
// POST /api/internal/events
func (h *EventHandler) PostEvent(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.intake.ProcessRaw(c.Request.Context(), raw)
	if err != nil {
		if errors.Is(err, queue.ErrMalformed) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		// The event is not retried; the caller only learns it failed.
		c.JSON(http.StatusAccepted, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"handler":     report.Handler,
		"discarded":   report.Discarded,
		"recipients":  report.Recipients,
		"sent":        report.Sent,
		"skipped":     report.Skipped,
		"invalidated": report.Invalidated,
		"failed":      report.Failed,
	})
}

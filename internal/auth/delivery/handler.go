package delivery

import (
	"errors"
	"net/http"

	authdto "alarmbell-backend/internal/auth/dto"
	"alarmbell-backend/internal/auth/usecase"

	"github.com/gin-gonic/gin"
)

// PushTokenHandler handles push token registration requests
type PushTokenHandler struct {
	authUsecase usecase.AuthUsecase
}

// NewPushTokenHandler creates a new PushTokenHandler
func NewPushTokenHandler(authUsecase usecase.AuthUsecase) *PushTokenHandler {
	return &PushTokenHandler{
		authUsecase: authUsecase,
	}
}

// RegisterPushToken stores the caller's device token (last write wins)
// PUT /api/push-token
func (h *PushTokenHandler) RegisterPushToken(c *gin.Context) {
	userID := c.GetString("userID")

	var req authdto.PushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.authUsecase.RegisterPushToken(c.Request.Context(), userID, req.Token)
	if err != nil {
		if errors.Is(err, usecase.ErrEmptyPushToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save push token"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UnregisterPushToken clears the caller's device token
// DELETE /api/push-token
func (h *PushTokenHandler) UnregisterPushToken(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.authUsecase.UnregisterPushToken(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear push token"})
		return
	}

	c.Status(http.StatusNoContent)
}

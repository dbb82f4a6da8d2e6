package api

import (
	"net/http"

	alarmDelivery "alarmbell-backend/internal/alarm/delivery"
	"alarmbell-backend/internal/auth/delivery"
	authUsecase "alarmbell-backend/internal/auth/usecase"
	notificationDelivery "alarmbell-backend/internal/notification/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authUsecase authUsecase.AuthUsecase, syncHandler *alarmDelivery.SyncHandler, eventHandler *notificationDelivery.EventHandler) {
	pushTokenHandler := delivery.NewPushTokenHandler(authUsecase)

	api := r.Group("/api")
	{
		// Health check (no auth required); client connection monitors probe it
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Push token routes (protected)
		pushToken := api.Group("/push-token")
		pushToken.Use(delivery.AuthMiddleware(authUsecase))
		{
			pushToken.PUT("", pushTokenHandler.RegisterPushToken)
			pushToken.DELETE("", pushTokenHandler.UnregisterPushToken)
		}

		// Alarm sync stream (protected, WebSocket)
		if syncHandler != nil {
			api.GET("/sync/alarms", delivery.AuthMiddleware(authUsecase), syncHandler.StreamAlarms)
		}

		// Record events from the data layer
		if eventHandler != nil {
			internal := api.Group("/internal")
			internal.Use(eventHandler.RequireInternalToken())
			{
				internal.POST("/events", eventHandler.PostEvent)
			}
		}
	}
}

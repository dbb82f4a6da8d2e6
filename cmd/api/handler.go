package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	alarmDelivery "alarmbell-backend/internal/alarm/delivery"
	authUsecase "alarmbell-backend/internal/auth/usecase"
	notificationDelivery "alarmbell-backend/internal/notification/delivery"
	"alarmbell-backend/pkg/config"
	"alarmbell-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase  authUsecase.AuthUsecase
	syncHandler  *alarmDelivery.SyncHandler
	eventHandler *notificationDelivery.EventHandler
	config       *config.Config
	logger       *logger.Logger
}

func NewHandler(authUc authUsecase.AuthUsecase, syncHandler *alarmDelivery.SyncHandler, eventHandler *notificationDelivery.EventHandler, cfg *config.Config, log *logger.Logger) *Handler {
	return &Handler{
		authUsecase:  authUc,
		syncHandler:  syncHandler,
		eventHandler: eventHandler,
		config:       cfg,
		logger:       log,
	}
}

// Engine builds the gin engine with middleware and routes.
func (h *Handler) Engine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Internal-Token")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.syncHandler, h.eventHandler)
	return r
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (h *Handler) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.logger.Info("Server starting on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	h.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// agentd is the on-device background agent. The push transport posts to it,
// the platform shell attaches to it to show notifications, and UI instances
// connect to it for forwarding and click routing.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alarmbell-backend/internal/agent"
	agentDelivery "alarmbell-backend/internal/agent/delivery"
	"alarmbell-backend/internal/render"
	"alarmbell-backend/pkg/config"
	"alarmbell-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "agentd",
		Short: "Alarm notification background agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadAgent(configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to agent configuration file")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("agentd: %v", err)
	}
}

func run(ctx context.Context, cfg *config.AgentConfig) error {
	logr := logger.NewWithWriter(os.Stdout, logger.ParseLevel(cfg.LogLevel))

	bridge := agent.NewHostBridge(5 * time.Second)
	renderer := render.New(bridge, cfg.Agent.Icon, logr)
	a := agent.New(bridge, renderer, cfg.AppOrigin, logr)
	a.Start()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	agentDelivery.NewAgentHandler(a, bridge, logr).Register(r)

	srv := &http.Server{
		Addr:              cfg.Agent.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("[Agent] Listening on %s", cfg.Agent.ListenAddr)
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

	logr.Info("[Agent] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Agent.ShutdownTimeout)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		logr.Warn("[Agent] Renders still in flight at shutdown: %v", err)
	}
	return srv.Shutdown(shutdownCtx)
}

// alarmctl is the foreground shell for the alarm app: it mirrors the user's
// alarms locally, talks to the background agent while focused and resets
// the mirror after a sustained outage.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	alarmdomain "alarmbell-backend/internal/alarm/domain"
	"alarmbell-backend/internal/connmon"
	"alarmbell-backend/internal/foreground"
	"alarmbell-backend/internal/localstore"
	"alarmbell-backend/internal/render"
	"alarmbell-backend/pkg/config"
	"alarmbell-backend/pkg/logger"
	"alarmbell-backend/pkg/notify"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "alarmctl",
		Short: "Alarm app foreground shell",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to agent configuration file")

	rootCmd.AddCommand(runCmd(), alarmsCmd(), resetCmd(), tokenCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.AgentConfig, *logger.Logger, error) {
	cfg, err := config.LoadAgent(configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.NewWithWriter(os.Stderr, logger.ParseLevel(cfg.LogLevel)), nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the foreground shell until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := loadConfig()
			if err != nil {
				return err
			}
			return runShell(cmd.Context(), cfg, logr, cmd.OutOrStdout())
		},
	}
}

func runShell(ctx context.Context, cfg *config.AgentConfig, logr *logger.Logger, out io.Writer) error {
	store, err := localstore.Open(cfg.UI.DBPath, localstore.ReloadFunc(reexec), logr)
	if err != nil {
		return err
	}
	defer store.Close()

	syncer := localstore.NewSyncer(cfg.UI.ServerURL, cfg.UI.Token, logr)

	// The mirror and the monitor run with or without the agent.
	session, err := foreground.Dial(ctx, cfg.UI.AgentURL, uuid.NewString(), cfg.AppOrigin+"/alarms", logr)
	if err != nil {
		logr.Warn("[Shell] Background agent unavailable: %v", err)
	} else {
		defer session.Close()
		startSession(ctx, cfg, logr, out, session)
		syncer.OnSnapshot = func(alarms []alarmdomain.Alarm) {
			if err := session.CacheAlarms(alarms); err != nil {
				logr.Warn("[Shell] CACHE_ALARMS failed: %v", err)
			}
		}
	}

	monitor := connmon.New(store, cfg.UI.OfflineThreshold, logr)
	prober := connmon.NewProber(cfg.UI.ServerURL, cfg.UI.ProbeInterval, monitor, logr)
	go prober.Run(ctx)

	store.StartSync(ctx, syncer)
	defer store.StopSync()

	<-ctx.Done()
	return nil
}

func startSession(ctx context.Context, cfg *config.AgentConfig, logr *logger.Logger, out io.Writer, session *foreground.Session) {
	renderer := render.New(terminalDisplay{w: out}, cfg.Agent.Icon, logr)
	pinger := foreground.NewPinger(session, cfg.UI.KeepAliveInterval, logr)
	router := foreground.NewRouter(renderer, pinger, func(n notify.Navigate) {
		fmt.Fprintf(out, "-> %s %s\n", n.Action, n.GroupID)
	}, logr)

	if err := session.SkipWaiting(); err != nil {
		logr.Warn("[Shell] SKIP_WAITING failed: %v", err)
	}
	if err := session.SetFocus(true); err != nil {
		logr.Warn("[Shell] FOCUS failed: %v", err)
	}

	go pinger.Run(ctx)
	go func() {
		if err := session.Run(ctx, router.HandleControl); err != nil && ctx.Err() == nil {
			logr.Warn("[Shell] Agent session closed: %v", err)
		}
	}()
}

func alarmsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alarms",
		Short: "List alarms from the local mirror",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := localstore.Open(cfg.UI.DBPath, nil, logr)
			if err != nil {
				return err
			}
			defer store.Close()

			opts := localstore.RetryOptions{Delay: cfg.UI.ReadRetryDelay, MaxRetries: cfg.UI.ReadRetryMax}
			alarms, err := localstore.WithRetry(cmd.Context(), opts, store.ListAlarms)
			if err != nil {
				return err
			}
			printAlarms(cmd.OutOrStdout(), alarms)
			return nil
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Wipe the local alarm mirror",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := localstore.Open(cfg.UI.DBPath, nil, logr)
			if err != nil {
				return err
			}
			if err := store.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", cfg.UI.DBPath)
			return nil
		},
	}
}

func printAlarms(w io.Writer, alarms []alarmdomain.Alarm) {
	if len(alarms) == 0 {
		fmt.Fprintln(w, "No alarms")
		return
	}
	for _, a := range alarms {
		state := "on"
		if !a.Active {
			state = "off"
		}
		fmt.Fprintf(w, "%-20s %-3s %-22s %s\n", a.When(nil), state, string(a.ScopeKind)+":"+a.ScopeID, a.Label)
	}
}

// reexec replaces the process with a fresh copy of itself.
func reexec(ctx context.Context) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	return syscall.Exec(exe, os.Args, os.Environ())
}

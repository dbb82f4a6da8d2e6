package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AgentConfig configures the on-device binaries: the background agent
// daemon and the foreground UI shell.
type AgentConfig struct {
	LogLevel  string `yaml:"log_level"`
	AppOrigin string `yaml:"app_origin"`

	Agent struct {
		ListenAddr      string        `yaml:"listen_addr"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		Icon            string        `yaml:"icon"`
	} `yaml:"agent"`

	UI struct {
		ServerURL         string        `yaml:"server_url"`
		AgentURL          string        `yaml:"agent_url"`
		Token             string        `yaml:"token"`
		DBPath            string        `yaml:"db_path"`
		OfflineThreshold  time.Duration `yaml:"offline_threshold"`
		ProbeInterval     time.Duration `yaml:"probe_interval"`
		KeepAliveInterval time.Duration `yaml:"keep_alive_interval"`
		ReadRetryDelay    time.Duration `yaml:"read_retry_delay"`
		ReadRetryMax      int           `yaml:"read_retry_max"`
	} `yaml:"ui"`
}

// DefaultAgentConfig returns the settings used when no file is given.
func DefaultAgentConfig() *AgentConfig {
	c := &AgentConfig{
		LogLevel:  "info",
		AppOrigin: "http://localhost:3000",
	}
	c.Agent.ListenAddr = "127.0.0.1:7465"
	c.Agent.ShutdownTimeout = 10 * time.Second
	c.Agent.Icon = "/icon-192.png"

	c.UI.ServerURL = "http://localhost:8080"
	c.UI.AgentURL = "ws://127.0.0.1:7465/clients/ws"
	c.UI.DBPath = "alarms-cache.db"
	c.UI.OfflineThreshold = 10 * time.Second
	c.UI.ProbeInterval = 2 * time.Second
	c.UI.KeepAliveInterval = 20 * time.Second
	c.UI.ReadRetryDelay = 500 * time.Millisecond
	c.UI.ReadRetryMax = 3
	return c
}

// LoadAgent reads an optional YAML file over the defaults, then applies
// environment overrides.
func LoadAgent(path string) (*AgentConfig, error) {
	_ = godotenv.Load()

	cfg := DefaultAgentConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read agent config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse agent config %s: %w", path, err)
		}
	}

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.AppOrigin = strings.TrimRight(getEnv("APP_ORIGIN", cfg.AppOrigin), "/")
	cfg.Agent.ListenAddr = getEnv("AGENT_LISTEN_ADDR", cfg.Agent.ListenAddr)
	cfg.UI.ServerURL = strings.TrimRight(getEnv("ALARM_SERVER_URL", cfg.UI.ServerURL), "/")
	cfg.UI.AgentURL = getEnv("AGENT_URL", cfg.UI.AgentURL)
	cfg.UI.Token = getEnv("ALARM_TOKEN", cfg.UI.Token)
	cfg.UI.DBPath = getEnv("ALARM_CACHE_DB", cfg.UI.DBPath)
	cfg.UI.OfflineThreshold = getDuration("OFFLINE_RESET_THRESHOLD", cfg.UI.OfflineThreshold)
	cfg.UI.ProbeInterval = getDuration("PROBE_INTERVAL", cfg.UI.ProbeInterval)
	cfg.UI.KeepAliveInterval = getDuration("KEEP_ALIVE_INTERVAL", cfg.UI.KeepAliveInterval)

	return cfg, nil
}

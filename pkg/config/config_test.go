package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("FANOUT_CONCURRENCY", "4")
	t.Setenv("TOKEN_MAX_AGE", "48h")
	t.Setenv("EVENT_SOURCE", "PubSub")
	t.Setenv("APP_ORIGIN", "https://alarms.example.com/")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 4, cfg.FanoutConcurrency)
	assert.Equal(t, 48*time.Hour, cfg.TokenMaxAge)
	assert.Equal(t, EventSourcePubSub, cfg.EventSource)
	assert.Equal(t, "https://alarms.example.com", cfg.AppOrigin)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FANOUT_CONCURRENCY", "not-a-number")
	t.Setenv("SYNC_INTERVAL", "soon")

	cfg := Load()

	assert.Equal(t, 16, cfg.FanoutConcurrency)
	assert.Equal(t, 15*time.Second, cfg.SyncInterval)
	assert.Contains(t, cfg.DSN(), "dbname=")
}

func TestSubscription(t *testing.T) {
	cfg := &Config{PubSubTopic: "projects/p1/topics/record-events"}
	assert.Equal(t, "record-events-sub", cfg.Subscription())

	cfg.PubSubSubscription = "custom"
	assert.Equal(t, "custom", cfg.Subscription())
}

func TestLocation(t *testing.T) {
	cfg := &Config{DisplayTimezone: "Not/AZone"}
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadAgent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	err := os.WriteFile(path, []byte(`
app_origin: https://alarms.example.com
agent:
  listen_addr: 127.0.0.1:9999
ui:
  offline_threshold: 30s
  read_retry_max: 5
`), 0o644)
	require.NoError(t, err)
	t.Setenv("KEEP_ALIVE_INTERVAL", "5s")

	cfg, err := LoadAgent(path)
	require.NoError(t, err)

	assert.Equal(t, "https://alarms.example.com", cfg.AppOrigin)
	assert.Equal(t, "127.0.0.1:9999", cfg.Agent.ListenAddr)
	assert.Equal(t, 30*time.Second, cfg.UI.OfflineThreshold)
	assert.Equal(t, 5, cfg.UI.ReadRetryMax)
	assert.Equal(t, 5*time.Second, cfg.UI.KeepAliveInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.UI.ReadRetryDelay)
}

func TestLoadAgent_MissingFile(t *testing.T) {
	_, err := LoadAgent(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

package connmon

import (
	"context"
	"net/http"
	"time"

	"alarmbell-backend/pkg/logger"
)

// Signals receives edge-triggered connectivity changes.
type Signals interface {
	Start(online bool)
	HandleOnline()
	HandleOffline()
}

// Prober turns periodic health checks into online/offline events.
type Prober struct {
	url      string
	client   *http.Client
	interval time.Duration
	signals  Signals
	logger   *logger.Logger
}

// NewProber checks serverURL + "/api/health" every interval.
func NewProber(serverURL string, interval time.Duration, signals Signals, log *logger.Logger) *Prober {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Prober{
		url:      serverURL + "/api/health",
		client:   &http.Client{Timeout: interval},
		interval: interval,
		signals:  signals,
		logger:   log,
	}
}

// Run probes until ctx is done. Only transitions are reported after the
// initial state.
func (p *Prober) Run(ctx context.Context) {
	online := p.Probe(ctx)
	p.signals.Start(online)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := p.Probe(ctx)
		if now == online {
			continue
		}
		online = now
		if online {
			p.logger.Info("[ConnMon] Server reachable")
			p.signals.HandleOnline()
		} else {
			p.logger.Warn("[ConnMon] Server unreachable")
			p.signals.HandleOffline()
		}
	}
}

// Probe reports whether the health endpoint answered 2xx.
func (p *Prober) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

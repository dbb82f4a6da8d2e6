package foreground

import (
	"context"
	"sync"
	"time"

	"alarmbell-backend/pkg/logger"
	"alarmbell-backend/pkg/notify"
)

// Sender writes control frames to the agent.
type Sender interface {
	Send(c notify.Control) error
}

// Pinger sends KEEP_ALIVE on a fixed interval and whenever the UI regains
// focus. A missing ack is only logged.
type Pinger struct {
	sender   Sender
	interval time.Duration
	now      func() time.Time
	logger   *logger.Logger

	mu       sync.Mutex
	awaiting bool
	lastAck  time.Time
	missed   int
}

func NewPinger(sender Sender, interval time.Duration, log *logger.Logger) *Pinger {
	if interval <= 0 {
		interval = 20 * time.Second
	}
	return &Pinger{sender: sender, interval: interval, now: time.Now, logger: log}
}

// Run pings immediately and then every interval until ctx is done.
func (p *Pinger) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		if err := p.Ping(); err != nil {
			p.logger.Warn("[KeepAlive] Send failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// OnFocus pings right away.
func (p *Pinger) OnFocus() error {
	return p.Ping()
}

func (p *Pinger) Ping() error {
	p.mu.Lock()
	if p.awaiting {
		p.missed++
		p.logger.Warn("[KeepAlive] No ack for previous heartbeat (last ack %s)", p.lastAckString())
	}
	p.awaiting = true
	now := p.now()
	p.mu.Unlock()

	return p.sender.Send(notify.Control{Type: notify.MsgKeepAlive, Timestamp: now.UnixMilli()})
}

// HandleAck records a KEEP_ALIVE_ACK from the agent.
func (p *Pinger) HandleAck(c notify.Control) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.awaiting = false
	p.lastAck = time.UnixMilli(c.Timestamp)
}

// Missed returns how many heartbeats went unanswered.
func (p *Pinger) Missed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.missed
}

func (p *Pinger) lastAckString() string {
	if p.lastAck.IsZero() {
		return "never"
	}
	return p.lastAck.UTC().Format(time.RFC3339)
}

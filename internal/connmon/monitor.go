// Package connmon watches network reachability and resets the local cache
// after a sustained outage. Short blips never trigger a reset.
package connmon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"alarmbell-backend/pkg/logger"
)

// State is the monitor's view of connectivity.
type State int

const (
	StateOnline State = iota
	StateOfflinePending
	StateResetting
)

func (s State) String() string {
	switch s {
	case StateOnline:
		return "online"
	case StateOfflinePending:
		return "offline_pending"
	case StateResetting:
		return "resetting"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Resetter wipes local state and reloads the application.
type Resetter interface {
	Reset(ctx context.Context) error
}

// ResetFunc adapts a function to Resetter.
type ResetFunc func(ctx context.Context) error

func (f ResetFunc) Reset(ctx context.Context) error { return f(ctx) }

// Timer is the part of *time.Timer the monitor uses.
type Timer interface {
	Stop() bool
}

// Clock schedules the offline timer.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Monitor is the Online / OfflinePending / Resetting state machine. At most
// one offline timer is armed at a time.
type Monitor struct {
	threshold time.Duration
	resetter  Resetter
	clock     Clock
	logger    *logger.Logger

	mu    sync.Mutex
	state State
	timer Timer
	// gen invalidates callbacks of timers that were disarmed while firing
	gen    uint64
	resets int
}

func New(resetter Resetter, threshold time.Duration, log *logger.Logger) *Monitor {
	return NewWithClock(resetter, threshold, realClock{}, log)
}

func NewWithClock(resetter Resetter, threshold time.Duration, clock Clock, log *logger.Logger) *Monitor {
	if threshold <= 0 {
		threshold = 10 * time.Second
	}
	return &Monitor{
		threshold: threshold,
		resetter:  resetter,
		clock:     clock,
		logger:    log,
	}
}

// Start sets the initial state. Starting offline arms the timer right away.
func (m *Monitor) Start(online bool) {
	if online {
		m.HandleOnline()
		return
	}
	m.HandleOffline()
}

// HandleOnline cancels any pending reset and returns to Online.
func (m *Monitor) HandleOnline() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateOfflinePending {
		m.logger.Info("[ConnMon] Back online before the reset threshold")
	}
	m.disarm()
	m.state = StateOnline
}

// HandleOffline arms the reset timer. Repeated offline events while the
// timer is armed do nothing.
func (m *Monitor) HandleOffline() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateResetting || m.timer != nil {
		return
	}
	m.state = StateOfflinePending
	m.gen++
	gen := m.gen
	m.timer = m.clock.AfterFunc(m.threshold, func() { m.expire(gen) })
	m.logger.Warn("[ConnMon] Offline, resetting local cache in %s unless connectivity returns", m.threshold)
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Resets returns how many resets the monitor has started.
func (m *Monitor) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// Armed reports whether the offline timer is pending.
func (m *Monitor) Armed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timer != nil
}

func (m *Monitor) disarm() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.gen++
}

func (m *Monitor) expire(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateOfflinePending {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.state = StateResetting
	m.resets++
	m.mu.Unlock()

	m.logger.Warn("[ConnMon] Offline for %s, resetting local cache", m.threshold)
	if err := m.resetter.Reset(context.Background()); err != nil {
		// No retry; the next launch starts from whatever state is on disk.
		m.logger.Error("[ConnMon] Reset failed: %v", err)
	}
}

package agent

import (
	"fmt"
	"sync"
)

// State is the background agent's install state.
type State int

const (
	StateInstalling State = iota
	StateActivating
	StateActivated
	StateRedundant
)

func (s State) String() string {
	switch s {
	case StateInstalling:
		return "installing"
	case StateActivating:
		return "activating"
	case StateActivated:
		return "activated"
	case StateRedundant:
		return "redundant"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Lifecycle tracks Installing -> Activating -> Activated -> Redundant. A new
// agent never waits behind an old one: installing skips straight to
// activation.
type Lifecycle struct {
	mu    sync.RWMutex
	state State
}

func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateInstalling}
}

func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// SkipWaiting moves an installing agent to activating. It is a no-op in any
// other state.
func (l *Lifecycle) SkipWaiting() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateInstalling {
		l.state = StateActivating
	}
}

// Activate completes activation. It returns false when the agent was
// retired.
func (l *Lifecycle) Activate() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case StateRedundant:
		return false
	case StateActivated:
		return true
	}
	l.state = StateActivated
	return true
}

// Retire marks the agent as replaced or shutting down.
func (l *Lifecycle) Retire() {
	l.mu.Lock()
	l.state = StateRedundant
	l.mu.Unlock()
}

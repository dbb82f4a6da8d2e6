package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"alarmbell-backend/pkg/logger"

	"github.com/robfig/cron/v3"
)

// StaleTokenClearer drops push tokens not refreshed since cutoff.
type StaleTokenClearer interface {
	ClearOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenSweeper periodically clears push tokens that have gone stale
// without the push service ever reporting them as unregistered.
type TokenSweeper struct {
	tokens  StaleTokenClearer
	cron    *cron.Cron
	spec    string
	maxAge  time.Duration
	timeout time.Duration
	now     func() time.Time
	logger  *logger.Logger

	mu      sync.Mutex
	running bool
	lastRun time.Time
	cleared int64
}

// NewTokenSweeper creates a sweeper; spec is a six-field cron expression.
func NewTokenSweeper(tokens StaleTokenClearer, spec string, maxAge time.Duration, log *logger.Logger) *TokenSweeper {
	return &TokenSweeper{
		tokens:  tokens,
		cron:    cron.New(cron.WithSeconds()),
		spec:    spec,
		maxAge:  maxAge,
		timeout: 5 * time.Minute,
		now:     time.Now,
		logger:  log,
	}
}

// Start schedules the sweep. It is a no-op when already running.
func (s *TokenSweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	entryID, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("[TokenSweeper] Sweep failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("[TokenSweeper] Scheduled (cron: %s, max age: %s, entry: %d)", s.spec, s.maxAge, entryID)
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running sweep.
func (s *TokenSweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("[TokenSweeper] Scheduler stopped")
}

// Sweep clears every token older than maxAge once.
func (s *TokenSweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.maxAge)
	n, err := s.tokens.ClearOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.lastRun = s.now()
	s.cleared += n
	s.mu.Unlock()

	if n > 0 {
		s.logger.Info("[TokenSweeper] Cleared %d tokens older than %s", n, cutoff.Format(time.RFC3339))
	}
	return n, nil
}

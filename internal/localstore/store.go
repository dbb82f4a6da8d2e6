// Package localstore is the on-device mirror of the user's alarms. It is a
// disposable cache: the connectivity monitor may wipe it at any time and the
// server stream refills it.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	alarmdomain "alarmbell-backend/internal/alarm/domain"
	"alarmbell-backend/pkg/database"
	"alarmbell-backend/pkg/logger"

	"gorm.io/gorm"
)

// ErrStoreClosed is returned by reads that race a reset.
var ErrStoreClosed = errors.New("local store is closed")

// Driver messages that mean the same thing as ErrStoreClosed.
var closedIndicators = []string{
	"database is closed",
	"connection is already closed",
	"store is closing",
}

// IsStoreClosed reports whether err is the transient closed-store condition.
func IsStoreClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrStoreClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, indicator := range closedIndicators {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}

// Reloader restarts the application after a reset.
type Reloader interface {
	Reload(ctx context.Context) error
}

// ReloadFunc adapts a function to Reloader.
type ReloadFunc func(ctx context.Context) error

func (f ReloadFunc) Reload(ctx context.Context) error { return f(ctx) }

type Store struct {
	path     string
	reloader Reloader
	logger   *logger.Logger

	mu     sync.RWMutex
	db     *gorm.DB
	closed bool

	syncMu     sync.Mutex
	syncCancel context.CancelFunc
	syncDone   chan struct{}
}

// Open opens (or creates) the mirror at path.
func Open(path string, reloader Reloader, log *logger.Logger) (*Store, error) {
	db, err := database.NewSQLiteConnection(path)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&alarmdomain.Alarm{}); err != nil {
		return nil, fmt.Errorf("failed to migrate local store: %w", err)
	}
	return &Store{path: path, reloader: reloader, logger: log, db: db}, nil
}

// ListAlarms returns the mirrored alarms in display order.
func (s *Store) ListAlarms(ctx context.Context) ([]alarmdomain.Alarm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	var alarms []alarmdomain.Alarm
	err := s.db.WithContext(ctx).
		Order("scheduled_at IS NULL, scheduled_at, date, time, id").
		Find(&alarms).Error
	if err != nil {
		if IsStoreClosed(err) {
			return nil, fmt.Errorf("%w: %v", ErrStoreClosed, err)
		}
		return nil, err
	}
	return alarms, nil
}

// ReplaceAll swaps the mirror's content for a server snapshot.
func (s *Store) ReplaceAll(ctx context.Context, alarms []alarmdomain.Alarm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&alarmdomain.Alarm{}).Error; err != nil {
			return err
		}
		if len(alarms) == 0 {
			return nil
		}
		return tx.Create(&alarms).Error
	})
}

// StartSync runs syncer against this store until StopSync or Reset.
func (s *Store) StartSync(ctx context.Context, syncer *Syncer) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	if s.syncCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.syncCancel = cancel
	s.syncDone = done
	go func() {
		defer close(done)
		syncer.Run(ctx, s)
	}()
}

// StopSync cancels the stream and waits for it to exit.
func (s *Store) StopSync() {
	s.syncMu.Lock()
	cancel, done := s.syncCancel, s.syncDone
	s.syncCancel, s.syncDone = nil, nil
	s.syncMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Close releases the database. Later reads fail with ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Reset stops syncing, closes the database, deletes its files and reloads
// the application, in that order. The reload runs even if a file could not
// be removed.
func (s *Store) Reset(ctx context.Context) error {
	s.logger.Warn("[LocalStore] Resetting %s", s.path)
	s.StopSync()

	var errs []error
	if err := s.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}
	for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
		if err := os.Remove(s.path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", s.path+suffix, err))
		}
	}
	if len(errs) > 0 {
		s.logger.Error("[LocalStore] Reset incomplete: %v", errors.Join(errs...))
	}

	if s.reloader != nil {
		if err := s.reloader.Reload(ctx); err != nil {
			errs = append(errs, fmt.Errorf("reload: %w", err))
		}
	}
	return errors.Join(errs...)
}

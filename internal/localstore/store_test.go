package localstore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	alarmdomain "alarmbell-backend/internal/alarm/domain"
	"alarmbell-backend/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, reloader Reloader) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alarms-cache.db")
	s, err := Open(path, reloader, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func at(s string) *time.Time {
	v, _ := time.Parse(time.RFC3339, s)
	return &v
}

func TestStore_ReplaceAllAndList(t *testing.T) {
	s, _ := openTestStore(t, nil)
	ctx := context.Background()

	require.NoError(t, s.ReplaceAll(ctx, []alarmdomain.Alarm{
		{ID: "late", ScopeKind: alarmdomain.ScopeUser, ScopeID: "u1", Label: "Late", ScheduledAt: at("2024-03-02T09:00:00Z"), Active: true},
		{ID: "legacy", ScopeKind: alarmdomain.ScopeUser, ScopeID: "u1", Label: "Legacy", Date: "2024-03-01", Time: "07:00", Active: true},
		{ID: "early", ScopeKind: alarmdomain.ScopeGroup, ScopeID: "g1", Label: "Early", ScheduledAt: at("2024-03-02T07:00:00Z"), Active: true},
	}))

	alarms, err := s.ListAlarms(ctx)
	require.NoError(t, err)
	require.Len(t, alarms, 3)
	assert.Equal(t, []string{"early", "late", "legacy"}, []string{alarms[0].ID, alarms[1].ID, alarms[2].ID})

	require.NoError(t, s.ReplaceAll(ctx, []alarmdomain.Alarm{{ID: "only", ScopeKind: alarmdomain.ScopeUser, ScopeID: "u1"}}))
	alarms, err = s.ListAlarms(ctx)
	require.NoError(t, err)
	require.Len(t, alarms, 1)
	assert.Equal(t, "only", alarms[0].ID)

	require.NoError(t, s.ReplaceAll(ctx, nil))
	alarms, err = s.ListAlarms(ctx)
	require.NoError(t, err)
	assert.Empty(t, alarms)
}

func TestStore_ReadAfterCloseIsStoreClosed(t *testing.T) {
	s, _ := openTestStore(t, nil)
	require.NoError(t, s.Close())

	_, err := s.ListAlarms(context.Background())
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, s.ReplaceAll(context.Background(), nil), ErrStoreClosed)
}

func TestStore_ResetDeletesFilesAndReloads(t *testing.T) {
	var reloaded atomic.Int32
	s, path := openTestStore(t, ReloadFunc(func(context.Context) error {
		reloaded.Add(1)
		return nil
	}))
	require.NoError(t, s.ReplaceAll(context.Background(), []alarmdomain.Alarm{{ID: "a1", ScopeKind: alarmdomain.ScopeUser, ScopeID: "u1"}}))
	require.NoError(t, os.WriteFile(path+"-journal", []byte("x"), 0o600))

	require.NoError(t, s.Reset(context.Background()))

	for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
		_, err := os.Stat(path + suffix)
		assert.True(t, errors.Is(err, os.ErrNotExist), "file %s should be gone", path+suffix)
	}
	assert.Equal(t, int32(1), reloaded.Load())

	_, err := s.ListAlarms(context.Background())
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestStore_ResetReloadsEvenWhenReloadFails(t *testing.T) {
	s, _ := openTestStore(t, ReloadFunc(func(context.Context) error {
		return errors.New("exec failed")
	}))

	err := s.Reset(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exec failed")
}

func TestIsStoreClosed(t *testing.T) {
	assert.True(t, IsStoreClosed(ErrStoreClosed))
	assert.True(t, IsStoreClosed(errors.New("sql: database is closed")))
	assert.True(t, IsStoreClosed(errors.New("Store is closing")))
	assert.False(t, IsStoreClosed(errors.New("no such table: alarms")))
	assert.False(t, IsStoreClosed(nil))
}

func TestWithRetry_SucceedsAfterClosedErrors(t *testing.T) {
	opts := RetryOptions{Delay: time.Millisecond, MaxRetries: 3}

	for k := 0; k <= opts.MaxRetries; k++ {
		attempts := 0
		v, err := WithRetry(context.Background(), opts, func(context.Context) (int, error) {
			attempts++
			if attempts <= k {
				return 0, ErrStoreClosed
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.Equal(t, k+1, attempts)
	}
}

func TestWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	attempts := 0
	_, err := WithRetry(context.Background(), RetryOptions{Delay: time.Millisecond, MaxRetries: 2}, func(context.Context) ([]alarmdomain.Alarm, error) {
		attempts++
		return nil, ErrStoreClosed
	})
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_OtherErrorsAreNotRetried(t *testing.T) {
	boom := errors.New("no such table")
	attempts := 0
	_, err := WithRetry(context.Background(), DefaultRetryOptions, func(context.Context) (string, error) {
		attempts++
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	_, err := WithRetry(ctx, RetryOptions{Delay: time.Hour, MaxRetries: 5}, func(context.Context) (int, error) {
		attempts++
		return 0, ErrStoreClosed
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestSyncer_MirrorsSnapshots(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var auth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sync/alarms", r.URL.Path)
		auth.Store(r.Header.Get("Authorization"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(alarmdomain.Snapshot{Alarms: []alarmdomain.Alarm{
			{ID: "a1", ScopeKind: alarmdomain.ScopeUser, ScopeID: "u1", Label: "Gym", Active: true},
		}})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	s, _ := openTestStore(t, ReloadFunc(func(context.Context) error { return nil }))
	applied := make(chan int, 4)
	syncer := NewSyncer(srv.URL, "tok", logger.Discard())
	syncer.OnSnapshot = func(alarms []alarmdomain.Alarm) { applied <- len(alarms) }

	s.StartSync(context.Background(), syncer)
	select {
	case n := <-applied:
		assert.Equal(t, 1, n)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot applied")
	}
	assert.Equal(t, "Bearer tok", auth.Load())

	alarms, err := s.ListAlarms(context.Background())
	require.NoError(t, err)
	require.Len(t, alarms, 1)
	assert.Equal(t, "Gym", alarms[0].Label)

	require.NoError(t, s.Reset(context.Background()))
}

func TestNewSyncer_URL(t *testing.T) {
	assert.Equal(t, "wss://api.test/api/sync/alarms", NewSyncer("https://api.test/", "", logger.Discard()).url)
	assert.Equal(t, "ws://localhost:8080/api/sync/alarms", NewSyncer("http://localhost:8080", "", logger.Discard()).url)
}

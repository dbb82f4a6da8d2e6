package localstore

import (
	"context"
	"net/http"
	"strings"
	"time"

	alarmdomain "alarmbell-backend/internal/alarm/domain"
	"alarmbell-backend/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// Syncer streams alarm snapshots from the server into a Store.
type Syncer struct {
	url    string
	token  string
	dialer *websocket.Dialer
	logger *logger.Logger

	minBackoff time.Duration
	maxBackoff time.Duration
	// OnSnapshot, when set, observes each applied snapshot.
	OnSnapshot func(alarms []alarmdomain.Alarm)
}

// NewSyncer connects to serverURL's alarm stream with a bearer token.
func NewSyncer(serverURL, token string, log *logger.Logger) *Syncer {
	wsURL := serverURL
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}
	return &Syncer{
		url:        strings.TrimRight(wsURL, "/") + "/api/sync/alarms",
		token:      token,
		dialer:     websocket.DefaultDialer,
		logger:     log,
		minBackoff: minBackoff,
		maxBackoff: maxBackoff,
	}
}

// Run keeps the stream open until ctx is done, reconnecting with capped
// exponential backoff.
func (s *Syncer) Run(ctx context.Context, store *Store) {
	backoff := s.minBackoff
	for {
		applied, err := s.stream(ctx, store)
		if ctx.Err() != nil {
			return
		}
		if applied {
			backoff = s.minBackoff
		}
		s.logger.Warn("[Sync] Stream interrupted, retrying in %s: %v", backoff, err)
		if waitWithContext(ctx, backoff) != nil {
			return
		}
		backoff *= 2
		if backoff > s.maxBackoff {
			backoff = s.maxBackoff
		}
	}
}

// stream reads snapshots until the connection fails. applied reports whether
// at least one snapshot made it into the store.
func (s *Syncer) stream(ctx context.Context, store *Store) (applied bool, err error) {
	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}
	conn, _, err := s.dialer.DialContext(ctx, s.url, header)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var snap alarmdomain.Snapshot
		if err := conn.ReadJSON(&snap); err != nil {
			return applied, err
		}
		if err := store.ReplaceAll(ctx, snap.Alarms); err != nil {
			return applied, err
		}
		applied = true
		s.logger.Debug("[Sync] Applied snapshot with %d alarm(s)", len(snap.Alarms))
		if s.OnSnapshot != nil {
			s.OnSnapshot(snap.Alarms)
		}
	}
}

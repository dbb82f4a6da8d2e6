// Package foreground is the UI side of the agent protocol: it keeps a
// session with the background agent, heartbeats it and renders pushes that
// arrive while the UI has focus.
package foreground

import (
	"context"
	"net/url"
	"sync"
	"time"

	alarmdomain "alarmbell-backend/internal/alarm/domain"
	"alarmbell-backend/pkg/logger"
	"alarmbell-backend/pkg/notify"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Session is one UI instance's connection to the background agent.
type Session struct {
	ID      string
	PageURL string

	conn   *websocket.Conn
	logger *logger.Logger
	mu     sync.Mutex
}

// Dial connects to the agent's client socket at agentURL.
func Dial(ctx context.Context, agentURL, clientID, pageURL string, log *logger.Logger) (*Session, error) {
	u, err := url.Parse(agentURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("clientId", clientID)
	q.Set("url", pageURL)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	return &Session{ID: clientID, PageURL: pageURL, conn: conn, logger: log}, nil
}

// Send writes one control frame.
func (s *Session) Send(c notify.Control) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(c)
}

// SetFocus tells the agent whether this instance is focused.
func (s *Session) SetFocus(focused bool) error {
	return s.Send(notify.Control{Type: notify.MsgFocus, Focused: &focused, URL: s.PageURL})
}

// SkipWaiting asks a freshly started agent to activate at once.
func (s *Session) SkipWaiting() error {
	return s.Send(notify.Control{Type: notify.MsgSkipWaiting})
}

// CacheAlarms hands the agent the current alarm list.
func (s *Session) CacheAlarms(alarms []alarmdomain.Alarm) error {
	return s.Send(notify.Control{Type: notify.MsgCacheAlarms, Alarms: CachedAlarms(alarms)})
}

// Run reads frames and hands them to handle until the connection or ctx
// ends.
func (s *Session) Run(ctx context.Context, handle func(ctx context.Context, c notify.Control)) error {
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()

	for {
		var c notify.Control
		if err := s.conn.ReadJSON(&c); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		handle(ctx, c)
	}
}

func (s *Session) Close() error {
	return s.conn.Close()
}

// CachedAlarms converts mirrored alarms into CACHE_ALARMS entries.
func CachedAlarms(alarms []alarmdomain.Alarm) []notify.CachedAlarm {
	out := make([]notify.CachedAlarm, 0, len(alarms))
	for _, a := range alarms {
		out = append(out, notify.CachedAlarm{
			ID:               a.ID,
			ScheduledInstant: a.ScheduledAt,
			Date:             a.Date,
			Time:             a.Time,
			Label:            a.Label,
		})
	}
	return out
}

package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"alarmbell-backend/internal/render"

	"github.com/google/uuid"
)

// ErrNoHost is returned when no platform shell is attached.
var ErrNoHost = errors.New("no host attached")

// Host is the platform shell that owns the screen: it shows notifications
// and manages windows on the agent's behalf.
type Host interface {
	Show(ctx context.Context, n render.Notification) error
	// OpenWindow opens url and returns the client id the new window will
	// register with.
	OpenWindow(ctx context.Context, url string) (string, error)
	Focus(ctx context.Context, clientID string) error
}

// HostConn is the frame transport to the host. *websocket.Conn satisfies it.
type HostConn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

type hostRequest struct {
	ID           string               `json:"id"`
	Op           string               `json:"op"`
	Notification *render.Notification `json:"notification,omitempty"`
	URL          string               `json:"url,omitempty"`
	ClientID     string               `json:"clientId,omitempty"`
}

type hostReply struct {
	ID       string `json:"id"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	ClientID string `json:"clientId,omitempty"`
}

// HostBridge implements Host as request/reply frames over one attached
// connection.
type HostBridge struct {
	timeout time.Duration

	mu      sync.Mutex
	conn    HostConn
	pending map[string]chan hostReply

	writeMu sync.Mutex
}

func NewHostBridge(timeout time.Duration) *HostBridge {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HostBridge{timeout: timeout, pending: make(map[string]chan hostReply)}
}

// Attach makes conn the active host and reads its replies until the
// connection fails. A previously attached host is closed.
func (b *HostBridge) Attach(conn HostConn) error {
	b.mu.Lock()
	prev := b.conn
	b.conn = conn
	b.mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}

	defer b.detach(conn)
	for {
		var reply hostReply
		if err := conn.ReadJSON(&reply); err != nil {
			return err
		}
		b.mu.Lock()
		ch, ok := b.pending[reply.ID]
		delete(b.pending, reply.ID)
		b.mu.Unlock()
		if ok {
			ch <- reply
		}
	}
}

// Attached reports whether a host is connected.
func (b *HostBridge) Attached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

func (b *HostBridge) detach(conn HostConn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != conn {
		return
	}
	b.conn = nil
	for id, ch := range b.pending {
		ch <- hostReply{ID: id, Error: ErrNoHost.Error()}
		delete(b.pending, id)
	}
}

func (b *HostBridge) Show(ctx context.Context, n render.Notification) error {
	_, err := b.call(ctx, hostRequest{Op: "show", Notification: &n})
	return err
}

func (b *HostBridge) OpenWindow(ctx context.Context, url string) (string, error) {
	reply, err := b.call(ctx, hostRequest{Op: "open", URL: url})
	if err != nil {
		return "", err
	}
	return reply.ClientID, nil
}

func (b *HostBridge) Focus(ctx context.Context, clientID string) error {
	_, err := b.call(ctx, hostRequest{Op: "focus", ClientID: clientID})
	return err
}

func (b *HostBridge) call(ctx context.Context, req hostRequest) (hostReply, error) {
	req.ID = uuid.NewString()
	ch := make(chan hostReply, 1)

	b.mu.Lock()
	conn := b.conn
	if conn == nil {
		b.mu.Unlock()
		return hostReply{}, ErrNoHost
	}
	b.pending[req.ID] = ch
	b.mu.Unlock()

	b.writeMu.Lock()
	err := conn.WriteJSON(req)
	b.writeMu.Unlock()
	if err != nil {
		b.forget(req.ID)
		return hostReply{}, fmt.Errorf("host %s: %w", req.Op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	select {
	case reply := <-ch:
		if !reply.OK {
			return reply, fmt.Errorf("host %s: %s", req.Op, reply.Error)
		}
		return reply, nil
	case <-ctx.Done():
		b.forget(req.ID)
		return hostReply{}, fmt.Errorf("host %s: %w", req.Op, ctx.Err())
	}
}

func (b *HostBridge) forget(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

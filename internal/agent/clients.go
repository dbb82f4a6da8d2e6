package agent

import (
	"errors"
	"net/url"
	"sort"
	"strings"
	"sync"

	"alarmbell-backend/pkg/notify"
)

// ErrUnknownClient is returned when posting to a client that disconnected.
var ErrUnknownClient = errors.New("unknown client")

// Conn delivers control frames to one UI instance.
type Conn interface {
	Send(c notify.Control) error
}

// Client is one connected UI instance.
type Client struct {
	ID         string
	URL        string
	Focused    bool
	Controlled bool
	conn       Conn
}

// Clients is the registry of connected UI instances.
type Clients struct {
	mu      sync.RWMutex
	byID    map[string]*Client
	claimed bool
	// pending navigation for windows the agent opened before they connected
	pending map[string]notify.Navigate
}

func NewClients() *Clients {
	return &Clients{
		byID:    make(map[string]*Client),
		pending: make(map[string]notify.Navigate),
	}
}

// Register adds a client. Once the agent has claimed clients, new ones are
// controlled immediately. A navigation queued for id is delivered now.
func (cs *Clients) Register(id, rawURL string, conn Conn) *Client {
	cs.mu.Lock()
	c := &Client{ID: id, URL: rawURL, Controlled: cs.claimed, conn: conn}
	cs.byID[id] = c
	nav, queued := cs.pending[id]
	delete(cs.pending, id)
	cs.mu.Unlock()

	if queued {
		_ = conn.Send(nav.Control())
	}
	return c
}

func (cs *Clients) Unregister(id string) {
	cs.mu.Lock()
	delete(cs.byID, id)
	cs.mu.Unlock()
}

// Claim takes control of every connected client and returns how many there
// are.
func (cs *Clients) Claim() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.claimed = true
	for _, c := range cs.byID {
		c.Controlled = true
	}
	return len(cs.byID)
}

// SetFocus records a client's focus state and, when given, its current URL.
func (cs *Clients) SetFocus(id string, focused bool, rawURL string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	c, ok := cs.byID[id]
	if !ok {
		return
	}
	c.Focused = focused
	if rawURL != "" {
		c.URL = rawURL
	}
}

// Focused returns a snapshot of a focused, controlled client.
func (cs *Clients) Focused() (Client, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	for _, id := range cs.sortedIDs() {
		c := cs.byID[id]
		if c.Focused && c.Controlled {
			return *c, true
		}
	}
	return Client{}, false
}

// MatchOrigin returns a client whose URL is on origin, preferring a focused
// one.
func (cs *Clients) MatchOrigin(origin string) (Client, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	var match *Client
	for _, id := range cs.sortedIDs() {
		c := cs.byID[id]
		if !sameOrigin(c.URL, origin) {
			continue
		}
		if c.Focused {
			return *c, true
		}
		if match == nil {
			match = c
		}
	}
	if match == nil {
		return Client{}, false
	}
	return *match, true
}

// Post sends a control frame to one client.
func (cs *Clients) Post(id string, c notify.Control) error {
	cs.mu.RLock()
	client, ok := cs.byID[id]
	cs.mu.RUnlock()
	if !ok {
		return ErrUnknownClient
	}
	return client.conn.Send(c)
}

// QueueNavigate holds nav until client id registers.
func (cs *Clients) QueueNavigate(id string, nav notify.Navigate) {
	cs.mu.Lock()
	cs.pending[id] = nav
	cs.mu.Unlock()
}

func (cs *Clients) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.byID)
}

func (cs *Clients) sortedIDs() []string {
	ids := make([]string, 0, len(cs.byID))
	for id := range cs.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sameOrigin(rawURL, origin string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	o, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, o.Scheme) && strings.EqualFold(u.Host, o.Host)
}

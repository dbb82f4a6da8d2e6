package agent

import (
	"sync"

	"alarmbell-backend/pkg/notify"
)

// AlarmCache is the agent's copy of the UI's alarm list, used to fill in
// labels a push message arrives without. It is replaced wholesale on every
// CACHE_ALARMS message and is never persisted.
type AlarmCache struct {
	mu     sync.RWMutex
	alarms map[string]notify.CachedAlarm
}

func NewAlarmCache() *AlarmCache {
	return &AlarmCache{alarms: make(map[string]notify.CachedAlarm)}
}

func (c *AlarmCache) Replace(alarms []notify.CachedAlarm) {
	next := make(map[string]notify.CachedAlarm, len(alarms))
	for _, a := range alarms {
		if a.ID != "" {
			next[a.ID] = a
		}
	}
	c.mu.Lock()
	c.alarms = next
	c.mu.Unlock()
}

func (c *AlarmCache) Lookup(id string) (notify.CachedAlarm, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.alarms[id]
	return a, ok
}

func (c *AlarmCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.alarms)
}

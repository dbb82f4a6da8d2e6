package notification

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"alarmbell-backend/pkg/queue"
)

// KindCreated is the only record event kind that triggers notifications.
const KindCreated = "created"

// RecordEvent announces that a domain record was written at Path.
type RecordEvent struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Path      string          `json:"path"`
	Record    json.RawMessage `json:"record"`
	CreatedAt time.Time       `json:"createdAt"`
}

// DecodeRecordEvent parses and validates one event. Errors wrap
// queue.ErrMalformed so transports can drop the message.
func DecodeRecordEvent(raw []byte) (RecordEvent, error) {
	var ev RecordEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ev, fmt.Errorf("%w: %v", queue.ErrMalformed, err)
	}
	if ev.Kind == "" {
		ev.Kind = KindCreated
	}
	ev.Path = strings.Trim(ev.Path, "/")
	if ev.Path == "" {
		return ev, fmt.Errorf("%w: event %q has no path", queue.ErrMalformed, ev.ID)
	}
	if len(ev.Record) == 0 || string(ev.Record) == "null" {
		return ev, fmt.Errorf("%w: event %q has no record", queue.ErrMalformed, ev.ID)
	}
	return ev, nil
}

// Params holds the {name} segments captured from a record path.
type Params map[string]string

// pathPattern matches slash-separated paths such as
// "groups/{groupId}/alarms/{alarmId}".
type pathPattern struct {
	raw      string
	segments []string
}

func compilePattern(p string) pathPattern {
	return pathPattern{raw: p, segments: strings.Split(strings.Trim(p, "/"), "/")}
}

func (p pathPattern) match(path string) (Params, bool) {
	parts := strings.Split(path, "/")
	if len(parts) != len(p.segments) {
		return nil, false
	}

	params := Params{}
	for i, seg := range p.segments {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if parts[i] == "" {
				return nil, false
			}
			params[seg[1:len(seg)-1]] = parts[i]
			continue
		}
		if seg != parts[i] {
			return nil, false
		}
	}
	return params, true
}

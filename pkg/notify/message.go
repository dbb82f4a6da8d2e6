package notify

import (
	"encoding/json"
	"time"
)

// Notice is the human-readable part of a push message.
type Notice struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PushMessage is a push as received by the background agent or a focused UI.
// Notification may be nil and Data may be partially populated.
type PushMessage struct {
	MessageID    string            `json:"messageId,omitempty"`
	Notification *Notice           `json:"notification"`
	Data         map[string]string `json:"data"`
}

// Field returns a data value, tolerating a nil map.
func (m PushMessage) Field(key string) string {
	if m.Data == nil {
		return ""
	}
	return m.Data[key]
}

// Control message types exchanged between UI instances and the agent.
const (
	MsgCacheAlarms  = "CACHE_ALARMS"
	MsgKeepAlive    = "KEEP_ALIVE"
	MsgKeepAliveAck = "KEEP_ALIVE_ACK"
	MsgSkipWaiting  = "SKIP_WAITING"
	MsgFocus        = "FOCUS"
	MsgPush         = "PUSH"
	MsgNavigate     = "navigate"
)

// CachedAlarm is one entry of a CACHE_ALARMS message.
type CachedAlarm struct {
	ID               string     `json:"id"`
	ScheduledInstant *time.Time `json:"scheduledInstant,omitempty"`
	Date             string     `json:"date,omitempty"`
	Time             string     `json:"time,omitempty"`
	Label            string     `json:"label"`
}

// Control is the envelope for every UI <-> agent frame. Only the fields that
// belong to Type are populated.
type Control struct {
	Type      string        `json:"type"`
	Alarms    []CachedAlarm `json:"alarms,omitempty"`
	Timestamp int64         `json:"timestamp,omitempty"`
	Focused   *bool         `json:"focused,omitempty"`
	URL       string        `json:"url,omitempty"`
	Push      *PushMessage  `json:"push,omitempty"`
	GroupID   string        `json:"groupId,omitempty"`
	Action    Action        `json:"action,omitempty"`
}

// Navigate instructs a UI instance to switch view.
type Navigate struct {
	Type    string `json:"type"`
	GroupID string `json:"groupId,omitempty"`
	Action  Action `json:"action"`
}

// Control wraps the navigate instruction in the common envelope.
func (n Navigate) Control() Control {
	return Control{Type: MsgNavigate, GroupID: n.GroupID, Action: n.Action}
}

// KeepAliveAck builds the agent's reply to a heartbeat.
func KeepAliveAck(now time.Time) Control {
	return Control{Type: MsgKeepAliveAck, Timestamp: now.UnixMilli()}
}

// DecodeControl parses one frame.
func DecodeControl(b []byte) (Control, error) {
	var c Control
	err := json.Unmarshal(b, &c)
	return c, err
}

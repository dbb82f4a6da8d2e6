// Package notify holds the notification vocabulary shared by the fan-out
// pipeline, the background agent and the foreground UI: event types, the
// payload sent to devices, the click-routing table and the control protocol.
package notify

import "fmt"

// Type identifies which domain event produced a notification.
type Type string

const (
	TypePersonalAlarm Type = "personal_alarm"
	TypeGroupAlarm    Type = "group_alarm"
	TypeJoinRequest   Type = "join_request"
	TypeMemberLeft    Type = "member_left"
)

// Types lists every known Type.
var Types = []Type{TypePersonalAlarm, TypeGroupAlarm, TypeJoinRequest, TypeMemberLeft}

// Valid reports whether t is one of the known types.
func (t Type) Valid() bool {
	switch t {
	case TypePersonalAlarm, TypeGroupAlarm, TypeJoinRequest, TypeMemberLeft:
		return true
	}
	return false
}

// GroupScoped reports whether notifications of this type refer to a group.
func (t Type) GroupScoped() bool {
	return t == TypeGroupAlarm || t == TypeJoinRequest || t == TypeMemberLeft
}

// ParseType converts a wire value into a Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown notification type %q", s)
	}
	return t, nil
}

// Data map keys carried by every push message.
const (
	KeyType    = "type"
	KeyGroupID = "groupId"
	KeyUserID  = "userId"
	KeyTitle   = "title"
	KeyBody    = "body"
	KeyLabel   = "label"
	KeyAlarmID = "alarmId"
	KeyURL     = "url"

	KeyOriginalTitle = "originalTitle"
)

// Payload is the notification built once per domain event. GroupID is the
// empty string for personal-scope events, never absent.
type Payload struct {
	Type    Type
	GroupID string
	Title   string
	Body    string
	Data    map[string]string
	// Tag collapses repeated notifications about the same record.
	Tag string
}

// TagFor builds the collapse tag for a record of the given type.
func TagFor(t Type, recordID string) string {
	return string(t) + ":" + recordID
}

// WireData returns the structured data map sent to one recipient. Routing
// fields are always present so receivers never parse the human-readable text.
func (p Payload) WireData(recipientID string) map[string]string {
	out := make(map[string]string, len(p.Data)+4)
	for k, v := range p.Data {
		out[k] = v
	}
	out[KeyType] = string(p.Type)
	out[KeyGroupID] = p.GroupID
	out[KeyUserID] = recipientID
	out[KeyTitle] = p.Title
	return out
}

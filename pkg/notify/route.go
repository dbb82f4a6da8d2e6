package notify

import "net/url"

// Action tells the UI which view to switch to after a notification click.
type Action string

const (
	ActionShowPending  Action = "show_pending"
	ActionShowGroup    Action = "show_group"
	ActionShowPersonal Action = "show_personal"
)

// Target is where a click on a notification leads.
type Target struct {
	Action  Action
	GroupID string
	// Path is relative to the app origin.
	Path string
}

// Route maps a notification type and group to its click target. Group-scoped
// types without a group fall back to the personal view.
func Route(t Type, groupID string) Target {
	if groupID == "" && t.GroupScoped() {
		t = TypePersonalAlarm
	}

	switch t {
	case TypeJoinRequest:
		return Target{Action: ActionShowPending, GroupID: groupID, Path: "/groups/" + url.PathEscape(groupID) + "/pending"}
	case TypeGroupAlarm, TypeMemberLeft:
		return Target{Action: ActionShowGroup, GroupID: groupID, Path: "/groups/" + url.PathEscape(groupID)}
	default:
		return Target{Action: ActionShowPersonal, Path: "/alarms"}
	}
}

// Navigate converts the target into the message posted to a UI instance.
func (t Target) Navigate() Navigate {
	return Navigate{Type: MsgNavigate, GroupID: t.GroupID, Action: t.Action}
}

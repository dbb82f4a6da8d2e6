package notification

import (
	"time"

	alarmdomain "alarmbell-backend/internal/alarm/domain"
	"alarmbell-backend/pkg/label"
	"alarmbell-backend/pkg/notify"
)

const nameMaxLength = 60

func displayName(raw, fallback string) string {
	return label.Text(raw, fallback, nameMaxLength)
}

func alarmBody(a *alarmdomain.Alarm, loc *time.Location) string {
	if when := a.When(loc); when != "" {
		return "Alarm scheduled for " + when
	}
	return "Alarm scheduled"
}

func personalAlarmPayload(a *alarmdomain.Alarm, loc *time.Location) notify.Payload {
	title := label.Sanitize(a.Label)
	return notify.Payload{
		Type:    notify.TypePersonalAlarm,
		GroupID: "",
		Title:   title,
		Body:    alarmBody(a, loc),
		Data: map[string]string{
			notify.KeyLabel:   title,
			notify.KeyAlarmID: a.ID,
		},
		Tag: notify.TagFor(notify.TypePersonalAlarm, a.ID),
	}
}

// groupAlarmPayload is computed once and shared by every member's send.
func groupAlarmPayload(a *alarmdomain.Alarm, g *alarmdomain.Group, loc *time.Location) notify.Payload {
	alarmLabel := label.Sanitize(a.Label)
	return notify.Payload{
		Type:    notify.TypeGroupAlarm,
		GroupID: g.ID,
		Title:   label.Sanitize(alarmLabel + " · " + displayName(g.Name, "your group")),
		Body:    alarmBody(a, loc),
		Data: map[string]string{
			notify.KeyLabel:   alarmLabel,
			notify.KeyAlarmID: a.ID,
		},
		Tag: notify.TagFor(notify.TypeGroupAlarm, a.ID),
	}
}

func joinRequestPayload(r *alarmdomain.PendingJoinRequest, g *alarmdomain.Group) notify.Payload {
	name := displayName(r.DisplayName, "Someone")
	return notify.Payload{
		Type:    notify.TypeJoinRequest,
		GroupID: g.ID,
		Title:   "New join request",
		Body:    name + " wants to join " + displayName(g.Name, "your group"),
		Data: map[string]string{
			"requestId":   r.ID,
			"requesterId": r.RequesterID,
		},
		Tag: notify.TagFor(notify.TypeJoinRequest, r.ID),
	}
}

func memberLeftPayload(e *alarmdomain.ActivityEvent, g *alarmdomain.Group) notify.Payload {
	name := displayName(e.DisplayName, "A member")
	return notify.Payload{
		Type:    notify.TypeMemberLeft,
		GroupID: g.ID,
		Title:   "Member left",
		Body:    name + " left " + displayName(g.Name, "your group"),
		Data: map[string]string{
			"activityId": e.ID,
			"memberId":   e.UserID,
		},
		Tag: notify.TagFor(notify.TypeMemberLeft, e.ID),
	}
}

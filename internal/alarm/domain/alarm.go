package domain

import "time"

// ScopeKind says whether an alarm belongs to a single user or to a group.
type ScopeKind string

const (
	ScopeUser  ScopeKind = "user"
	ScopeGroup ScopeKind = "group"
)

// Alarm is a scheduled alert. ScheduledAt is the absolute UTC instant; Date
// and Time are the legacy local fields kept for records written before it.
type Alarm struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	ScopeKind   ScopeKind  `json:"scopeKind" gorm:"index:idx_alarm_scope;not null"`
	ScopeID     string     `json:"scopeId" gorm:"index:idx_alarm_scope;not null"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	Label       string     `json:"label"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	Date        string     `json:"date,omitempty"`
	Time        string     `json:"time,omitempty"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// When renders the alarm's display time in loc, preferring the absolute
// instant and falling back to the legacy strings. It returns "" when the
// record carries no time at all.
func (a *Alarm) When(loc *time.Location) string {
	if a.ScheduledAt != nil && !a.ScheduledAt.IsZero() {
		if loc == nil {
			loc = time.UTC
		}
		return a.ScheduledAt.In(loc).Format("Mon 02 Jan 15:04")
	}
	switch {
	case a.Date != "" && a.Time != "":
		return a.Date + " " + a.Time
	case a.Time != "":
		return a.Time
	default:
		return a.Date
	}
}

package domain

import (
	"sort"
	"time"
)

// Group is a shared alarm group. The delivery subsystem only reads it.
type Group struct {
	ID        string        `json:"id" gorm:"primaryKey"`
	Name      string        `json:"name"`
	OwnerID   string        `json:"ownerId" gorm:"index;not null"`
	Members   []GroupMember `json:"members,omitempty" gorm:"foreignKey:GroupID"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// GroupMember is one row of a group's member set.
type GroupMember struct {
	GroupID  string    `json:"groupId" gorm:"primaryKey"`
	UserID   string    `json:"userId" gorm:"primaryKey;index"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Recipients returns {owner} ∪ members without duplicates, sorted.
func (g *Group) Recipients() []string {
	seen := make(map[string]struct{}, len(g.Members)+1)
	if g.OwnerID != "" {
		seen[g.OwnerID] = struct{}{}
	}
	for _, m := range g.Members {
		if m.UserID != "" {
			seen[m.UserID] = struct{}{}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PendingJoinRequest is created when a user asks to join a group.
type PendingJoinRequest struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	GroupID     string    `json:"groupId" gorm:"index;not null"`
	RequesterID string    `json:"requesterId" gorm:"not null"`
	DisplayName string    `json:"displayName"`
	RequestedAt time.Time `json:"requestedAt"`
}

// ActivityType enumerates group activity records.
type ActivityType string

const (
	ActivityMemberJoined ActivityType = "member_joined"
	ActivityMemberLeft   ActivityType = "member_left"
	ActivityAlarmCreated ActivityType = "alarm_created"
)

// ActivityEvent is an entry in a group's activity feed.
type ActivityEvent struct {
	ID          string       `json:"id" gorm:"primaryKey"`
	GroupID     string       `json:"groupId" gorm:"index;not null"`
	Type        ActivityType `json:"type"`
	UserID      string       `json:"userId"`
	DisplayName string       `json:"displayName"`
	Message     string       `json:"message"`
	CreatedAt   time.Time    `json:"createdAt"`
}

package repository

import (
	"context"

	"alarmbell-backend/internal/alarm/domain"
)

// GroupRepository defines read access to groups and their members
type GroupRepository interface {
	// FindByID returns the group with its members, or nil when it no longer exists
	FindByID(ctx context.Context, id string) (*domain.Group, error)

	// FindGroupIDsForUser returns groups the user owns or belongs to
	FindGroupIDsForUser(ctx context.Context, userID string) ([]string, error)
}

// AlarmRepository defines the interface for alarm data access
type AlarmRepository interface {
	// Create stores a new alarm
	Create(ctx context.Context, alarm *domain.Alarm) error

	// FindByID finds an alarm by its ID
	FindByID(ctx context.Context, id string) (*domain.Alarm, error)

	// FindVisibleToUser returns active personal alarms of the user plus active
	// alarms of every group the user owns or belongs to, soonest first
	FindVisibleToUser(ctx context.Context, userID string) ([]domain.Alarm, error)
}

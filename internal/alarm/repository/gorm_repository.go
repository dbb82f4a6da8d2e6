package repository

import (
	"context"
	"errors"
	"time"

	"alarmbell-backend/internal/alarm/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormGroupRepository implements GroupRepository using GORM
type gormGroupRepository struct {
	db *gorm.DB
}

// NewGormGroupRepository creates a new GORM-based GroupRepository
func NewGormGroupRepository(db *gorm.DB) GroupRepository {
	return &gormGroupRepository{db: db}
}

func (r *gormGroupRepository) FindByID(ctx context.Context, id string) (*domain.Group, error) {
	var group domain.Group
	err := r.db.WithContext(ctx).Preload("Members").Where("id = ?", id).First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

func (r *gormGroupRepository) FindGroupIDsForUser(ctx context.Context, userID string) ([]string, error) {
	var owned []string
	if err := r.db.WithContext(ctx).Model(&domain.Group{}).Where("owner_id = ?", userID).Pluck("id", &owned).Error; err != nil {
		return nil, err
	}

	var joined []string
	if err := r.db.WithContext(ctx).Model(&domain.GroupMember{}).Where("user_id = ?", userID).Pluck("group_id", &joined).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(owned)+len(joined))
	ids := make([]string, 0, len(owned)+len(joined))
	for _, id := range append(owned, joined...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// gormAlarmRepository implements AlarmRepository using GORM
type gormAlarmRepository struct {
	db     *gorm.DB
	groups GroupRepository
}

// NewGormAlarmRepository creates a new GORM-based AlarmRepository
func NewGormAlarmRepository(db *gorm.DB, groups GroupRepository) AlarmRepository {
	return &gormAlarmRepository{db: db, groups: groups}
}

func (r *gormAlarmRepository) Create(ctx context.Context, alarm *domain.Alarm) error {
	if alarm.ID == "" {
		alarm.ID = uuid.New().String()
	}
	now := time.Now()
	alarm.CreatedAt = now
	alarm.UpdatedAt = now
	return r.db.WithContext(ctx).Create(alarm).Error
}

func (r *gormAlarmRepository) FindByID(ctx context.Context, id string) (*domain.Alarm, error) {
	var alarm domain.Alarm
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&alarm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &alarm, nil
}

func (r *gormAlarmRepository) FindVisibleToUser(ctx context.Context, userID string) ([]domain.Alarm, error) {
	groupIDs, err := r.groups.FindGroupIDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Model(&domain.Alarm{}).Where("active = ?", true)
	if len(groupIDs) > 0 {
		query = query.Where(
			r.db.Where("scope_kind = ? AND scope_id = ?", domain.ScopeUser, userID).
				Or("scope_kind = ? AND scope_id IN ?", domain.ScopeGroup, groupIDs),
		)
	} else {
		query = query.Where("scope_kind = ? AND scope_id = ?", domain.ScopeUser, userID)
	}

	var alarms []domain.Alarm
	// Nulls last, then legacy date/time strings.
	err = query.Order("CASE WHEN scheduled_at IS NULL THEN 1 ELSE 0 END, scheduled_at ASC, date ASC, time ASC, id ASC").
		Find(&alarms).Error
	if err != nil {
		return nil, err
	}
	return alarms, nil
}

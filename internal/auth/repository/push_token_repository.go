package repository

import (
	"context"
	"errors"
	"time"

	authdomain "alarmbell-backend/internal/auth/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PushTokenRepository reads and writes the single push token on a user profile
type PushTokenRepository interface {
	SaveToken(ctx context.Context, userID, token string) error
	GetToken(ctx context.Context, userID string) (string, error)
	ClearToken(ctx context.Context, userID, staleToken string) (bool, error)
	ClearOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// pushTokenRepository implements PushTokenRepository interface
type pushTokenRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewPushTokenRepository creates a new instance of pushTokenRepository
func NewPushTokenRepository(db *gorm.DB) PushTokenRepository {
	return &pushTokenRepository{
		db:  db,
		now: time.Now,
	}
}

// SaveToken stores the token for a user, replacing any previous one (atomic upsert)
func (r *pushTokenRepository) SaveToken(ctx context.Context, userID, token string) error {
	now := r.now()
	profile := &authdomain.UserProfile{
		ID:             userID,
		PushToken:      &token,
		TokenUpdatedAt: &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// INSERT ... ON CONFLICT (id) DO UPDATE
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"push_token", "token_updated_at", "updated_at"}),
	}).Create(profile).Error
}

// GetToken returns the user's token, or "" when the user has none
func (r *pushTokenRepository) GetToken(ctx context.Context, userID string) (string, error) {
	var profile authdomain.UserProfile
	err := r.db.WithContext(ctx).Select("id", "push_token").Where("id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return profile.Token(), nil
}

// ClearToken removes the user's token. With a non-empty staleToken only that
// exact token is cleared, so a newer registration is left alone. Clearing an
// already-empty token is a no-op and reports false.
func (r *pushTokenRepository) ClearToken(ctx context.Context, userID, staleToken string) (bool, error) {
	query := r.db.WithContext(ctx).Model(&authdomain.UserProfile{}).
		Where("id = ? AND push_token IS NOT NULL", userID)
	if staleToken != "" {
		query = query.Where("push_token = ?", staleToken)
	}

	result := query.Updates(map[string]interface{}{
		"push_token":       nil,
		"token_updated_at": nil,
		"updated_at":       r.now(),
	})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ClearOlderThan drops tokens that have not been refreshed since cutoff
func (r *pushTokenRepository) ClearOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&authdomain.UserProfile{}).
		Where("push_token IS NOT NULL AND token_updated_at < ?", cutoff).
		Updates(map[string]interface{}{
			"push_token":       nil,
			"token_updated_at": nil,
			"updated_at":       r.now(),
		})
	return result.RowsAffected, result.Error
}

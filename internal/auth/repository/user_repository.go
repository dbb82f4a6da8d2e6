package repository

import (
	"context"
	"errors"

	authdomain "alarmbell-backend/internal/auth/domain"

	"gorm.io/gorm"
)

// UserRepository gives access to user profiles
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*authdomain.UserProfile, error)
}

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new instance of userRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{
		db: db,
	}
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*authdomain.UserProfile, error) {
	var user authdomain.UserProfile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

package domain

import "time"

// UserProfile is the part of a user record the delivery subsystem reads and
// writes. PushToken is single-valued and last-write-wins; nil means the user
// has no device registered.
type UserProfile struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	DisplayName    string     `json:"display_name"`
	PushToken      *string    `json:"-" gorm:"index"` // Don't expose token in JSON
	TokenUpdatedAt *time.Time `json:"token_updated_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

// Token returns the registered push token, or "" when there is none.
func (u *UserProfile) Token() string {
	if u == nil || u.PushToken == nil {
		return ""
	}
	return *u.PushToken
}

package dto

import "time"

type PushTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

type PushTokenResponse struct {
	UserID    string    `json:"user_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

package usecase

import (
	"context"

	authdto "alarmbell-backend/internal/auth/dto"
)

// AuthUsecase validates access tokens and manages the caller's push token
type AuthUsecase interface {
	ValidateToken(tokenString string) (string, error)
	IssueAccessToken(userID string) (string, error)
	RegisterPushToken(ctx context.Context, userID, token string) (*authdto.PushTokenResponse, error)
	UnregisterPushToken(ctx context.Context, userID string) error
}

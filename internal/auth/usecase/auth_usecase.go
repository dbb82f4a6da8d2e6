package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	authdto "alarmbell-backend/internal/auth/dto"
	"alarmbell-backend/internal/auth/repository"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrEmptyPushToken = errors.New("push token is empty")
)

const accessTokenTTL = 24 * time.Hour

// authUsecase implements AuthUsecase interface
type authUsecase struct {
	tokenRepo repository.PushTokenRepository
	jwtSecret []byte
	now       func() time.Time
}

// NewAuthUsecase creates a new instance of authUsecase
func NewAuthUsecase(tokenRepo repository.PushTokenRepository, jwtSecret string) AuthUsecase {
	return &authUsecase{
		tokenRepo: tokenRepo,
		jwtSecret: []byte(jwtSecret),
		now:       time.Now,
	}
}

// ValidateToken checks an HS256 access token and returns its user id
func (u *authUsecase) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return u.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", errors.New("invalid token claims")
	}

	return userID, nil
}

// IssueAccessToken signs an access token for userID. The account service
// normally does this; the CLI and tests use it directly.
func (u *authUsecase) IssueAccessToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     u.now().Add(accessTokenTTL).Unix(),
		"iat":     u.now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(u.jwtSecret)
}

// RegisterPushToken stores the device token, replacing whatever was there
func (u *authUsecase) RegisterPushToken(ctx context.Context, userID, token string) (*authdto.PushTokenResponse, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyPushToken
	}
	if err := u.tokenRepo.SaveToken(ctx, userID, token); err != nil {
		return nil, err
	}
	return &authdto.PushTokenResponse{UserID: userID, UpdatedAt: u.now()}, nil
}

// UnregisterPushToken clears the user's token unconditionally
func (u *authUsecase) UnregisterPushToken(ctx context.Context, userID string) error {
	_, err := u.tokenRepo.ClearToken(ctx, userID, "")
	return err
}

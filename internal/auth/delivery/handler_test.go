package delivery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	authdto "alarmbell-backend/internal/auth/dto"
	"alarmbell-backend/internal/auth/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubAuth struct {
	tokens map[string]string
}

func (s *stubAuth) ValidateToken(token string) (string, error) {
	if token == "good" {
		return "user-1", nil
	}
	return "", errors.New("invalid token")
}

func (s *stubAuth) IssueAccessToken(userID string) (string, error) { return "good", nil }

func (s *stubAuth) RegisterPushToken(_ context.Context, userID, token string) (*authdto.PushTokenResponse, error) {
	if strings.TrimSpace(token) == "" {
		return nil, usecase.ErrEmptyPushToken
	}
	s.tokens[userID] = token
	return &authdto.PushTokenResponse{UserID: userID, UpdatedAt: time.Now()}, nil
}

func (s *stubAuth) UnregisterPushToken(_ context.Context, userID string) error {
	delete(s.tokens, userID)
	return nil
}

func setupRouter(auth *stubAuth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewPushTokenHandler(auth)
	g := r.Group("/api", AuthMiddleware(auth))
	g.PUT("/push-token", h.RegisterPushToken)
	g.DELETE("/push-token", h.UnregisterPushToken)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	r := setupRouter(&stubAuth{tokens: map[string]string{}})

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{name: "missing header", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", want: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer bad", want: http.StatusUnauthorized},
		{name: "good token", header: "Bearer good", want: http.StatusNoContent},
		{name: "query token", query: "?access_token=good", want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/push-token"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRegisterPushTokenHandler(t *testing.T) {
	auth := &stubAuth{tokens: map[string]string{}}
	r := setupRouter(auth)

	req := httptest.NewRequest(http.MethodPut, "/api/push-token", strings.NewReader(`{"token":"device-1"}`))
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "device-1", auth.tokens["user-1"])

	req = httptest.NewRequest(http.MethodPut, "/api/push-token", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer good")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

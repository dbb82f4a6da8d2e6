package notification

import (
	"context"

	"alarmbell-backend/pkg/logger"
)

// TokenClearer clears a stored push token. A non-empty staleToken restricts
// the clear to that exact value.
type TokenClearer interface {
	ClearToken(ctx context.Context, userID, staleToken string) (bool, error)
}

// Invalidator removes tokens the push service reported as unregistered.
type Invalidator struct {
	tokens TokenClearer
	logger *logger.Logger
}

func NewInvalidator(tokens TokenClearer, log *logger.Logger) *Invalidator {
	return &Invalidator{tokens: tokens, logger: log}
}

// Invalidate clears userID's token if it still equals staleToken. Repeated
// calls are no-ops. The clear runs even if ctx was cancelled meanwhile.
func (i *Invalidator) Invalidate(ctx context.Context, userID, staleToken string) error {
	if userID == "" {
		return nil
	}

	cleared, err := i.tokens.ClearToken(context.WithoutCancel(ctx), userID, staleToken)
	if err != nil {
		i.logger.Error("[FCM] Failed to clear token for user %s: %v", userID, err)
		return err
	}
	if cleared {
		i.logger.Info("[FCM] Cleared unregistered token for user %s", userID)
	}
	return nil
}

package notification

import (
	"context"
	"sort"
	"sync"

	"alarmbell-backend/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Recipient is a user with a push token to deliver to.
type Recipient struct {
	UserID string
	Token  string
}

// TokenLookup reads a user's current push token ("" when none).
type TokenLookup interface {
	GetToken(ctx context.Context, userID string) (string, error)
}

// Resolver maps user ids to push tokens.
type Resolver struct {
	tokens      TokenLookup
	concurrency int
	logger      *logger.Logger
}

func NewResolver(tokens TokenLookup, concurrency int, log *logger.Logger) *Resolver {
	if concurrency <= 0 {
		concurrency = 16
	}
	return &Resolver{tokens: tokens, concurrency: concurrency, logger: log}
}

// Resolve looks every user up independently. Users without a token are
// omitted; a failed lookup counts as "no token" and never fails the batch.
// The result is sorted by user id.
func (r *Resolver) Resolve(ctx context.Context, userIDs []string) []Recipient {
	var (
		mu   sync.Mutex
		out  []Recipient
		seen = make(map[string]struct{}, len(userIDs))
		g    errgroup.Group
	)
	g.SetLimit(r.concurrency)

	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		userID := id
		g.Go(func() error {
			token, err := r.tokens.GetToken(ctx, userID)
			if err != nil {
				r.logger.Warn("[Resolver] Token lookup failed for user %s: %v", userID, err)
				return nil
			}
			if token == "" {
				r.logger.Debug("[Resolver] No token for user %s", userID)
				return nil
			}
			mu.Lock()
			out = append(out, Recipient{UserID: userID, Token: token})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

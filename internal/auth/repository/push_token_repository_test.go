package repository

import (
	"context"
	"testing"
	"time"

	authdomain "alarmbell-backend/internal/auth/domain"
	"alarmbell-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushTokenRepository_SaveAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewPushTokenRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.SaveToken(ctx, "u1", "tok-1"))
	require.NoError(t, repo.SaveToken(ctx, "u1", "tok-2"))

	token, err := repo.GetToken(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token, "last write wins")

	var count int64
	db.Model(&authdomain.UserProfile{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestPushTokenRepository_GetUnknownUser(t *testing.T) {
	repo := NewPushTokenRepository(testutil.SetupTestDB(t))

	token, err := repo.GetToken(context.Background(), "nobody")

	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestPushTokenRepository_ClearToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CreateTestUser(t, db, "u1", "tok-old")
	repo := NewPushTokenRepository(db)
	ctx := context.Background()

	cleared, err := repo.ClearToken(ctx, "u1", "tok-old")
	require.NoError(t, err)
	assert.True(t, cleared)

	token, err := repo.GetToken(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, token)

	// Second invalidation is a no-op.
	cleared, err = repo.ClearToken(ctx, "u1", "tok-old")
	require.NoError(t, err)
	assert.False(t, cleared)
}

func TestPushTokenRepository_ClearTokenKeepsNewerRegistration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CreateTestUser(t, db, "u1", "tok-new")
	repo := NewPushTokenRepository(db)
	ctx := context.Background()

	cleared, err := repo.ClearToken(ctx, "u1", "tok-old")
	require.NoError(t, err)
	assert.False(t, cleared)

	token, _ := repo.GetToken(ctx, "u1")
	assert.Equal(t, "tok-new", token)

	cleared, err = repo.ClearToken(ctx, "u1", "")
	require.NoError(t, err)
	assert.True(t, cleared)
}

func TestPushTokenRepository_ClearOlderThan(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewPushTokenRepository(db).(*pushTokenRepository)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }
	require.NoError(t, repo.SaveToken(ctx, "stale", "tok-a"))
	repo.now = func() time.Time { return base.Add(200 * 24 * time.Hour) }
	require.NoError(t, repo.SaveToken(ctx, "fresh", "tok-b"))

	n, err := repo.ClearOlderThan(ctx, base.Add(100*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stale, _ := repo.GetToken(ctx, "stale")
	fresh, _ := repo.GetToken(ctx, "fresh")
	assert.Empty(t, stale)
	assert.Equal(t, "tok-b", fresh)
}

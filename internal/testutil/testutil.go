package testutil

import (
	"fmt"
	"testing"
	"time"

	alarmdomain "alarmbell-backend/internal/alarm/domain"
	authdomain "alarmbell-backend/internal/auth/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Every pooled connection to ":memory:" is a separate database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database connection: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&authdomain.UserProfile{},
		&alarmdomain.Alarm{},
		&alarmdomain.Group{},
		&alarmdomain.GroupMember{},
		&alarmdomain.PendingJoinRequest{},
		&alarmdomain.ActivityEvent{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { _ = CleanupTestDB(db) })
	return db
}

// CleanupTestDB cleans up test database
func CleanupTestDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	return sqlDB.Close()
}

// CreateTestUser creates a profile, with a push token when token is non-empty
func CreateTestUser(t *testing.T, db *gorm.DB, id, token string) *authdomain.UserProfile {
	t.Helper()

	now := time.Now()
	user := &authdomain.UserProfile{ID: id, DisplayName: "User " + id}
	if token != "" {
		user.PushToken = &token
		user.TokenUpdatedAt = &now
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

// CreateTestGroup creates a group with the given owner and members
func CreateTestGroup(t *testing.T, db *gorm.DB, id, name, ownerID string, memberIDs ...string) *alarmdomain.Group {
	t.Helper()

	group := &alarmdomain.Group{ID: id, Name: name, OwnerID: ownerID}
	for _, m := range memberIDs {
		group.Members = append(group.Members, alarmdomain.GroupMember{GroupID: id, UserID: m, JoinedAt: time.Now()})
	}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("Failed to create test group: %v", err)
	}
	return group
}

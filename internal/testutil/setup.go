package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"im-social/internal/config"
	"im-social/internal/models"
	"im-social/internal/storage"
)

// SetupTestDB creates an in-memory SQLite DB and runs AutoMigrate.
// Every call returns an isolated database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := storage.InitDB(config.DatabaseConfig{
		Type:       "sqlite",
		SQLitePath: ":memory:",
		LogLevel:   "silent",
	}, zap.NewNop())
	require.NoError(t, err, "SetupTestDB: InitDB")
	require.NoError(t, storage.AutoMigrateTables(db), "SetupTestDB: AutoMigrate")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// CreateUsers inserts users named after their position and returns them in order.
func CreateUsers(t *testing.T, db *gorm.DB, n int) []models.User {
	t.Helper()
	users := make([]models.User, 0, n)
	for i := 1; i <= n; i++ {
		u := models.User{
			FirstName:    "User",
			LastName:     string(rune('A' + i - 1)),
			Email:        "user" + string(rune('a'+i-1)) + "@example.com",
			PasswordHash: "x",
		}
		require.NoError(t, db.Create(&u).Error, "CreateUsers")
		users = append(users, u)
	}
	return users
}

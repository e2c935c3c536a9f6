package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/accounts/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)
	if err := db.Exec("SELECT 1").Error; err != nil {
		t.Fatalf("expected health query to succeed: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported database driver")
}

func TestOpenAppliesPoolLimits(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite", Path: ":memory:", MaxOpenConns: 3, ConnMaxLifetime: time.Minute})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.Equal(t, 3, sqlDB.Stats().MaxOpenConnections)
}

func TestTimestampsAreUTC(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))

	account := &models.Account{Email: "utc@example.com", PasswordHash: "x", Role: "user"}
	require.NoError(t, db.Create(account).Error)
	require.Equal(t, time.UTC, account.CreatedAt.Location())
}

func TestMigrateCreatesTables(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))

	migrator := db.Migrator()
	require.True(t, migrator.HasTable(&models.Account{}))
	require.True(t, migrator.HasTable(&models.AuditLog{}))
	require.True(t, migrator.HasIndex(&models.Account{}, "Email"))
	require.True(t, migrator.HasIndex(&models.Account{}, "VerificationToken"))
	require.True(t, migrator.HasIndex(&models.Account{}, "ResetToken"))
}

func TestMigrateRequiresHandle(t *testing.T) {
	require.Error(t, Migrate(nil))
}

func TestAccountEmailIsUnique(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))

	require.NoError(t, db.Create(&models.Account{Email: "dup@example.com", PasswordHash: "x", Role: "user"}).Error)
	err := db.Create(&models.Account{Email: "dup@example.com", PasswordHash: "y", Role: "user"}).Error
	require.Error(t, err)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

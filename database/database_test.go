package database

import (
	"context"
	"testing"
	"time"

	"timesheet/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestOpen_RejectsUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "whatever", "silent")
	assert.Error(t, err)
}

func TestAuditCallbacks_StampActor(t *testing.T) {
	db, err := Init("sqlite", ":memory:", "silent")
	require.NoError(t, err)

	ctx := models.WithActor(context.Background(), "E1")
	entry := models.DailyEntry{
		EmployeeCode:   "E1",
		TimesheetYear:  2024,
		TimesheetMonth: 3,
		WorkDate:       time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		EntryType:      models.EntryLeave,
		HoursSpent:     decimal.NewFromInt(8),
	}
	require.NoError(t, db.WithContext(ctx).Create(&entry).Error)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "E1", entry.CreatedBy)
	assert.Equal(t, "E1", entry.UpdatedBy)

	mctx := models.WithActor(context.Background(), "M1")
	require.NoError(t, db.WithContext(mctx).Model(&models.DailyEntry{}).
		Where("id = ?", entry.ID).
		Updates(map[string]any{"description": "fixed"}).Error)

	var stored models.DailyEntry
	require.NoError(t, db.First(&stored, "id = ?", entry.ID).Error)
	assert.Equal(t, "E1", stored.CreatedBy)
	assert.Equal(t, "M1", stored.UpdatedBy)
	assert.Equal(t, "fixed", stored.Description)
}

func TestAuditCallbacks_DefaultToSystem(t *testing.T) {
	db, err := Init("sqlite", ":memory:", "silent")
	require.NoError(t, err)

	batch := []models.CostCenter{{Code: "CC1", Name: "One"}, {Code: "CC2", Name: "Two"}}
	require.NoError(t, db.Create(&batch).Error)

	for _, cc := range batch {
		assert.Equal(t, models.SystemActor, cc.CreatedBy)
	}
}

func TestSeedServiceAccount(t *testing.T) {
	db, err := Init("sqlite", ":memory:", "silent")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, SeedServiceAccount(ctx, db, zap.NewNop(), "", "", "", nil))
	require.NoError(t, SeedServiceAccount(ctx, db, zap.NewNop(), "batch", "s3cret", "SYS1", []models.Role{models.RoleAdmin}))
	require.NoError(t, SeedServiceAccount(ctx, db, zap.NewNop(), "batch", "other", "SYS1", nil))

	var accounts []models.ServiceAccount
	require.NoError(t, db.Find(&accounts).Error)
	require.Len(t, accounts, 1)
	assert.Equal(t, "ADMIN", accounts[0].Roles)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(accounts[0].SecretHash), []byte("s3cret")))

	assert.Error(t, SeedServiceAccount(ctx, db, zap.NewNop(), "nosecret", "", "X", nil))
}

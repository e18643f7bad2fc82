package models

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}, &SubscriptionRecord{}))
	return db
}

func TestRegisterUser(t *testing.T) {
	db := newTestDB(t)

	user, err := RegisterUser(db, "tester", "tester@example.com", "secret123")
	require.NoError(t, err)
	require.NotZero(t, user.ID)

	var rec SubscriptionRecord
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&rec).Error)
	assert.Equal(t, TierFree, rec.Tier)
	assert.Empty(t, rec.ProviderCustomerID)
}

func TestRegisterUser_DuplicateEmailRollsBack(t *testing.T) {
	db := newTestDB(t)

	_, err := RegisterUser(db, "tester", "tester@example.com", "secret123")
	require.NoError(t, err)

	_, err = RegisterUser(db, "other", "tester@example.com", "secret123")
	require.Error(t, err)

	// The failed registration must leave neither a user nor an orphaned
	// subscription record behind.
	var users, records int64
	require.NoError(t, db.Model(&User{}).Count(&users).Error)
	require.NoError(t, db.Model(&SubscriptionRecord{}).Count(&records).Error)
	assert.EqualValues(t, 1, users)
	assert.EqualValues(t, 1, records)
}

func TestRegisterUser_InvalidInput(t *testing.T) {
	db := newTestDB(t)

	_, err := RegisterUser(db, "ab", "tester@example.com", "secret123")
	require.Error(t, err)

	var users int64
	require.NoError(t, db.Model(&User{}).Count(&users).Error)
	assert.Zero(t, users)
}

package user

import (
	"testing"

	"github.com/SlpAus/daily-date-trivia-backend/internal/platform/database"
	"github.com/SlpAus/daily-date-trivia-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serviceTestUserID = "018f4e2a-0000-7000-8000-0000000000ff"

func TestActivateUserIsIdempotent(t *testing.T) {
	testutil.SetupTestDB(t, &User{})

	require.NoError(t, ActivateUser(serviceTestUserID))
	require.NoError(t, ActivateUser(serviceTestUserID))

	var count int64
	require.NoError(t, database.DB.Model(&User{}).Where("uuid = ?", serviceTestUserID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	u, err := GetUserByUUID(serviceTestUserID)
	require.NoError(t, err)
	require.NotNil(t, u)
	// 新用户落库时带上缺省的位数模式偏好
	assert.Equal(t, DigitModeFull, u.DigitModePref)
}

func TestIsUserActivatedFallsBackToDB(t *testing.T) {
	testutil.SetupTestDB(t, &User{})

	activated, err := IsUserActivated(serviceTestUserID)
	require.NoError(t, err)
	assert.False(t, activated)

	require.NoError(t, ActivateUser(serviceTestUserID))

	activated, err = IsUserActivated(serviceTestUserID)
	require.NoError(t, err)
	assert.True(t, activated)

	activated, err = IsUserActivated("")
	require.NoError(t, err)
	assert.False(t, activated)
}

func TestGetUserByUUIDMissing(t *testing.T) {
	testutil.SetupTestDB(t, &User{})

	u, err := GetUserByUUID(serviceTestUserID)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("018f4e2a-0000-7000-8000-000000000001"))
	assert.False(t, IsValidUUID("not-a-uuid"))
	assert.False(t, IsValidUUID(""))
}

func TestIsValidDigitMode(t *testing.T) {
	assert.True(t, IsValidDigitMode("full"))
	assert.True(t, IsValidDigitMode("short"))
	assert.False(t, IsValidDigitMode("binary"))
	assert.False(t, IsValidDigitMode(""))
}

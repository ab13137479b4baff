package allocation

import (
	"testing"

	"github.com/SlpAus/daily-date-trivia-backend/internal/platform/database"
	"github.com/SlpAus/daily-date-trivia-backend/internal/testutil"
	"github.com/SlpAus/daily-date-trivia-backend/pkg/apperror"
	"github.com/SlpAus/daily-date-trivia-backend/pkg/caldate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const allocTestUserID = "018f4e2a-0000-7000-8000-0000000000dd"

func setupAllocDB(t *testing.T) {
	t.Helper()
	testutil.SetupTestDB(t, &ContentItem{}, &Allocation{})
	testutil.SetupTestConfig(t)

	require.NoError(t, database.DB.Create(&ContentItem{
		ItemID:        "MOON_LANDING",
		Prompt:        "人类首次登月发生在哪一年？",
		AnswerYear:    1969,
		CategoryLabel: "science",
	}).Error)
}

func seedAllocation(t *testing.T, scope Scope, scopeKey, date string) {
	t.Helper()
	require.NoError(t, database.DB.Create(&Allocation{
		Scope:         scope,
		ScopeKey:      scopeKey,
		PuzzleDate:    date,
		ContentItemID: "MOON_LANDING",
		CategoryLabel: "science",
	}).Error)
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("shared")
	require.NoError(t, err)
	assert.Equal(t, ScopeShared, s)

	s, err = ParseScope("personal")
	require.NoError(t, err)
	assert.Equal(t, ScopePersonal, s)

	_, err = ParseScope("global")
	assert.Error(t, err)
}

func TestResolveSharedByRegion(t *testing.T) {
	setupAllocDB(t)
	seedAllocation(t, ScopeShared, "NZ", "2024-03-01")

	res, err := ResolveForUser(allocTestUserID, "NZ", ScopeShared, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, res.Status)
	require.NotNil(t, res.Allocation)
	require.NotNil(t, res.Item)
	assert.Equal(t, "MOON_LANDING", res.Item.ItemID)

	// 其他地区的用户看不到这条分配
	res, err = ResolveForUser(allocTestUserID, "JP", ScopeShared, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, StatusMissing, res.Status)
	assert.Nil(t, res.Allocation)
}

func TestResolveSharedFallsBackToDefaultRegion(t *testing.T) {
	setupAllocDB(t)
	seedAllocation(t, ScopeShared, "AU", "2024-03-01")

	// 未填写地区的用户落入配置的默认地区
	res, err := ResolveForUser(allocTestUserID, "", ScopeShared, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, res.Status)
}

func TestResolvePersonalOwnScope(t *testing.T) {
	setupAllocDB(t)
	seedAllocation(t, ScopePersonal, allocTestUserID, "2024-03-01")

	res, err := ResolveForUser(allocTestUserID, "AU", ScopePersonal, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, res.Status)

	// 个人池按用户分配，别人的个人题对当前用户不存在
	res, err = ResolveForUser("018f4e2a-0000-7000-8000-0000000000ee", "AU", ScopePersonal, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, StatusMissing, res.Status)
}

func TestResolvePersonalTodayAbsentMeansGenerating(t *testing.T) {
	setupAllocDB(t)

	// 当天缺席是“生成中”，过去的日期缺席才是“查无此日”
	res, err := ResolveForUser(allocTestUserID, "AU", ScopePersonal, caldate.Today())
	require.NoError(t, err)
	assert.Equal(t, StatusGenerating, res.Status)

	res, err = ResolveForUser(allocTestUserID, "AU", ScopePersonal, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, StatusMissing, res.Status)
}

func TestResolveRejectsInvalidDate(t *testing.T) {
	setupAllocDB(t)

	_, err := ResolveForUser(allocTestUserID, "AU", ScopeShared, "03/01/2024")
	require.Error(t, err)
	appErr := apperror.AsError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
}

func TestIsPersonalReadyFallsBackToDB(t *testing.T) {
	setupAllocDB(t)

	// Redis在测试中被标记为不健康，存在性检查直接走SQLite
	ready, err := IsPersonalReady(allocTestUserID, "2024-03-01")
	require.NoError(t, err)
	assert.False(t, ready)

	seedAllocation(t, ScopePersonal, allocTestUserID, "2024-03-01")

	ready, err = IsPersonalReady(allocTestUserID, "2024-03-01")
	require.NoError(t, err)
	assert.True(t, ready)
}

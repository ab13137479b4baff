package stats

import (
	"testing"
	"time"

	"github.com/SlpAus/daily-date-trivia-backend/internal/allocation"
	"github.com/SlpAus/daily-date-trivia-backend/internal/attempt"
	"github.com/SlpAus/daily-date-trivia-backend/internal/platform/database"
	"github.com/SlpAus/daily-date-trivia-backend/internal/platform/metadata"
	"github.com/SlpAus/daily-date-trivia-backend/internal/testutil"
	"github.com/SlpAus/daily-date-trivia-backend/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statsTestUserID = "018f4e2a-0000-7000-8000-0000000000aa"

func setupStatsDB(t *testing.T) {
	t.Helper()
	testutil.SetupTestDB(t,
		&user.User{}, &allocation.ContentItem{}, &allocation.Allocation{},
		&attempt.Attempt{}, &attempt.Guess{},
		&UserStatistics{}, &metadata.Metadata{},
	)
}

// seedTerminalAttempt 为指定日期写入一条终局Attempt及其对应的分配。
func seedTerminalAttempt(t *testing.T, userID, date string, result attempt.Result, numGuesses int) {
	t.Helper()

	alloc := allocation.Allocation{
		Scope:         allocation.ScopeShared,
		ScopeKey:      "AU",
		PuzzleDate:    date,
		ContentItemID: "ITEM_" + date,
	}
	require.NoError(t, database.DB.Create(&alloc).Error)

	now := time.Now()
	require.NoError(t, database.DB.Create(&attempt.Attempt{
		UserID:       userID,
		AllocationID: alloc.ID,
		Scope:        allocation.ScopeShared,
		NumGuesses:   numGuesses,
		Result:       result,
		CompletedAt:  &now,
	}).Error)
}

func TestRecalculateEmptyUser(t *testing.T) {
	setupStatsDB(t)

	st, err := Recalculate(statsTestUserID, allocation.ScopeShared)
	require.NoError(t, err)

	assert.Equal(t, 0, st.GamesPlayed)
	assert.Equal(t, 0, st.GamesWon)
	assert.Equal(t, 0, st.CurrentStreak)
	assert.Equal(t, 0, st.MaxStreak)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}, st.Distribution())
	assert.Equal(t, 0.0, st.AverageGuesses())
}

func TestRecalculateCountsAndDistribution(t *testing.T) {
	setupStatsDB(t)

	seedTerminalAttempt(t, statsTestUserID, "2024-03-01", attempt.ResultWon, 3)
	seedTerminalAttempt(t, statsTestUserID, "2024-03-02", attempt.ResultWon, 1)
	seedTerminalAttempt(t, statsTestUserID, "2024-03-03", attempt.ResultLost, 5)
	seedTerminalAttempt(t, statsTestUserID, "2024-03-04", attempt.ResultWon, 3)

	st, err := Recalculate(statsTestUserID, allocation.ScopeShared)
	require.NoError(t, err)

	assert.Equal(t, 4, st.GamesPlayed)
	assert.Equal(t, 3, st.GamesWon)
	// 败局不计入猜测分布
	assert.Equal(t, map[int]int{1: 1, 2: 0, 3: 2, 4: 0, 5: 0}, st.Distribution())
	assert.InDelta(t, 7.0/3.0, st.AverageGuesses(), 1e-9)
}

func TestCurrentStreakEndsAtLoss(t *testing.T) {
	setupStatsDB(t)

	seedTerminalAttempt(t, statsTestUserID, "2024-03-01", attempt.ResultWon, 2)
	seedTerminalAttempt(t, statsTestUserID, "2024-03-02", attempt.ResultWon, 2)
	seedTerminalAttempt(t, statsTestUserID, "2024-03-03", attempt.ResultWon, 2)
	seedTerminalAttempt(t, statsTestUserID, "2024-03-04", attempt.ResultLost, 5)

	st, err := Recalculate(statsTestUserID, allocation.ScopeShared)
	require.NoError(t, err)

	// 最近一局是Lost：当前连胜归零，但历史最大连胜保留
	assert.Equal(t, 0, st.CurrentStreak)
	assert.Equal(t, 3, st.MaxStreak)
}

func TestCurrentStreakBreaksOnGap(t *testing.T) {
	setupStatsDB(t)

	seedTerminalAttempt(t, statsTestUserID, "2024-03-01", attempt.ResultWon, 2)
	seedTerminalAttempt(t, statsTestUserID, "2024-03-02", attempt.ResultWon, 2)
	// 3月3日、4日漏打
	seedTerminalAttempt(t, statsTestUserID, "2024-03-05", attempt.ResultWon, 2)

	st, err := Recalculate(statsTestUserID, allocation.ScopeShared)
	require.NoError(t, err)

	assert.Equal(t, 1, st.CurrentStreak)
	assert.Equal(t, 2, st.MaxStreak)
}

func TestMissedYesterdayCardCoversSingleGapOnce(t *testing.T) {
	setupStatsDB(t)

	seedTerminalAttempt(t, statsTestUserID, "2024-03-01", attempt.ResultWon, 2)
	seedTerminalAttempt(t, statsTestUserID, "2024-03-02", attempt.ResultWon, 2)
	// 3月3日漏打，缺口恰好为一天
	seedTerminalAttempt(t, statsTestUserID, "2024-03-04", attempt.ResultWon, 2)

	require.NoError(t, GrantForgiveness(statsTestUserID, allocation.ScopeShared, ForgivenessMissedYesterday, ""))

	st, err := Recalculate(statsTestUserID, allocation.ScopeShared)
	require.NoError(t, err)
	assert.Equal(t, 3, st.CurrentStreak)
	assert.Equal(t, 3, st.MaxStreak)

	// 第二个缺口出现后，同一张补签卡不能被用第二次
	seedTerminalAttempt(t, statsTestUserID, "2024-03-06", attempt.ResultWon, 2)

	st, err = Recalculate(statsTestUserID, allocation.ScopeShared)
	require.NoError(t, err)
	assert.Equal(t, 1, st.CurrentStreak)
	assert.Equal(t, 3, st.MaxStreak)
}

func TestMissedYesterdayCardDoesNotCoverWiderGap(t *testing.T) {
	setupStatsDB(t)

	seedTerminalAttempt(t, statsTestUserID, "2024-03-01", attempt.ResultWon, 2)
	// 3月2日、3日连续两天漏打
	seedTerminalAttempt(t, statsTestUserID, "2024-03-04", attempt.ResultWon, 2)

	require.NoError(t, GrantForgiveness(statsTestUserID, allocation.ScopeShared, ForgivenessMissedYesterday, ""))

	st, err := Recalculate(statsTestUserID, allocation.ScopeShared)
	require.NoError(t, err)
	assert.Equal(t, 1, st.CurrentStreak)
}

func TestHolidayWindowCoversMultipleGaps(t *testing.T) {
	setupStatsDB(t)

	seedTerminalAttempt(t, statsTestUserID, "2024-03-01", attempt.ResultWon, 2)
	seedTerminalAttempt(t, statsTestUserID, "2024-03-04", attempt.ResultWon, 2)
	seedTerminalAttempt(t, statsTestUserID, "2024-03-08", attempt.ResultWon, 2)

	require.NoError(t, GrantForgiveness(statsTestUserID, allocation.ScopeShared, ForgivenessHoliday, "2024-03-10"))

	st, err := Recalculate(statsTestUserID, allocation.ScopeShared)
	require.NoError(t, err)
	assert.Equal(t, 3, st.CurrentStreak)
	assert.Equal(t, 3, st.MaxStreak)
}

func TestHolidayWindowExpires(t *testing.T) {
	setupStatsDB(t)

	seedTerminalAttempt(t, statsTestUserID, "2024-03-01", attempt.ResultWon, 2)
	seedTerminalAttempt(t, statsTestUserID, "2024-03-04", attempt.ResultWon, 2)
	// 窗口在3月5日失效，之后的缺口不再被豁免
	seedTerminalAttempt(t, statsTestUserID, "2024-03-08", attempt.ResultWon, 2)

	require.NoError(t, GrantForgiveness(statsTestUserID, allocation.ScopeShared, ForgivenessHoliday, "2024-03-05"))

	st, err := Recalculate(statsTestUserID, allocation.ScopeShared)
	require.NoError(t, err)
	assert.Equal(t, 1, st.CurrentStreak)
	assert.Equal(t, 2, st.MaxStreak)
}

func TestRecalculatePreservesForgivenessFields(t *testing.T) {
	setupStatsDB(t)

	require.NoError(t, GrantForgiveness(statsTestUserID, allocation.ScopeShared, ForgivenessMissedYesterday, ""))
	require.NoError(t, GrantForgiveness(statsTestUserID, allocation.ScopeShared, ForgivenessHoliday, "2024-12-31"))

	st, err := Recalculate(statsTestUserID, allocation.ScopeShared)
	require.NoError(t, err)
	assert.True(t, st.MissedYesterdayFlag)
	require.NotNil(t, st.NextHolidayResetDate)
	assert.Equal(t, "2024-12-31", *st.NextHolidayResetDate)
}

func TestGrantForgivenessValidation(t *testing.T) {
	setupStatsDB(t)

	err := GrantForgiveness(statsTestUserID, allocation.ScopeShared, ForgivenessHoliday, "not-a-date")
	require.Error(t, err)

	err = GrantForgiveness(statsTestUserID, allocation.ScopeShared, ForgivenessKind("unknown"), "")
	require.Error(t, err)
}

func TestScopesAreIndependent(t *testing.T) {
	setupStatsDB(t)

	seedTerminalAttempt(t, statsTestUserID, "2024-03-01", attempt.ResultWon, 2)

	personal := allocation.Allocation{
		Scope:         allocation.ScopePersonal,
		ScopeKey:      statsTestUserID,
		PuzzleDate:    "2024-03-01",
		ContentItemID: "ITEM_P",
	}
	require.NoError(t, database.DB.Create(&personal).Error)
	now := time.Now()
	require.NoError(t, database.DB.Create(&attempt.Attempt{
		UserID:       statsTestUserID,
		AllocationID: personal.ID,
		Scope:        allocation.ScopePersonal,
		NumGuesses:   5,
		Result:       attempt.ResultLost,
		CompletedAt:  &now,
	}).Error)

	shared, err := Recalculate(statsTestUserID, allocation.ScopeShared)
	require.NoError(t, err)
	assert.Equal(t, 1, shared.GamesPlayed)
	assert.Equal(t, 1, shared.GamesWon)

	personalStats, err := Recalculate(statsTestUserID, allocation.ScopePersonal)
	require.NoError(t, err)
	assert.Equal(t, 1, personalStats.GamesPlayed)
	assert.Equal(t, 0, personalStats.GamesWon)
}

func TestPercentileSingleUserPopulation(t *testing.T) {
	setupStatsDB(t)

	seedTerminalAttempt(t, statsTestUserID, "2024-03-01", attempt.ResultWon, 2)

	// Redis被标记为不健康，走SQLite兜底路径
	pct, err := GetPercentile(statsTestUserID, allocation.ScopeShared, MetricGamesWon)
	require.NoError(t, err)
	assert.Equal(t, 100.0, pct)
}

func TestPercentileAgainstPopulation(t *testing.T) {
	setupStatsDB(t)

	const rivalID = "018f4e2a-0000-7000-8000-0000000000bb"

	seedTerminalAttempt(t, statsTestUserID, "2024-03-01", attempt.ResultWon, 2)
	seedTerminalAttempt(t, statsTestUserID, "2024-03-02", attempt.ResultWon, 2)
	seedTerminalAttempt(t, rivalID, "2024-03-03", attempt.ResultWon, 2)

	_, err := Recalculate(rivalID, allocation.ScopeShared)
	require.NoError(t, err)

	// 两人人群中，胜场更多的一方覆盖全部人口
	pct, err := GetPercentile(statsTestUserID, allocation.ScopeShared, MetricGamesWon)
	require.NoError(t, err)
	assert.Equal(t, 100.0, pct)

	pct, err = GetPercentile(rivalID, allocation.ScopeShared, MetricGamesWon)
	require.NoError(t, err)
	assert.Equal(t, 50.0, pct)
}

func TestRecalculateAllStampsMetadata(t *testing.T) {
	setupStatsDB(t)

	seedTerminalAttempt(t, statsTestUserID, "2024-03-01", attempt.ResultWon, 2)

	count, err := RecalculateAll(allocation.ScopeShared)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stamp, err := metadata.Get("stats_last_full_recalc:shared")
	require.NoError(t, err)
	assert.NotEmpty(t, stamp)

	_, err = time.Parse(time.RFC3339, stamp)
	assert.NoError(t, err)
}

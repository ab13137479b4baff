package stats

import (
	"errors"
	"fmt"
	"time"

	"github.com/SlpAus/daily-date-trivia-backend/internal/allocation"
	"github.com/SlpAus/daily-date-trivia-backend/internal/attempt"
	"github.com/SlpAus/daily-date-trivia-backend/internal/platform/database"
	"github.com/SlpAus/daily-date-trivia-backend/internal/platform/metadata"
	"github.com/SlpAus/daily-date-trivia-backend/pkg/apperror"
	"github.com/SlpAus/daily-date-trivia-backend/pkg/caldate"
	"gorm.io/gorm"
)

// ForgivenessKind 定义了可授予的宽恕类型。
type ForgivenessKind string

const (
	// ForgivenessMissedYesterday 是一张一次性补签卡，豁免恰好一个漏打的日历日
	ForgivenessMissedYesterday ForgivenessKind = "missed_yesterday"
	// ForgivenessHoliday 是一个假日窗口，豁免失效日期之前的全部漏打日
	ForgivenessHoliday ForgivenessKind = "holiday"
)

// loadTerminalAttempts 加载一个用户在指定作用域下的全部终局Attempt，
// 按谜题日期升序。这是重算读取的一致性快照：终局结果是原子写入的，
// 所以单趟读取不会看到“写了一半”的记录。
func loadTerminalAttempts(userID string, scope allocation.Scope) ([]attemptRecord, error) {
	var records []attemptRecord
	err := database.DB.Table("attempts").
		Select("attempts.result, attempts.num_guesses, allocations.puzzle_date").
		Joins("JOIN allocations ON allocations.id = attempts.allocation_id").
		Where("attempts.user_id = ? AND attempts.scope = ? AND attempts.result <> ? AND attempts.deleted_at IS NULL",
			userID, scope, attempt.ResultPending).
		Order("allocations.puzzle_date asc").
		Scan(&records).Error
	if err != nil {
		return nil, fmt.Errorf("查询终局Attempt失败: %w", err)
	}
	return records, nil
}

// gapWalker 在一次连胜遍历中判定日期缺口是否被宽恕覆盖。
// 补签卡在单次遍历中至多消耗一次；假日窗口可覆盖任意多个缺口，
// 条件是缺口的终点日期不晚于窗口的失效日期。
type gapWalker struct {
	missedYesterday     bool
	missedYesterdayUsed bool
	holidayResetDate    *string
}

func newGapWalker(st *UserStatistics) *gapWalker {
	return &gapWalker{
		missedYesterday:  st.MissedYesterdayFlag,
		holidayResetDate: st.NextHolidayResetDate,
	}
}

// covers 判定从earlier到later之间的缺口（严格大于1天）是否被宽恕。
func (w *gapWalker) covers(earlier, later string) bool {
	gap := caldate.DaysBetween(earlier, later)
	if gap <= 1 {
		return true
	}

	if w.holidayResetDate != nil && !caldate.Before(*w.holidayResetDate, later) {
		return true
	}

	// 补签卡只覆盖恰好一个漏打日，且一次遍历只能用一次
	if gap == 2 && w.missedYesterday && !w.missedYesterdayUsed {
		w.missedYesterdayUsed = true
		return true
	}

	return false
}

// computeCurrentStreak 从最近的终局日向前回溯当前连胜。
// 遇到第一个Lost、未被宽恕的缺口即停止。
func computeCurrentStreak(records []attemptRecord, walker *gapWalker) int {
	if len(records) == 0 {
		return 0
	}

	i := len(records) - 1
	if records[i].Result != attempt.ResultWon {
		return 0
	}

	streak := 1
	for i > 0 {
		prev := records[i-1]
		if prev.Result != attempt.ResultWon {
			break
		}
		if !walker.covers(prev.PuzzleDate, records[i].PuzzleDate) {
			break
		}
		streak++
		i--
	}
	return streak
}

// computeMaxStreak 按时间正序走一遍，维护滚动连胜计数，
// 在Lost或未被宽恕的缺口处归零，记录所见的最大值。
func computeMaxStreak(records []attemptRecord, walker *gapWalker) int {
	maxStreak := 0
	run := 0
	prevDate := ""

	for _, r := range records {
		if r.Result != attempt.ResultWon {
			run = 0
			prevDate = r.PuzzleDate
			continue
		}

		if prevDate == "" || walker.covers(prevDate, r.PuzzleDate) {
			run++
		} else {
			run = 1
		}
		prevDate = r.PuzzleDate

		if run > maxStreak {
			maxStreak = run
		}
	}
	return maxStreak
}

// loadOrInitStatistics 加载已有的统计行；不存在时返回零值行（不落库）。
func loadOrInitStatistics(userID string, scope allocation.Scope) (*UserStatistics, error) {
	var st UserStatistics
	err := database.DB.Where("user_id = ? AND scope = ?", userID, scope).First(&st).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &UserStatistics{UserID: userID, Scope: scope}, nil
		}
		return nil, fmt.Errorf("查询统计快照失败: %w", err)
	}
	return &st, nil
}

// Recalculate 对一个 (用户, 作用域) 执行完整重建。
// 它是已存Attempt的纯函数，失败后重跑永远是安全的；
// 宽恕字段从旧行继承，绝不在这里改写。
func Recalculate(userID string, scope allocation.Scope) (*UserStatistics, error) {
	st, err := loadOrInitStatistics(userID, scope)
	if err != nil {
		return nil, err
	}

	records, err := loadTerminalAttempts(userID, scope)
	if err != nil {
		return nil, err
	}

	// 1. 清零全部派生字段（宽恕字段除外）
	st.GamesPlayed = len(records)
	st.GamesWon = 0
	st.DistOne, st.DistTwo, st.DistThree, st.DistFour, st.DistFive = 0, 0, 0, 0, 0

	// 2. 胜场与猜测分布
	for _, r := range records {
		if r.Result == attempt.ResultWon {
			st.GamesWon++
			st.addToDistribution(r.NumGuesses)
		}
	}

	// 3. 连胜：两趟遍历各自使用独立的宽恕消耗状态
	st.CurrentStreak = computeCurrentStreak(records, newGapWalker(st))
	st.MaxStreak = computeMaxStreak(records, newGapWalker(st))

	// 4. 持久化并刷新Redis排名
	if err := database.DB.Save(st).Error; err != nil {
		return nil, fmt.Errorf("保存统计快照失败: %w", err)
	}
	refreshRanking(st)

	return st, nil
}

// GetPercentile 返回调用者的指标取值在同作用域人群中的百分位，
// 定义为“取值小于等于调用者的用户占比×100”。单人人群定义为100。
// Redis健康时从排名有序集合读取，退化时从SQLite统计。
func GetPercentile(userID string, scope allocation.Scope, metric Metric) (float64, error) {
	st, err := Recalculate(userID, scope)
	if err != nil {
		return 0, err
	}
	value := st.MetricValue(metric)

	if database.IsRedisHealthy() {
		key := rankingKey(scope, metric)
		total, err := database.RDB.ZCard(database.Ctx, key).Result()
		if err == nil && total > 0 {
			if total <= 1 {
				return 100, nil
			}
			count, err := database.RDB.ZCount(database.Ctx, key, "-inf", fmt.Sprintf("%d", value)).Result()
			if err == nil {
				return 100 * float64(count) / float64(total), nil
			}
		}
		// Redis读取失败时退回SQLite路径
	}

	column := "games_won"
	if metric == MetricCurrentStreak {
		column = "current_streak"
	}

	var total int64
	if err := database.DB.Model(&UserStatistics{}).Where("scope = ?", scope).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("统计人群规模失败: %w", err)
	}
	if total <= 1 {
		return 100, nil
	}

	var count int64
	if err := database.DB.Model(&UserStatistics{}).
		Where("scope = ? AND "+column+" <= ?", scope, value).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("统计百分位失败: %w", err)
	}
	return 100 * float64(count) / float64(total), nil
}

// GrantForgiveness 记录一次宽恕授予。
// 这是唯一允许写MissedYesterdayFlag/NextHolidayResetDate的入口，
// 重算只读取它们，避免存储值与可派生值漂移。
func GrantForgiveness(userID string, scope allocation.Scope, kind ForgivenessKind, resetDate string) error {
	st, err := loadOrInitStatistics(userID, scope)
	if err != nil {
		return err
	}

	switch kind {
	case ForgivenessMissedYesterday:
		st.MissedYesterdayFlag = true
	case ForgivenessHoliday:
		if !caldate.IsValid(resetDate) {
			return apperror.Validation("无效的假日失效日期: %q", resetDate)
		}
		st.NextHolidayResetDate = &resetDate
	default:
		return apperror.Validation("无效的宽恕类型: %q", kind)
	}

	if err := database.DB.Save(st).Error; err != nil {
		return fmt.Errorf("保存宽恕状态失败: %w", err)
	}
	return nil
}

// RecalculateAll 对一个作用域下出现过的全部用户执行整体重建，
// 完成后在metadata表记录时间戳。管理员专用。
func RecalculateAll(scope allocation.Scope) (int, error) {
	var userIDs []string
	err := database.DB.Model(&attempt.Attempt{}).
		Where("scope = ?", scope).
		Distinct("user_id").
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return 0, fmt.Errorf("无法提取需要重算的用户: %w", err)
	}

	for _, id := range userIDs {
		if _, err := Recalculate(id, scope); err != nil {
			return 0, fmt.Errorf("重算用户 %s 失败: %w", id, err)
		}
	}

	key := fmt.Sprintf("stats_last_full_recalc:%s", scope)
	if err := metadata.Set(key, time.Now().UTC().Format(time.RFC3339)); err != nil {
		fmt.Printf("警告: 记录全量重算时间戳失败: %v\n", err)
	}

	return len(userIDs), nil
}

package stats

import (
	"fmt"

	"github.com/SlpAus/daily-date-trivia-backend/internal/allocation"
	"github.com/SlpAus/daily-date-trivia-backend/internal/attempt"
	"gorm.io/gorm"
)

// Metric 定义了百分位排名可选的比较指标。
type Metric string

const (
	// MetricGamesWon 按总胜场排名
	MetricGamesWon Metric = "games_won"
	// MetricCurrentStreak 按当前连胜排名
	MetricCurrentStreak Metric = "current_streak"
)

// ParseMetric 将外部输入解析为Metric。
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricGamesWon, MetricCurrentStreak:
		return Metric(s), nil
	}
	return "", fmt.Errorf("无效的排名指标: %q", s)
}

// UserStatistics 定义了按 (用户, 作用域) 持久化的统计快照。
// 除两个宽恕字段外，整行都是Attempt历史的纯函数，可随时整体重建；
// 宽恕字段（MissedYesterdayFlag、NextHolidayResetDate）由独立的授予
// 操作写入，重算只读取、不改写它们。
type UserStatistics struct {
	gorm.Model

	UserID string           `gorm:"uniqueIndex:idx_stats_owner;not null;type:varchar(36)" json:"userId"`
	Scope  allocation.Scope `gorm:"uniqueIndex:idx_stats_owner;not null" json:"scope"`

	// CurrentStreak 是截至最近一个终局日的连胜天数
	CurrentStreak int `json:"currentStreak"`

	// MaxStreak 是历史最长连胜天数
	MaxStreak int `json:"maxStreak"`

	// GamesPlayed 是已终局的Attempt数量
	GamesPlayed int `json:"gamesPlayed"`

	// GamesWon 是结果为won的Attempt数量
	GamesWon int `json:"gamesWon"`

	// DistN 是“用N次猜测获胜”的场次，N取1..5
	DistOne   int `json:"-"`
	DistTwo   int `json:"-"`
	DistThree int `json:"-"`
	DistFour  int `json:"-"`
	DistFive  int `json:"-"`

	// MissedYesterdayFlag 表示持有一张未消耗的连胜保护（补签卡）
	MissedYesterdayFlag bool `json:"missedYesterdayFlag"`

	// NextHolidayResetDate 是假日保护的失效日期，格式 YYYY-MM-DD
	NextHolidayResetDate *string `json:"nextHolidayResetDate"`
}

// Distribution 以 猜测次数→场次 的映射返回胜场分布。
// 对1..5全部给出键，未命中的为0。
func (s *UserStatistics) Distribution() map[int]int {
	return map[int]int{
		1: s.DistOne,
		2: s.DistTwo,
		3: s.DistThree,
		4: s.DistFour,
		5: s.DistFive,
	}
}

// addToDistribution 把一个胜场按猜测次数计入分布。
func (s *UserStatistics) addToDistribution(numGuesses int) {
	switch numGuesses {
	case 1:
		s.DistOne++
	case 2:
		s.DistTwo++
	case 3:
		s.DistThree++
	case 4:
		s.DistFour++
	case 5:
		s.DistFive++
	}
}

// AverageGuesses 返回胜场的平均猜测次数。
// 没有胜场时定义为0而不是NaN。
func (s *UserStatistics) AverageGuesses() float64 {
	if s.GamesWon == 0 {
		return 0
	}
	total := s.DistOne + 2*s.DistTwo + 3*s.DistThree + 4*s.DistFour + 5*s.DistFive
	return float64(total) / float64(s.GamesWon)
}

// MetricValue 返回该快照在给定指标下的取值。
func (s *UserStatistics) MetricValue(m Metric) int {
	if m == MetricCurrentStreak {
		return s.CurrentStreak
	}
	return s.GamesWon
}

// attemptRecord 是重算所需的最小Attempt视图。
type attemptRecord struct {
	Result     attempt.Result
	NumGuesses int
	PuzzleDate string
}

package attempt

import (
	"time"

	"github.com/SlpAus/daily-date-trivia-backend/internal/allocation"
	"github.com/SlpAus/daily-date-trivia-backend/internal/user"
	"gorm.io/gorm"
)

// MaxGuesses 是单个Attempt允许的最大猜测次数。
// 第MaxGuesses次猜测仍未命中时，引擎判定该Attempt为Lost。
const MaxGuesses = 5

// Result 定义了Attempt结果的枚举类型
type Result string

const (
	// ResultPending 表示游戏仍在进行中
	ResultPending Result = "pending"
	// ResultWon 表示玩家猜中了答案（终态）
	ResultWon Result = "won"
	// ResultLost 表示玩家用尽了猜测机会（终态）
	ResultLost Result = "lost"
)

// Feedback 定义了单次猜测的反馈枚举类型
type Feedback string

const (
	// FeedbackCorrect 表示猜测命中答案
	FeedbackCorrect Feedback = "correct"
	// FeedbackTooHigh 表示猜测的年份晚于答案
	FeedbackTooHigh Feedback = "too_high"
	// FeedbackTooLow 表示猜测的年份早于答案
	FeedbackTooLow Feedback = "too_low"
)

// Attempt 定义了一个玩家对一个分配的游戏会话。
// 不变式：每个 (user_id, allocation_id) 至多存在一条记录；
// 进入终态后除管理员干预外不可再变更；NumGuesses在任何更新序列下单调不减。
type Attempt struct {
	gorm.Model

	// UserID 是拥有该Attempt的用户UUID
	UserID string `gorm:"uniqueIndex:idx_attempt_owner;not null;type:varchar(36)" json:"userId"`

	// AllocationID 是该Attempt对应的分配主键
	AllocationID uint `gorm:"uniqueIndex:idx_attempt_owner;not null" json:"allocationId"`

	// Scope 冗余存储分配的作用域，避免统计重算时反复join
	Scope allocation.Scope `gorm:"index;not null" json:"scope"`

	// NumGuesses 是已记录的猜测次数，只增不减
	NumGuesses int `json:"numGuesses"`

	// Result 是当前结果；pending为非终态
	Result Result `gorm:"not null" json:"result"`

	// DigitMode 在第一次猜测时从用户当时的偏好锁定，此后不再变化
	DigitMode *user.DigitMode `json:"digitMode"`

	// CompletedAt 在进入终态时被设置
	CompletedAt *time.Time `json:"completedAt"`
}

// IsTerminal 报告该Attempt是否已进入终态。
func (a *Attempt) IsTerminal() bool {
	return a.Result == ResultWon || a.Result == ResultLost
}

// Guess 定义了猜测流水账中的一条记录。
// 只追加，绝不修改或删除；OrderIndex由服务端按到达顺序分配。
type Guess struct {
	gorm.Model

	// AttemptID 是所属Attempt的主键
	AttemptID uint `gorm:"index;uniqueIndex:idx_guess_order;not null" json:"attemptId"`

	// Value 是玩家猜测的年份
	Value int `json:"value"`

	// OrderIndex 是该猜测在Attempt内的序号，从1开始严格递增
	OrderIndex int `gorm:"uniqueIndex:idx_guess_order;not null" json:"orderIndex"`

	// Feedback 是服务端计算的反馈
	Feedback Feedback `json:"feedback"`

	// GuessedAt 是服务端观察到该猜测的时间
	GuessedAt time.Time `json:"guessedAt"`
}

package allocation

import (
	"fmt"

	"gorm.io/gorm"
)

// Scope 定义了内容池的作用域。
// 两个池的玩法完全一致，但由不同的上游流程、按不同的时间线填充。
type Scope string

const (
	// ScopeShared 是共享池：同一地区的所有玩家在同一天收到同一道题。
	ScopeShared Scope = "shared"
	// ScopePersonal 是个人池：题目由离线任务针对单个玩家异步生成。
	ScopePersonal Scope = "personal"
)

// ParseScope 将外部输入解析为Scope。
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeShared, ScopePersonal:
		return Scope(s), nil
	}
	return "", fmt.Errorf("无效的内容池作用域: %q", s)
}

// ContentItem 定义了一条“历史上的今天”事实。
// 由内容管线写入，引擎只读；AnswerYear用于在服务端判定猜测反馈。
type ContentItem struct {
	gorm.Model

	// ItemID 是内容条目的业务ID
	ItemID string `gorm:"uniqueIndex;not null" json:"id"`

	// Prompt 是展示给玩家的题面，例如“埃菲尔铁塔建成于哪一年？”
	Prompt string `json:"prompt"`

	// AnswerYear 是正确答案（年份），绝不通过玩家API泄露
	AnswerYear int `json:"-"`

	// CategoryLabel 是题目类别标签，例如 "science"
	CategoryLabel string `json:"category"`
}

// Allocation 将一个内容条目绑定到 (作用域, 作用域键, 日历日期)。
// 由外部内容管线创建，引擎视角下不可变、永不删除。
// 唯一性约束 (scope, scope_key, puzzle_date) 由上游保证，这里仅以索引兜底。
type Allocation struct {
	gorm.Model

	Scope Scope `gorm:"uniqueIndex:idx_allocation_key;not null" json:"scope"`

	// ScopeKey 在共享池中是地区代码，在个人池中是用户UUID
	ScopeKey string `gorm:"uniqueIndex:idx_allocation_key;not null" json:"-"`

	// PuzzleDate 是谜题日期，格式 YYYY-MM-DD
	PuzzleDate string `gorm:"uniqueIndex:idx_allocation_key;not null;type:varchar(10)" json:"puzzleDate"`

	// ContentItemID 指向被分配的内容条目的业务ID
	ContentItemID string `gorm:"not null" json:"contentItemId"`

	// CategoryLabel 冗余存储分配时的类别，便于列表查询
	CategoryLabel string `json:"categoryLabel"`
}

package allocation

import (
	"fmt"

	"github.com/SlpAus/daily-date-trivia-backend/internal/platform/config"
	"github.com/SlpAus/daily-date-trivia-backend/pkg/apperror"
	"github.com/SlpAus/daily-date-trivia-backend/pkg/caldate"
)

// ReadinessStatus 描述了一次分配查询的三态结果。
// 个人池的“尚未生成”是合法的、可预期的状态，必须与“查无此日”区分开。
type ReadinessStatus string

const (
	// StatusReady 表示分配存在，可以开始游戏
	StatusReady ReadinessStatus = "ready"
	// StatusGenerating 表示个人池分配尚未生成，客户端应退避重试
	StatusGenerating ReadinessStatus = "generating"
	// StatusMissing 表示该日期在请求的池中不存在内容
	StatusMissing ReadinessStatus = "missing"
)

// Resolution 是分配解析的结果。Allocation 仅在 StatusReady 时非nil。
type Resolution struct {
	Status     ReadinessStatus
	Allocation *Allocation
	Item       *ContentItem
}

// scopeKeyFor 计算一个用户在给定作用域下的作用域键。
// 共享池按地区分配，未填写地区的用户落入默认地区；个人池按用户本身分配。
func scopeKeyFor(scope Scope, userID string, userRegion string) string {
	if scope == ScopePersonal {
		return userID
	}
	if userRegion == "" {
		return config.Cfg.Game.DefaultRegion
	}
	return userRegion
}

// ResolveForUser 解析 (用户, 作用域, 日期) 对应的分配。
// 个人池在当天缺席时返回 StatusGenerating 而非错误——生成任务可能尚未跑完。
func ResolveForUser(userID string, userRegion string, scope Scope, date string) (*Resolution, error) {
	if !caldate.IsValid(date) {
		return nil, apperror.Validation("无效的谜题日期: %q", date)
	}

	scopeKey := scopeKeyFor(scope, userID, userRegion)

	alloc, err := GetByKey(scope, scopeKey, date)
	if err != nil {
		return nil, err
	}

	if alloc == nil {
		// 个人池的当天缺席是“生成中”，其余情况一律视为查无此日
		if scope == ScopePersonal && date == caldate.Today() {
			return &Resolution{Status: StatusGenerating}, nil
		}
		return &Resolution{Status: StatusMissing}, nil
	}

	item, err := GetContentItem(alloc.ContentItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		// 分配指向了不存在的内容条目，这是上游管线的数据缺陷
		return nil, fmt.Errorf("分配 %d 指向的内容条目 %s 不存在", alloc.ID, alloc.ContentItemID)
	}

	if scope == ScopePersonal {
		markPersonalReady(userID, date)
	}

	return &Resolution{Status: StatusReady, Allocation: alloc, Item: item}, nil
}

// IsPersonalReady 是就绪探测专用的轻量存在性检查。
// 它优先命中Redis缓存，未命中再回查SQLite并回填缓存。
func IsPersonalReady(userID string, date string) (bool, error) {
	if !caldate.IsValid(date) {
		return false, apperror.Validation("无效的谜题日期: %q", date)
	}

	if isPersonalReadyCached(userID, date) {
		return true, nil
	}

	alloc, err := GetByKey(ScopePersonal, userID, date)
	if err != nil {
		return false, err
	}
	if alloc == nil {
		return false, nil
	}

	markPersonalReady(userID, date)
	return true, nil
}

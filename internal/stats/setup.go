package stats

import (
	"fmt"

	"github.com/SlpAus/daily-date-trivia-backend/internal/allocation"
	"github.com/SlpAus/daily-date-trivia-backend/internal/attempt"
	"github.com/SlpAus/daily-date-trivia-backend/internal/platform/database"
)

// PrimeCachedDB 负责初始化stats模块的数据库表结构，并预热Redis排名缓存。
func PrimeCachedDB() error {
	if err := database.DB.AutoMigrate(&UserStatistics{}); err != nil {
		return fmt.Errorf("无法迁移statistics表: %w", err)
	}
	fmt.Println("Statistics数据库表迁移成功。")

	if err := WarmupCache(); err != nil {
		return err
	}
	return nil
}

// RegisterAttemptHook 把增量重算挂到Attempt完成事件上。
// 必须在路由开始接收请求之前调用一次。
func RegisterAttemptHook() {
	attempt.RegisterCompletionHook(func(userID string, scope allocation.Scope) {
		if _, err := Recalculate(userID, scope); err != nil {
			// 重算是已存Attempt的纯函数，失败后下一次按需重算会自然补上
			fmt.Printf("警告: Attempt完成后的增量统计重算失败 (user=%s, scope=%s): %v\n", userID, scope, err)
		}
	})
}

package allocation

import (
	"fmt"

	"github.com/SlpAus/daily-date-trivia-backend/internal/platform/database"
)

// PrimeDB 负责初始化allocation模块的数据库表结构。
// 表内容由外部内容管线写入，引擎只负责结构迁移。
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&ContentItem{}, &Allocation{}); err != nil {
		return fmt.Errorf("无法迁移allocation相关表: %w", err)
	}
	fmt.Println("Allocation数据库表迁移成功。")
	return nil
}

// WarmupCache 从SQLite重建当天的个人池就绪缓存。
// 在Redis重启后的热重建流程中被调用。
func WarmupCache(today string) error {
	var userIDs []string
	err := database.DB.Model(&Allocation{}).
		Where("scope = ? AND puzzle_date = ?", ScopePersonal, today).
		Pluck("scope_key", &userIDs).Error
	if err != nil {
		return fmt.Errorf("无法读取当天的个人池分配: %w", err)
	}

	for _, id := range userIDs {
		markPersonalReady(id, today)
	}

	fmt.Printf("成功预热 %d 条个人池就绪记录到Redis。\n", len(userIDs))
	return nil
}

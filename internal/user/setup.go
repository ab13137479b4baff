package user

import (
	"fmt"

	"github.com/SlpAus/daily-date-trivia-backend/internal/platform/database"
)

// PrimeCachedDB 负责初始化user模块的数据库表结构，并预热已知用户缓存。
func PrimeCachedDB() error {
	if err := database.DB.AutoMigrate(&User{}); err != nil {
		return fmt.Errorf("无法迁移user表: %w", err)
	}
	fmt.Println("User数据库表迁移成功。")

	if err := WarmupCache(); err != nil {
		return err
	}
	return nil
}

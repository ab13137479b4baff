package attempt

import (
	"fmt"

	"github.com/SlpAus/daily-date-trivia-backend/internal/platform/database"
)

// PrimeDB 负责初始化attempt模块的数据库表结构。
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&Attempt{}, &Guess{}); err != nil {
		return fmt.Errorf("无法迁移attempt相关表: %w", err)
	}
	fmt.Println("Attempt数据库表迁移成功。")
	return nil
}

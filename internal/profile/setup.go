package profile

import (
	"fmt"

	"github.com/SlpAus/daily-date-trivia-backend/internal/platform/config"
	"github.com/SlpAus/daily-date-trivia-backend/internal/platform/database"
)

// PrimeDB 负责初始化profile模块的数据库表结构，
// 并用配置中的缺省冷却天数填充缺失的策略行。
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&RestrictionPolicy{}); err != nil {
		return fmt.Errorf("无法迁移restriction_policy表: %w", err)
	}
	fmt.Println("RestrictionPolicy数据库表迁移成功。")

	defaults := map[FieldClass]int{
		FieldClassPostcode: config.Cfg.Game.PostcodeCooldownDays,
		FieldClassRegion:   config.Cfg.Game.PostcodeCooldownDays,
		FieldClassCategory: config.Cfg.Game.CategoryCooldownDays,
	}

	for class, days := range defaults {
		var count int64
		if err := database.DB.Model(&RestrictionPolicy{}).Where("field_class = ?", class).Count(&count).Error; err != nil {
			return fmt.Errorf("检查冷却策略 %s 失败: %w", class, err)
		}
		if count == 0 {
			if err := database.DB.Create(&RestrictionPolicy{FieldClass: class, CooldownDays: days}).Error; err != nil {
				return fmt.Errorf("写入缺省冷却策略 %s 失败: %w", class, err)
			}
		}
	}

	return nil
}

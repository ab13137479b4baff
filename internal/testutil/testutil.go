package testutil

import (
	"path/filepath"
	"testing"

	"github.com/SlpAus/daily-date-trivia-backend/internal/platform/config"
	"github.com/SlpAus/daily-date-trivia-backend/internal/platform/database"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 为一个测试准备干净的SQLite数据库并迁移给定模型。
// Redis在测试中不可用，健康状态被置为不可用，使所有代码走SQLite路径。
func SetupTestDB(t *testing.T, models ...any) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("无法打开测试数据库: %v", err)
	}

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("无法迁移测试表结构: %v", err)
		}
	}

	database.DB = db
	database.UpdateStatus(false, "")
}

// SetupTestConfig 注入一份测试用的全局配置。
func SetupTestConfig(t *testing.T) {
	t.Helper()

	config.Cfg = &config.Config{
		Game: config.GameConfig{
			PostcodeCooldownDays: 14,
			CategoryCooldownDays: 7,
			DefaultRegion:        "AU",
		},
	}
}

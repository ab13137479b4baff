package metadata

import (
	"errors"
	"fmt"

	"github.com/SlpAus/daily-date-trivia-backend/internal/platform/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Get 读取一个元数据键的值。键不存在时返回 ("", nil)。
func Get(key string) (string, error) {
	var record Metadata
	err := database.DB.Where("key = ?", key).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("读取元数据 %s 失败: %w", key, err)
	}
	return record.Value, nil
}

// Set 写入一个元数据键值对，键已存在时覆盖。
func Set(key, value string) error {
	record := Metadata{Key: key, Value: value}
	err := database.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("写入元数据 %s 失败: %w", key, err)
	}
	return nil
}

package user

import (
	"errors"
	"fmt"

	"github.com/SlpAus/daily-date-trivia-backend/internal/platform/database"
	"gorm.io/gorm"
)

// IsUserActivated 检查一个给定的UUID是否已经被激活（即存在于我们的持久化系统中）。
// 它优先查询Redis缓存；Redis退化时退回SQLite。
func IsUserActivated(uuidStr string) (bool, error) {
	if uuidStr == "" {
		return false, nil
	}

	if database.IsRedisHealthy() {
		exists, err := database.RDB.SIsMember(database.Ctx, KnownUsersKey, uuidStr).Result()
		if err == nil {
			return exists, nil
		}
		// Redis出错时继续走SQLite路径
	}

	var count int64
	if err := database.DB.Model(&User{}).Where("uuid = ?", uuidStr).Count(&count).Error; err != nil {
		return false, fmt.Errorf("查询用户记录失败: %w", err)
	}
	return count > 0, nil
}

// ActivateUser 将一个来自身份提供方的UUID持久化到数据库和缓存中。
// 重复激活是无操作；缓存写入失败时回滚数据库写入，保证两边一致。
func ActivateUser(uuidStr string) error {
	activated, err := IsUserActivated(uuidStr)
	if err != nil {
		return err
	}
	if activated {
		return nil // 用户已存在，无需操作
	}

	tx := database.DB.Begin()
	if tx.Error != nil {
		return fmt.Errorf("无法开始数据库事务: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	newUser := User{UUID: uuidStr, DigitModePref: DigitModeFull}
	if err := tx.Create(&newUser).Error; err != nil {
		tx.Rollback()
		// 并发激活导致的重复键不是真正的错误
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return fmt.Errorf("无法在SQLite中创建新用户: %w", err)
	}

	if database.IsRedisHealthy() {
		if err := database.RDB.SAdd(database.Ctx, KnownUsersKey, uuidStr).Err(); err != nil {
			tx.Rollback()
			return fmt.Errorf("无法将新用户 %s 添加到Redis缓存: %w", uuidStr, err)
		}
	}

	return tx.Commit().Error
}

// GetUserByUUID 加载用户记录。找不到时返回 (nil, nil)。
func GetUserByUUID(uuidStr string) (*User, error) {
	var u User
	err := database.DB.Where("uuid = ?", uuidStr).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询用户记录失败: %w", err)
	}
	return &u, nil
}

// WarmupCache 从SQLite重建Redis中的已知用户集合。
// 在Redis重启后的热重建流程中被调用。
func WarmupCache() error {
	var uuids []string
	if err := database.DB.Model(&User{}).Pluck("uuid", &uuids).Error; err != nil {
		return fmt.Errorf("无法从SQLite读取用户UUID: %w", err)
	}

	if len(uuids) == 0 {
		return nil
	}

	members := make([]interface{}, len(uuids))
	for i, id := range uuids {
		members[i] = id
	}
	if err := database.RDB.SAdd(database.Ctx, KnownUsersKey, members...).Err(); err != nil {
		return fmt.Errorf("预热已知用户集合到Redis失败: %w", err)
	}

	fmt.Printf("成功预热 %d 个已知用户到Redis。\n", len(uuids))
	return nil
}

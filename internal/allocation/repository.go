package allocation

import (
	"errors"
	"fmt"
	"time"

	"github.com/SlpAus/daily-date-trivia-backend/internal/platform/database"
	"gorm.io/gorm"
)

// --- Redis 键名常量 ---

const (
	// PersonalReadyKeyPrefix 是一组按日期分片的 Redis Set 的键前缀。
	// Key: allocation:ready:<date>
	// Member: 当天个人池分配已生成的用户UUID
	// 命中该缓存即可跳过SQLite查询，供就绪探测高频调用。
	PersonalReadyKeyPrefix = "allocation:ready:"

	// personalReadyTTL 是就绪缓存的过期时间。
	// 缓存按天分片，两天后必然无人再查询当天的键。
	personalReadyTTL = 48 * time.Hour
)

func personalReadyKey(date string) string {
	return PersonalReadyKeyPrefix + date
}

// GetByKey 按 (作用域, 作用域键, 日期) 查找分配。
// 找不到时返回 (nil, nil)：缺席是合法状态，不是错误。
func GetByKey(scope Scope, scopeKey string, date string) (*Allocation, error) {
	var alloc Allocation
	err := database.DB.
		Where("scope = ? AND scope_key = ? AND puzzle_date = ?", scope, scopeKey, date).
		First(&alloc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询分配记录失败: %w", err)
	}
	return &alloc, nil
}

// GetByID 按主键查找分配。找不到时返回 (nil, nil)。
func GetByID(id uint) (*Allocation, error) {
	var alloc Allocation
	err := database.DB.First(&alloc, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询分配记录失败: %w", err)
	}
	return &alloc, nil
}

// GetContentItem 按业务ID查找内容条目。找不到时返回 (nil, nil)。
func GetContentItem(itemID string) (*ContentItem, error) {
	var item ContentItem
	err := database.DB.Where("item_id = ?", itemID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询内容条目失败: %w", err)
	}
	return &item, nil
}

// markPersonalReady 将“该用户当天的个人池分配已存在”写入Redis缓存。
// 缓存写入失败只记录警告，不影响主流程。
func markPersonalReady(userID string, date string) {
	if !database.IsRedisHealthy() {
		return
	}
	key := personalReadyKey(date)
	pipe := database.RDB.Pipeline()
	pipe.SAdd(database.Ctx, key, userID)
	pipe.Expire(database.Ctx, key, personalReadyTTL)
	if _, err := pipe.Exec(database.Ctx); err != nil {
		fmt.Printf("警告: 写入个人池就绪缓存失败: %v\n", err)
	}
}

// isPersonalReadyCached 查询Redis就绪缓存。
// 任何错误都按未命中处理，让调用方退回SQLite。
func isPersonalReadyCached(userID string, date string) bool {
	if !database.IsRedisHealthy() {
		return false
	}
	ok, err := database.RDB.SIsMember(database.Ctx, personalReadyKey(date), userID).Result()
	if err != nil {
		return false
	}
	return ok
}

package stats

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/SlpAus/daily-date-trivia-backend/internal/allocation"
	"github.com/SlpAus/daily-date-trivia-backend/internal/platform/database"
	"github.com/redis/go-redis/v9"
)

// --- Redis 键名常量 ---

const (
	// RankingKeyPrefix 是一组 Redis Sorted Set 的键前缀，按作用域和指标分片。
	// Key: stats:ranking:<scope>:<metric>
	// Score: 用户在该指标下的取值
	// Member: 用户UUID
	// 百分位排名从这些有序集合读取。
	RankingKeyPrefix = "stats:ranking:"

	// CacheKeyPrefix 是统计快照短时缓存的键前缀。
	// Key: stats:cache:<scope>:<uuid>
	// Value: StatisticsResponse 的JSON序列化字符串
	CacheKeyPrefix = "stats:cache:"

	// CacheTTL 是统计快照缓存的过期时间。
	CacheTTL = 1 * time.Minute
)

// repoMutex 是一个模块内部的全局读写锁，
// 用于保护缓存热重建与日常写入之间对Redis键的并发访问。
var repoMutex sync.RWMutex

// LockRepository 获取模块全局锁的写锁。
func LockRepository() {
	repoMutex.Lock()
}

// UnlockRepository 释放模块全局锁的写锁。
func UnlockRepository() {
	repoMutex.Unlock()
}

func rankingKey(scope allocation.Scope, metric Metric) string {
	return fmt.Sprintf("%s%s:%s", RankingKeyPrefix, scope, metric)
}

func cacheKey(scope allocation.Scope, userID string) string {
	return fmt.Sprintf("%s%s:%s", CacheKeyPrefix, scope, userID)
}

// refreshRanking 把一份统计快照写入两个指标的排名有序集合，
// 并使旧的快照缓存失效。Redis退化时静默跳过。
func refreshRanking(st *UserStatistics) {
	if !database.IsRedisHealthy() {
		return
	}

	repoMutex.RLock()
	defer repoMutex.RUnlock()

	pipe := database.RDB.Pipeline()
	pipe.ZAdd(database.Ctx, rankingKey(st.Scope, MetricGamesWon), redis.Z{
		Score:  float64(st.GamesWon),
		Member: st.UserID,
	})
	pipe.ZAdd(database.Ctx, rankingKey(st.Scope, MetricCurrentStreak), redis.Z{
		Score:  float64(st.CurrentStreak),
		Member: st.UserID,
	})
	pipe.Del(database.Ctx, cacheKey(st.Scope, st.UserID))
	if _, err := pipe.Exec(database.Ctx); err != nil {
		fmt.Printf("警告: 刷新统计排名到Redis失败: %v\n", err)
	}
}

// GetSnapshotCache 尝试读取统计快照缓存。任何未命中或错误都返回nil。
func GetSnapshotCache(scope allocation.Scope, userID string) *StatisticsResponse {
	if !database.IsRedisHealthy() {
		return nil
	}
	raw, err := database.RDB.Get(database.Ctx, cacheKey(scope, userID)).Result()
	if err != nil {
		return nil
	}
	var resp StatisticsResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil
	}
	return &resp
}

// SetSnapshotCache 把统计快照写入缓存，带TTL。
func SetSnapshotCache(scope allocation.Scope, userID string, resp *StatisticsResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("无法序列化统计快照: %w", err)
	}
	return database.RDB.Set(database.Ctx, cacheKey(scope, userID), raw, CacheTTL).Err()
}

// WarmupCache 从SQLite整体重建两个作用域的排名有序集合。
// 调用方需持有写锁（启动时单线程，或热重建的大范围锁下）。
func WarmupCache() error {
	var rows []UserStatistics
	if err := database.DB.Find(&rows).Error; err != nil {
		return fmt.Errorf("无法从SQLite读取统计快照: %w", err)
	}

	pipe := database.RDB.Pipeline()
	for _, scope := range []allocation.Scope{allocation.ScopeShared, allocation.ScopePersonal} {
		pipe.Del(database.Ctx, rankingKey(scope, MetricGamesWon), rankingKey(scope, MetricCurrentStreak))
	}
	for _, st := range rows {
		pipe.ZAdd(database.Ctx, rankingKey(st.Scope, MetricGamesWon), redis.Z{
			Score:  float64(st.GamesWon),
			Member: st.UserID,
		})
		pipe.ZAdd(database.Ctx, rankingKey(st.Scope, MetricCurrentStreak), redis.Z{
			Score:  float64(st.CurrentStreak),
			Member: st.UserID,
		})
	}
	if _, err := pipe.Exec(database.Ctx); err != nil {
		return fmt.Errorf("预热统计排名到Redis失败: %w", err)
	}

	fmt.Printf("成功预热 %d 条统计快照的排名数据到Redis。\n", len(rows))
	return nil
}

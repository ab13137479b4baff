package startup

import (
	"fmt"

	"github.com/SlpAus/daily-date-trivia-backend/internal/allocation"
	"github.com/SlpAus/daily-date-trivia-backend/internal/attempt"
	"github.com/SlpAus/daily-date-trivia-backend/internal/platform/metadata"
	"github.com/SlpAus/daily-date-trivia-backend/internal/profile"
	"github.com/SlpAus/daily-date-trivia-backend/internal/stats"
	"github.com/SlpAus/daily-date-trivia-backend/internal/user"
	"github.com/SlpAus/daily-date-trivia-backend/pkg/caldate"
)

// InitializeApplication 是应用首次启动时执行的总入口
func InitializeApplication() error {
	fmt.Println("开始应用首次初始化...")

	if err := metadata.PrimeDB(); err != nil {
		return err
	}
	if err := user.PrimeCachedDB(); err != nil {
		return err
	}
	if err := allocation.PrimeDB(); err != nil {
		return err
	}
	if err := attempt.PrimeDB(); err != nil {
		return err
	}
	if err := profile.PrimeDB(); err != nil {
		return err
	}
	if err := stats.PrimeCachedDB(); err != nil {
		return err
	}

	if err := allocation.WarmupCache(caldate.Today()); err != nil {
		return err
	}

	// 把统计增量重算挂到Attempt完成事件上
	stats.RegisterAttemptHook()

	fmt.Println("应用初始化完成！")
	return nil
}

// RebuildCache 是一个专门用于在运行时热重建Redis缓存的函数。
// Redis重启后其中的排名、就绪与已知用户数据全部丢失，
// 这里从SQLite整体重建它们。
func RebuildCache() error {
	fmt.Println("开始缓存热重建...")

	err := func() error {
		stats.LockRepository()
		defer stats.UnlockRepository()
		if err := stats.WarmupCache(); err != nil {
			return err
		}

		if err := user.WarmupCache(); err != nil {
			return err
		}

		if err := allocation.WarmupCache(caldate.Today()); err != nil {
			return err
		}
		return nil
	}()

	if err != nil {
		return err
	}

	fmt.Println("缓存热重建完成。")
	return nil
}

package attempt

import (
	"errors"
	"fmt"
	"time"

	"github.com/SlpAus/daily-date-trivia-backend/internal/allocation"
	"github.com/SlpAus/daily-date-trivia-backend/internal/platform/database"
	"github.com/SlpAus/daily-date-trivia-backend/internal/user"
	"github.com/SlpAus/daily-date-trivia-backend/pkg/apperror"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Patch 是create-or-update与update操作可以修改的字段集合。
// 身份字段（UserID、AllocationID）不在其中，天然不可被篡改。
type Patch struct {
	// Result 只能从pending设置为won或lost，且只能设置一次
	Result *Result
	// NumGuesses 仅当严格大于已存储值时才会被采纳
	NumGuesses *int
}

// applyPatch 在一个处于pending状态的Attempt上应用补丁。
// 规则保证“应用两次”与“乱序应用”收敛到同一状态：
// NumGuesses取更大值，Result只设置一次。
func applyPatch(a *Attempt, patch Patch, now time.Time) error {
	if patch.NumGuesses != nil {
		if *patch.NumGuesses < 0 {
			return apperror.Validation("numGuesses不能为负数")
		}
		if *patch.NumGuesses > a.NumGuesses {
			a.NumGuesses = *patch.NumGuesses
		}
	}
	if patch.Result != nil {
		switch *patch.Result {
		case ResultWon, ResultLost:
		default:
			return apperror.Validation("无效的结果值: %q", *patch.Result)
		}
		a.Result = *patch.Result
		a.CompletedAt = &now
	}
	return nil
}

// GetOrCreateAttempt 实现幂等的“查找或创建并更新”语义。
// 不存在则创建（numGuesses=0, result=pending, digitMode=null）再应用补丁；
// 已终局则原样返回——重试的客户端绝不会重新打开一局已结束的游戏；
// 处于pending则按单调规则应用补丁。全程在单个事务与行锁下执行。
func GetOrCreateAttempt(callerUserID string, allocationID uint, patch Patch) (*Attempt, error) {
	var att Attempt
	completed := false

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND allocation_id = ?", callerUserID, allocationID).
			First(&att).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 首次接触该分配，惰性创建
			var alloc allocation.Allocation
			if err := tx.First(&alloc, allocationID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperror.NotFound("分配 %d 不存在", allocationID)
				}
				return fmt.Errorf("查询分配记录失败: %w", err)
			}
			// 个人池的分配只属于它的目标用户
			if alloc.Scope == allocation.ScopePersonal && alloc.ScopeKey != callerUserID {
				return apperror.Forbidden("该分配不属于当前用户")
			}

			att = Attempt{
				UserID:       callerUserID,
				AllocationID: allocationID,
				Scope:        alloc.Scope,
				NumGuesses:   0,
				Result:       ResultPending,
			}
			if err := tx.Create(&att).Error; err != nil {
				// 两台设备同时首触时，后到者转为更新路径
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
						Where("user_id = ? AND allocation_id = ?", callerUserID, allocationID).
						First(&att).Error; err != nil {
						return fmt.Errorf("并发创建后重读Attempt失败: %w", err)
					}
				} else {
					return fmt.Errorf("创建Attempt失败: %w", err)
				}
			}
		} else if err != nil {
			return fmt.Errorf("查询Attempt失败: %w", err)
		}

		// 终态记录对一切更新免疫
		if att.IsTerminal() {
			return nil
		}

		if err := applyPatch(&att, patch, time.Now()); err != nil {
			return err
		}
		if err := tx.Save(&att).Error; err != nil {
			return fmt.Errorf("保存Attempt失败: %w", err)
		}

		completed = att.IsTerminal()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completed {
		notifyCompleted(att.UserID, att.Scope)
	}
	return &att, nil
}

// RecordGuess 向一个未终局的Attempt追加一次猜测。
// 所有权与终态校验失败分别以Forbidden/Conflict区分上抛；
// 成功时按服务端观察顺序分配OrderIndex，并恰好递增一次NumGuesses。
func RecordGuess(attemptID uint, callerUserID string, value int) (*Guess, *Attempt, error) {
	if value <= 0 {
		return nil, nil, apperror.Validation("猜测年份必须是正整数")
	}

	var att Attempt
	var guess Guess
	completed := false

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&att, attemptID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("Attempt %d 不存在", attemptID)
		}
		if err != nil {
			return fmt.Errorf("查询Attempt失败: %w", err)
		}

		if att.UserID != callerUserID {
			return apperror.Forbidden("该Attempt不属于当前用户")
		}
		// 终局之后不再接受任何猜测，这是核心的防作弊/防破坏不变式
		if att.IsTerminal() {
			return apperror.Conflict("该局游戏已结束，不能继续猜测")
		}

		// 取出答案年份用于计算反馈
		var alloc allocation.Allocation
		if err := tx.First(&alloc, att.AllocationID).Error; err != nil {
			return fmt.Errorf("查询分配记录失败: %w", err)
		}
		var item allocation.ContentItem
		if err := tx.Where("item_id = ?", alloc.ContentItemID).First(&item).Error; err != nil {
			return fmt.Errorf("查询内容条目失败: %w", err)
		}

		// 第一次猜测时，从用户当前偏好锁定位数模式快照
		if att.DigitMode == nil {
			var owner user.User
			if err := tx.Where("uuid = ?", callerUserID).First(&owner).Error; err != nil {
				return fmt.Errorf("查询用户偏好失败: %w", err)
			}
			mode := owner.DigitModePref
			if mode == "" {
				mode = user.DigitModeFull
			}
			att.DigitMode = &mode
		}

		now := time.Now()
		feedback := FeedbackCorrect
		if value > item.AnswerYear {
			feedback = FeedbackTooHigh
		} else if value < item.AnswerYear {
			feedback = FeedbackTooLow
		}

		guess = Guess{
			AttemptID:  att.ID,
			Value:      value,
			OrderIndex: att.NumGuesses + 1,
			Feedback:   feedback,
			GuessedAt:  now,
		}
		if err := tx.Create(&guess).Error; err != nil {
			return fmt.Errorf("写入猜测记录失败: %w", err)
		}

		att.NumGuesses++
		if feedback == FeedbackCorrect {
			att.Result = ResultWon
			att.CompletedAt = &now
		} else if att.NumGuesses >= MaxGuesses {
			att.Result = ResultLost
			att.CompletedAt = &now
		}
		if err := tx.Save(&att).Error; err != nil {
			return fmt.Errorf("保存Attempt失败: %w", err)
		}

		completed = att.IsTerminal()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if completed {
		notifyCompleted(att.UserID, att.Scope)
	}
	return &guess, &att, nil
}

// UpdateAttempt 是create-or-update家族的按ID变体。
// 身份字段不可变（Patch中不存在）；NumGuesses相对已存储值只增不减；
// 终态记录原样返回而不是报错，使重试安全。
func UpdateAttempt(attemptID uint, callerUserID string, patch Patch) (*Attempt, error) {
	var att Attempt
	completed := false

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&att, attemptID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("Attempt %d 不存在", attemptID)
		}
		if err != nil {
			return fmt.Errorf("查询Attempt失败: %w", err)
		}

		if att.UserID != callerUserID {
			return apperror.Forbidden("该Attempt不属于当前用户")
		}
		if att.IsTerminal() {
			return nil
		}

		if err := applyPatch(&att, patch, time.Now()); err != nil {
			return err
		}
		if err := tx.Save(&att).Error; err != nil {
			return fmt.Errorf("保存Attempt失败: %w", err)
		}

		completed = att.IsTerminal()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completed {
		notifyCompleted(att.UserID, att.Scope)
	}
	return &att, nil
}

// --- 完成事件分发 ---

// completionHooks 在一个Attempt进入终态后被依次调用。
// stats模块在启动时注册增量重算钩子，避免attempt与stats互相导入。
var completionHooks []func(userID string, scope allocation.Scope)

// RegisterCompletionHook 注册一个Attempt完成事件的回调。
// 必须在服务开始处理请求前完成注册，运行期不再加锁。
func RegisterCompletionHook(hook func(userID string, scope allocation.Scope)) {
	completionHooks = append(completionHooks, hook)
}

func notifyCompleted(userID string, scope allocation.Scope) {
	for _, hook := range completionHooks {
		hook(userID, scope)
	}
}

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
)

// AttemptSummaryDTO 是带分配摘要的Attempt视图，供列表接口使用。
type AttemptSummaryDTO struct {
	ID           uint             `json:"id"`
	AllocationID uint             `json:"allocationId"`
	Scope        allocation.Scope `json:"scope"`
	NumGuesses   int              `json:"numGuesses"`
	Result       Result           `json:"result"`
	DigitMode    *user.DigitMode  `json:"digitMode"`
	CompletedAt  *time.Time       `json:"completedAt"`

	// 分配摘要
	PuzzleDate    string `json:"puzzleDate"`
	Prompt        string `json:"prompt"`
	CategoryLabel string `json:"categoryLabel"`
}

// attemptJoinRow 是列表查询join结果的内部承载结构。
type attemptJoinRow struct {
	Attempt
	PuzzleDate    string
	Prompt        string
	CategoryLabel string
}

// ListAttempts 返回一个用户在指定作用域下的全部Attempt，
// 按谜题日期升序排列，每行内嵌分配摘要（日期、题面、类别）。
func ListAttempts(userID string, scope allocation.Scope) ([]AttemptSummaryDTO, error) {
	var rows []attemptJoinRow
	err := database.DB.Table("attempts").
		Select("attempts.*, allocations.puzzle_date, allocations.category_label, content_items.prompt").
		Joins("JOIN allocations ON allocations.id = attempts.allocation_id").
		Joins("LEFT JOIN content_items ON content_items.item_id = allocations.content_item_id").
		Where("attempts.user_id = ? AND attempts.scope = ? AND attempts.deleted_at IS NULL", userID, scope).
		Order("allocations.puzzle_date asc").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询Attempt列表失败: %w", err)
	}

	result := make([]AttemptSummaryDTO, 0, len(rows))
	for _, r := range rows {
		result = append(result, AttemptSummaryDTO{
			ID:            r.Attempt.ID,
			AllocationID:  r.Attempt.AllocationID,
			Scope:         r.Attempt.Scope,
			NumGuesses:    r.Attempt.NumGuesses,
			Result:        r.Attempt.Result,
			DigitMode:     r.Attempt.DigitMode,
			CompletedAt:   r.Attempt.CompletedAt,
			PuzzleDate:    r.PuzzleDate,
			Prompt:        r.Prompt,
			CategoryLabel: r.CategoryLabel,
		})
	}
	return result, nil
}

// GetAttemptForUser 加载一个Attempt并校验所有权。
func GetAttemptForUser(attemptID uint, callerUserID string) (*Attempt, error) {
	var att Attempt
	err := database.DB.First(&att, attemptID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Attempt %d 不存在", attemptID)
		}
		return nil, fmt.Errorf("查询Attempt失败: %w", err)
	}
	if att.UserID != callerUserID {
		return nil, apperror.Forbidden("该Attempt不属于当前用户")
	}
	return &att, nil
}

// ListGuesses 返回一个Attempt的猜测流水，按OrderIndex升序。
// 所有权校验由调用方（handler）完成。
func ListGuesses(attemptID uint) ([]Guess, error) {
	var guesses []Guess
	err := database.DB.
		Where("attempt_id = ?", attemptID).
		Order("order_index asc").
		Find(&guesses).Error
	if err != nil {
		return nil, fmt.Errorf("查询猜测流水失败: %w", err)
	}
	return guesses, nil
}

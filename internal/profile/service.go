package profile

import (
	"errors"
	"fmt"
	"time"

	"github.com/SlpAus/daily-date-trivia-backend/internal/platform/database"
	"github.com/SlpAus/daily-date-trivia-backend/internal/user"
	"github.com/SlpAus/daily-date-trivia-backend/pkg/apperror"
	"gorm.io/gorm"
)

// GetPolicy 读取一个字段类别的冷却策略。没有策略行时返回零冷却（不受限）。
func GetPolicy(class FieldClass) (*RestrictionPolicy, error) {
	var policy RestrictionPolicy
	err := database.DB.Where("field_class = ?", class).First(&policy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &RestrictionPolicy{FieldClass: class, CooldownDays: 0}, nil
		}
		return nil, fmt.Errorf("读取冷却策略失败: %w", err)
	}
	return &policy, nil
}

// SetPolicy 写入一个字段类别的冷却策略，管理员专用。
func SetPolicy(class FieldClass, cooldownDays int) error {
	if cooldownDays < 0 {
		return apperror.Validation("冷却天数不能为负数")
	}

	var policy RestrictionPolicy
	err := database.DB.Where("field_class = ?", class).First(&policy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		policy = RestrictionPolicy{FieldClass: class, CooldownDays: cooldownDays}
		return database.DB.Create(&policy).Error
	}
	if err != nil {
		return fmt.Errorf("读取冷却策略失败: %w", err)
	}

	policy.CooldownDays = cooldownDays
	return database.DB.Save(&policy).Error
}

// stampFor 返回一个字段类别对应的上次修改时间戳。
// 邮编与地区共享同一个时间戳，因为它们共同驱动共享池分配。
func stampFor(u *user.User, class FieldClass) *time.Time {
	if class == FieldClassCategory {
		return u.CategoryChangedAt
	}
	return u.PostcodeChangedAt
}

// CheckFieldRestriction 对一个用户的指定字段类别执行冷却检查。
func CheckFieldRestriction(u *user.User, class FieldClass, now time.Time) (Restriction, error) {
	policy, err := GetPolicy(class)
	if err != nil {
		return Restriction{}, err
	}
	return CheckRestriction(stampFor(u, class), policy.CooldownDays, now), nil
}

// ProfilePatch 是一次资料修改请求。nil字段表示不修改。
type ProfilePatch struct {
	Postcode     *string
	Region       *string
	CategoryPref *string
	DigitMode    *string
}

// UpdateProfile 应用一次资料修改。
// 受冷却约束的字段在窗口内被拒绝，错误携带精确的解禁时间；
// 被接受的修改在对应字段类别上盖下新的时间戳。
// 位数模式偏好不影响分配，不受冷却约束。
func UpdateProfile(userID string, patch ProfilePatch, now time.Time) (*user.User, error) {
	var updated *user.User

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var u user.User
		if err := tx.Where("uuid = ?", userID).First(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("用户 %s 不存在", userID)
			}
			return fmt.Errorf("查询用户失败: %w", err)
		}

		// 邮编/地区：任一出现即触发位置字段的冷却检查
		if patch.Postcode != nil || patch.Region != nil {
			class := FieldClassPostcode
			if patch.Postcode == nil {
				class = FieldClassRegion
			}
			restriction, err := CheckFieldRestriction(&u, class, now)
			if err != nil {
				return err
			}
			if !restriction.Allowed {
				return apperror.Restricted(*restriction.NextAllowedAt, "地区/邮编修改处于冷却期")
			}

			if patch.Postcode != nil {
				u.Postcode = *patch.Postcode
			}
			if patch.Region != nil {
				u.Region = *patch.Region
			}
			stamp := now
			u.PostcodeChangedAt = &stamp
		}

		if patch.CategoryPref != nil {
			restriction, err := CheckFieldRestriction(&u, FieldClassCategory, now)
			if err != nil {
				return err
			}
			if !restriction.Allowed {
				return apperror.Restricted(*restriction.NextAllowedAt, "类别偏好修改处于冷却期")
			}

			u.CategoryPref = *patch.CategoryPref
			stamp := now
			u.CategoryChangedAt = &stamp
		}

		if patch.DigitMode != nil {
			if !user.IsValidDigitMode(*patch.DigitMode) {
				return apperror.Validation("无效的位数模式: %q", *patch.DigitMode)
			}
			u.DigitModePref = user.DigitMode(*patch.DigitMode)
		}

		if err := tx.Save(&u).Error; err != nil {
			return fmt.Errorf("保存用户资料失败: %w", err)
		}

		updated = &u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

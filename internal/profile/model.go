package profile

import (
	"fmt"

	"gorm.io/gorm"
)

// FieldClass 定义了受冷却约束的资料字段类别。
// 邮编与地区共同决定共享池分配，视为同一个修改时间戳；
// 类别偏好驱动个人池生成，使用独立的时间戳。
type FieldClass string

const (
	// FieldClassPostcode 是邮编字段
	FieldClassPostcode FieldClass = "postcode"
	// FieldClassRegion 是地区字段
	FieldClassRegion FieldClass = "region"
	// FieldClassCategory 是题目类别偏好字段
	FieldClassCategory FieldClass = "category"
)

// ParseFieldClass 将外部输入解析为FieldClass。
func ParseFieldClass(s string) (FieldClass, error) {
	switch FieldClass(s) {
	case FieldClassPostcode, FieldClassRegion, FieldClassCategory:
		return FieldClass(s), nil
	}
	return "", fmt.Errorf("无效的资料字段类别: %q", s)
}

// RestrictionPolicy 定义了管理员设置的、按字段类别的冷却策略。
// 引擎只消费这些值；cooldownDays<=0表示该字段不受限。
type RestrictionPolicy struct {
	gorm.Model

	// FieldClass 是策略作用的字段类别
	FieldClass FieldClass `gorm:"uniqueIndex;not null"`

	// CooldownDays 是两次被接受的修改之间必须间隔的日历天数
	CooldownDays int
}

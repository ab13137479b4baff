package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DigitMode 定义了玩家输入年份的位数模式偏好。
// 它是一个全局偏好，但会在每个Attempt的第一次猜测时被锁定为快照。
type DigitMode string

const (
	// DigitModeFull 表示完整四位年份输入，例如 1889
	DigitModeFull DigitMode = "full"
	// DigitModeShort 表示两位年份输入，例如 89
	DigitModeShort DigitMode = "short"
)

// IsValidDigitMode 报告一个字符串是否是合法的位数模式。
func IsValidDigitMode(s string) bool {
	switch DigitMode(s) {
	case DigitModeFull, DigitModeShort:
		return true
	}
	return false
}

// User 定义了玩家在SQLite数据库中的持久化模型。
// 身份由外部身份提供方签发并校验，引擎只信任传入的UUID。
type User struct {
	// UUID 是用户的主键，来自身份提供方
	UUID string `gorm:"primarykey;type:varchar(36)"`

	// Region 是共享池分配使用的地区代码
	Region string

	// Postcode 是用户填写的邮编，与Region同属一个冷却字段类
	Postcode string

	// CategoryPref 是个人池题目的类别偏好
	CategoryPref string

	// DigitModePref 是当前的年份位数模式偏好
	DigitModePref DigitMode

	// PostcodeChangedAt 是邮编/地区上一次被接受修改的时间戳
	PostcodeChangedAt *time.Time

	// CategoryChangedAt 是类别偏好上一次被接受修改的时间戳
	CategoryChangedAt *time.Time

	// 部分gorm.Model，由GORM自动管理
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// IsValidUUID 报告一个字符串是否是合法的UUID。
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

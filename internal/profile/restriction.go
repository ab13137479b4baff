package profile

import (
	"time"
)

// Restriction 是一次冷却检查的结果。
// NextAllowedAt 在被限制时给出精确的解禁时间，供客户端展示。
type Restriction struct {
	Allowed       bool       `json:"allowed"`
	NextAllowedAt *time.Time `json:"nextAllowedAt"`
}

// CheckRestriction 执行冷却窗口判定。
// lastChangedAt为nil或cooldownDays<=0时恒为允许；
// 否则解禁时间为上次修改时间加cooldownDays个日历日，边界当刻即允许。
func CheckRestriction(lastChangedAt *time.Time, cooldownDays int, now time.Time) Restriction {
	if lastChangedAt == nil || cooldownDays <= 0 {
		return Restriction{Allowed: true}
	}

	nextAllowedAt := lastChangedAt.AddDate(0, 0, cooldownDays)
	return Restriction{
		Allowed:       !now.Before(nextAllowedAt),
		NextAllowedAt: &nextAllowedAt,
	}
}

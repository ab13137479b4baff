package caldate

import (
	"fmt"
	"time"
)

// Layout 是谜题日期在数据库和API中统一使用的格式。
const Layout = "2006-01-02"

// Parse 将 "YYYY-MM-DD" 格式的日期字符串解析为UTC零点的时间。
func Parse(s string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("无效的日期格式 %q: %w", s, err)
	}
	return t, nil
}

// IsValid 报告一个字符串是否是合法的日历日期。
func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Today 返回UTC当天的日期字符串。
func Today() string {
	return time.Now().UTC().Format(Layout)
}

// AddDays 在给定日期上增加n天（n可为负）。
// 调用方需保证s是合法日期。
func AddDays(s string, n int) string {
	t, _ := Parse(s)
	return t.AddDate(0, 0, n).Format(Layout)
}

// DaysBetween 返回从a到b经过的日历天数（b晚于a时为正）。
func DaysBetween(a, b string) int {
	ta, _ := Parse(a)
	tb, _ := Parse(b)
	return int(tb.Sub(ta).Hours() / 24)
}

// Before 报告日期a是否严格早于日期b。
func Before(a, b string) bool {
	return DaysBetween(a, b) > 0
}

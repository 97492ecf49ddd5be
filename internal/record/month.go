package record

import (
	"fmt"
	"time"
)

const yearMonthLayout = "2006-01"

// YearMonth 是 YYYY-MM 形式的月份
type YearMonth string

// ParseYearMonth 解析并校验月份
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse(yearMonthLayout, s)
	if err != nil || t.Format(yearMonthLayout) != s {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return YearMonth(s), nil
}

// MonthOf 返回给定时间所在的月份
func MonthOf(t time.Time) YearMonth {
	return YearMonth(t.Format(yearMonthLayout))
}

// Range 返回按日期字符串查询的闭区间
// 日期是补零的 YYYY-MM-DD，字典序即时间序，所以用 -31 作为上界对所有月份都成立
func (ym YearMonth) Range() (string, string) {
	return string(ym) + "-01", string(ym) + "-31"
}

// Adjacent 返回相隔 delta 个月的月份
func (ym YearMonth) Adjacent(delta int) YearMonth {
	t, err := time.Parse(yearMonthLayout, string(ym))
	if err != nil {
		return ym
	}
	return MonthOf(t.AddDate(0, delta, 0))
}

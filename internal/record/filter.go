package record

import (
	"strconv"
	"strings"
)

// Criteria 是月视图的筛选条件，空字段表示不筛选，多个条件取交集
type Criteria struct {
	Outcome  Outcome `form:"outcome"`
	Location string  `form:"location"`
	// Keyword 同时匹配备注和所有分类内容
	Keyword string `form:"keyword"`
}

// Filter 返回满足条件的记录，保持原有顺序，不修改输入
func Filter(records []Record, c Criteria) []Record {
	location := strings.ToLower(strings.TrimSpace(c.Location))
	keyword := strings.ToLower(strings.TrimSpace(c.Keyword))

	out := make([]Record, 0, len(records))
	for i := range records {
		r := &records[i]
		if c.Outcome != "" && r.Outcome != c.Outcome {
			continue
		}
		if location != "" && !strings.Contains(strings.ToLower(r.Location), location) {
			continue
		}
		if keyword != "" && !matchesKeyword(r, keyword) {
			continue
		}
		out = append(out, *r)
	}
	return out
}

// keyword 已经转为小写
func matchesKeyword(r *Record, keyword string) bool {
	if strings.Contains(strings.ToLower(r.Memo), keyword) {
		return true
	}
	for _, content := range r.CategoryMap() {
		if strings.Contains(strings.ToLower(content), keyword) {
			return true
		}
	}
	return false
}

// GroupByDay 按日期中的日把记录分组，供日历视图使用
// 键是不补零的日，例如 "7"；日期无法解析的记录被跳过
func GroupByDay(records []Record) map[string][]Record {
	days := make(map[string][]Record)
	for _, r := range records {
		if len(r.Date) != 10 {
			continue
		}
		day, err := strconv.Atoi(r.Date[8:])
		if err != nil {
			continue
		}
		key := strconv.Itoa(day)
		days[key] = append(days[key], r)
	}
	return days
}

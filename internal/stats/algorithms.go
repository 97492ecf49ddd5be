package stats

import (
	"sort"

	"github.com/SlpAus/omikuji-record-backend/internal/record"
)

// RecentMonthCount 是统计页展示的最近月份数
const RecentMonthCount = 6

// Streak 是从最新一条记录开始连续相同运势的长度
type Streak struct {
	Count   int            `json:"count"`
	Outcome record.Outcome `json:"outcome"`
}

// MonthCount 是某个月的抽签次数
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// OutcomeCount 是某个运势的出现次数
type OutcomeCount struct {
	Outcome record.Outcome `json:"outcome"`
	Count   int            `json:"count"`
}

// Stats 是一个用户全部记录的统计结果
type Stats struct {
	Total     int                    `json:"total"`
	ByOutcome map[record.Outcome]int `json:"byOutcome"`
	ByMonth   map[string]int         `json:"byMonth"`
	// LatestStreak 长度小于2时不存在
	LatestStreak *Streak `json:"latestStreak,omitempty"`

	RecentMonths []MonthCount   `json:"recentMonths"`
	Distribution []OutcomeCount `json:"distribution"`
}

// Compute 统计按 date 降序排列的记录，不会重新排序
func Compute(records []record.Record) Stats {
	s := Stats{
		Total:     len(records),
		ByOutcome: make(map[record.Outcome]int),
		ByMonth:   make(map[string]int),
	}

	for i := range records {
		r := &records[i]
		s.ByOutcome[r.Outcome]++
		if len(r.Date) >= 7 {
			s.ByMonth[r.Date[:7]]++
		}
	}

	s.LatestStreak = latestStreak(records)
	s.RecentMonths = RecentMonths(s.ByMonth, RecentMonthCount)
	s.Distribution = Distribution(s.ByOutcome)
	return s
}

func latestStreak(records []record.Record) *Streak {
	if len(records) == 0 {
		return nil
	}
	first := records[0].Outcome
	count := 1
	for _, r := range records[1:] {
		if r.Outcome != first {
			break
		}
		count++
	}
	// 只出现一次不算连续
	if count < 2 {
		return nil
	}
	return &Streak{Count: count, Outcome: first}
}

// RecentMonths 返回最新的 n 个月份，按月份降序
func RecentMonths(byMonth map[string]int, n int) []MonthCount {
	months := make([]MonthCount, 0, len(byMonth))
	for m, c := range byMonth {
		months = append(months, MonthCount{Month: m, Count: c})
	}
	sort.Slice(months, func(i, j int) bool {
		return months[i].Month > months[j].Month
	})
	if len(months) > n {
		months = months[:n]
	}
	return months
}

// Distribution 按标准顺序列出每个运势的次数，没出现的为0，
// 不在标准集合中的值被忽略
func Distribution(byOutcome map[record.Outcome]int) []OutcomeCount {
	outcomes := record.Outcomes()
	dist := make([]OutcomeCount, 0, len(outcomes))
	for _, o := range outcomes {
		dist = append(dist, OutcomeCount{Outcome: o, Count: byOutcome[o]})
	}
	return dist
}

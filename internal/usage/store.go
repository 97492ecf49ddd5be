package usage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrQuotaExceeded 表示当天的识别次数已用完
	ErrQuotaExceeded = errors.New("今日识别次数已用完")
	// ErrStoreUnavailable 表示计数存储暂时不可用，此时拒绝识别以免超额
	ErrStoreUnavailable = errors.New("服务暂时不可用，无法获取识别次数")
	// ErrContention 表示在重试上限内仍未完成原子更新
	ErrContention = errors.New("识别次数更新冲突过多")
)

// Store 是计数的存储接口
type Store interface {
	// Get 返回用户的计数，不存在时返回 nil, nil
	Get(ctx context.Context, userID string) (*Counter, error)
	// CreateOrReset 把计数设为1并以 now 作为新窗口的开始
	CreateOrReset(ctx context.Context, userID string, now time.Time) error
	// IncrementIfUnderLimit 原子地执行完整的状态机：
	// 不存在或 LastReset 早于 windowStart 时重置为1；否则 Count < limit 时加一；否则不修改并返回 false
	IncrementIfUnderLimit(ctx context.Context, userID string, limit int, windowStart, now time.Time) (bool, error)
}

// decide 是两个存储共用的状态转移，返回新的计数、新的窗口开始和是否允许
func decide(c *Counter, limit int, windowStart, now time.Time) (count int, lastReset int64, allowed bool) {
	switch {
	case c == nil, c.LastReset < windowStart.UnixMicro():
		return 1, now.UnixMicro(), true
	case c.Count < limit:
		return c.Count + 1, c.LastReset, true
	default:
		return c.Count, c.LastReset, false
	}
}

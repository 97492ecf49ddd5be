package usage

import (
	"context"
	"time"
)

// DefaultDailyLimit 是每个用户每天允许的识别次数
const DefaultDailyLimit = 10

// Limiter 按用户限制每日识别次数，窗口在本地时区的零点重置
type Limiter struct {
	store Store
	limit int
	loc   *time.Location
	now   func() time.Time
}

// NewLimiter 创建限流器，limit <= 0 时使用 DefaultDailyLimit，loc 为 nil 时使用本地时区
func NewLimiter(store Store, limit int, loc *time.Location) *Limiter {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	if loc == nil {
		loc = time.Local
	}
	return &Limiter{store: store, limit: limit, loc: loc, now: time.Now}
}

// WithClock 替换时钟，用于测试
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Limit 返回每日上限
func (l *Limiter) Limit() int {
	return l.limit
}

// Location 返回计数窗口使用的时区
func (l *Limiter) Location() *time.Location {
	return l.loc
}

// Now 返回限流器时钟的当前时间
func (l *Limiter) Now() time.Time {
	return l.now().In(l.loc)
}

// windowStart 返回 t 所在本地日的零点
func (l *Limiter) windowStart(t time.Time) time.Time {
	local := t.In(l.loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, l.loc)
}

// TryConsume 尝试扣减一次额度。返回 true 表示本次调用已计数，false 表示今日额度已用完且未修改计数
func (l *Limiter) TryConsume(ctx context.Context, userID string) (bool, error) {
	now := l.now()
	return l.store.IncrementIfUnderLimit(ctx, userID, l.limit, l.windowStart(now), now)
}

// Remaining 返回今天还可以调用的次数
func (l *Limiter) Remaining(ctx context.Context, userID string) (int, error) {
	c, err := l.store.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	if c == nil || c.LastReset < l.windowStart(l.now()).UnixMicro() {
		return l.limit, nil
	}
	if c.Count >= l.limit {
		return 0, nil
	}
	return l.limit - c.Count, nil
}

// Reset 让用户的下一次调用开启新的窗口
func (l *Limiter) Reset(ctx context.Context, userID string) error {
	return l.store.CreateOrReset(ctx, userID, time.UnixMicro(0))
}

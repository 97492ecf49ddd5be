package usage

import "time"

// Counter 是一个用户当天的识别调用计数
type Counter struct {
	UserID string `gorm:"primaryKey;type:varchar(64)" json:"userId"`
	Count  int    `gorm:"not null" json:"count"`
	// LastReset 是当前计数窗口开始的时间，单位为Unix微秒
	LastReset int64     `gorm:"not null" json:"lastReset"`
	UpdatedAt time.Time `json:"-"`
}

// TableName 指定表名
func (Counter) TableName() string {
	return "usage_counters"
}

// LastResetTime 返回 LastReset 对应的时间
func (c *Counter) LastResetTime() time.Time {
	return time.UnixMicro(c.LastReset)
}

package usage

import (
	"time"

	"github.com/SlpAus/omikuji-record-backend/internal/platform/metadata"
	"gorm.io/gorm"
)

// SetLastSnapshotTime 记录最近一次成功快照的时间
func SetLastSnapshotTime(db *gorm.DB, t time.Time) error {
	return metadata.SetTime(db, metadata.LastUsageSnapshotKey, t)
}

// GetLastSnapshotTime 返回最近一次成功快照的时间，从未快照时为零值
func GetLastSnapshotTime(db *gorm.DB) (time.Time, error) {
	return metadata.GetTime(db, metadata.LastUsageSnapshotKey)
}

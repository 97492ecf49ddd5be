package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore 直接在数据库中维护计数，每一步都是按用户ID加条件的单条语句
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate 负责自动迁移计数表
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Counter{}); err != nil {
		return fmt.Errorf("无法迁移usage_counters表: %w", err)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, userID string) (*Counter, error) {
	var c Counter
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取用户 %s 的计数失败: %w", userID, err)
	}
	return &c, nil
}

func (s *GormStore) CreateOrReset(ctx context.Context, userID string, now time.Time) error {
	c := Counter{UserID: userID, Count: 1, LastReset: now.UnixMicro()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"count", "last_reset", "updated_at"}),
	}).Create(&c).Error
	if err != nil {
		return fmt.Errorf("重置用户 %s 的计数失败: %w", userID, err)
	}
	return nil
}

// IncrementIfUnderLimit 依次尝试三条条件语句，任意一条命中即完成：
// 同一窗口内未达上限则加一；窗口已过期则重置；不存在则插入。
// 插入与并发插入冲突时重新开始，三条都不命中说明已达上限。
func (s *GormStore) IncrementIfUnderLimit(ctx context.Context, userID string, limit int, windowStart, now time.Time) (bool, error) {
	db := s.db.WithContext(ctx)
	start := windowStart.UnixMicro()

	for attempt := 0; attempt < 3; attempt++ {
		res := db.Model(&Counter{}).
			Where("user_id = ? AND last_reset >= ? AND count < ?", userID, start, limit).
			Updates(map[string]interface{}{
				"count":      gorm.Expr("count + 1"),
				"updated_at": now,
			})
		if res.Error != nil {
			return false, fmt.Errorf("增加用户 %s 的计数失败: %w", userID, res.Error)
		}
		if res.RowsAffected == 1 {
			return true, nil
		}

		res = db.Model(&Counter{}).
			Where("user_id = ? AND last_reset < ?", userID, start).
			Updates(map[string]interface{}{
				"count":      1,
				"last_reset": now.UnixMicro(),
				"updated_at": now,
			})
		if res.Error != nil {
			return false, fmt.Errorf("重置用户 %s 的计数失败: %w", userID, res.Error)
		}
		if res.RowsAffected == 1 {
			return true, nil
		}

		res = db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&Counter{UserID: userID, Count: 1, LastReset: now.UnixMicro()})
		if res.Error != nil {
			return false, fmt.Errorf("创建用户 %s 的计数失败: %w", userID, res.Error)
		}
		if res.RowsAffected == 1 {
			return true, nil
		}

		// 行已存在：要么已达上限，要么刚被并发请求创建或重置，再读一次区分
		var existing Counter
		if err := db.Where("user_id = ?", userID).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return false, fmt.Errorf("读取用户 %s 的计数失败: %w", userID, err)
		}
		if existing.LastReset >= start && existing.Count >= limit {
			return false, nil
		}
	}
	return false, ErrContention
}

// Upsert 批量写入计数，用于快照
func Upsert(db *gorm.DB, counters []Counter) error {
	if len(counters) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"count", "last_reset", "updated_at"}),
	}).Create(&counters).Error
}

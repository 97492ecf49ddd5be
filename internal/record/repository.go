package record

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store 是记录的持久化接口
type Store interface {
	Insert(ctx context.Context, r *Record) (string, error)
	GetByID(ctx context.Context, id string) (*Record, error)
	Update(ctx context.Context, id string, patch Patch) (*Record, error)
	Delete(ctx context.Context, id string) error
	// ListByUser 按 date 降序、created_at 降序返回，limit <= 0 表示不限
	ListByUser(ctx context.Context, userID string, limit int) ([]Record, error)
	ListByUserAndMonth(ctx context.Context, userID string, ym YearMonth) ([]Record, error)
}

// GormStore 是基于gorm的 Store 实现，SQLite 和 PostgreSQL 通用
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate 负责自动迁移记录表
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("无法迁移记录表: %w", err)
	}
	return nil
}

func (s *GormStore) Insert(ctx context.Context, r *Record) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("无法生成UUID v7: %w", err)
	}
	r.ID = id.String()
	if r.Categories.Data() == nil {
		r.SetCategories(Categories{})
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return "", fmt.Errorf("保存记录失败: %w", err)
	}
	return r.ID, nil
}

func (s *GormStore) GetByID(ctx context.Context, id string) (*Record, error) {
	var r Record
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询记录 %s 失败: %w", id, err)
	}
	return &r, nil
}

// Update 合并补丁中给出的字段并刷新 updated_at，返回更新后的记录
func (s *GormStore) Update(ctx context.Context, id string, patch Patch) (*Record, error) {
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if patch.Date != nil {
		updates["date"] = *patch.Date
	}
	if patch.Outcome != nil {
		updates["outcome"] = *patch.Outcome
	}
	if patch.Location != nil {
		updates["location"] = *patch.Location
	}
	if patch.Memo != nil {
		updates["memo"] = *patch.Memo
	}
	if patch.Categories != nil {
		c := *patch.Categories
		if c == nil {
			c = Categories{}
		}
		var holder Record
		holder.SetCategories(c)
		updates["categories"] = holder.Categories
	}

	var updated Record
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Record{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("id = ?", id).First(&updated).Error
	})
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("更新记录 %s 失败: %w", id, err)
	}
	return &updated, nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Record{})
	if result.Error != nil {
		return fmt.Errorf("删除记录 %s 失败: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListByUser(ctx context.Context, userID string, limit int) ([]Record, error) {
	query := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date desc").
		Order("created_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []Record
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询用户记录失败: %w", err)
	}
	return records, nil
}

func (s *GormStore) ListByUserAndMonth(ctx context.Context, userID string, ym YearMonth) ([]Record, error) {
	from, to := ym.Range()

	var records []Record
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Order("date desc").
		Order("created_at desc").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("查询 %s 的记录失败: %w", ym, err)
	}
	return records, nil
}

package goal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultPublicLimit 是公开目标列表的默认条数
const DefaultPublicLimit = 10

// Store 是年度目标的持久化接口
type Store interface {
	Insert(ctx context.Context, g *Goal) (string, error)
	// CurrentYear 返回用户在该年最新保存的目标，没有时返回 ErrNotFound
	CurrentYear(ctx context.Context, userID string, year int) (*Goal, error)
	ListByUser(ctx context.Context, userID string) ([]Goal, error)
	ListPublicByYear(ctx context.Context, year, limit int) ([]Goal, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate 负责自动迁移目标表
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Goal{}); err != nil {
		return fmt.Errorf("无法迁移目标表: %w", err)
	}
	return nil
}

func (s *GormStore) Insert(ctx context.Context, g *Goal) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("无法生成UUID v7: %w", err)
	}
	g.ID = id.String()
	if err := s.db.WithContext(ctx).Create(g).Error; err != nil {
		return "", fmt.Errorf("保存目标失败: %w", err)
	}
	return g.ID, nil
}

func (s *GormStore) CurrentYear(ctx context.Context, userID string, year int) (*Goal, error) {
	var g Goal
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND year = ?", userID, year).
		Order("created_at desc").
		Order("id desc").
		First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询 %d 年目标失败: %w", year, err)
	}
	return &g, nil
}

func (s *GormStore) ListByUser(ctx context.Context, userID string) ([]Goal, error) {
	var goals []Goal
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("year desc").
		Order("created_at desc").
		Order("id desc").
		Find(&goals).Error
	if err != nil {
		return nil, fmt.Errorf("查询用户目标失败: %w", err)
	}
	return goals, nil
}

// ListPublicByYear 按创建时间倒序返回公开目标，limit <= 0 时使用 DefaultPublicLimit
func (s *GormStore) ListPublicByYear(ctx context.Context, year, limit int) ([]Goal, error) {
	if limit <= 0 {
		limit = DefaultPublicLimit
	}
	var goals []Goal
	err := s.db.WithContext(ctx).
		Where("year = ? AND is_public = ?", year, true).
		Order("created_at desc").
		Order("id desc").
		Limit(limit).
		Find(&goals).Error
	if err != nil {
		return nil, fmt.Errorf("查询 %d 年公开目标失败: %w", year, err)
	}
	return goals, nil
}

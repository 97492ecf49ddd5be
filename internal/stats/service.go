package stats

import (
	"context"
	"errors"
	"fmt"

	"github.com/SlpAus/omikuji-record-backend/internal/platform/database"
	"github.com/SlpAus/omikuji-record-backend/internal/platform/logger"
	"github.com/SlpAus/omikuji-record-backend/internal/record"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// RecordLister 是统计需要的记录查询
type RecordLister interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]record.Record, error)
}

// Service 计算并缓存用户的统计结果
type Service struct {
	records RecordLister
	rdb     *redis.Client
	group   singleflight.Group
}

// NewService 创建统计服务，rdb 为 nil 时不使用缓存
func NewService(records RecordLister, rdb *redis.Client) *Service {
	return &Service{records: records, rdb: rdb}
}

func (s *Service) cacheEnabled() bool {
	return s.rdb != nil && database.IsRedisHealthy()
}

// ForUser 返回用户的统计结果，优先读取缓存
func (s *Service) ForUser(ctx context.Context, userID string) (*Stats, error) {
	if s.cacheEnabled() {
		cached, err := getCache(ctx, s.rdb, userID)
		if err != nil {
			logger.L.Warnw("读取统计缓存失败", "userID", userID, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	// 同一用户的并发未命中只计算一次
	v, err, _ := s.group.Do(userID, func() (interface{}, error) {
		return s.compute(context.WithoutCancel(ctx), userID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Stats), nil
}

func (s *Service) compute(ctx context.Context, userID string) (*Stats, error) {
	// 先读变更代数，读取记录期间若有修改则放弃写缓存
	cache := s.cacheEnabled()
	var gen int64
	if cache {
		g, err := getGeneration(ctx, s.rdb, userID)
		if err != nil {
			logger.L.Warnw("读取统计代数失败", "userID", userID, "error", err)
			cache = false
		}
		gen = g
	}

	records, err := s.records.ListByUser(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("加载用户记录失败: %w", err)
	}
	result := Compute(records)

	if cache && s.cacheEnabled() {
		err := setCacheIfCurrent(ctx, s.rdb, userID, gen, &result, cacheTTL)
		switch {
		case errors.Is(err, errStaleGeneration):
			logger.L.Debugw("统计计算期间记录已变化，跳过缓存", "userID", userID)
		case err != nil:
			logger.L.Warnw("写入统计缓存失败", "userID", userID, "error", err)
		}
	}
	return &result, nil
}

// RecordsChanged 在记录变化后使缓存失效
func (s *Service) RecordsChanged(ctx context.Context, userID string) {
	s.group.Forget(userID)
	if !s.cacheEnabled() {
		return
	}
	if err := bumpGeneration(ctx, s.rdb, userID); err != nil {
		logger.L.Warnw("清除统计缓存失败", "userID", userID, "error", err)
	}
}

// Invalidate 清除所有用户的统计缓存，Redis重建后调用
func (s *Service) Invalidate(ctx context.Context) error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Del(ctx, CacheKey).Err()
}

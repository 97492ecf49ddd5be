package startup

import (
	"context"
	"fmt"

	"github.com/SlpAus/omikuji-record-backend/internal/goal"
	"github.com/SlpAus/omikuji-record-backend/internal/platform/logger"
	"github.com/SlpAus/omikuji-record-backend/internal/platform/metadata"
	"github.com/SlpAus/omikuji-record-backend/internal/record"
	"github.com/SlpAus/omikuji-record-backend/internal/stats"
	"github.com/SlpAus/omikuji-record-backend/internal/usage"
	"gorm.io/gorm"
)

// SchemaVersion 在迁移完成后写入元数据表
const SchemaVersion = "1"

// Components 是启动和缓存重建需要触达的组件
type Components struct {
	DB *gorm.DB
	// Usage 为 nil 表示计数直接存放在数据库中
	Usage *usage.RedisStore
	Stats *stats.Service
}

// Migrate 迁移所有模块的表结构
func Migrate(db *gorm.DB) error {
	steps := []func(*gorm.DB) error{
		metadata.Migrate,
		record.Migrate,
		usage.Migrate,
		goal.Migrate,
	}
	for _, step := range steps {
		if err := step(db); err != nil {
			return err
		}
	}
	if err := metadata.SetValue(db, metadata.SchemaVersionKey, SchemaVersion); err != nil {
		return fmt.Errorf("写入 schema 版本失败: %w", err)
	}
	return nil
}

// InitializeApplication 是应用启动时执行的总入口
func InitializeApplication(ctx context.Context, c Components) error {
	logger.L.Info("开始应用初始化...")

	if err := Migrate(c.DB); err != nil {
		return err
	}
	if c.Usage != nil {
		n, err := c.Usage.Warmup(ctx)
		if err != nil {
			return err
		}
		logger.L.Infow("计数已预热到Redis", "counters", n)
	}

	logger.L.Info("应用初始化完成")
	return nil
}

// RebuildCache 在Redis重启后热重建缓存，并立即做一次快照
func RebuildCache(ctx context.Context, c Components) error {
	logger.L.Info("开始缓存热重建...")

	if c.Usage != nil {
		if _, err := c.Usage.Warmup(ctx); err != nil {
			return err
		}
	}
	if c.Stats != nil {
		if err := c.Stats.Invalidate(ctx); err != nil {
			return fmt.Errorf("清除统计缓存失败: %w", err)
		}
	}

	if c.Usage != nil {
		logger.L.Info("缓存热重建完成，正在触发一次新的计数快照...")
		if _, err := c.Usage.Snapshot(ctx); err != nil {
			logger.L.Warnw("缓存热重建后的快照失败", "error", err)
		}
	}
	return nil
}

// HandleRedisRecovery 在Redis从短暂不可用中恢复（未重启）时调用。
// 不可用期间记录的变更没能清除统计缓存，因此全部丢弃。
func HandleRedisRecovery(ctx context.Context, c Components) {
	logger.L.Info("检测到Redis已恢复，正在执行恢复后操作...")
	if c.Stats == nil {
		return
	}
	if err := c.Stats.Invalidate(ctx); err != nil {
		logger.L.Warnw("恢复后清除统计缓存失败", "error", err)
	}
}

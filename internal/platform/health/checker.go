package health

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/SlpAus/omikuji-record-backend/internal/platform/database"
	"github.com/SlpAus/omikuji-record-backend/internal/platform/logger"
	"github.com/SlpAus/omikuji-record-backend/pkg/lifecycle"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultCheckInterval = 5 * time.Second
	pingTimeout          = 2 * time.Second
)

var runIDPattern = regexp.MustCompile(`run_id:([a-f0-9]+)`)

// Checker 定期检查Redis，发现重启时重建缓存，发现恢复时执行恢复操作
type Checker struct {
	rdb        *redis.Client
	fetchRunID func(ctx context.Context) (string, error)
	rebuild    func(ctx context.Context) error
	onRecover  func(ctx context.Context)
}

// NewChecker 创建检查器。rebuild 在Redis重启后调用，onRecover 在短暂不可用后恢复时调用
func NewChecker(rdb *redis.Client, rebuild func(ctx context.Context) error, onRecover func(ctx context.Context)) *Checker {
	c := &Checker{rdb: rdb, rebuild: rebuild, onRecover: onRecover}
	c.fetchRunID = c.serverRunID
	return c
}

// RunID 返回Redis当前的run_id，Redis每次重启都会变化
func (c *Checker) RunID(ctx context.Context) (string, error) {
	return c.fetchRunID(ctx)
}

func (c *Checker) serverRunID(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	info, err := c.rdb.Info(ctx, "server").Result()
	if err != nil {
		return "", err
	}
	return parseRunID(info)
}

func parseRunID(info string) (string, error) {
	matches := runIDPattern.FindStringSubmatch(info)
	if len(matches) < 2 {
		return "", fmt.Errorf("无法在Redis INFO中找到run_id")
	}
	return matches[1], nil
}

// InitializeRunID 在应用启动时执行一次，获取并设置初始的run_id。
func (c *Checker) InitializeRunID(ctx context.Context) error {
	runID, err := c.RunID(ctx)
	if err != nil {
		return fmt.Errorf("无法在启动时获取Redis Run ID，请检查Redis服务: %w", err)
	}
	database.SetInitialRunID(runID)
	logger.L.Infow("获取初始Redis Run ID成功", "runID", runID)
	return nil
}

// triggerAtomicRebuild 执行一次自校验的缓存重建。
// 只有在重建期间Redis没有再次重启的情况下，才认为重建成功。
func (c *Checker) triggerAtomicRebuild(ctx context.Context, idBeforeRebuild string) bool {
	logger.L.Info("健康检查: 正在触发缓存热重建...")
	if err := c.rebuild(ctx); err != nil {
		logger.L.Errorw("健康检查: 缓存热重建失败", "error", err)
		return false
	}

	idAfterRebuild, err := c.RunID(ctx)
	if err != nil {
		logger.L.Errorw("健康检查: 缓存重建后无法连接到Redis，重建无效", "error", err)
		return false
	}
	if idBeforeRebuild != idAfterRebuild {
		logger.L.Errorw("健康检查: 缓存重建期间检测到Redis再次重启，重建无效",
			"before", idBeforeRebuild, "after", idAfterRebuild)
		return false
	}

	logger.L.Info("健康检查: 缓存热重建成功并通过校验")
	return true
}

// PerformCheck 执行一次完整的健康检查和可能的修复操作。
func (c *Checker) PerformCheck(ctx context.Context) {
	currentRunID, err := c.RunID(ctx)
	if err != nil {
		database.UpdateStatus(false, "")
		return
	}

	if currentRunID != database.GetLastKnownRunID() {
		// 重建期间保持不可用，避免限流器读到不完整的计数
		database.UpdateStatus(false, "")
		if c.triggerAtomicRebuild(ctx, currentRunID) {
			database.UpdateStatus(true, currentRunID)
		}
		return
	}

	if database.UpdateStatus(true, currentRunID) && c.onRecover != nil {
		c.onRecover(ctx)
	}
}

// Start 在后台定期执行健康检查，直到 handle 被取消
func (c *Checker) Start(handle *lifecycle.Handle, interval time.Duration) {
	defer handle.Close()
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	logger.L.Info("Redis健康检查器已启动")

	for {
		if err := handle.Sleep(interval); err != nil {
			logger.L.Info("Redis健康检查器: 正在关闭")
			return
		}
		c.PerformCheck(handle.Ctx())
	}
}

package backup

import (
	"context"
	"errors"
	"time"

	"github.com/SlpAus/omikuji-record-backend/internal/platform/database"
	"github.com/SlpAus/omikuji-record-backend/internal/platform/logger"
	"github.com/SlpAus/omikuji-record-backend/pkg/lifecycle"
)

// DefaultInterval 是定时快照的频率
const DefaultInterval = 10 * time.Minute

// Snapshotter 把Redis中的热数据持久化到数据库，返回写入的条数
type Snapshotter interface {
	Snapshot(ctx context.Context) (int, error)
}

// StartScheduler 在后台定期执行快照，直到 handle 被取消
func StartScheduler(handle *lifecycle.Handle, s Snapshotter, interval time.Duration) {
	defer handle.Close()
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger.L.Infow("计数快照调度器已启动", "interval", interval.String())

	for {
		if err := handle.Sleep(interval); err != nil {
			logger.L.Info("快照调度器: 休眠被中断，正在关闭")
			return
		}
		RunOnce(handle.Ctx(), s)
	}
}

// RunOnce 执行一次快照。Redis不可用时跳过，错误只记录日志
func RunOnce(ctx context.Context, s Snapshotter) bool {
	if !database.IsRedisHealthy() {
		logger.L.Warn("快照调度器: 检测到Redis不可用，跳过本次快照")
		return false
	}

	start := time.Now()
	n, err := s.Snapshot(ctx)
	if err != nil {
		// 停机导致的取消静默处理
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			logger.L.Errorw("快照调度器: 执行快照失败", "error", err)
		}
		return false
	}
	logger.L.Infow("快照调度器: 快照完成", "counters", n, "latency", time.Since(start).String())
	return true
}

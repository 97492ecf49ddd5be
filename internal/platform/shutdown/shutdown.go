package shutdown

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SlpAus/omikuji-record-backend/internal/platform/backup"
	"github.com/SlpAus/omikuji-record-backend/internal/platform/logger"
	"github.com/SlpAus/omikuji-record-backend/pkg/lifecycle"
)

const (
	httpTimeout     = 15 * time.Second
	gracefulTimeout = 30 * time.Second
	forcefulTimeout = 1 * time.Second
)

// Coordinator 负责编排应用程序的优雅停机流程。
type Coordinator struct {
	GracefulManager *lifecycle.Manager
	ForcefulManager *lifecycle.Manager
	// FinalSnapshot 为 nil 时跳过停机前的最终快照
	FinalSnapshot backup.Snapshotter
}

// NewCoordinator 创建一个新的停机协调器。
func NewCoordinator(gracefulMgr, forcefulMgr *lifecycle.Manager, final backup.Snapshotter) *Coordinator {
	return &Coordinator{
		GracefulManager: gracefulMgr,
		ForcefulManager: forcefulMgr,
		FinalSnapshot:   final,
	}
}

// ListenForSignalsAndShutdown 启动信号监听并阻塞，直到停机流程完成。
func (c *Coordinator) ListenForSignalsAndShutdown(server *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.L.Infow("收到关闭信号，开始优雅停机", "signal", sig.String())
	c.Shutdown(server)
}

// Shutdown 关闭HTTP服务器，分两阶段停止后台服务，最后做一次快照
func (c *Coordinator) Shutdown(server *http.Server) {
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.L.Errorw("HTTP服务器关闭错误", "error", err)
		} else {
			logger.L.Info("HTTP服务器已关闭")
		}
	}

	// 阶段一: 优雅停机
	logger.L.Infow("第一阶段停机：等待后台任务完成", "timeout", gracefulTimeout.String())
	c.GracefulManager.Shutdown()
	remaining := c.GracefulManager.WaitWithTimeout(gracefulTimeout)
	if len(remaining) == 0 {
		logger.L.Info("所有服务已在第一阶段优雅关闭")
	} else {
		// 阶段二: 强制停机，不再等待任务完成
		logger.L.Warnw("第一阶段超时，发送强制停机信号", "remaining", remaining)
		c.ForcefulManager.Shutdown()
		if left := c.ForcefulManager.WaitWithTimeout(forcefulTimeout); len(left) > 0 {
			logger.L.Errorw("强制停机后仍有服务未退出", "remaining", left)
		}
	}

	if c.FinalSnapshot != nil {
		logger.L.Info("正在执行最终快照...")
		if n, err := c.FinalSnapshot.Snapshot(context.Background()); err != nil {
			logger.L.Errorw("最终快照失败", "error", err)
		} else {
			logger.L.Infow("最终快照成功", "counters", n)
		}
	}

	logger.L.Info("优雅停机完成")
	logger.Sync()
}

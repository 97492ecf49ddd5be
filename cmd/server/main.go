package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/SlpAus/omikuji-record-backend/api"
	"github.com/SlpAus/omikuji-record-backend/internal/capture"
	"github.com/SlpAus/omikuji-record-backend/internal/goal"
	"github.com/SlpAus/omikuji-record-backend/internal/platform/backup"
	"github.com/SlpAus/omikuji-record-backend/internal/platform/config"
	"github.com/SlpAus/omikuji-record-backend/internal/platform/database"
	"github.com/SlpAus/omikuji-record-backend/internal/platform/health"
	"github.com/SlpAus/omikuji-record-backend/internal/platform/logger"
	"github.com/SlpAus/omikuji-record-backend/internal/platform/shutdown"
	"github.com/SlpAus/omikuji-record-backend/internal/platform/startup"
	"github.com/SlpAus/omikuji-record-backend/internal/record"
	"github.com/SlpAus/omikuji-record-backend/internal/stats"
	"github.com/SlpAus/omikuji-record-backend/internal/usage"
	"github.com/SlpAus/omikuji-record-backend/pkg/lifecycle"
	"github.com/SlpAus/omikuji-record-backend/pkg/token"
	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		logger.L.Errorw("服务器启动失败", "error", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if err := logger.InitLogger(cfg.Log); err != nil {
		return err
	}
	gin.SetMode(cfg.Server.Mode)

	if err := token.SetSecretKey(cfg.Server.CookieSecret); err != nil {
		return err
	}
	if cfg.Server.CookieSecret == "" {
		logger.L.Warn("未配置 server.cookieSecret，已生成随机密钥，重启后所有用户标识将失效")
	}

	if err := database.InitDB(cfg.Database); err != nil {
		return err
	}
	if err := database.InitRedis(cfg.Database.Redis); err != nil {
		return err
	}

	loc, err := cfg.Usage.Location()
	if err != nil {
		return err
	}

	ctx := context.Background()

	// 1. 组装各模块
	recordStore := record.NewGormStore(database.DB)
	statsSvc := stats.NewService(recordStore, database.RDB)
	recordSvc := record.NewService(recordStore, statsSvc)

	components := startup.Components{DB: database.DB, Stats: statsSvc}
	var usageStore usage.Store
	switch cfg.Usage.Store {
	case "redis":
		redisStore := usage.NewRedisStore(database.RDB, database.DB)
		components.Usage = redisStore
		usageStore = redisStore
	default:
		usageStore = usage.NewGormStore(database.DB)
	}
	limiter := usage.NewLimiter(usageStore, cfg.Usage.DailyLimit, loc)

	extractor, err := capture.NewExtractor(ctx, cfg.Extraction)
	if err != nil {
		return err
	}
	captureSvc := capture.NewService(limiter, extractor, cfg.Extraction.Timeout())
	goalSvc := goal.NewService(goal.NewGormStore(database.DB), loc)

	// 2. 阻塞式获取初始Run ID，然后执行启动初始化
	checker := health.NewChecker(database.RDB,
		func(ctx context.Context) error { return startup.RebuildCache(ctx, components) },
		func(ctx context.Context) { startup.HandleRedisRecovery(ctx, components) },
	)
	if err := checker.InitializeRunID(ctx); err != nil {
		return err
	}
	if err := startup.InitializeApplication(ctx, components); err != nil {
		return err
	}
	logger.L.Info("正在执行启动后健康检查...")
	checker.PerformCheck(ctx)

	// 3. 后台服务
	gracefulMgr := lifecycle.NewManager("graceful")
	forcefulMgr := lifecycle.NewManager("forceful")

	healthHandle, err := gracefulMgr.NewServiceHandle("redis-health")
	if err != nil {
		return err
	}
	go checker.Start(healthHandle, health.DefaultCheckInterval)

	var finalSnapshot backup.Snapshotter
	if components.Usage != nil {
		finalSnapshot = components.Usage
		snapshotHandle, err := gracefulMgr.NewServiceHandle("usage-snapshot")
		if err != nil {
			return err
		}
		go backup.StartScheduler(snapshotHandle, components.Usage, backup.DefaultInterval)
	}

	// 4. HTTP
	router := api.NewRouter(cfg.Server)
	ipLimiter := usage.NewIPLimiter(database.RDB, cfg.Usage.IPLimit, usage.DefaultIPWindow)
	api.SetupRoutes(router, api.Handlers{
		Capture:      capture.NewHandler(captureSvc, cfg.Server.MaxUploadMB),
		CaptureGuard: ipLimiter.Middleware(),
		Usage:        usage.NewHandler(limiter),
		Records:      record.NewHandler(recordSvc),
		Stats:        stats.NewHandler(statsSvc),
		Goals:        goal.NewHandler(goalSvc),
	})

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}
	go func() {
		logger.L.Infow("服务器已准备就绪，开始监听", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Fatalw("HTTP服务器异常退出", "error", err)
		}
	}()

	shutdown.NewCoordinator(gracefulMgr, forcefulMgr, finalSnapshot).ListenForSignalsAndShutdown(server)
	return nil
}

package api

import (
	"net/http"
	"time"

	"github.com/SlpAus/omikuji-record-backend/internal/capture"
	"github.com/SlpAus/omikuji-record-backend/internal/goal"
	"github.com/SlpAus/omikuji-record-backend/internal/platform/config"
	"github.com/SlpAus/omikuji-record-backend/internal/platform/database"
	"github.com/SlpAus/omikuji-record-backend/internal/platform/logger"
	"github.com/SlpAus/omikuji-record-backend/internal/record"
	"github.com/SlpAus/omikuji-record-backend/internal/stats"
	"github.com/SlpAus/omikuji-record-backend/internal/usage"
	"github.com/SlpAus/omikuji-record-backend/internal/user"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers 汇集各模块的HTTP处理器
type Handlers struct {
	Capture *capture.Handler
	// CaptureGuard 在识别前执行，例如按IP限流，可以为 nil
	CaptureGuard gin.HandlerFunc
	Usage        *usage.Handler
	Records      *record.Handler
	Stats        *stats.Handler
	Goals        *goal.Handler
}

// NewRouter 创建带有恢复、访问日志和CORS中间件的gin引擎
func NewRouter(cfg config.ServerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	// multipart 超出部分写入临时文件
	r.MaxMultipartMemory = cfg.MaxUploadMB << 20
	return r
}

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine, h Handlers) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "redis": database.IsRedisHealthy()})
	})

	api := router.Group("/api", user.EnsureUserCookieMiddleware())
	{
		captureChain := []gin.HandlerFunc{h.Capture.Capture}
		if h.CaptureGuard != nil {
			captureChain = append([]gin.HandlerFunc{h.CaptureGuard}, captureChain...)
		}
		api.POST("/capture", captureChain...)
		api.GET("/usage", h.Usage.GetUsage)

		recordRoutes := api.Group("/records")
		{
			recordRoutes.POST("", h.Records.Create)
			recordRoutes.GET("", h.Records.List)
			recordRoutes.GET("/month/:yearMonth", h.Records.Month)
			recordRoutes.GET("/:id", h.Records.Get)
			recordRoutes.PATCH("/:id", h.Records.Update)
			recordRoutes.DELETE("/:id", h.Records.Delete)
		}

		api.GET("/stats", h.Stats.GetStats)

		goalRoutes := api.Group("/goals")
		{
			goalRoutes.POST("", h.Goals.Create)
			goalRoutes.GET("", h.Goals.List)
			goalRoutes.GET("/current", h.Goals.Current)
			goalRoutes.GET("/public", h.Goals.Public)
		}
	}
}

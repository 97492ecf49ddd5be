package usage

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/SlpAus/omikuji-record-backend/internal/platform/database"
	"github.com/SlpAus/omikuji-record-backend/internal/platform/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	// ipKeyPrefix 是每个IP的有序集合键名前缀，成员的分数为调用时间（Unix微秒）
	ipKeyPrefix = "usage:ip:"
	// DefaultIPWindow 是按IP计数的滑动窗口
	DefaultIPWindow = 24 * time.Hour
	// ipKeyGrace 让键比窗口多存活一会儿
	ipKeyGrace = time.Hour
)

var ErrInvalidIP = errors.New("无效的IP地址")

// IPLimiter 在滑动窗口内限制同一IP的识别次数。
// 用户标识保存在cookie中，清除cookie即可获得新的每日额度，IP限制用来兜底。
type IPLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewIPLimiter 创建IP限流器，window <= 0 时使用 DefaultIPWindow
func NewIPLimiter(rdb *redis.Client, limit int, window time.Duration) *IPLimiter {
	if window <= 0 {
		window = DefaultIPWindow
	}
	return &IPLimiter{rdb: rdb, limit: limit, window: window, now: time.Now}
}

// WithClock 替换时钟，用于测试
func (l *IPLimiter) WithClock(now func() time.Time) *IPLimiter {
	l.now = now
	return l
}

func ipKey(ip string) string {
	return ipKeyPrefix + ip
}

// memberID 生成一个16字节的成员ID：8字节纳秒时间戳加8字节随机数
func memberID(t time.Time) (string, error) {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[0:8], uint64(t.UnixNano()))
	if _, err := rand.Read(b[8:16]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Allow 记录一次来自 ip 的调用，返回窗口内是否仍在限额之内。
// 超出限额的调用不计入窗口。Redis不可用时放行，由按用户的限流器继续把关。
func (l *IPLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	if net.ParseIP(ip) == nil {
		return false, ErrInvalidIP
	}
	if l.limit <= 0 {
		return true, nil
	}
	if !database.IsRedisHealthy() {
		return true, nil
	}

	now := l.now()
	member, err := memberID(now)
	if err != nil {
		return false, fmt.Errorf("生成成员ID失败: %w", err)
	}
	key := ipKey(ip)
	minScore := fmt.Sprintf("(%d", now.Add(-l.window).UnixMicro())

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", minScore)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMicro()), Member: member})
	pipe.Expire(ctx, key, l.window+ipKeyGrace)
	countCmd := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("执行IP计数事务失败: %w", err)
	}

	if countCmd.Val() <= int64(l.limit) {
		return true, nil
	}
	// 补偿：被拒绝的调用不占用窗口
	if err := l.rdb.ZRem(ctx, key, member).Err(); err != nil {
		logger.L.Warnw("IP计数补偿失败", "ip", ip, "error", err)
	}
	return false, nil
}

// Middleware 在处理请求前检查客户端IP
func (l *IPLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := l.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			if errors.Is(err, ErrInvalidIP) {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			logger.L.Errorw("IP限流检查失败", "ip", c.ClientIP(), "error", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "服务暂时不可用，请稍后重试"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": ErrQuotaExceeded.Error()})
			return
		}
		c.Next()
	}
}

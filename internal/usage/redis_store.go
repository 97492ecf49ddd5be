package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/SlpAus/omikuji-record-backend/internal/platform/database"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	// counterKeyPrefix + 用户ID 是一个 Redis Hash，字段为 count 和 last_reset
	counterKeyPrefix = "usage:counter:"
	fieldCount       = "count"
	fieldLastReset   = "last_reset"

	// DirtySetKey 是一个 Redis Set，存储自上次快照以来计数发生变化的用户ID
	DirtySetKey = "usage:dirty"
	// ProcessingDirtySetKey 只在快照过程中使用
	ProcessingDirtySetKey = "usage:dirty:processing"

	// 失败的乐观事务只会因为其他请求成功写入而失败，而写入次数受每日上限约束
	maxTxRetries = 32
)

func counterKey(userID string) string {
	return counterKeyPrefix + userID
}

// RedisStore 把计数保存在Redis中，并定期快照到数据库
type RedisStore struct {
	rdb *redis.Client
	db  *gorm.DB
}

// NewRedisStore 创建Redis存储。db 用于快照和预热，可以为nil
func NewRedisStore(rdb *redis.Client, db *gorm.DB) *RedisStore {
	return &RedisStore{rdb: rdb, db: db}
}

// parseCounter 解析 HMGET 的结果，哈希不存在时返回 nil
func parseCounter(userID string, vals []interface{}) (*Counter, error) {
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return nil, nil
	}
	countStr, ok1 := vals[0].(string)
	resetStr, ok2 := vals[1].(string)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("用户 %s 的计数格式错误", userID)
	}
	count, err := strconv.Atoi(countStr)
	if err != nil {
		return nil, fmt.Errorf("解析用户 %s 的计数失败: %w", userID, err)
	}
	lastReset, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("解析用户 %s 的窗口时间失败: %w", userID, err)
	}
	return &Counter{UserID: userID, Count: count, LastReset: lastReset}, nil
}

func (s *RedisStore) Get(ctx context.Context, userID string) (*Counter, error) {
	if !database.IsRedisHealthy() {
		return nil, ErrStoreUnavailable
	}
	vals, err := s.rdb.HMGet(ctx, counterKey(userID), fieldCount, fieldLastReset).Result()
	if err != nil {
		return nil, fmt.Errorf("读取用户 %s 的计数失败: %w", userID, err)
	}
	return parseCounter(userID, vals)
}

func (s *RedisStore) CreateOrReset(ctx context.Context, userID string, now time.Time) error {
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, counterKey(userID), fieldCount, 1, fieldLastReset, now.UnixMicro())
	pipe.SAdd(ctx, DirtySetKey, userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("重置用户 %s 的计数失败: %w", userID, err)
	}
	return nil
}

// IncrementIfUnderLimit 使用 WATCH/MULTI 乐观事务执行状态机，冲突时重试
func (s *RedisStore) IncrementIfUnderLimit(ctx context.Context, userID string, limit int, windowStart, now time.Time) (bool, error) {
	if !database.IsRedisHealthy() {
		return false, ErrStoreUnavailable
	}

	key := counterKey(userID)
	var allowed bool

	txf := func(tx *redis.Tx) error {
		allowed = false
		vals, err := tx.HMGet(ctx, key, fieldCount, fieldLastReset).Result()
		if err != nil {
			return err
		}
		current, err := parseCounter(userID, vals)
		if err != nil {
			return err
		}

		count, lastReset, ok := decide(current, limit, windowStart, now)
		if !ok {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldCount, count, fieldLastReset, lastReset)
			pipe.SAdd(ctx, DirtySetKey, userID)
			return nil
		})
		if err == nil {
			allowed = true
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return allowed, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return false, fmt.Errorf("更新用户 %s 的计数失败: %w", userID, err)
	}
	return false, ErrContention
}

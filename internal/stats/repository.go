package stats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// CacheKey 是一个 Redis Hash 的键，用于缓存序列化后的统计结果。
	// Field: 用户ID
	// Value: Stats 结构体的JSON序列化字符串
	CacheKey = "stats:cache"

	// GenerationKey 记录每个用户的记录变更次数。
	// Field: 用户ID
	// Value: 递增的整数
	GenerationKey = "stats:gen"

	// cacheTTL 是每个字段的过期时间
	cacheTTL = time.Minute
	// generationTTL 只需覆盖一次计算的耗时
	generationTTL = time.Hour
)

// errStaleGeneration 表示计算期间记录发生了变化，结果不应写入缓存
var errStaleGeneration = errors.New("统计结果已过期")

// getGeneration 返回用户当前的变更代数，不存在时为 0
func getGeneration(ctx context.Context, c redis.Cmdable, userID string) (int64, error) {
	gen, err := c.HGet(ctx, GenerationKey, userID).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

// getCache 从Redis缓存中获取统计结果，未命中时返回 nil, nil
func getCache(ctx context.Context, rdb *redis.Client, userID string) (*Stats, error) {
	result, err := rdb.HGet(ctx, CacheKey, userID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var s Stats
	if err := json.Unmarshal([]byte(result), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// setCacheIfCurrent 仅当变更代数仍为 gen 时写入缓存并设置过期时间
func setCacheIfCurrent(ctx context.Context, rdb *redis.Client, userID string, gen int64, s *Stats, expire time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	err = rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := getGeneration(ctx, tx, userID)
		if err != nil {
			return err
		}
		if current != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, CacheKey, userID, data)
			pipe.HExpire(ctx, CacheKey, expire, userID)
			return nil
		})
		return err
	}, GenerationKey)
	if errors.Is(err, redis.TxFailedErr) {
		return errStaleGeneration
	}
	return err
}

// bumpGeneration 递增变更代数并删除缓存字段
func bumpGeneration(ctx context.Context, rdb *redis.Client, userID string) error {
	pipe := rdb.TxPipeline()
	pipe.HIncrBy(ctx, GenerationKey, userID, 1)
	pipe.HExpire(ctx, GenerationKey, generationTTL, userID)
	pipe.HDel(ctx, CacheKey, userID)
	_, err := pipe.Exec(ctx)
	return err
}

package usage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SlpAus/omikuji-record-backend/internal/platform/database"
	"github.com/SlpAus/omikuji-record-backend/internal/platform/logger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var snapshotMutex sync.Mutex // 避免定时快照与停机快照并发

// Snapshot 把自上次快照以来变化过的计数写入数据库，返回写入的条数
func (s *RedisStore) Snapshot(ctx context.Context) (n int, err error) {
	if s.db == nil {
		return 0, errors.New("计数存储未配置数据库，无法快照")
	}
	snapshotMutex.Lock()
	defer snapshotMutex.Unlock()

	exists, err := s.rdb.Exists(ctx, DirtySetKey).Result()
	if err != nil {
		return 0, fmt.Errorf("无法检查Redis中 DirtySetKey 是否存在: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}

	// 1. 把脏集合原子地转移到处理中集合，之后的写入会进入新的脏集合
	pipe := s.rdb.TxPipeline()
	pipe.SUnionStore(ctx, ProcessingDirtySetKey, ProcessingDirtySetKey, DirtySetKey)
	pipe.Del(ctx, DirtySetKey)
	idsCmd := pipe.SMembers(ctx, ProcessingDirtySetKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("无法从Redis原子地获取脏集合: %w", err)
	}

	// 失败时把处理中的ID放回脏集合，等待下次快照
	defer func() {
		if err != nil {
			restore := s.rdb.TxPipeline()
			restore.SUnionStore(database.Ctx, DirtySetKey, DirtySetKey, ProcessingDirtySetKey)
			restore.Del(database.Ctx, ProcessingDirtySetKey)
			if _, rerr := restore.Exec(database.Ctx); rerr != nil {
				logger.L.Errorw("恢复计数脏集合失败", "error", rerr)
			}
		} else {
			s.rdb.Del(database.Ctx, ProcessingDirtySetKey)
		}
	}()

	userIDs, err := idsCmd.Result()
	if err != nil {
		return 0, fmt.Errorf("获取脏用户ID失败: %w", err)
	}

	// 2. 读取每个用户的当前计数
	readPipe := s.rdb.Pipeline()
	cmds := make([]*redis.SliceCmd, len(userIDs))
	for i, id := range userIDs {
		cmds[i] = readPipe.HMGet(ctx, counterKey(id), fieldCount, fieldLastReset)
	}
	if _, err = readPipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("批量读取计数失败: %w", err)
	}

	now := time.Now()
	counters := make([]Counter, 0, len(userIDs))
	for i, id := range userIDs {
		vals, err := cmds[i].Result()
		if err != nil {
			return 0, fmt.Errorf("读取用户 %s 的计数失败: %w", id, err)
		}
		c, err := parseCounter(id, vals)
		if err != nil {
			return 0, err
		}
		if c == nil {
			continue
		}
		c.UpdatedAt = now
		counters = append(counters, *c)
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	// 3. 写入数据库，遇到瞬时错误时重试
	const maxRetry = 3
	const delay = 50 * time.Millisecond
	for i := 0; i < maxRetry; i++ {
		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := Upsert(tx, counters); err != nil {
				return fmt.Errorf("持久化计数失败: %w", err)
			}
			return SetLastSnapshotTime(tx, now)
		})
		if err == nil || !database.IsRetryableError(err) {
			break
		}
		time.Sleep(delay)
	}
	if err != nil {
		return 0, err
	}
	return len(counters), nil
}

// Warmup 把数据库中的计数加载到Redis，只填充Redis中不存在的用户，
// 不会覆盖Redis中更新的计数
func (s *RedisStore) Warmup(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, nil
	}
	var counters []Counter
	if err := s.db.WithContext(ctx).Find(&counters).Error; err != nil {
		return 0, fmt.Errorf("无法从数据库读取计数: %w", err)
	}
	if len(counters) == 0 {
		return 0, nil
	}

	pipe := s.rdb.Pipeline()
	for _, c := range counters {
		key := counterKey(c.UserID)
		pipe.HSetNX(ctx, key, fieldLastReset, c.LastReset)
		pipe.HSetNX(ctx, key, fieldCount, c.Count)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("预热计数到Redis失败: %w", err)
	}
	return len(counters), nil
}

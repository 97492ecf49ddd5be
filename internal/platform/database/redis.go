package database

import (
	"context"
	"fmt"

	"github.com/SlpAus/omikuji-record-backend/internal/platform/config"
	"github.com/redis/go-redis/v9"
)

// RDB 是一个全局的Redis客户端实例，供项目其他部分使用
var RDB *redis.Client

// Ctx 是一个全局的上下文，用于不跟随请求的Redis操作
var Ctx = context.Background()

// InitRedis 初始化与Redis数据库的连接
func InitRedis(cfg config.RedisConfig) error {
	RDB = redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 使用Ping命令来测试连接是否成功
	if err := RDB.Ping(Ctx).Err(); err != nil {
		return fmt.Errorf("无法连接到Redis: %w", err)
	}
	return nil
}

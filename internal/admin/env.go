package admin

import (
	"fmt"

	"github.com/SlpAus/omikuji-record-backend/internal/platform/config"
	"github.com/SlpAus/omikuji-record-backend/internal/platform/database"
	"github.com/SlpAus/omikuji-record-backend/internal/record"
	"github.com/SlpAus/omikuji-record-backend/internal/stats"
	"github.com/SlpAus/omikuji-record-backend/internal/usage"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Env 是管理命令操作的资源
type Env struct {
	DB      *gorm.DB
	RDB     *redis.Client
	Limiter *usage.Limiter
	Stats   *stats.Service
	// Usage 为 nil 表示计数直接存放在数据库中
	Usage *usage.RedisStore
}

// EnvLoader 按需创建 Env，configDir 为空时使用默认搜索路径
type EnvLoader func(configDir string) (*Env, error)

// NewEnv 用已打开的连接组装 Env，rdb 为 nil 时计数和统计都直接读写数据库
func NewEnv(db *gorm.DB, rdb *redis.Client, cfg config.UsageConfig) (*Env, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	env := &Env{DB: db, RDB: rdb}
	var store usage.Store = usage.NewGormStore(db)
	if rdb != nil && cfg.Store == "redis" {
		env.Usage = usage.NewRedisStore(rdb, db)
		store = env.Usage
	}
	env.Limiter = usage.NewLimiter(store, cfg.DailyLimit, loc)
	env.Stats = stats.NewService(record.NewGormStore(db), rdb)
	return env, nil
}

// LoadEnv 读取配置并连接数据库和Redis
func LoadEnv(configDir string) (*Env, error) {
	var paths []string
	if configDir != "" {
		paths = append(paths, configDir)
	}
	cfg, err := config.LoadConfig(paths...)
	if err != nil {
		return nil, err
	}
	if err := database.InitDB(cfg.Database); err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if err := database.InitRedis(cfg.Database.Redis); err != nil {
		if cfg.Usage.Store == "redis" {
			return nil, fmt.Errorf("计数存放在Redis中，但无法连接: %w", err)
		}
	} else {
		rdb = database.RDB
	}
	return NewEnv(database.DB, rdb, cfg.Usage)
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cfg 是一个全局变量，用于存储所有应用程序的配置
var Cfg *Config

// Config 结构体定义了应用程序的所有配置项
// 它与 config.yaml 文件的结构完全对应
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Usage      UsageConfig      `mapstructure:"usage"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig 定义了服务器相关的配置
type ServerConfig struct {
	Mode         string     `mapstructure:"mode"`
	Address      string     `mapstructure:"address"`
	Cors         CorsConfig `mapstructure:"cors"`
	MaxUploadMB  int64      `mapstructure:"maxUploadMB"`
	CookieSecret string     `mapstructure:"cookieSecret"`
}

// CorsConfig 定义了CORS相关的配置
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// DatabaseConfig 定义了数据库和缓存相关的配置
type DatabaseConfig struct {
	// Driver 取值 sqlite 或 postgres
	Driver string      `mapstructure:"driver"`
	DSN    string      `mapstructure:"dsn"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig 定义了Redis的配置
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ExtractionConfig 定义了图像识别模型的配置
type ExtractionConfig struct {
	// Provider 取值 anthropic 或 gemini
	Provider       string `mapstructure:"provider"`
	APIKey         string `mapstructure:"apiKey"`
	Model          string `mapstructure:"model"`
	MaxTokens      int    `mapstructure:"maxTokens"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
}

// Timeout 返回单次识别请求的超时时间
func (e ExtractionConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// UsageConfig 定义了每日识别次数限制的配置
type UsageConfig struct {
	DailyLimit int    `mapstructure:"dailyLimit"`
	Timezone   string `mapstructure:"timezone"`
	// Store 取值 redis 或 database
	Store string `mapstructure:"store"`
	// IPLimit 是同一IP在24小时内的识别上限，0 表示不限制
	IPLimit int `mapstructure:"ipLimit"`
}

// Location 解析配置的时区，计数窗口以该时区的零点为界
func (u UsageConfig) Location() (*time.Location, error) {
	return time.LoadLocation(u.Timezone)
}

// LogConfig 定义了日志输出的配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"maxSizeMB"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAgeDays"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.cors.allowedOrigins", []string{"http://localhost:3000"})
	v.SetDefault("server.maxUploadMB", 20)
	v.SetDefault("server.cookieSecret", "")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "omikuji.db")
	v.SetDefault("database.redis.address", "localhost:6379")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("extraction.provider", "anthropic")
	v.SetDefault("extraction.apiKey", "")
	v.SetDefault("extraction.model", "")
	v.SetDefault("extraction.maxTokens", 1024)
	v.SetDefault("extraction.timeoutSeconds", 60)

	v.SetDefault("usage.dailyLimit", 10)
	v.SetDefault("usage.timezone", "Asia/Tokyo")
	v.SetDefault("usage.store", "redis")
	v.SetDefault("usage.ipLimit", 50)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "logs/omikuji.log")
	v.SetDefault("log.maxSizeMB", 100)
	v.SetDefault("log.maxBackups", 30)
	v.SetDefault("log.maxAgeDays", 90)
}

// LoadConfig 函数负责查找、加载和解析配置文件
// 它会在 ./config 和 . 中查找 config.yaml；文件不存在时使用默认值和环境变量
func LoadConfig(paths ...string) (*Config, error) {
	// .env 只用于本地开发时注入密钥，不存在不算错误
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./config", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// 允许通过环境变量覆盖配置，例如 EXTRACTION_APIKEY=xxx
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	Cfg = &cfg
	return Cfg, nil
}

// Validate 检查配置中的枚举值和数值范围
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("不支持的数据库驱动: %q", c.Database.Driver)
	}
	switch c.Extraction.Provider {
	case "anthropic", "gemini":
	default:
		return fmt.Errorf("不支持的识别服务: %q", c.Extraction.Provider)
	}
	switch c.Usage.Store {
	case "redis", "database":
	default:
		return fmt.Errorf("不支持的计数存储: %q", c.Usage.Store)
	}
	if c.Usage.DailyLimit <= 0 {
		return fmt.Errorf("usage.dailyLimit 必须为正数，当前为 %d", c.Usage.DailyLimit)
	}
	if c.Usage.IPLimit < 0 {
		return fmt.Errorf("usage.ipLimit 不能为负数")
	}
	if _, err := c.Usage.Location(); err != nil {
		return fmt.Errorf("无法加载时区 %q: %w", c.Usage.Timezone, err)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.maxUploadMB 必须为正数")
	}
	return nil
}

package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置
type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Clover CloverConfig `mapstructure:"clover"`
	MySQL  MySQLConfig  `mapstructure:"mysql"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Poller PollerConfig `mapstructure:"poller"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

// CloverConfig Clover 上游配置
type CloverConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	MerchantID string `mapstructure:"merchant_id"`
	APIToken   string `mapstructure:"api_token"`
	PageSize   int    `mapstructure:"page_size"`
}

// MySQLConfig MySQL 配置
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
	Event    string `mapstructure:"event"`
}

// PollerConfig 轮询配置
type PollerConfig struct {
	Interval    time.Duration     `mapstructure:"interval"`     // 轮询间隔
	Window      time.Duration     `mapstructure:"window"`       // 创建时间窗口宽度
	ItemKey     string            `mapstructure:"item_key"`     // 行明细合并键：id 或 name
	IgnoreItems []string          `mapstructure:"ignore_items"` // 按名称排除的行明细
	ActiveHours ActiveHoursConfig `mapstructure:"active_hours"`
}

// ActiveHoursConfig 活跃时段配置（可选，HH:MM 格式；为空表示全天轮询）
type ActiveHoursConfig struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// 行明细合并键常量
const (
	ItemKeyID   = "id"
	ItemKeyName = "name"
)

// 默认值
const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
	DefaultInterval = 30 * time.Second
	DefaultWindow   = 24 * time.Hour
	DefaultEvent    = "order.updated"
)

// Load 加载配置文件（密钥类字段支持环境变量覆盖）
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 密钥走环境变量（配合 .env 使用）
	viper.BindEnv("clover.api_token", "CLOVER_API_TOKEN")
	viper.BindEnv("mysql.dsn", "MYSQL_DSN")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults 填充默认值
func (c *Config) applyDefaults() {
	if c.Clover.PageSize <= 0 {
		c.Clover.PageSize = DefaultPageSize
	}
	if c.Clover.PageSize > MaxPageSize {
		c.Clover.PageSize = MaxPageSize
	}
	if c.Poller.Interval <= 0 {
		c.Poller.Interval = DefaultInterval
	}
	if c.Poller.Window <= 0 {
		c.Poller.Window = DefaultWindow
	}
	if c.Poller.ItemKey == "" {
		c.Poller.ItemKey = ItemKeyID
	}
	if c.Redis.Event == "" {
		c.Redis.Event = DefaultEvent
	}
}

// Validate 验证配置（缺失必填项时进程启动即失败）
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if c.Clover.BaseURL == "" {
		return fmt.Errorf("clover.base_url is required")
	}
	if c.Clover.MerchantID == "" {
		return fmt.Errorf("clover.merchant_id is required")
	}
	if c.Clover.APIToken == "" {
		return fmt.Errorf("clover.api_token is required")
	}
	if c.MySQL.DSN == "" {
		return fmt.Errorf("mysql.dsn is required")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	if c.Redis.Channel == "" {
		return fmt.Errorf("redis.channel is required")
	}
	if c.Poller.ItemKey != ItemKeyID && c.Poller.ItemKey != ItemKeyName {
		return fmt.Errorf("poller.item_key must be %q or %q", ItemKeyID, ItemKeyName)
	}
	if (c.Poller.ActiveHours.Start == "") != (c.Poller.ActiveHours.End == "") {
		return fmt.Errorf("poller.active_hours requires both start and end")
	}
	return nil
}

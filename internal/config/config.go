package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/paynotify/internal/logger"
	"github.com/paynotify/internal/payment/jdpay"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	JDPay    jdpay.Config   `mapstructure:"jdpay"`
	Callback CallbackConfig `mapstructure:"callback"`
	Relay    RelayConfig    `mapstructure:"relay"`
}

// ServerConfig 服务器配置，超时均为毫秒，<=0 时取默认值
type ServerConfig struct {
	Host                string `mapstructure:"host"`
	Port                string `mapstructure:"port"`
	Mode                string `mapstructure:"mode"` // debug / release
	ReadHeaderTimeoutMS int    `mapstructure:"read_header_timeout_ms"`
	ReadTimeoutMS       int    `mapstructure:"read_timeout_ms"`
	WriteTimeoutMS      int    `mapstructure:"write_timeout_ms"`
	IdleTimeoutMS       int    `mapstructure:"idle_timeout_ms"`
	ShutdownTimeoutMS   int    `mapstructure:"shutdown_timeout_ms"`
}

// Addr 监听地址
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// ReadHeaderTimeout 读取请求头超时
func (c ServerConfig) ReadHeaderTimeout() time.Duration {
	return millis(c.ReadHeaderTimeoutMS, 5*time.Second)
}

// ReadTimeout 读取整个请求超时
func (c ServerConfig) ReadTimeout() time.Duration {
	return millis(c.ReadTimeoutMS, 15*time.Second)
}

// WriteTimeout 写响应超时
func (c ServerConfig) WriteTimeout() time.Duration {
	return millis(c.WriteTimeoutMS, 15*time.Second)
}

// IdleTimeout keep-alive 空闲超时
func (c ServerConfig) IdleTimeout() time.Duration {
	return millis(c.IdleTimeoutMS, 60*time.Second)
}

// ShutdownTimeout 优雅退出等待时间
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return millis(c.ShutdownTimeoutMS, 10*time.Second)
}

func millis(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// RedisConfig Redis 配置，用于回调限流与重复投递去重
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CallbackConfig 回调入口配置
type CallbackConfig struct {
	MaxBodyBytes    int64               `mapstructure:"max_body_bytes"`
	DedupTTLSeconds int                 `mapstructure:"dedup_ttl_seconds"`
	RateLimit       CallbackLimitConfig `mapstructure:"rate_limit"`
}

// CallbackLimitConfig 回调入口按 IP 限流
type CallbackLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
	BlockSeconds  int `mapstructure:"block_seconds"`
}

// DedupTTL 去重键有效期
func (c CallbackConfig) DedupTTL() time.Duration {
	if c.DedupTTLSeconds <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.DedupTTLSeconds) * time.Second
}

// RelayConfig 已验签通知的下游转发配置，URL 为空时不转发
type RelayConfig struct {
	URL        string `mapstructure:"url"`
	TimeoutMS  int    `mapstructure:"timeout_ms"`
	RetryCount int    `mapstructure:"retry_count"`
	MaxRetry   int    `mapstructure:"max_retry"`
}

// Timeout 单次请求超时
func (c RelayConfig) Timeout() time.Duration {
	return millis(c.TimeoutMS, 5*time.Second)
}

// Enabled 是否配置了下游地址
func (c RelayConfig) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

// LoadFrom 从指定文件加载配置，path 为空时按默认路径查找 config.yml
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("../")   // 如果从 cmd/server 运行
		v.AddConfigPath("./etc") // etc 文件夹
	}
	setDefaults(v)

	// 环境变量支持，jdpay.merchant -> JDPAY_MERCHANT
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if strings.TrimSpace(path) != "" {
			return nil, fmt.Errorf("read config %s failed: %w", path, err)
		}
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_header_timeout_ms", 5000)
	v.SetDefault("server.read_timeout_ms", 15000)
	v.SetDefault("server.write_timeout_ms", 15000)
	v.SetDefault("server.idle_timeout_ms", 60000)
	v.SetDefault("server.shutdown_timeout_ms", 10000)
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "paynotify.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "pn")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	v.SetDefault("jdpay.merchant", "")
	v.SetDefault("jdpay.rsa_private_key", "")
	v.SetDefault("jdpay.rsa_public_key", "")
	v.SetDefault("jdpay.des_key", "")
	v.SetDefault("callback.max_body_bytes", jdpay.DefaultMaxBodyBytes)
	v.SetDefault("callback.dedup_ttl_seconds", 86400)
	v.SetDefault("callback.rate_limit.window_seconds", 60)
	v.SetDefault("callback.rate_limit.max_requests", 120)
	v.SetDefault("callback.rate_limit.block_seconds", 300)
	v.SetDefault("relay.url", "")
	v.SetDefault("relay.timeout_ms", 5000)
	v.SetDefault("relay.retry_count", 2)
	v.SetDefault("relay.max_retry", 8)
}

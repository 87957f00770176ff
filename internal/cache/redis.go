package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/paynotify/internal/config"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client
var redisPrefix = "pn"
var redisEnabled bool

// InitRedis 初始化 Redis 客户端
func InitRedis(cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		redisEnabled = false
		return nil
	}
	addr := strings.TrimSpace(cfg.Host)
	if addr == "" {
		addr = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = "pn"
	}

	Use(redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", addr, port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}), prefix)
	return nil
}

// Use 直接注入客户端，client 为 nil 时关闭缓存
func Use(client *redis.Client, prefix string) {
	redisClient = client
	redisEnabled = client != nil
	if strings.TrimSpace(prefix) != "" {
		redisPrefix = strings.TrimSpace(prefix)
	}
}

// Enabled 判断缓存是否启用
func Enabled() bool {
	return redisEnabled && redisClient != nil
}

// Client 获取 Redis 客户端
func Client() *redis.Client {
	if !Enabled() {
		return nil
	}
	return redisClient
}

// Close 关闭连接
func Close() error {
	if !Enabled() {
		return nil
	}
	return redisClient.Close()
}

// MarkOnce 以 SETNX 写入标记，首次写入返回 true。
// 缓存未启用时视为首次，去重退化为不去重。
func MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if !Enabled() {
		return true, nil
	}
	return redisClient.SetNX(ctx, BuildKey(key), time.Now().Unix(), ttl).Result()
}

// Expire 重设过期时间，键不存在时返回 false
func Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if !Enabled() {
		return true, nil
	}
	return redisClient.Expire(ctx, BuildKey(key), ttl).Result()
}

// Del 删除缓存
func Del(ctx context.Context, key string) error {
	if !Enabled() {
		return nil
	}
	return redisClient.Del(ctx, BuildKey(key)).Err()
}

// BuildKey 拼接全局前缀
func BuildKey(key string) string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return redisPrefix
	}
	return fmt.Sprintf("%s:%s", redisPrefix, trimmed)
}

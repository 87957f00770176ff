package router

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/paynotify/internal/http/response"
	"github.com/paynotify/internal/logger"
	"github.com/paynotify/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则，BlockSeconds > 0 时超限后封禁该时长
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	BlockSeconds  int
}

// RateLimitCounter 计数存储，返回本窗口内的请求序号与剩余秒数
type RateLimitCounter interface {
	Hit(ctx context.Context, key string, rule RateLimitRule) (count int64, ttlSeconds int64, err error)
}

// 首次超限时把窗口延长为封禁时长
var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local block = tonumber(ARGV[2])
if block > 0 and current == tonumber(ARGV[3]) + 1 then
	redis.call("EXPIRE", KEYS[1], block)
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

type redisRateLimitCounter struct {
	client *redis.Client
}

// NewRedisRateLimitCounter Redis 计数，client 为空时返回 nil 表示不限流
func NewRedisRateLimitCounter(client *redis.Client) RateLimitCounter {
	if client == nil {
		return nil
	}
	return &redisRateLimitCounter{client: client}
}

func (r *redisRateLimitCounter) Hit(ctx context.Context, key string, rule RateLimitRule) (int64, int64, error) {
	result, err := rateLimitScript.Run(ctx, r.client, []string{key}, rule.WindowSeconds, rule.BlockSeconds, rule.MaxRequests).Result()
	if err != nil {
		return 0, 0, err
	}
	values, ok := result.([]interface{})
	if !ok || len(values) < 2 {
		return 0, 0, fmt.Errorf("unexpected rate limit result %v", result)
	}
	count, ok := toInt64(values[0])
	if !ok {
		return 0, 0, fmt.Errorf("unexpected rate limit count %v", values[0])
	}
	ttlSeconds, _ := toInt64(values[1])
	return count, ttlSeconds, nil
}

// RateLimitMiddleware 频率限制中间件，拒绝时按网关约定应答 fail
func RateLimitMiddleware(counter RateLimitCounter, rule RateLimitRule, keyFunc RateLimitKeyFunc, rec *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter == nil || rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
			c.Next()
			return
		}

		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}
		if rule.Prefix != "" {
			key = fmt.Sprintf("%s:%s", rule.Prefix, key)
		}

		count, ttlSeconds, err := counter.Hit(c.Request.Context(), key, rule)
		if err != nil {
			logger.Warnw("rate_limit_unavailable", "key", key, "error", err)
			response.AbortAck(c, http.StatusInternalServerError)
			return
		}
		if count > int64(rule.MaxRequests) {
			waitSeconds := retryAfter(ttlSeconds, rule)
			rec.ObserveRateLimited()
			logger.Warnw("rate_limited", "key", key, "count", count, "retry_after", waitSeconds)
			c.Header("Retry-After", strconv.Itoa(waitSeconds))
			response.AbortAck(c, http.StatusTooManyRequests)
			return
		}

		c.Next()
	}
}

// retryAfter TTL 缺失（-1/-2）时按封禁或窗口时长估算
func retryAfter(ttlSeconds int64, rule RateLimitRule) int {
	if ttlSeconds >= 1 {
		return int(ttlSeconds)
	}
	if rule.BlockSeconds > 0 {
		return rule.BlockSeconds
	}
	if rule.WindowSeconds > 0 {
		return rule.WindowSeconds
	}
	return 1
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint8:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

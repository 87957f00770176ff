package router

import (
	"fmt"
	"strings"

	"github.com/paynotify/internal/cache"
	"github.com/paynotify/internal/config"
	"github.com/paynotify/internal/constants"
	publichandlers "github.com/paynotify/internal/http/handlers/public"
	"github.com/paynotify/internal/http/response"
	"github.com/paynotify/internal/logger"
	"github.com/paynotify/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "pn"
	}
	callbackRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:%s", redisPrefix, constants.CacheKeyCallbackLimit),
		WindowSeconds: cfg.Callback.RateLimit.WindowSeconds,
		MaxRequests:   cfg.Callback.RateLimit.MaxRequests,
		BlockSeconds:  cfg.Callback.RateLimit.BlockSeconds,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))

	r.GET("/healthz", publicHandler.Healthz)
	r.GET("/metrics", gin.WrapH(c.Metrics.Handler()))

	apiV1 := r.Group("/api/v1")
	{
		// 支付网关回调
		payments := apiV1.Group("/payments")
		{
			payments.POST("/jdpay/notify",
				RateLimitMiddleware(NewRedisRateLimitCounter(cache.Client()), callbackRule, KeyByIP, c.Metrics),
				publicHandler.JDPayNotify,
			)
		}
	}

	r.NoRoute(func(ctx *gin.Context) {
		response.NotFound(ctx, "not found")
	})

	return r
}

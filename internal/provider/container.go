package provider

import (
	"errors"
	"fmt"

	"github.com/paynotify/internal/cache"
	"github.com/paynotify/internal/config"
	"github.com/paynotify/internal/logger"
	"github.com/paynotify/internal/metrics"
	"github.com/paynotify/internal/payment/jdpay"
	"github.com/paynotify/internal/queue"
	"github.com/paynotify/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Metrics     *metrics.Recorder

	// 京东支付回调客户端，启动时校验商户配置
	NotifyClient *jdpay.NotifyClient

	// Services
	RelayService          *service.RelayService
	NotifyDispatchService *service.NotifyDispatchService
}

// NewContainer 初始化容器。京东支付配置缺失或密钥无法解析时返回错误。
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	// 初始化缓存，失败时去重与限流降级
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	c := &Container{
		Config:  cfg,
		Metrics: metrics.NewRecorder(),
	}

	queueClient, err := queue.NewClient(&cfg.Queue, cfg.Relay.MaxRetry)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		return nil, err
	}
	c.QueueClient = queueClient

	notifyClient, err := jdpay.NewNotifyClient(&cfg.JDPay,
		jdpay.WithLogger(logger.Named("jdpay")),
		jdpay.WithMaxBodyBytes(cfg.Callback.MaxBodyBytes),
	)
	if err != nil {
		logger.Errorw("provider_init_jdpay_failed", "error", err)
		return nil, fmt.Errorf("init jdpay notify client: %w", err)
	}
	c.NotifyClient = notifyClient

	c.initServices()
	return c, nil
}

func (c *Container) initServices() {
	c.RelayService = service.NewRelayService(c.Config.Relay, c.Metrics)
	c.NotifyDispatchService = service.NewNotifyDispatchService(
		c.NotifyClient.Merchant(),
		c.QueueClient,
		c.RelayService,
		c.Config.Callback.DedupTTL(),
		c.Metrics,
	)
	if !c.QueueClient.Enabled() && !c.RelayService.Enabled() {
		logger.Warnw("provider_notify_dispatch_disabled", "reason", "queue and relay both disabled")
	}
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}

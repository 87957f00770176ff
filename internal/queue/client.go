package queue

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paynotify/internal/config"
	"github.com/paynotify/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 回调转发使用的高优先级队列
	CriticalQueue = constants.QueueCritical
)

// ErrDuplicateTask 相同 TaskID 的任务已在队列中
var ErrDuplicateTask = errors.New("queue task duplicated")

// Client 队列客户端封装
type Client struct {
	client      *asynq.Client
	enabled     bool
	notifyQueue string
	maxRetry    int
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig, maxRetry int) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, notifyQueue: CriticalQueue}, nil
	}
	notifyQueue := CriticalQueue
	if len(cfg.Queues) > 0 {
		if _, ok := cfg.Queues[CriticalQueue]; !ok {
			notifyQueue = DefaultQueue
		}
	}
	return &Client{
		client:      asynq.NewClient(buildRedisOpt(cfg)),
		enabled:     true,
		notifyQueue: notifyQueue,
		maxRetry:    maxRetry,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueNotifyDispatch 推送回调转发任务，taskID 非空时同一 ID 只会入队一次
func (c *Client) EnqueueNotifyDispatch(payload NotifyDispatchPayload, taskID string, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewNotifyDispatchTask(payload)
	if err != nil {
		return err
	}
	options := []asynq.Option{asynq.Queue(c.notifyQueue)}
	if c.maxRetry > 0 {
		options = append(options, asynq.MaxRetry(c.maxRetry))
	}
	if id := strings.TrimSpace(taskID); id != "" {
		options = append(options, asynq.TaskID(id))
	}
	options = append(options, opts...)
	if _, err := c.client.Enqueue(task, options...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return ErrDuplicateTask
		}
		return err
	}
	return nil
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{CriticalQueue: 5, DefaultQueue: 1}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}

package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/paynotify/internal/logger"
	"github.com/paynotify/internal/provider"
	"github.com/paynotify/internal/queue"
	"github.com/paynotify/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskNotifyDispatch, c.handleNotifyDispatch)
}

func (c *Consumer) handleNotifyDispatch(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_notify_dispatch_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseNotifyDispatchPayload(task)
	if err != nil {
		logger.Warnw("worker_notify_dispatch_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	log := logger.SW("request_id", payload.RequestID, "trade_num", payload.TradeNum, "kind", payload.Kind)
	if payload.TradeNum == "" && len(payload.Fields) == 0 {
		log.Debugw("worker_notify_dispatch_skip_invalid_payload")
		return nil
	}
	if c.Container == nil || !c.RelayService.Enabled() {
		log.Warnw("worker_notify_dispatch_skip_relay_disabled")
		return nil
	}
	if err := c.RelayService.Relay(ctx, payload); err != nil {
		if errors.Is(err, service.ErrRelayRejected) {
			log.Warnw("worker_notify_dispatch_rejected", "error", err)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		log.Warnw("worker_notify_dispatch_relay_failed", "error", err)
		return err
	}
	log.Infow("worker_notify_dispatch_relayed")
	return nil
}

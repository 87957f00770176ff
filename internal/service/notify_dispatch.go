package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/paynotify/internal/cache"
	"github.com/paynotify/internal/constants"
	"github.com/paynotify/internal/logger"
	"github.com/paynotify/internal/metrics"
	"github.com/paynotify/internal/payment/jdpay"
	"github.com/paynotify/internal/queue"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// 转发结果
const (
	DispatchEnqueued  = "enqueued"
	DispatchRelayed   = "relayed"
	DispatchDuplicate = "duplicate"
	DispatchSkipped   = "skipped"
	DispatchFailed    = "failed"
)

const signDigestLength = 16

// 投递完成前的去重标记有效期，进程中途退出时标记会在此之后自行失效
const defaultPendingTTL = 2 * time.Minute

var ErrNotifyDispatchFailed = errors.New("notify dispatch failed")

// NotifyEnqueuer 回调转发任务入队
type NotifyEnqueuer interface {
	Enabled() bool
	EnqueueNotifyDispatch(payload queue.NotifyDispatchPayload, taskID string, opts ...asynq.Option) error
}

// NotifyRelayer 直接转发到下游
type NotifyRelayer interface {
	Enabled() bool
	Relay(ctx context.Context, payload queue.NotifyDispatchPayload) error
}

// MarkOnceFunc 去重标记，首次写入返回 true
type MarkOnceFunc func(ctx context.Context, key string, ttl time.Duration) (bool, error)

// NotifyDispatchService 已验签回调的去重与投递。
// 队列启用时入队由 worker 转发；队列未启用但配置了下游时同步转发。
// 去重标记先以 pendingTTL 写入，投递成功后延长到 dedupTTL。
type NotifyDispatchService struct {
	merchant   string
	enqueuer   NotifyEnqueuer
	relayer    NotifyRelayer
	markOnce   MarkOnceFunc
	extend     func(ctx context.Context, key string, ttl time.Duration) (bool, error)
	unmark     func(ctx context.Context, key string) error
	pendingTTL time.Duration
	dedupTTL   time.Duration
	metrics    *metrics.Recorder
	now        func() time.Time
}

// NewNotifyDispatchService 创建投递服务，去重使用 Redis
func NewNotifyDispatchService(merchant string, enqueuer NotifyEnqueuer, relayer NotifyRelayer, dedupTTL time.Duration, rec *metrics.Recorder) *NotifyDispatchService {
	return &NotifyDispatchService{
		merchant: merchant,
		enqueuer: enqueuer,
		relayer:  relayer,
		markOnce:   cache.MarkOnce,
		extend:     cache.Expire,
		unmark:     cache.Del,
		pendingTTL: defaultPendingTTL,
		dedupTTL:   dedupTTL,
		metrics:    rec,
		now:        time.Now,
	}
}

// Dispatch 投递一条已验签回调。重复回调返回 DispatchDuplicate 且不报错，
// 只有投递失败时返回错误，调用方应回应 fail 让网关重试。
func (s *NotifyDispatchService) Dispatch(ctx context.Context, result *jdpay.NotifyResult, requestID string) (string, error) {
	if result == nil {
		return DispatchSkipped, nil
	}
	payload := BuildDispatchPayload(result, s.merchant, requestID, s.now())
	log := logger.SW("request_id", requestID, "trade_num", payload.TradeNum, "kind", payload.Kind)

	queueEnabled := s.enqueuer != nil && s.enqueuer.Enabled()
	relayEnabled := s.relayer != nil && s.relayer.Enabled()
	if !queueEnabled && !relayEnabled {
		log.Debugw("notify_dispatch_skipped", "reason", "no_queue_or_relay")
		s.observe(DispatchSkipped)
		return DispatchSkipped, nil
	}

	key := DedupKey(payload)
	first, err := s.markOnce(ctx, key, s.markTTL())
	if err != nil {
		// Redis 不可用时继续投递，重复由下游幂等处理
		log.Warnw("notify_dispatch_dedup_failed", "error", err)
		first = true
	}
	if !first {
		log.Infow("notify_dispatch_duplicate", "dedup_key", key)
		s.observe(DispatchDuplicate)
		return DispatchDuplicate, nil
	}

	outcome := DispatchEnqueued
	if queueEnabled {
		err = s.enqueuer.EnqueueNotifyDispatch(payload, key)
		if errors.Is(err, queue.ErrDuplicateTask) {
			log.Infow("notify_dispatch_duplicate", "dedup_key", key, "source", "queue")
			s.confirm(ctx, key, log)
			s.observe(DispatchDuplicate)
			return DispatchDuplicate, nil
		}
	} else {
		outcome = DispatchRelayed
		err = s.relayer.Relay(ctx, payload)
	}
	if err != nil {
		log.Errorw("notify_dispatch_failed", "error", err)
		if s.unmark != nil {
			if delErr := s.unmark(ctx, key); delErr != nil {
				log.Warnw("notify_dispatch_unmark_failed", "error", delErr)
			}
		}
		s.observe(DispatchFailed)
		return DispatchFailed, fmt.Errorf("%w: %v", ErrNotifyDispatchFailed, err)
	}
	s.confirm(ctx, key, log)
	log.Infow("notify_dispatch_done", "outcome", outcome)
	s.observe(outcome)
	return outcome, nil
}

func (s *NotifyDispatchService) markTTL() time.Duration {
	if s.pendingTTL > 0 && s.pendingTTL < s.dedupTTL {
		return s.pendingTTL
	}
	return s.dedupTTL
}

// confirm 投递成功后把标记延长到完整去重窗口，失败只记日志
func (s *NotifyDispatchService) confirm(ctx context.Context, key string, log *zap.SugaredLogger) {
	if s.extend == nil || s.markTTL() == s.dedupTTL {
		return
	}
	ok, err := s.extend(ctx, key, s.dedupTTL)
	if err != nil || !ok {
		log.Warnw("notify_dispatch_mark_extend_failed", "dedup_key", key, "error", err)
	}
}

func (s *NotifyDispatchService) observe(outcome string) {
	s.metrics.ObserveDispatch(outcome)
}

// BuildDispatchPayload 将验签结果转换为转发载荷
func BuildDispatchPayload(result *jdpay.NotifyResult, merchant, requestID string, receivedAt time.Time) queue.NotifyDispatchPayload {
	fields := make(map[string]string, len(result.Fields))
	for k, v := range result.Fields {
		fields[k] = v
	}
	payload := queue.NotifyDispatchPayload{
		Source:           constants.NotifySourceJDPay,
		Kind:             string(result.Kind),
		Merchant:         merchant,
		TradeNum:         result.TradeNum(),
		OriginalTradeNum: result.OriginalTradeNum(),
		Status:           result.Status(),
		Currency:         result.Currency(),
		ResultCode:       result.ResultCode(),
		Succeeded:        result.Succeeded(),
		Fields:           fields,
		SignDigest:       jdpay.Digest(result.Sign)[:signDigestLength],
		RequestID:        requestID,
		ReceivedAt:       receivedAt.UTC(),
	}
	if fen, err := result.Amount(); err == nil {
		payload.Amount = fen
		yuan, _ := result.AmountYuan()
		payload.AmountYuan = yuan.StringFixed(2)
	}
	return payload
}

// DedupKey 同一笔交易的同一份签名只投递一次
func DedupKey(payload queue.NotifyDispatchPayload) string {
	tradeNum := strings.TrimSpace(payload.TradeNum)
	if tradeNum == "" {
		tradeNum = "-"
	}
	return strings.Join([]string{
		constants.CacheKeyNotifyDedup,
		payload.Source,
		payload.Kind,
		tradeNum,
		payload.SignDigest,
	}, ":")
}

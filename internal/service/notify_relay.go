package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/paynotify/internal/config"
	"github.com/paynotify/internal/constants"
	"github.com/paynotify/internal/metrics"
	"github.com/paynotify/internal/queue"

	"github.com/go-resty/resty/v2"
)

const relayResponseLimit = 256

var (
	ErrRelayDisabled = errors.New("relay url not configured")
	// ErrRelayRejected 下游返回 4xx，重试无意义
	ErrRelayRejected = errors.New("relay rejected by downstream")
	ErrRelayFailed   = errors.New("relay failed")
)

// RelayService 将已验签回调以 JSON POST 给下游订单服务
type RelayService struct {
	client  *resty.Client
	url     string
	metrics *metrics.Recorder
}

// NewRelayService 创建转发服务
func NewRelayService(cfg config.RelayConfig, rec *metrics.Recorder) *RelayService {
	client := resty.New().
		SetTimeout(cfg.Timeout()).
		SetRetryCount(cfg.RetryCount).
		SetHeader("Content-Type", "application/json").
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= 500
		})
	return &RelayService{
		client:  client,
		url:     strings.TrimSpace(cfg.URL),
		metrics: rec,
	}
}

// Enabled 是否配置了下游地址
func (s *RelayService) Enabled() bool {
	return s != nil && s.url != ""
}

// Relay 转发一条回调，2xx 视为成功
func (s *RelayService) Relay(ctx context.Context, payload queue.NotifyDispatchPayload) error {
	if !s.Enabled() {
		return ErrRelayDisabled
	}
	req := s.client.R().
		SetContext(ctx).
		SetBody(payload)
	if payload.RequestID != "" {
		req.SetHeader(constants.HeaderRequestID, payload.RequestID)
	}
	resp, err := req.Post(s.url)
	if err != nil {
		s.metrics.ObserveRelay(false)
		return fmt.Errorf("%w: %v", ErrRelayFailed, err)
	}
	code := resp.StatusCode()
	if code >= 200 && code < 300 {
		s.metrics.ObserveRelay(true)
		return nil
	}
	s.metrics.ObserveRelay(false)
	body := string(resp.Body())
	if len(body) > relayResponseLimit {
		body = body[:relayResponseLimit]
	}
	if code >= 400 && code < 500 {
		return fmt.Errorf("%w: status %d body %s", ErrRelayRejected, code, body)
	}
	return fmt.Errorf("%w: status %d body %s", ErrRelayFailed, code, body)
}

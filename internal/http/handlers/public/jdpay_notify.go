package public

import (
	"net/http"
	"strings"
	"time"

	"github.com/paynotify/internal/constants"
	"github.com/paynotify/internal/http/response"
	"github.com/paynotify/internal/payment/jdpay"

	"github.com/gin-gonic/gin"
)

// JDPayNotify 京东支付异步通知入口
func (h *Handler) JDPayNotify(c *gin.Context) {
	start := time.Now()
	contentType := strings.TrimSpace(c.GetHeader("Content-Type"))
	log := requestLog(c).With("client_ip", c.ClientIP(), "content_type", contentType)
	if h == nil || h.Container == nil || h.NotifyClient == nil {
		log.Errorw("jdpay_notify_client_missing")
		response.Ack(c, http.StatusInternalServerError, false)
		return
	}

	kind := "unknown"
	if k, err := jdpay.ClassifyContentType(contentType); err == nil {
		kind = k.String()
	}

	result, err := h.NotifyClient.Execute(c.Request.Context(), c.Request)
	h.Metrics.ObserveNotify(constants.NotifySourceJDPay, kind, jdpay.ErrorReason(err), time.Since(start))
	if err != nil {
		appErr := mapNotifyError(err)
		log.Warnw("jdpay_notify_rejected",
			"reason", appErr.Message,
			"status", appErr.Status,
			"error", err,
		)
		response.Ack(c, appErr.Status, false)
		return
	}

	amount, _ := result.Amount()
	log.Infow("jdpay_notify_verified",
		"kind", result.Kind,
		"trade_num", result.TradeNum(),
		"status", result.Status(),
		"amount", amount,
		"result_code", result.ResultCode(),
	)

	if h.NotifyDispatchService != nil {
		outcome, err := h.NotifyDispatchService.Dispatch(c.Request.Context(), result, requestID(c))
		if err != nil {
			// 回 fail 让网关稍后重推
			log.Errorw("jdpay_notify_dispatch_failed", "trade_num", result.TradeNum(), "error", err)
			response.Ack(c, http.StatusOK, false)
			return
		}
		log.Debugw("jdpay_notify_dispatched", "trade_num", result.TradeNum(), "outcome", outcome)
	}
	response.Ack(c, http.StatusOK, true)
}

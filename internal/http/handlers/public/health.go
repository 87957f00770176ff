package public

import (
	"context"
	"net/http"
	"time"

	"github.com/paynotify/internal/cache"
	"github.com/paynotify/internal/http/response"

	"github.com/gin-gonic/gin"
)

const healthPingTimeout = 2 * time.Second

// Healthz 探活，Redis 启用时一并检查连通性
func (h *Handler) Healthz(c *gin.Context) {
	data := gin.H{
		"status": "ok",
		"redis":  cache.Enabled(),
	}
	if h != nil && h.Container != nil {
		data["queue"] = h.QueueClient.Enabled()
		data["relay"] = h.RelayService.Enabled()
		if h.NotifyClient != nil {
			data["merchant"] = h.NotifyClient.Merchant()
		}
	}
	if client := cache.Client(); client != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			requestLog(c).Warnw("healthz_redis_ping_failed", "error", err)
			response.ErrorWithStatus(c, http.StatusServiceUnavailable, response.CodeUnavailable, "redis unavailable")
			return
		}
	}
	response.Success(c, data)
}

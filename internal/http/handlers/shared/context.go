package shared

import (
	"github.com/paynotify/internal/constants"
	"github.com/paynotify/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if id := RequestID(c); id != "" {
		return logger.SW("request_id", id)
	}
	return logger.S()
}

// RequestID 读取中间件写入的请求 ID
func RequestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if requestID, ok := c.Get(constants.ContextKeyRequestID); ok {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}

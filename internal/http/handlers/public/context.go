package public

import (
	handlershared "github.com/paynotify/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func requestID(c *gin.Context) string {
	return handlershared.RequestID(c)
}

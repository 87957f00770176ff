package public

import "github.com/paynotify/internal/provider"

// Handler 公开接口处理器入口
// 说明：仅承载支付网关回调与探活，不做鉴权。
type Handler struct {
	*provider.Container
}

// New 创建公开接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

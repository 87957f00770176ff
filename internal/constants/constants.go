package constants

// 回调应答文本，网关只认这两个值
const (
	JDPayAckSuccess = "success"
	JDPayAckFail    = "fail"
)

// 回调来源
const (
	NotifySourceJDPay = "jdpay"
)

// 队列与任务
const (
	QueueDefault       = "default"
	QueueCritical      = "critical"
	TaskNotifyDispatch = "notify:dispatch"
)

// 缓存 key 前缀
const (
	CacheKeyNotifyDedup   = "notify:dedup"
	CacheKeyCallbackLimit = "callback:rate_limit"
)

// 请求上下文 key
const (
	ContextKeyRequestID = "request_id"
	HeaderRequestID     = "X-Request-ID"
)

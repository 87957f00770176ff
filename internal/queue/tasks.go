package queue

import (
	"encoding/json"
	"time"

	"github.com/paynotify/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskNotifyDispatch 已验签回调转发任务
	TaskNotifyDispatch = constants.TaskNotifyDispatch
)

// NotifyDispatchPayload 已验签回调的转发载荷，也是下游收到的 JSON
type NotifyDispatchPayload struct {
	Source           string            `json:"source"`
	Kind             string            `json:"kind"`
	Merchant         string            `json:"merchant"`
	TradeNum         string            `json:"trade_num"`
	OriginalTradeNum string            `json:"original_trade_num,omitempty"`
	Status           string            `json:"status"`
	Amount           int64             `json:"amount"`
	AmountYuan       string            `json:"amount_yuan"`
	Currency         string            `json:"currency"`
	ResultCode       string            `json:"result_code,omitempty"`
	Succeeded        bool              `json:"succeeded"`
	Fields           map[string]string `json:"fields"`
	SignDigest       string            `json:"sign_digest"`
	RequestID        string            `json:"request_id,omitempty"`
	ReceivedAt       time.Time         `json:"received_at"`
}

// NewNotifyDispatchTask 创建回调转发任务
func NewNotifyDispatchTask(payload NotifyDispatchPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotifyDispatch, body), nil
}

// ParseNotifyDispatchPayload 解析任务载荷
func ParseNotifyDispatchPayload(task *asynq.Task) (NotifyDispatchPayload, error) {
	var payload NotifyDispatchPayload
	if task == nil {
		return payload, nil
	}
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}

package public

import (
	"errors"
	"net/http"

	"github.com/paynotify/internal/http/response"
	"github.com/paynotify/internal/payment/jdpay"
)

// mappedNotifyError 定义回调校验错误到应答状态码的映射关系。
type mappedNotifyError struct {
	target error
	code   int
	status int
}

// 报文形态错误直接返回 4xx，其余校验失败按网关约定回 200 fail
var notifyErrorRules = []mappedNotifyError{
	{target: jdpay.ErrUnsupportedContentType, code: response.CodeBadRequest, status: http.StatusBadRequest},
	{target: jdpay.ErrPayloadInvalid, code: response.CodeBadRequest, status: http.StatusBadRequest},
	{target: jdpay.ErrConfiguration, code: response.CodeInternal, status: http.StatusInternalServerError},
}

func mapNotifyError(err error) *response.AppError {
	reason := jdpay.ErrorReason(err)
	for _, rule := range notifyErrorRules {
		if errors.Is(err, rule.target) {
			return response.WrapError(rule.code, reason, err).WithStatus(rule.status)
		}
	}
	return response.WrapError(response.CodeBadRequest, reason, err)
}

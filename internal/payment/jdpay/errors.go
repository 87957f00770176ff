package jdpay

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration               = errors.New("jdpay config invalid")
	ErrUnsupportedContentType      = errors.New("jdpay notify content type not supported")
	ErrPayloadInvalid              = errors.New("jdpay notify payload invalid")
	ErrEmptyParameters             = errors.New("jdpay notify parameters empty")
	ErrMissingSignature            = errors.New("jdpay notify sign missing")
	ErrEmptyEncryptedPayload       = errors.New("jdpay notify encrypt empty")
	ErrDecryptionFailed            = errors.New("jdpay decrypt failed")
	ErrSignatureVerificationFailed = errors.New("jdpay signature verification failed")
)

// Error 回调校验错误，Kind 为上面的哨兵错误之一
type Error struct {
	Kind  error
	Field string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Field != "" {
		msg = fmt.Sprintf("%s: field %s", msg, e.Field)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Is 使 errors.Is 能够匹配哨兵错误
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind error, field string, err error) *Error {
	return &Error{Kind: kind, Field: field, Err: err}
}

// ErrorReason 返回错误对应的简短原因，用于日志与指标标签
func ErrorReason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrUnsupportedContentType):
		return "unsupported_content_type"
	case errors.Is(err, ErrPayloadInvalid):
		return "payload_invalid"
	case errors.Is(err, ErrEmptyParameters):
		return "empty_parameters"
	case errors.Is(err, ErrMissingSignature):
		return "missing_signature"
	case errors.Is(err, ErrEmptyEncryptedPayload):
		return "empty_encrypted_payload"
	case errors.Is(err, ErrDecryptionFailed):
		return "decryption_failed"
	case errors.Is(err, ErrSignatureVerificationFailed):
		return "signature_verification_failed"
	default:
		return "unknown"
	}
}

package response

import "net/http"

// AppError 统一错误包装，Status 为 HTTP 状态码
type AppError struct {
	Code    int
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装错误，HTTP 状态码默认 200
func WrapError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Status:  http.StatusOK,
		Message: message,
		Err:     err,
	}
}

// WithStatus 指定 HTTP 状态码
func (e *AppError) WithStatus(status int) *AppError {
	if e == nil {
		return e
	}
	e.Status = status
	return e
}

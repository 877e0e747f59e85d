package errorutil

import (
	"errors"
	"fmt"
)

// Error 错误结构（包含可重试标记）
type Error struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
	DevDetails string `json:"dev_details,omitempty"`
}

// Error 实现 error 接口
func (e *Error) Error() string {
	return e.Message
}

// Retriable 创建可重试错误（网络抖动、上游 5xx 等，下个周期自然重试）
func Retriable(message string) *Error {
	return &Error{
		Code:      500,
		Message:   message,
		Retryable: true,
	}
}

// RetriableWithDetails 创建可重试错误（带详细信息）
func RetriableWithDetails(message string, details string) *Error {
	return &Error{
		Code:       500,
		Message:    message,
		Retryable:  true,
		DevDetails: details,
	}
}

// NonRetriable 创建不可重试错误（请求参数、凭证等问题，重试无意义）
func NonRetriable(message string) *Error {
	return &Error{
		Code:      400,
		Message:   message,
		Retryable: false,
	}
}

// NonRetriableWithDetails 创建不可重试错误（带详细信息）
func NonRetriableWithDetails(message string, details string) *Error {
	return &Error{
		Code:       400,
		Message:    message,
		Retryable:  false,
		DevDetails: details,
	}
}

// Wrap 包装错误（自动判断是否可重试）
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}

	// 如果已经是 Error 类型，直接返回
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	// 默认为不可重试错误
	return &Error{
		Code:       500,
		Message:    err.Error(),
		Retryable:  false,
		DevDetails: fmt.Sprintf("%+v", err),
	}
}

// IsRetryable 判断错误是否可重试（非 Error 类型一律视为不可重试）
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

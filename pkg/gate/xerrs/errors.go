package xerrs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误分类。
//
// 分类集合是封闭的：新增分类意味着上层路由需要新的渲染分支，
// 不要在业务代码里造临时分类。
type Kind uint8

// 错误分类常量。
const (
	// KindUnknown 未分类错误（零值）
	KindUnknown Kind = iota

	// KindValidation 输入格式非法
	KindValidation

	// KindAuthentication 身份未认证
	KindAuthentication

	// KindAuthorization 权限不足
	KindAuthorization

	// KindNotFound 目标不存在
	KindNotFound

	// KindConflict 状态冲突
	KindConflict

	// KindRateLimited 准入限流拒绝
	KindRateLimited

	// KindServiceUnavailable 外部依赖不可用（熔断打开或依赖宕机）
	KindServiceUnavailable

	// KindFraudDetected 欺诈判定拒绝
	KindFraudDetected

	// KindPaymentFailure 支付失败
	KindPaymentFailure
)

// Code 返回分类的稳定错误码。
// 错误码是对外契约的一部分，写入日志和 API 响应，不要改动已有值。
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindAuthentication:
		return "AUTHENTICATION_ERROR"
	case KindAuthorization:
		return "AUTHORIZATION_ERROR"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindRateLimited:
		return "RATE_LIMITED"
	case KindServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	case KindFraudDetected:
		return "FRAUD_DETECTED"
	case KindPaymentFailure:
		return "PAYMENT_FAILURE"
	default:
		return "INTERNAL_ERROR"
	}
}

// HTTPStatus 返回分类建议的 HTTP 状态码。
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	case KindFraudDetected:
		return http.StatusForbidden
	case KindPaymentFailure:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// String 实现 fmt.Stringer。
func (k Kind) String() string {
	return k.Code()
}

// Error 带分类的错误。
//
// 字段不导出，通过方法访问；包装链上的原始错误可用 errors.Unwrap 获取。
type Error struct {
	kind Kind
	msg  string
	err  error
}

// New 创建带分类的错误。
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Newf 创建带分类的格式化错误。
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap 包装已有错误并附加分类。
// err 为 nil 时返回 nil，便于直接包装调用结果。
func Wrap(kind Kind, msg string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, msg: msg, err: err}
}

// Error 实现 error 接口。
func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind.Code(), e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.kind.Code(), e.msg)
}

// Unwrap 实现 errors.Unwrap 接口。
func (e *Error) Unwrap() error {
	return e.err
}

// Kind 返回错误分类。
func (e *Error) Kind() Kind {
	return e.kind
}

// Message 返回面向调用方的错误消息（不含分类码和包装链）。
func (e *Error) Message() string {
	return e.msg
}

// HTTPStatus 返回建议的 HTTP 状态码。
func (e *Error) HTTPStatus() int {
	return e.kind.HTTPStatus()
}

// Retryable 实现 xretry 的可重试错误接口。
// 只有依赖不可用是瞬时故障，其余分类重试无意义。
func (e *Error) Retryable() bool {
	return e.kind == KindServiceUnavailable
}

// KindOf 返回错误链上第一个 *Error 的分类。
// err 为 nil 或链上没有 *Error 时返回 KindUnknown。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

// IsKind 检查错误链上是否存在指定分类的 *Error。
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

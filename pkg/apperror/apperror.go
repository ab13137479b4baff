package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind 定义了API可见的错误类别。
// 客户端依赖这些类别来渲染准确的提示，而不是笼统的“保存失败”。
type Kind int

const (
	// KindNotFound 表示请求的资源不存在。
	// 注意：个人池分配尚未生成时不属于此类别，那是一个合法的“未就绪”状态。
	KindNotFound Kind = iota
	// KindForbidden 表示调用者不拥有目标资源（所有权校验失败）。
	KindForbidden
	// KindConflict 表示操作与资源当前状态冲突，例如向已终局的Attempt追加猜测。
	KindConflict
	// KindRestricted 表示资料字段修改处于冷却窗口内，附带精确的解禁时间。
	KindRestricted
	// KindValidation 表示请求本身格式非法或缺少必填字段。
	KindValidation
)

// Error 是引擎对外暴露的统一错误类型。
type Error struct {
	Kind    Kind
	Message string

	// NextAllowedAt 仅在 KindRestricted 时有值，告知调用者精确的重试时间。
	NextAllowedAt *time.Time

	// Err 是被包装的底层错误，可能为nil。
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 让 errors.Is(err, &Error{Kind: ...}) 按类别匹配。
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// HTTPStatus 将错误类别映射到HTTP状态码，供各handler统一使用。
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindRestricted:
		return http.StatusTooManyRequests
	case KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// NotFound 构造一个资源不存在错误。
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Forbidden 构造一个所有权校验失败错误。
func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// Conflict 构造一个状态冲突错误。
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Restricted 构造一个冷却限制错误，nextAllowedAt为精确的解禁时间。
func Restricted(nextAllowedAt time.Time, format string, args ...any) *Error {
	return &Error{Kind: KindRestricted, Message: fmt.Sprintf(format, args...), NextAllowedAt: &nextAllowedAt}
}

// Validation 构造一个请求校验错误。
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// AsError 尝试把任意error还原为*Error；还原失败返回nil。
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

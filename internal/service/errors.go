package service

import (
	"errors"
	"fmt"
	"strings"
)

// 错误分类：UI 层据此决定 HTTP 状态码与提示方式
// - validation: 入参/资格/调度窗口问题，未发生任何写入
// - conflict:   并发冲突或非法状态迁移，调用方应刷新后重试
// - not_found:  引用的对象不存在（调用方数据过期）
// - dependency: 协作存储调用失败，已完成的子步骤已补偿回滚
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindConflict   ErrorKind = "conflict"
	KindNotFound   ErrorKind = "not_found"
	KindDependency ErrorKind = "dependency"
)

// 错误码（kind 之下的细分，前端据此渲染具体文案）
const (
	CodeInvalidStateTransition = "invalid_state_transition"
	CodeInsufficientCapacity   = "insufficient_capacity"
	CodeAllocationNotFound     = "allocation_not_found"
	CodeBedUnavailable         = "bed_unavailable"
	CodeAlreadyArrived         = "already_arrived"
	CodeIneligiblePerson       = "ineligible_person"
	CodeScheduleWindow         = "schedule_window_violation"
	CodeMissingField           = "missing_field"
	CodeRequestNotFound        = "request_not_found"
	CodePersonNotFound         = "person_not_found"
	CodeCampNotFound           = "camp_not_found"
	CodeStoreFailure           = "store_failure"
)

// Error 带分类与关联对象ID的业务错误
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	IDs     []string // 关联的 person/bed/request ID（可为空）
	cause   error
}

func (e *Error) Error() string {
	if len(e.IDs) > 0 {
		return fmt.Sprintf("%s: %s [%s]", e.Code, e.Message, strings.Join(e.IDs, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind ErrorKind, code, message string, ids ...string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, IDs: ids}
}

// NewValidationError 校验失败（任何写入之前拒绝）
func NewValidationError(code, message string, ids ...string) *Error {
	return newError(KindValidation, code, message, ids...)
}

// NewConflictError 并发冲突 / 非法状态迁移
func NewConflictError(code, message string, ids ...string) *Error {
	return newError(KindConflict, code, message, ids...)
}

// NewNotFoundError 对象不存在
func NewNotFoundError(code, message string, ids ...string) *Error {
	return newError(KindNotFound, code, message, ids...)
}

// NewDependencyError 协作存储失败（已补偿）
func NewDependencyError(message string, cause error, ids ...string) *Error {
	e := newError(KindDependency, CodeStoreFailure, message, ids...)
	e.cause = cause
	return e
}

// AsServiceError 提取业务错误；非业务错误返回 nil
func AsServiceError(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return nil
}

// IsKind 判断错误分类
func IsKind(err error, kind ErrorKind) bool {
	se := AsServiceError(err)
	return se != nil && se.Kind == kind
}

// IsCode 判断错误码
func IsCode(err error, code string) bool {
	se := AsServiceError(err)
	return se != nil && se.Code == code
}

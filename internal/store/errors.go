package store

import (
	"errors"
	"fmt"

	"github.com/user/omovies/internal/utils"
)

// FailureKind 动作失败的分类
type FailureKind int

const (
	// FailureValidation 参数校验失败，未发起网络请求
	FailureValidation FailureKind = iota + 1
	// FailureTransport 网络错误、超时或响应无法解析
	FailureTransport
	// FailureServer 远程 API 返回 status:"fail" 或非 2xx
	FailureServer
)

func (k FailureKind) String() string {
	switch k {
	case FailureValidation:
		return "validation"
	case FailureTransport:
		return "transport"
	case FailureServer:
		return "server"
	default:
		return "unknown"
	}
}

const reasonTransport = "Impossible de contacter le service de films, veuillez réessayer"

// ActionError 所有动作失败统一返回的错误值，Reason 可直接展示给用户
type ActionError struct {
	Action string
	Kind   FailureKind
	Reason string
	Err    error
}

func (e *ActionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Action, e.Reason)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Retryable 传输或服务端失败可以由用户手动重试
func (e *ActionError) Retryable() bool {
	return e.Kind != FailureValidation
}

// ReasonOf 取出可展示的失败原因
func ReasonOf(err error) string {
	var actionErr *ActionError
	if errors.As(err, &actionErr) {
		return actionErr.Reason
	}
	if err == nil {
		return ""
	}
	return reasonTransport
}

func invalid(action, reason string, err error) *ActionError {
	return &ActionError{Action: action, Kind: FailureValidation, Reason: reason, Err: err}
}

// classify 将传输层错误归一化为 ActionError
func classify(action string, err error) *ActionError {
	var apiErr *utils.APIError
	if errors.As(err, &apiErr) {
		return &ActionError{Action: action, Kind: FailureServer, Reason: apiErr.Reason, Err: err}
	}
	return &ActionError{Action: action, Kind: FailureTransport, Reason: reasonTransport, Err: err}
}

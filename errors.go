package cozebridge

import (
	"errors"
	"fmt"
)

// ErrorType classifies an error for the host.
type ErrorType string

const (
	ErrorTypeConfig  ErrorType = "config"
	ErrorTypeParam   ErrorType = "param"
	ErrorTypeAPI     ErrorType = "api"
	ErrorTypeUnknown ErrorType = "unknown"
)

// ConfigError indicates missing or malformed credentials. It is raised before
// any network call.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// ParamError indicates an unusable query.
type ParamError struct {
	Message string
}

func (e *ParamError) Error() string {
	return e.Message
}

// RemoteAPIError indicates a failed or malformed response from the Coze API.
type RemoteAPIError struct {
	Op         string // "create chat", "retrieve chat", "list messages"
	Code       int    // Envelope code, 0 when the envelope was not readable
	Message    string
	StatusCode int // HTTP status, 0 when no response was received
	Cause      error
}

func (e *RemoteAPIError) Error() string {
	msg := fmt.Sprintf("coze api error (%s)", e.Op)
	if e.Code != 0 {
		msg += fmt.Sprintf(": code %d", e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *RemoteAPIError) Unwrap() error {
	return e.Cause
}

// TimeoutError indicates the chat did not complete within the poll budget.
type TimeoutError struct {
	Attempts   int
	LastStatus SessionStatus
}

func (e *TimeoutError) Error() string {
	if e.LastStatus != "" {
		return fmt.Sprintf("timed out waiting for response after %d attempts (last status %q)", e.Attempts, e.LastStatus)
	}
	return fmt.Sprintf("timed out waiting for response after %d attempts", e.Attempts)
}

// NoAnswerError indicates the completed chat holds no usable assistant answer.
type NoAnswerError struct {
	Message string
}

func (e *NoAnswerError) Error() string {
	if e.Message == "" {
		return "no assistant answer found"
	}
	return e.Message
}

// UnknownError wraps any failure outside the taxonomy, including recovered panics.
type UnknownError struct {
	Cause error
}

func (e *UnknownError) Error() string {
	if e.Cause == nil {
		return "unknown error"
	}
	return e.Cause.Error()
}

func (e *UnknownError) Unwrap() error {
	return e.Cause
}

// ErrorTypeOf maps an error onto the host's error types.
func ErrorTypeOf(err error) ErrorType {
	var (
		configErr   *ConfigError
		paramErr    *ParamError
		remoteErr   *RemoteAPIError
		timeoutErr  *TimeoutError
		noAnswerErr *NoAnswerError
	)
	switch {
	case errors.As(err, &configErr):
		return ErrorTypeConfig
	case errors.As(err, &paramErr):
		return ErrorTypeParam
	case errors.As(err, &remoteErr), errors.As(err, &timeoutErr), errors.As(err, &noAnswerErr):
		return ErrorTypeAPI
	default:
		return ErrorTypeUnknown
	}
}

// NewErrorInfo converts an error into the shape delivered to the host.
func NewErrorInfo(err error) *ErrorInfo {
	typ := ErrorTypeOf(err)
	msg := err.Error()
	switch typ {
	case ErrorTypeAPI:
		msg = "request failed: " + msg
	case ErrorTypeUnknown:
		msg = "plugin error: " + msg
	}
	return &ErrorInfo{Type: typ, Message: msg}
}

package shellgate

import (
	"fmt"
)

type ErrorType string

const (
	ErrorTypeDisabled ErrorType = "config_disabled"
	ErrorTypeDenied   ErrorType = "permission_denied"
	ErrorTypeTimeout  ErrorType = "timeout"
	ErrorTypeLaunch   ErrorType = "launch_failed"
	ErrorTypeAudit    ErrorType = "audit_write_failed"
)

type GateError struct {
	Type    ErrorType
	Message string
	Command string
}

func (e *GateError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("[%s] %s (command: %s)", e.Type, e.Message, e.Command)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func NewGateError(errType ErrorType, message string, command string) *GateError {
	return &GateError{
		Type:    errType,
		Message: message,
		Command: command,
	}
}

// captureError folds a step failure into the result fields. The error type
// decides which flags accompany the message; Execute never surfaces the
// error itself.
func (r *Result) captureError(err *GateError) {
	r.Error = err.Message
	switch err.Type {
	case ErrorTypeDisabled, ErrorTypeDenied:
		r.Denied = true
	case ErrorTypeTimeout:
		r.TimedOut = true
	}
}

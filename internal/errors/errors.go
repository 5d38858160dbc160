// Package errors defines the typed error taxonomy of the agent core.
// Codes classify failures by how the caller must react: NotFound is
// terminal, validation failures degrade to a safe response, provider
// failures fall back, index failures are log-only.
package errors

import (
	"errors"
	"fmt"
)

// Code classifies an agent error.
type Code string

const (
	CodeNotFound          Code = "NOT_FOUND"
	CodeValidationFailed  Code = "VALIDATION_FAILED"
	CodeProviderFailure   Code = "PROVIDER_FAILURE"
	CodeIndexWriteFailure Code = "INDEX_WRITE_FAILURE"
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
)

// AgentError is an error with a classification code and optional context
// identifying the entity involved.
type AgentError struct {
	Code    Code
	Message string
	Cause   error
	// Context carries identifying attributes, e.g. the missing entity id.
	Context map[string]string
}

func (e *AgentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AgentError) Unwrap() error {
	return e.Cause
}

// WithContext attaches an identifying attribute and returns the error.
func (e *AgentError) WithContext(key, value string) *AgentError {
	if e.Context == nil {
		e.Context = map[string]string{}
	}
	e.Context[key] = value
	return e
}

// NotFound creates a NOT_FOUND error.
func NotFound(format string, args ...any) *AgentError {
	return &AgentError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// ValidationFailed creates a VALIDATION_FAILED error.
func ValidationFailed(format string, args ...any) *AgentError {
	return &AgentError{Code: CodeValidationFailed, Message: fmt.Sprintf(format, args...)}
}

// ProviderFailure creates a PROVIDER_FAILURE error wrapping its cause.
func ProviderFailure(cause error, format string, args ...any) *AgentError {
	return &AgentError{Code: CodeProviderFailure, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IndexWriteFailure creates an INDEX_WRITE_FAILURE error wrapping its cause.
func IndexWriteFailure(cause error, format string, args ...any) *AgentError {
	return &AgentError{Code: CodeIndexWriteFailure, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// InvalidArgument creates an INVALID_ARGUMENT error.
func InvalidArgument(format string, args ...any) *AgentError {
	return &AgentError{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// IsCode reports whether err or any error it wraps carries the given code.
func IsCode(err error, code Code) bool {
	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		return agentErr.Code == code
	}
	return false
}

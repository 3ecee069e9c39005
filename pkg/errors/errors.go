package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeLLM represents language-model request errors
	ErrorTypeLLM ErrorType = "llm"
	// ErrorTypeStorage represents metrics storage errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeValidation represents user-input validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Graph Errors

// ErrGraphConnectionFailed is returned when the Neo4j connection fails
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

// Unwrap exposes the embedded BaseError so errors.As can reach it
func (e *ErrGraphConnectionFailed) Unwrap() error { return e.BaseError }

// ErrGraphQueryFailed is returned when a graph query fails
type ErrGraphQueryFailed struct {
	*BaseError
	Operation string
}

func NewGraphQueryFailed(operation string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("graph operation failed: %s", operation), err),
		Operation: operation,
	}
}

func (e *ErrGraphQueryFailed) Unwrap() error { return e.BaseError }

// LLM Errors

// ErrLLMRequestFailed is returned when an LLM request fails after all retries
type ErrLLMRequestFailed struct {
	*BaseError
	Model    string
	Attempts int
}

func NewLLMRequestFailed(model string, attempts int, err error) *ErrLLMRequestFailed {
	return &ErrLLMRequestFailed{
		BaseError: NewBaseError(ErrorTypeLLM, fmt.Sprintf("LLM request failed after %d attempts", attempts), err),
		Model:     model,
		Attempts:  attempts,
	}
}

func (e *ErrLLMRequestFailed) Unwrap() error { return e.BaseError }

// ErrLLMBadResponse is returned when the model output cannot be parsed
type ErrLLMBadResponse struct {
	*BaseError
	Detail string
}

func NewLLMBadResponse(detail string, err error) *ErrLLMBadResponse {
	return &ErrLLMBadResponse{
		BaseError: NewBaseError(ErrorTypeLLM, fmt.Sprintf("unusable LLM response: %s", detail), err),
		Detail:    detail,
	}
}

func (e *ErrLLMBadResponse) Unwrap() error { return e.BaseError }

// Storage Errors

// ErrStorageFailed is returned when a metrics storage operation fails
type ErrStorageFailed struct {
	*BaseError
	Operation string
}

func NewStorageFailed(operation string, err error) *ErrStorageFailed {
	return &ErrStorageFailed{
		BaseError: NewBaseError(ErrorTypeStorage, fmt.Sprintf("storage operation failed: %s", operation), err),
		Operation: operation,
	}
}

func (e *ErrStorageFailed) Unwrap() error { return e.BaseError }

// Validation Errors

// ErrValidationFailed is returned when user input fails validation
type ErrValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewValidationFailed(field, reason string) *ErrValidationFailed {
	return &ErrValidationFailed{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

func (e *ErrValidationFailed) Unwrap() error { return e.BaseError }

// Config Errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

func (e *ErrConfigMissingRequired) Unwrap() error { return e.BaseError }

// Context Errors

// ErrContextCancelled is returned when context is cancelled mid-operation
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

func (e *ErrContextCancelled) Unwrap() error { return e.BaseError }

// Helper functions

// IsErrorType checks if an error (or anything it wraps) is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	var base *BaseError
	if errors.As(err, &base) {
		return base.Type == errType
	}
	return false
}

// IsRetryable reports whether retrying the failed operation could help
func IsRetryable(err error) bool {
	switch {
	case IsErrorType(err, ErrorTypeContext):
		return false
	case IsErrorType(err, ErrorTypeValidation), IsErrorType(err, ErrorTypeConfig):
		return false
	case IsErrorType(err, ErrorTypeGraph), IsErrorType(err, ErrorTypeLLM):
		return true
	}
	return false
}

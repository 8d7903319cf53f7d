// Package errors provides a lightweight structured error type for
// category-based classification and retry semantics across the
// generation pipeline and CLI.
package errors

import (
	"fmt"
)

// Category classifies a pipeline error for callers that need to decide
// whether the failure is recoverable and where to point the user.
type Category string

const (
	// CategoryValidation: missing or invalid data required by the
	// requested features; recoverable by fixing the property record or
	// the generation options.
	CategoryValidation Category = "validation"

	// CategoryAsset: unreadable, missing, or unsupported media;
	// recoverable by fixing media references.
	CategoryAsset Category = "asset"

	// CategoryRender: manifest/context mismatch discovered at render
	// time; indicates a template authoring defect.
	CategoryRender Category = "render"

	// CategoryWrite: filesystem failure during staging or swap.
	CategoryWrite Category = "write"

	// CategoryConfig: configuration or catalog loading problems.
	CategoryConfig Category = "config"

	// CategoryInternal: everything else.
	CategoryInternal Category = "internal"
)

// ContextFields carries structured context for an Error.
type ContextFields map[string]any

// Error is a structured error with category, originating stage,
// retryability, and context. It is the single error currency of the
// pipeline; stages never signal ordinary control flow with it.
type Error struct {
	Category  Category      `json:"category"`
	Stage     string        `json:"stage,omitempty"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithStage records the pipeline stage the error surfaced from.
func (e *Error) WithStage(stage string) *Error {
	e.Stage = stage
	return e
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new Error.
func New(category Category, message string) *Error {
	return &Error{Category: category, Message: message}
}

// Newf creates a new Error with a formatted message.
func Newf(category Category, format string, args ...any) *Error {
	return &Error{Category: category, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new Error that wraps an existing error.
func Wrap(err error, category Category, message string) *Error {
	return &Error{Category: category, Message: message, Cause: err}
}

// WrapRetryable creates a new retryable Error that wraps an existing error.
func WrapRetryable(err error, category Category, message string) *Error {
	return &Error{Category: category, Message: message, Cause: err, Retryable: true}
}

// Validation creates a validation error.
func Validation(message string) *Error { return New(CategoryValidation, message) }

// Validationf creates a validation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return Newf(CategoryValidation, format, args...)
}

// Asset creates an asset error.
func Asset(message string) *Error { return New(CategoryAsset, message) }

// Render creates a render error.
func Render(message string) *Error { return New(CategoryRender, message) }

// Write creates a write error.
func Write(message string) *Error { return New(CategoryWrite, message) }

// IsCategory checks if an error belongs to a specific category.
func IsCategory(err error, category Category) bool {
	if pe, ok := err.(*Error); ok {
		return pe.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if pe, ok := err.(*Error); ok {
		return pe.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns
// CategoryInternal if the error is untyped.
func GetCategory(err error) Category {
	if pe, ok := err.(*Error); ok {
		return pe.Category
	}
	return CategoryInternal
}

// GetStage extracts the stage from an error, or "" if the error is untyped.
func GetStage(err error) string {
	if pe, ok := err.(*Error); ok {
		return pe.Stage
	}
	return ""
}

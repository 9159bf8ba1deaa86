// Package core wires the LifeMate answer pipeline: configuration, logging,
// model tiers, storage backends and the chat client.
package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConnectionFailed indicates that a connection to a storage backend failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrStorageOperation indicates that a storage operation failed.
	ErrStorageOperation = errors.New("storage operation failed")

	// ErrLLMOperation indicates that an LLM operation failed.
	ErrLLMOperation = errors.New("llm operation failed")
)

// LifeMateError wraps errors with operation context.
//
// Example:
//
//	err := &LifeMateError{
//	    Op:  "NewClient",
//	    Err: ErrInvalidConfig,
//	}
//	// Error() returns: "lifemate: NewClient: invalid configuration"
type LifeMateError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "lifemate: <Op>: <Err>"
func (e *LifeMateError) Error() string {
	return fmt.Sprintf("lifemate: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *LifeMateError) Unwrap() error {
	return e.Err
}

// NewLifeMateError creates a new LifeMateError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	if err != nil {
//	    return NewLifeMateError("Store", err)
//	}
func NewLifeMateError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &LifeMateError{
		Op:  op,
		Err: err,
	}
}

// Package persistence provides standardized error types for storage
// operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given id.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrBindingNotFound indicates a trigger binding was not found.
	ErrBindingNotFound = errors.New("binding not found")

	// ErrRecordNotFound indicates a data record was not found.
	ErrRecordNotFound = errors.New("record not found")

	// ErrExecutionImmutable indicates an attempt to overwrite a terminal
	// execution record.
	ErrExecutionImmutable = errors.New("execution record is immutable")
)

// WorkflowError wraps workflow-related storage errors with context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "Save", "Delete")
	WorkflowID string
	Err        error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a workflow storage error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{Op: op, WorkflowID: workflowID, Err: err}
}

// IsWorkflowNotFound checks if an error indicates a missing workflow.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsBindingNotFound checks if an error indicates a missing binding.
func IsBindingNotFound(err error) bool {
	return errors.Is(err, ErrBindingNotFound)
}

// IsRecordNotFound checks if an error indicates a missing record.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

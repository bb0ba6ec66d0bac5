package models

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkflowDisabled is returned when a trigger arrives for a workflow
	// that exists but is disabled. No execution record is created.
	ErrWorkflowDisabled = errors.New("workflow disabled")

	// ErrTriggerNotFound is returned when a delivery references a binding
	// that no longer exists, typically after the workflow was deleted.
	ErrTriggerNotFound = errors.New("trigger not found")
)

// ConfigurationError marks a misconfigured workflow definition: an unknown
// action type, an unsupported operator, an invalid schedule expression.
// It surfaces at create/update time where possible; hit at run time it fails
// the run rather than silently passing.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Reason
	}

	return fmt.Sprintf("configuration error in %s: %s", e.Field, e.Reason)
}

// NewConfigurationError creates a configuration error for a definition field.
func NewConfigurationError(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError

	return errors.As(err, &target)
}

// FailureKind distinguishes how an action failed.
type FailureKind string

const (
	// FailureError is an ordinary handler failure.
	FailureError FailureKind = "error"

	// FailureTimeout means the action's deadline elapsed before the handler
	// finished. Stop-on-error treats it like any other failure.
	FailureTimeout FailureKind = "timeout"
)

// ActionError wraps a single action handler failure. It is recorded on the
// StepResult and escalates to a run failure only when the action declares
// stop_on_error.
type ActionError struct {
	ActionType ActionType
	Kind       FailureKind
	Err        error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s failed (%s): %v", e.ActionType, e.Kind, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// NewActionError wraps a handler failure.
func NewActionError(actionType ActionType, err error) *ActionError {
	return &ActionError{ActionType: actionType, Kind: FailureError, Err: err}
}

// NewTimeoutError wraps a deadline failure.
func NewTimeoutError(actionType ActionType, err error) *ActionError {
	return &ActionError{ActionType: actionType, Kind: FailureTimeout, Err: err}
}

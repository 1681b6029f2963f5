package service

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the task lifecycle engine.
var (
	// ErrForbidden is returned when the actor lacks the capability or
	// relationship required for the operation. No state change occurs.
	ErrForbidden = errors.New("actor is not permitted to perform this operation")

	// ErrInvalidTransition is returned when the requested status edge is
	// not in the transition table. No state change occurs.
	ErrInvalidTransition = errors.New("invalid task status transition")

	// ErrTaskNotFound is returned when the task does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrAlreadyCompleted is the idempotency guard on completion: the task
	// is already completed and nothing is re-applied or re-broadcast.
	ErrAlreadyCompleted = errors.New("task is already completed")

	// ErrAlreadyTerminal is returned when the task is in a terminal status
	// (completed or cancelled) and admits no further transitions.
	ErrAlreadyTerminal = errors.New("task is in a terminal status")

	// ErrUseCompleteOperation is returned when an update tries to set the
	// status to completed directly. The edge itself is legal, but completion
	// carries its own semantics (timestamp, note, music stop), so it must go
	// through CompleteTask.
	ErrUseCompleteOperation = errors.New("use the complete operation to finish a task")
)

// TaskServiceError is a custom error type for task service errors.
type TaskServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
func NewTaskServiceError(operation, message string, err error) *TaskServiceError {
	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

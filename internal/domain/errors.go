package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// Every specific validation error below wraps it, so callers can
	// classify any of them with errors.Is(err, ErrValidation).
	ErrValidation = errors.New("validation failed")

	// ErrInvalidStatus is returned when a task status is not one of the
	// known status values.
	ErrInvalidStatus = fmt.Errorf("%w: invalid task status", ErrValidation)

	// ErrInvalidPriority is returned when a task priority is not one of the
	// known priority values.
	ErrInvalidPriority = fmt.Errorf("%w: invalid task priority", ErrValidation)
)

// Task-specific validation errors.
var (
	// ErrTaskIDEmpty is returned when a task ID is empty or nil.
	ErrTaskIDEmpty = fmt.Errorf("%w: task ID cannot be empty", ErrValidation)

	// ErrTaskTitleEmpty is returned when a task's title is empty.
	ErrTaskTitleEmpty = fmt.Errorf("%w: task title cannot be empty", ErrValidation)

	// ErrTaskGroupIDEmpty is returned when a task's group ID is empty.
	ErrTaskGroupIDEmpty = fmt.Errorf("%w: task group ID cannot be empty", ErrValidation)

	// ErrTaskCreatorEmpty is returned when a task's creator ID is empty.
	ErrTaskCreatorEmpty = fmt.Errorf("%w: task creator ID cannot be empty", ErrValidation)

	// ErrTaskAssigneeEmpty is returned when a task's assignee ID is empty.
	ErrTaskAssigneeEmpty = fmt.Errorf("%w: task assignee ID cannot be empty", ErrValidation)

	// ErrCommentBodyEmpty is returned when a comment body is empty.
	ErrCommentBodyEmpty = fmt.Errorf("%w: comment body cannot be empty", ErrValidation)
)

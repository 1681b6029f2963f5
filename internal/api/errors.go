package api

import (
	"errors"
	"net/http"

	"github.com/choreboard/choreboard/internal/domain"
	"github.com/choreboard/choreboard/internal/service"
	"github.com/choreboard/choreboard/internal/service/auth"
	"github.com/choreboard/choreboard/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status
// codes based on the error type. This prevents leaking internal error types
// or messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors: the task is in a state that rejects the operation
	case errors.Is(err, service.ErrAlreadyCompleted),
		errors.Is(err, service.ErrAlreadyTerminal),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrUseCompleteOperation):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrCommentBodyEmpty),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return "Invalid token"

	case errors.Is(err, service.ErrForbidden):
		return "You are not permitted to perform this action"

	case errors.Is(err, service.ErrTaskNotFound), errors.Is(err, store.ErrNotFound):
		return "Task not found"

	case errors.Is(err, service.ErrAlreadyCompleted):
		return "Task is already completed"

	case errors.Is(err, service.ErrAlreadyTerminal):
		return "Task is in a terminal status"

	case errors.Is(err, service.ErrInvalidTransition):
		return "Invalid status transition"

	case errors.Is(err, service.ErrUseCompleteOperation):
		return "Use the complete operation to finish a task"

	case errors.Is(err, domain.ErrCommentBodyEmpty):
		return "Comment body cannot be empty"

	case errors.Is(err, domain.ErrValidation), errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	default:
		return "An unexpected error occurred"
	}
}

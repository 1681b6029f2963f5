package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/choreboard/choreboard/internal/domain"
	"github.com/choreboard/choreboard/internal/service"
	"github.com/choreboard/choreboard/internal/service/auth"
	"github.com/choreboard/choreboard/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    int
		wantMessage string
	}{
		{
			name:        "expired token",
			err:         auth.ErrExpiredToken,
			wantCode:    http.StatusUnauthorized,
			wantMessage: "Token expired",
		},
		{
			name:        "forbidden",
			err:         service.NewTaskServiceError("create", "missing capability", service.ErrForbidden),
			wantCode:    http.StatusForbidden,
			wantMessage: "You are not permitted to perform this action",
		},
		{
			name:        "task not found",
			err:         service.NewTaskServiceError("get", "no such task", service.ErrTaskNotFound),
			wantCode:    http.StatusNotFound,
			wantMessage: "Task not found",
		},
		{
			name:        "already completed",
			err:         service.NewTaskServiceError("complete", "already done", service.ErrAlreadyCompleted),
			wantCode:    http.StatusConflict,
			wantMessage: "Task is already completed",
		},
		{
			name:        "invalid transition",
			err:         service.NewTaskServiceError("update", "bad edge", service.ErrInvalidTransition),
			wantCode:    http.StatusConflict,
			wantMessage: "Invalid status transition",
		},
		{
			name:        "completion via patch",
			err:         service.NewTaskServiceError("update", "status cannot be patched to completed", service.ErrUseCompleteOperation),
			wantCode:    http.StatusConflict,
			wantMessage: "Use the complete operation to finish a task",
		},
		{
			name:        "empty assignee after patch",
			err:         service.NewTaskServiceError("update", "invalid task after patch", domain.ErrTaskAssigneeEmpty),
			wantCode:    http.StatusBadRequest,
			wantMessage: "Invalid request data",
		},
		{
			name:        "empty title after patch",
			err:         service.NewTaskServiceError("update", "invalid task after patch", domain.ErrTaskTitleEmpty),
			wantCode:    http.StatusBadRequest,
			wantMessage: "Invalid request data",
		},
		{
			name:        "empty comment body",
			err:         service.NewTaskServiceError("comment", "empty body", domain.ErrCommentBodyEmpty),
			wantCode:    http.StatusBadRequest,
			wantMessage: "Comment body cannot be empty",
		},
		{
			name:        "invalid store entity",
			err:         store.ErrInvalidEntity,
			wantCode:    http.StatusBadRequest,
			wantMessage: "Invalid request data",
		},
		{
			name:        "unexpected error",
			err:         errors.New("pool exhausted"),
			wantCode:    http.StatusInternalServerError,
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, MapErrorToStatusCode(tt.err))
			assert.Equal(t, tt.wantMessage, GetSafeErrorMessage(tt.err))
		})
	}
}

func TestGetSafeErrorMessageNil(t *testing.T) {
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}

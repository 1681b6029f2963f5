package api

import (
	"time"

	"github.com/choreboard/choreboard/internal/domain"
)

// Common request/response structures

// MusicSettingsPayload mirrors domain.MusicSettings on the wire.
type MusicSettingsPayload struct {
	AutoStart  bool   `json:"auto_start"`
	PlaylistID string `json:"playlist_id,omitempty"`
}

// CreateTaskRequest defines the payload for the task creation endpoint.
type CreateTaskRequest struct {
	Title         string                `json:"title"          validate:"required,max=200"`
	Description   string                `json:"description"    validate:"max=2000"`
	Priority      string                `json:"priority"       validate:"omitempty,oneof=low medium high urgent"`
	AssignedTo    string                `json:"assigned_to"    validate:"omitempty,max=100"`
	GroupID       string                `json:"group_id"       validate:"required,max=100"`
	Points        int                   `json:"points"         validate:"min=0,max=1000"`
	DueDate       *time.Time            `json:"due_date"`
	SLAMinutes    int                   `json:"sla_minutes"    validate:"min=0"`
	MusicSettings *MusicSettingsPayload `json:"music_settings"`
}

// UpdateTaskRequest defines the payload for the task update endpoint.
// Omitted fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string    `json:"title"       validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Status      *string    `json:"status"      validate:"omitempty,oneof=pending in_progress completed overdue cancelled"`
	Priority    *string    `json:"priority"    validate:"omitempty,oneof=low medium high urgent"`
	AssignedTo  *string    `json:"assigned_to" validate:"omitempty,max=100"`
	Points      *int       `json:"points"      validate:"omitempty,min=0,max=1000"`
	DueDate     *time.Time `json:"due_date"`
}

// CompleteTaskRequest defines the payload for the task completion endpoint.
type CompleteTaskRequest struct {
	Note string `json:"note" validate:"max=2000"`
}

// CancelTaskRequest defines the payload for the task cancellation endpoint.
type CancelTaskRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

// CommentRequest defines the payload for the comment endpoint.
type CommentRequest struct {
	Body string `json:"body" validate:"required,max=2000"`
}

// TaskResponse is the task representation returned by the API.
type TaskResponse struct {
	Task *domain.Task `json:"task"`
}

// TaskListResponse wraps a list of tasks.
type TaskListResponse struct {
	Tasks []*domain.Task `json:"tasks"`
}

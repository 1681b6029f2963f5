package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

// Possible task status values.
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusOverdue    TaskStatus = "overdue"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// TaskPriority represents the urgency of a task.
type TaskPriority string

// Possible task priority values.
const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// validTransitions lists the allowed status edges. Completed and cancelled
// are terminal: any further transition is rejected.
var validTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending:    {TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled, TaskStatusOverdue},
	TaskStatusInProgress: {TaskStatusCompleted, TaskStatusCancelled, TaskStatusOverdue},
	TaskStatusOverdue:    {TaskStatusCompleted, TaskStatusCancelled},
	TaskStatusCompleted:  {},
	TaskStatusCancelled:  {},
}

// CanTransition reports whether the status edge from -> to is allowed.
// Staying in the current status is not a transition and always allowed.
func CanTransition(from, to TaskStatus) bool {
	if from == to {
		return true
	}
	for _, allowed := range validTransitions[from] {
		if to == allowed {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

// IsValid reports whether the status is one of the known values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted,
		TaskStatusOverdue, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// IsValid reports whether the priority is one of the known values.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	default:
		return false
	}
}

// FieldChange records one field's old and new value in an activity entry.
type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// ActivityEntry is one append-only record of a change applied to a task.
// The activity log is never truncated or reordered.
type ActivityEntry struct {
	Action    string                 `json:"action"`
	ActorID   string                 `json:"actor_id"`
	Timestamp time.Time              `json:"timestamp"`
	Changes   map[string]FieldChange `json:"changes,omitempty"`
}

// Comment is one user comment on a task. Comments are append-only.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// MusicSettings controls the task's focus-music integration.
type MusicSettings struct {
	// AutoStart requests a music start effect when the task is created.
	AutoStart bool `json:"auto_start"`

	// PlaylistID is the provider playlist mapped to this task, if any.
	PlaylistID string `json:"playlist_id,omitempty"`
}

// Task represents a mutable work item owned by a household group.
// Authoritative task state lives in the persistence layer; the in-memory
// value is a snapshot loaded per operation.
type Task struct {
	ID            uuid.UUID       `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Status        TaskStatus      `json:"status"`
	Priority      TaskPriority    `json:"priority"`
	AssignedTo    string          `json:"assigned_to"`
	CreatedBy     string          `json:"created_by"`
	GroupID       string          `json:"group_id"`
	Points        int             `json:"points"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	SLADeadline   *time.Time      `json:"sla_deadline,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	MusicSettings MusicSettings   `json:"music_settings"`
	ActivityLog   []ActivityEntry `json:"activity_log"`
	Comments      []Comment       `json:"comments"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTaskIDEmpty
	}

	if t.Title == "" {
		return ErrTaskTitleEmpty
	}

	if t.GroupID == "" {
		return ErrTaskGroupIDEmpty
	}

	if t.CreatedBy == "" {
		return ErrTaskCreatorEmpty
	}

	if t.AssignedTo == "" {
		return ErrTaskAssigneeEmpty
	}

	if !t.Status.IsValid() {
		return ErrInvalidStatus
	}

	if !t.Priority.IsValid() {
		return ErrInvalidPriority
	}

	// completedAt is set if and only if the task is completed.
	if (t.CompletedAt != nil) != (t.Status == TaskStatusCompleted) {
		return ErrInvalidStatus
	}

	return nil
}

// Clone returns a deep copy of the task. Effects carry task snapshots, so
// a payload must not alias the slices of the task being mutated.
func (t *Task) Clone() *Task {
	cp := *t

	if t.DueDate != nil {
		d := *t.DueDate
		cp.DueDate = &d
	}
	if t.SLADeadline != nil {
		d := *t.SLADeadline
		cp.SLADeadline = &d
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		cp.CompletedAt = &d
	}

	cp.ActivityLog = make([]ActivityEntry, len(t.ActivityLog))
	copy(cp.ActivityLog, t.ActivityLog)

	cp.Comments = make([]Comment, len(t.Comments))
	copy(cp.Comments, t.Comments)

	return &cp
}

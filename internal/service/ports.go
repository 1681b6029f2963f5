package service

import (
	"context"
	"time"

	"github.com/choreboard/choreboard/internal/domain"
	"github.com/google/uuid"
)

// TaskStore is the persistence port. It is the single source of truth for
// task state; the engine never caches tasks between calls.
type TaskStore interface {
	// GetTask retrieves a task by its unique ID.
	GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// SaveTask persists a task, inserting or replacing by ID.
	SaveTask(ctx context.Context, task *domain.Task) error

	// DeleteTask removes a task by its unique ID.
	DeleteTask(ctx context.Context, id uuid.UUID) error

	// ListDueBefore returns every task whose due date is before the given
	// time and whose status is neither terminal nor already overdue.
	ListDueBefore(ctx context.Context, t time.Time) ([]*domain.Task, error)

	// ListByGroup returns the tasks belonging to a group.
	ListByGroup(ctx context.Context, groupID string) ([]*domain.Task, error)
}

// PermissionService is the authorization port. Role-to-capability
// assignments and group membership live in the external identity service.
type PermissionService interface {
	// CanPerform reports whether the actor holds the capability in the group.
	CanPerform(ctx context.Context, actorID, groupID string, capability domain.Capability) bool

	// IsMember reports whether the user is a persisted member of the group.
	IsMember(ctx context.Context, userID, groupID string) bool
}

// NotificationTemplate names a push-notification template. Rendering and
// transport are opaque to this subsystem.
type NotificationTemplate string

// Templates emitted by the lifecycle engine.
const (
	TemplateTaskAssigned  NotificationTemplate = "taskAssigned"
	TemplateTaskOverdue   NotificationTemplate = "taskOverdue"
	TemplateTaskCommented NotificationTemplate = "taskCommented"
)

// Notifier is the notification-delivery port.
type Notifier interface {
	Notify(ctx context.Context, userID string, template NotificationTemplate, payload any) error
}

// MusicAction selects the direction of a music toggle.
type MusicAction string

// Music toggle actions.
const (
	MusicStart MusicAction = "start"
	MusicStop  MusicAction = "stop"
)

// MusicController is the music-provider port.
type MusicController interface {
	Toggle(ctx context.Context, taskID uuid.UUID, action MusicAction, settings domain.MusicSettings) error
}

// Broadcaster is the gateway's fan-out API as seen by the dispatcher.
// It is the only way application logic reaches sockets.
type Broadcaster interface {
	BroadcastToRoom(groupID string, event string, payload any) error
	SendToUser(userID string, event string, payload any) error
}

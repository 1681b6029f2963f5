package service

import (
	"github.com/choreboard/choreboard/internal/domain"
	"github.com/google/uuid"
)

// EffectKind discriminates the effect variants.
type EffectKind string

// Effect kinds produced by the lifecycle engine.
const (
	EffectBroadcastToRoom EffectKind = "broadcast_to_room"
	EffectNotifyUser      EffectKind = "notify_user"
	EffectToggleMusic     EffectKind = "toggle_music"
)

// Effect describes one post-mutation side effect to execute. Effects are
// produced by the lifecycle engine after a successful persistence write and
// consumed exactly once by the dispatcher. The payload is a snapshot: it
// does not alias live task state.
type Effect struct {
	Kind EffectKind

	// BroadcastToRoom fields
	GroupID string
	Event   string
	Payload any

	// NotifyUser fields
	UserID   string
	Template NotificationTemplate

	// ToggleMusic fields
	TaskID   uuid.UUID
	Action   MusicAction
	Settings domain.MusicSettings
}

// BroadcastEffect builds a broadcast-to-room effect.
func BroadcastEffect(groupID, event string, payload any) Effect {
	return Effect{
		Kind:    EffectBroadcastToRoom,
		GroupID: groupID,
		Event:   event,
		Payload: payload,
	}
}

// NotifyEffect builds a notify-user effect.
func NotifyEffect(userID string, template NotificationTemplate, payload any) Effect {
	return Effect{
		Kind:     EffectNotifyUser,
		UserID:   userID,
		Template: template,
		Payload:  payload,
	}
}

// MusicEffect builds a music-toggle effect.
func MusicEffect(taskID uuid.UUID, action MusicAction, settings domain.MusicSettings) Effect {
	return Effect{
		Kind:     EffectToggleMusic,
		TaskID:   taskID,
		Action:   action,
		Settings: settings,
	}
}

// EffectResult reports the outcome of one dispatched effect. Failures are
// recorded, not propagated: one effect failing never blocks the rest.
type EffectResult struct {
	Effect Effect
	Err    error
}

// Succeeded reports whether the effect was delivered.
func (r EffectResult) Succeeded() bool {
	return r.Err == nil
}

// Socket event payloads carried by broadcast effects.

// TaskCreatedPayload is the task_created event body.
type TaskCreatedPayload struct {
	Task      *domain.Task `json:"task"`
	CreatedBy string       `json:"createdBy"`
	Message   string       `json:"message"`
}

// TaskUpdatedPayload is the task_updated event body.
type TaskUpdatedPayload struct {
	Task      *domain.Task                  `json:"task"`
	UpdatedBy string                        `json:"updatedBy"`
	Changes   map[string]domain.FieldChange `json:"changes,omitempty"`
}

// TaskCompletedPayload is the task_completed event body.
type TaskCompletedPayload struct {
	Task        *domain.Task `json:"task"`
	CompletedBy string       `json:"completedBy"`
	Points      int          `json:"points"`
}

// TaskNotificationPayload is the body handed to the notification port.
type TaskNotificationPayload struct {
	TaskID  uuid.UUID `json:"taskId"`
	Title   string    `json:"title"`
	GroupID string    `json:"groupId"`
	ActorID string    `json:"actorId"`
}

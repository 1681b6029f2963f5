package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/choreboard/choreboard/internal/domain"
	"github.com/choreboard/choreboard/internal/store"
)

// Socket events carried by broadcast effects. The gateway delivers them
// verbatim; the engine only names them.
const (
	eventTaskCreated   = "task_created"
	eventTaskUpdated   = "task_updated"
	eventTaskCompleted = "task_completed"
)

// CreateTaskInput carries the fields for a new task.
type CreateTaskInput struct {
	Title         string
	Description   string
	Priority      domain.TaskPriority
	AssignedTo    string
	GroupID       string
	Points        int
	DueDate       *time.Time
	SLAMinutes    int
	MusicSettings domain.MusicSettings
}

// UpdateTaskPatch carries a partial update. Nil fields are left unchanged.
type UpdateTaskPatch struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
	Priority    *domain.TaskPriority
	AssignedTo  *string
	Points      *int
	DueDate     *time.Time
}

// TaskService is the task lifecycle engine. Every mutating operation
// validates authorization and the status transition table, persists the
// result, and returns the side effects to dispatch. Effects are returned,
// never executed here: when an operation fails, no effects exist.
type TaskService interface {
	// CreateTask creates a task on behalf of the actor.
	CreateTask(ctx context.Context, actorID string, input CreateTaskInput) (*domain.Task, []Effect, error)

	// GetTask returns a task to a group member.
	GetTask(ctx context.Context, actorID string, taskID uuid.UUID) (*domain.Task, error)

	// UpdateTask applies a partial update to a task.
	UpdateTask(ctx context.Context, actorID string, taskID uuid.UUID, patch UpdateTaskPatch) (*domain.Task, []Effect, error)

	// CompleteTask marks a task completed, optionally recording a note.
	CompleteTask(ctx context.Context, actorID string, taskID uuid.UUID, note string) (*domain.Task, []Effect, error)

	// CancelTask moves a task to the cancelled terminal status.
	CancelTask(ctx context.Context, actorID string, taskID uuid.UUID, reason string) (*domain.Task, []Effect, error)

	// CommentOnTask appends a comment to a task.
	CommentOnTask(ctx context.Context, actorID string, taskID uuid.UUID, body string) (*domain.Task, []Effect, error)

	// DeleteTask removes a task permanently.
	DeleteTask(ctx context.Context, actorID string, taskID uuid.UUID) error

	// ListGroupTasks returns the tasks of a group to a group member.
	ListGroupTasks(ctx context.Context, actorID, groupID string) ([]*domain.Task, error)

	// SweepOverdue transitions every eligible task whose due date has
	// passed to overdue and returns the accumulated effects.
	SweepOverdue(ctx context.Context, now time.Time) ([]Effect, error)
}

// taskServiceImpl implements TaskService.
type taskServiceImpl struct {
	taskStore TaskStore
	perms     PermissionService
	logger    *slog.Logger

	// timeFunc returns the current time. Injectable for deadline tests.
	timeFunc func() time.Time
}

// Ensure taskServiceImpl implements TaskService.
var _ TaskService = (*taskServiceImpl)(nil)

// NewTaskService creates a new TaskService with the given dependencies.
// Returns an error if any dependency is nil.
func NewTaskService(taskStore TaskStore, perms PermissionService, logger *slog.Logger) (TaskService, error) {
	if taskStore == nil {
		return nil, fmt.Errorf("taskStore cannot be nil")
	}
	if perms == nil {
		return nil, fmt.Errorf("permission service cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &taskServiceImpl{
		taskStore: taskStore,
		perms:     perms,
		logger:    logger.With(slog.String("component", "task_service")),
		timeFunc:  time.Now,
	}, nil
}

// CreateTask implements TaskService.CreateTask.
func (s *taskServiceImpl) CreateTask(ctx context.Context, actorID string, input CreateTaskInput) (*domain.Task, []Effect, error) {
	log := s.logger.With(slog.String("actor_id", actorID), slog.String("group_id", input.GroupID))

	if !s.perms.CanPerform(ctx, actorID, input.GroupID, domain.CapCreateTasks) {
		log.Warn("task creation denied")
		return nil, nil, NewTaskServiceError("create", "actor lacks create capability", ErrForbidden)
	}

	now := s.timeFunc().UTC()

	task := &domain.Task{
		ID:            uuid.New(),
		Title:         input.Title,
		Description:   input.Description,
		Status:        domain.TaskStatusPending,
		Priority:      input.Priority,
		AssignedTo:    input.AssignedTo,
		CreatedBy:     actorID,
		GroupID:       input.GroupID,
		Points:        input.Points,
		DueDate:       input.DueDate,
		MusicSettings: input.MusicSettings,
		ActivityLog:   []domain.ActivityEntry{},
		Comments:      []domain.Comment{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if task.Priority == "" {
		task.Priority = domain.TaskPriorityMedium
	}
	if task.AssignedTo == "" {
		// Unassigned tasks default to the creator.
		task.AssignedTo = actorID
	}

	// The SLA deadline is fixed at creation time and never recomputed.
	if input.SLAMinutes > 0 {
		deadline := now.Add(time.Duration(input.SLAMinutes) * time.Minute)
		task.SLADeadline = &deadline
	}

	task.ActivityLog = append(task.ActivityLog, domain.ActivityEntry{
		Action:    "created",
		ActorID:   actorID,
		Timestamp: now,
	})

	if err := task.Validate(); err != nil {
		return nil, nil, NewTaskServiceError("create", "invalid task", err)
	}

	if err := s.taskStore.SaveTask(ctx, task); err != nil {
		log.Error("failed to save new task", slog.String("error", err.Error()))
		return nil, nil, NewTaskServiceError("create", "failed to save task", err)
	}

	snapshot := task.Clone()
	effects := []Effect{}

	if task.AssignedTo != actorID {
		effects = append(effects, NotifyEffect(task.AssignedTo, TemplateTaskAssigned, TaskNotificationPayload{
			TaskID:  task.ID,
			Title:   task.Title,
			GroupID: task.GroupID,
			ActorID: actorID,
		}))
	}

	effects = append(effects, BroadcastEffect(task.GroupID, eventTaskCreated, TaskCreatedPayload{
		Task:      snapshot,
		CreatedBy: actorID,
		Message:   fmt.Sprintf("New task: %s", task.Title),
	}))

	if task.MusicSettings.AutoStart {
		effects = append(effects, MusicEffect(task.ID, MusicStart, task.MusicSettings))
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("assigned_to", task.AssignedTo))

	return task, effects, nil
}

// GetTask implements TaskService.GetTask.
func (s *taskServiceImpl) GetTask(ctx context.Context, actorID string, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.loadTask(ctx, "get", taskID)
	if err != nil {
		return nil, err
	}

	if !s.perms.IsMember(ctx, actorID, task.GroupID) {
		return nil, NewTaskServiceError("get", "actor is not a group member", ErrForbidden)
	}

	return task, nil
}

// ListGroupTasks implements TaskService.ListGroupTasks.
func (s *taskServiceImpl) ListGroupTasks(ctx context.Context, actorID, groupID string) ([]*domain.Task, error) {
	if !s.perms.IsMember(ctx, actorID, groupID) {
		return nil, NewTaskServiceError("list", "actor is not a group member", ErrForbidden)
	}

	tasks, err := s.taskStore.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, NewTaskServiceError("list", "failed to list group tasks", err)
	}

	return tasks, nil
}

// UpdateTask implements TaskService.UpdateTask.
func (s *taskServiceImpl) UpdateTask(ctx context.Context, actorID string, taskID uuid.UUID, patch UpdateTaskPatch) (*domain.Task, []Effect, error) {
	log := s.logger.With(slog.String("actor_id", actorID), slog.String("task_id", taskID.String()))

	task, err := s.loadTask(ctx, "update", taskID)
	if err != nil {
		return nil, nil, err
	}

	if !s.canModify(ctx, actorID, task) {
		log.Warn("task update denied")
		return nil, nil, NewTaskServiceError("update", "actor may not modify this task", ErrForbidden)
	}

	now := s.timeFunc().UTC()
	changes := map[string]domain.FieldChange{}
	previousAssignee := task.AssignedTo

	if patch.Status != nil && *patch.Status != task.Status {
		// Completion carries extra bookkeeping and must go through
		// CompleteTask so completedAt and points stay consistent.
		if *patch.Status == domain.TaskStatusCompleted {
			return nil, nil, NewTaskServiceError("update", "status cannot be patched to completed", ErrUseCompleteOperation)
		}
		if !domain.CanTransition(task.Status, *patch.Status) {
			return nil, nil, NewTaskServiceError("update",
				fmt.Sprintf("cannot move task from %s to %s", task.Status, *patch.Status),
				ErrInvalidTransition)
		}
		changes["status"] = domain.FieldChange{From: string(task.Status), To: string(*patch.Status)}
		task.Status = *patch.Status
	}

	if patch.Title != nil && *patch.Title != task.Title {
		changes["title"] = domain.FieldChange{From: task.Title, To: *patch.Title}
		task.Title = *patch.Title
	}
	if patch.Description != nil && *patch.Description != task.Description {
		changes["description"] = domain.FieldChange{From: task.Description, To: *patch.Description}
		task.Description = *patch.Description
	}
	if patch.Priority != nil && *patch.Priority != task.Priority {
		changes["priority"] = domain.FieldChange{From: string(task.Priority), To: string(*patch.Priority)}
		task.Priority = *patch.Priority
	}
	if patch.AssignedTo != nil && *patch.AssignedTo != task.AssignedTo {
		changes["assigned_to"] = domain.FieldChange{From: task.AssignedTo, To: *patch.AssignedTo}
		task.AssignedTo = *patch.AssignedTo
	}
	if patch.Points != nil && *patch.Points != task.Points {
		changes["points"] = domain.FieldChange{From: task.Points, To: *patch.Points}
		task.Points = *patch.Points
	}
	if patch.DueDate != nil && (task.DueDate == nil || !patch.DueDate.Equal(*task.DueDate)) {
		changes["due_date"] = domain.FieldChange{From: task.DueDate, To: patch.DueDate}
		due := *patch.DueDate
		task.DueDate = &due
	}

	if len(changes) == 0 {
		// Nothing changed; skip the write and the broadcast.
		return task, nil, nil
	}

	task.UpdatedAt = now
	task.ActivityLog = append(task.ActivityLog, domain.ActivityEntry{
		Action:    "updated",
		ActorID:   actorID,
		Timestamp: now,
		Changes:   changes,
	})

	if err := task.Validate(); err != nil {
		return nil, nil, NewTaskServiceError("update", "invalid task after patch", err)
	}

	if err := s.taskStore.SaveTask(ctx, task); err != nil {
		log.Error("failed to save updated task", slog.String("error", err.Error()))
		return nil, nil, NewTaskServiceError("update", "failed to save task", err)
	}

	snapshot := task.Clone()
	effects := []Effect{}

	// A reassignment notifies the new assignee unless they did it themselves.
	if task.AssignedTo != previousAssignee && task.AssignedTo != actorID {
		effects = append(effects, NotifyEffect(task.AssignedTo, TemplateTaskAssigned, TaskNotificationPayload{
			TaskID:  task.ID,
			Title:   task.Title,
			GroupID: task.GroupID,
			ActorID: actorID,
		}))
	}

	effects = append(effects, BroadcastEffect(task.GroupID, eventTaskUpdated, TaskUpdatedPayload{
		Task:      snapshot,
		UpdatedBy: actorID,
		Changes:   changes,
	}))

	log.Info("task updated", slog.Int("changed_fields", len(changes)))

	return task, effects, nil
}

// CompleteTask implements TaskService.CompleteTask.
func (s *taskServiceImpl) CompleteTask(ctx context.Context, actorID string, taskID uuid.UUID, note string) (*domain.Task, []Effect, error) {
	log := s.logger.With(slog.String("actor_id", actorID), slog.String("task_id", taskID.String()))

	task, err := s.loadTask(ctx, "complete", taskID)
	if err != nil {
		return nil, nil, err
	}

	if !s.canModify(ctx, actorID, task) {
		log.Warn("task completion denied")
		return nil, nil, NewTaskServiceError("complete", "actor may not modify this task", ErrForbidden)
	}

	// Completing twice is rejected so points are never double counted and
	// the completion event is broadcast exactly once.
	if task.Status == domain.TaskStatusCompleted {
		return nil, nil, NewTaskServiceError("complete", "task was already completed", ErrAlreadyCompleted)
	}
	if task.Status == domain.TaskStatusCancelled {
		return nil, nil, NewTaskServiceError("complete", "cancelled tasks cannot be completed", ErrAlreadyTerminal)
	}
	if !domain.CanTransition(task.Status, domain.TaskStatusCompleted) {
		return nil, nil, NewTaskServiceError("complete",
			fmt.Sprintf("cannot complete task in status %s", task.Status), ErrInvalidTransition)
	}

	now := s.timeFunc().UTC()
	previous := task.Status

	task.Status = domain.TaskStatusCompleted
	task.CompletedAt = &now
	task.UpdatedAt = now
	task.ActivityLog = append(task.ActivityLog, domain.ActivityEntry{
		Action:    "completed",
		ActorID:   actorID,
		Timestamp: now,
		Changes: map[string]domain.FieldChange{
			"status": {From: string(previous), To: string(domain.TaskStatusCompleted)},
		},
	})

	if note != "" {
		task.Comments = append(task.Comments, domain.Comment{
			ID:        uuid.New(),
			AuthorID:  actorID,
			Body:      note,
			CreatedAt: now,
		})
	}

	if err := s.taskStore.SaveTask(ctx, task); err != nil {
		log.Error("failed to save completed task", slog.String("error", err.Error()))
		return nil, nil, NewTaskServiceError("complete", "failed to save task", err)
	}

	snapshot := task.Clone()
	effects := []Effect{
		BroadcastEffect(task.GroupID, eventTaskCompleted, TaskCompletedPayload{
			Task:        snapshot,
			CompletedBy: actorID,
			Points:      task.Points,
		}),
		MusicEffect(task.ID, MusicStop, task.MusicSettings),
	}

	log.Info("task completed", slog.Int("points", task.Points))

	return task, effects, nil
}

// CancelTask implements TaskService.CancelTask.
func (s *taskServiceImpl) CancelTask(ctx context.Context, actorID string, taskID uuid.UUID, reason string) (*domain.Task, []Effect, error) {
	log := s.logger.With(slog.String("actor_id", actorID), slog.String("task_id", taskID.String()))

	task, err := s.loadTask(ctx, "cancel", taskID)
	if err != nil {
		return nil, nil, err
	}

	if !s.canModify(ctx, actorID, task) {
		log.Warn("task cancellation denied")
		return nil, nil, NewTaskServiceError("cancel", "actor may not modify this task", ErrForbidden)
	}

	if task.Status.IsTerminal() {
		return nil, nil, NewTaskServiceError("cancel", "task is already in a terminal status", ErrAlreadyTerminal)
	}

	now := s.timeFunc().UTC()
	previous := task.Status

	changes := map[string]domain.FieldChange{
		"status": {From: string(previous), To: string(domain.TaskStatusCancelled)},
	}

	task.Status = domain.TaskStatusCancelled
	task.UpdatedAt = now

	entry := domain.ActivityEntry{
		Action:    "cancelled",
		ActorID:   actorID,
		Timestamp: now,
		Changes:   changes,
	}
	task.ActivityLog = append(task.ActivityLog, entry)

	if reason != "" {
		task.Comments = append(task.Comments, domain.Comment{
			ID:        uuid.New(),
			AuthorID:  actorID,
			Body:      reason,
			CreatedAt: now,
		})
	}

	if err := s.taskStore.SaveTask(ctx, task); err != nil {
		log.Error("failed to save cancelled task", slog.String("error", err.Error()))
		return nil, nil, NewTaskServiceError("cancel", "failed to save task", err)
	}

	effects := []Effect{
		BroadcastEffect(task.GroupID, eventTaskUpdated, TaskUpdatedPayload{
			Task:      task.Clone(),
			UpdatedBy: actorID,
			Changes:   changes,
		}),
	}

	log.Info("task cancelled")

	return task, effects, nil
}

// CommentOnTask implements TaskService.CommentOnTask.
func (s *taskServiceImpl) CommentOnTask(ctx context.Context, actorID string, taskID uuid.UUID, body string) (*domain.Task, []Effect, error) {
	log := s.logger.With(slog.String("actor_id", actorID), slog.String("task_id", taskID.String()))

	if body == "" {
		return nil, nil, NewTaskServiceError("comment", "comment body cannot be empty", domain.ErrCommentBodyEmpty)
	}

	task, err := s.loadTask(ctx, "comment", taskID)
	if err != nil {
		return nil, nil, err
	}

	// Any group member may comment, not just the creator or assignee.
	if !s.perms.IsMember(ctx, actorID, task.GroupID) {
		return nil, nil, NewTaskServiceError("comment", "actor is not a group member", ErrForbidden)
	}

	now := s.timeFunc().UTC()

	task.Comments = append(task.Comments, domain.Comment{
		ID:        uuid.New(),
		AuthorID:  actorID,
		Body:      body,
		CreatedAt: now,
	})
	task.UpdatedAt = now
	task.ActivityLog = append(task.ActivityLog, domain.ActivityEntry{
		Action:    "commented",
		ActorID:   actorID,
		Timestamp: now,
	})

	if err := s.taskStore.SaveTask(ctx, task); err != nil {
		log.Error("failed to save comment", slog.String("error", err.Error()))
		return nil, nil, NewTaskServiceError("comment", "failed to save task", err)
	}

	effects := []Effect{}

	if task.AssignedTo != actorID {
		effects = append(effects, NotifyEffect(task.AssignedTo, TemplateTaskCommented, TaskNotificationPayload{
			TaskID:  task.ID,
			Title:   task.Title,
			GroupID: task.GroupID,
			ActorID: actorID,
		}))
	}

	effects = append(effects, BroadcastEffect(task.GroupID, eventTaskUpdated, TaskUpdatedPayload{
		Task:      task.Clone(),
		UpdatedBy: actorID,
	}))

	return task, effects, nil
}

// DeleteTask implements TaskService.DeleteTask.
func (s *taskServiceImpl) DeleteTask(ctx context.Context, actorID string, taskID uuid.UUID) error {
	log := s.logger.With(slog.String("actor_id", actorID), slog.String("task_id", taskID.String()))

	task, err := s.loadTask(ctx, "delete", taskID)
	if err != nil {
		return err
	}

	allowed := task.CreatedBy == actorID ||
		s.perms.CanPerform(ctx, actorID, task.GroupID, domain.CapDeleteTasks) ||
		s.perms.CanPerform(ctx, actorID, task.GroupID, domain.CapManageGroup)
	if !allowed {
		log.Warn("task deletion denied")
		return NewTaskServiceError("delete", "actor may not delete this task", ErrForbidden)
	}

	if err := s.taskStore.DeleteTask(ctx, taskID); err != nil {
		if store.IsNotFoundError(err) {
			return NewTaskServiceError("delete", "task not found", ErrTaskNotFound)
		}
		log.Error("failed to delete task", slog.String("error", err.Error()))
		return NewTaskServiceError("delete", "failed to delete task", err)
	}

	log.Info("task deleted")

	return nil
}

// SweepOverdue implements TaskService.SweepOverdue. Per-task failures are
// logged and skipped so one bad row never stalls the sweep.
func (s *taskServiceImpl) SweepOverdue(ctx context.Context, now time.Time) ([]Effect, error) {
	due, err := s.taskStore.ListDueBefore(ctx, now)
	if err != nil {
		return nil, NewTaskServiceError("sweep", "failed to list due tasks", err)
	}

	var effects []Effect

	for _, task := range due {
		if !domain.CanTransition(task.Status, domain.TaskStatusOverdue) ||
			task.Status == domain.TaskStatusOverdue {
			continue
		}

		previous := task.Status
		changes := map[string]domain.FieldChange{
			"status": {From: string(previous), To: string(domain.TaskStatusOverdue)},
		}

		task.Status = domain.TaskStatusOverdue
		task.UpdatedAt = now
		task.ActivityLog = append(task.ActivityLog, domain.ActivityEntry{
			Action:    "marked_overdue",
			ActorID:   "system",
			Timestamp: now,
			Changes:   changes,
		})

		if err := s.taskStore.SaveTask(ctx, task); err != nil {
			s.logger.Error("failed to mark task overdue",
				slog.String("task_id", task.ID.String()),
				slog.String("error", err.Error()))
			continue
		}

		effects = append(effects,
			NotifyEffect(task.AssignedTo, TemplateTaskOverdue, TaskNotificationPayload{
				TaskID:  task.ID,
				Title:   task.Title,
				GroupID: task.GroupID,
				ActorID: "system",
			}),
			BroadcastEffect(task.GroupID, eventTaskUpdated, TaskUpdatedPayload{
				Task:      task.Clone(),
				UpdatedBy: "system",
				Changes:   changes,
			}),
		)

		s.logger.Info("task marked overdue",
			slog.String("task_id", task.ID.String()),
			slog.String("group_id", task.GroupID))
	}

	return effects, nil
}

// loadTask fetches a task and maps store not-found errors to the service
// sentinel.
func (s *taskServiceImpl) loadTask(ctx context.Context, operation string, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.taskStore.GetTask(ctx, taskID)
	if err != nil {
		if store.IsNotFoundError(err) || errors.Is(err, ErrTaskNotFound) {
			return nil, NewTaskServiceError(operation, "task not found", ErrTaskNotFound)
		}
		return nil, NewTaskServiceError(operation, "failed to load task", err)
	}
	return task, nil
}

// canModify reports whether the actor may mutate the task: the creator and
// the assignee always may, anyone else needs the assign or manage
// capability in the task's group.
func (s *taskServiceImpl) canModify(ctx context.Context, actorID string, task *domain.Task) bool {
	if task.CreatedBy == actorID || task.AssignedTo == actorID {
		return true
	}
	return s.perms.CanPerform(ctx, actorID, task.GroupID, domain.CapAssignTasks) ||
		s.perms.CanPerform(ctx, actorID, task.GroupID, domain.CapManageGroup)
}

// Package api provides HTTP handlers for the task API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/choreboard/choreboard/internal/api/shared"
	"github.com/choreboard/choreboard/internal/domain"
	"github.com/choreboard/choreboard/internal/platform/logger"
	"github.com/choreboard/choreboard/internal/service"
)

// TaskHandler handles task-related HTTP requests. Mutations run through the
// lifecycle engine and their effects are dispatched before the response is
// written; effect failures are logged by the dispatcher and never fail the
// request.
type TaskHandler struct {
	taskService service.TaskService
	dispatcher  *service.EffectDispatcher
	validator   *validator.Validate
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(
	taskService service.TaskService,
	dispatcher *service.EffectDispatcher,
	logger *slog.Logger,
) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		taskService: taskService,
		dispatcher:  dispatcher,
		validator:   validator.New(),
		logger:      logger.With(slog.String("component", "task_handler")),
	}
}

// Routes mounts the task endpoints on a chi router.
func (h *TaskHandler) Routes(r chi.Router) {
	r.Post("/tasks", h.CreateTask)
	r.Get("/groups/{groupID}/tasks", h.ListGroupTasks)
	r.Route("/tasks/{taskID}", func(r chi.Router) {
		r.Get("/", h.GetTask)
		r.Patch("/", h.UpdateTask)
		r.Delete("/", h.DeleteTask)
		r.Post("/complete", h.CompleteTask)
		r.Post("/cancel", h.CancelTask)
		r.Post("/comments", h.CommentOnTask)
	})
}

// CreateTask handles POST /tasks requests.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actorID, ok := h.actorID(w, r, log)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if !h.decodeAndValidate(w, r, log, &req) {
		return
	}

	input := service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.TaskPriority(req.Priority),
		AssignedTo:  req.AssignedTo,
		GroupID:     req.GroupID,
		Points:      req.Points,
		DueDate:     req.DueDate,
		SLAMinutes:  req.SLAMinutes,
	}
	if req.MusicSettings != nil {
		input.MusicSettings = domain.MusicSettings{
			AutoStart:  req.MusicSettings.AutoStart,
			PlaylistID: req.MusicSettings.PlaylistID,
		}
	}

	task, effects, err := h.taskService.CreateTask(r.Context(), actorID, input)
	if err != nil {
		h.respondServiceError(w, r, log, "create task", err)
		return
	}

	h.dispatcher.Dispatch(r.Context(), effects)
	shared.RespondWithJSON(w, r, http.StatusCreated, TaskResponse{Task: task})
}

// GetTask handles GET /tasks/{taskID} requests.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actorID, ok := h.actorID(w, r, log)
	if !ok {
		return
	}
	taskID, ok := h.pathTaskID(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(r.Context(), actorID, taskID)
	if err != nil {
		h.respondServiceError(w, r, log, "get task", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskResponse{Task: task})
}

// ListGroupTasks handles GET /groups/{groupID}/tasks requests.
func (h *TaskHandler) ListGroupTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actorID, ok := h.actorID(w, r, log)
	if !ok {
		return
	}

	groupID := chi.URLParam(r, "groupID")
	if groupID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Group ID is required")
		return
	}

	tasks, err := h.taskService.ListGroupTasks(r.Context(), actorID, groupID)
	if err != nil {
		h.respondServiceError(w, r, log, "list group tasks", err)
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskListResponse{Tasks: tasks})
}

// UpdateTask handles PATCH /tasks/{taskID} requests.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actorID, ok := h.actorID(w, r, log)
	if !ok {
		return
	}
	taskID, ok := h.pathTaskID(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !h.decodeAndValidate(w, r, log, &req) {
		return
	}

	patch := service.UpdateTaskPatch{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		Points:      req.Points,
		DueDate:     req.DueDate,
	}
	if req.Status != nil {
		status := domain.TaskStatus(*req.Status)
		patch.Status = &status
	}
	if req.Priority != nil {
		priority := domain.TaskPriority(*req.Priority)
		patch.Priority = &priority
	}

	task, effects, err := h.taskService.UpdateTask(r.Context(), actorID, taskID, patch)
	if err != nil {
		h.respondServiceError(w, r, log, "update task", err)
		return
	}

	h.dispatcher.Dispatch(r.Context(), effects)
	shared.RespondWithJSON(w, r, http.StatusOK, TaskResponse{Task: task})
}

// CompleteTask handles POST /tasks/{taskID}/complete requests.
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actorID, ok := h.actorID(w, r, log)
	if !ok {
		return
	}
	taskID, ok := h.pathTaskID(w, r)
	if !ok {
		return
	}

	// The note is optional, so an empty body is fine.
	var req CompleteTaskRequest
	if r.ContentLength > 0 && !h.decodeAndValidate(w, r, log, &req) {
		return
	}

	task, effects, err := h.taskService.CompleteTask(r.Context(), actorID, taskID, req.Note)
	if err != nil {
		h.respondServiceError(w, r, log, "complete task", err)
		return
	}

	h.dispatcher.Dispatch(r.Context(), effects)
	shared.RespondWithJSON(w, r, http.StatusOK, TaskResponse{Task: task})
}

// CancelTask handles POST /tasks/{taskID}/cancel requests.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actorID, ok := h.actorID(w, r, log)
	if !ok {
		return
	}
	taskID, ok := h.pathTaskID(w, r)
	if !ok {
		return
	}

	var req CancelTaskRequest
	if r.ContentLength > 0 && !h.decodeAndValidate(w, r, log, &req) {
		return
	}

	task, effects, err := h.taskService.CancelTask(r.Context(), actorID, taskID, req.Reason)
	if err != nil {
		h.respondServiceError(w, r, log, "cancel task", err)
		return
	}

	h.dispatcher.Dispatch(r.Context(), effects)
	shared.RespondWithJSON(w, r, http.StatusOK, TaskResponse{Task: task})
}

// CommentOnTask handles POST /tasks/{taskID}/comments requests.
func (h *TaskHandler) CommentOnTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actorID, ok := h.actorID(w, r, log)
	if !ok {
		return
	}
	taskID, ok := h.pathTaskID(w, r)
	if !ok {
		return
	}

	var req CommentRequest
	if !h.decodeAndValidate(w, r, log, &req) {
		return
	}

	task, effects, err := h.taskService.CommentOnTask(r.Context(), actorID, taskID, req.Body)
	if err != nil {
		h.respondServiceError(w, r, log, "comment on task", err)
		return
	}

	h.dispatcher.Dispatch(r.Context(), effects)
	shared.RespondWithJSON(w, r, http.StatusCreated, TaskResponse{Task: task})
}

// DeleteTask handles DELETE /tasks/{taskID} requests.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actorID, ok := h.actorID(w, r, log)
	if !ok {
		return
	}
	taskID, ok := h.pathTaskID(w, r)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(r.Context(), actorID, taskID); err != nil {
		h.respondServiceError(w, r, log, "delete task", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// actorID extracts the authenticated user ID from the request context. It
// writes a 401 response and returns false if the request is unauthenticated.
func (h *TaskHandler) actorID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (string, bool) {
	actorID := shared.GetUserID(r.Context())
	if actorID == "" {
		log.Warn("user ID not found in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found")
		return "", false
	}
	return actorID, true
}

// pathTaskID parses the {taskID} path parameter. It writes a 400 response
// and returns false if the parameter is missing or not a UUID.
func (h *TaskHandler) pathTaskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "taskID")
	if raw == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task ID is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task ID has invalid format")
		return uuid.Nil, false
	}
	return id, true
}

// decodeAndValidate decodes the request body into dst and runs struct
// validation. It writes a 400 response and returns false on failure.
func (h *TaskHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, log *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Debug("failed to decode request body", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		log.Debug("request validation failed", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request data")
		return false
	}
	return true
}

func (h *TaskHandler) respondServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, operation string, err error) {
	statusCode := MapErrorToStatusCode(err)
	if statusCode == http.StatusInternalServerError {
		log.Error("unexpected service error",
			slog.String("operation", operation),
			slog.String("error", err.Error()))
	}
	shared.RespondWithError(w, r, statusCode, GetSafeErrorMessage(err))
}

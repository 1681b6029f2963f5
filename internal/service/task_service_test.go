package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choreboard/choreboard/internal/domain"
	"github.com/choreboard/choreboard/internal/store"
)

// fakeTaskStore is an in-memory TaskStore for engine tests.
type fakeTaskStore struct {
	mu      sync.Mutex
	tasks   map[uuid.UUID]*domain.Task
	saveErr error
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (s *fakeTaskStore) GetTask(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return task.Clone(), nil
}

func (s *fakeTaskStore) SaveTask(_ context.Context, task *domain.Task) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task.Clone()
	return nil
}

func (s *fakeTaskStore) DeleteTask(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *fakeTaskStore) ListDueBefore(_ context.Context, t time.Time) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*domain.Task
	for _, task := range s.tasks {
		if task.Status.IsTerminal() || task.Status == domain.TaskStatusOverdue {
			continue
		}
		if task.DueDate != nil && task.DueDate.Before(t) {
			due = append(due, task.Clone())
		}
	}
	return due, nil
}

func (s *fakeTaskStore) ListByGroup(_ context.Context, groupID string) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Task
	for _, task := range s.tasks {
		if task.GroupID == groupID {
			out = append(out, task.Clone())
		}
	}
	return out, nil
}

// fakePerms grants capabilities and memberships from fixed sets.
type fakePerms struct {
	capabilities map[string][]domain.Capability // actorID -> capabilities
	members      map[string]bool                // userID -> is member
}

func (p *fakePerms) CanPerform(_ context.Context, actorID, _ string, capability domain.Capability) bool {
	for _, c := range p.capabilities[actorID] {
		if c == capability {
			return true
		}
	}
	return false
}

func (p *fakePerms) IsMember(_ context.Context, userID, _ string) bool {
	if p.members == nil {
		return true
	}
	return p.members[userID]
}

func allCapsPerms(actorIDs ...string) *fakePerms {
	caps := map[string][]domain.Capability{}
	for _, id := range actorIDs {
		caps[id] = []domain.Capability{
			domain.CapCreateTasks, domain.CapAssignTasks,
			domain.CapDeleteTasks, domain.CapManageGroup,
		}
	}
	return &fakePerms{capabilities: caps}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, st *fakeTaskStore, perms *fakePerms, now time.Time) TaskService {
	t.Helper()
	svc, err := NewTaskService(st, perms, testLogger())
	require.NoError(t, err)
	svc.(*taskServiceImpl).timeFunc = func() time.Time { return now }
	return svc
}

func effectKinds(effects []Effect) []EffectKind {
	kinds := make([]EffectKind, 0, len(effects))
	for _, e := range effects {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func TestCreateTask(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("creates pending task with SLA deadline", func(t *testing.T) {
		st := newFakeTaskStore()
		svc := newTestService(t, st, allCapsPerms("alice"), now)

		task, effects, err := svc.CreateTask(ctx, "alice", CreateTaskInput{
			Title:      "Take out trash",
			GroupID:    "group-1",
			AssignedTo: "bob",
			Points:     10,
			SLAMinutes: 1440,
		})
		require.NoError(t, err)

		assert.Equal(t, domain.TaskStatusPending, task.Status)
		assert.Equal(t, "alice", task.CreatedBy)
		assert.Equal(t, "bob", task.AssignedTo)
		assert.Equal(t, domain.TaskPriorityMedium, task.Priority)

		require.NotNil(t, task.SLADeadline)
		assert.Equal(t, now.Add(24*time.Hour), *task.SLADeadline)

		require.Len(t, task.ActivityLog, 1)
		assert.Equal(t, "created", task.ActivityLog[0].Action)

		// Assignee differs from creator, so a notification precedes the broadcast.
		assert.Equal(t, []EffectKind{EffectNotifyUser, EffectBroadcastToRoom}, effectKinds(effects))
		assert.Equal(t, "bob", effects[0].UserID)
		assert.Equal(t, TemplateTaskAssigned, effects[0].Template)

		saved, err := st.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.Title, saved.Title)
	})

	t.Run("self-assigned task skips the notification", func(t *testing.T) {
		st := newFakeTaskStore()
		svc := newTestService(t, st, allCapsPerms("alice"), now)

		_, effects, err := svc.CreateTask(ctx, "alice", CreateTaskInput{
			Title:   "Water plants",
			GroupID: "group-1",
		})
		require.NoError(t, err)

		assert.Equal(t, []EffectKind{EffectBroadcastToRoom}, effectKinds(effects))
	})

	t.Run("no SLA minutes leaves deadline unset", func(t *testing.T) {
		st := newFakeTaskStore()
		svc := newTestService(t, st, allCapsPerms("alice"), now)

		task, _, err := svc.CreateTask(ctx, "alice", CreateTaskInput{
			Title:   "Dishes",
			GroupID: "group-1",
		})
		require.NoError(t, err)
		assert.Nil(t, task.SLADeadline)
	})

	t.Run("auto-start music adds a start effect", func(t *testing.T) {
		st := newFakeTaskStore()
		svc := newTestService(t, st, allCapsPerms("alice"), now)

		task, effects, err := svc.CreateTask(ctx, "alice", CreateTaskInput{
			Title:         "Deep clean kitchen",
			GroupID:       "group-1",
			MusicSettings: domain.MusicSettings{AutoStart: true, PlaylistID: "focus"},
		})
		require.NoError(t, err)

		require.Equal(t, []EffectKind{EffectBroadcastToRoom, EffectToggleMusic}, effectKinds(effects))
		assert.Equal(t, MusicStart, effects[1].Action)
		assert.Equal(t, task.ID, effects[1].TaskID)
	})

	t.Run("actor without create capability is rejected", func(t *testing.T) {
		st := newFakeTaskStore()
		svc := newTestService(t, st, &fakePerms{}, now)

		_, effects, err := svc.CreateTask(ctx, "mallory", CreateTaskInput{
			Title:   "Anything",
			GroupID: "group-1",
		})
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Empty(t, effects)
		assert.Empty(t, st.tasks)
	})

	t.Run("save failure yields no effects", func(t *testing.T) {
		st := newFakeTaskStore()
		st.saveErr = errors.New("connection reset")
		svc := newTestService(t, st, allCapsPerms("alice"), now)

		_, effects, err := svc.CreateTask(ctx, "alice", CreateTaskInput{
			Title:   "Laundry",
			GroupID: "group-1",
		})
		require.Error(t, err)
		assert.Empty(t, effects)
	})
}

func TestGetTask(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	st := newFakeTaskStore()
	perms := allCapsPerms("alice")
	perms.members = map[string]bool{"alice": true, "bob": true}
	svc := newTestService(t, st, perms, now)

	task, _, err := svc.CreateTask(ctx, "alice", CreateTaskInput{Title: "Vacuum", GroupID: "group-1"})
	require.NoError(t, err)

	t.Run("member can read", func(t *testing.T) {
		got, err := svc.GetTask(ctx, "bob", task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.ID, got.ID)
	})

	t.Run("non-member is rejected", func(t *testing.T) {
		_, err := svc.GetTask(ctx, "mallory", task.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown task id", func(t *testing.T) {
		_, err := svc.GetTask(ctx, "alice", uuid.New())
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})
}

func TestUpdateTask(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (TaskService, *fakeTaskStore, *domain.Task) {
		st := newFakeTaskStore()
		svc := newTestService(t, st, allCapsPerms("alice"), now)
		task, _, err := svc.CreateTask(ctx, "alice", CreateTaskInput{
			Title:      "Mop floors",
			GroupID:    "group-1",
			AssignedTo: "bob",
		})
		require.NoError(t, err)
		return svc, st, task
	}

	t.Run("valid status transition is applied and logged", func(t *testing.T) {
		svc, _, task := setup(t)

		status := domain.TaskStatusInProgress
		updated, effects, err := svc.UpdateTask(ctx, "bob", task.ID, UpdateTaskPatch{Status: &status})
		require.NoError(t, err)

		assert.Equal(t, domain.TaskStatusInProgress, updated.Status)
		require.Len(t, updated.ActivityLog, 2)
		entry := updated.ActivityLog[1]
		assert.Equal(t, "updated", entry.Action)
		assert.Equal(t, domain.FieldChange{From: "pending", To: "in_progress"}, entry.Changes["status"])

		require.Equal(t, []EffectKind{EffectBroadcastToRoom}, effectKinds(effects))
		assert.Equal(t, eventTaskUpdated, effects[0].Event)
	})

	t.Run("invalid transition is rejected without a write", func(t *testing.T) {
		svc, st, task := setup(t)

		_, _, err := svc.CompleteTask(ctx, "bob", task.ID, "")
		require.NoError(t, err)

		status := domain.TaskStatusInProgress
		_, effects, err := svc.UpdateTask(ctx, "bob", task.ID, UpdateTaskPatch{Status: &status})
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Empty(t, effects)

		stored, err := st.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusCompleted, stored.Status)
	})

	t.Run("completion via patch is redirected", func(t *testing.T) {
		svc, _, task := setup(t)

		status := domain.TaskStatusCompleted
		_, _, err := svc.UpdateTask(ctx, "bob", task.ID, UpdateTaskPatch{Status: &status})
		assert.ErrorIs(t, err, ErrUseCompleteOperation)
	})

	t.Run("clearing the assignee is rejected without a write", func(t *testing.T) {
		svc, st, task := setup(t)

		assignee := ""
		_, effects, err := svc.UpdateTask(ctx, "bob", task.ID, UpdateTaskPatch{AssignedTo: &assignee})
		assert.ErrorIs(t, err, domain.ErrTaskAssigneeEmpty)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Empty(t, effects)

		stored, err := st.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "bob", stored.AssignedTo)
	})

	t.Run("reassignment notifies the new assignee", func(t *testing.T) {
		svc, _, task := setup(t)

		assignee := "carol"
		_, effects, err := svc.UpdateTask(ctx, "alice", task.ID, UpdateTaskPatch{AssignedTo: &assignee})
		require.NoError(t, err)

		require.Equal(t, []EffectKind{EffectNotifyUser, EffectBroadcastToRoom}, effectKinds(effects))
		assert.Equal(t, "carol", effects[0].UserID)
	})

	t.Run("no-op patch skips write and broadcast", func(t *testing.T) {
		svc, _, task := setup(t)

		title := task.Title
		updated, effects, err := svc.UpdateTask(ctx, "alice", task.ID, UpdateTaskPatch{Title: &title})
		require.NoError(t, err)
		assert.Empty(t, effects)
		assert.Len(t, updated.ActivityLog, 1)
	})

	t.Run("unrelated member may not modify", func(t *testing.T) {
		st := newFakeTaskStore()
		perms := allCapsPerms("alice")
		svc := newTestService(t, st, perms, now)
		task, _, err := svc.CreateTask(ctx, "alice", CreateTaskInput{
			Title: "Windows", GroupID: "group-1", AssignedTo: "bob",
		})
		require.NoError(t, err)

		title := "Clean windows"
		_, _, err = svc.UpdateTask(ctx, "mallory", task.ID, UpdateTaskPatch{Title: &title})
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestCompleteTask(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (TaskService, *domain.Task) {
		st := newFakeTaskStore()
		svc := newTestService(t, st, allCapsPerms("alice"), now)
		task, _, err := svc.CreateTask(ctx, "alice", CreateTaskInput{
			Title:      "Cook dinner",
			GroupID:    "group-1",
			AssignedTo: "bob",
			Points:     25,
		})
		require.NoError(t, err)
		return svc, task
	}

	t.Run("completion sets completedAt and broadcasts points", func(t *testing.T) {
		svc, task := setup(t)

		completed, effects, err := svc.CompleteTask(ctx, "bob", task.ID, "done early")
		require.NoError(t, err)

		assert.Equal(t, domain.TaskStatusCompleted, completed.Status)
		require.NotNil(t, completed.CompletedAt)
		assert.Equal(t, now, *completed.CompletedAt)
		require.Len(t, completed.Comments, 1)
		assert.Equal(t, "done early", completed.Comments[0].Body)

		require.Equal(t, []EffectKind{EffectBroadcastToRoom, EffectToggleMusic}, effectKinds(effects))
		payload, ok := effects[0].Payload.(TaskCompletedPayload)
		require.True(t, ok)
		assert.Equal(t, 25, payload.Points)
		assert.Equal(t, "bob", payload.CompletedBy)
		assert.Equal(t, MusicStop, effects[1].Action)
	})

	t.Run("double completion is rejected with no effects", func(t *testing.T) {
		svc, task := setup(t)

		_, _, err := svc.CompleteTask(ctx, "bob", task.ID, "")
		require.NoError(t, err)

		_, effects, err := svc.CompleteTask(ctx, "bob", task.ID, "")
		assert.ErrorIs(t, err, ErrAlreadyCompleted)
		assert.Empty(t, effects)
	})

	t.Run("cancelled task cannot be completed", func(t *testing.T) {
		svc, task := setup(t)

		_, _, err := svc.CancelTask(ctx, "alice", task.ID, "")
		require.NoError(t, err)

		_, _, err = svc.CompleteTask(ctx, "bob", task.ID, "")
		assert.ErrorIs(t, err, ErrAlreadyTerminal)
	})

	t.Run("overdue task can still be completed", func(t *testing.T) {
		st := newFakeTaskStore()
		svc := newTestService(t, st, allCapsPerms("alice"), now)
		due := now.Add(-time.Hour)
		task, _, err := svc.CreateTask(ctx, "alice", CreateTaskInput{
			Title: "Recycling", GroupID: "group-1", DueDate: &due,
		})
		require.NoError(t, err)

		_, err = svc.SweepOverdue(ctx, now)
		require.NoError(t, err)

		completed, _, err := svc.CompleteTask(ctx, "alice", task.ID, "")
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusCompleted, completed.Status)
	})
}

func TestCancelTask(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	st := newFakeTaskStore()
	svc := newTestService(t, st, allCapsPerms("alice"), now)
	task, _, err := svc.CreateTask(ctx, "alice", CreateTaskInput{Title: "Old chore", GroupID: "group-1"})
	require.NoError(t, err)

	cancelled, effects, err := svc.CancelTask(ctx, "alice", task.ID, "no longer needed")
	require.NoError(t, err)

	assert.Equal(t, domain.TaskStatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.CompletedAt)
	require.Len(t, cancelled.Comments, 1)
	assert.Equal(t, "no longer needed", cancelled.Comments[0].Body)
	assert.Equal(t, []EffectKind{EffectBroadcastToRoom}, effectKinds(effects))

	_, _, err = svc.CancelTask(ctx, "alice", task.ID, "")
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestCommentOnTask(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	st := newFakeTaskStore()
	perms := allCapsPerms("alice")
	perms.members = map[string]bool{"alice": true, "bob": true, "carol": true}
	svc := newTestService(t, st, perms, now)

	task, _, err := svc.CreateTask(ctx, "alice", CreateTaskInput{
		Title: "Groceries", GroupID: "group-1", AssignedTo: "bob",
	})
	require.NoError(t, err)

	t.Run("comment notifies the assignee", func(t *testing.T) {
		updated, effects, err := svc.CommentOnTask(ctx, "carol", task.ID, "need more milk")
		require.NoError(t, err)

		require.Len(t, updated.Comments, 1)
		assert.Equal(t, "carol", updated.Comments[0].AuthorID)

		require.Equal(t, []EffectKind{EffectNotifyUser, EffectBroadcastToRoom}, effectKinds(effects))
		assert.Equal(t, "bob", effects[0].UserID)
		assert.Equal(t, TemplateTaskCommented, effects[0].Template)
	})

	t.Run("assignee commenting skips the notification", func(t *testing.T) {
		_, effects, err := svc.CommentOnTask(ctx, "bob", task.ID, "on it")
		require.NoError(t, err)
		assert.Equal(t, []EffectKind{EffectBroadcastToRoom}, effectKinds(effects))
	})

	t.Run("empty body is rejected", func(t *testing.T) {
		_, _, err := svc.CommentOnTask(ctx, "bob", task.ID, "")
		assert.ErrorIs(t, err, domain.ErrCommentBodyEmpty)
	})

	t.Run("non-member is rejected", func(t *testing.T) {
		_, _, err := svc.CommentOnTask(ctx, "mallory", task.ID, "hi")
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestDeleteTask(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("creator can delete", func(t *testing.T) {
		st := newFakeTaskStore()
		svc := newTestService(t, st, allCapsPerms("alice"), now)
		task, _, err := svc.CreateTask(ctx, "alice", CreateTaskInput{Title: "Temp", GroupID: "group-1"})
		require.NoError(t, err)

		require.NoError(t, svc.DeleteTask(ctx, "alice", task.ID))

		_, err = svc.GetTask(ctx, "alice", task.ID)
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})

	t.Run("assignee without delete capability cannot delete", func(t *testing.T) {
		st := newFakeTaskStore()
		svc := newTestService(t, st, allCapsPerms("alice"), now)
		task, _, err := svc.CreateTask(ctx, "alice", CreateTaskInput{
			Title: "Temp", GroupID: "group-1", AssignedTo: "bob",
		})
		require.NoError(t, err)

		err = svc.DeleteTask(ctx, "bob", task.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestSweepOverdue(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	st := newFakeTaskStore()
	svc := newTestService(t, st, allCapsPerms("alice"), now)

	past := now.Add(-2 * time.Hour)
	future := now.Add(2 * time.Hour)

	overdueTask, _, err := svc.CreateTask(ctx, "alice", CreateTaskInput{
		Title: "Late chore", GroupID: "group-1", AssignedTo: "bob", DueDate: &past,
	})
	require.NoError(t, err)

	_, _, err = svc.CreateTask(ctx, "alice", CreateTaskInput{
		Title: "Future chore", GroupID: "group-1", DueDate: &future,
	})
	require.NoError(t, err)

	doneTask, _, err := svc.CreateTask(ctx, "alice", CreateTaskInput{
		Title: "Finished chore", GroupID: "group-1", DueDate: &past,
	})
	require.NoError(t, err)
	_, _, err = svc.CompleteTask(ctx, "alice", doneTask.ID, "")
	require.NoError(t, err)

	effects, err := svc.SweepOverdue(ctx, now)
	require.NoError(t, err)

	// Only the late pending task flips: one notification plus one broadcast.
	require.Equal(t, []EffectKind{EffectNotifyUser, EffectBroadcastToRoom}, effectKinds(effects))
	assert.Equal(t, "bob", effects[0].UserID)
	assert.Equal(t, TemplateTaskOverdue, effects[0].Template)

	swept, err := svc.GetTask(ctx, "alice", overdueTask.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusOverdue, swept.Status)
	entry := swept.ActivityLog[len(swept.ActivityLog)-1]
	assert.Equal(t, "marked_overdue", entry.Action)
	assert.Equal(t, "system", entry.ActorID)

	// A second sweep finds nothing new.
	effects, err = svc.SweepOverdue(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, effects)
}

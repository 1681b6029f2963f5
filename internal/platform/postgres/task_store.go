// Package postgres provides PostgreSQL-backed persistence for tasks.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/choreboard/choreboard/internal/domain"
	"github.com/choreboard/choreboard/internal/service"
	"github.com/choreboard/choreboard/internal/store"
)

// PostgreSQL error codes
const uniqueViolationCode = "23505"

// PostgresTaskStore implements the service.TaskStore interface using a
// PostgreSQL database as the storage backend. The activity log, comments,
// and music settings are stored as JSONB alongside the scalar columns.
type PostgresTaskStore struct {
	pool *pgxpool.Pool
}

// Ensure PostgresTaskStore implements the service port.
var _ service.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a new PostgreSQL implementation of the task
// store. It accepts a connection pool that should be initialized and managed
// by the caller.
func NewPostgresTaskStore(pool *pgxpool.Pool) *PostgresTaskStore {
	return &PostgresTaskStore{pool: pool}
}

// isUniqueViolation checks if the given error is a PostgreSQL unique
// constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

const taskColumns = `id, title, description, status, priority, assigned_to,
	created_by, group_id, points, due_date, sla_deadline, completed_at,
	music_settings, activity_log, comments, created_at, updated_at`

// GetTask implements service.TaskStore.GetTask.
func (s *PostgresTaskStore) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := fmt.Sprintf("SELECT %s FROM tasks WHERE id = $1", taskColumns)

	task, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, store.NewStoreError("task", "get", "query failed", err)
	}
	return task, nil
}

// SaveTask implements service.TaskStore.SaveTask as an upsert keyed by ID.
func (s *PostgresTaskStore) SaveTask(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return store.NewStoreError("task", "save", "validation failed", err)
	}

	musicJSON, err := json.Marshal(task.MusicSettings)
	if err != nil {
		return store.NewStoreError("task", "save", "failed to marshal music settings", err)
	}
	activityJSON, err := json.Marshal(task.ActivityLog)
	if err != nil {
		return store.NewStoreError("task", "save", "failed to marshal activity log", err)
	}
	commentsJSON, err := json.Marshal(task.Comments)
	if err != nil {
		return store.NewStoreError("task", "save", "failed to marshal comments", err)
	}

	query := `
		INSERT INTO tasks (id, title, description, status, priority, assigned_to,
			created_by, group_id, points, due_date, sla_deadline, completed_at,
			music_settings, activity_log, comments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			priority = EXCLUDED.priority,
			assigned_to = EXCLUDED.assigned_to,
			points = EXCLUDED.points,
			due_date = EXCLUDED.due_date,
			sla_deadline = EXCLUDED.sla_deadline,
			completed_at = EXCLUDED.completed_at,
			music_settings = EXCLUDED.music_settings,
			activity_log = EXCLUDED.activity_log,
			comments = EXCLUDED.comments,
			updated_at = EXCLUDED.updated_at`

	_, err = s.pool.Exec(ctx, query,
		task.ID, task.Title, task.Description, string(task.Status), string(task.Priority),
		task.AssignedTo, task.CreatedBy, task.GroupID, task.Points,
		task.DueDate, task.SLADeadline, task.CompletedAt,
		musicJSON, activityJSON, commentsJSON,
		task.CreatedAt, task.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.NewStoreError("task", "save", "duplicate task", err)
		}
		return store.NewStoreError("task", "save", "exec failed", err)
	}
	return nil
}

// DeleteTask implements service.TaskStore.DeleteTask.
func (s *PostgresTaskStore) DeleteTask(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return store.NewStoreError("task", "delete", "exec failed", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrTaskNotFound
	}
	return nil
}

// ListDueBefore implements service.TaskStore.ListDueBefore. Terminal and
// already-overdue tasks are filtered in SQL so the sweeper only sees
// candidates.
func (s *PostgresTaskStore) ListDueBefore(ctx context.Context, t time.Time) ([]*domain.Task, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE due_date IS NOT NULL
		  AND due_date < $1
		  AND status NOT IN ('completed', 'cancelled', 'overdue')
		ORDER BY due_date`, taskColumns)

	rows, err := s.pool.Query(ctx, query, t)
	if err != nil {
		return nil, store.NewStoreError("task", "list_due", "query failed", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// ListByGroup implements service.TaskStore.ListByGroup.
func (s *PostgresTaskStore) ListByGroup(ctx context.Context, groupID string) ([]*domain.Task, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE group_id = $1
		ORDER BY created_at DESC`, taskColumns)

	rows, err := s.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, store.NewStoreError("task", "list_group", "query failed", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// rowScanner abstracts pgx.Row and pgx.Rows for scanTask.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task         domain.Task
		status       string
		priority     string
		musicJSON    []byte
		activityJSON []byte
		commentsJSON []byte
	)

	err := row.Scan(
		&task.ID, &task.Title, &task.Description, &status, &priority,
		&task.AssignedTo, &task.CreatedBy, &task.GroupID, &task.Points,
		&task.DueDate, &task.SLADeadline, &task.CompletedAt,
		&musicJSON, &activityJSON, &commentsJSON,
		&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	task.Priority = domain.TaskPriority(priority)

	if err := json.Unmarshal(musicJSON, &task.MusicSettings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal music settings: %w", err)
	}
	if err := json.Unmarshal(activityJSON, &task.ActivityLog); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activity log: %w", err)
	}
	if err := json.Unmarshal(commentsJSON, &task.Comments); err != nil {
		return nil, fmt.Errorf("failed to unmarshal comments: %w", err)
	}

	return &task, nil
}

func collectTasks(rows pgx.Rows) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, store.NewStoreError("task", "scan", "row scan failed", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "scan", "row iteration failed", err)
	}
	return tasks, nil
}

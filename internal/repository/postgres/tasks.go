package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "todo-sync/internal/errors"

	"github.com/jackc/pgx/v5"
)

// TaskRepository is CRUD over the tasks table. Every call is scoped to the
// owning user; rows of other users read as not found.
type TaskRepository interface {
	ListByOwner(ctx context.Context, userID string) ([]*TaskRecord, error)
	Create(ctx context.Context, task *TaskRecord) error
	GetByID(ctx context.Context, userID, id string) (*TaskRecord, error)
	Update(ctx context.Context, userID, id string, patch TaskPatch) (*TaskRecord, error)
	Delete(ctx context.Context, userID, id string) (*TaskRecord, error)
}

type taskRepo struct {
	db DBTX
}

// NewTaskRepository creates a task repository
func NewTaskRepository(db DBTX) TaskRepository {
	return &taskRepo{db: db}
}

const taskColumns = `id, user_id, title, description, completed, document_url, document_id, created_at, updated_at`

func scanTask(row pgx.Row) (*TaskRecord, error) {
	t := &TaskRecord{}
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed,
		&t.DocumentURL, &t.DocumentID, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *taskRepo) ListByOwner(ctx context.Context, userID string) ([]*TaskRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at DESC, id`, taskColumns)

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list tasks", err)
	}
	defer rows.Close()

	tasks := []*TaskRecord{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseError("scan task", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list tasks", err)
	}
	return tasks, nil
}

func (r *taskRepo) Create(ctx context.Context, task *TaskRecord) error {
	query := `
		INSERT INTO tasks (id, user_id, title, description, completed, document_url, document_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		task.ID, task.UserID, task.Title, task.Description, task.Completed,
		task.DocumentURL, task.DocumentID, task.CreatedAt.UTC(),
	).Scan(&task.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("task", task.ID)
		}
		return apperrors.NewDatabaseError("create task", err)
	}
	return nil
}

func (r *taskRepo) GetByID(ctx context.Context, userID, id string) (*TaskRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1 AND user_id = $2`, taskColumns)
	task, err := scanTask(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, apperrors.NewNotFoundError("task", id)
		}
		return nil, apperrors.NewDatabaseError("get task", err)
	}
	return task, nil
}

func (r *taskRepo) Update(ctx context.Context, userID, id string, patch TaskPatch) (*TaskRecord, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id, userID}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Completed != nil {
		add("completed", *patch.Completed)
	}
	if patch.DocumentURL != nil {
		add("document_url", *patch.DocumentURL)
	}
	if patch.DocumentID != nil {
		add("document_id", *patch.DocumentID)
	}

	query := fmt.Sprintf(`
		UPDATE tasks SET %s
		WHERE id = $1 AND user_id = $2
		RETURNING %s`, strings.Join(sets, ", "), taskColumns)

	task, err := scanTask(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, apperrors.NewNotFoundError("task", id)
		}
		return nil, apperrors.NewDatabaseError("update task", err)
	}
	return task, nil
}

func (r *taskRepo) Delete(ctx context.Context, userID, id string) (*TaskRecord, error) {
	query := fmt.Sprintf(`DELETE FROM tasks WHERE id = $1 AND user_id = $2 RETURNING %s`, taskColumns)
	task, err := scanTask(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, apperrors.NewNotFoundError("task", id)
		}
		return nil, apperrors.NewDatabaseError("delete task", err)
	}
	return task, nil
}

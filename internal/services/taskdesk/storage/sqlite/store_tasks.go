package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/taskdesk/internal/services/taskdesk/storage"
)

const taskColumns = `id, owner_id, description, date, priority, completed, created_at`

func scanTask(row rowScanner) (storage.Task, error) {
	var (
		task      storage.Task
		priority  int64
		completed int64
		createdAt int64
	)
	if err := row.Scan(&task.ID, &task.OwnerID, &task.Description, &task.Date, &priority, &completed, &createdAt); err != nil {
		return storage.Task{}, err
	}
	task.Priority = priority != 0
	task.Completed = completed != 0
	task.CreatedAt = fromMillis(createdAt)
	return task, nil
}

// CreateTask inserts a task and returns it with its assigned ID.
func (s *Store) CreateTask(ctx context.Context, task storage.Task) (storage.Task, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Task{}, err
	}
	if strings.TrimSpace(task.OwnerID) == "" {
		return storage.Task{}, fmt.Errorf("owner id is required")
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO tasks (owner_id, description, date, priority, completed, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		task.OwnerID,
		task.Description,
		task.Date,
		boolToInt(task.Priority),
		boolToInt(task.Completed),
		toMillis(task.CreatedAt),
	)
	if err != nil {
		return storage.Task{}, fmt.Errorf("create task: %w", err)
	}
	taskID, err := result.LastInsertId()
	if err != nil {
		return storage.Task{}, fmt.Errorf("create task id: %w", err)
	}
	task.ID = taskID
	task.CreatedAt = fromMillis(toMillis(task.CreatedAt))
	return task, nil
}

// GetTask fetches a task by ID.
func (s *Store) GetTask(ctx context.Context, taskID int64) (storage.Task, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Task{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Task{}, storage.ErrNotFound
		}
		return storage.Task{}, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// ListTasks returns an owner's tasks in insertion order.
func (s *Store) ListTasks(ctx context.Context, ownerID string) ([]storage.Task, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]storage.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ToggleTaskFlag flips one task boolean inside a transaction that first
// resolves ownership.
func (s *Store) ToggleTaskFlag(ctx context.Context, taskID int64, ownerID string, flag storage.TaskFlag) (storage.Task, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Task{}, err
	}
	var update string
	switch flag {
	case storage.TaskFlagPriority:
		update = `UPDATE tasks SET priority = NOT priority WHERE id = ? AND owner_id = ?`
	case storage.TaskFlagCompleted:
		update = `UPDATE tasks SET completed = NOT completed WHERE id = ? AND owner_id = ?`
	default:
		return storage.Task{}, fmt.Errorf("unknown task flag %q", flag)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.Task{}, fmt.Errorf("start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := checkTaskOwner(ctx, tx, taskID, ownerID); err != nil {
		return storage.Task{}, err
	}
	if _, err := tx.ExecContext(ctx, update, taskID, ownerID); err != nil {
		return storage.Task{}, fmt.Errorf("toggle task %s: %w", flag, err)
	}
	task, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID))
	if err != nil {
		return storage.Task{}, fmt.Errorf("reload task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return storage.Task{}, fmt.Errorf("commit task toggle: %w", err)
	}
	return task, nil
}

// DeleteTask removes a task owned by ownerID.
func (s *Store) DeleteTask(ctx context.Context, taskID int64, ownerID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := checkTaskOwner(ctx, tx, taskID, ownerID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND owner_id = ?`, taskID, ownerID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit task delete: %w", err)
	}
	return nil
}

func checkTaskOwner(ctx context.Context, tx *sql.Tx, taskID int64, ownerID string) error {
	var owner string
	err := tx.QueryRowContext(ctx, `SELECT owner_id FROM tasks WHERE id = ?`, taskID).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("get task owner: %w", err)
	}
	if owner != ownerID {
		return storage.ErrNotOwner
	}
	return nil
}

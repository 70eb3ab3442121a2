// Package tasks manages each owner's task list.
package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/taskdesk/internal/platform/errors"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/storage"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/user"
)

// DateLayout is the accepted task date format.
const DateLayout = "2006-01-02"

var (
	// ErrMissingFields indicates an empty description or date.
	ErrMissingFields = apperrors.New(apperrors.CodeValidation, "task description and date are required")
	// ErrInvalidDate indicates a date outside YYYY-MM-DD.
	ErrInvalidDate = apperrors.WithMetadata(apperrors.CodeInvalidDate, "task date must be YYYY-MM-DD", map[string]string{"Layout": "YYYY-MM-DD"})
)

// Service exposes owner-scoped task operations.
type Service struct {
	store storage.TaskStore
	clock func() time.Time
}

// NewService builds a task service over store.
func NewService(store storage.TaskStore) *Service {
	return &Service{store: store, clock: time.Now}
}

// Create adds a task for owner with both flags cleared.
func (s *Service) Create(ctx context.Context, owner user.User, description, date string) (storage.Task, error) {
	if err := s.ready(); err != nil {
		return storage.Task{}, err
	}
	description = strings.TrimSpace(description)
	date = strings.TrimSpace(date)
	if description == "" || date == "" {
		return storage.Task{}, ErrMissingFields
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return storage.Task{}, ErrInvalidDate
	}

	task, err := s.store.CreateTask(ctx, storage.Task{
		OwnerID:     owner.ID,
		Description: description,
		Date:        date,
		CreatedAt:   s.clock().UTC(),
	})
	if err != nil {
		return storage.Task{}, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// List returns owner's tasks in creation order.
func (s *Service) List(ctx context.Context, owner user.User) ([]storage.Task, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// TogglePriority flips the task's priority flag.
func (s *Service) TogglePriority(ctx context.Context, requester user.User, taskID int64) (storage.Task, error) {
	return s.toggle(ctx, requester, taskID, storage.TaskFlagPriority)
}

// ToggleComplete flips the task's completed flag.
func (s *Service) ToggleComplete(ctx context.Context, requester user.User, taskID int64) (storage.Task, error) {
	return s.toggle(ctx, requester, taskID, storage.TaskFlagCompleted)
}

func (s *Service) toggle(ctx context.Context, requester user.User, taskID int64, flag storage.TaskFlag) (storage.Task, error) {
	if err := s.ready(); err != nil {
		return storage.Task{}, err
	}
	task, err := s.store.ToggleTaskFlag(ctx, taskID, requester.ID, flag)
	if err != nil {
		return storage.Task{}, ownershipError(err)
	}
	return task, nil
}

// Delete removes a task owned by requester.
func (s *Service) Delete(ctx context.Context, requester user.User, taskID int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, taskID, requester.ID); err != nil {
		return ownershipError(err)
	}
	return nil
}

func (s *Service) ready() error {
	if s == nil || s.store == nil {
		return fmt.Errorf("task store is not configured")
	}
	return nil
}

// ownershipError keeps NotFound and Forbidden as-is and wraps the rest.
func ownershipError(err error) error {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeNotFound, apperrors.CodeForbidden:
		return err
	}
	return fmt.Errorf("task store: %w", err)
}

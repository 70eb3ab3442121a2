package storage

import (
	"context"
	"time"

	"github.com/louisbranch/taskdesk/internal/platform/errors"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/user"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New(errors.CodeNotFound, "record not found")
	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New(errors.CodeDuplicateEmail, "email already registered")
	// ErrNotOwner indicates the record belongs to another user.
	ErrNotOwner = errors.New(errors.CodeForbidden, "record owned by another user")
	// ErrQuotaExceeded indicates the owner already holds the maximum documents.
	ErrQuotaExceeded = errors.New(errors.CodeQuotaExceeded, "document quota exceeded")
)

// UserStore persists account records.
type UserStore interface {
	// PutUser inserts a new user. It returns ErrDuplicateEmail when the email
	// is taken, leaving the store unchanged.
	PutUser(ctx context.Context, u user.User) error
	GetUser(ctx context.Context, userID string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	SetPasswordHash(ctx context.Context, userID string, hash string, updatedAt time.Time) error
	SetProfileImage(ctx context.Context, userID string, filename string, updatedAt time.Time) error
	ListUsersByRole(ctx context.Context, role user.Role, pageSize int, pageToken string) (UserPage, error)
	HasUserWithRole(ctx context.Context, role user.Role) (bool, error)
	// DeleteUser removes the user with its tasks and document records in one
	// transaction. It returns ErrNotFound when no such user exists.
	DeleteUser(ctx context.Context, userID string) error
}

// UserPage describes a page of user records.
type UserPage struct {
	Users         []user.User
	NextPageToken string
}

// Task is one entry of an owner's task list. IDs increase monotonically and
// define list order.
type Task struct {
	ID          int64
	OwnerID     string
	Description string
	Date        string
	Priority    bool
	Completed   bool
	CreatedAt   time.Time
}

// TaskFlag names an independently toggled task boolean.
type TaskFlag string

const (
	TaskFlagPriority  TaskFlag = "priority"
	TaskFlagCompleted TaskFlag = "completed"
)

// TaskStore persists task records.
type TaskStore interface {
	// CreateTask inserts a task and returns it with its assigned ID.
	CreateTask(ctx context.Context, task Task) (Task, error)
	GetTask(ctx context.Context, taskID int64) (Task, error)
	ListTasks(ctx context.Context, ownerID string) ([]Task, error)
	// ToggleTaskFlag flips flag atomically. It returns ErrNotFound for a
	// missing task and ErrNotOwner when ownerID does not own it.
	ToggleTaskFlag(ctx context.Context, taskID int64, ownerID string, flag TaskFlag) (Task, error)
	// DeleteTask follows the ToggleTaskFlag ownership contract.
	DeleteTask(ctx context.Context, taskID int64, ownerID string) error
}

// Document is an uploaded file owned by one user.
type Document struct {
	ID        string
	OwnerID   string
	Filename  string
	Filepath  string
	CreatedAt time.Time
}

// DocumentStore persists document records.
type DocumentStore interface {
	CountDocuments(ctx context.Context, ownerID string) (int, error)
	// PutDocumentWithinQuota inserts doc only if its owner holds fewer than
	// limit documents at commit time; otherwise it returns ErrQuotaExceeded.
	PutDocumentWithinQuota(ctx context.Context, doc Document, limit int) error
	GetDocument(ctx context.Context, documentID string) (Document, error)
	ListDocuments(ctx context.Context, ownerID string) ([]Document, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

// Package service is the single entry point for taskdesk operations.
//
// Every protected operation resolves the caller through the guard before it
// touches a store, using the session handle carried in the request context.
package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/taskdesk/internal/platform/errors"
	platformotel "github.com/louisbranch/taskdesk/internal/platform/otel"
	"github.com/louisbranch/taskdesk/internal/platform/requestctx"
	"github.com/louisbranch/taskdesk/internal/platform/timeouts"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/admin"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/credentials"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/documents"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/guard"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/session"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/storage"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/tasks"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/user"
)

// Deps are the components the facade composes.
type Deps struct {
	Credentials *credentials.Service
	Sessions    *session.Manager
	Guard       *guard.Guard
	Tasks       *tasks.Service
	Documents   *documents.Enforcer
	Admin       *admin.Service
	// Timeout bounds each operation; defaults to timeouts.StoreOp.
	Timeout time.Duration
}

// Service exposes the taskdesk operations.
type Service struct {
	creds    *credentials.Service
	sessions *session.Manager
	guard    *guard.Guard
	tasks    *tasks.Service
	docs     *documents.Enforcer
	admin    *admin.Service
	timeout  time.Duration
}

// New validates deps and builds the facade.
func New(deps Deps) (*Service, error) {
	switch {
	case deps.Credentials == nil:
		return nil, fmt.Errorf("credentials service is required")
	case deps.Sessions == nil:
		return nil, fmt.Errorf("session manager is required")
	case deps.Guard == nil:
		return nil, fmt.Errorf("guard is required")
	case deps.Tasks == nil:
		return nil, fmt.Errorf("task service is required")
	case deps.Documents == nil:
		return nil, fmt.Errorf("document enforcer is required")
	case deps.Admin == nil:
		return nil, fmt.Errorf("admin service is required")
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = timeouts.StoreOp
	}
	return &Service{
		creds:    deps.Credentials,
		sessions: deps.Sessions,
		guard:    deps.Guard,
		tasks:    deps.Tasks,
		docs:     deps.Documents,
		admin:    deps.Admin,
		timeout:  timeout,
	}, nil
}

// begin opens the operation span and deadline. The returned func ends both
// and records err on the span.
func (s *Service) begin(ctx context.Context, name string) (context.Context, func(*error)) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	ctx, span := platformotel.Tracer().Start(ctx, "taskdesk."+name, trace.WithSpanKind(trace.SpanKindInternal))
	return ctx, func(errp *error) {
		if errp != nil && *errp != nil {
			span.RecordError(*errp)
			span.SetAttributes(attribute.String("taskdesk.error_code", string(apperrors.CodeOf(*errp))))
			span.SetStatus(codes.Error, (*errp).Error())
		}
		span.End()
		cancel()
	}
}

func (s *Service) caller(ctx context.Context) (user.User, error) {
	u, err := s.guard.RequireAuth(ctx, requestctx.SessionHandleFromContext(ctx))
	if err != nil {
		return user.User{}, err
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("taskdesk.user_id", u.ID))
	return u, nil
}

func (s *Service) adminCaller(ctx context.Context) (user.User, error) {
	u, err := s.guard.RequireRole(ctx, requestctx.SessionHandleFromContext(ctx), user.RoleAdmin)
	if err != nil {
		return user.User{}, err
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("taskdesk.user_id", u.ID))
	return u, nil
}

// Register creates a regular account.
func (s *Service) Register(ctx context.Context, username, email, password string) (userID string, err error) {
	ctx, end := s.begin(ctx, "Register")
	defer end(&err)
	return s.creds.Register(ctx, username, email, password)
}

// Login opens a session and returns its handle.
func (s *Service) Login(ctx context.Context, email, password string) (handle string, err error) {
	ctx, end := s.begin(ctx, "Login")
	defer end(&err)
	return s.sessions.Login(ctx, email, password)
}

// Logout ends the caller's session, if any.
func (s *Service) Logout(ctx context.Context) (err error) {
	ctx, end := s.begin(ctx, "Logout")
	defer end(&err)
	return s.sessions.Logout(ctx, requestctx.SessionHandleFromContext(ctx))
}

// Me returns the caller's account.
func (s *Service) Me(ctx context.Context) (u user.User, err error) {
	ctx, end := s.begin(ctx, "Me")
	defer end(&err)
	return s.caller(ctx)
}

// ListTasks returns the caller's tasks.
func (s *Service) ListTasks(ctx context.Context) (list []storage.Task, err error) {
	ctx, end := s.begin(ctx, "ListTasks")
	defer end(&err)
	u, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.tasks.List(ctx, u)
}

// AddTask creates a task for the caller.
func (s *Service) AddTask(ctx context.Context, description, date string) (task storage.Task, err error) {
	ctx, end := s.begin(ctx, "AddTask")
	defer end(&err)
	u, err := s.caller(ctx)
	if err != nil {
		return storage.Task{}, err
	}
	return s.tasks.Create(ctx, u, description, date)
}

// DeleteTask removes one of the caller's tasks.
func (s *Service) DeleteTask(ctx context.Context, taskID int64) (err error) {
	ctx, end := s.begin(ctx, "DeleteTask")
	defer end(&err)
	u, err := s.caller(ctx)
	if err != nil {
		return err
	}
	return s.tasks.Delete(ctx, u, taskID)
}

// TogglePriority flips the priority of one of the caller's tasks.
func (s *Service) TogglePriority(ctx context.Context, taskID int64) (task storage.Task, err error) {
	ctx, end := s.begin(ctx, "TogglePriority")
	defer end(&err)
	u, err := s.caller(ctx)
	if err != nil {
		return storage.Task{}, err
	}
	return s.tasks.TogglePriority(ctx, u, taskID)
}

// ToggleComplete flips the completion of one of the caller's tasks.
func (s *Service) ToggleComplete(ctx context.Context, taskID int64) (task storage.Task, err error) {
	ctx, end := s.begin(ctx, "ToggleComplete")
	defer end(&err)
	u, err := s.caller(ctx)
	if err != nil {
		return storage.Task{}, err
	}
	return s.tasks.ToggleComplete(ctx, u, taskID)
}

// UploadDocument stores a PDF for the caller within the quota.
func (s *Service) UploadDocument(ctx context.Context, filename string, body io.Reader) (doc storage.Document, err error) {
	ctx, end := s.begin(ctx, "UploadDocument")
	defer end(&err)
	u, err := s.caller(ctx)
	if err != nil {
		return storage.Document{}, err
	}
	return s.docs.Upload(ctx, u, filename, body, documents.KindDocument)
}

// DeleteDocument removes one of the caller's documents.
func (s *Service) DeleteDocument(ctx context.Context, documentID string) (err error) {
	ctx, end := s.begin(ctx, "DeleteDocument")
	defer end(&err)
	u, err := s.caller(ctx)
	if err != nil {
		return err
	}
	return s.docs.Delete(ctx, u, documentID)
}

// ViewDocument opens one of the caller's documents. The caller closes the
// file.
func (s *Service) ViewDocument(ctx context.Context, documentID string) (file *os.File, doc storage.Document, err error) {
	ctx, end := s.begin(ctx, "ViewDocument")
	defer end(&err)
	u, err := s.caller(ctx)
	if err != nil {
		return nil, storage.Document{}, err
	}
	return s.docs.View(ctx, u, documentID)
}

// ListDocuments returns the caller's documents.
func (s *Service) ListDocuments(ctx context.Context) (list []storage.Document, err error) {
	ctx, end := s.begin(ctx, "ListDocuments")
	defer end(&err)
	u, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.docs.ListDocuments(ctx, u)
}

// UploadProfileImage replaces the caller's profile image.
func (s *Service) UploadProfileImage(ctx context.Context, filename string, body io.Reader) (image storage.Document, err error) {
	ctx, end := s.begin(ctx, "UploadProfileImage")
	defer end(&err)
	u, err := s.caller(ctx)
	if err != nil {
		return storage.Document{}, err
	}
	return s.docs.Upload(ctx, u, filename, body, documents.KindProfileImage)
}

// GetProfileImage returns the path of the caller's profile image, or
// NotFound while the placeholder is in use.
func (s *Service) GetProfileImage(ctx context.Context) (path string, err error) {
	ctx, end := s.begin(ctx, "GetProfileImage")
	defer end(&err)
	u, err := s.caller(ctx)
	if err != nil {
		return "", err
	}
	return s.docs.ProfileImagePath(ctx, u)
}

// ListUsers returns a page of regular users. Admin only.
func (s *Service) ListUsers(ctx context.Context, pageSize int, pageToken string) (page storage.UserPage, err error) {
	ctx, end := s.begin(ctx, "ListUsers")
	defer end(&err)
	if _, err := s.adminCaller(ctx); err != nil {
		return storage.UserPage{}, err
	}
	return s.admin.ListUsers(ctx, pageSize, pageToken)
}

// DeleteUser removes an account and everything it owns. Admin only.
func (s *Service) DeleteUser(ctx context.Context, userID string) (err error) {
	ctx, end := s.begin(ctx, "DeleteUser")
	defer end(&err)
	if _, err := s.adminCaller(ctx); err != nil {
		return err
	}
	return s.admin.DeleteUser(ctx, userID)
}

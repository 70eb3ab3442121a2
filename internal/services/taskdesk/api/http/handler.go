package httpapi

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/louisbranch/taskdesk/internal/platform/errors"
	"github.com/louisbranch/taskdesk/internal/platform/i18n/catalog"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/storage"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/user"
)

// MaxUploadBytes caps a single upload request body.
const MaxUploadBytes = 10 << 20

const (
	maxJSONBytes        = 1 << 20
	multipartMemory     = 1 << 20
	documentFormField   = "pdf"
	profileImageFormKey = "profileImageInput"
)

//go:embed placeholder.svg
var placeholderImage []byte

// Operations is the taskdesk surface the API serves.
type Operations interface {
	Register(ctx context.Context, username, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (user.User, error)
	ListTasks(ctx context.Context) ([]storage.Task, error)
	AddTask(ctx context.Context, description, date string) (storage.Task, error)
	DeleteTask(ctx context.Context, taskID int64) error
	TogglePriority(ctx context.Context, taskID int64) (storage.Task, error)
	ToggleComplete(ctx context.Context, taskID int64) (storage.Task, error)
	UploadDocument(ctx context.Context, filename string, body io.Reader) (storage.Document, error)
	DeleteDocument(ctx context.Context, documentID string) error
	ViewDocument(ctx context.Context, documentID string) (*os.File, storage.Document, error)
	ListDocuments(ctx context.Context) ([]storage.Document, error)
	UploadProfileImage(ctx context.Context, filename string, body io.Reader) (storage.Document, error)
	GetProfileImage(ctx context.Context) (string, error)
	ListUsers(ctx context.Context, pageSize int, pageToken string) (storage.UserPage, error)
	DeleteUser(ctx context.Context, userID string) error
}

// Handler serves the JSON API.
type Handler struct {
	ops    Operations
	bundle *catalog.Bundle
	logf   func(string, ...any)
}

// NewHandler builds the API handler. A nil bundle uses catalog.Default.
func NewHandler(ops Operations, bundle *catalog.Bundle) *Handler {
	if bundle == nil {
		bundle = catalog.Default()
	}
	return &Handler{ops: ops, bundle: bundle, logf: log.Printf}
}

// Routes returns the API mux wrapped in the standard middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", h.register)
	mux.HandleFunc("POST /api/login", h.login)
	mux.HandleFunc("POST /api/logout", h.logout)
	mux.HandleFunc("GET /api/me", h.me)

	mux.HandleFunc("GET /api/tasks", h.listTasks)
	mux.HandleFunc("POST /api/tasks", h.addTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", h.deleteTask)
	mux.HandleFunc("POST /api/tasks/{id}/priority", h.togglePriority)
	mux.HandleFunc("POST /api/tasks/{id}/complete", h.toggleComplete)

	mux.HandleFunc("GET /api/documents", h.listDocuments)
	mux.HandleFunc("POST /api/documents", h.uploadDocument)
	mux.HandleFunc("GET /api/documents/{id}", h.viewDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", h.deleteDocument)

	mux.HandleFunc("POST /api/profile-image", h.uploadProfileImage)
	mux.HandleFunc("GET /api/profile-image", h.profileImage)

	mux.HandleFunc("GET /api/admin/users", h.listUsers)
	mux.HandleFunc("DELETE /api/admin/users/{id}", h.deleteUser)

	return Chain(mux, RecoverPanic(), RequestID(), Locale(h.bundle), Session(), Trace())
}

type userResponse struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	ProfileImage string    `json:"profile_image"`
	CreatedAt    time.Time `json:"created_at"`
}

func toUserResponse(u user.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Role:         string(u.Role),
		ProfileImage: u.ProfileImage,
		CreatedAt:    u.CreatedAt,
	}
}

type taskResponse struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	Priority    bool      `json:"priority"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
}

func toTaskResponse(task storage.Task) taskResponse {
	return taskResponse{
		ID:          task.ID,
		Description: task.Description,
		Date:        task.Date,
		Priority:    task.Priority,
		Completed:   task.Completed,
		CreatedAt:   task.CreatedAt,
	}
}

type documentResponse struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
}

func toDocumentResponse(doc storage.Document) documentResponse {
	return documentResponse{ID: doc.ID, Filename: doc.Filename, CreatedAt: doc.CreatedAt}
}

// readFields reads named string fields from a JSON object or a form body.
func readFields(r *http.Request, names ...string) (map[string]string, error) {
	values := make(map[string]string, len(names))
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		raw := map[string]any{}
		decoder := json.NewDecoder(io.LimitReader(r.Body, maxJSONBytes))
		if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, apperrors.Wrap(apperrors.CodeValidation, "decode request body", err)
		}
		for _, name := range names {
			if value, ok := raw[name].(string); ok {
				values[name] = value
			}
		}
		return values, nil
	}
	r.Body = http.MaxBytesReader(nil, r.Body, maxJSONBytes)
	if err := r.ParseForm(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, "parse form", err)
	}
	for _, name := range names {
		values[name] = r.PostForm.Get(name)
	}
	return values, nil
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(r, "username", "email", "password")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	userID, err := h.ops.Register(r.Context(), fields["username"], fields["email"], fields["password"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, http.StatusCreated, map[string]string{"id": userID})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(r, "email", "password")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	handle, err := h.ops.Login(r.Context(), fields["email"], fields["password"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSessionCookie(w, r, handle)
	h.respond(w, http.StatusOK, map[string]string{"token": handle})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.ops.Logout(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	clearSessionCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.ops.Me(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	list, err := h.ops.ListTasks(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]taskResponse, 0, len(list))
	for _, task := range list {
		out = append(out, toTaskResponse(task))
	}
	h.respond(w, http.StatusOK, map[string]any{"tasks": out})
}

func (h *Handler) addTask(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(r, "description", "date")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	task, err := h.ops.AddTask(r.Context(), fields["description"], fields["date"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, http.StatusCreated, toTaskResponse(task))
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := taskIDFromPath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.ops.DeleteTask(r.Context(), taskID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) togglePriority(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.ops.TogglePriority)
}

func (h *Handler) toggleComplete(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.ops.ToggleComplete)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, op func(context.Context, int64) (storage.Task, error)) {
	taskID, err := taskIDFromPath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	task, err := op(r.Context(), taskID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toTaskResponse(task))
}

// taskIDFromPath parses {id}; malformed ids cannot name a task.
func taskIDFromPath(r *http.Request) (int64, error) {
	taskID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || taskID <= 0 {
		return 0, storage.ErrNotFound
	}
	return taskID, nil
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	list, err := h.ops.ListDocuments(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]documentResponse, 0, len(list))
	for _, doc := range list {
		out = append(out, toDocumentResponse(doc))
	}
	h.respond(w, http.StatusOK, map[string]any{"documents": out})
}

func (h *Handler) uploadDocument(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, documentFormField, func(ctx context.Context, name string, body io.Reader) (any, error) {
		doc, err := h.ops.UploadDocument(ctx, name, body)
		if err != nil {
			return nil, err
		}
		return toDocumentResponse(doc), nil
	})
}

func (h *Handler) uploadProfileImage(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, profileImageFormKey, func(ctx context.Context, name string, body io.Reader) (any, error) {
		image, err := h.ops.UploadProfileImage(ctx, name, body)
		if err != nil {
			return nil, err
		}
		return map[string]string{"profile_image": image.Filename}, nil
	})
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request, field string, store func(context.Context, string, io.Reader) (any, error)) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, errRequestTooLarge)
			return
		}
		h.writeError(w, r, apperrors.Wrap(apperrors.CodeValidation, "parse multipart form", err))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logf("remove multipart temp files: %v", err)
		}
	}()

	file, header, err := r.FormFile(field)
	if err != nil {
		h.writeError(w, r, apperrors.WithMetadata(apperrors.CodeValidation, "file is required", map[string]string{"Field": field}))
		return
	}
	defer file.Close()

	payload, err := store(r.Context(), header.Filename, file)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, http.StatusCreated, payload)
}

func (h *Handler) viewDocument(w http.ResponseWriter, r *http.Request) {
	file, doc, err := h.ops.ViewDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer file.Close()
	h.serveFile(w, r, file, doc.Filename, "application/pdf")
}

func (h *Handler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.ops.DeleteDocument(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) profileImage(w http.ResponseWriter, r *http.Request) {
	path, err := h.ops.GetProfileImage(r.Context())
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeNotFound {
			w.Header().Set("Content-Type", "image/svg+xml")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(placeholderImage)
			return
		}
		h.writeError(w, r, err)
		return
	}
	file, err := os.Open(path)
	if err != nil {
		h.writeError(w, r, apperrors.Wrap(apperrors.CodeIOFailure, "open profile image", err))
		return
	}
	defer file.Close()
	h.serveFile(w, r, file, filepath.Base(path), mime.TypeByExtension(filepath.Ext(path)))
}

func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, file *os.File, name string, contentType string) {
	info, err := file.Stat()
	if err != nil {
		h.writeError(w, r, apperrors.Wrap(apperrors.CodeIOFailure, "stat file", err))
		return
	}
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": name}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, name, info.ModTime(), file)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	pageSize := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("page_size")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, r, apperrors.WithMetadata(apperrors.CodeValidation, "page_size must be an integer", map[string]string{"Field": "page_size"}))
			return
		}
		pageSize = parsed
	}
	page, err := h.ops.ListUsers(r.Context(), pageSize, r.URL.Query().Get("page_token"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]userResponse, 0, len(page.Users))
	for _, u := range page.Users {
		out = append(out, toUserResponse(u))
	}
	h.respond(w, http.StatusOK, map[string]any{
		"users":           out,
		"next_page_token": page.NextPageToken,
	})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.ops.DeleteUser(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respond(w http.ResponseWriter, status int, payload any) {
	if err := writeJSON(w, status, payload); err != nil {
		h.logf("write response: %v", fmt.Errorf("encode %T: %w", payload, err))
	}
}

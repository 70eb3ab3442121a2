package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/louisbranch/taskdesk/internal/services/taskdesk/admin"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/credentials"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/documents"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/guard"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/service"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/session"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/storage/sqlite"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/tasks"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(newTestHandler(t).Routes())
	t.Cleanup(server.Close)
	return server
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "taskdesk.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	creds := credentials.NewService(store)
	sessions, err := session.NewManager(store, creds, session.Config{})
	if err != nil {
		t.Fatalf("new session manager: %v", err)
	}
	docs, err := documents.NewEnforcer(store, store, documents.Config{Root: filepath.Join(t.TempDir(), "uploads")})
	if err != nil {
		t.Fatalf("new enforcer: %v", err)
	}
	adminSvc := admin.NewService(store, creds, docs, sessions)
	if _, err := adminSvc.EnsureAdmin(context.Background(), admin.BootstrapConfig{Username: "admin", Email: "admin@gmail.com", Password: "admin"}); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	svc, err := service.New(service.Deps{
		Credentials: creds,
		Sessions:    sessions,
		Guard:       guard.New(sessions),
		Tasks:       tasks.NewService(store),
		Documents:   docs,
		Admin:       adminSvc,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	handler := NewHandler(svc, nil)
	handler.logf = func(string, ...any) {}
	return handler
}

type client struct {
	t      *testing.T
	server *httptest.Server
	token  string
}

func (c *client) do(method, path string, body io.Reader, contentType string) *http.Response {
	c.t.Helper()

	req, err := http.NewRequest(method, c.server.URL+path, body)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.server.Client().Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	c.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (c *client) json(method, path string, payload any) *http.Response {
	c.t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			c.t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	return c.do(method, path, body, "application/json")
}

func (c *client) upload(path, field, filename string, content []byte) *http.Response {
	c.t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		c.t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		c.t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		c.t.Fatalf("close multipart: %v", err)
	}
	return c.do(http.MethodPost, path, &buf, writer.FormDataContentType())
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()

	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s status = %d, want %d: %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, body)
	}
}

func signIn(t *testing.T, server *httptest.Server, email, password string, register bool) *client {
	t.Helper()

	c := &client{t: t, server: server}
	if register {
		expectStatus(t, c.json(http.MethodPost, "/api/register", map[string]string{
			"username": strings.Split(email, "@")[0],
			"email":    email,
			"password": password,
		}), http.StatusCreated)
	}
	resp := c.json(http.MethodPost, "/api/login", map[string]string{"email": email, "password": password})
	expectStatus(t, resp, http.StatusOK)
	c.token = decode[map[string]string](t, resp)["token"]
	if c.token == "" {
		t.Fatal("login returned no token")
	}
	return c
}

func TestAnonymousRequestsAreRejected(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	c := &client{t: t, server: server}

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/me"},
		{http.MethodGet, "/api/tasks"},
		{http.MethodPost, "/api/tasks/1/priority"},
		{http.MethodGet, "/api/documents"},
		{http.MethodGet, "/api/admin/users"},
	} {
		resp := c.json(route.method, route.path, nil)
		expectStatus(t, resp, http.StatusUnauthorized)
		body := decode[errorBody](t, resp)
		if body.Error.Code != "UNAUTHENTICATED" {
			t.Fatalf("%s %s code = %q", route.method, route.path, body.Error.Code)
		}
	}
}

func TestLoginFailureIsGeneric(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	signIn(t, server, "alice@example.com", "secret", true)
	c := &client{t: t, server: server}

	wrongPassword := decode[errorBody](t, c.json(http.MethodPost, "/api/login", map[string]string{"email": "alice@example.com", "password": "nope"}))
	unknownEmail := decode[errorBody](t, c.json(http.MethodPost, "/api/login", map[string]string{"email": "ghost@example.com", "password": "nope"}))
	if wrongPassword != unknownEmail {
		t.Fatalf("login failures differ: %+v vs %+v", wrongPassword, unknownEmail)
	}
}

func TestRegisterAcceptsForm(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	c := &client{t: t, server: server}
	form := url.Values{"username": {"bob"}, "email": {"bob@example.com"}, "password": {"pw"}}
	expectStatus(t, c.do(http.MethodPost, "/api/register", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded"), http.StatusCreated)

	dup := c.do(http.MethodPost, "/api/register", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	expectStatus(t, dup, http.StatusConflict)
}

func TestTaskLifecycle(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	alice := signIn(t, server, "alice@example.com", "secret", true)

	resp := alice.json(http.MethodPost, "/api/tasks", map[string]string{"description": "Buy milk", "date": "2026-03-10"})
	expectStatus(t, resp, http.StatusCreated)
	created := decode[taskResponse](t, resp)
	if created.Priority || created.Completed {
		t.Fatalf("new task flags = %+v", created)
	}

	resp = alice.json(http.MethodPost, fmt.Sprintf("/api/tasks/%d/priority", created.ID), nil)
	expectStatus(t, resp, http.StatusOK)
	if !decode[taskResponse](t, resp).Priority {
		t.Fatal("priority not toggled")
	}

	bad := alice.json(http.MethodPost, "/api/tasks", map[string]string{"description": "x", "date": "10/03/2026"})
	expectStatus(t, bad, http.StatusBadRequest)

	bob := signIn(t, server, "bob@example.com", "secret", true)
	expectStatus(t, bob.json(http.MethodDelete, fmt.Sprintf("/api/tasks/%d", created.ID), nil), http.StatusForbidden)
	expectStatus(t, bob.json(http.MethodDelete, "/api/tasks/abc", nil), http.StatusNotFound)

	expectStatus(t, alice.json(http.MethodDelete, fmt.Sprintf("/api/tasks/%d", created.ID), nil), http.StatusNoContent)
	list := decode[map[string][]taskResponse](t, alice.json(http.MethodGet, "/api/tasks", nil))
	if len(list["tasks"]) != 0 {
		t.Fatalf("tasks = %d, want 0", len(list["tasks"]))
	}
}

func TestDocumentQuotaOverHTTP(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	alice := signIn(t, server, "alice@example.com", "secret", true)
	pdf := []byte("%PDF-1.4 test")

	var firstID string
	for i := 0; i < documents.DefaultLimit; i++ {
		resp := alice.upload("/api/documents", documentFormField, fmt.Sprintf("report %d.pdf", i), pdf)
		expectStatus(t, resp, http.StatusCreated)
		doc := decode[documentResponse](t, resp)
		if i == 0 {
			firstID = doc.ID
		}
	}
	over := alice.upload("/api/documents", documentFormField, "extra.pdf", pdf)
	expectStatus(t, over, http.StatusUnprocessableEntity)
	body := decode[errorBody](t, over)
	if !strings.Contains(body.Error.Message, "3") {
		t.Fatalf("quota message %q does not mention the limit", body.Error.Message)
	}

	expectStatus(t, alice.upload("/api/documents", documentFormField, "notes.txt", pdf), http.StatusBadRequest)

	view := alice.do(http.MethodGet, "/api/documents/"+firstID, nil, "")
	expectStatus(t, view, http.StatusOK)
	if got := view.Header.Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("content type = %q", got)
	}
	content, _ := io.ReadAll(view.Body)
	if !bytes.Equal(content, pdf) {
		t.Fatalf("served %q, want %q", content, pdf)
	}

	bob := signIn(t, server, "bob@example.com", "secret", true)
	expectStatus(t, bob.do(http.MethodGet, "/api/documents/"+firstID, nil, ""), http.StatusForbidden)

	expectStatus(t, alice.json(http.MethodDelete, "/api/documents/"+firstID, nil), http.StatusNoContent)
	expectStatus(t, alice.upload("/api/documents", documentFormField, "again.pdf", pdf), http.StatusCreated)
}

func TestUploadTooLarge(t *testing.T) {
	t.Parallel()

	routes := newTestHandler(t).Routes()
	server := httptest.NewServer(routes)
	t.Cleanup(server.Close)
	alice := signIn(t, server, "alice@example.com", "secret", true)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(documentFormField, "big.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(bytes.Repeat([]byte("a"), MaxUploadBytes+1)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+alice.token)
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusRequestEntityTooLarge, rec.Body.String())
	}
}

func TestProfileImagePlaceholderAndUpload(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	alice := signIn(t, server, "alice@example.com", "secret", true)

	placeholder := alice.do(http.MethodGet, "/api/profile-image", nil, "")
	expectStatus(t, placeholder, http.StatusOK)
	if got := placeholder.Header.Get("Content-Type"); got != "image/svg+xml" {
		t.Fatalf("placeholder content type = %q", got)
	}

	expectStatus(t, alice.upload("/api/profile-image", profileImageFormKey, "me.png", []byte("png-bytes")), http.StatusCreated)
	image := alice.do(http.MethodGet, "/api/profile-image", nil, "")
	expectStatus(t, image, http.StatusOK)
	content, _ := io.ReadAll(image.Body)
	if string(content) != "png-bytes" {
		t.Fatalf("profile image = %q", content)
	}

	expectStatus(t, alice.upload("/api/profile-image", profileImageFormKey, "me.exe", []byte("x")), http.StatusBadRequest)
}

func TestAdminRoutes(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	alice := signIn(t, server, "alice@example.com", "secret", true)
	expectStatus(t, alice.json(http.MethodGet, "/api/admin/users", nil), http.StatusForbidden)

	root := signIn(t, server, "admin@gmail.com", "admin", false)
	resp := root.json(http.MethodGet, "/api/admin/users?page_size=10", nil)
	expectStatus(t, resp, http.StatusOK)
	var page struct {
		Users []userResponse `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Users) != 1 || page.Users[0].Email != "alice@example.com" {
		t.Fatalf("users = %+v", page.Users)
	}
	expectStatus(t, root.json(http.MethodGet, "/api/admin/users?page_size=lots", nil), http.StatusBadRequest)

	blank := root.json(http.MethodDelete, "/api/admin/users/%20", nil)
	expectStatus(t, blank, http.StatusNotFound)
	if code := decode[errorBody](t, blank).Error.Code; code != "NOT_FOUND" {
		t.Fatalf("blank user id code = %q, want NOT_FOUND", code)
	}
	expectStatus(t, root.json(http.MethodDelete, "/api/admin/users/"+page.Users[0].ID, nil), http.StatusNoContent)
	expectStatus(t, alice.json(http.MethodGet, "/api/me", nil), http.StatusUnauthorized)
}

func TestLogoutClearsCookie(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	alice := signIn(t, server, "alice@example.com", "secret", true)

	resp := alice.json(http.MethodPost, "/api/logout", nil)
	expectStatus(t, resp, http.StatusNoContent)
	cleared := false
	for _, cookie := range resp.Cookies() {
		if cookie.Name == SessionCookieName && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("session cookie not cleared")
	}
	expectStatus(t, alice.json(http.MethodGet, "/api/me", nil), http.StatusUnauthorized)
}

func TestLocalizedErrorMessages(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	c := &client{t: t, server: server}

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/me", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Accept-Language", "pt-BR")
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Content-Language"); got != "pt-BR" {
		t.Fatalf("content language = %q", got)
	}
	localized := decode[errorBody](t, resp)
	english := decode[errorBody](t, c.json(http.MethodGet, "/api/me", nil))
	if localized.Error.Message == english.Error.Message {
		t.Fatalf("expected localized message, got %q for both", localized.Error.Message)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	c := &client{t: t, server: server}
	resp := c.json(http.MethodGet, "/api/me", nil)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("missing request id")
	}
}

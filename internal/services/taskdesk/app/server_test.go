package server

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	platformgrpc "github.com/louisbranch/taskdesk/internal/platform/grpc"
	"github.com/louisbranch/taskdesk/internal/platform/timeouts"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/admin"
)

func testConfig(t *testing.T) Config {
	t.Helper()

	dir := t.TempDir()
	return Config{
		HTTPAddr:  "127.0.0.1:0",
		GRPCAddr:  "127.0.0.1:0",
		DBPath:    filepath.Join(dir, "data", "taskdesk.db"),
		UploadDir: filepath.Join(dir, "uploads"),
		Admin:     admin.BootstrapConfig{Username: "admin", Email: "admin@gmail.com", Password: "admin"},
	}
}

func startServer(t *testing.T, cfg Config) *Server {
	t.Helper()

	srv, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	runCtx, runCancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- srv.Serve(runCtx)
	}()
	t.Cleanup(func() {
		runCancel()
		select {
		case serveErr := <-serveDone:
			if serveErr != nil {
				t.Fatalf("serve: %v", serveErr)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for server shutdown")
		}
	})
	return srv
}

func TestServerReportsHealthAndServesAPI(t *testing.T) {
	srv := startServer(t, testConfig(t))

	conn, err := grpc.NewClient(srv.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial health: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := platformgrpc.WaitForHealth(ctx, conn, HealthService, nil); err != nil {
		t.Fatalf("wait for health: %v", err)
	}

	body := strings.NewReader(`{"email":"admin@gmail.com","password":"admin"}`)
	resp, err := http.Post("http://"+srv.HTTPAddr()+"/api/login", "application/json", body)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if payload["token"] == "" {
		t.Fatal("expected session token from bootstrapped admin login")
	}
}

func TestNewRejectsBadSigningKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.SigningKeyHex = "not-hex"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected signing key error")
	}
}

func TestNewKeepsExistingAdmin(t *testing.T) {
	cfg := testConfig(t)
	srv, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv.Close()

	cfg.Admin.Email = "other-admin@example.com"
	restarted, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("restart with existing admin: %v", err)
	}
	restarted.Close()
}

func TestDecodeSigningKey(t *testing.T) {
	key, err := decodeSigningKey("  ")
	if err != nil || key != nil {
		t.Fatalf("blank key = %v, %v", key, err)
	}
	key, err = decodeSigningKey(strings.Repeat("ab", 32))
	if err != nil || len(key) != 32 {
		t.Fatalf("hex key = %d bytes, %v", len(key), err)
	}
}

func TestHTTPServerBoundsEveryRequestPhase(t *testing.T) {
	srv, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer srv.Close()

	httpServer := srv.httpServer
	if httpServer.ReadHeaderTimeout != timeouts.ReadHeader {
		t.Fatalf("ReadHeaderTimeout = %v, want %v", httpServer.ReadHeaderTimeout, timeouts.ReadHeader)
	}
	// A stalled upload body is bounded by the read deadline, not the write one.
	if httpServer.ReadTimeout != timeouts.ReadBody || httpServer.ReadTimeout <= 0 {
		t.Fatalf("ReadTimeout = %v, want %v", httpServer.ReadTimeout, timeouts.ReadBody)
	}
	if httpServer.WriteTimeout != timeouts.Write {
		t.Fatalf("WriteTimeout = %v, want %v", httpServer.WriteTimeout, timeouts.Write)
	}
	if httpServer.IdleTimeout != timeouts.Idle || httpServer.IdleTimeout <= 0 {
		t.Fatalf("IdleTimeout = %v, want %v", httpServer.IdleTimeout, timeouts.Idle)
	}
}

package taskdesk

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("taskdesk", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != "localhost:8080" {
		t.Fatalf("HTTPAddr = %q, want %q", cfg.HTTPAddr, "localhost:8080")
	}
	if cfg.GRPCPort != 8081 {
		t.Fatalf("GRPCPort = %d, want 8081", cfg.GRPCPort)
	}
	if cfg.DBPath != "data/taskdesk.db" {
		t.Fatalf("DBPath = %q", cfg.DBPath)
	}
	if cfg.UploadDir != "data/uploads" {
		t.Fatalf("UploadDir = %q", cfg.UploadDir)
	}
	if cfg.IdleTimeout != 10*time.Minute {
		t.Fatalf("IdleTimeout = %v, want 10m", cfg.IdleTimeout)
	}
	if cfg.Admin.Email != "admin@gmail.com" || cfg.Admin.Username != "admin" || cfg.Admin.Password != "admin" {
		t.Fatalf("Admin = %+v", cfg.Admin)
	}
}

func TestParseConfigReadsEnv(t *testing.T) {
	t.Setenv("TASKDESK_DB_PATH", "/tmp/td.db")
	t.Setenv("TASKDESK_SESSION_IDLE_TIMEOUT", "90s")
	t.Setenv("TASKDESK_ADMIN_EMAIL", "root@example.com")

	cfg, err := ParseConfig(flag.NewFlagSet("taskdesk", flag.ContinueOnError), nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.DBPath != "/tmp/td.db" {
		t.Fatalf("DBPath = %q", cfg.DBPath)
	}
	if cfg.IdleTimeout != 90*time.Second {
		t.Fatalf("IdleTimeout = %v", cfg.IdleTimeout)
	}
	if cfg.Admin.Email != "root@example.com" {
		t.Fatalf("Admin.Email = %q", cfg.Admin.Email)
	}
}

func TestParseConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("TASKDESK_HTTP_ADDR", "env:9000")

	cfg, err := ParseConfig(flag.NewFlagSet("taskdesk", flag.ContinueOnError), []string{"-http-addr", "127.0.0.1:9002", "-grpc-port", "9003"})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:9002" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if got := cfg.ServerConfig().GRPCAddr; got != ":9003" {
		t.Fatalf("GRPCAddr = %q, want %q", got, ":9003")
	}
}

func TestParseConfigRejectsBadPort(t *testing.T) {
	if _, err := ParseConfig(flag.NewFlagSet("taskdesk", flag.ContinueOnError), []string{"-grpc-port", "0"}); err == nil {
		t.Fatal("expected port error")
	}
}

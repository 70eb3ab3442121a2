// Package server wires the taskdesk runtime with its HTTP and gRPC lifecycle.
package server

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/louisbranch/taskdesk/internal/platform/timeouts"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/admin"
	httpapi "github.com/louisbranch/taskdesk/internal/services/taskdesk/api/http"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/credentials"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/documents"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/guard"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/service"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/session"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/storage/sqlite"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/tasks"
)

// HealthService is the gRPC health service name reported by the server.
const HealthService = "taskdesk"

// Config holds runtime settings for a taskdesk server.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	DBPath      string
	UploadDir   string
	IdleTimeout time.Duration
	// SigningKeyHex is the hex-encoded session signing key. Empty means a
	// random per-process key.
	SigningKeyHex string
	Admin         admin.BootstrapConfig
}

// Server hosts the taskdesk HTTP API and gRPC health endpoint.
type Server struct {
	httpListener net.Listener
	httpServer   *http.Server
	listener     net.Listener
	grpcServer   *grpc.Server
	health       *health.Server
	store        *sqlite.Store
	sessions     *session.Manager
}

// New opens storage, bootstraps the admin account and binds both listeners.
func New(ctx context.Context, cfg Config) (*Server, error) {
	signingKey, err := decodeSigningKey(cfg.SigningKeyHex)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	srv := &Server{store: store}
	if err := srv.build(ctx, cfg, signingKey); err != nil {
		srv.Close()
		return nil, err
	}
	return srv, nil
}

func (s *Server) build(ctx context.Context, cfg Config, signingKey []byte) error {
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	creds := credentials.NewService(s.store)
	sessions, err := session.NewManager(s.store, creds, session.Config{
		IdleTimeout: cfg.IdleTimeout,
		SigningKey:  signingKey,
	})
	if err != nil {
		return fmt.Errorf("new session manager: %w", err)
	}
	s.sessions = sessions
	docs, err := documents.NewEnforcer(s.store, s.store, documents.Config{Root: cfg.UploadDir})
	if err != nil {
		return fmt.Errorf("new document enforcer: %w", err)
	}
	adminSvc := admin.NewService(s.store, creds, docs, sessions)
	created, err := adminSvc.EnsureAdmin(ctx, cfg.Admin)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		log.Printf("created admin account %s", cfg.Admin.Email)
	}

	svc, err := service.New(service.Deps{
		Credentials: creds,
		Sessions:    sessions,
		Guard:       guard.New(sessions),
		Tasks:       tasks.NewService(s.store),
		Documents:   docs,
		Admin:       adminSvc,
	})
	if err != nil {
		return fmt.Errorf("new service: %w", err)
	}

	s.httpListener, err = net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen on http addr %s: %w", cfg.HTTPAddr, err)
	}
	s.httpServer = &http.Server{
		Handler:           httpapi.NewHandler(svc, nil).Routes(),
		ReadHeaderTimeout: timeouts.ReadHeader,
		ReadTimeout:       timeouts.ReadBody,
		WriteTimeout:      timeouts.Write,
		IdleTimeout:       timeouts.Idle,
	}

	s.listener, err = net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.GRPCAddr, err)
	}
	s.grpcServer = grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	s.health = health.NewServer()
	grpc_health_v1.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(HealthService, grpc_health_v1.HealthCheckResponse_SERVING)
	return nil
}

// Addr returns the gRPC listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// HTTPAddr returns the HTTP listener address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// Run creates and serves a taskdesk server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	srv, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

// Serve runs both servers and the session sweeper until the context ends or
// either server fails.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.sweepSessions(sweepCtx, timeouts.SessionSweep)

	log.Printf("taskdesk gRPC health listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	log.Printf("taskdesk HTTP server listening at %v", s.httpListener.Addr())
	httpErr := make(chan error, 1)
	go func() {
		httpErr <- s.httpServer.Serve(s.httpListener)
	}()

	handleErr := func(err error) error {
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
	shutdownGRPC := func() {
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
	}
	shutdownHTTP := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown http server: %v", err)
		}
	}

	select {
	case <-ctx.Done():
		shutdownHTTP()
		shutdownGRPC()
		return handleErr(<-serveErr)
	case err := <-serveErr:
		shutdownHTTP()
		return handleErr(err)
	case err := <-httpErr:
		shutdownGRPC()
		if handled := handleErr(<-serveErr); handled != nil {
			return handled
		}
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}
}

func (s *Server) sweepSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.sessions.Sweep(now)
		}
	}
}

// Close releases listeners and storage.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.httpListener != nil {
		_ = s.httpListener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close taskdesk store: %v", err)
		}
		s.store = nil
	}
}

func decodeSigningKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode session signing key: %w", err)
	}
	return key, nil
}

func openStore(ctx context.Context, path string) (*sqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open taskdesk sqlite store: %w", err)
	}
	return store, nil
}

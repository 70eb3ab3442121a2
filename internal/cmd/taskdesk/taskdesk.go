// Package taskdesk parses taskdesk command flags and launches the service.
package taskdesk

import (
	"context"
	"flag"
	"net"
	"strconv"
	"time"

	entrypoint "github.com/louisbranch/taskdesk/internal/platform/cmd"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/admin"
	server "github.com/louisbranch/taskdesk/internal/services/taskdesk/app"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/session"
)

// Config holds taskdesk command configuration.
type Config struct {
	HTTPAddr    string        `env:"TASKDESK_HTTP_ADDR" envDefault:"localhost:8080"`
	GRPCPort    int           `env:"TASKDESK_GRPC_PORT" envDefault:"8081"`
	DBPath      string        `env:"TASKDESK_DB_PATH" envDefault:"data/taskdesk.db"`
	UploadDir   string        `env:"TASKDESK_UPLOAD_DIR" envDefault:"data/uploads"`
	IdleTimeout time.Duration `env:"TASKDESK_SESSION_IDLE_TIMEOUT" envDefault:"10m"`
	SigningKey  string        `env:"TASKDESK_SESSION_SIGNING_KEY"`
	Admin       admin.BootstrapConfig
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The taskdesk HTTP server address")
	fs.IntVar(&cfg.GRPCPort, "grpc-port", cfg.GRPCPort, "The taskdesk gRPC health port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The SQLite database path")
	fs.StringVar(&cfg.UploadDir, "upload-dir", cfg.UploadDir, "The directory holding uploaded files")
	fs.DurationVar(&cfg.IdleTimeout, "session-idle-timeout", cfg.IdleTimeout, "How long an unused session stays valid")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if err := entrypoint.ValidatePort("grpc", cfg.GRPCPort); err != nil {
		return Config{}, err
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = session.DefaultIdleTimeout
	}
	return cfg, nil
}

// ServerConfig maps command configuration onto the server runtime.
func (c Config) ServerConfig() server.Config {
	return server.Config{
		HTTPAddr:      c.HTTPAddr,
		GRPCAddr:      net.JoinHostPort("", strconv.Itoa(c.GRPCPort)),
		DBPath:        c.DBPath,
		UploadDir:     c.UploadDir,
		IdleTimeout:   c.IdleTimeout,
		SigningKeyHex: c.SigningKey,
		Admin:         c.Admin,
	}
}

// Run starts the taskdesk service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceTaskdesk, func(ctx context.Context) error {
		return server.Run(ctx, cfg.ServerConfig())
	})
}

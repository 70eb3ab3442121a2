// Package hmackey generates session signing keys in env-file form.
package hmackey

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
)

// EnvName is the variable the session manager reads its signing key from.
const EnvName = "TASKDESK_SESSION_SIGNING_KEY"

// MinBytes is the shortest key the session manager accepts.
const MinBytes = 32

// Config holds configuration for signing key generation.
type Config struct {
	Bytes int
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Bytes: MinBytes}
	fs.IntVar(&cfg.Bytes, "bytes", cfg.Bytes, "number of random bytes, at least 32")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run generates a key and writes it to out as NAME=hex.
func Run(cfg Config, out io.Writer, reader io.Reader) error {
	if cfg.Bytes < MinBytes {
		return fmt.Errorf("bytes must be at least %d", MinBytes)
	}
	if out == nil {
		return fmt.Errorf("output is required")
	}
	if reader == nil {
		reader = rand.Reader
	}

	key := make([]byte, cfg.Bytes)
	if _, err := io.ReadFull(reader, key); err != nil {
		return fmt.Errorf("generate random bytes: %w", err)
	}
	_, err := fmt.Fprintf(out, "%s=%s\n", EnvName, hex.EncodeToString(key))
	return err
}

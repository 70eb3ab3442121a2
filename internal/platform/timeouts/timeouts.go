// Package timeouts defines shared timeout constants used across services.
// Centralizing these values prevents drift between service boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// StoreOp caps a single externally triggered operation, covering its
// database and filesystem work.
const StoreOp = 5 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// ReadBody limits how long an HTTP server waits for a full request,
// including upload bodies.
const ReadBody = 30 * time.Second

// Idle limits how long a keep-alive connection waits for its next request.
const Idle = 2 * time.Minute

// Write limits how long an HTTP handler may take to write a response,
// including streamed document downloads.
const Write = 30 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// SessionSweep is the interval between expired-session sweeps.
const SessionSweep = time.Minute

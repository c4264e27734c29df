// Package timeouts defines shared timeout constants used across the gateway.
// Centralizing these values keeps the bridge, the lifecycle controller and the
// command host in agreement.
package timeouts

import "time"

// Request caps one HTTP round trip through the protocol engine.
const Request = 30 * time.Second

// StopWait bounds how long a stop waits for the supervised tasks to exit.
const StopWait = time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Idle closes keep-alive connections that carry no request for this long,
// freeing their slot under the connection limit.
const Idle = 60 * time.Second

// Shutdown limits how long the command host waits for the gateway and
// telemetry to flush when the process is asked to exit.
const Shutdown = 5 * time.Second

// StartRetry bounds the total time spent retrying a failed bind.
const StartRetry = 10 * time.Second

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTimeout is the execution timeout used when neither the caller nor
// the bridge configuration supplies one.
const DefaultTimeout = 30 * time.Second

// Bridge executes code in a CAD engine's context and reports a normalized
// result, independent of transport.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use. Calls are
// serialized internally; the engine never sees two executions at once.
// - Context: Execute waits at most for the timeout (or the context deadline,
// whichever is sooner). Expiry cancels the wait, not the work.
// - Errors: Execute reports timeout, connection, protocol, and execution
// failures inside ExecutionResult; it returns a non-nil error only for
// invalid arguments (ErrInvalidArgument).
// - Ownership: the live connection or worker is owned by the bridge and never
// exposed to callers.
type Bridge interface {
	// Mode returns the transport identifier (e.g. "embedded", "socket").
	Mode() string

	// Connect acquires whatever the transport needs. On failure the bridge
	// is left disconnected and the error matches ErrConnection.
	Connect(ctx context.Context) error

	// Disconnect releases resources. It is safe to call before Connect and
	// more than once.
	Disconnect(ctx context.Context) error

	// IsConnected is a best-effort liveness check.
	IsConnected(ctx context.Context) bool

	// Execute runs code in the engine. A zero timeout selects the bridge's
	// configured default.
	Execute(ctx context.Context, code string, timeout time.Duration) (ExecutionResult, error)

	// Status reports connection health, querying the engine as needed.
	Status(ctx context.Context) ConnectionStatus
}

// Pinger is implemented by bridges with a cheap round-trip call.
type Pinger interface {
	// Ping performs one round trip and returns its latency.
	Ping(ctx context.Context) (time.Duration, error)
}

// Factory creates a bridge instance for a registry entry.
type Factory func(name string) (Bridge, error)

// Logger is the logging surface used by bridges. *slog.Logger satisfies it.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: logging must be best-effort and must not panic.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LoggerOrDefault returns l, or slog.Default() when l is nil.
func LoggerOrDefault(l Logger) Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

// ResolveTimeout validates a caller-supplied timeout and substitutes the
// fallback for zero.
func ResolveTimeout(timeout, fallback time.Duration) (time.Duration, error) {
	if timeout < 0 {
		return 0, fmt.Errorf("%w: negative timeout %v", ErrInvalidArgument, timeout)
	}
	if timeout == 0 {
		timeout = fallback
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return timeout, nil
}

// TimeoutResult builds the failure reported when a wait of d expires.
func TimeoutResult(d time.Duration) ExecutionResult {
	r := Failed(KindTimeout, fmt.Sprintf("Execution timed out after %dms", d.Milliseconds()))
	r.ErrorType = "TimeoutError"
	r.ExecutionTimeMs = Millis(d)
	return r
}

// WaitResult builds the failure reported when a wait for a reply ends early
// or at its timeout. The reported time is elapsed, capped at timeout. A
// canceled wait carries err in ErrorDetail.
func WaitResult(err error, timeout, elapsed time.Duration) ExecutionResult {
	d := min(elapsed, timeout)
	r := TimeoutResult(d)
	if errors.Is(err, context.Canceled) {
		detail := fmt.Sprintf("Execution canceled after %dms: %v", d.Milliseconds(), err)
		r.Stderr, r.ErrorDetail = detail, detail
	}
	return r
}

// ConnectionResult builds the failure reported for a transport error.
func ConnectionResult(err error) ExecutionResult {
	r := Failed(KindConnection, err.Error())
	r.ErrorType = "ConnectionError"
	r.cause = err
	return r
}

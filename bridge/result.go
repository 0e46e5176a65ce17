package bridge

import (
	"fmt"
	"time"
)

// ErrorKind is the coarse classification of a failed execution.
type ErrorKind string

// Error kinds reported in ExecutionResult.ErrorKind.
const (
	KindExecution  ErrorKind = "execution"
	KindTimeout    ErrorKind = "timeout"
	KindConnection ErrorKind = "connection"
	KindProtocol   ErrorKind = "protocol"
)

// IsValid reports whether k is one of the known error kinds.
func (k ErrorKind) IsValid() bool {
	switch k {
	case KindExecution, KindTimeout, KindConnection, KindProtocol:
		return true
	}
	return false
}

// ExecutionResult is the normalized outcome of one Execute call.
//
// A failed result never carries a Result value and always carries an
// ErrorKind. Use Normalize after building a result by hand.
type ExecutionResult struct {
	// Success is true when the code ran to completion.
	Success bool `json:"success"`

	// Result is the value bound to the result slot, or nil when the code
	// did not produce one.
	Result any `json:"result,omitempty"`

	// Stdout and Stderr hold the captured output streams.
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`

	// ExecutionTimeMs is the wall time of the call in milliseconds.
	ExecutionTimeMs float64 `json:"execution_time_ms"`

	// ErrorKind classifies the failure. Empty on success.
	ErrorKind ErrorKind `json:"error_kind,omitempty"`

	// ErrorType is the engine's name for the raised error (for example
	// "ZeroDivisionError"), when known.
	ErrorType string `json:"error_type,omitempty"`

	// ErrorDetail is a human-readable diagnostic such as a stack trace.
	ErrorDetail string `json:"error_detail,omitempty"`

	// cause is the in-process error behind a transport failure. It is not
	// serialized.
	cause error
}

// Succeeded builds a successful result.
func Succeeded(value any, stdout, stderr string, elapsed time.Duration) ExecutionResult {
	return ExecutionResult{
		Success:         true,
		Result:          value,
		Stdout:          stdout,
		Stderr:          stderr,
		ExecutionTimeMs: Millis(elapsed),
	}
}

// Failed builds a failed result of the given kind. The detail is also
// mirrored into Stderr so callers that only show output still see the cause.
func Failed(kind ErrorKind, detail string) ExecutionResult {
	r := ExecutionResult{
		Success:     false,
		Stderr:      detail,
		ErrorKind:   kind,
		ErrorDetail: detail,
	}
	return r.Normalize()
}

// Normalize enforces the result invariants: a failure drops any Result
// value and defaults ErrorKind to KindExecution; a success clears the
// error fields.
func (r ExecutionResult) Normalize() ExecutionResult {
	if r.Success {
		r.ErrorKind = ""
		r.ErrorType = ""
		r.ErrorDetail = ""
		r.cause = nil
		return r
	}
	r.Result = nil
	if r.ErrorKind == "" {
		r.ErrorKind = KindExecution
	}
	if r.ExecutionTimeMs < 0 {
		r.ExecutionTimeMs = 0
	}
	return r
}

// WithElapsed returns a copy of r with ExecutionTimeMs set from d.
func (r ExecutionResult) WithElapsed(d time.Duration) ExecutionResult {
	r.ExecutionTimeMs = Millis(d)
	return r
}

// Err returns nil for a successful result, otherwise an *ExecutionError
// describing the failure. A result built by ConnectionResult unwraps to the
// transport error, so errors.Is(r.Err(), ErrNotConnected) works in process.
func (r ExecutionResult) Err() error {
	if r.Success {
		return nil
	}
	return &ExecutionError{
		Kind:   r.ErrorKind,
		Type:   r.ErrorType,
		Detail: r.ErrorDetail,
		Err:    r.cause,
	}
}

// LimitOutput truncates Stdout and Stderr to at most maxBytes each. A
// non-positive maxBytes leaves the result unchanged.
func (r ExecutionResult) LimitOutput(maxBytes int) ExecutionResult {
	if maxBytes <= 0 {
		return r
	}
	r.Stdout = truncate(r.Stdout, maxBytes)
	r.Stderr = truncate(r.Stderr, maxBytes)
	return r
}

func truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	dropped := len(s) - maxBytes
	return s[:maxBytes] + fmt.Sprintf("\n... [truncated %d bytes]", dropped)
}

// Millis converts a duration to fractional milliseconds.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// ConnectionStatus is a point-in-time view of a bridge's health. It is
// computed on demand by Bridge.Status and never cached.
type ConnectionStatus struct {
	Connected     bool     `json:"connected"`
	Mode          string   `json:"mode"`
	EngineVersion string   `json:"engine_version,omitempty"`
	GUIAvailable  bool     `json:"gui_available"`
	LastPingMs    *float64 `json:"last_ping_ms,omitempty"`
	Error         string   `json:"error,omitempty"`
}

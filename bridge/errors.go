package bridge

import (
	"errors"
	"fmt"
)

// Sentinel errors for error classification.
var (
	// ErrExecution indicates the code raised inside the engine.
	ErrExecution = errors.New("execution error")

	// ErrTimeout indicates the caller's wait exceeded its bound.
	ErrTimeout = errors.New("execution timed out")

	// ErrConnection indicates the transport is unusable.
	ErrConnection = errors.New("connection error")

	// ErrProtocol indicates the peer answered with an error object or a
	// response that could not be understood.
	ErrProtocol = errors.New("protocol error")

	// ErrNotConnected is returned when an operation needs a live
	// connection and there is none. It matches ErrConnection.
	ErrNotConnected = fmt.Errorf("%w: not connected", ErrConnection)

	// ErrInvalidArgument indicates a programming error in the caller.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownMode is returned by Registry.Open for a transport with no
	// registered factory.
	ErrUnknownMode = errors.New("unknown bridge mode")
)

// kindSentinel maps an ErrorKind to its sentinel error.
func kindSentinel(k ErrorKind) error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindConnection:
		return ErrConnection
	case KindProtocol:
		return ErrProtocol
	default:
		return ErrExecution
	}
}

// ExecutionError is the error form of a failed ExecutionResult.
type ExecutionError struct {
	Kind   ErrorKind
	Type   string
	Detail string

	// Err is the underlying transport error, when known.
	Err error
}

// Error returns the kind, type, and detail of the failure.
func (e *ExecutionError) Error() string {
	msg := string(e.Kind)
	if e.Type != "" {
		msg += " (" + e.Type + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is reports whether target is the sentinel for this error's kind.
func (e *ExecutionError) Is(target error) bool {
	return target == kindSentinel(e.Kind)
}

// Unwrap returns the underlying transport error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// ConnectionError describes a transport failure against a specific address.
type ConnectionError struct {
	// Op is the operation that failed ("connect", "write", "read", ...).
	Op string

	// Addr is the peer address, when there is one.
	Addr string

	// Message overrides the default rendering when set.
	Message string

	// Err is the underlying error.
	Err error
}

// Error renders the failure for humans, e.g.
// "connection to localhost:9876 timed out".
func (e *ConnectionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	switch {
	case e.Addr != "" && e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	case e.Addr != "":
		return fmt.Sprintf("%s %s failed", e.Op, e.Addr)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + " failed"
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Is makes every ConnectionError match ErrConnection.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}

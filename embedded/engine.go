package embedded

import (
	"errors"
	"fmt"
	"io"

	"github.com/jonwraymond/cadbridge/bridge"
)

// ErrEngineUnavailable is returned by loaders that cannot provide an engine.
var ErrEngineUnavailable = errors.New("embedded engine not available")

// Env is the execution environment handed to an Engine for one call.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer

	// Result is the call's output slot. Leaving it unbound means the call
	// produced no result.
	Result *bridge.Slot
}

// Engine runs code. It is only ever called from the worker goroutine.
//
// Contract:
// - Concurrency: never called concurrently; no locking required.
// - Errors: a non-nil error reports an execution failure. Return a
// *ScriptError to carry the engine's error type and traceback.
// - Ownership: env and its writers are valid only for the duration of
// the call.
//
// An Engine that also implements io.Closer is closed on the worker when the
// bridge disconnects.
type Engine interface {
	Execute(code string, env *Env) error
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(code string, env *Env) error

// Execute calls f.
func (f EngineFunc) Execute(code string, env *Env) error {
	return f(code, env)
}

// Loader creates the engine. It runs on the worker goroutine after the
// goroutine is locked to its OS thread.
type Loader func() (Engine, error)

// Unavailable returns a Loader that always fails with reason.
func Unavailable(reason string) Loader {
	return func() (Engine, error) {
		return nil, fmt.Errorf("%w: %s", ErrEngineUnavailable, reason)
	}
}

// ScriptError is a typed failure raised by executed code.
type ScriptError struct {
	// Type is the engine's name for the error, e.g. "NameError".
	Type string

	// Message is the error message.
	Message string

	// Traceback is the engine's stack trace, when available.
	Traceback string
}

// Error returns "Type: Message".
func (e *ScriptError) Error() string {
	switch {
	case e.Type == "":
		return e.Message
	case e.Message == "":
		return e.Type
	}
	return e.Type + ": " + e.Message
}

// Is makes a ScriptError match bridge.ErrExecution.
func (e *ScriptError) Is(target error) bool {
	return target == bridge.ErrExecution
}

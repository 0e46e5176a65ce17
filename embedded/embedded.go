package embedded

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jonwraymond/cadbridge/bridge"
)

// Mode is the transport identifier reported by the bridge.
const Mode = "embedded"

// Config configures an embedded bridge.
type Config struct {
	// Loader creates the engine on the worker. Required.
	Loader Loader

	// Timeout is the default execution timeout.
	// Default: 30s
	Timeout time.Duration

	// Logger is an optional logger for worker events.
	Logger bridge.Logger
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Loader == nil {
		return fmt.Errorf("%w: loader is required", bridge.ErrInvalidArgument)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout %v", bridge.ErrInvalidArgument, c.Timeout)
	}
	return nil
}

// Bridge runs code in an in-process engine through a single worker.
type Bridge struct {
	loader  Loader
	timeout time.Duration
	logger  bridge.Logger

	// lifeMu serializes Connect and Disconnect.
	lifeMu sync.Mutex

	// draining is a stopped worker that may not have exited yet.
	// Guarded by lifeMu.
	draining *worker

	mu sync.Mutex
	w  *worker
}

// New creates an embedded bridge. The engine is not loaded until Connect.
func New(cfg Config) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = bridge.DefaultTimeout
	}
	return &Bridge{
		loader:  cfg.Loader,
		timeout: timeout,
		logger:  bridge.LoggerOrDefault(cfg.Logger),
	}, nil
}

// Mode returns "embedded".
func (b *Bridge) Mode() string {
	return Mode
}

// Connect starts the worker and loads the engine on it. Calling Connect on
// a connected bridge is a no-op. If a previous worker is still finishing an
// abandoned call, Connect waits for it to exit until ctx is done.
func (b *Bridge) Connect(ctx context.Context) error {
	b.lifeMu.Lock()
	defer b.lifeMu.Unlock()

	if b.current() != nil {
		return nil
	}
	if err := b.drain(ctx); err != nil {
		return &bridge.ConnectionError{
			Op:      "load",
			Message: "Previous embedded worker is still running",
			Err:     err,
		}
	}

	w := newWorker()
	ready := make(chan error, 1)
	go w.run(b.loader, ready)

	select {
	case err := <-ready:
		if err != nil {
			return &bridge.ConnectionError{
				Op:      "load",
				Message: fmt.Sprintf("Failed to load engine: %v", err),
				Err:     err,
			}
		}
	case <-ctx.Done():
		w.stop()
		b.draining = w
		return &bridge.ConnectionError{Op: "load", Err: ctx.Err()}
	}

	b.mu.Lock()
	b.w = w
	b.mu.Unlock()
	b.logger.Info("embedded engine loaded")
	return nil
}

// Disconnect stops the worker after its current call and closes the engine.
// It waits until ctx is done. A worker that outlives ctx is waited for again
// by the next Connect or Disconnect.
func (b *Bridge) Disconnect(ctx context.Context) error {
	b.lifeMu.Lock()
	defer b.lifeMu.Unlock()

	b.mu.Lock()
	w := b.w
	b.w = nil
	b.mu.Unlock()
	if w == nil {
		return b.drain(ctx)
	}

	w.stop()
	b.draining = w
	if err := b.drain(ctx); err != nil {
		return err
	}
	b.logger.Info("embedded engine stopped")
	return nil
}

// drain waits for a stopped worker to exit. The caller holds lifeMu.
func (b *Bridge) drain(ctx context.Context) error {
	if b.draining == nil {
		return nil
	}
	select {
	case <-b.draining.done:
		b.draining = nil
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for embedded worker: %w", ctx.Err())
	}
}

// IsConnected reports whether the engine is loaded and the worker running.
func (b *Bridge) IsConnected(_ context.Context) bool {
	w := b.current()
	if w == nil {
		return false
	}
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

// Execute runs code on the worker. A zero timeout uses the configured
// Timeout.
func (b *Bridge) Execute(ctx context.Context, code string, timeout time.Duration) (bridge.ExecutionResult, error) {
	timeout, err := bridge.ResolveTimeout(timeout, b.timeout)
	if err != nil {
		return bridge.ExecutionResult{}, err
	}

	w := b.current()
	if w == nil {
		return notConnected(), nil
	}

	start := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	j := job{code: code, reply: make(chan bridge.ExecutionResult, 1)}
	select {
	case w.jobs <- j:
	case <-w.done:
		return notConnected(), nil
	case <-waitCtx.Done():
		b.logger.Debug("embedded call timed out before it started", "timeout", timeout, "error", waitCtx.Err())
		return bridge.WaitResult(waitCtx.Err(), timeout, time.Since(start)), nil
	}

	select {
	case res := <-j.reply:
		return res, nil
	case <-waitCtx.Done():
		b.logger.Warn("embedded call timed out; engine is still running it", "timeout", timeout, "error", waitCtx.Err())
		return bridge.WaitResult(waitCtx.Err(), timeout, time.Since(start)), nil
	}
}

// Status reports whether the engine is loaded and, if so, its version.
func (b *Bridge) Status(ctx context.Context) bridge.ConnectionStatus {
	return bridge.BuildStatus(ctx, b)
}

func (b *Bridge) current() *worker {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.w
}

func notConnected() bridge.ExecutionResult {
	return bridge.ConnectionResult(&bridge.ConnectionError{
		Message: "FreeCAD bridge not connected",
		Err:     bridge.ErrNotConnected,
	})
}

type job struct {
	code  string
	reply chan bridge.ExecutionResult
}

// worker owns the engine. Everything that touches the engine runs on the
// worker goroutine.
type worker struct {
	jobs     chan job
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newWorker() *worker {
	return &worker{
		jobs: make(chan job),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (w *worker) stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}

// run never unlocks the OS thread, so the thread exits with the worker and
// takes any engine thread state with it.
func (w *worker) run(load Loader, ready chan<- error) {
	runtime.LockOSThread()
	defer close(w.done)

	engine, err := safeLoad(load)
	ready <- err
	if err != nil {
		return
	}
	defer closeEngine(engine)

	for {
		select {
		case <-w.quit:
			return
		case j := <-w.jobs:
			j.reply <- runJob(engine, j.code)
		}
	}
}

func safeLoad(load Loader) (engine Engine, err error) {
	defer func() {
		if r := recover(); r != nil {
			engine, err = nil, fmt.Errorf("loader panicked: %v", r)
		}
	}()
	engine, err = load()
	if err == nil && engine == nil {
		err = errors.New("loader returned no engine")
	}
	return engine, err
}

func closeEngine(engine Engine) {
	if c, ok := engine.(io.Closer); ok {
		_ = c.Close()
	}
}

func runJob(engine Engine, code string) bridge.ExecutionResult {
	var stdout, stderr bytes.Buffer
	slot := &bridge.Slot{}
	env := &Env{Stdout: &stdout, Stderr: &stderr, Result: slot}

	start := time.Now()
	err := safeExecute(engine, code, env)
	elapsed := time.Since(start)

	if err != nil {
		res := bridge.ExecutionResult{
			Success:   false,
			Stdout:    stdout.String(),
			Stderr:    stderr.String(),
			ErrorKind: bridge.KindExecution,
		}
		var se *ScriptError
		if errors.As(err, &se) {
			res.ErrorType = se.Type
			res.ErrorDetail = se.Traceback
		}
		if res.ErrorType == "" {
			res.ErrorType = "Error"
		}
		if res.ErrorDetail == "" {
			res.ErrorDetail = err.Error()
		}
		if res.Stderr == "" {
			res.Stderr = err.Error()
		}
		return res.Normalize().WithElapsed(elapsed)
	}

	out := stdout.String()
	value, ok := slot.Value()
	if !ok {
		if v, rest, found := bridge.ExtractSlotLine(out); found {
			value, out = v, rest
		}
	}
	return bridge.Succeeded(value, out, stderr.String(), elapsed)
}

func safeExecute(engine Engine, code string, env *Env) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ScriptError{
				Type:      "panic",
				Message:   fmt.Sprint(r),
				Traceback: string(debug.Stack()),
			}
		}
	}()
	return engine.Execute(code, env)
}

var _ bridge.Bridge = (*Bridge)(nil)

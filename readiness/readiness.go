// Package readiness defers a startup callback until a host-owned readiness
// flag turns true.
//
// The host publishes readiness only as a boolean with no completion event,
// so the gate polls it on a fixed interval using a timer that belongs to the
// host's own event loop. Every check and the callback itself run on that
// loop; the gate never starts goroutines of its own.
package readiness

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Defaults for Config.
const (
	DefaultInterval = 250 * time.Millisecond
	DefaultTimeout  = 60 * time.Second
)

// ErrInvalidConfig is returned for an incomplete Config.
var ErrInvalidConfig = errors.New("invalid readiness config")

// State is the lifecycle state of a Gate.
type State int

// Gate states. Ready and TimedOut are terminal.
const (
	Waiting State = iota
	Ready
	TimedOut
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Ready:
		return "ready"
	case TimedOut:
		return "timed_out"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Scheduler is the host event loop's one-shot timer. fn must run on the
// loop's own thread.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// Logger is the logging surface used by the gate.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: logging must be best-effort and must not panic.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config configures a Gate.
type Config struct {
	// Ready reports the host flag. It is only read, never written.
	// Required.
	Ready func() bool

	// Callback runs once, on the loop, when Ready reports true. Required.
	Callback func()

	// Scheduler places checks on the host loop. Required.
	Scheduler Scheduler

	// Clock measures the deadline. Default: the real clock.
	Clock clockwork.Clock

	// Interval is the time between checks.
	// Default: 250ms
	Interval time.Duration

	// Timeout is how long to wait before giving up.
	// Default: 60s
	Timeout time.Duration

	// LogPrefix names the caller in log messages.
	// Default: "readiness"
	LogPrefix string

	// TimeoutHelp is logged on its own line after the timeout message, e.g.
	// instructions for starting without a GUI. Surrounding whitespace is
	// trimmed.
	TimeoutHelp string

	// Logger receives progress and the timeout report.
	Logger Logger
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	switch {
	case c.Ready == nil:
		return fmt.Errorf("%w: ready func is required", ErrInvalidConfig)
	case c.Callback == nil:
		return fmt.Errorf("%w: callback is required", ErrInvalidConfig)
	case c.Scheduler == nil:
		return fmt.Errorf("%w: scheduler is required", ErrInvalidConfig)
	case c.Interval < 0 || c.Timeout < 0:
		return fmt.Errorf("%w: negative interval or timeout", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.LogPrefix == "" {
		c.LogPrefix = "readiness"
	}
	if c.Logger == nil {
		c.Logger = nopLogger{}
	}
}

// Gate polls a readiness flag and fires a callback at most once.
type Gate struct {
	cfg Config

	mu       sync.Mutex
	state    State
	started  bool
	deadline time.Time
	done     chan struct{}
}

// New creates a gate. It does nothing until Start.
func New(cfg Config) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &Gate{cfg: cfg, done: make(chan struct{})}, nil
}

// Start schedules the first check on the loop. Later calls are no-ops.
func (g *Gate) Start() {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return
	}
	g.started = true
	g.deadline = g.cfg.Clock.Now().Add(g.cfg.Timeout)
	g.mu.Unlock()

	g.cfg.Logger.Info(g.cfg.LogPrefix+": waiting for GUI",
		"interval", g.cfg.Interval, "timeout", g.cfg.Timeout)
	g.cfg.Scheduler.AfterFunc(0, g.check)
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Done is closed when the gate reaches a terminal state.
func (g *Gate) Done() <-chan struct{} {
	return g.done
}

// check runs on the loop.
func (g *Gate) check() {
	g.mu.Lock()
	if g.state != Waiting {
		g.mu.Unlock()
		return
	}
	deadline := g.deadline
	g.mu.Unlock()

	if g.cfg.Ready() {
		g.finish(Ready)
		g.cfg.Logger.Info(g.cfg.LogPrefix + ": GUI ready")
		g.cfg.Callback()
		return
	}

	if !g.cfg.Clock.Now().Before(deadline) {
		g.finish(TimedOut)
		msg := fmt.Sprintf("%s: timed out after %s waiting for GUI", g.cfg.LogPrefix, g.cfg.Timeout)
		if help := strings.TrimSpace(g.cfg.TimeoutHelp); help != "" {
			msg += "\n" + help
		}
		g.cfg.Logger.Error(msg)
		return
	}

	g.cfg.Scheduler.AfterFunc(g.cfg.Interval, g.check)
}

func (g *Gate) finish(s State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = s
	close(g.done)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

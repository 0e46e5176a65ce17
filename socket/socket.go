package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/jonwraymond/cadbridge/bridge"
	"github.com/jonwraymond/cadbridge/jsonrpc"
)

// Methods understood by the FreeCAD-side server.
const (
	MethodPing    = "ping"
	MethodExecute = "execute"
)

// aLongTimeAgo is a non-zero time in the past, used to unblock reads.
var aLongTimeAgo = time.Unix(1, 0)

// lostError marks a connection the peer dropped. Calls that fail this way
// are eligible for the single reconnect and resend.
type lostError struct {
	*bridge.ConnectionError
}

// Bridge executes code through a FreeCAD-side JSON-RPC socket server.
type Bridge struct {
	cfg    Config
	addr   string
	logger bridge.Logger

	// guard is a one-slot semaphore held for the whole of a request: write,
	// read, and any reconnect.
	guard chan struct{}

	mu     sync.Mutex
	conn   net.Conn
	reader *jsonrpc.LineReader
	epoch  uint64
}

// New creates a socket bridge. The bridge is not connected.
func New(cfg Config) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &Bridge{
		cfg:    cfg,
		addr:   cfg.Addr(),
		logger: bridge.LoggerOrDefault(cfg.Logger),
		guard:  make(chan struct{}, 1),
	}, nil
}

// Mode returns "socket".
func (b *Bridge) Mode() string {
	return Mode
}

// Addr returns the dialed host:port.
func (b *Bridge) Addr() string {
	return b.addr
}

// Connect dials the server and verifies it with a ping. An existing
// connection is replaced.
func (b *Bridge) Connect(ctx context.Context) error {
	if err := b.acquire(ctx); err != nil {
		return &bridge.ConnectionError{Op: "connect", Addr: b.addr, Err: err}
	}
	defer b.release()
	return b.connectLocked(ctx)
}

// Disconnect closes the connection. It waits for an in-flight request to
// finish until ctx is done, then closes the connection anyway.
func (b *Bridge) Disconnect(ctx context.Context) error {
	if err := b.acquire(ctx); err != nil {
		b.mu.Lock()
		b.epoch++
		b.mu.Unlock()
		b.closeConn()
		return nil
	}
	defer b.release()
	b.mu.Lock()
	b.epoch++
	b.mu.Unlock()
	if b.closeConn() {
		b.logger.Info("socket bridge disconnected", "addr", b.addr)
	}
	return nil
}

// IsConnected pings the server. A bridge that was never connected, or
// whose peer went away, reports false.
func (b *Bridge) IsConnected(ctx context.Context) bool {
	if !b.hasConn() {
		return false
	}
	_, err := b.Ping(ctx)
	return err == nil
}

// Ping performs one ping round trip and returns its latency.
func (b *Bridge) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if _, err := b.call(ctx, MethodPing, nil, b.cfg.Timeout); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// Call sends an arbitrary method and returns its raw result. Failures
// match bridge.ErrTimeout, bridge.ErrConnection, or bridge.ErrProtocol; an
// error object from the peer is also available as *jsonrpc.Error.
func (b *Bridge) Call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	if method == "" {
		return nil, fmt.Errorf("%w: method is required", bridge.ErrInvalidArgument)
	}
	return b.call(ctx, method, params, b.cfg.Timeout)
}

// Execute runs code on the server. A zero timeout uses the configured
// Timeout.
func (b *Bridge) Execute(ctx context.Context, code string, timeout time.Duration) (bridge.ExecutionResult, error) {
	timeout, err := bridge.ResolveTimeout(timeout, b.cfg.Timeout)
	if err != nil {
		return bridge.ExecutionResult{}, err
	}

	start := time.Now()
	raw, err := b.call(ctx, MethodExecute, map[string]any{"code": code}, timeout)
	elapsed := time.Since(start)
	if err != nil {
		return failureResult(err, timeout, elapsed), nil
	}
	return decodeExecuteResult(raw, elapsed), nil
}

// Status reports connection health.
func (b *Bridge) Status(ctx context.Context) bridge.ConnectionStatus {
	if !b.hasConn() {
		return bridge.ConnectionStatus{Mode: Mode, Error: "Not connected"}
	}
	return bridge.BuildStatus(ctx, b)
}

func (b *Bridge) acquire(ctx context.Context) error {
	select {
	case b.guard <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bridge) release() {
	<-b.guard
}

func (b *Bridge) hasConn() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// closeConn drops the current connection and reports whether there was one.
func (b *Bridge) closeConn() bool {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.reader = nil
	b.mu.Unlock()
	if conn == nil {
		return false
	}
	_ = conn.Close()
	return true
}

// connectLocked dials and pings. The caller holds the guard.
func (b *Bridge) connectLocked(ctx context.Context) error {
	b.closeConn()

	dialCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	conn, err := b.cfg.Dialer.DialContext(dialCtx, "tcp", b.addr)
	cancel()
	if err != nil {
		if isTimeout(err) {
			return &bridge.ConnectionError{
				Op:      "connect",
				Addr:    b.addr,
				Message: fmt.Sprintf("Connection to %s timed out", b.addr),
				Err:     err,
			}
		}
		return b.connectFailed(err)
	}

	b.mu.Lock()
	b.conn = conn
	b.reader = jsonrpc.NewLineReader(conn, b.cfg.MaxLineBytes)
	b.mu.Unlock()

	pingCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()
	resp, err := b.roundTrip(pingCtx, jsonrpc.NewRequest(MethodPing, nil))
	if err == nil && resp.Error != nil {
		err = resp.Error
	}
	if err != nil {
		b.closeConn()
		return b.connectFailed(err)
	}

	b.logger.Info("socket bridge connected", "addr", b.addr)
	return nil
}

func (b *Bridge) connectFailed(err error) error {
	return &bridge.ConnectionError{
		Op:      "connect",
		Addr:    b.addr,
		Message: fmt.Sprintf("Failed to connect to %s: %v", b.addr, err),
		Err:     err,
	}
}

// call runs one request under the guard, with the single reconnect and
// resend when the peer drops the connection.
func (b *Bridge) call(ctx context.Context, method string, params map[string]any, timeout time.Duration) (json.RawMessage, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := b.acquire(waitCtx); err != nil {
		return nil, waitError(err, "bridge")
	}
	defer b.release()

	b.mu.Lock()
	epoch := b.epoch
	b.mu.Unlock()

	req := jsonrpc.NewRequest(method, params)
	resp, err := b.roundTrip(waitCtx, req)

	var lost lostError
	if errors.As(err, &lost) && *b.cfg.AutoReconnect && b.sameEpoch(epoch) {
		b.logger.Warn("socket connection lost, reconnecting",
			"addr", b.addr, "method", method, "error", lost.Err)
		if cerr := b.connectLocked(waitCtx); cerr != nil {
			b.logger.Warn("socket reconnect failed", "addr", b.addr, "error", cerr)
			return nil, lost.ConnectionError
		}
		resp, err = b.roundTrip(waitCtx, req)
	}
	if errors.As(err, &lost) {
		return nil, lost.ConnectionError
	}
	if err != nil {
		return nil, err
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %w", bridge.ErrProtocol, resp.Error)
	}
	return resp.Result, nil
}

func (b *Bridge) sameEpoch(epoch uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.epoch == epoch
}

// roundTrip writes req and reads until its response. The caller holds the
// guard; ctx carries the deadline.
func (b *Bridge) roundTrip(ctx context.Context, req jsonrpc.Request) (jsonrpc.Response, error) {
	b.mu.Lock()
	conn, reader := b.conn, b.reader
	b.mu.Unlock()
	if conn == nil {
		return jsonrpc.Response{}, &bridge.ConnectionError{
			Op:      req.Method,
			Addr:    b.addr,
			Message: "Not connected to socket server",
			Err:     bridge.ErrNotConnected,
		}
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(b.cfg.Timeout)
	}

	_ = conn.SetWriteDeadline(deadline)
	if err := jsonrpc.Encode(conn, req); err != nil {
		if isPeerGone(err) {
			return jsonrpc.Response{}, b.lost("write", err)
		}
		b.closeConn()
		return jsonrpc.Response{}, &bridge.ConnectionError{Op: "write", Addr: b.addr, Err: err}
	}

	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		_ = conn.SetReadDeadline(aLongTimeAgo)
	})
	defer func() {
		if !stop() {
			<-fired
		}
	}()

	_ = conn.SetReadDeadline(deadline)
	for {
		line, err := reader.ReadLine()
		if err != nil {
			return jsonrpc.Response{}, b.readError(ctx, req, err)
		}

		resp, err := jsonrpc.DecodeResponse(line)
		if err != nil {
			b.logger.Warn("invalid socket response", "addr", b.addr, "method", req.Method, "error", err)
			return jsonrpc.Response{}, fmt.Errorf("%w: Invalid JSON response: %w", bridge.ErrProtocol, err)
		}
		if !b.cfg.AcceptUnmatchedIDs && !resp.MatchesID(req.ID) {
			b.logger.Warn("discarding socket response with unexpected id",
				"addr", b.addr, "want", req.ID, "got", resp.IDString())
			continue
		}
		return resp, nil
	}
}

func (b *Bridge) readError(ctx context.Context, req jsonrpc.Request, err error) error {
	switch {
	case isTimeout(err):
		if ctxErr := ctx.Err(); ctxErr != nil {
			return waitError(ctxErr, req.Method)
		}
		return waitError(context.DeadlineExceeded, req.Method)
	case errors.Is(err, jsonrpc.ErrLineTooLong):
		b.closeConn()
		return &bridge.ConnectionError{
			Op:      "read",
			Addr:    b.addr,
			Message: fmt.Sprintf("Response from %s exceeded %d bytes", b.addr, b.cfg.MaxLineBytes),
			Err:     err,
		}
	case isPeerGone(err):
		return b.lost("read", err)
	default:
		b.closeConn()
		return &bridge.ConnectionError{Op: "read", Addr: b.addr, Err: err}
	}
}

// lost drops the connection and builds the reconnect-eligible error.
func (b *Bridge) lost(op string, err error) error {
	b.closeConn()
	msg := fmt.Sprintf("Connection lost: %v", err)
	if errors.Is(err, io.EOF) {
		msg = "Connection closed by server"
	}
	return lostError{&bridge.ConnectionError{Op: op, Addr: b.addr, Message: msg, Err: err}}
}

// waitError maps an expired or canceled wait to a timeout.
func waitError(err error, what string) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: waiting for %s canceled: %w", bridge.ErrTimeout, what, err)
	}
	return fmt.Errorf("%w: waiting for %s", bridge.ErrTimeout, what)
}

var (
	_ bridge.Bridge = (*Bridge)(nil)
	_ bridge.Pinger = (*Bridge)(nil)
)

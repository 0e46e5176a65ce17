package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/cadbridge/bridge"
)

// ErrBridgeRequired is returned by NewServer when no bridge is supplied.
var ErrBridgeRequired = errors.New("bridge is required")

// Server implementation defaults.
const (
	DefaultServerName    = "cadbridge"
	DefaultServerVersion = "dev"
)

// ServerOptions configures NewServer.
type ServerOptions struct {
	// Name and Version identify the server to MCP clients.
	Name    string
	Version string

	// MaxOutputSize caps stdout and stderr in execute_python results.
	// Zero disables the cap.
	MaxOutputSize int

	// Reconnect makes a tool call that finds the bridge not connected
	// connect it once and retry. Calls that failed after reaching the
	// engine are never retried.
	Reconnect bool

	// Logger receives per-call diagnostics. Default: slog.Default().
	Logger bridge.Logger
}

func (o *ServerOptions) applyDefaults() {
	if o.Name == "" {
		o.Name = DefaultServerName
	}
	if o.Version == "" {
		o.Version = DefaultServerVersion
	}
	o.Logger = bridge.LoggerOrDefault(o.Logger)
}

type handlers struct {
	bridge    bridge.Bridge
	maxOutput int
	reconnect bool
	logger    bridge.Logger
}

// NewServer returns an MCP server whose tools call b.
func NewServer(b bridge.Bridge, opts ServerOptions) (*mcp.Server, error) {
	if b == nil {
		return nil, ErrBridgeRequired
	}
	opts.applyDefaults()

	h := &handlers{bridge: b, maxOutput: opts.MaxOutputSize, reconnect: opts.Reconnect, logger: opts.Logger}
	srv := mcp.NewServer(&mcp.Implementation{Name: opts.Name, Version: opts.Version}, nil)

	for _, d := range Definitions() {
		t := d.Tool.Tool
		// Input schemas are inferred from the argument structs.
		t.InputSchema = nil
		switch t.Name {
		case ExecutePython:
			mcp.AddTool(srv, &t, h.execute)
		case GetConnectionStatus:
			mcp.AddTool(srv, &t, h.status)
		case Ping:
			mcp.AddTool(srv, &t, h.ping)
		}
	}
	return srv, nil
}

func (h *handlers) execute(ctx context.Context, _ *mcp.CallToolRequest, in ExecuteInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(in.Code) == "" {
		return nil, nil, fmt.Errorf("%w: code is required", bridge.ErrInvalidArgument)
	}
	timeout := time.Duration(in.TimeoutMs) * time.Millisecond
	r, err := h.bridge.Execute(ctx, in.Code, timeout)
	if err == nil && errors.Is(r.Err(), bridge.ErrNotConnected) && h.redial(ctx) {
		r, err = h.bridge.Execute(ctx, in.Code, timeout)
	}
	if err != nil {
		return nil, nil, err
	}
	if h.maxOutput > 0 {
		r = r.LimitOutput(h.maxOutput)
	}
	if !r.Success {
		h.logger.Debug("execute_python failed", "kind", r.ErrorKind, "type", r.ErrorType)
	}
	return &mcp.CallToolResult{IsError: !r.Success}, r, nil
}

func (h *handlers) status(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (*mcp.CallToolResult, any, error) {
	s := h.bridge.Status(ctx)
	if !s.Connected && h.reconnect {
		if _, err := measurePing(ctx, h.bridge); errors.Is(err, bridge.ErrNotConnected) && h.redial(ctx) {
			s = h.bridge.Status(ctx)
		}
	}
	return &mcp.CallToolResult{}, s, nil
}

func (h *handlers) ping(ctx context.Context, _ *mcp.CallToolRequest, _ PingInput) (*mcp.CallToolResult, any, error) {
	out, err := measurePing(ctx, h.bridge)
	if errors.Is(err, bridge.ErrNotConnected) && h.redial(ctx) {
		out, _ = measurePing(ctx, h.bridge)
	}
	return &mcp.CallToolResult{IsError: !out.Connected}, out, nil
}

// redial connects the bridge when reconnecting is enabled and reports
// whether the caller should retry.
func (h *handlers) redial(ctx context.Context) bool {
	if !h.reconnect {
		return false
	}
	if err := h.bridge.Connect(ctx); err != nil {
		h.logger.Debug("bridge still unreachable", "mode", h.bridge.Mode(), "error", err)
		return false
	}
	h.logger.Info("bridge connected", "mode", h.bridge.Mode())
	return true
}

// measurePing uses Pinger when b has one and falls back to IsConnected.
// The error is the failure behind out.Error.
func measurePing(ctx context.Context, b bridge.Bridge) (PingOutput, error) {
	start := time.Now()
	if p, ok := b.(bridge.Pinger); ok {
		d, err := p.Ping(ctx)
		if err != nil {
			return PingOutput{Error: err.Error()}, err
		}
		return PingOutput{Connected: true, LatencyMs: bridge.Millis(d)}, nil
	}
	if !b.IsConnected(ctx) {
		return PingOutput{Error: "not connected"}, bridge.ErrNotConnected
	}
	return PingOutput{Connected: true, LatencyMs: bridge.Millis(time.Since(start))}, nil
}

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/cadbridge/bridge"
)

// fakeBridge returns a scripted result and records calls. With
// needsConnect set, Execute fails as not connected until Connect succeeds.
type fakeBridge struct {
	mu           sync.Mutex
	connected    bool
	needsConnect bool
	connectErr   error
	connects     int
	result       bridge.ExecutionResult
	codes        []string
	timeouts     []time.Duration
}

func (f *fakeBridge) Mode() string { return "fake" }

func (f *fakeBridge) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeBridge) Disconnect(context.Context) error { return nil }

func (f *fakeBridge) IsConnected(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeBridge) Status(ctx context.Context) bridge.ConnectionStatus {
	return bridge.ConnectionStatus{Connected: f.IsConnected(ctx), Mode: "fake", EngineVersion: "1.0.2"}
}

func (f *fakeBridge) Execute(_ context.Context, code string, timeout time.Duration) (bridge.ExecutionResult, error) {
	if _, err := bridge.ResolveTimeout(timeout, time.Second); err != nil {
		return bridge.ExecutionResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
	f.timeouts = append(f.timeouts, timeout)
	if f.needsConnect && !f.connected {
		return bridge.ConnectionResult(&bridge.ConnectionError{
			Message: "FreeCAD bridge not connected",
			Err:     bridge.ErrNotConnected,
		}), nil
	}
	return f.result, nil
}

func (f *fakeBridge) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

// pingBridge adds Ping to fakeBridge.
type pingBridge struct {
	*fakeBridge
	err error
}

func (p pingBridge) Ping(context.Context) (time.Duration, error) {
	if p.err != nil {
		return 0, p.err
	}
	return 4 * time.Millisecond, nil
}

var errPing = errors.New("connection reset")

// connect serves b over in-memory transports and returns a client session.
func connect(t *testing.T, b bridge.Bridge, opts ServerOptions) *mcp.ClientSession {
	t.Helper()
	srv, err := NewServer(b, opts)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ctx := context.Background()
	serverT, clientT := mcp.NewInMemoryTransports()
	ss, err := srv.Connect(ctx, serverT, nil)
	if err != nil {
		t.Fatalf("server Connect() error = %v", err)
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client Connect() error = %v", err)
	}
	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})
	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s) error = %v", name, err)
	}
	return res
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] is %T, want *mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func decodeContent(t *testing.T, res *mcp.CallToolResult, out any) {
	t.Helper()
	if err := json.Unmarshal([]byte(textOf(t, res)), out); err != nil {
		t.Fatalf("decode content: %v", err)
	}
}

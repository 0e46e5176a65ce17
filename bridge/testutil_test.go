package bridge

import (
	"context"
	"errors"
	"sync"
	"time"
)

// mockBridge is a scripted Bridge for testing.
type mockBridge struct {
	mu            sync.Mutex
	mode          string
	connected     bool
	result        ExecutionResult
	disconnectErr error
	pingErr       error
	disconnects   int
	codes         []string
}

func newMockBridge(mode string) *mockBridge {
	return &mockBridge{mode: mode, connected: true}
}

func (m *mockBridge) Mode() string { return m.mode }

func (m *mockBridge) Connect(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return nil
}

func (m *mockBridge) Disconnect(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnects++
	m.connected = false
	return m.disconnectErr
}

func (m *mockBridge) IsConnected(_ context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockBridge) Execute(_ context.Context, code string, _ time.Duration) (ExecutionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes = append(m.codes, code)
	if !m.connected {
		return ConnectionResult(ErrNotConnected), nil
	}
	return m.result, nil
}

func (m *mockBridge) Status(ctx context.Context) ConnectionStatus {
	return BuildStatus(ctx, m)
}

// pingingBridge adds a Ping method to mockBridge.
type pingingBridge struct {
	*mockBridge
}

func (p pingingBridge) Ping(_ context.Context) (time.Duration, error) {
	if p.pingErr != nil {
		return 0, p.pingErr
	}
	return 3 * time.Millisecond, nil
}

func (p pingingBridge) Status(ctx context.Context) ConnectionStatus {
	return BuildStatus(ctx, p)
}

var errDisconnect = errors.New("disconnect failed")

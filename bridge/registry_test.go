package bridge

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	b := newMockBridge("socket")

	if err := reg.Register("main", b); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	got, ok := reg.Get("main")
	if !ok || got != b {
		t.Errorf("Get() = (%v, %v), want registered bridge", got, ok)
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestRegistry_RegisterRejects(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("x", nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Register(nil) error = %v, want ErrInvalidArgument", err)
	}
	if err := reg.Register("", newMockBridge("m")); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Register(\"\") error = %v, want ErrInvalidArgument", err)
	}
	_ = reg.Register("dup", newMockBridge("m"))
	if err := reg.Register("dup", newMockBridge("m")); !errors.Is(err, ErrBridgeExists) {
		t.Errorf("Register(dup) error = %v, want ErrBridgeExists", err)
	}
}

func TestRegistry_Unregister(t *testing.T) {
	reg := NewRegistry()
	b := newMockBridge("m")
	_ = reg.Register("a", b)

	got, ok := reg.Unregister("a")
	if !ok || got != b {
		t.Fatalf("Unregister() = (%v, %v), want bridge", got, ok)
	}
	if b.disconnects != 0 {
		t.Error("Unregister disconnected the bridge")
	}
	if _, ok := reg.Get("a"); ok {
		t.Error("Get() after Unregister found bridge")
	}
}

func TestRegistry_NamesSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"c", "a", "b"} {
		_ = reg.Register(name, newMockBridge("m"))
	}
	want := []string{"a", "b", "c"}
	if got := reg.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestRegistry_OpenUsesFactory(t *testing.T) {
	reg := NewRegistry()
	var built string
	reg.RegisterFactory("socket", func(name string) (Bridge, error) {
		built = name
		return newMockBridge("socket"), nil
	})

	b, err := reg.Open("main", "socket")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if built != "main" {
		t.Errorf("factory called with %q, want %q", built, "main")
	}
	if got, _ := reg.Get("main"); got != b {
		t.Error("opened bridge not registered")
	}
	if got := reg.Modes(); !reflect.DeepEqual(got, []string{"socket"}) {
		t.Errorf("Modes() = %v, want [socket]", got)
	}
}

func TestRegistry_OpenUnknownMode(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Open("main", "xmlrpc"); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("Open() error = %v, want ErrUnknownMode", err)
	}
}

func TestRegistry_OpenFactoryError(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("boom")
	reg.RegisterFactory("embedded", func(string) (Bridge, error) { return nil, boom })
	if _, err := reg.Open("main", "embedded"); !errors.Is(err, boom) {
		t.Errorf("Open() error = %v, want wrapped boom", err)
	}
	if reg.Len() != 0 {
		t.Error("failed Open registered a bridge")
	}
}

func TestRegistry_DisconnectAll(t *testing.T) {
	reg := NewRegistry()
	ok := newMockBridge("m")
	bad := newMockBridge("m")
	bad.disconnectErr = errDisconnect
	_ = reg.Register("ok", ok)
	_ = reg.Register("bad", bad)

	err := reg.DisconnectAll(context.Background())
	if !errors.Is(err, errDisconnect) {
		t.Errorf("DisconnectAll() error = %v, want errDisconnect", err)
	}
	if ok.disconnects != 1 || bad.disconnects != 1 {
		t.Errorf("disconnects = %d/%d, want 1/1", ok.disconnects, bad.disconnects)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() after DisconnectAll = %d, want 0", reg.Len())
	}
}

func TestRegistry_DisconnectAllJoinsEveryFailure(t *testing.T) {
	reg := NewRegistry()
	errOther := errors.New("socket still busy")
	a := newMockBridge("embedded")
	a.disconnectErr = errDisconnect
	b := newMockBridge("socket")
	b.disconnectErr = errOther
	_ = reg.Register("a", a)
	_ = reg.Register("b", b)
	_ = reg.Register("ok", newMockBridge("socket"))

	err := reg.DisconnectAll(context.Background())
	if !errors.Is(err, errDisconnect) || !errors.Is(err, errOther) {
		t.Fatalf("DisconnectAll() error = %v, want both failures", err)
	}
	for _, name := range []string{"disconnecting a", "disconnecting b"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("DisconnectAll() error = %q, missing %q", err, name)
		}
	}
}

func TestRegistry_DisconnectAllClean(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register("x", newMockBridge("embedded"))
	if err := reg.DisconnectAll(context.Background()); err != nil {
		t.Errorf("DisconnectAll() error = %v, want nil", err)
	}
}

func TestRegistry_StatusAll(t *testing.T) {
	reg := NewRegistry()
	up := newMockBridge("embedded")
	up.result = Succeeded(map[string]any{"version": "1.0.2", "gui_up": true}, "", "", 0)
	down := newMockBridge("socket")
	down.connected = false
	_ = reg.Register("up", up)
	_ = reg.Register("down", down)

	statuses := reg.StatusAll(context.Background())
	if !statuses["up"].Connected || statuses["up"].EngineVersion != "1.0.2" {
		t.Errorf("status[up] = %+v", statuses["up"])
	}
	if statuses["down"].Connected {
		t.Errorf("status[down] = %+v, want disconnected", statuses["down"])
	}
}

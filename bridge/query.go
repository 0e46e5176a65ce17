package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// statusTimeout bounds each engine round trip made while building a status.
const statusTimeout = 5 * time.Second

// versionScript asks the engine for its version and GUI state.
const versionScript = `import FreeCAD
_v = FreeCAD.Version()
_result_ = {
    "version": ".".join(str(p) for p in _v[:3]),
    "build": str(_v[3]) if len(_v) > 3 else "",
    "gui_up": bool(FreeCAD.GuiUp),
}
`

// EngineVersion describes the engine a bridge is attached to.
type EngineVersion struct {
	Version string `json:"version"`
	Build   string `json:"build,omitempty"`
	GUIUp   bool   `json:"gui_up"`
}

// QueryVersion asks the engine behind b for its version by executing a
// generated snippet.
func QueryVersion(ctx context.Context, b Bridge) (EngineVersion, error) {
	res, err := b.Execute(ctx, versionScript, statusTimeout)
	if err != nil {
		return EngineVersion{}, err
	}
	if err := res.Err(); err != nil {
		return EngineVersion{}, err
	}
	var v EngineVersion
	if err := DecodeResult(res, &v); err != nil {
		return EngineVersion{}, err
	}
	if v.Version == "" {
		v.Version = "unknown"
	}
	return v, nil
}

// DecodeResult converts the structured Result of r into out using JSON
// field rules. It fails when r is a failure or has no result.
func DecodeResult(r ExecutionResult, out any) error {
	if err := r.Err(); err != nil {
		return err
	}
	if r.Result == nil {
		return fmt.Errorf("%w: execution produced no result", ErrProtocol)
	}
	raw, err := json.Marshal(r.Result)
	if err != nil {
		return fmt.Errorf("%w: encoding result: %v", ErrProtocol, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decoding result: %v", ErrProtocol, err)
	}
	return nil
}

// BuildStatus computes a ConnectionStatus for b. Bridges implement Status
// with it. A failed ping reports the bridge as disconnected; a failed
// version query keeps it connected with an unknown version.
func BuildStatus(ctx context.Context, b Bridge) ConnectionStatus {
	status := ConnectionStatus{Mode: b.Mode()}

	if p, ok := b.(Pinger); ok {
		pingCtx, cancel := context.WithTimeout(ctx, statusTimeout)
		latency, err := p.Ping(pingCtx)
		cancel()
		if err != nil {
			status.Error = err.Error()
			return status
		}
		ms := Millis(latency)
		status.LastPingMs = &ms
	} else if !b.IsConnected(ctx) {
		status.Error = "Not connected"
		return status
	}

	status.Connected = true
	v, err := QueryVersion(ctx, b)
	if err != nil {
		status.EngineVersion = "unknown"
		status.Error = err.Error()
		return status
	}
	status.EngineVersion = v.Version
	status.GUIAvailable = v.GUIUp
	return status
}

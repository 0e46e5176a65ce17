package socket

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/jonwraymond/cadbridge/bridge"
	"github.com/jonwraymond/cadbridge/jsonrpc"
)

// remoteResult is the object the server returns for "execute".
type remoteResult struct {
	Success        bool   `json:"success"`
	Result         any    `json:"result"`
	Stdout         string `json:"stdout"`
	Stderr         string `json:"stderr"`
	ErrorType      string `json:"error_type"`
	ErrorTraceback string `json:"error_traceback"`
}

// decodeExecuteResult unwraps an execute result. An object is read as a
// remote result; anything else is the value itself.
func decodeExecuteResult(raw json.RawMessage, elapsed time.Duration) bridge.ExecutionResult {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var rr remoteResult
		if err := json.Unmarshal(trimmed, &rr); err == nil {
			res := bridge.ExecutionResult{
				Success:         rr.Success,
				Result:          rr.Result,
				Stdout:          rr.Stdout,
				Stderr:          rr.Stderr,
				ExecutionTimeMs: bridge.Millis(elapsed),
			}
			if !rr.Success {
				res.ErrorKind = bridge.KindExecution
				res.ErrorType = rr.ErrorType
				res.ErrorDetail = rr.ErrorTraceback
				if res.ErrorDetail == "" {
					res.ErrorDetail = rr.Stderr
				}
			}
			return res.Normalize()
		}
	}

	var value any
	if len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &value); err != nil {
			r := bridge.Failed(bridge.KindProtocol, "Invalid execute result: "+err.Error())
			r.ErrorType = "ProtocolError"
			return r.WithElapsed(elapsed)
		}
	}
	return bridge.Succeeded(value, "", "", elapsed)
}

// failureResult maps a call error onto an ExecutionResult.
func failureResult(err error, timeout, elapsed time.Duration) bridge.ExecutionResult {
	var rpcErr *jsonrpc.Error
	switch {
	case errors.Is(err, bridge.ErrTimeout):
		return bridge.WaitResult(err, timeout, elapsed)
	case errors.As(err, &rpcErr):
		r := bridge.Failed(bridge.KindProtocol, rpcErr.Error())
		r.ErrorType = "JsonRpcError"
		r.Stderr = rpcErr.Message
		return r.WithElapsed(elapsed)
	case errors.Is(err, bridge.ErrProtocol):
		r := bridge.Failed(bridge.KindProtocol, err.Error())
		r.ErrorType = "ProtocolError"
		return r.WithElapsed(elapsed)
	default:
		return bridge.ConnectionResult(err).WithElapsed(elapsed)
	}
}

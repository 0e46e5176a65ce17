package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Version is the protocol version carried by every message.
const Version = "2.0"

// Standard error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is a JSON-RPC request.
type Request struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      string         `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

// NewRequest builds a request with a fresh unique id. Nil params encode as
// an empty object.
func NewRequest(method string, params map[string]any) Request {
	if params == nil {
		params = map[string]any{}
	}
	return Request{
		JSONRPC: Version,
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	}
}

// Response is a JSON-RPC response. Exactly one of Result and Error is set
// on a well-formed response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// NewResult builds a success response for id.
func NewResult(id string, result any) (Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return Response{}, fmt.Errorf("encoding result: %w", err)
	}
	return Response{JSONRPC: Version, ID: encodeID(id), Result: raw}, nil
}

// NewErrorResponse builds an error response for id.
func NewErrorResponse(id string, code int, message string, data any) Response {
	return Response{
		JSONRPC: Version,
		ID:      encodeID(id),
		Error:   &Error{Code: code, Message: message, Data: data},
	}
}

func encodeID(id string) json.RawMessage {
	raw, _ := json.Marshal(id)
	return raw
}

// HasResult reports whether the response carries a result member, which may
// be JSON null.
func (r Response) HasResult() bool {
	return len(r.Result) > 0
}

// IDString returns the response id as a string. Numeric ids are rendered in
// their JSON form; a missing or null id yields "".
func (r Response) IDString() string {
	raw := bytes.TrimSpace(r.ID)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// MatchesID reports whether the response answers the request with id.
func (r Response) MatchesID(id string) bool {
	return r.IDString() == id
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error renders the code and message, plus data when present.
func (e *Error) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("JSON-RPC error %d: %s (%v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("JSON-RPC error %d: %s", e.Code, e.Message)
}

package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestNewRequest(t *testing.T) {
	a := NewRequest("ping", nil)
	b := NewRequest("ping", nil)

	if a.JSONRPC != Version {
		t.Errorf("JSONRPC = %q, want %q", a.JSONRPC, Version)
	}
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("ids = %q, %q, want unique non-empty", a.ID, b.ID)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, a); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"params":{}`) {
		t.Errorf("encoded = %s, want empty params object", buf.String())
	}
	if !strings.HasSuffix(buf.String(), "}\n") || strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("encoded = %q, want single terminated line", buf.String())
	}
}

func TestRequestRoundTrip(t *testing.T) {
	req := NewRequest("execute", map[string]any{"code": "x = 1\nprint(x)"})

	var buf bytes.Buffer
	if err := Encode(&buf, req); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := DecodeRequest(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeRequest() error = %v", err)
	}
	if got.ID != req.ID || got.Method != "execute" || got.Params["code"] != "x = 1\nprint(x)" {
		t.Errorf("DecodeRequest() = %+v, want %+v", got, req)
	}
}

func TestDecodeResponse(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		wantErr    error
		wantResult bool
		wantCode   int
	}{
		{name: "result", line: `{"jsonrpc":"2.0","id":"a","result":42}`, wantResult: true},
		{name: "null result", line: `{"jsonrpc":"2.0","id":"a","result":null}`, wantResult: true},
		{name: "error", line: `{"jsonrpc":"2.0","id":"a","error":{"code":-32601,"message":"Method not found"}}`, wantCode: CodeMethodNotFound},
		{name: "not json", line: `hello`, wantErr: ErrMalformed},
		{name: "empty object", line: `{}`, wantErr: ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := DecodeResponse([]byte(tt.line))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeResponse() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeResponse() error = %v", err)
			}
			if resp.HasResult() != tt.wantResult {
				t.Errorf("HasResult() = %v, want %v", resp.HasResult(), tt.wantResult)
			}
			if tt.wantCode != 0 && (resp.Error == nil || resp.Error.Code != tt.wantCode) {
				t.Errorf("Error = %+v, want code %d", resp.Error, tt.wantCode)
			}
			if !resp.MatchesID("a") {
				t.Errorf("MatchesID(a) = false, id = %s", resp.ID)
			}
		})
	}
}

func TestResponseIDString(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"abc"`, "abc"},
		{`7`, "7"},
		{`null`, ""},
		{``, ""},
	}
	for _, tt := range tests {
		r := Response{ID: json.RawMessage(tt.raw)}
		if got := r.IDString(); got != tt.want {
			t.Errorf("IDString(%s) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNewResultAndErrorResponse(t *testing.T) {
	ok, err := NewResult("id-1", map[string]any{"pong": true})
	if err != nil {
		t.Fatalf("NewResult() error = %v", err)
	}
	if !ok.MatchesID("id-1") || string(ok.Result) != `{"pong":true}` {
		t.Errorf("NewResult() = %+v", ok)
	}

	bad := NewErrorResponse("id-2", CodeInternalError, "boom", "trace")
	if bad.HasResult() || bad.Error == nil {
		t.Fatalf("NewErrorResponse() = %+v", bad)
	}
	want := "JSON-RPC error -32603: boom (trace)"
	if got := bad.Error.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestLineReader_SplitsAndSkipsBlank(t *testing.T) {
	lr := NewLineReader(strings.NewReader("one\n\n  two  \nthree\n"), 0)
	for _, want := range []string{"one", "two", "three"} {
		got, err := lr.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine() error = %v", err)
		}
		if string(got) != want {
			t.Errorf("ReadLine() = %q, want %q", got, want)
		}
	}
	if _, err := lr.ReadLine(); err != io.EOF {
		t.Errorf("ReadLine() at end error = %v, want EOF", err)
	}
}

// stutterReader returns its chunks one per Read, failing with a timeout
// error between them.
type stutterReader struct {
	chunks []string
	fail   bool
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }

func (r *stutterReader) Read(p []byte) (int, error) {
	if r.fail {
		r.fail = false
		return 0, timeoutErr{}
	}
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	r.fail = true
	return n, nil
}

func TestLineReader_KeepsPartialLineAcrossErrors(t *testing.T) {
	lr := NewLineReader(&stutterReader{chunks: []string{`{"id":`, `"a"}` + "\n"}}, 0)

	if _, err := lr.ReadLine(); err == nil {
		t.Fatal("first ReadLine() error = nil, want timeout")
	}
	if lr.Buffered() == 0 {
		t.Fatal("partial line was discarded")
	}
	got, err := lr.ReadLine()
	if err != nil {
		t.Fatalf("second ReadLine() error = %v", err)
	}
	if string(got) != `{"id":"a"}` {
		t.Errorf("ReadLine() = %q", got)
	}
}

func TestLineReader_TooLong(t *testing.T) {
	lr := NewLineReader(strings.NewReader(strings.Repeat("x", 20)), 10)
	if _, err := lr.ReadLine(); !errors.Is(err, ErrLineTooLong) {
		t.Errorf("ReadLine() error = %v, want ErrLineTooLong", err)
	}
}

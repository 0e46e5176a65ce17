package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Errors for message framing and decoding.
var (
	// ErrMalformed indicates a line that is not a valid message.
	ErrMalformed = errors.New("malformed message")

	// ErrLineTooLong indicates a line exceeded the reader's limit.
	ErrLineTooLong = errors.New("message line too long")
)

// Encode writes msg as one JSON line.
func Encode(w io.Writer, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// DecodeRequest parses one line into a request.
func DecodeRequest(line []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(bytes.TrimSpace(line), &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if req.Method == "" {
		return Request{}, fmt.Errorf("%w: missing method", ErrMalformed)
	}
	return req, nil
}

// DecodeResponse parses one line into a response. A response with neither
// result nor error is malformed.
func DecodeResponse(line []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(bytes.TrimSpace(line), &resp); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if resp.Error == nil && !resp.HasResult() {
		return Response{}, fmt.Errorf("%w: response has neither result nor error", ErrMalformed)
	}
	return resp, nil
}

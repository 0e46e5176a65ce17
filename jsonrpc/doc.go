// Package jsonrpc implements the JSON-RPC 2.0 message shapes and the
// newline-delimited framing used by the socket bridge.
//
// Each message is one UTF-8 JSON object terminated by a single "\n".
// Requests carry a string id generated with [NewRequest]; responses echo it
// and carry exactly one of result or error.
//
// # Framing
//
// [Encode] writes one framed message. [LineReader] reads framed messages
// from a stream and keeps any partial line buffered across reads, so a
// read deadline that expires mid-line does not lose data.
//
// # Errors
//
// A line that is not valid JSON, or a response with neither result nor
// error, decodes to an error matching [ErrMalformed]. A response carrying an
// error object is decoded normally; callers inspect [Response.Error].
package jsonrpc

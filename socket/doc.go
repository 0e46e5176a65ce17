// Package socket provides a bridge that talks to a FreeCAD-side server using
// JSON-RPC 2.0 over a newline-delimited TCP stream.
//
// One connection is owned by the bridge and used for exactly one outstanding
// request at a time. Each Execute sends method "execute" with params
// {"code": ...} and waits for the response carrying the same id.
//
// # Failure Mapping
//
//   - A read deadline (the caller's timeout) reports kind "timeout". The
//     connection is kept; a late answer to the abandoned request is
//     recognized by its id and discarded.
//   - A peer that hangs up (EOF, reset, broken pipe) marks the connection
//     dead. With auto-reconnect on, the bridge reconnects once and re-sends
//     the same request once. A second failure is reported as "connection".
//   - A line that is not a JSON-RPC response reports "protocol"; the
//     connection is kept.
//   - An error object from the peer reports "protocol" with its code,
//     message, and data in the detail.
//
// # Usage
//
//	b, err := socket.New(socket.Config{Host: "localhost", Port: 9876})
//	if err != nil {
//		return err
//	}
//	if err := b.Connect(ctx); err != nil {
//		return err
//	}
//	defer b.Disconnect(ctx)
//	res, _ := b.Execute(ctx, "_result_ = 6 * 7", 0)
package socket

// Package bridge defines the transport-agnostic contract for executing code
// inside a CAD engine and the value types every transport returns.
//
// A caller obtains a [Bridge] (in-process, socket, ...) at startup and talks
// to it only through [Bridge.Execute]. Whatever the transport, the outcome is
// normalized into an [ExecutionResult].
//
// # Error Kinds
//
// Failures are classified by [ErrorKind]:
//
//   - [KindExecution]: the code ran and raised inside the engine. The bridge
//     stays usable.
//   - [KindTimeout]: the caller's wait exceeded its bound. The work itself may
//     still be running.
//   - [KindConnection]: the transport is unusable; the bridge is disconnected.
//   - [KindProtocol]: the peer answered with a well-formed error or an
//     unintelligible line. The connection stays usable.
//
// Expected failures never come back as Go errors from Execute; they are
// reported inside the result. Execute returns an error only for invalid
// arguments ([ErrInvalidArgument]).
//
// # Result Slot
//
// Executed code may bind a designated output slot (conventionally named
// `_result_`). A bound slot becomes [ExecutionResult].Result; an unbound slot
// means "no result". See [Slot] and [ExtractSlotLine].
//
// # Registry
//
// [Registry] is an explicit, caller-owned collection of live bridges. The
// process entry point constructs one and hands it to whatever shutdown
// routine needs it:
//
//	reg := bridge.NewRegistry()
//	reg.RegisterFactory("socket", func(name string) (bridge.Bridge, error) {
//	    return socket.New(socket.Config{}), nil
//	})
//	b, _ := reg.Open("main", "socket")
//	defer reg.DisconnectAll(context.Background())
package bridge

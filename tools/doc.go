// Package tools exposes a [bridge.Bridge] as MCP tools and keeps a
// searchable catalogue of them.
//
// Three tools are served, all in the "freecad" namespace:
//
//   - execute_python: run code through the bridge and return its
//     ExecutionResult
//   - get_connection_status: report the bridge's ConnectionStatus
//   - ping: measure one round trip to the engine
//
// [NewServer] registers them on a go-sdk [mcp.Server]. [NewCatalog] indexes
// the same definitions in a tooldiscovery index so the CLI can search and
// describe them without starting a server.
//
// Expected bridge failures (timeouts, lost connections, engine exceptions)
// come back as tool results with IsError set and the full ExecutionResult
// as content. Only invalid arguments produce tool errors.
package tools

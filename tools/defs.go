package tools

import (
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jonwraymond/tooldiscovery/tooldoc"
	"github.com/jonwraymond/toolfoundation/model"
)

// Namespace groups every tool served here.
const Namespace = "freecad"

// Tool names.
const (
	ExecutePython       = "execute_python"
	GetConnectionStatus = "get_connection_status"
	Ping                = "ping"
)

// ExecuteInput is the argument object of execute_python.
type ExecuteInput struct {
	Code      string `json:"code" jsonschema:"Python code to run in the FreeCAD context. Bind _result_ to return a value."`
	TimeoutMs int    `json:"timeout_ms,omitempty" jsonschema:"Execution timeout in milliseconds. 0 selects the server default."`
}

// StatusInput is the (empty) argument object of get_connection_status.
type StatusInput struct{}

// PingInput is the (empty) argument object of ping.
type PingInput struct{}

// PingOutput is the result of ping.
type PingOutput struct {
	Connected bool    `json:"connected"`
	LatencyMs float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

// Definition pairs a tool with its documentation.
type Definition struct {
	Tool model.Tool
	Doc  tooldoc.DocEntry
}

// ID returns the namespaced tool id, e.g. "freecad:ping".
func (d Definition) ID() string {
	return d.Tool.Namespace + ":" + d.Tool.Name
}

var emptyObject = map[string]any{"type": "object", "properties": map[string]any{}}

// Definitions returns the served tools. The slice is freshly allocated.
func Definitions() []Definition {
	defs := []Definition{
		{
			Tool: model.Tool{
				Tool: mcp.Tool{
					Name:        ExecutePython,
					Description: "Execute Python code inside FreeCAD and return its result, stdout and stderr",
					InputSchema: map[string]any{
						"type": "object",
						"properties": map[string]any{
							"code":       map[string]any{"type": "string"},
							"timeout_ms": map[string]any{"type": "integer", "minimum": 0},
						},
						"required": []any{"code"},
					},
				},
				Namespace: Namespace,
				Tags:      []string{"python", "script", "execute", "cad"},
			},
			Doc: tooldoc.DocEntry{
				Summary: "Runs code in the engine through the active bridge",
				Notes:   "Assign to _result_ to return a JSON-serializable value. Failures are reported in the result, not raised.",
				Examples: []tooldoc.ToolExample{
					{Title: "Create a box", Args: map[string]any{"code": "import FreeCAD\nbox = FreeCAD.ActiveDocument.addObject('Part::Box', 'Box')\n_result_ = box.Name"}},
					{Title: "Read the version", Args: map[string]any{"code": "import FreeCAD\n_result_ = FreeCAD.Version()"}},
				},
			},
		},
		{
			Tool: model.Tool{
				Tool: mcp.Tool{
					Name:        GetConnectionStatus,
					Description: "Report whether the FreeCAD bridge is connected, its mode, engine version and GUI availability",
					InputSchema: emptyObject,
				},
				Namespace: Namespace,
				Tags:      []string{"status", "connection", "health"},
			},
			Doc: tooldoc.DocEntry{
				Summary: "Connection health snapshot, computed on demand",
			},
		},
		{
			Tool: model.Tool{
				Tool: mcp.Tool{
					Name:        Ping,
					Description: "Round-trip ping to the FreeCAD engine, reporting latency",
					InputSchema: emptyObject,
				},
				Namespace: Namespace,
				Tags:      []string{"ping", "latency", "health"},
			},
			Doc: tooldoc.DocEntry{
				Summary: "Measures one round trip through the bridge",
			},
		},
	}
	for i := range defs {
		defs[i].Tool.Title = Title(defs[i].Tool.Name)
	}
	return defs
}

// Title turns a tool name into a display title: "get_connection_status"
// becomes "Get Connection Status".
func Title(name string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(name, "_", " "))
}

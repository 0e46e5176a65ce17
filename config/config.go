// Package config loads the server configuration.
//
// Values are layered, later sources winning:
//
//  1. Defaults
//  2. An optional config file (.toml, .yaml/.yml, .json/.jsonc)
//  3. A .env file, when present
//  4. FREECAD_* process environment variables
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrConfiguration indicates an invalid or unreadable configuration.
var ErrConfiguration = errors.New("invalid configuration")

// Connection modes.
const (
	ModeEmbedded = "embedded"
	ModeSocket   = "socket"
	ModeXMLRPC   = "xmlrpc"
)

// TransportStdio is the only MCP transport served.
const TransportStdio = "stdio"

// Limits on configurable values.
const (
	MinTimeoutMs     = 1000
	MaxTimeoutMs     = 600000
	MinMaxOutputSize = 1000
)

// Config is the server configuration.
type Config struct {
	// Mode selects the bridge transport: embedded, socket, or xmlrpc.
	// Default: embedded
	Mode string `toml:"mode" yaml:"mode" json:"mode"`

	// FreecadPath is the FreeCAD library directory for embedded mode.
	FreecadPath string `toml:"freecad_path" yaml:"freecad_path" json:"freecad_path"`

	// SocketHost is the host of the FreeCAD-side server.
	// Default: localhost
	SocketHost string `toml:"socket_host" yaml:"socket_host" json:"socket_host"`

	// SocketPort is the JSON-RPC server port.
	// Default: 9876
	SocketPort int `toml:"socket_port" yaml:"socket_port" json:"socket_port"`

	// XMLRPCPort is the XML-RPC server port.
	// Default: 9875
	XMLRPCPort int `toml:"xmlrpc_port" yaml:"xmlrpc_port" json:"xmlrpc_port"`

	// TimeoutMs is the default execution timeout in milliseconds.
	// Default: 30000
	TimeoutMs int `toml:"timeout_ms" yaml:"timeout_ms" json:"timeout_ms"`

	// MaxOutputSize caps captured stdout and stderr, in bytes each.
	// Default: 1000000
	MaxOutputSize int `toml:"max_output_size" yaml:"max_output_size" json:"max_output_size"`

	// AutoReconnect enables the socket bridge's single reconnect.
	// Default: true
	AutoReconnect bool `toml:"auto_reconnect" yaml:"auto_reconnect" json:"auto_reconnect"`

	// LogLevel is one of debug, info, warn, error.
	// Default: info
	LogLevel string `toml:"log_level" yaml:"log_level" json:"log_level"`

	// Transport is the MCP transport.
	// Default: stdio
	Transport string `toml:"transport" yaml:"transport" json:"transport"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Mode:          ModeEmbedded,
		SocketHost:    "localhost",
		SocketPort:    9876,
		XMLRPCPort:    9875,
		TimeoutMs:     30000,
		MaxOutputSize: 1_000_000,
		AutoReconnect: true,
		LogLevel:      "info",
		Transport:     TransportStdio,
	}
}

// Validate checks every field and reports all problems at once.
func (c Config) Validate() error {
	var problems []string

	switch c.Mode {
	case ModeEmbedded, ModeSocket, ModeXMLRPC:
	default:
		problems = append(problems, fmt.Sprintf("mode %q is not one of embedded, socket, xmlrpc", c.Mode))
	}
	if c.SocketHost == "" {
		problems = append(problems, "socket_host is empty")
	}
	if c.SocketPort < 1 || c.SocketPort > 65535 {
		problems = append(problems, fmt.Sprintf("socket_port %d out of range 1-65535", c.SocketPort))
	}
	if c.XMLRPCPort < 1 || c.XMLRPCPort > 65535 {
		problems = append(problems, fmt.Sprintf("xmlrpc_port %d out of range 1-65535", c.XMLRPCPort))
	}
	if c.TimeoutMs < MinTimeoutMs || c.TimeoutMs > MaxTimeoutMs {
		problems = append(problems, fmt.Sprintf("timeout_ms %d out of range %d-%d", c.TimeoutMs, MinTimeoutMs, MaxTimeoutMs))
	}
	if c.MaxOutputSize < MinMaxOutputSize {
		problems = append(problems, fmt.Sprintf("max_output_size %d below %d", c.MaxOutputSize, MinMaxOutputSize))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Transport != TransportStdio {
		problems = append(problems, fmt.Sprintf("transport %q is not supported", c.Transport))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// Timeout returns TimeoutMs as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// SlogLevel returns the configured log level. Invalid levels yield Info.
func (c Config) SlogLevel() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "critical":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log_level %q is not one of debug, info, warn, error", s)
}

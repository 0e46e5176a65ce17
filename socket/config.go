package socket

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/jonwraymond/cadbridge/bridge"
	"github.com/jonwraymond/cadbridge/jsonrpc"
)

// Mode is the transport identifier reported by the bridge.
const Mode = "socket"

// Defaults for Config.
const (
	DefaultHost    = "localhost"
	DefaultPort    = 9876
	DefaultTimeout = 30 * time.Second
)

// Dialer opens the TCP connection. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Config configures a socket bridge.
type Config struct {
	// Host is the server host name.
	// Default: "localhost"
	Host string

	// Port is the server TCP port.
	// Default: 9876
	Port int

	// Timeout bounds connecting and is the default execution timeout.
	// Default: 30s
	Timeout time.Duration

	// AutoReconnect enables one reconnect and one resend when the peer
	// drops the connection mid-request.
	// Default: true
	AutoReconnect *bool

	// AcceptUnmatchedIDs treats the next response line as the answer
	// regardless of its id.
	AcceptUnmatchedIDs bool

	// MaxLineBytes bounds a single response line.
	// Default: 16 MiB
	MaxLineBytes int

	// Dialer opens connections. Default: &net.Dialer{}.
	Dialer Dialer

	// Logger is an optional logger for connection events.
	Logger bridge.Logger
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", bridge.ErrInvalidArgument, c.Port)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout %v", bridge.ErrInvalidArgument, c.Timeout)
	}
	if c.MaxLineBytes < 0 {
		return fmt.Errorf("%w: negative max line size", bridge.ErrInvalidArgument)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.AutoReconnect == nil {
		on := true
		c.AutoReconnect = &on
	}
	if c.MaxLineBytes == 0 {
		c.MaxLineBytes = jsonrpc.DefaultMaxLineBytes
	}
	if c.Dialer == nil {
		c.Dialer = &net.Dialer{}
	}
}

// Addr returns the host:port the bridge dials.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonwraymond/cadbridge/bridge"
	"github.com/jonwraymond/cadbridge/config"
	"github.com/jonwraymond/cadbridge/embedded"
	"github.com/jonwraymond/cadbridge/socket"
)

// mainBridge is the registry name of the bridge a command works with.
const mainBridge = "main"

// shutdownTimeout bounds DisconnectAll on exit.
const shutdownTimeout = 5 * time.Second

// embeddedLoader supplies the in-process engine. This build links none.
var embeddedLoader = embedded.Unavailable("no in-process FreeCAD engine is linked into this build; use --mode socket")

// newRegistry returns a registry with a factory for every supported mode.
func newRegistry(cfg config.Config, logger *slog.Logger) *bridge.Registry {
	reg := bridge.NewRegistry()
	reg.RegisterFactory(socket.Mode, func(string) (bridge.Bridge, error) {
		reconnect := cfg.AutoReconnect
		b, err := socket.New(socket.Config{
			Host:          cfg.SocketHost,
			Port:          cfg.SocketPort,
			Timeout:       cfg.Timeout(),
			AutoReconnect: &reconnect,
			Logger:        logger.With("bridge", socket.Mode),
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	})
	reg.RegisterFactory(embedded.Mode, func(string) (bridge.Bridge, error) {
		b, err := embedded.New(embedded.Config{
			Loader:  embeddedLoader,
			Timeout: cfg.Timeout(),
			Logger:  logger.With("bridge", embedded.Mode),
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	})
	return reg
}

// openBridge opens the bridge for mode under the main registry name.
func openBridge(reg *bridge.Registry, mode string) (bridge.Bridge, error) {
	b, err := reg.Open(mainBridge, mode)
	if errors.Is(err, bridge.ErrUnknownMode) {
		return nil, fmt.Errorf("mode %q is not supported by this build (supported: %v)", mode, reg.Modes())
	}
	return b, err
}

func disconnectAll(reg *bridge.Registry, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := reg.DisconnectAll(ctx); err != nil {
		logger.Warn("disconnect failed", "error", err)
	}
}

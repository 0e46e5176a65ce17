package main

import (
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/cadbridge/tools"
)

// newServeCmd creates the "cadbridge serve" subcommand.
func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the FreeCAD tools over MCP stdio",
		Long: "Opens the configured bridge and serves execute_python, get_connection_status\n" +
			"and ping on stdin/stdout until the client disconnects or the process is signaled.\n" +
			"A bridge that fails to connect at startup is served anyway. Each tool call that\n" +
			"finds it not connected dials it once more and reports a connection failure\n" +
			"if the engine is still unreachable.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := a.logger

			reg := newRegistry(a.cfg, logger)
			defer disconnectAll(reg, logger)

			b, err := openBridge(reg, a.cfg.Mode)
			if err != nil {
				return err
			}
			if err := b.Connect(ctx); err != nil {
				logger.Warn("bridge not connected at startup", "mode", b.Mode(), "error", err)
			} else {
				logger.Info("bridge connected", "mode", b.Mode())
			}

			srv, err := tools.NewServer(b, tools.ServerOptions{
				Version:       version,
				MaxOutputSize: a.cfg.MaxOutputSize,
				Reconnect:     true,
				Logger:        logger,
			})
			if err != nil {
				return err
			}

			logger.Info("serving MCP", "transport", a.cfg.Transport)
			if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, ctx.Err()) {
				return fmt.Errorf("mcp server: %w", err)
			}
			logger.Info("server stopped")
			return nil
		},
	}
}

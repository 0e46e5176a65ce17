package main

import (
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/cadbridge/config"
)

// version is overridden at link time.
var version = "dev"

// app carries state resolved by the root command for its subcommands.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

type rootFlags struct {
	configFile string
	envFile    string
	mode       string
	logLevel   string
}

// newRootCmd creates the root cadbridge command with all subcommands attached.
func newRootCmd() *cobra.Command {
	var (
		flags rootFlags
		a     app
	)

	cmd := &cobra.Command{
		Use:           "cadbridge",
		Short:         "Bridge AI assistants to a running FreeCAD",
		Long:          "cadbridge serves FreeCAD code execution as MCP tools over stdio,\nthrough an in-process engine or a FreeCAD-side JSON-RPC socket server.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = slog.New(tint.NewHandler(cmd.ErrOrStderr(), &tint.Options{
				Level:      cfg.SlogLevel(),
				TimeFormat: time.Kitchen,
			}))
			return nil
		},
	}
	cmd.SetVersionTemplate("cadbridge {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file (.toml, .yaml, .json, .jsonc)")
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file, ignored when missing")
	pf.StringVar(&flags.mode, "mode", "", "bridge mode: embedded, socket, xmlrpc")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(
		newServeCmd(&a),
		newExecCmd(&a),
		newStatusCmd(&a),
		newToolsCmd(),
	)
	return cmd
}

func loadConfig(cmd *cobra.Command, flags rootFlags) (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{File: flags.configFile, EnvFile: flags.envFile})
	if err != nil {
		return config.Config{}, err
	}
	pf := cmd.Flags()
	if pf.Changed("mode") {
		cfg.Mode = flags.mode
	}
	if pf.Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

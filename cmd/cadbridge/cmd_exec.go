package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/cadbridge/bridge"
)

// newExecCmd creates the "cadbridge exec" subcommand.
func newExecCmd(a *app) *cobra.Command {
	var (
		file      string
		timeoutMs int
	)

	cmd := &cobra.Command{
		Use:   "exec [code | -]",
		Short: "Execute code once and print the result as JSON",
		Long: "Connects the configured bridge, executes code given as an argument,\n" +
			"read from --file, or read from stdin when the argument is \"-\",\n" +
			"and prints the ExecutionResult. Exits non-zero when execution fails.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readCode(cmd.InOrStdin(), file, args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			reg := newRegistry(a.cfg, a.logger)
			defer disconnectAll(reg, a.logger)

			b, err := openBridge(reg, a.cfg.Mode)
			if err != nil {
				return err
			}

			var r bridge.ExecutionResult
			if err := b.Connect(ctx); err != nil {
				r = bridge.ConnectionResult(err)
			} else {
				r, err = b.Execute(ctx, code, time.Duration(timeoutMs)*time.Millisecond)
				if err != nil {
					return err
				}
			}
			r = r.LimitOutput(a.cfg.MaxOutputSize)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(r); err != nil {
				return err
			}
			return r.Err()
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read code from file")
	cmd.Flags().IntVar(&timeoutMs, "timeout-ms", 0, "execution timeout in milliseconds (0 uses timeout_ms from config)")
	return cmd
}

func readCode(stdin io.Reader, file string, args []string) (string, error) {
	switch {
	case file != "" && len(args) > 0:
		return "", errors.New("give code either as an argument or with --file, not both")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case len(args) == 1 && args[0] == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	case len(args) == 1:
		return args[0], nil
	}
	return "", errors.New("no code given")
}

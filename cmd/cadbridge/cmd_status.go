package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/cadbridge/bridge"
)

// newStatusCmd creates the "cadbridge status" subcommand.
func newStatusCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Connect the configured bridge and report its health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			reg := newRegistry(a.cfg, a.logger)
			defer disconnectAll(reg, a.logger)

			b, err := openBridge(reg, a.cfg.Mode)
			if err != nil {
				return err
			}

			var status bridge.ConnectionStatus
			if err := b.Connect(ctx); err != nil {
				status = bridge.ConnectionStatus{Mode: b.Mode(), Error: err.Error()}
			} else {
				status = b.Status(ctx)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}
			printStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the status as JSON")
	return cmd
}

func printStatus(w io.Writer, s bridge.ConnectionStatus) {
	good := color.New(color.FgGreen, color.Bold)
	bad := color.New(color.FgRed, color.Bold)
	dim := color.New(color.Faint)

	fmt.Fprintf(w, "Mode:       %s\n", s.Mode)
	if s.Connected {
		fmt.Fprintf(w, "Connected:  %s\n", good.Sprint("yes"))
	} else {
		fmt.Fprintf(w, "Connected:  %s\n", bad.Sprint("no"))
	}
	if s.EngineVersion != "" {
		fmt.Fprintf(w, "Engine:     FreeCAD %s\n", s.EngineVersion)
	}
	if s.Connected {
		gui := "no"
		if s.GUIAvailable {
			gui = "yes"
		}
		fmt.Fprintf(w, "GUI:        %s\n", gui)
	}
	if s.LastPingMs != nil {
		fmt.Fprintf(w, "Ping:       %s\n", dim.Sprintf("%.2f ms", *s.LastPingMs))
	}
	if s.Error != "" {
		fmt.Fprintf(w, "Error:      %s\n", bad.Sprint(s.Error))
	}
}

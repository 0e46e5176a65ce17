package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/tooldiscovery/tooldoc"

	"github.com/jonwraymond/cadbridge/tools"
)

// newToolsCmd creates the "cadbridge tools" subcommand.
func newToolsCmd() *cobra.Command {
	var (
		describe string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "tools [query]",
		Short: "List, search, or describe the served MCP tools",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := tools.NewCatalog(nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if describe != "" {
				id := describe
				if !strings.Contains(id, ":") {
					id = tools.Namespace + ":" + id
				}
				doc, err := catalog.Describe(id, tooldoc.DetailFull)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\n", id)
				if doc.Tool != nil {
					fmt.Fprintf(out, "  %s\n", doc.Tool.Description)
				}
				if doc.Summary != "" {
					fmt.Fprintf(out, "  Summary: %s\n", doc.Summary)
				}
				if doc.Notes != "" {
					fmt.Fprintf(out, "  Notes: %s\n", doc.Notes)
				}
				examples, _ := catalog.Examples(id, limit)
				for _, ex := range examples {
					fmt.Fprintf(out, "  Example: %s\n", ex.Title)
				}
				return nil
			}

			if len(args) == 0 {
				for _, d := range tools.Definitions() {
					fmt.Fprintf(out, "%-32s %s\n", d.ID(), d.Tool.Description)
				}
				return nil
			}

			results, err := catalog.Search(args[0], limit)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintf(out, "no tools match %q\n", args[0])
				return nil
			}
			for _, r := range results {
				fmt.Fprintf(out, "%-32s %s\n", r.ID, r.ShortDescription)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&describe, "describe", "", "describe one tool by id or name")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results or examples")
	return cmd
}

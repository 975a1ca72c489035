package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/Zipties/toolarr/internal/arr"
	"github.com/Zipties/toolarr/internal/gateway"
	"github.com/Zipties/toolarr/internal/tools"
	pkgstrings "github.com/Zipties/toolarr/pkg/strings"
)

type toolSummary struct {
	Name        string `json:"name"`
	Scope       string `json:"scope"`
	Description string `json:"description"`
}

// newToolsCmd lists every tool the gateway exposes with the scope it requires.
func newToolsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the MCP tools and the scope each one requires",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := gateway.NewRegistry()
			if err := tools.New(arr.NewInstances()).Register(registry); err != nil {
				return err
			}
			summaries := lo.Map(registry.Operations(), func(op gateway.Operation, _ int) toolSummary {
				return toolSummary{Name: op.Name(), Scope: op.Scope, Description: op.Tool.Description}
			})

			switch output {
			case "json":
				return writeJSON(cmd.OutOrStdout(), summaries)
			case "table":
				renderToolsTable(cmd.OutOrStdout(), summaries)
				return nil
			default:
				return fmt.Errorf("unsupported output format %q (want table or json)", output)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table or json")
	return cmd
}

func renderToolsTable(w io.Writer, summaries []toolSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("NAME"),
		text.FgHiCyan.Sprint("SCOPE"),
		text.FgHiCyan.Sprint("DESCRIPTION"),
	})
	for _, s := range summaries {
		description := pkgstrings.TruncateDescription(s.Description, pkgstrings.DefaultDescriptionMaxLen)
		t.AppendRow(table.Row{s.Name, s.Scope, description})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d tools", len(summaries))})
	t.Render()
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

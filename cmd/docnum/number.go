package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docnum/internal/engine"
	"github.com/spf13/cobra"
)

func numberCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "number <file>",
		Short: "Print the numbered outline and elements of a document",
		Long: `Number a document and print its outline, its numbered elements and any
warnings raised along the way.

Example:
  docnum number report.md
  docnum number report.docx --appendix-marker Appendices
  docnum number report.md --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")

			res, err := g.build(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch format {
			case "json":
				return writeJSON(out, map[string]any{
					"title":    res.Title,
					"sections": res.Outline.Sections(),
					"elements": res.Registry.Items(),
					"warnings": res.Warnings,
					"summary":  res.Summary(),
				})
			case "text":
				printOutline(out, res)
				return nil
			default:
				return fmt.Errorf("unknown format %q (use text or json)", format)
			}
		},
	}
	cmd.Flags().String("format", "text", "Output format: text or json")
	return cmd
}

func printOutline(out io.Writer, res *engine.Result) {
	fmt.Fprintf(out, "%s\n\n", res.Title)
	for _, s := range res.Outline.Sections() {
		fmt.Fprintf(out, "%s%s\n", strings.Repeat("  ", max(s.Level-1, 0)), s.Display())
	}

	if items := res.Registry.Items(); len(items) > 0 {
		fmt.Fprintln(out, "\nElements:")
		for _, it := range items {
			fmt.Fprintf(out, "  %-14s %-20s %s\n", it.Label(), it.SemanticID, it.StableID)
		}
	}
	if len(res.Warnings) > 0 {
		fmt.Fprintln(out, "\nWarnings:")
		for _, w := range res.Warnings {
			fmt.Fprintf(out, "  [%s] %s\n", w.Code, w.Message)
		}
	}
}

func refsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refs <file>",
		Short: "Report cross-references: citations, unreferenced and dangling targets",
		Long: `Resolve every cross-reference in a document and report how often each
target is cited, which targets nobody cites and which references dangle.

Example:
  docnum refs report.md
  docnum refs report.pdf --strategy pattern --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			strict, _ := cmd.Flags().GetBool("strict")

			res, err := g.build(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rep := res.Report()
			out := cmd.OutOrStdout()

			switch format {
			case "json":
				if err := writeJSON(out, map[string]any{
					"report":      rep,
					"resolutions": res.Resolutions,
				}); err != nil {
					return err
				}
			case "table":
				fmt.Fprintf(out, "Targets: %d  Usages: %d  Resolved: %d\n", rep.Targets, rep.Usages, rep.Resolved)
				for _, it := range res.Registry.Items() {
					fmt.Fprintf(out, "  %-14s %-20s cited %d\n", it.Label(), it.SemanticID, rep.Citations[it.SemanticID])
				}
				if len(rep.Unreferenced) > 0 {
					fmt.Fprintf(out, "Unreferenced: %s\n", strings.Join(rep.Unreferenced, ", "))
				}
				for _, d := range rep.Dangling {
					fmt.Fprintf(out, "Dangling: %q (block %d)\n", d.Raw, d.Location.Block)
				}
			default:
				return fmt.Errorf("unknown format %q (use table or json)", format)
			}

			if strict && len(rep.Dangling) > 0 {
				return fmt.Errorf("%d dangling references", len(rep.Dangling))
			}
			return nil
		},
	}
	cmd.Flags().String("format", "table", "Output format: table or json")
	cmd.Flags().Bool("strict", false, "Exit with an error when any reference dangles")
	return cmd
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to serialize JSON: %w", err)
	}
	return nil
}

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docnum/internal/export/docxout"
	"github.com/dgallion1/docnum/internal/export/htmlout"
	"github.com/spf13/cobra"
)

func exportCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write a numbered document as DOCX or HTML",
		Long: `Number a document and write it out with resolved references.

DOCX output wraps every caption label in a _Ref bookmark. With --fields
(the default, DOCX_LIVE_FIELDS) references become REF fields whose cached
result is the computed label, so "update fields" in the word processor
keeps them current.

Example:
  docnum export report.md --to docx --output report.docx
  docnum export report.md --to html --output report.html
  docnum export report.md --to docx --fields=false`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, _ := cmd.Flags().GetString("to")
			output, _ := cmd.Flags().GetString("output")

			fields := g.cfg.DOCXLiveFields
			if cmd.Flags().Changed("fields") {
				fields, _ = cmd.Flags().GetBool("fields")
			}

			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "." + to
				if output == args[0] {
					return fmt.Errorf("--output is required when exporting to the source format")
				}
			}

			res, err := g.build(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			switch to {
			case "docx":
				if err := docxout.Write(&buf, res, docxout.Options{LiveFields: fields}); err != nil {
					return fmt.Errorf("failed to write docx: %w", err)
				}
			case "html":
				page, err := htmlout.New().Document(res)
				if err != nil {
					return fmt.Errorf("failed to render html: %w", err)
				}
				buf.WriteString(page)
			default:
				return fmt.Errorf("unknown target %q (use docx or html)", to)
			}

			if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			sum := res.Summary()
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s: %d sections, %d references (%d resolved), %d warnings\n",
				output, sum.Sections, sum.Usages, sum.Resolved, len(res.Warnings))
			return nil
		},
	}
	cmd.Flags().String("to", "docx", "Target format: docx or html")
	cmd.Flags().StringP("output", "o", "", "Output file (default: source name with the target extension)")
	cmd.Flags().Bool("fields", true, "Write DOCX references as live REF fields")
	return cmd
}

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file.docx>",
		Short: "List the bookmarks and REF fields of a DOCX file",
		Long: `Read a DOCX file and list its bookmarks and REF fields. Fails when a
REF field targets a missing bookmark or a _Ref bookmark breaks the
nine-digit naming convention.

Example:
  docnum inspect report.docx
  docnum inspect report.docx --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")

			in, err := inspectFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch format {
			case "json":
				if err := writeJSON(out, in); err != nil {
					return err
				}
			case "table":
				fmt.Fprintf(out, "Bookmarks (%d):\n", len(in.Bookmarks))
				for _, b := range in.Bookmarks {
					fmt.Fprintf(out, "  %-16s %s\n", b.Name, b.Text)
				}
				fmt.Fprintf(out, "References (%d):\n", len(in.Refs))
				for _, r := range in.Refs {
					fmt.Fprintf(out, "  %-16s %s\n", r.Target, r.Result)
				}
				for _, r := range in.Broken {
					fmt.Fprintf(out, "Broken: %s\n", r.Target)
				}
				for _, name := range in.BadNames {
					fmt.Fprintf(out, "Bad bookmark name: %s\n", name)
				}
			default:
				return fmt.Errorf("unknown format %q (use table or json)", format)
			}

			if !in.OK() {
				return fmt.Errorf("%d broken references, %d bad bookmark names", len(in.Broken), len(in.BadNames))
			}
			return nil
		},
	}
	cmd.Flags().String("format", "table", "Output format: table or json")
	return cmd
}

func inspectFile(path string) (*docxout.Inspection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return docxout.Inspect(f, st.Size())
}

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docnum/internal/doctree"
	"github.com/dgallion1/docnum/internal/engine"
	"github.com/dgallion1/docnum/internal/parser"
	"github.com/dgallion1/docnum/internal/xref"
	"github.com/spf13/cobra"
)

// Mismatch is one place where a rendered document disagrees with the
// numbers computed from its source.
type Mismatch struct {
	Block    int    `json:"block"`
	Text     string `json:"text"`
	Expected string `json:"expected,omitempty"`
	Problem  string `json:"problem"`
}

// Verification compares a rendered document against its source.
type Verification struct {
	Captions   int        `json:"captions"`
	References int        `json:"references"`
	Mismatches []Mismatch `json:"mismatches"`
	Broken     []string   `json:"broken,omitempty"`
}

func (v *Verification) OK() bool {
	return len(v.Mismatches) == 0 && len(v.Broken) == 0
}

func verifyCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <source> <rendered>",
		Short: "Check a rendered PDF, DOCX or HTML against the numbers of its source",
		Long: `Number the source, then read the rendered output and check that every
caption shows the computed number and every "Figure N"-style reference in
the rendered text names an element that exists. DOCX output is also
inspected for REF fields that point at missing bookmarks.

Example:
  docnum verify report.md report.pdf
  docnum verify report.md report.docx --format json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")

			res, err := g.build(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rendered, err := parseFile(g, args[1])
			if err != nil {
				return err
			}

			v := verify(res, rendered)
			if strings.EqualFold(filepath.Ext(args[1]), ".docx") {
				in, err := inspectFile(args[1])
				if err != nil {
					return err
				}
				for _, r := range in.Broken {
					v.Broken = append(v.Broken, r.Target)
				}
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				if err := writeJSON(out, v); err != nil {
					return err
				}
			case "table":
				printVerification(out, v)
			default:
				return fmt.Errorf("unknown format %q (use table or json)", format)
			}

			if !v.OK() {
				return fmt.Errorf("%s does not match %s", args[1], args[0])
			}
			return nil
		},
	}
	cmd.Flags().String("format", "table", "Output format: table or json")
	return cmd
}

func parseFile(g *globals, path string) (*doctree.Document, error) {
	p, err := parser.ForFile(path, parser.Options{PDFFallback: g.cfg.PDFFallbackPdftotext})
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	doc, err := p.Parse(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc, nil
}

// verify matches the n-th rendered caption of each kind against the n-th
// registered element of that kind, and checks that pattern references in
// the rendered text name a number some element carries.
func verify(res *engine.Result, rendered *doctree.Document) *Verification {
	v := &Verification{Mismatches: []Mismatch{}}
	seen := make(map[xref.Kind]int)
	numbers := make(map[xref.Kind]map[string]bool)
	for _, it := range res.Registry.Items() {
		if numbers[it.Kind] == nil {
			numbers[it.Kind] = make(map[string]bool)
		}
		numbers[it.Kind][it.DisplayNumber] = true
	}

	ex := xref.NewExtractor()
	for i, b := range rendered.Blocks {
		switch b.Type {
		case doctree.Element:
			if b.Number == "" {
				continue
			}
			kind, err := xref.ParseKind(b.Kind)
			if err != nil {
				continue
			}
			v.Captions++
			want := res.Registry.AllInOrder(kind)
			n := seen[kind]
			seen[kind]++
			if n >= len(want) {
				v.Mismatches = append(v.Mismatches, Mismatch{Block: i, Text: b.Number, Problem: fmt.Sprintf("extra %s caption", kind)})
				continue
			}
			if want[n].DisplayNumber != b.Number {
				v.Mismatches = append(v.Mismatches, Mismatch{
					Block:    i,
					Text:     b.Number,
					Expected: want[n].DisplayNumber,
					Problem:  fmt.Sprintf("%s caption shows a stale number", kind),
				})
			}

		case doctree.Text:
			for _, u := range ex.Patterns(i, b.Text) {
				v.References++
				if !numbers[u.Kind][u.Number] {
					v.Mismatches = append(v.Mismatches, Mismatch{
						Block:   i,
						Text:    u.Raw,
						Problem: fmt.Sprintf("no %s is numbered %s", u.Kind, u.Number),
					})
				}
			}
		}
	}
	return v
}

func printVerification(out io.Writer, v *Verification) {
	fmt.Fprintf(out, "Checked %d captions and %d references\n", v.Captions, v.References)
	for _, m := range v.Mismatches {
		if m.Expected != "" {
			fmt.Fprintf(out, "  block %d: %s (%q, expected %q)\n", m.Block, m.Problem, m.Text, m.Expected)
			continue
		}
		fmt.Fprintf(out, "  block %d: %s (%q)\n", m.Block, m.Problem, m.Text)
	}
	for _, b := range v.Broken {
		fmt.Fprintf(out, "  broken REF field: %s\n", b)
	}
	if v.OK() {
		fmt.Fprintln(out, "OK")
	}
}

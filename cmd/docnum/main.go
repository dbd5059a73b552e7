package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/docnum/internal/config"
	"github.com/dgallion1/docnum/internal/engine"
	"github.com/dgallion1/docnum/internal/parser"
	"github.com/dgallion1/docnum/internal/xref"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// globals holds the flags shared by every subcommand.
type globals struct {
	logFormat      string
	verbose        bool
	strategy       string
	appendixMarker string
	observed       bool
	cfg            config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{cfg: config.Load()}

	rootCmd := &cobra.Command{
		Use:   "docnum",
		Short: "Document numbering and cross-reference engine",
		Long: `docnum numbers sections, figures, tables and equations and resolves
the cross-references between them.

It reads Markdown, HTML, DOCX, PDF and plain text and produces:
  - Hierarchical section numbers with appendix lettering
  - Chapter-scoped caption numbers ("Figure 2-3")
  - DOCX output with _Ref bookmarks and live REF fields
  - HTML for live preview, pushed to browsers over a websocket`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := g.cfg.ValidateNumbering(); err != nil {
				return err
			}
			_, err := xref.ParseMode(g.strategy)
			return err
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.logFormat, "log-format", "text", "Log format: text or json")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Log build progress to stderr")
	pf.StringVar(&g.strategy, "strategy", g.cfg.ReferenceStrategy, "Reference strategy: anchor, pattern or both")
	pf.StringVar(&g.appendixMarker, "appendix-marker", g.cfg.AppendixMarker, "Heading text that starts the appendices")
	pf.BoolVar(&g.observed, "observed-numbers", false, "Resolve pattern references against the numbers the source shows")

	rootCmd.AddCommand(numberCmd(g))
	rootCmd.AddCommand(refsCmd(g))
	rootCmd.AddCommand(exportCmd(g))
	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(verifyCmd(g))
	rootCmd.AddCommand(sendCmd(g))
	rootCmd.AddCommand(watchCmd(g))

	return rootCmd
}

// logger writes to stderr when --verbose is set and discards otherwise.
func (g *globals) logger() *slog.Logger {
	if !g.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if g.logFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func (g *globals) engineOptions() engine.Options {
	return engine.Options{
		AppendixMarker:      g.appendixMarker,
		Strategy:            xref.Mode(g.strategy),
		MaxBookmarkAttempts: g.cfg.BookmarkMaxAttempts,
		ObservedNumbers:     g.observed,
	}
}

// build parses and numbers the file at path.
func (g *globals) build(ctx context.Context, path string) (*engine.Result, error) {
	p, err := parser.ForFile(path, parser.Options{PDFFallback: g.cfg.PDFFallbackPdftotext})
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	defer f.Close()

	doc, err := p.Parse(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return engine.Build(ctx, doc, g.engineOptions(), g.logger())
}

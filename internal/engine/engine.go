// Package engine runs one document build: number sections, register
// numbered elements, compute display numbers, then find and resolve
// references in the text.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dgallion1/docnum/internal/bundle"
	"github.com/dgallion1/docnum/internal/diag"
	"github.com/dgallion1/docnum/internal/doctree"
	"github.com/dgallion1/docnum/internal/numbering"
	"github.com/dgallion1/docnum/internal/xref"
)

// Options configure one build.
type Options struct {
	// AppendixMarker is heading text that starts appendix numbering.
	AppendixMarker string
	// Strategy selects anchor, pattern or both. Empty means both.
	Strategy xref.Mode
	// MaxBookmarkAttempts bounds stable id retries. Zero uses the default.
	MaxBookmarkAttempts int
	// ReservedBookmarks are stable ids already present in the output.
	ReservedBookmarks []string
	// ObservedNumbers resolves pattern text against the numbers the source
	// shows on its captions instead of the freshly computed ones.
	ObservedNumbers bool
	// Rand replaces the stable id random source; it must return [0, n).
	Rand func(n int64) int64
}

// Result is everything a build produced. Blocks is the input stream with
// heading ids filled in, element ids normalized and resolved references in
// text blocks rewritten to link units.
type Result struct {
	Title       string
	Outline     *numbering.Outline
	Registry    *xref.Registry
	Blocks      []doctree.Block
	Resolutions []xref.Resolution
	Warnings    []diag.Warning
	Duration    time.Duration
}

// Build numbers doc. Recoverable problems become warnings on the result;
// the error return is reserved for conditions that stop the build.
func Build(ctx context.Context, doc *doctree.Document, opts Options, log *slog.Logger) (*Result, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	mode, err := xref.ParseMode(string(opts.Strategy))
	if err != nil {
		return nil, err
	}
	start := time.Now()
	warn := diag.NewCollector(log)

	blocks := make([]doctree.Block, len(doc.Blocks))
	copy(blocks, doc.Blocks)

	// Phase 1: sections
	outline := assignSections(blocks, opts.AppendixMarker, warn)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 2: elements
	reg, err := registerElements(blocks, opts, warn)
	if err != nil {
		return nil, err
	}
	reg.UpdateDisplayNumbers(outline)

	observed := false
	if opts.ObservedNumbers {
		for _, b := range blocks {
			if b.Type == doctree.Element && b.Number != "" {
				observed = reg.SetDisplayNumber(b.ID, b.Number) || observed
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 3: references
	ex := xref.NewExtractor()
	resolver := xref.NewResolver(reg, warn)
	var all []xref.Resolution
	for i, b := range blocks {
		if b.Type != doctree.Text {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		all = append(all, resolver.Resolve(ex.Extract(i, b.Text, mode))...)
	}
	if observed {
		reg.UpdateDisplayNumbers(outline)
		xref.Relabel(reg, all)
	}
	rewriteBlocks(blocks, all)

	res := &Result{
		Title:       doc.Title,
		Outline:     outline,
		Registry:    reg,
		Blocks:      blocks,
		Resolutions: all,
		Warnings:    warn.Warnings(),
		Duration:    time.Since(start),
	}
	log.Info("document numbered",
		"title", doc.Title,
		"sections", outline.Len(),
		"elements", reg.Len(),
		"usages", len(all),
		"warnings", len(res.Warnings),
		"duration", res.Duration)
	return res, nil
}

func assignSections(blocks []doctree.Block, marker string, warn *diag.Collector) *numbering.Outline {
	asg := numbering.NewAssigner(numbering.Options{AppendixMarker: marker}, warn)
	var sections []numbering.Section
	for i := range blocks {
		b := &blocks[i]
		switch b.Type {
		case doctree.AppendixMarker:
			asg.StartAppendix()
		case doctree.Heading:
			s := asg.Next(numbering.Heading{Level: b.Level, Title: b.Text, IsAppendix: b.Appendix, ID: b.ID}, i)
			b.ID, b.Level, b.Appendix = s.ID, s.Level, s.IsAppendix
			sections = append(sections, s)
		}
	}
	return numbering.NewOutline(sections)
}

func registerElements(blocks []doctree.Block, opts Options, warn *diag.Collector) (*xref.Registry, error) {
	regOpts := []xref.Option{
		xref.WithCollector(warn),
		xref.WithMaxAttempts(opts.MaxBookmarkAttempts),
		xref.WithReserved(opts.ReservedBookmarks...),
	}
	if opts.Rand != nil {
		regOpts = append(regOpts, xref.WithRand(opts.Rand))
	}
	reg := xref.NewRegistry(regOpts...)

	for i := range blocks {
		b := &blocks[i]
		if b.Type != doctree.Element {
			continue
		}
		kind, err := elementKind(*b)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		id, _, _ := xref.NormalizeID(b.ID)
		if _, err := reg.Register(kind, id, xref.Placement{Order: i, Caption: b.Caption}); err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		b.ID, b.Kind = id, kind.Prefix()
	}
	return reg, nil
}

func elementKind(b doctree.Block) (xref.Kind, error) {
	if b.Kind != "" {
		return xref.ParseKind(b.Kind)
	}
	if _, kind, ok := xref.NormalizeID(b.ID); ok {
		return kind, nil
	}
	return 0, fmt.Errorf("element %q has no kind", b.ID)
}

// rewriteBlocks applies resolutions, which arrive grouped by block.
func rewriteBlocks(blocks []doctree.Block, all []xref.Resolution) {
	for i := 0; i < len(all); {
		blk := all[i].Location.Block
		j := i
		for j < len(all) && all[j].Location.Block == blk {
			j++
		}
		blocks[blk].Text = xref.Rewrite(blocks[blk].Text, all[i:j])
		i = j
	}
}

// Item finds a registered element by semantic id.
func (r *Result) Item(semanticID string) (xref.Item, bool) {
	return r.Registry.Lookup(semanticID)
}

// ResolvedNumber returns the display number for a semantic id.
func (r *Result) ResolvedNumber(semanticID string) (string, bool) {
	it, ok := r.Registry.Lookup(semanticID)
	if !ok {
		return "", false
	}
	return it.DisplayNumber, true
}

// Triples returns (stableId, displayNumber, documentOrder) for export adapters.
func (r *Result) Triples() []xref.Triple {
	return r.Registry.Triples()
}

func (r *Result) Report() xref.Report {
	return xref.BuildReport(r.Registry, r.Resolutions)
}

// ResolutionsIn returns the resolutions found in one block.
func (r *Result) ResolutionsIn(block int) []xref.Resolution {
	var out []xref.Resolution
	for _, res := range r.Resolutions {
		if res.Location.Block == block {
			out = append(out, res)
		}
	}
	return out
}

// Manifest describes every section for the live preview.
func (r *Result) Manifest(docID string) bundle.Manifest {
	return bundle.NewManifest(docID, r.Title, r.Outline)
}

// Bundles splits the rewritten blocks at level-1 headings.
func (r *Result) Bundles() []bundle.Bundle {
	return bundle.Split(r.Blocks, r.Outline)
}

// Summary is a compact description of a build.
type Summary struct {
	Sections   int               `json:"sections"`
	Appendices int               `json:"appendices"`
	Elements   map[string]int    `json:"elements"`
	Usages     int               `json:"usages"`
	Resolved   int               `json:"resolved"`
	Warnings   map[diag.Code]int `json:"warnings"`
	DurationMs int64             `json:"duration_ms"`
}

func (r *Result) Summary() Summary {
	st := r.Outline.Stats()
	s := Summary{
		Sections:   st.Total,
		Appendices: st.Appendix,
		Elements:   make(map[string]int),
		Usages:     len(r.Resolutions),
		Warnings:   make(map[diag.Code]int),
		DurationMs: r.Duration.Milliseconds(),
	}
	for _, it := range r.Registry.Items() {
		s.Elements[it.Kind.String()]++
	}
	for _, res := range r.Resolutions {
		if res.Resolved {
			s.Resolved++
		}
	}
	for _, w := range r.Warnings {
		s.Warnings[w.Code]++
	}
	return s
}

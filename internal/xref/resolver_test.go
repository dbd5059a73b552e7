package xref_test

import (
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/dgallion1/docnum/internal/diag"
	"github.com/dgallion1/docnum/internal/numbering"
	"github.com/dgallion1/docnum/internal/xref"
	"github.com/dgallion1/docnum/internal/xref/mocks"
)

func TestResolver_AnchorResolves(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	lookup := mocks.NewMockLookup(ctrl)
	lookup.EXPECT().Lookup("fig:trend").Return(xref.Item{
		Kind: xref.Figure, SemanticID: "fig:trend", StableID: "_Ref123456789", DisplayNumber: "2-1",
	}, true)

	warn := diag.NewCollector(nil)
	r := xref.NewResolver(lookup, warn)
	res := r.ResolveOne(xref.Usage{TargetSemanticID: "fig:trend", Kind: xref.Figure, Strategy: xref.Anchor, Raw: "@fig:trend"})

	if !res.Resolved {
		t.Fatal("expected resolution")
	}
	if res.ResolvedText != "Figure 2-1" || res.TargetStableID != "_Ref123456789" {
		t.Errorf("unexpected resolution: %+v", res)
	}
	if len(warn.Warnings()) != 0 {
		t.Errorf("expected no warnings, got %v", warn.Warnings())
	}
}

func TestResolver_AnchorKindMismatchStillResolves(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	lookup := mocks.NewMockLookup(ctrl)
	lookup.EXPECT().Lookup("fig:costs").Return(xref.Item{
		Kind: xref.Table, SemanticID: "tbl:costs", StableID: "_Ref111111111", DisplayNumber: "1-1",
	}, true)

	warn := diag.NewCollector(nil)
	res := xref.NewResolver(lookup, warn).ResolveOne(xref.Usage{TargetSemanticID: "fig:costs", Kind: xref.Figure, Strategy: xref.Anchor})
	if !res.Resolved || res.ResolvedText != "Table 1-1" {
		t.Errorf("expected the target's own label, got %+v", res)
	}
	if !warn.Has(diag.KindMismatch) {
		t.Error("expected kind mismatch warning")
	}
}

func TestResolver_DanglingAnchor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	lookup := mocks.NewMockLookup(ctrl)
	lookup.EXPECT().Lookup("ghost_fig").Return(xref.Item{}, false)

	warn := diag.NewCollector(nil)
	res := xref.NewResolver(lookup, warn).ResolveOne(xref.Usage{TargetSemanticID: "ghost_fig", Strategy: xref.Anchor, Raw: "@ghost_fig"})
	if res.Resolved {
		t.Fatal("expected unresolved")
	}
	if res.ResolvedText != "@ghost_fig" {
		t.Errorf("expected raw text kept, got %q", res.ResolvedText)
	}
	if !warn.Has(diag.DanglingReference) {
		t.Error("expected dangling reference warning")
	}
}

func TestResolver_PatternAmbiguousTakesFirst(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	lookup := mocks.NewMockLookup(ctrl)
	lookup.EXPECT().AllInOrder(xref.Figure).Return([]xref.Item{
		{Kind: xref.Figure, SemanticID: "fig:a", StableID: "_Ref100000001", DisplayNumber: "1-1", DocumentOrder: 1},
		{Kind: xref.Figure, SemanticID: "fig:b", StableID: "_Ref100000002", DisplayNumber: "1-1", DocumentOrder: 2},
	})

	warn := diag.NewCollector(nil)
	res := xref.NewResolver(lookup, warn).ResolveOne(xref.Usage{Kind: xref.Figure, Strategy: xref.Pattern, Raw: "Figure 1-1", Number: "1-1"})
	if res.TargetSemanticID != "fig:a" {
		t.Errorf("expected first candidate fig:a, got %s", res.TargetSemanticID)
	}
	if !warn.Has(diag.AmbiguousPatternMatch) {
		t.Error("expected ambiguous pattern warning")
	}
}

func TestResolver_PatternSequentialFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	lookup := mocks.NewMockLookup(ctrl)
	lookup.EXPECT().AllInOrder(xref.Table).Return([]xref.Item{
		{Kind: xref.Table, SemanticID: "tbl:a", DisplayNumber: "1-1"},
		{Kind: xref.Table, SemanticID: "tbl:b", DisplayNumber: "2-1"},
	}).Times(2)

	warn := diag.NewCollector(nil)
	r := xref.NewResolver(lookup, warn)

	res := r.ResolveOne(xref.Usage{Kind: xref.Table, Strategy: xref.Pattern, Raw: "Table 2", Number: "2"})
	if !res.Resolved || res.TargetSemanticID != "tbl:b" {
		t.Errorf("expected second table, got %+v", res)
	}

	res = r.ResolveOne(xref.Usage{Kind: xref.Table, Strategy: xref.Pattern, Raw: "Table 9", Number: "9"})
	if res.Resolved || res.ResolvedText != "Table 9" {
		t.Errorf("expected out of range number to stay as text, got %+v", res)
	}
	if !warn.Has(diag.DanglingReference) {
		t.Error("expected dangling reference warning")
	}
}

// registryWithChapters builds a registry where fig:a and fig:b sit in
// chapter 1 and fig:c in chapter 2.
func registryWithChapters(t *testing.T, warn *diag.Collector) *xref.Registry {
	t.Helper()
	sections := numbering.NewAssigner(numbering.Options{}, nil).Assign([]numbering.Heading{
		{Level: 1, Title: "Intro"},
		{Level: 1, Title: "Results"},
	})
	sections[0].DocumentOrder, sections[1].DocumentOrder = 0, 10
	r := xref.NewRegistry(xref.WithCollector(warn))
	for id, order := range map[string]int{"fig:a": 1, "fig:b": 2, "fig:c": 11} {
		if _, err := r.RegisterFigure(id, xref.Placement{Order: order}); err != nil {
			t.Fatal(err)
		}
	}
	r.UpdateDisplayNumbers(numbering.NewOutline(sections))
	return r
}

func TestResolver_StaleDisplayNumbersAreAmbiguous(t *testing.T) {
	warn := diag.NewCollector(nil)
	reg := registryWithChapters(t, warn)
	// A renderer that has not refreshed yet still shows 1-1 for fig:b.
	reg.SetDisplayNumber("fig:b", "1-1")

	ex := xref.NewExtractor()
	usages := ex.Extract(0, "Compare Figure 1-1 with the rest.", xref.ModeBoth)
	res := xref.NewResolver(reg, warn).Resolve(usages)

	if len(res) != 1 || res[0].TargetSemanticID != "fig:a" {
		t.Fatalf("expected fig:a, got %+v", res)
	}
	if !warn.Has(diag.AmbiguousPatternMatch) {
		t.Error("expected ambiguous pattern warning")
	}
}

func TestResolver_UnregisteredIDLeavesTextUnchanged(t *testing.T) {
	warn := diag.NewCollector(nil)
	reg := registryWithChapters(t, warn)

	text := "The outlier in [see](#fig_ghost_fig) is gone."
	ex := xref.NewExtractor()
	res := xref.NewResolver(reg, warn).Resolve(ex.Extract(3, text, xref.ModeBoth))
	if len(res) != 1 || res[0].Resolved {
		t.Fatalf("expected one unresolved usage, got %+v", res)
	}
	if got := xref.Rewrite(text, res); got != text {
		t.Errorf("expected text unchanged, got %q", got)
	}
	if !warn.Has(diag.DanglingReference) {
		t.Error("expected dangling reference warning")
	}
}

func TestResolver_RewriteIsIdempotent(t *testing.T) {
	warn := diag.NewCollector(nil)
	reg := registryWithChapters(t, warn)
	ex := xref.NewExtractor()
	resolver := xref.NewResolver(reg, warn)

	text := "See @fig:c, then Figure 1-2 and [@fig_a]."
	first := xref.Rewrite(text, resolver.Resolve(ex.Extract(0, text, xref.ModeBoth)))
	want := "See [Figure 2-1](#fig:c), then [Figure 1-2](#fig:b) and [Figure 1-1](#fig:a)."
	if first != want {
		t.Fatalf("rewrite:\n got %q\nwant %q", first, want)
	}

	again := resolver.Resolve(ex.Extract(0, first, xref.ModeBoth))
	for _, r := range again {
		if r.Strategy != xref.Anchor || !r.Resolved {
			t.Errorf("expected resolved anchor on second pass, got %+v", r)
		}
	}
	if second := xref.Rewrite(first, again); second != first {
		t.Errorf("second rewrite changed text:\n got %q\nwant %q", second, first)
	}
}

func TestResolver_DeferAndDrain(t *testing.T) {
	warn := diag.NewCollector(nil)
	reg := xref.NewRegistry(xref.WithCollector(warn))
	r := xref.NewResolver(reg, warn)

	usages := xref.NewExtractor().Extract(0, "@fig:late and @tbl:never", xref.ModeAnchor)
	res := r.ResolveOrDefer(usages)
	if len(res) != 2 || res[0].Resolved || res[1].Resolved {
		t.Fatalf("expected two parked usages, got %+v", res)
	}
	if len(r.Pending()) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(r.Pending()))
	}
	if warn.Has(diag.DanglingReference) {
		t.Error("parking must not warn")
	}

	reg.RegisterFigure("fig:late", xref.Placement{Order: 5})
	reg.UpdateDisplayNumbers(nil)

	drained := r.Drain()
	if len(drained) != 1 || !drained[0].Resolved || drained[0].ResolvedText != "Figure 0-1" {
		t.Fatalf("expected fig:late drained, got %+v", drained)
	}
	if p := r.Pending(); len(p) != 1 || p[0].TargetSemanticID != "tbl:never" {
		t.Fatalf("expected tbl:never still pending, got %+v", p)
	}

	flushed := r.FlushPending()
	if len(flushed) != 1 || flushed[0].Resolved {
		t.Fatalf("expected tbl:never flushed unresolved, got %+v", flushed)
	}
	if !warn.Has(diag.DanglingReference) || len(r.Pending()) != 0 {
		t.Error("expected dangling warning and empty queue after flush")
	}
}

func TestBuildReport(t *testing.T) {
	warn := diag.NewCollector(nil)
	reg := registryWithChapters(t, warn)
	ex := xref.NewExtractor()
	text := "@fig:a, @fig:a again, @fig:ghost"
	res := xref.NewResolver(reg, warn).Resolve(ex.Extract(0, text, xref.ModeAnchor))

	rep := xref.BuildReport(reg, res)
	if rep.Targets != 3 || rep.Usages != 3 || rep.Resolved != 2 {
		t.Errorf("unexpected counts: %+v", rep)
	}
	if rep.Citations["fig:a"] != 2 {
		t.Errorf("expected fig:a cited twice, got %d", rep.Citations["fig:a"])
	}
	if len(rep.Unreferenced) != 2 || rep.Unreferenced[0] != "fig:b" || rep.Unreferenced[1] != "fig:c" {
		t.Errorf("expected fig:b and fig:c unreferenced, got %v", rep.Unreferenced)
	}
	if len(rep.Dangling) != 1 || rep.Dangling[0].TargetSemanticID != "fig:ghost" {
		t.Errorf("expected fig:ghost dangling, got %+v", rep.Dangling)
	}
}

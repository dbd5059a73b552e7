package numbering

import (
	"testing"

	"github.com/dgallion1/docnum/internal/diag"
)

// sampleOutline numbers as 1, 1.1, 1.2, 1.2.1, 2, A, A.1.
func sampleOutline() *Outline {
	sections := NewAssigner(Options{}, nil).Assign([]Heading{
		{Level: 1, Title: "Intro"},
		{Level: 2, Title: "Scope"},
		{Level: 2, Title: "Terms"},
		{Level: 3, Title: "Units"},
		{Level: 1, Title: "Methods"},
		{Level: 1, Title: "Tables", IsAppendix: true},
		{Level: 2, Title: "Raw"},
	})
	return NewOutline(sections)
}

func TestOutline_Links(t *testing.T) {
	o := sampleOutline()

	terms, ok := o.ByID("terms")
	if !ok {
		t.Fatal("expected section terms")
	}
	if terms.ParentID != "intro" {
		t.Errorf("expected parent intro, got %q", terms.ParentID)
	}
	if terms.PrevSiblingID != "scope" || terms.NextSiblingID != "" {
		t.Errorf("unexpected siblings: prev=%q next=%q", terms.PrevSiblingID, terms.NextSiblingID)
	}

	intro, _ := o.ByID("intro")
	if len(intro.ChildIDs) != 2 || intro.ChildIDs[0] != "scope" || intro.ChildIDs[1] != "terms" {
		t.Errorf("unexpected children of intro: %v", intro.ChildIDs)
	}
	if intro.NextSiblingID != "methods" {
		t.Errorf("expected intro next sibling methods, got %q", intro.NextSiblingID)
	}

	tables, _ := o.ByID("tables")
	if tables.PrevSiblingID != "methods" {
		t.Errorf("expected appendix to follow methods, got %q", tables.PrevSiblingID)
	}

	roots := o.Roots()
	if len(roots) != 3 {
		t.Errorf("expected 3 roots, got %d", len(roots))
	}
}

func TestOutline_Queries(t *testing.T) {
	o := sampleOutline()

	if s, ok := o.ByNumber("1.2.1"); !ok || s.Title != "Units" {
		t.Errorf("ByNumber(1.2.1) = %+v, %v", s, ok)
	}
	path := o.Path("units")
	if len(path) != 3 || path[0].ID != "intro" || path[2].ID != "units" {
		t.Errorf("unexpected path: %+v", path)
	}
	if d := o.Descendants("intro"); len(d) != 3 {
		t.Errorf("expected 3 descendants of intro, got %d", len(d))
	}
	if a := o.Appendices(); len(a) != 2 {
		t.Errorf("expected 2 appendix sections, got %d", len(a))
	}
	if l := o.ByLevel(2); len(l) != 3 {
		t.Errorf("expected 3 level-2 sections, got %d", len(l))
	}
	if p, ok := o.Parent("raw"); !ok || p.ID != "tables" {
		t.Errorf("expected parent of raw to be tables, got %+v", p)
	}

	st := o.Stats()
	if st.Total != 7 || st.Main != 5 || st.Appendix != 2 || st.ByLevel[1] != 3 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestOutline_ChapterScopeAt(t *testing.T) {
	sections := NewAssigner(Options{}, nil).Assign([]Heading{
		{Level: 1, Title: "One"},
		{Level: 2, Title: "Sub"},
		{Level: 1, Title: "Two"},
		{Level: 1, Title: "App", IsAppendix: true},
	})
	// Spread headings over the stream so captions can sit between them.
	for i := range sections {
		sections[i].DocumentOrder = i * 10
	}
	o := NewOutline(sections)

	tests := []struct {
		order int
		want  string
		ok    bool
	}{
		{order: -1, want: NoChapterScope, ok: false},
		{order: 5, want: "1", ok: true},
		{order: 15, want: "1", ok: true},
		{order: 25, want: "2", ok: true},
		{order: 35, want: "A", ok: true},
	}
	for _, tt := range tests {
		got, ok := o.ChapterScopeAt(tt.order)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ChapterScopeAt(%d) = %q, %v; want %q, %v", tt.order, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCaptionCounter_ChapterScoped(t *testing.T) {
	c := NewCaptionCounter(nil)

	a := c.Register("fig", "1")
	b := c.Register("fig", "1")
	if CaptionNumber("1", a) != "1-1" || CaptionNumber("1", b) != "1-2" {
		t.Errorf("expected 1-1 and 1-2, got %s and %s", CaptionNumber("1", a), CaptionNumber("1", b))
	}
	next := c.Register("fig", "2")
	if CaptionNumber("2", next) != "2-1" {
		t.Errorf("expected 2-1, got %s", CaptionNumber("2", next))
	}
	if tbl := c.Register("tbl", "1"); tbl != 1 {
		t.Errorf("expected table sequence independent of figures, got %d", tbl)
	}
	if c.Count("fig", "1") != 2 {
		t.Errorf("expected 2 figures in chapter 1, got %d", c.Count("fig", "1"))
	}
}

func TestCaptionCounter_NoChapter(t *testing.T) {
	warn := diag.NewCollector(nil)
	c := NewCaptionCounter(warn)

	if n := c.Register("fig", ""); n != 1 {
		t.Errorf("expected ordinal 1, got %d", n)
	}
	if n := c.Register("fig", NoChapterScope); n != 2 {
		t.Errorf("expected empty scope and %q to share a sequence, got %d", NoChapterScope, n)
	}
	if !warn.Has(diag.InvalidChapterScope) {
		t.Error("expected invalid chapter scope warning")
	}
	if got := CaptionNumber("", 2); got != "0-2" {
		t.Errorf("expected 0-2, got %q", got)
	}
}

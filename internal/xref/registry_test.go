package xref

import (
	"errors"
	"testing"

	"github.com/dgallion1/docnum/internal/diag"
	"github.com/dgallion1/docnum/internal/numbering"
)

// sequence returns a random source that replays values, then repeats the last.
func sequence(values ...int64) func(int64) int64 {
	i := 0
	return func(n int64) int64 {
		v := values[min(i, len(values)-1)]
		i++
		return v % n
	}
}

func outlineFor(headings ...numbering.Heading) *numbering.Outline {
	return numbering.NewOutline(numbering.NewAssigner(numbering.Options{}, nil).Assign(headings))
}

func TestRegistry_StableIDShape(t *testing.T) {
	r := NewRegistry(WithRand(sequence(0, 206075071, 899999999)))
	want := []string{"_Ref100000000", "_Ref306075071", "_Ref999999999"}
	for i, id := range []string{"fig:a", "fig:b", "fig:c"} {
		got, err := r.RegisterFigure(id, Placement{Order: i})
		if err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
		if got != want[i] {
			t.Errorf("expected %s, got %s", want[i], got)
		}
		if !IsBookmark(got) {
			t.Errorf("%s does not have the bookmark shape", got)
		}
	}
}

func TestRegistry_DefaultRandomIDsAreUnique(t *testing.T) {
	r := NewRegistry()
	seen := make(map[string]bool)
	for i := range 500 {
		id, err := r.RegisterTable("tbl:t"+string(rune('a'+i%26))+string(rune('a'+i/26)), Placement{Order: i})
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		if seen[id] {
			t.Fatalf("stable id %s issued twice", id)
		}
		if !IsBookmark(id) {
			t.Fatalf("%s does not have the bookmark shape", id)
		}
		seen[id] = true
	}
}

func TestRegistry_DuplicateRegistrationReturnsOriginal(t *testing.T) {
	warn := diag.NewCollector(nil)
	r := NewRegistry(WithCollector(warn), WithRand(sequence(1, 2)))

	first, err := r.RegisterFigure("fig:trend", Placement{Order: 1})
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.RegisterFigure("fig_trend", Placement{Order: 9})
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("expected duplicate to return %s, got %s", first, second)
	}
	if r.Len() != 1 {
		t.Errorf("expected one entry, got %d", r.Len())
	}
	if !warn.Has(diag.DuplicateRegistration) {
		t.Error("expected duplicate registration warning")
	}
}

func TestRegistry_CollisionRetries(t *testing.T) {
	warn := diag.NewCollector(nil)
	r := NewRegistry(WithCollector(warn), WithRand(sequence(5, 5, 5, 7)))

	a, _ := r.RegisterEquation("eq:a", Placement{Order: 0})
	b, err := r.RegisterEquation("eq:b", Placement{Order: 1})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct ids, both %s", a)
	}
	if b != "_Ref100000007" {
		t.Errorf("expected _Ref100000007, got %s", b)
	}
	if warn.Count(diag.BookmarkCollision) == 0 {
		t.Error("expected bookmark collision warning")
	}
}

func TestRegistry_CollisionExhaustionFails(t *testing.T) {
	r := NewRegistry(WithRand(sequence(3)), WithMaxAttempts(4), WithReserved("_Ref100000003"))

	_, err := r.RegisterFigure("fig:x", Placement{})
	if !errors.Is(err, ErrBookmarkCollision) {
		t.Fatalf("expected ErrBookmarkCollision, got %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("expected nothing registered, got %d", r.Len())
	}
}

func TestRegistry_RoundTrip(t *testing.T) {
	r := NewRegistry()
	ids := []struct {
		kind Kind
		id   string
		want string
	}{
		{Figure, "fig:historical_trends", "fig:historical_trends"},
		{Table, "tbl:costs", "tbl:costs"},
		{Equation, "eq:energy", "eq:energy"},
		{Figure, "historical_trends_raw", "historical_trends_raw"},
		// underscore prefixes are stored in colon form
		{Figure, "fig_a", "fig:a"},
		{Equation, "#eq_mass", "eq:mass"},
	}
	for i, tt := range ids {
		if _, err := r.Register(tt.kind, tt.id, Placement{Order: i}); err != nil {
			t.Fatal(err)
		}
		got, ok := r.Lookup(tt.id)
		if !ok || got.SemanticID != tt.want {
			t.Errorf("lookup(register(%q)) = %q, %v; want %q", tt.id, got.SemanticID, ok, tt.want)
		}
		if tt.want != tt.id {
			if again, ok := r.Lookup(tt.want); !ok || again.StableID != got.StableID {
				t.Errorf("canonical lookup %q did not find the %q registration", tt.want, tt.id)
			}
		}
	}
	if _, ok := r.Lookup("fig:historical_trends_raw"); !ok {
		t.Error("expected prefixed lookup to find an unprefixed registration")
	}
	if _, ok := r.Lookup("ghost_fig"); ok {
		t.Error("expected unknown id to be missing")
	}
}

func TestRegistry_PrefixKindMismatch(t *testing.T) {
	warn := diag.NewCollector(nil)
	r := NewRegistry(WithCollector(warn))

	tests := []struct {
		name string
		reg  func(string, Placement) (string, error)
		id   string
	}{
		{"table id as figure", r.RegisterFigure, "tbl:x"},
		{"figure id as equation", r.RegisterEquation, "fig_y"},
		{"equation id as table", r.RegisterTable, "eq:z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.reg(tt.id, Placement{})
			if !errors.Is(err, ErrKindMismatch) {
				t.Fatalf("expected ErrKindMismatch, got %v", err)
			}
			if _, ok := r.Lookup(tt.id); ok {
				t.Errorf("%s should not be registered", tt.id)
			}
		})
	}
	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d", r.Len())
	}
	if warn.Count(diag.KindMismatch) != 3 {
		t.Errorf("expected 3 kind mismatch warnings, got %d", warn.Count(diag.KindMismatch))
	}

	if _, err := r.RegisterTable("tbl:x", Placement{}); err != nil {
		t.Errorf("matching prefix should register: %v", err)
	}
}

func TestRegistry_UpdateDisplayNumbers(t *testing.T) {
	// Stream: 0 H1 One, 1 fig a, 2 fig b, 3 tbl t, 4 H1 Two, 5 fig c, 6 H1 App, 7 fig d
	sections := numbering.NewAssigner(numbering.Options{}, nil).Assign([]numbering.Heading{
		{Level: 1, Title: "One"},
		{Level: 1, Title: "Two"},
		{Level: 1, Title: "App", IsAppendix: true},
	})
	sections[0].DocumentOrder, sections[1].DocumentOrder, sections[2].DocumentOrder = 0, 4, 6
	outline := numbering.NewOutline(sections)

	r := NewRegistry()
	// Registered out of stream order on purpose.
	r.RegisterFigure("fig:c", Placement{Order: 5})
	r.RegisterFigure("fig:a", Placement{Order: 1})
	r.RegisterTable("tbl:t", Placement{Order: 3})
	r.RegisterFigure("fig:d", Placement{Order: 7})
	r.RegisterFigure("fig:b", Placement{Order: 2})

	r.UpdateDisplayNumbers(outline)

	want := map[string]string{"fig:a": "1-1", "fig:b": "1-2", "tbl:t": "1-1", "fig:c": "2-1", "fig:d": "A-1"}
	for id, num := range want {
		it, _ := r.Lookup(id)
		if it.DisplayNumber != num {
			t.Errorf("%s: expected %s, got %s", id, num, it.DisplayNumber)
		}
	}

	figs := r.AllInOrder(Figure)
	order := []string{"fig:a", "fig:b", "fig:c", "fig:d"}
	for i, it := range figs {
		if it.SemanticID != order[i] {
			t.Errorf("AllInOrder[%d] = %s, want %s", i, it.SemanticID, order[i])
		}
	}

	// Recomputing is stable.
	before := r.Triples()
	r.UpdateDisplayNumbers(outline)
	after := r.Triples()
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("triple %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestRegistry_ChapterOrdinalsAreContiguous(t *testing.T) {
	outline := outlineFor(
		numbering.Heading{Level: 1, Title: "One"},
		numbering.Heading{Level: 2, Title: "Sub"},
		numbering.Heading{Level: 1, Title: "Two"},
	)
	r := NewRegistry()
	// Orders 0..2 are headings; register figures after them so all fall in chapter 2.
	for i := range 5 {
		r.RegisterFigure("fig:f"+string(rune('a'+i)), Placement{Order: 3 + i})
	}
	r.UpdateDisplayNumbers(outline)
	for i, it := range r.AllInOrder(Figure) {
		want := numbering.CaptionNumber("2", i+1)
		if it.DisplayNumber != want || it.ChapterScope != "2" {
			t.Errorf("figure %d: expected %s in scope 2, got %s in scope %s", i, want, it.DisplayNumber, it.ChapterScope)
		}
	}
}

func TestRegistry_CaptionBeforeFirstChapter(t *testing.T) {
	warn := diag.NewCollector(nil)
	sections := numbering.NewAssigner(numbering.Options{}, nil).Assign([]numbering.Heading{{Level: 1, Title: "One"}})
	sections[0].DocumentOrder = 10
	r := NewRegistry(WithCollector(warn))
	r.RegisterFigure("fig:early", Placement{Order: 2})
	r.UpdateDisplayNumbers(numbering.NewOutline(sections))

	it, _ := r.Lookup("fig:early")
	if it.DisplayNumber != "0-1" {
		t.Errorf("expected 0-1, got %s", it.DisplayNumber)
	}
	if !warn.Has(diag.InvalidChapterScope) {
		t.Error("expected invalid chapter scope warning")
	}
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		in       string
		want     string
		kind     Kind
		prefixed bool
	}{
		{"fig:trend", "fig:trend", Figure, true},
		{"fig_trend", "fig:trend", Figure, true},
		{"#tbl:costs", "tbl:costs", Table, true},
		{"eq_mass", "eq:mass", Equation, true},
		{"historical_trends", "historical_trends", Figure, false},
		{"fig:", "fig:", Figure, false},
	}
	for _, tt := range tests {
		got, kind, ok := NormalizeID(tt.in)
		if got != tt.want || ok != tt.prefixed || (ok && kind != tt.kind) {
			t.Errorf("NormalizeID(%q) = %q, %v, %v", tt.in, got, kind, ok)
		}
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"figure": Figure, "FIG": Figure, "tbl": Table, "Eq": Equation, "equation": Equation} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseKind("chart"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

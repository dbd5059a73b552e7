package numbering

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/dgallion1/docnum/internal/diag"
)

func numbers(sections []Section) []string {
	out := make([]string, len(sections))
	for i, s := range sections {
		out[i] = s.Number
	}
	return out
}

func TestAssign_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		headings []Heading
		want     []string
	}{
		{
			name: "main numbering resets deeper levels",
			headings: []Heading{
				{Level: 1, Title: "Intro"},
				{Level: 2, Title: "Background"},
				{Level: 1, Title: "Methods"},
			},
			want: []string{"1", "1.1", "2"},
		},
		{
			name: "appendix letters",
			headings: []Heading{
				{Level: 1, Title: "Body"},
				{Level: 1, Title: "Appendix", IsAppendix: true},
				{Level: 2, Title: "Extra", IsAppendix: true},
				{Level: 1, Title: "More", IsAppendix: true},
			},
			want: []string{"1", "A", "A.1", "B"},
		},
		{
			name: "three levels",
			headings: []Heading{
				{Level: 1, Title: "One"},
				{Level: 2, Title: "One One"},
				{Level: 3, Title: "Deep"},
				{Level: 3, Title: "Deeper"},
				{Level: 2, Title: "One Two"},
				{Level: 3, Title: "Reset"},
			},
			want: []string{"1", "1.1", "1.1.1", "1.1.2", "1.2", "1.2.1"},
		},
		{
			name: "appendix flag is sticky",
			headings: []Heading{
				{Level: 1, Title: "Body"},
				{Level: 1, Title: "Data", IsAppendix: true},
				{Level: 1, Title: "Code"},
			},
			want: []string{"1", "A", "B"},
		},
		{
			name: "appendix opened below chapter level",
			headings: []Heading{
				{Level: 1, Title: "Body"},
				{Level: 2, Title: "Loose", IsAppendix: true},
				{Level: 1, Title: "Next", IsAppendix: true},
				{Level: 2, Title: "Inside"},
			},
			want: []string{"1", "A.1", "B", "B.1"},
		},
		{
			name: "skipped level keeps a zero",
			headings: []Heading{
				{Level: 1, Title: "Top"},
				{Level: 3, Title: "Jump"},
			},
			want: []string{"1", "1.0.1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := numbers(NewAssigner(Options{}, nil).Assign(tt.headings))
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestAssign_AppendixMarker(t *testing.T) {
	a := NewAssigner(Options{AppendixMarker: "Appendices"}, nil)
	got := numbers(a.Assign([]Heading{
		{Level: 1, Title: "Body"},
		{Level: 1, Title: "  Appen dices "},
		{Level: 2, Title: "First"},
		{Level: 1, Title: "Second"},
	}))
	want := []string{"1", "A", "A.1", "B"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestAssign_FlagAndMarkerAgree(t *testing.T) {
	flagged := NewAssigner(Options{}, nil).Assign([]Heading{
		{Level: 1, Title: "Body"},
		{Level: 1, Title: "Appendix", IsAppendix: true},
		{Level: 2, Title: "Extra", IsAppendix: true},
	})
	marked := NewAssigner(Options{AppendixMarker: "Appendix"}, nil).Assign([]Heading{
		{Level: 1, Title: "Body"},
		{Level: 1, Title: "Appendix"},
		{Level: 2, Title: "Extra"},
	})
	for i := range flagged {
		if flagged[i].Number != marked[i].Number || flagged[i].IsAppendix != marked[i].IsAppendix {
			t.Errorf("heading %d: flag gives %q/%v, marker gives %q/%v",
				i, flagged[i].Number, flagged[i].IsAppendix, marked[i].Number, marked[i].IsAppendix)
		}
	}
}

func TestAssign_StartAppendixBeforeHeading(t *testing.T) {
	a := NewAssigner(Options{}, nil)
	first := a.Next(Heading{Level: 1, Title: "Body"}, 0)
	a.StartAppendix()
	second := a.Next(Heading{Level: 1, Title: "Data"}, 5)

	if first.Number != "1" {
		t.Errorf("expected 1, got %q", first.Number)
	}
	if second.Number != "A" || !second.IsAppendix {
		t.Errorf("expected appendix A, got %q (appendix=%v)", second.Number, second.IsAppendix)
	}
	if second.DocumentOrder != 5 {
		t.Errorf("expected document order 5, got %d", second.DocumentOrder)
	}
	if second.Label() != "Appendix A" {
		t.Errorf("expected label %q, got %q", "Appendix A", second.Label())
	}
}

func TestAssign_AppendixLettersNeverReused(t *testing.T) {
	var hs []Heading
	hs = append(hs, Heading{Level: 1, Title: "Body"})
	for i := range 30 {
		hs = append(hs,
			Heading{Level: 1, Title: fmt.Sprintf("App %d", i), IsAppendix: true},
			Heading{Level: 2, Title: "Sub"},
		)
	}
	seen := make(map[string]bool)
	for _, s := range NewAssigner(Options{}, nil).Assign(hs) {
		if s.Level != 1 || !s.IsAppendix {
			continue
		}
		if seen[s.Number] {
			t.Fatalf("appendix letter %q reused", s.Number)
		}
		seen[s.Number] = true
	}
	if !seen["Z"] || !seen["AA"] || !seen["AD"] {
		t.Errorf("expected letters to continue past Z, got %v", seen)
	}
}

func TestAssign_MainNumbersResetAfterShallowerHeading(t *testing.T) {
	hs := []Heading{
		{Level: 1}, {Level: 2}, {Level: 2}, {Level: 3},
		{Level: 1}, {Level: 2}, {Level: 3}, {Level: 3},
		{Level: 2}, {Level: 1},
	}
	sections := NewAssigner(Options{}, nil).Assign(hs)
	for i := 1; i < len(sections); i++ {
		cur := strings.Split(sections[i].Number, ".")
		prev := strings.Split(sections[i-1].Number, ".")
		c, _ := strconv.Atoi(cur[len(cur)-1])
		if hs[i].Level > hs[i-1].Level {
			if c != 1 {
				t.Errorf("section %d: expected deeper level to restart at 1, got %q", i, sections[i].Number)
			}
			continue
		}
		p, _ := strconv.Atoi(prev[len(cur)-1])
		if c != p+1 {
			t.Errorf("section %d: expected %q to follow %q by one", i, sections[i].Number, sections[i-1].Number)
		}
	}
}

func TestAssign_InvalidLevelClamped(t *testing.T) {
	warn := diag.NewCollector(nil)
	got := NewAssigner(Options{}, warn).Assign([]Heading{
		{Level: 0, Title: "Zero"},
		{Level: 9, Title: "Nine"},
	})
	if got[0].Level != 1 || got[0].Number != "1" {
		t.Errorf("expected level 0 clamped to 1, got level %d number %q", got[0].Level, got[0].Number)
	}
	if got[1].Level != MaxLevel || got[1].Number != "1.0.0.0.0.1" {
		t.Errorf("expected level 9 clamped to %d, got level %d number %q", MaxLevel, got[1].Level, got[1].Number)
	}
	if warn.Count(diag.InvalidHeadingLevel) != 2 {
		t.Errorf("expected 2 invalid level warnings, got %d", warn.Count(diag.InvalidHeadingLevel))
	}
}

func TestAssign_SectionIDs(t *testing.T) {
	got := NewAssigner(Options{}, nil).Assign([]Heading{
		{Level: 1, Title: "Getting Started!"},
		{Level: 1, Title: "Getting Started"},
		{Level: 1, Title: "Custom", ID: "my-id"},
		{Level: 1, Title: "???"},
		{Level: 1, Title: "Getting-Started-1"},
	})
	want := []string{"getting-started", "getting-started-1", "my-id", "sec-4", "getting-started-1-1"}
	for i, s := range got {
		if s.ID != want[i] {
			t.Errorf("section %d: expected id %q, got %q", i, want[i], s.ID)
		}
	}
}

func TestLetter(t *testing.T) {
	tests := map[int]string{0: "A", 1: "B", 25: "Z", 26: "AA", 27: "AB", 51: "AZ", 52: "BA", 701: "ZZ", 702: "AAA"}
	for in, want := range tests {
		if got := Letter(in); got != want {
			t.Errorf("Letter(%d) = %q, want %q", in, got, want)
		}
	}
}

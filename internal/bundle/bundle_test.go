package bundle

import (
	"testing"

	"github.com/dgallion1/docnum/internal/doctree"
	"github.com/dgallion1/docnum/internal/numbering"
)

func testDoc() ([]doctree.Block, *numbering.Outline) {
	doc := &doctree.Document{}
	doc.AddText("front matter", 0)
	doc.AddHeading(1, "Intro", "intro", false)
	doc.AddText("body", 0)
	doc.AddHeading(2, "Background", "background", false)
	doc.AddHeading(1, "Extra", "extra", true)
	doc.AddElement("tbl", "tbl:raw", "Raw", "")

	outline := numbering.NewOutline([]numbering.Section{
		{ID: "intro", Title: "Intro", Level: 1, Number: "1", DocumentOrder: 1},
		{ID: "background", Title: "Background", Level: 2, Number: "1.1", DocumentOrder: 3},
		{ID: "extra", Title: "Extra", Level: 1, Number: "A", IsAppendix: true, DocumentOrder: 4},
	})
	return doc.Blocks, outline
}

func TestNewManifest(t *testing.T) {
	_, outline := testDoc()
	m := NewManifest("doc-1", "Report", outline)

	want := []Section{
		{ID: "intro", Title: "Intro", Level: 1, Index: 0, DocumentOrder: 1, Number: "1"},
		{ID: "background", Title: "Background", Level: 2, Index: 1, DocumentOrder: 3, Number: "1.1"},
		{ID: "extra", Title: "Extra", Level: 1, Index: 2, DocumentOrder: 4, IsAppendix: true, Number: "A"},
	}
	if m.DocID != "doc-1" || m.Title != "Report" {
		t.Errorf("unexpected header %+v", m)
	}
	if len(m.Sections) != len(want) {
		t.Fatalf("expected %d sections, got %d", len(want), len(m.Sections))
	}
	for i, w := range want {
		if m.Sections[i] != w {
			t.Errorf("section[%d]:\n got %+v\nwant %+v", i, m.Sections[i], w)
		}
	}
}

func TestNewManifest_Empty(t *testing.T) {
	m := NewManifest("doc-1", "", numbering.NewOutline(nil))
	if len(m.Sections) != 1 || m.Sections[0].ID != "sec-0" || m.Sections[0].Title != "Document" {
		t.Errorf("expected fallback section, got %+v", m.Sections)
	}
}

func TestSplit(t *testing.T) {
	blocks, outline := testDoc()
	bundles := Split(blocks, outline)

	tests := []struct {
		id     string
		start  int
		blocks int
	}{
		{PrefaceID, 0, 1},
		{"intro", 1, 3},
		{"extra", 4, 2},
	}
	if len(bundles) != len(tests) {
		t.Fatalf("expected %d bundles, got %d", len(tests), len(bundles))
	}
	for i, tt := range tests {
		b := bundles[i]
		if b.Section.ID != tt.id || b.Start != tt.start || len(b.Blocks) != tt.blocks || b.Section.Index != i {
			t.Errorf("bundle[%d] = {%s start=%d blocks=%d index=%d}", i, b.Section.ID, b.Start, len(b.Blocks), b.Section.Index)
		}
	}
	if !bundles[2].Section.IsAppendix {
		t.Error("expected appendix flag on the appendix bundle")
	}

	joined := Blocks(bundles)
	if len(joined) != len(blocks) {
		t.Fatalf("expected %d blocks after joining, got %d", len(blocks), len(joined))
	}
	for i := range blocks {
		if joined[i] != blocks[i] {
			t.Errorf("block %d changed by split/join", i)
		}
	}
}

func TestSplit_NoChapter(t *testing.T) {
	doc := &doctree.Document{}
	doc.AddHeading(2, "Notes", "notes", false)
	doc.AddText("just text", 0)
	outline := numbering.NewOutline([]numbering.Section{
		{ID: "notes", Title: "Notes", Level: 2, Number: "0.1", DocumentOrder: 0},
	})

	bundles := Split(doc.Blocks, outline)
	if len(bundles) != 1 {
		t.Fatalf("expected a single fallback bundle, got %d", len(bundles))
	}
	if b := bundles[0]; b.Section.ID != "notes" || b.Section.Title != "Notes" || len(b.Blocks) != 2 {
		t.Errorf("unexpected fallback bundle %+v", b)
	}
}

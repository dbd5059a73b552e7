// Package bundle slices a numbered document into level-1 section bundles
// and describes them with a manifest, the payload of the live preview.
package bundle

import (
	"github.com/dgallion1/docnum/internal/doctree"
	"github.com/dgallion1/docnum/internal/numbering"
)

// Section is one manifest entry.
type Section struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Level         int    `json:"level"`
	Index         int    `json:"index"`
	DocumentOrder int    `json:"documentOrder"`
	IsAppendix    bool   `json:"isAppendix"`
	Number        string `json:"number,omitempty"`
}

// Manifest lists every heading of a document, in order.
type Manifest struct {
	DocID    string    `json:"docId"`
	Title    string    `json:"title,omitempty"`
	Sections []Section `json:"sections"`
}

// Bundle is the content of one level-1 section. Start is the document
// order of the first block, so block i sits at order Start+i.
type Bundle struct {
	Section Section         `json:"section"`
	Start   int             `json:"start"`
	Blocks  []doctree.Block `json:"blocks"`
}

// PrefaceID names the bundle holding content before the first chapter.
const PrefaceID = "preface"

// NewManifest describes every section of outline. Index is the heading's
// position among all headings. A document without headings gets the single
// fallback section.
func NewManifest(docID, title string, outline *numbering.Outline) Manifest {
	m := Manifest{DocID: docID, Title: title, Sections: []Section{}}
	for i, s := range outline.Sections() {
		m.Sections = append(m.Sections, fromSection(s, i))
	}
	if len(m.Sections) == 0 {
		m.Sections = append(m.Sections, fallbackSection(nil))
	}
	return m
}

// Split cuts blocks at every level-1 heading. Content before the first
// chapter becomes a preface bundle. When the document has no level-1 heading
// it all goes into one bundle named after its first heading.
func Split(blocks []doctree.Block, outline *numbering.Outline) []Bundle {
	var out []Bundle
	var current *Bundle

	for i, b := range blocks {
		if s, ok := outline.AtOrder(i); ok && s.Level == 1 {
			if current != nil {
				out = append(out, *current)
			}
			current = &Bundle{Section: fromSection(s, 0), Start: i}
		}
		if current == nil {
			current = &Bundle{
				Section: Section{ID: PrefaceID, Title: "Preface", DocumentOrder: i},
				Start:   i,
			}
		}
		current.Blocks = append(current.Blocks, b)
	}
	if current != nil {
		out = append(out, *current)
	}

	if !hasChapter(outline) {
		return []Bundle{{Section: fallbackSection(outline.Sections()), Blocks: blocks}}
	}
	for i := range out {
		out[i].Section.Index = i
	}
	return out
}

func hasChapter(outline *numbering.Outline) bool {
	return len(outline.ByLevel(1)) > 0
}

func fromSection(s numbering.Section, index int) Section {
	return Section{
		ID:            s.ID,
		Title:         s.Title,
		Level:         s.Level,
		Index:         index,
		DocumentOrder: s.DocumentOrder,
		IsAppendix:    s.IsAppendix,
		Number:        s.Number,
	}
}

func fallbackSection(sections []numbering.Section) Section {
	sec := Section{ID: "sec-0", Title: "Document", Level: 1}
	if len(sections) > 0 {
		sec.ID = sections[0].ID
		sec.DocumentOrder = sections[0].DocumentOrder
		if sections[0].Title != "" {
			sec.Title = sections[0].Title
		}
	}
	return sec
}

// Blocks returns the blocks of bundles concatenated in order.
func Blocks(bundles []Bundle) []doctree.Block {
	var out []doctree.Block
	for _, b := range bundles {
		out = append(out, b.Blocks...)
	}
	return out
}

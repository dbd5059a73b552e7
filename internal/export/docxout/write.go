// Package docxout writes numbered documents as .docx files and reads them
// back for verification. Every caption label is wrapped in a bookmark named
// with the element's stable id, and references become REF fields pointing at
// that bookmark, with the computed label as the field result.
package docxout

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/dgallion1/docnum/internal/doctree"
	"github.com/dgallion1/docnum/internal/engine"
	"github.com/dgallion1/docnum/internal/xref"
	"github.com/fumiama/go-docx"
)

// Options control the writer.
type Options struct {
	// LiveFields writes references as REF fields. When false the label is
	// written as plain text.
	LiveFields bool
}

type bookmarkStart struct {
	XMLName xml.Name `xml:"w:bookmarkStart"`
	ID      string   `xml:"w:id,attr"`
	Name    string   `xml:"w:name,attr"`
}

type bookmarkEnd struct {
	XMLName xml.Name `xml:"w:bookmarkEnd"`
	ID      string   `xml:"w:id,attr"`
}

type fldChar struct {
	XMLName xml.Name `xml:"w:fldChar"`
	Type    string   `xml:"w:fldCharType,attr"`
}

// RefInstruction is the field code of a reference to bookmark.
func RefInstruction(bookmark string) string {
	return " REF " + bookmark + ` \h `
}

// Write renders the blocks of res to w.
func Write(w io.Writer, res *engine.Result, opts Options) error {
	wr := &writer{
		doc:  docx.New(),
		res:  res,
		opts: opts,
		ex:   xref.NewExtractor(),
	}
	if res.Title != "" {
		wr.doc.AddParagraph().Style("Title").AddText(res.Title)
	}
	for i, b := range res.Blocks {
		if err := wr.block(i, b); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
	}
	if _, err := wr.doc.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

type writer struct {
	doc       *docx.Docx
	res       *engine.Result
	opts      Options
	ex        *xref.Extractor
	bookmarks int
}

func (wr *writer) block(order int, b doctree.Block) error {
	switch b.Type {
	case doctree.Heading:
		s, ok := wr.res.Outline.AtOrder(order)
		if !ok {
			return fmt.Errorf("heading %q is not numbered", b.Text)
		}
		wr.doc.AddParagraph().Style(headingStyle(s.Level, s.IsAppendix)).AddText(s.Display())

	case doctree.Element:
		it, ok := wr.res.Item(b.ID)
		if !ok {
			return fmt.Errorf("element %q is not registered", b.ID)
		}
		wr.caption(it)

	case doctree.Text:
		wr.text(order, b.Text)

	case doctree.Code:
		wr.doc.AddParagraph().Style("SourceCode").AddText(b.Text)
	}
	return nil
}

func headingStyle(level int, appendix bool) string {
	switch {
	case appendix && level == 1:
		return "Appendix"
	case appendix:
		return "Appendix" + strconv.Itoa(level)
	default:
		return "Heading" + strconv.Itoa(level)
	}
}

// caption writes "Figure 2-1: text" with the label inside the bookmark.
func (wr *writer) caption(it xref.Item) {
	p := wr.doc.AddParagraph().Style("Caption")
	id := strconv.Itoa(wr.bookmarks)
	wr.bookmarks++

	p.Children = append(p.Children,
		&bookmarkStart{ID: id, Name: it.StableID},
		textRun(it.Label()),
		&bookmarkEnd{ID: id},
	)
	if it.Caption != "" {
		p.Children = append(p.Children, textRun(": "+it.Caption))
	}
}

// text writes a paragraph, turning every link unit that names a registered
// element into a reference.
func (wr *writer) text(order int, text string) {
	p := wr.doc.AddParagraph()
	pos := 0
	for _, u := range wr.ex.Anchors(order, text) {
		it, ok := wr.res.Item(u.TargetSemanticID)
		if !ok || u.Location.Offset < pos {
			continue
		}
		if u.Location.Offset > pos {
			p.Children = append(p.Children, textRun(text[pos:u.Location.Offset]))
		}
		if wr.opts.LiveFields {
			p.Children = append(p.Children, refField(it)...)
		} else {
			p.Children = append(p.Children, textRun(it.Label()))
		}
		pos = u.Location.Offset + u.Location.Length
	}
	if pos < len(text) {
		p.Children = append(p.Children, textRun(text[pos:]))
	}
}

// refField is the five-run REF field whose cached result is the label.
func refField(it xref.Item) []interface{} {
	return []interface{}{
		fieldRun(&fldChar{Type: "begin"}),
		&docx.Run{RunProperties: &docx.RunProperties{}, InstrText: RefInstruction(it.StableID)},
		fieldRun(&fldChar{Type: "separate"}),
		textRun(it.Label()),
		fieldRun(&fldChar{Type: "end"}),
	}
}

func fieldRun(c *fldChar) *docx.Run {
	return &docx.Run{RunProperties: &docx.RunProperties{}, Children: []interface{}{c}}
}

func textRun(s string) *docx.Run {
	return &docx.Run{
		RunProperties: &docx.RunProperties{},
		Children:      []interface{}{&docx.Text{Text: s, XMLSpace: "preserve"}},
	}
}

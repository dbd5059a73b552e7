package parser

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/docnum/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Headings come from HeadingN paragraph
// styles, appendix headings from AppendixN styles, and numbered elements
// from Caption paragraphs. References in body text are plain rendered text,
// so they resolve through the pattern strategy.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	// go-docx needs a ReaderAt+size.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	d, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	doc := &doctree.Document{Title: titleFromFilename(filename)}
	ids := newCaptionSequence("docx")

	for _, item := range d.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		style := docxStyle(para)

		if level, appendix := docxHeadingLevel(style); level > 0 {
			doc.AddHeading(level, text, "", appendix)
			continue
		}
		if isAppendixMarker(text) {
			doc.AddAppendixMarker()
			continue
		}
		if strings.EqualFold(style, "Caption") {
			if kind, number, caption, ok := splitCaption(text); ok {
				doc.AddElement(kind, ids.next(kind), caption, number)
				continue
			}
		}
		doc.AddText(text, 0)
	}
	return doc, nil
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

// docxHeadingLevel maps "Heading2" / "heading 2" to 2 and "Appendix1" /
// "Appendix" to an appendix heading.
func docxHeadingLevel(style string) (level int, appendix bool) {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	for _, prefix := range []string{"heading", "appendix"} {
		rest, ok := strings.CutPrefix(s, prefix)
		if !ok {
			continue
		}
		appendix = prefix == "appendix"
		if rest == "" && appendix {
			return 1, true
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 || n > 9 {
			return 0, false
		}
		return n, appendix
	}
	return 0, false
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

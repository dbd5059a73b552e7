package parser

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/dgallion1/docnum/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gmparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. Headings accept
// attribute blocks such as "# Results {#results .appendix}". A paragraph
// that ends in "{#fig:id}" is a numbered element.
type MarkdownParser struct{}

var (
	elementPattern = regexp.MustCompile(`(?s)^(.*?)\s*\{#((?:fig|tbl|eq)[:_][\w\-.:]+)\}\s*$`)
	imagePattern   = regexp.MustCompile(`^!\[([^\]]*)\]\([^)]*\)`)
	mathPattern    = regexp.MustCompile(`(?s)^\$\$(.*)\$\$$`)
)

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.Table),
		goldmark.WithParserOptions(gmparser.WithAttribute()),
	)
}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	root := newMarkdown().Parser().Parse(text.NewReader(src))
	doc := &doctree.Document{Title: titleFromFilename(filename)}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			id, appendix := headingAttributes(node)
			doc.AddHeading(node.Level, inlineText(node, src), id, appendix)

		case *ast.FencedCodeBlock, *ast.CodeBlock:
			doc.AddCode(linesText(n, src))

		case *ast.Paragraph:
			raw := blockSource(n, src)
			switch {
			case isAppendixMarker(raw):
				doc.AddAppendixMarker()
			case elementPattern.MatchString(raw):
				addMarkdownElement(doc, raw)
			default:
				doc.AddText(raw, 0)
			}

		default:
			doc.AddText(blockSource(n, src), 0)
		}
	}
	return doc, nil
}

func addMarkdownElement(doc *doctree.Document, raw string) {
	m := elementPattern.FindStringSubmatch(raw)
	body, id := strings.TrimSpace(m[1]), m[2]
	kind := idKind(id)

	caption := body
	switch {
	case imagePattern.MatchString(body):
		caption = imagePattern.FindStringSubmatch(body)[1]
	case mathPattern.MatchString(body):
		caption = strings.TrimSpace(mathPattern.FindStringSubmatch(body)[1])
	case strings.HasPrefix(body, "Table:"):
		caption = strings.TrimSpace(strings.TrimPrefix(body, "Table:"))
	case strings.HasPrefix(body, ":"):
		caption = strings.TrimSpace(strings.TrimPrefix(body, ":"))
	}

	var number string
	if k, n, rest, ok := splitCaption(caption); ok && k == kind {
		number, caption = n, rest
	}
	doc.AddElement(kind, id, caption, number)
}

func headingAttributes(h *ast.Heading) (id string, appendix bool) {
	if v, ok := h.AttributeString("id"); ok {
		id = attrString(v)
	}
	if v, ok := h.AttributeString("class"); ok {
		for _, c := range strings.Fields(attrString(v)) {
			if c == "appendix" {
				appendix = true
			}
		}
	}
	return id, appendix
}

func attrString(v any) string {
	switch s := v.(type) {
	case []byte:
		return string(s)
	case string:
		return s
	}
	return ""
}

// inlineText gets the plain text of a node's inline children.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				buf.Write(t.Segment.Value(src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					buf.WriteByte(' ')
				}
			case *ast.String:
				buf.Write(t.Value)
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}

func linesText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return strings.TrimRight(buf.String(), "\n")
}

// blockSource returns the raw markdown a block was parsed from, including
// list and quote markers, so rewritten text renders the same way.
func blockSource(n ast.Node, src []byte) string {
	start, stop := -1, -1
	var visit func(ast.Node)
	visit = func(n ast.Node) {
		if n.Type() == ast.TypeBlock {
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				if start < 0 || seg.Start < start {
					start = seg.Start
				}
				if seg.Stop > stop {
					stop = seg.Stop
				}
			}
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			visit(c)
		}
	}
	visit(n)
	if start < 0 {
		return ""
	}
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	return strings.TrimSpace(string(src[start:stop]))
}

// Package htmlout renders numbered bundles to HTML for the live preview.
// Text blocks go through goldmark; the result is then walked with
// x/net/html so link units point at stable ids and carry the semantic id
// they were resolved from.
package htmlout

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/dgallion1/docnum/internal/bundle"
	"github.com/dgallion1/docnum/internal/doctree"
	"github.com/dgallion1/docnum/internal/engine"
	"github.com/dgallion1/docnum/internal/xref"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Renderer turns bundles into HTML fragments. It is safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

func New() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
	}
}

var defaultRenderer = New()

// RenderBundle renders one bundle of res with the default renderer.
func RenderBundle(b bundle.Bundle, res *engine.Result) (string, error) {
	return defaultRenderer.Bundle(b, res)
}

// Bundle renders the blocks of b, wrapped in a <section> named after it.
func (r *Renderer) Bundle(b bundle.Bundle, res *engine.Result) (string, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<section id=\"%s\" data-index=\"%d\">\n",
		html.EscapeString(b.Section.ID), b.Section.Index)
	for i, blk := range b.Blocks {
		if err := r.block(&buf, blk, b.Start+i, res); err != nil {
			return "", fmt.Errorf("block %d: %w", b.Start+i, err)
		}
	}
	buf.WriteString("</section>\n")
	return annotate(buf.String(), res)
}

// Document renders every bundle of res as a standalone HTML page.
func (r *Renderer) Document(res *engine.Result) (string, error) {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
	b.WriteString(html.EscapeString(res.Title))
	b.WriteString("</title></head><body>\n")
	for _, bun := range res.Bundles() {
		s, err := r.Bundle(bun, res)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	b.WriteString("</body></html>\n")
	return b.String(), nil
}

func (r *Renderer) block(buf *bytes.Buffer, b doctree.Block, order int, res *engine.Result) error {
	switch b.Type {
	case doctree.Heading:
		title := b.Text
		number := ""
		if s, ok := res.Outline.AtOrder(order); ok {
			title, number = s.Display(), s.Number
		}
		level := min(max(b.Level, 1), 6)
		fmt.Fprintf(buf, "<h%d id=\"%s\" data-number=\"%s\">%s</h%d>\n",
			level, html.EscapeString(b.ID), html.EscapeString(number), html.EscapeString(title), level)

	case doctree.Element:
		it, ok := res.Item(b.ID)
		if !ok {
			return fmt.Errorf("element %q is not registered", b.ID)
		}
		caption := it.Label()
		if b.Caption != "" {
			caption += ": " + b.Caption
		}
		fmt.Fprintf(buf, "<figure id=\"%s\" class=\"%s\" data-ref=\"%s\" data-number=\"%s\"><figcaption>%s</figcaption></figure>\n",
			it.StableID, it.Kind, html.EscapeString(it.SemanticID), html.EscapeString(it.DisplayNumber), html.EscapeString(caption))

	case doctree.Code:
		fmt.Fprintf(buf, "<pre><code>%s</code></pre>\n", html.EscapeString(b.Text))

	case doctree.Text:
		if err := r.md.Convert([]byte(b.Text), buf); err != nil {
			return err
		}
	}
	return nil
}

// annotate points every link unit at its target's stable id.
func annotate(fragment string, res *engine.Result) (string, error) {
	body := &nethtml.Node{Type: nethtml.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := nethtml.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return "", fmt.Errorf("parse rendered html: %w", err)
	}

	var walk func(*nethtml.Node)
	walk = func(n *nethtml.Node) {
		if n.Type == nethtml.ElementNode && n.DataAtom == atom.A {
			linkTarget(n, res)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	var out bytes.Buffer
	for _, n := range nodes {
		walk(n)
		if err := nethtml.Render(&out, n); err != nil {
			return "", err
		}
	}
	return out.String(), nil
}

func linkTarget(a *nethtml.Node, res *engine.Result) {
	for _, attr := range a.Attr {
		if attr.Key != "href" || !strings.HasPrefix(attr.Val, "#") {
			continue
		}
		id, _, _ := xref.NormalizeID(attr.Val)
		it, ok := res.Item(id)
		if !ok {
			return
		}
		a.Attr = []nethtml.Attribute{
			{Key: "href", Val: "#" + it.StableID},
			{Key: "class", Val: "xref"},
			{Key: "data-ref", Val: it.SemanticID},
		}
		return
	}
}

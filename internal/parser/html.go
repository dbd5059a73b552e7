package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docnum/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. Numbered elements are <figure>, <table>
// and class="equation" elements carrying an id; <a href="#fig:id"> links
// become anchor usages.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc := &doctree.Document{Title: titleFromFilename(filename)}
	if title := findTitle(root); title != "" {
		doc.Title = title
	}
	ids := newCaptionSequence("html")

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				doc.AddHeading(level, textContent(n), attr(n, "id"), hasClass(n, "appendix"))
				return // Don't recurse into heading children (already extracted text).
			}

			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				return
			case "figure", "table":
				if addHTMLElement(doc, n, ids) {
					return
				}
			case "pre":
				doc.AddCode(textContent(n))
				return
			case "p", "li", "td", "blockquote", "dd":
				t := markdownText(n)
				if isAppendixMarker(t) {
					doc.AddAppendixMarker()
					return
				}
				if hasClass(n, "equation") && addHTMLElement(doc, n, ids) {
					return
				}
				doc.AddText(t, 0)
				return
			case "div":
				if hasClass(n, "equation") && addHTMLElement(doc, n, ids) {
					return
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	// Find <body> or use whole document.
	if body := findBody(root); body != nil {
		walk(body)
	} else {
		walk(root)
	}
	return doc, nil
}

// addHTMLElement records n as a numbered element and reports whether it did.
// Elements need an id or a caption that starts with its own label.
func addHTMLElement(doc *doctree.Document, n *html.Node, ids *captionSequence) bool {
	id := attr(n, "id")
	if ref := attr(n, "data-ref"); idKind(ref) != "" {
		id = ref
	}
	var caption string
	switch n.Data {
	case "figure":
		caption = childText(n, "figcaption")
	case "table":
		caption = childText(n, "caption")
	default:
		caption = textContent(n)
	}

	kind := idKind(id)
	if kind == "" {
		switch {
		case hasClass(n, "equation"):
			kind = "eq"
		case n.Data == "table" || findChild(n, "table") != nil:
			kind = "tbl"
		default:
			kind = "fig"
		}
	}

	var number string
	if k, num, rest, ok := splitCaption(caption); ok {
		if idKind(id) == "" {
			kind = k
		}
		number, caption = num, rest
	} else if id == "" {
		return false
	}

	if id == "" {
		id = ids.next(kind)
	} else if idKind(id) == "" {
		id = kind + ":" + id
	}
	doc.AddElement(kind, id, caption, number)
	return true
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func findChild(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
		if found := findChild(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func childText(n *html.Node, tag string) string {
	if c := findChild(n, tag); c != nil {
		return textContent(c)
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

// markdownText is textContent, except links to numbered elements are kept
// as markdown links so the anchor strategy sees them.
func markdownText(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href := attr(n, "href")
			if target, ok := strings.CutPrefix(href, "#"); ok && idKind(target) != "" {
				buf.WriteString("[" + textContent(n) + "](" + href + ")")
				return
			}
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

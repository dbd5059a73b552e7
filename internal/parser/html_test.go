package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/docnum/internal/doctree"
)

func TestHTMLParser_Elements(t *testing.T) {
	input := `<html><head><title>Annual Report</title></head><body>
<nav>skip me</nav>
<h1 id="intro">Introduction</h1>
<p>The <a href="#fig:trend">trend plot</a> and <a href="https://example.com">a site</a>.</p>
<figure id="fig:trend"><img src="t.png"><figcaption>Figure 1: Revenue trend</figcaption></figure>
<table id="costs"><caption>Unit costs</caption><tr><td>a</td></tr></table>
<p>\appendix</p>
<h2 class="appendix wide">Raw Data</h2>
<div class="equation" id="eq:energy">E = mc^2</div>
<pre>see Figure 9-9</pre>
</body></html>`

	doc, err := (&HTMLParser{}).Parse(strings.NewReader(input), "report.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Annual Report" {
		t.Errorf("expected title from <title>, got %q", doc.Title)
	}

	want := []doctree.Block{
		{Type: doctree.Heading, Level: 1, Text: "Introduction", ID: "intro"},
		{Type: doctree.Text, Text: "The [trend plot](#fig:trend) and a site."},
		{Type: doctree.Element, Kind: "fig", ID: "fig:trend", Caption: "Revenue trend", Number: "1"},
		{Type: doctree.Element, Kind: "tbl", ID: "tbl:costs", Caption: "Unit costs"},
		{Type: doctree.AppendixMarker},
		{Type: doctree.Heading, Level: 2, Text: "Raw Data", Appendix: true},
		{Type: doctree.Element, Kind: "eq", ID: "eq:energy", Caption: "E = mc^2"},
		{Type: doctree.Code, Text: "see Figure 9-9"},
	}
	if len(doc.Blocks) != len(want) {
		t.Fatalf("expected %d blocks, got %d: %+v", len(want), len(doc.Blocks), doc.Blocks)
	}
	for i, w := range want {
		if doc.Blocks[i] != w {
			t.Errorf("block[%d]:\n got %+v\nwant %+v", i, doc.Blocks[i], w)
		}
	}
}

func TestHTMLParser_FallsBackToFilename(t *testing.T) {
	doc, err := (&HTMLParser{}).Parse(strings.NewReader("<p>hello</p>"), "page.htm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "page" {
		t.Errorf("expected title %q, got %q", "page", doc.Title)
	}
	if len(doc.Blocks) != 1 || doc.Blocks[0].Text != "hello" {
		t.Errorf("unexpected blocks %+v", doc.Blocks)
	}
}

func TestHTMLParser_ExportedMarkup(t *testing.T) {
	input := `<section id="intro" data-index="0">
<h1 id="intro" data-number="1">1 Introduction</h1>
<figure id="_Ref100000001" class="figure" data-ref="fig:trend" data-number="1-1"><figcaption>Figure 1-1: Revenue</figcaption></figure>
<figure id="_Ref100000002" class="table" data-ref="" data-number="1-1"><figcaption>Table 1-1: Costs</figcaption></figure>
</section>`

	doc, err := (&HTMLParser{}).Parse(strings.NewReader(input), "out.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var elems []doctree.Block
	for _, b := range doc.Blocks {
		if b.Type == doctree.Element {
			elems = append(elems, b)
		}
	}
	if len(elems) != 2 {
		t.Fatalf("expected 2 elements, got %+v", doc.Blocks)
	}
	if elems[0].ID != "fig:trend" || elems[0].Number != "1-1" {
		t.Errorf("figure: got %+v", elems[0])
	}
	if elems[1].Kind != "tbl" || elems[1].Number != "1-1" || elems[1].Caption != "Costs" {
		t.Errorf("table: got %+v", elems[1])
	}
}

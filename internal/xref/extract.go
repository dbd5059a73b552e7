package xref

import (
	"regexp"
	"sort"
	"strings"
)

// Extractor finds reference usages in rendered block text.
type Extractor struct {
	// Anchor markers
	linkPattern     *regexp.Regexp // [Figure 2-1](#fig:trend)
	citePattern     *regexp.Regexp // @fig:trend or [@fig:trend]
	bareLinkPattern *regexp.Regexp // any markdown link, used to mask pattern scans

	// Label + number text, one per kind
	patterns []kindPattern
}

type kindPattern struct {
	kind Kind
	re   *regexp.Regexp
}

// numberSuffix matches chapter-scoped display numbers ("2-3", "A-1",
// "1.2") and bare sequence numbers ("3").
const numberSuffix = `((?:\d+|[A-Z]{1,3})(?:[-.]\d+)+|\d+)`

// NewExtractor compiles the default marker and label patterns.
func NewExtractor() *Extractor {
	return &Extractor{
		linkPattern:     regexp.MustCompile(`\[([^\[\]]*)\]\(#((?:fig|tbl|eq)[:_][\w\-.:]+)\)`),
		citePattern:     regexp.MustCompile(`\[@((?:fig|tbl|eq)[:_][\w\-]+)\]|@((?:fig|tbl|eq)[:_][\w\-]+)`),
		bareLinkPattern: regexp.MustCompile(`\[[^\[\]]*\]\([^()\s]*\)`),
		patterns: []kindPattern{
			{kind: Figure, re: regexp.MustCompile(`\b(?:Figure|Fig\.|fig\.)[\s\x{00a0}]*` + numberSuffix)},
			{kind: Table, re: regexp.MustCompile(`\b(?:Table|Tbl\.|tbl\.)[\s\x{00a0}]*` + numberSuffix)},
			{kind: Equation, re: regexp.MustCompile(`\b(?:Equation|Eq\.?|eq\.)[\s\x{00a0}]*` + numberSuffix)},
		},
	}
}

// Extract runs the strategies selected by mode over one block of text.
// Pattern matches that overlap an anchor marker or any link are dropped.
func (e *Extractor) Extract(block int, text string, mode Mode) []Usage {
	var out []Usage
	if mode != ModePattern {
		out = append(out, e.Anchors(block, text)...)
	}
	if mode != ModeAnchor {
		masked := e.linkSpans(block, text)
		for _, u := range out {
			masked = append(masked, u.Location)
		}
		for _, u := range e.Patterns(block, text) {
			if !overlapsAny(u.Location, masked) {
				out = append(out, u)
			}
		}
	}
	sortUsages(out)
	return out
}

// Anchors finds explicit markers that name a semantic id.
func (e *Extractor) Anchors(block int, text string) []Usage {
	var out []Usage
	for _, m := range e.linkPattern.FindAllStringSubmatchIndex(text, -1) {
		id, kind, _ := NormalizeID(text[m[4]:m[5]])
		out = append(out, Usage{
			TargetSemanticID: id,
			Kind:             kind,
			Location:         Location{Block: block, Offset: m[0], Length: m[1] - m[0]},
			Strategy:         Anchor,
			Raw:              text[m[0]:m[1]],
		})
	}
	links := locations(out)

	for _, m := range e.citePattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		idStart, idEnd := m[2], m[3]
		if idStart < 0 {
			idStart, idEnd = m[4], m[5]
			// Skip e-mail like text such as "me@fig:x".
			if start > 0 && isWordByte(text[start-1]) {
				continue
			}
		}
		loc := Location{Block: block, Offset: start, Length: end - start}
		if overlapsAny(loc, links) {
			continue
		}
		id, kind, _ := NormalizeID(text[idStart:idEnd])
		out = append(out, Usage{
			TargetSemanticID: id,
			Kind:             kind,
			Location:         loc,
			Strategy:         Anchor,
			Raw:              text[start:end],
		})
	}
	sortUsages(out)
	return out
}

// Patterns finds label + number text such as "Figure 2-3" or "Table A-1".
// When matches of different kinds overlap the earliest one wins.
func (e *Extractor) Patterns(block int, text string) []Usage {
	var out []Usage
	for _, p := range e.patterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
			out = append(out, Usage{
				Kind:     p.kind,
				Location: Location{Block: block, Offset: m[0], Length: m[1] - m[0]},
				Strategy: Pattern,
				Raw:      text[m[0]:m[1]],
				Number:   strings.TrimRight(text[m[2]:m[3]], "."),
			})
		}
	}
	sortUsages(out)

	kept := out[:0]
	var taken []Location
	for _, u := range out {
		if overlapsAny(u.Location, taken) {
			continue
		}
		taken = append(taken, u.Location)
		kept = append(kept, u)
	}
	return kept
}

func (e *Extractor) linkSpans(block int, text string) []Location {
	var out []Location
	for _, m := range e.bareLinkPattern.FindAllStringIndex(text, -1) {
		out = append(out, Location{Block: block, Offset: m[0], Length: m[1] - m[0]})
	}
	return out
}

func locations(us []Usage) []Location {
	out := make([]Location, len(us))
	for i, u := range us {
		out[i] = u.Location
	}
	return out
}

func overlapsAny(l Location, spans []Location) bool {
	for _, s := range spans {
		if l.overlaps(s) {
			return true
		}
	}
	return false
}

func sortUsages(us []Usage) {
	sort.SliceStable(us, func(i, j int) bool {
		if us[i].Location.Block != us[j].Location.Block {
			return us[i].Location.Block < us[j].Location.Block
		}
		return us[i].Location.Offset < us[j].Location.Offset
	})
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

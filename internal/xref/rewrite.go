package xref

import (
	"sort"
	"strings"
)

// Rewrite replaces every resolved span of text with a link unit
// "[Figure 2-3](#fig:id)". The unit keeps the semantic id, so extracting and
// resolving the rewritten text again yields the same resolutions. Unresolved
// spans are left as they are. All resolutions must belong to the same block.
func Rewrite(text string, resolutions []Resolution) string {
	rs := make([]Resolution, 0, len(resolutions))
	for _, r := range resolutions {
		if r.Resolved && r.Location.Offset >= 0 && r.Location.end() <= len(text) {
			rs = append(rs, r)
		}
	}
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Location.Offset < rs[j].Location.Offset })

	var b strings.Builder
	pos := 0
	for _, r := range rs {
		if r.Location.Offset < pos {
			continue
		}
		b.WriteString(text[pos:r.Location.Offset])
		b.WriteString(LinkUnit(r))
		pos = r.Location.end()
	}
	b.WriteString(text[pos:])
	return b.String()
}

// LinkUnit renders the re-resolvable form of a resolution.
func LinkUnit(r Resolution) string {
	return "[" + r.ResolvedText + "](#" + AnchorID(r.Kind, r.TargetSemanticID) + ")"
}

// Relabel refreshes the text of resolved entries from the display numbers
// lookup holds now.
func Relabel(lookup Lookup, resolutions []Resolution) {
	for i := range resolutions {
		r := &resolutions[i]
		if !r.Resolved {
			continue
		}
		if it, ok := lookup.Lookup(r.TargetSemanticID); ok && it.DisplayNumber != "" {
			r.ResolvedText = it.Label()
		}
	}
}

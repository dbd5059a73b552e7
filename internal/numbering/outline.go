package numbering

import (
	"sort"
	"strings"
)

// NoChapterScope is the scope used for captions that precede every chapter.
const NoChapterScope = "0"

// Outline is the flat section arena with id-indexed relations.
type Outline struct {
	sections []Section
	byID     map[string]int
	byNumber map[string]int
	byOrder  map[int]int
}

// Stats summarizes an outline.
type Stats struct {
	Total    int         `json:"total"`
	Main     int         `json:"main"`
	Appendix int         `json:"appendix"`
	ByLevel  map[int]int `json:"by_level"`
}

// NewOutline copies sections (which must be in document order) and links
// parents, children and siblings.
func NewOutline(sections []Section) *Outline {
	o := &Outline{
		sections: make([]Section, len(sections)),
		byID:     make(map[string]int, len(sections)),
		byNumber: make(map[string]int, len(sections)),
		byOrder:  make(map[int]int, len(sections)),
	}
	copy(o.sections, sections)

	var stack []int
	lastRoot := -1
	lastChild := make(map[int]int)

	for i := range o.sections {
		s := &o.sections[i]
		s.ParentID, s.ChildIDs, s.PrevSiblingID, s.NextSiblingID = "", nil, "", ""
		o.byID[s.ID] = i
		o.byOrder[s.DocumentOrder] = i
		if _, dup := o.byNumber[s.Number]; !dup {
			o.byNumber[s.Number] = i
		}

		for len(stack) > 0 && o.sections[stack[len(stack)-1]].Level >= s.Level {
			stack = stack[:len(stack)-1]
		}

		prev := lastRoot
		if len(stack) > 0 {
			parent := stack[len(stack)-1]
			s.ParentID = o.sections[parent].ID
			o.sections[parent].ChildIDs = append(o.sections[parent].ChildIDs, s.ID)
			p, ok := lastChild[parent]
			if !ok {
				p = -1
			}
			prev = p
			lastChild[parent] = i
		} else {
			lastRoot = i
		}
		if prev >= 0 {
			s.PrevSiblingID = o.sections[prev].ID
			o.sections[prev].NextSiblingID = s.ID
		}
		stack = append(stack, i)
	}
	return o
}

// Len returns the number of sections.
func (o *Outline) Len() int { return len(o.sections) }

// Sections returns all sections in document order.
func (o *Outline) Sections() []Section {
	out := make([]Section, len(o.sections))
	copy(out, o.sections)
	return out
}

func (o *Outline) ByID(id string) (Section, bool) {
	i, ok := o.byID[id]
	if !ok {
		return Section{}, false
	}
	return o.sections[i], true
}

// ByNumber finds the first section showing number.
func (o *Outline) ByNumber(number string) (Section, bool) {
	i, ok := o.byNumber[number]
	if !ok {
		return Section{}, false
	}
	return o.sections[i], true
}

// AtOrder returns the section whose heading sits at position order.
func (o *Outline) AtOrder(order int) (Section, bool) {
	i, ok := o.byOrder[order]
	if !ok {
		return Section{}, false
	}
	return o.sections[i], true
}

func (o *Outline) Parent(id string) (Section, bool) {
	s, ok := o.ByID(id)
	if !ok || s.ParentID == "" {
		return Section{}, false
	}
	return o.ByID(s.ParentID)
}

func (o *Outline) Children(id string) []Section {
	s, ok := o.ByID(id)
	if !ok {
		return nil
	}
	out := make([]Section, 0, len(s.ChildIDs))
	for _, c := range s.ChildIDs {
		out = append(out, o.sections[o.byID[c]])
	}
	return out
}

// Roots returns sections without a parent.
func (o *Outline) Roots() []Section {
	var out []Section
	for _, s := range o.sections {
		if s.ParentID == "" {
			out = append(out, s)
		}
	}
	return out
}

// Path returns the chain from the root down to id, inclusive.
func (o *Outline) Path(id string) []Section {
	var out []Section
	for s, ok := o.ByID(id); ok; s, ok = o.Parent(s.ID) {
		out = append([]Section{s}, out...)
	}
	return out
}

// Descendants returns every section below id in document order.
func (o *Outline) Descendants(id string) []Section {
	var out []Section
	var walk func(string)
	walk = func(id string) {
		for _, c := range o.Children(id) {
			out = append(out, c)
			walk(c.ID)
		}
	}
	walk(id)
	return out
}

func (o *Outline) ByLevel(level int) []Section {
	var out []Section
	for _, s := range o.sections {
		if s.Level == level {
			out = append(out, s)
		}
	}
	return out
}

// Appendices returns the sections numbered in appendix mode.
func (o *Outline) Appendices() []Section {
	var out []Section
	for _, s := range o.sections {
		if s.IsAppendix {
			out = append(out, s)
		}
	}
	return out
}

// ChapterScopeAt returns the chapter scope for a caption at position order:
// the leading component of the nearest section heading at or before it.
// ok is false when no chapter encloses the position.
func (o *Outline) ChapterScopeAt(order int) (string, bool) {
	i := sort.Search(len(o.sections), func(i int) bool {
		return o.sections[i].DocumentOrder > order
	}) - 1
	if i < 0 {
		return NoChapterScope, false
	}
	scope, _, _ := strings.Cut(o.sections[i].Number, ".")
	if scope == "" || scope == NoChapterScope {
		return NoChapterScope, false
	}
	return scope, true
}

func (o *Outline) Stats() Stats {
	st := Stats{ByLevel: make(map[int]int)}
	for _, s := range o.sections {
		st.Total++
		st.ByLevel[s.Level]++
		if s.IsAppendix {
			st.Appendix++
		} else {
			st.Main++
		}
	}
	return st
}

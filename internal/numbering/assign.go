package numbering

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/dgallion1/docnum/internal/diag"
)

// Heading is one heading record handed over by a source adapter.
type Heading struct {
	Level      int
	Title      string
	IsAppendix bool
	ID         string // optional explicit id
}

// Section is a numbered heading. Relations are held by id so the outline can
// live in a flat slice.
type Section struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Level         int      `json:"level"`
	IsAppendix    bool     `json:"isAppendix"`
	Number        string   `json:"number"`
	DocumentOrder int      `json:"documentOrder"`
	ParentID      string   `json:"parentId,omitempty"`
	ChildIDs      []string `json:"childIds,omitempty"`
	PrevSiblingID string   `json:"previousSiblingId,omitempty"`
	NextSiblingID string   `json:"nextSiblingId,omitempty"`
}

// Label is the presentation form of the number. Top-level appendices read
// "Appendix A"; everything else is the bare number.
func (s Section) Label() string {
	if s.IsAppendix && s.Level == 1 {
		return "Appendix " + s.Number
	}
	return s.Number
}

// Display is the label followed by the title.
func (s Section) Display() string {
	if s.Title == "" {
		return s.Label()
	}
	return s.Label() + " " + s.Title
}

// Options configures an Assigner.
type Options struct {
	// AppendixMarker is heading text that starts appendix numbering even when
	// the heading is not flagged. Matched with all whitespace removed. Empty
	// disables marker matching.
	AppendixMarker string
}

// Assigner numbers headings in document order.
type Assigner struct {
	marker string
	warn   *diag.Collector
	state  State
	count  int
	ids    map[string]bool
}

func NewAssigner(opts Options, warn *diag.Collector) *Assigner {
	return &Assigner{
		marker: stripSpace(opts.AppendixMarker),
		warn:   warn,
		ids:    make(map[string]bool),
	}
}

// State returns a snapshot of the numbering state.
func (a *Assigner) State() State {
	return a.state
}

// StartAppendix switches to appendix numbering before the next heading.
// It is a no-op once appendix numbering is active.
func (a *Assigner) StartAppendix() {
	if !a.state.InAppendix {
		a.state.enterAppendix()
	}
}

// Assign numbers a complete heading list. DocumentOrder is the list index.
func (a *Assigner) Assign(headings []Heading) []Section {
	out := make([]Section, 0, len(headings))
	for i, h := range headings {
		out = append(out, a.Next(h, i))
	}
	return out
}

// Next numbers one heading found at position order of the document stream.
func (a *Assigner) Next(h Heading, order int) Section {
	level := h.Level
	if level < 1 || level > MaxLevel {
		clamped := min(max(level, 1), MaxLevel)
		a.warn.Warn(diag.InvalidHeadingLevel, "",
			fmt.Sprintf("heading %q has level %d, using %d", h.Title, level, clamped),
			"order", order)
		level = clamped
	}

	if !a.state.InAppendix && (h.IsAppendix || a.isMarker(h.Title)) {
		a.state.enterAppendix()
	}
	if a.state.InAppendix && level > 1 && a.state.appendixChapters == 0 {
		// The appendix opened below chapter level, so letter A is taken.
		a.state.appendixChapters = 1
	}

	a.state.Counters[level-1]++
	if a.state.InAppendix && level == 1 {
		if a.state.appendixChapters > 0 {
			a.state.AppendixIndex++
		}
		a.state.appendixChapters++
		a.state.Counters = [MaxLevel]int{}
	}
	a.state.resetBelow(level)

	a.count++
	return Section{
		ID:            a.sectionID(h),
		Title:         h.Title,
		Level:         level,
		IsAppendix:    a.state.InAppendix,
		Number:        a.state.Number(level),
		DocumentOrder: order,
	}
}

func (a *Assigner) isMarker(title string) bool {
	return a.marker != "" && stripSpace(title) == a.marker
}

func (a *Assigner) sectionID(h Heading) string {
	id := strings.TrimSpace(h.ID)
	if id == "" {
		id = Slugify(h.Title)
	}
	if id == "" {
		id = fmt.Sprintf("sec-%d", a.count)
	}
	base := id
	for n := 1; a.ids[id]; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	a.ids[id] = true
	return id
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

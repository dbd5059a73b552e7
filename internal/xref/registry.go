package xref

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"sort"
	"strings"

	"github.com/dgallion1/docnum/internal/diag"
	"github.com/dgallion1/docnum/internal/numbering"
)

// ErrBookmarkCollision is returned when no free stable id could be found
// within the configured number of attempts.
var ErrBookmarkCollision = errors.New("stable id collision")

// ErrKindMismatch is returned when a semantic id's prefix names a different
// kind than the one it is registered as.
var ErrKindMismatch = errors.New("kind mismatch")

const (
	// BookmarkPrefix starts every stable id, matching the word-processor
	// convention for hidden cross-reference bookmarks.
	BookmarkPrefix = "_Ref"

	bookmarkMin = 100000000
	bookmarkMax = 999999999

	DefaultMaxAttempts = 8
)

var bookmarkPattern = regexp.MustCompile(`^_Ref\d{9}$`)

// IsBookmark reports whether s has the stable id shape.
func IsBookmark(s string) bool {
	return bookmarkPattern.MatchString(s)
}

// Placement says where a registered element sits in the document stream.
type Placement struct {
	Order   int
	Caption string
}

// Item is one registered figure, table or equation.
type Item struct {
	Kind          Kind   `json:"kind"`
	SemanticID    string `json:"semanticId"`
	StableID      string `json:"stableId"`
	DisplayNumber string `json:"displayNumber"`
	ChapterScope  string `json:"chapterScope"`
	DocumentOrder int    `json:"documentOrder"`
	Caption       string `json:"caption,omitempty"`
}

// Label is the full reference text, e.g. "Figure 2-3".
func (it Item) Label() string {
	return it.Kind.Label() + " " + it.DisplayNumber
}

// Triple is the per-item record handed to export adapters.
type Triple struct {
	StableID      string `json:"stableId"`
	DisplayNumber string `json:"displayNumber"`
	DocumentOrder int    `json:"documentOrder"`
}

// Option configures a Registry.
type Option func(*Registry)

// WithRand replaces the random source. fn must return a value in [0, n).
func WithRand(fn func(n int64) int64) Option {
	return func(r *Registry) { r.randN = fn }
}

// WithMaxAttempts bounds stable id generation retries.
func WithMaxAttempts(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithCollector routes warnings to c.
func WithCollector(c *diag.Collector) Option {
	return func(r *Registry) { r.warn = c }
}

// WithReserved marks stable ids that already exist in the output, for
// example bookmarks carried by a template.
func WithReserved(ids ...string) Option {
	return func(r *Registry) {
		for _, id := range ids {
			r.used[id] = true
		}
	}
}

// Registry owns the reference items of one document build.
type Registry struct {
	items       []Item
	bySemantic  map[string]int
	byStable    map[string]int
	used        map[string]bool
	randN       func(int64) int64
	maxAttempts int
	warn        *diag.Collector
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		bySemantic:  make(map[string]int),
		byStable:    make(map[string]int),
		used:        make(map[string]bool),
		randN:       rand.Int64N,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds an element and returns its stable id. Registering a
// semantic id a second time returns the original stable id.
//
// Semantic ids are stored in canonical form: a kind prefix written with an
// underscore becomes a colon, so "fig_a" is stored and looked up as
// "fig:a". Ids without a kind prefix are stored as given. A prefix naming
// another kind than kind fails with ErrKindMismatch.
func (r *Registry) Register(kind Kind, semanticID string, at Placement) (string, error) {
	if !kind.valid() {
		return "", fmt.Errorf("register %q: invalid kind %d", semanticID, int(kind))
	}
	id, prefixKind, prefixed := NormalizeID(semanticID)
	if id == "" {
		return "", fmt.Errorf("register %s: empty semantic id", kind)
	}
	if prefixed && prefixKind != kind {
		r.warn.Warn(diag.KindMismatch, id,
			fmt.Sprintf("%q carries the %s prefix but was registered as a %s", id, prefixKind, kind),
			"order", at.Order)
		return "", fmt.Errorf("register %q as %s: %w", id, kind, ErrKindMismatch)
	}

	if i, ok := r.bySemantic[id]; ok {
		existing := r.items[i]
		r.warn.Warn(diag.DuplicateRegistration, id,
			fmt.Sprintf("%s %q already registered, keeping the first", kind, id),
			"existing_kind", existing.Kind.String(),
			"existing_order", existing.DocumentOrder,
			"order", at.Order)
		return existing.StableID, nil
	}

	stable, err := r.newStableID()
	if err != nil {
		return "", fmt.Errorf("register %q: %w", id, err)
	}

	r.items = append(r.items, Item{
		Kind:          kind,
		SemanticID:    id,
		StableID:      stable,
		DocumentOrder: at.Order,
		Caption:       at.Caption,
	})
	r.bySemantic[id] = len(r.items) - 1
	r.byStable[stable] = len(r.items) - 1
	return stable, nil
}

func (r *Registry) RegisterFigure(semanticID string, at Placement) (string, error) {
	return r.Register(Figure, semanticID, at)
}

func (r *Registry) RegisterTable(semanticID string, at Placement) (string, error) {
	return r.Register(Table, semanticID, at)
}

func (r *Registry) RegisterEquation(semanticID string, at Placement) (string, error) {
	return r.Register(Equation, semanticID, at)
}

func (r *Registry) newStableID() (string, error) {
	for attempt := range r.maxAttempts {
		id := fmt.Sprintf("%s%09d", BookmarkPrefix, bookmarkMin+r.randN(bookmarkMax-bookmarkMin+1))
		if !r.used[id] {
			r.used[id] = true
			return id, nil
		}
		r.warn.Warn(diag.BookmarkCollision, "",
			fmt.Sprintf("stable id %s already in use, retrying", id),
			"attempt", attempt+1)
	}
	return "", fmt.Errorf("%w: no free id after %d attempts", ErrBookmarkCollision, r.maxAttempts)
}

// UpdateDisplayNumbers recomputes every display number in document order,
// scoping each item to the chapter that encloses it in outline.
// It can be called again whenever registrations or the outline change.
func (r *Registry) UpdateDisplayNumbers(outline *numbering.Outline) {
	counter := numbering.NewCaptionCounter(r.warn)
	for _, i := range r.orderedIndexes() {
		it := &r.items[i]
		scope := numbering.NoChapterScope
		if outline != nil {
			scope, _ = outline.ChapterScopeAt(it.DocumentOrder)
		}
		n := counter.Register(it.Kind.Prefix(), scope)
		it.ChapterScope = scope
		it.DisplayNumber = numbering.CaptionNumber(scope, n)
	}
}

// SetDisplayNumber records the number a rendering target currently shows
// for an item. The next UpdateDisplayNumbers overwrites it.
func (r *Registry) SetDisplayNumber(semanticID, number string) bool {
	id, _, _ := NormalizeID(semanticID)
	i, ok := r.bySemantic[id]
	if !ok {
		return false
	}
	r.items[i].DisplayNumber = number
	return true
}

// Lookup finds an item by semantic id. A prefixed id such as "fig:trend"
// also finds an item registered without the prefix.
func (r *Registry) Lookup(semanticID string) (Item, bool) {
	id, _, prefixed := NormalizeID(semanticID)
	i, ok := r.bySemantic[id]
	if !ok && prefixed {
		_, bare, _ := strings.Cut(id, ":")
		i, ok = r.bySemantic[bare]
	}
	if !ok {
		return Item{}, false
	}
	return r.items[i], true
}

// LookupStable finds an item by its stable id.
func (r *Registry) LookupStable(stableID string) (Item, bool) {
	i, ok := r.byStable[stableID]
	if !ok {
		return Item{}, false
	}
	return r.items[i], true
}

// AllInOrder returns the items of kind sorted by document order.
func (r *Registry) AllInOrder(kind Kind) []Item {
	var out []Item
	for _, i := range r.orderedIndexes() {
		if r.items[i].Kind == kind {
			out = append(out, r.items[i])
		}
	}
	return out
}

// Items returns every item sorted by document order.
func (r *Registry) Items() []Item {
	idx := r.orderedIndexes()
	out := make([]Item, len(idx))
	for j, i := range idx {
		out[j] = r.items[i]
	}
	return out
}

// Triples returns (stableId, displayNumber, documentOrder) for every item.
func (r *Registry) Triples() []Triple {
	items := r.Items()
	out := make([]Triple, len(items))
	for i, it := range items {
		out[i] = Triple{StableID: it.StableID, DisplayNumber: it.DisplayNumber, DocumentOrder: it.DocumentOrder}
	}
	return out
}

func (r *Registry) Len() int { return len(r.items) }

func (r *Registry) orderedIndexes() []int {
	idx := make([]int, len(r.items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return r.items[idx[a]].DocumentOrder < r.items[idx[b]].DocumentOrder
	})
	return idx
}

package xref

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_lookup.go -package=mocks github.com/dgallion1/docnum/internal/xref Lookup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dgallion1/docnum/internal/diag"
)

// Lookup is the read side of a Registry used by the Resolver.
type Lookup interface {
	Lookup(semanticID string) (Item, bool)
	AllInOrder(kind Kind) []Item
}

// Resolver turns usages into resolved reference text.
type Resolver struct {
	lookup  Lookup
	warn    *diag.Collector
	pending map[string][]Usage
	order   []string
}

func NewResolver(lookup Lookup, warn *diag.Collector) *Resolver {
	return &Resolver{
		lookup:  lookup,
		warn:    warn,
		pending: make(map[string][]Usage),
	}
}

// Resolve resolves every usage. Unresolvable usages come back with
// Resolved false and their raw text unchanged.
func (r *Resolver) Resolve(usages []Usage) []Resolution {
	out := make([]Resolution, 0, len(usages))
	for _, u := range usages {
		out = append(out, r.ResolveOne(u))
	}
	return out
}

// ResolveOne resolves a single usage.
func (r *Resolver) ResolveOne(u Usage) Resolution {
	switch u.Strategy {
	case Pattern:
		return r.resolvePattern(u)
	default:
		res, ok := r.resolveAnchor(u)
		if !ok {
			r.warn.Warn(diag.DanglingReference, u.TargetSemanticID,
				fmt.Sprintf("reference to unregistered id %q left as text", u.TargetSemanticID),
				"block", u.Location.Block, "offset", u.Location.Offset)
		}
		return res
	}
}

// ResolveOrDefer resolves usages whose targets are known and parks anchor
// usages whose targets are not registered yet. Parked usages come back from
// Drain once their target registers.
func (r *Resolver) ResolveOrDefer(usages []Usage) []Resolution {
	out := make([]Resolution, 0, len(usages))
	for _, u := range usages {
		if u.Strategy == Anchor {
			res, ok := r.resolveAnchor(u)
			if !ok {
				r.Defer(u)
			}
			out = append(out, res)
			continue
		}
		out = append(out, r.resolvePattern(u))
	}
	return out
}

// Defer parks an anchor usage until its target registers.
func (r *Resolver) Defer(u Usage) {
	id, _, _ := NormalizeID(u.TargetSemanticID)
	if _, ok := r.pending[id]; !ok {
		r.order = append(r.order, id)
	}
	r.pending[id] = append(r.pending[id], u)
}

// Drain resolves parked usages for the given semantic ids, or for every
// parked id that is now registered when none are given.
func (r *Resolver) Drain(semanticIDs ...string) []Resolution {
	if len(semanticIDs) == 0 {
		semanticIDs = append([]string(nil), r.order...)
	}
	var out []Resolution
	for _, raw := range semanticIDs {
		id, _, _ := NormalizeID(raw)
		usages, ok := r.pending[id]
		if !ok {
			continue
		}
		if _, known := r.lookup.Lookup(id); !known {
			continue
		}
		delete(r.pending, id)
		r.removeOrder(id)
		for _, u := range usages {
			res, _ := r.resolveAnchor(u)
			out = append(out, res)
		}
	}
	return out
}

// Pending returns the parked usages in the order their targets were first parked.
func (r *Resolver) Pending() []Usage {
	var out []Usage
	for _, id := range r.order {
		out = append(out, r.pending[id]...)
	}
	return out
}

// FlushPending gives up on every parked usage, reporting each as dangling.
func (r *Resolver) FlushPending() []Resolution {
	var out []Resolution
	for _, u := range r.Pending() {
		out = append(out, r.ResolveOne(u))
	}
	clear(r.pending)
	r.order = nil
	return out
}

func (r *Resolver) removeOrder(id string) {
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

func (r *Resolver) resolveAnchor(u Usage) (Resolution, bool) {
	item, ok := r.lookup.Lookup(u.TargetSemanticID)
	if !ok || item.DisplayNumber == "" {
		return unresolved(u), false
	}
	if item.Kind != u.Kind {
		r.warn.Warn(diag.KindMismatch, item.SemanticID,
			fmt.Sprintf("reference written as %s but %q is a %s", u.Kind, item.SemanticID, item.Kind),
			"block", u.Location.Block)
	}
	return resolved(u, item), true
}

func (r *Resolver) resolvePattern(u Usage) Resolution {
	var candidates []Item
	items := r.lookup.AllInOrder(u.Kind)
	for _, it := range items {
		if it.DisplayNumber == u.Number {
			candidates = append(candidates, it)
		}
	}

	switch {
	case len(candidates) == 1:
		return resolved(u, candidates[0])
	case len(candidates) > 1:
		ids := make([]string, len(candidates))
		for i, c := range candidates {
			ids[i] = c.SemanticID
		}
		r.warn.Warn(diag.AmbiguousPatternMatch, candidates[0].SemanticID,
			fmt.Sprintf("%q matches %d targets (%s), using the first in document order",
				u.Raw, len(candidates), strings.Join(ids, ", ")),
			"block", u.Location.Block)
		return resolved(u, candidates[0])
	}

	// A bare sequence number counts items of the kind in document order.
	if n, err := strconv.Atoi(u.Number); err == nil && n >= 1 && n <= len(items) {
		return resolved(u, items[n-1])
	}

	r.warn.Warn(diag.DanglingReference, "",
		fmt.Sprintf("no %s shows number %q, %q left as text", u.Kind, u.Number, u.Raw),
		"block", u.Location.Block, "offset", u.Location.Offset)
	return unresolved(u)
}

func resolved(u Usage, it Item) Resolution {
	return Resolution{
		Location:         u.Location,
		ResolvedText:     it.Label(),
		TargetStableID:   it.StableID,
		TargetSemanticID: it.SemanticID,
		Kind:             it.Kind,
		Strategy:         u.Strategy,
		Resolved:         true,
		Raw:              u.Raw,
	}
}

func unresolved(u Usage) Resolution {
	return Resolution{
		Location:         u.Location,
		ResolvedText:     u.Raw,
		TargetSemanticID: u.TargetSemanticID,
		Kind:             u.Kind,
		Strategy:         u.Strategy,
		Raw:              u.Raw,
	}
}

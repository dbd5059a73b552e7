package xref

import (
	"fmt"
	"strings"
)

// Strategy tells how a usage was discovered.
type Strategy int

const (
	// Anchor usages name their target's semantic id explicitly.
	Anchor Strategy = iota
	// Pattern usages were found by scanning label and number text.
	Pattern
)

func (s Strategy) String() string {
	switch s {
	case Anchor:
		return "anchor"
	case Pattern:
		return "pattern"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "anchor":
		*s = Anchor
	case "pattern":
		*s = Pattern
	default:
		return fmt.Errorf("unknown strategy %q", b)
	}
	return nil
}

// Mode selects which extraction strategies run.
type Mode string

const (
	ModeAnchor  Mode = "anchor"
	ModePattern Mode = "pattern"
	ModeBoth    Mode = "both"
)

// ParseMode validates a mode name. Empty means ModeBoth.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeBoth, nil
	case ModeAnchor, ModePattern, ModeBoth:
		return m, nil
	}
	return "", fmt.Errorf("unknown reference strategy %q (use anchor, pattern or both)", s)
}

// Location points into rendered content: a block of the document and a
// byte span inside that block's text.
type Location struct {
	Block  int `json:"block"`
	Offset int `json:"offset"`
	Length int `json:"length"`
}

func (l Location) end() int { return l.Offset + l.Length }

func (l Location) overlaps(o Location) bool {
	return l.Block == o.Block && l.Offset < o.end() && o.Offset < l.end()
}

// Usage is one reference occurrence.
type Usage struct {
	TargetSemanticID string   `json:"targetSemanticId,omitempty"`
	Kind             Kind     `json:"kind"`
	Location         Location `json:"location"`
	Strategy         Strategy `json:"strategy"`
	Raw              string   `json:"raw"`
	// Number is the display number text of a pattern usage.
	Number string `json:"number,omitempty"`
}

// Resolution is the outcome of resolving one usage.
type Resolution struct {
	Location         Location `json:"location"`
	ResolvedText     string   `json:"resolvedText"`
	TargetStableID   string   `json:"targetStableId,omitempty"`
	TargetSemanticID string   `json:"targetSemanticId,omitempty"`
	Kind             Kind     `json:"kind"`
	Strategy         Strategy `json:"strategy"`
	Resolved         bool     `json:"resolved"`
	Raw              string   `json:"raw"`
}

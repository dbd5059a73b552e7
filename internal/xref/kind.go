package xref

import (
	"fmt"
	"strings"
)

// Kind is the closed set of numbered element kinds.
type Kind int

const (
	Figure Kind = iota
	Table
	Equation
)

type kindInfo struct {
	name   string
	prefix string
	label  string
}

var kindTable = [...]kindInfo{
	Figure:   {name: "figure", prefix: "fig", label: "Figure"},
	Table:    {name: "table", prefix: "tbl", label: "Table"},
	Equation: {name: "equation", prefix: "eq", label: "Eq"},
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	return []Kind{Figure, Table, Equation}
}

func (k Kind) valid() bool {
	return k >= 0 && int(k) < len(kindTable)
}

func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindTable[k].name
}

// Prefix is the semantic id prefix, e.g. "fig".
func (k Kind) Prefix() string {
	if !k.valid() {
		return ""
	}
	return kindTable[k].prefix
}

// Label is the caption label, e.g. "Figure".
func (k Kind) Label() string {
	if !k.valid() {
		return ""
	}
	return kindTable[k].label
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.valid() {
		return nil, fmt.Errorf("invalid kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind accepts a kind name, prefix or label in any case.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, info := range kindTable {
		if s == info.name || s == info.prefix || s == strings.ToLower(info.label) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown kind %q", s)
}

// NormalizeID canonicalizes a semantic id. Prefixed ids written with an
// underscore ("fig_trend") become "fig:trend"; the kind is reported when
// the id carries a known prefix.
func NormalizeID(id string) (string, Kind, bool) {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "#")
	for i, info := range kindTable {
		for _, sep := range []string{":", "_"} {
			if rest, ok := strings.CutPrefix(id, info.prefix+sep); ok && rest != "" {
				return info.prefix + ":" + rest, Kind(i), true
			}
		}
	}
	return id, 0, false
}

// AnchorID is the id written into link units: the semantic id, with the
// kind prefix added when the id has none.
func AnchorID(kind Kind, semanticID string) string {
	if _, _, ok := NormalizeID(semanticID); ok || !kind.valid() {
		return semanticID
	}
	return kind.Prefix() + ":" + semanticID
}

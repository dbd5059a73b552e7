package numbering

import (
	"strconv"
	"strings"
)

// MaxLevel is the deepest heading level that gets its own counter.
const MaxLevel = 6

// State is the mutable record threaded through one forward walk of the
// headings of a document. Each build owns its own State.
type State struct {
	Counters   [MaxLevel]int
	InAppendix bool

	// AppendixIndex selects the current appendix letter: 0 is A, 25 is Z, 26 is AA.
	AppendixIndex int

	// appendixChapters counts level-1 appendix headings seen so far.
	appendixChapters int
}

// AppendixLetter renders the current appendix letter.
func (s State) AppendixLetter() string {
	return Letter(s.AppendixIndex)
}

// Number composes the display number for a heading at level.
func (s State) Number(level int) string {
	parts := make([]string, 0, level)
	start := 0
	if s.InAppendix {
		parts = append(parts, s.AppendixLetter())
		start = 1
	}
	for i := start; i < level; i++ {
		parts = append(parts, strconv.Itoa(s.Counters[i]))
	}
	return strings.Join(parts, ".")
}

func (s *State) enterAppendix() {
	s.InAppendix = true
	s.Counters = [MaxLevel]int{}
}

func (s *State) resetBelow(level int) {
	for i := level; i < MaxLevel; i++ {
		s.Counters[i] = 0
	}
}

// Letter renders i in bijective base 26: A..Z, then AA, AB, ...
func Letter(i int) string {
	if i < 0 {
		i = 0
	}
	var buf []byte
	for n := i + 1; n > 0; n = (n - 1) / 26 {
		buf = append([]byte{byte('A' + (n-1)%26)}, buf...)
	}
	return string(buf)
}

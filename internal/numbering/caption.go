package numbering

import (
	"fmt"

	"github.com/dgallion1/docnum/internal/diag"
)

type captionKey struct {
	kind  string
	scope string
}

// CaptionCounter hands out chapter-scoped ordinals, one sequence per
// (kind, chapter scope) pair.
type CaptionCounter struct {
	counts map[captionKey]int
	warn   *diag.Collector
}

func NewCaptionCounter(warn *diag.Collector) *CaptionCounter {
	return &CaptionCounter{
		counts: make(map[captionKey]int),
		warn:   warn,
	}
}

// Register returns the next ordinal for kind within scope. An empty scope,
// or NoChapterScope, means no chapter has been seen yet; the caption is
// counted under NoChapterScope and a warning is raised.
func (c *CaptionCounter) Register(kind, scope string) int {
	if scope == "" || scope == NoChapterScope {
		scope = NoChapterScope
		c.warn.Warn(diag.InvalidChapterScope, "",
			fmt.Sprintf("%s caption registered before any chapter heading", kind),
			"kind", kind)
	}
	k := captionKey{kind: kind, scope: scope}
	c.counts[k]++
	return c.counts[k]
}

// Count returns how many captions of kind were registered in scope.
func (c *CaptionCounter) Count(kind, scope string) int {
	return c.counts[captionKey{kind: kind, scope: scope}]
}

// CaptionNumber composes the display number of a caption, e.g. "2-3".
func CaptionNumber(scope string, ordinal int) string {
	if scope == "" {
		scope = NoChapterScope
	}
	return fmt.Sprintf("%s-%d", scope, ordinal)
}

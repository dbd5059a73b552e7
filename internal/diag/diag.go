package diag

import (
	"io"
	"log/slog"
	"sync"
)

// Code identifies a recoverable condition raised during a build.
type Code string

const (
	DuplicateRegistration Code = "duplicate_registration"
	DanglingReference     Code = "dangling_reference"
	BookmarkCollision     Code = "bookmark_collision"
	AmbiguousPatternMatch Code = "ambiguous_pattern_match"
	InvalidChapterScope   Code = "invalid_chapter_scope"
	InvalidHeadingLevel   Code = "invalid_heading_level"
	KindMismatch          Code = "kind_mismatch"
)

// Warning is a recoverable condition reported after a build finishes.
type Warning struct {
	Code       Code   `json:"code"`
	Message    string `json:"message"`
	SemanticID string `json:"semantic_id,omitempty"`
}

// Collector logs warnings as they happen and keeps them for the build report.
// Identical warnings are recorded once. A nil Collector discards everything.
type Collector struct {
	mu       sync.Mutex
	log      *slog.Logger
	warnings []Warning
	seen     map[Warning]bool
}

func NewCollector(log *slog.Logger) *Collector {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Collector{
		log:  log,
		seen: make(map[Warning]bool),
	}
}

// Warn records a warning. attrs are extra slog key/value pairs for the log line only.
func (c *Collector) Warn(code Code, semanticID, msg string, attrs ...any) {
	if c == nil {
		return
	}
	w := Warning{Code: code, Message: msg, SemanticID: semanticID}

	c.mu.Lock()
	if c.seen[w] {
		c.mu.Unlock()
		return
	}
	c.seen[w] = true
	c.warnings = append(c.warnings, w)
	c.mu.Unlock()

	args := append([]any{"code", string(code)}, attrs...)
	if semanticID != "" {
		args = append(args, "semantic_id", semanticID)
	}
	c.log.Warn(msg, args...)
}

// Warnings returns a copy of everything recorded so far, in order.
func (c *Collector) Warnings() []Warning {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Count returns how many warnings with the given code were recorded.
func (c *Collector) Count(code Code) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, w := range c.warnings {
		if w.Code == code {
			n++
		}
	}
	return n
}

// Has reports whether at least one warning with the given code was recorded.
func (c *Collector) Has(code Code) bool {
	return c.Count(code) > 0
}

// Summary counts warnings per code.
func (c *Collector) Summary() map[Code]int {
	out := make(map[Code]int)
	for _, w := range c.Warnings() {
		out[w.Code]++
	}
	return out
}

package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dgallion1/docnum/internal/doctree"
)

// ErrUnsupported is returned by ForFile for unknown file extensions.
var ErrUnsupported = errors.New("unsupported file extension")

// Parser converts raw document bytes into a block stream.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// Options tune the source adapters.
type Options struct {
	// PDFFallback shells out to pdftotext when the Go reader fails.
	PDFFallback bool
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallback}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// appendixMarker is the raw source line that switches numbering into
// appendix mode.
const appendixMarker = `\appendix`

func isAppendixMarker(s string) bool {
	return strings.TrimSpace(s) == appendixMarker
}

// captionLabel matches a caption that starts with its own label and number,
// e.g. "Figure 2-1: Revenue" or "Table 3. Costs".
var captionLabel = regexp.MustCompile(`^(Figure|Fig\.|Table|Equation|Eq\.?)[\s\x{00a0}]*((?:\d+|[A-Z]{1,3})(?:[-.]\d+)*)\b\s*[:.\-\x{2013}\x{2014}]?\s*`)

// splitCaption separates a leading "Figure 2-1:" label from caption text.
// kind is the id prefix for the label ("fig", "tbl" or "eq").
func splitCaption(caption string) (kind, number, rest string, ok bool) {
	caption = strings.TrimSpace(caption)
	m := captionLabel.FindStringSubmatchIndex(caption)
	if m == nil {
		return "", "", caption, false
	}
	switch label := caption[m[2]:m[3]]; {
	case strings.HasPrefix(label, "Fig"):
		kind = "fig"
	case strings.HasPrefix(label, "Tab"):
		kind = "tbl"
	default:
		kind = "eq"
	}
	return kind, caption[m[4]:m[5]], strings.TrimSpace(caption[m[1]:]), true
}

// idKind returns the prefix of a semantic id such as "fig:trend" or
// "tbl_costs", or "" when the id has none.
func idKind(id string) string {
	for _, p := range []string{"fig", "tbl", "eq"} {
		if strings.HasPrefix(id, p+":") || strings.HasPrefix(id, p+"_") {
			return p
		}
	}
	return ""
}

// captionSequence hands out ids for elements whose source carries no
// semantic id, e.g. "fig:docx-1".
type captionSequence struct {
	source string
	counts map[string]int
}

func newCaptionSequence(source string) *captionSequence {
	return &captionSequence{source: source, counts: make(map[string]int)}
}

func (s *captionSequence) next(kind string) string {
	s.counts[kind]++
	return fmt.Sprintf("%s:%s-%d", kind, s.source, s.counts[kind])
}

package preview

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dgallion1/docnum/internal/bundle"
	"github.com/dgallion1/docnum/internal/diag"
	"github.com/dgallion1/docnum/internal/doctree"
	"github.com/dgallion1/docnum/internal/numbering"
	"github.com/dgallion1/docnum/internal/xref"
)

// SessionOptions configure the receiving side.
type SessionOptions struct {
	Strategy xref.Mode
}

// Session rebuilds numbering from preview messages. Section numbers come
// from the manifest; elements are registered as their sections arrive, and
// references to elements of sections not seen yet wait in the resolver's
// pending list until those sections show up. The refs message closes the
// document: whatever is still pending then is reported as dangling.
type Session struct {
	mu   sync.Mutex
	opts SessionOptions
	log  *slog.Logger
	mode xref.Mode

	manifest bundle.Manifest
	outline  *numbering.Outline
	warn     *diag.Collector
	reg      *xref.Registry
	resolver *xref.Resolver
	ex       *xref.Extractor

	docs     map[string]Doc
	arrival  []string
	finished bool
}

func NewSession(opts SessionOptions, log *slog.Logger) (*Session, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	mode, err := xref.ParseMode(string(opts.Strategy))
	if err != nil {
		return nil, err
	}
	s := &Session{opts: opts, log: log, mode: mode, ex: xref.NewExtractor()}
	s.reset(bundle.Manifest{})
	return s, nil
}

func (s *Session) reset(m bundle.Manifest) {
	sections := make([]numbering.Section, 0, len(m.Sections))
	for _, sec := range m.Sections {
		sections = append(sections, numbering.Section{
			ID:            sec.ID,
			Title:         sec.Title,
			Level:         sec.Level,
			IsAppendix:    sec.IsAppendix,
			Number:        sec.Number,
			DocumentOrder: sec.DocumentOrder,
		})
	}
	s.manifest = m
	s.outline = numbering.NewOutline(sections)
	s.warn = diag.NewCollector(s.log)
	s.reg = xref.NewRegistry(xref.WithCollector(s.warn))
	s.resolver = xref.NewResolver(s.reg, s.warn)
	s.docs = make(map[string]Doc)
	s.arrival = nil
	s.finished = false
}

// Apply dispatches one message. Section messages return their resolutions
// and the refs message returns the references left dangling.
func (s *Session) Apply(msg Message) ([]xref.Resolution, error) {
	switch msg.Kind {
	case KindManifest:
		if msg.Manifest == nil {
			return nil, fmt.Errorf("manifest message without manifest")
		}
		s.ApplyManifest(*msg.Manifest)
		return nil, nil
	case KindSection:
		if msg.Section == nil || msg.Doc == nil {
			return nil, fmt.Errorf("section message without section or doc")
		}
		return s.ApplySection(*msg.Section, *msg.Doc)
	case KindRefs:
		return s.Finish(), nil
	default:
		return nil, nil
	}
}

// ApplyManifest starts over with a new document.
func (s *Session) ApplyManifest(m bundle.Manifest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(m)
	s.log.Info("preview manifest applied", "doc_id", m.DocID, "sections", len(m.Sections))
}

// ApplySection registers the elements of one section and resolves its
// references. The result also holds earlier references that were waiting
// for the elements this section registered. A section that was already
// applied replaces its previous content.
func (s *Session) ApplySection(sec bundle.Section, doc Doc) ([]xref.Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.docs[sec.ID]; seen {
		return s.replay(sec.ID, doc)
	}
	s.docs[sec.ID] = doc
	s.arrival = append(s.arrival, sec.ID)
	return s.apply(doc)
}

// Finish reports every reference still waiting for its target as dangling
// and resolves references in sections applied later without waiting.
func (s *Session) Finish() []xref.Resolution {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true
	out := s.resolver.FlushPending()
	if len(out) > 0 {
		s.log.Warn("preview references left dangling", "count", len(out))
	}
	return out
}

func (s *Session) apply(doc Doc) ([]xref.Resolution, error) {
	if err := s.register(doc); err != nil {
		return nil, err
	}
	s.reg.UpdateDisplayNumbers(s.outline)

	out := s.resolve(doc)
	return append(out, s.resolver.Drain()...), nil
}

func (s *Session) register(doc Doc) error {
	for i, b := range doc.Blocks {
		if b.Type != doctree.Element {
			continue
		}
		kind, err := blockKind(b)
		if err != nil {
			return fmt.Errorf("block %d: %w", doc.Start+i, err)
		}
		if _, err := s.reg.Register(kind, b.ID, xref.Placement{Order: doc.Start + i, Caption: b.Caption}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) resolve(doc Doc) []xref.Resolution {
	var out []xref.Resolution
	for i, b := range doc.Blocks {
		if b.Type != doctree.Text {
			continue
		}
		usages := s.ex.Extract(doc.Start+i, b.Text, s.mode)
		if s.finished {
			out = append(out, s.resolver.Resolve(usages)...)
		} else {
			out = append(out, s.resolver.ResolveOrDefer(usages)...)
		}
	}
	return out
}

// replay rebuilds the session from the stored sections with id's content
// replaced by doc. Every element is registered before any reference is
// resolved, so only references to unknown targets stay pending.
func (s *Session) replay(id string, doc Doc) ([]xref.Resolution, error) {
	docs, arrival, finished := s.docs, s.arrival, s.finished
	docs[id] = doc
	s.reset(s.manifest)
	s.docs, s.arrival, s.finished = docs, arrival, finished

	for _, secID := range arrival {
		if err := s.register(docs[secID]); err != nil {
			return nil, err
		}
	}
	s.reg.UpdateDisplayNumbers(s.outline)

	var out []xref.Resolution
	for _, secID := range arrival {
		res := s.resolve(docs[secID])
		if secID == id {
			out = res
		}
	}
	return out, nil
}

func blockKind(b doctree.Block) (xref.Kind, error) {
	if b.Kind != "" {
		return xref.ParseKind(b.Kind)
	}
	if _, kind, ok := xref.NormalizeID(b.ID); ok {
		return kind, nil
	}
	return 0, fmt.Errorf("element %q has no kind", b.ID)
}

// Number returns the display number the session currently knows for id.
func (s *Session) Number(semanticID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.reg.Lookup(semanticID)
	if !ok {
		return "", false
	}
	return it.DisplayNumber, true
}

// Pending returns references still waiting for their target.
func (s *Session) Pending() []xref.Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver.Pending()
}

func (s *Session) Manifest() bundle.Manifest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manifest
}

func (s *Session) Warnings() []diag.Warning {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.warn.Warnings()
}

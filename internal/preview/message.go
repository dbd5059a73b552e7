// Package preview delivers numbered sections to live-preview clients over
// websockets and applies them on the receiving side, where sections may
// arrive in any order.
package preview

import (
	"encoding/json"
	"fmt"

	"github.com/dgallion1/docnum/internal/bundle"
	"github.com/dgallion1/docnum/internal/doctree"
	"github.com/dgallion1/docnum/internal/engine"
	"github.com/dgallion1/docnum/internal/export/htmlout"
)

// Kind tags a message.
type Kind string

const (
	KindManifest Kind = "manifest"
	KindSection  Kind = "ast_section"
	KindRefs     Kind = "refs"
	KindPing     Kind = "ping"
	KindPong     Kind = "pong"
)

// Plain-text liveness probes, answered outside the JSON protocol.
const (
	PingText = "__ping__"
	PongText = "__pong__"
)

// Message is one frame of the preview protocol.
type Message struct {
	Kind     Kind             `json:"kind"`
	Manifest *bundle.Manifest `json:"manifest,omitempty"`
	Section  *bundle.Section  `json:"section,omitempty"`
	Doc      *Doc             `json:"doc,omitempty"`
	// Refs maps semantic ids to display numbers.
	Refs map[string]string `json:"refs,omitempty"`
}

// Doc is the content of one section message.
type Doc struct {
	Start  int             `json:"start"`
	Blocks []doctree.Block `json:"blocks"`
	HTML   string          `json:"html,omitempty"`
}

// Messages turns a build into the manifest message, one message per
// bundle, then the reference table.
func Messages(docID string, res *engine.Result) ([]Message, error) {
	m := res.Manifest(docID)
	out := []Message{{Kind: KindManifest, Manifest: &m}}

	for _, b := range res.Bundles() {
		html, err := htmlout.RenderBundle(b, res)
		if err != nil {
			return nil, fmt.Errorf("render section %s: %w", b.Section.ID, err)
		}
		sec := b.Section
		out = append(out, Message{
			Kind:    KindSection,
			Section: &sec,
			Doc:     &Doc{Start: b.Start, Blocks: b.Blocks, HTML: html},
		})
	}

	refs := make(map[string]string, res.Registry.Len())
	for _, it := range res.Registry.Items() {
		refs[it.SemanticID] = it.DisplayNumber
	}
	out = append(out, Message{Kind: KindRefs, Refs: refs})
	return out, nil
}

func encode(msgs []Message) ([][]byte, error) {
	out := make([][]byte, 0, len(msgs))
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

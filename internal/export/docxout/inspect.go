package docxout

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/dgallion1/docnum/internal/xref"
)

// Bookmark is one bookmarkStart with the text it encloses.
type Bookmark struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// FieldRef is one REF field.
type FieldRef struct {
	Target      string `json:"target"`
	Instruction string `json:"instruction"`
	Result      string `json:"result"`
}

// Inspection is what a .docx says about its references.
type Inspection struct {
	Bookmarks []Bookmark `json:"bookmarks"`
	Refs      []FieldRef `json:"refs"`
	// Broken lists references whose target has no bookmark.
	Broken []FieldRef `json:"broken,omitempty"`
	// BadNames lists reference bookmarks outside the _Ref######### form.
	BadNames []string `json:"badNames,omitempty"`
}

func (in *Inspection) OK() bool {
	return len(in.Broken) == 0 && len(in.BadNames) == 0
}

// Bookmark returns the bookmark called name.
func (in *Inspection) Bookmark(name string) (Bookmark, bool) {
	for _, b := range in.Bookmarks {
		if b.Name == name {
			return b, true
		}
	}
	return Bookmark{}, false
}

var fieldQuery = xpath.MustCompile(`//*[local-name()='bookmarkStart' or local-name()='bookmarkEnd' or local-name()='fldChar' or local-name()='instrText' or local-name()='t']`)

// Inspect reads word/document.xml from the .docx in r.
func Inspect(r io.ReaderAt, size int64) (*Inspection, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	f, err := zr.Open("word/document.xml")
	if err != nil {
		return nil, fmt.Errorf("open document part: %w", err)
	}
	defer f.Close()

	root, err := xmlquery.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse document part: %w", err)
	}
	return inspectNodes(xmlquery.QuerySelectorAll(root, fieldQuery)), nil
}

const (
	outsideField = iota
	inInstruction
	inResult
)

// inspectNodes walks the matched nodes in document order.
func inspectNodes(nodes []*xmlquery.Node) *Inspection {
	in := &Inspection{Bookmarks: []Bookmark{}, Refs: []FieldRef{}}
	open := map[string]*strings.Builder{}
	index := map[string]int{}

	state := outsideField
	var instr, result strings.Builder

	for _, n := range nodes {
		switch n.Data {
		case "bookmarkStart":
			id := localAttr(n, "id")
			index[id] = len(in.Bookmarks)
			in.Bookmarks = append(in.Bookmarks, Bookmark{ID: id, Name: localAttr(n, "name")})
			open[id] = &strings.Builder{}
		case "bookmarkEnd":
			id := localAttr(n, "id")
			if sb, ok := open[id]; ok {
				in.Bookmarks[index[id]].Text = sb.String()
				delete(open, id)
			}
		case "fldChar":
			switch localAttr(n, "fldCharType") {
			case "begin":
				state = inInstruction
				instr.Reset()
				result.Reset()
			case "separate":
				state = inResult
			case "end":
				if ref, ok := parseRef(instr.String()); ok {
					ref.Result = result.String()
					in.Refs = append(in.Refs, ref)
				}
				state = outsideField
			}
		case "instrText":
			if state == inInstruction {
				instr.WriteString(n.InnerText())
			}
		case "t":
			text := n.InnerText()
			if state == inResult {
				result.WriteString(text)
			}
			for _, sb := range open {
				sb.WriteString(text)
			}
		}
	}

	names := make(map[string]bool, len(in.Bookmarks))
	for _, b := range in.Bookmarks {
		names[b.Name] = true
		if strings.HasPrefix(b.Name, xref.BookmarkPrefix) && !xref.IsBookmark(b.Name) {
			in.BadNames = append(in.BadNames, b.Name)
		}
	}
	for _, ref := range in.Refs {
		if !names[ref.Target] {
			in.Broken = append(in.Broken, ref)
		}
	}
	return in
}

// parseRef reads " REF _Ref123456789 \h " style instructions.
func parseRef(instruction string) (FieldRef, bool) {
	fields := strings.Fields(instruction)
	if len(fields) < 2 || !strings.EqualFold(fields[0], "REF") {
		return FieldRef{}, false
	}
	return FieldRef{Target: fields[1], Instruction: instruction}, true
}

func localAttr(n *xmlquery.Node, local string) string {
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

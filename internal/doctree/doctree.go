package doctree

// BlockType says what a Block holds.
type BlockType string

const (
	Heading        BlockType = "heading"
	Element        BlockType = "element" // numbered figure, table or equation
	Text           BlockType = "text"
	Code           BlockType = "code" // never scanned for references
	AppendixMarker BlockType = "appendix_marker"
)

// Document is the structural input of a build: the ordered block stream a
// source adapter produced. A block's index in Blocks is its document order.
type Document struct {
	Title  string  `json:"title"`
	Blocks []Block `json:"blocks"`
}

// Block is one unit of the stream.
type Block struct {
	Type  BlockType `json:"type"`
	Level int       `json:"level,omitempty"` // heading level, 1..6
	Text  string    `json:"text,omitempty"`  // heading title or raw block text
	ID    string    `json:"id,omitempty"`    // explicit heading id or element semantic id

	Appendix bool `json:"appendix,omitempty"`

	// Element fields
	Kind    string `json:"kind,omitempty"` // fig, tbl or eq
	Caption string `json:"caption,omitempty"`
	Number  string `json:"number,omitempty"` // number the source currently shows, if any

	Page int `json:"page,omitempty"` // source page (0 if N/A)
}

// AddHeading appends a heading block.
func (d *Document) AddHeading(level int, title, id string, appendix bool) {
	d.Blocks = append(d.Blocks, Block{Type: Heading, Level: level, Text: title, ID: id, Appendix: appendix})
}

// AddText appends a text block; empty text is dropped.
func (d *Document) AddText(text string, page int) {
	if text == "" {
		return
	}
	d.Blocks = append(d.Blocks, Block{Type: Text, Text: text, Page: page})
}

// AddElement appends a numbered element.
func (d *Document) AddElement(kind, id, caption, number string) {
	d.Blocks = append(d.Blocks, Block{Type: Element, Kind: kind, ID: id, Caption: caption, Number: number})
}

func (d *Document) AddCode(text string) {
	d.Blocks = append(d.Blocks, Block{Type: Code, Text: text})
}

func (d *Document) AddAppendixMarker() {
	d.Blocks = append(d.Blocks, Block{Type: AppendixMarker})
}

// Count returns how many blocks have type t.
func (d *Document) Count(t BlockType) int {
	n := 0
	for _, b := range d.Blocks {
		if b.Type == t {
			n++
		}
	}
	return n
}

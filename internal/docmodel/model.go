// Package docmodel defines the format-agnostic document model shared by all
// renderers, and builds it from markdown.
//
// A Document is an ordered sequence of blocks. Blocks never hold file paths
// or image bytes: images reference entries of the per-request asset table by
// id. Renderers walk Blocks in order and never reorder them.
package docmodel

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for model validation.
var (
	ErrDanglingAsset  = errors.New("image references unknown asset")
	ErrUnboundDiagram = errors.New("diagram placeholder was never bound")
)

// Heading levels supported by every target format.
const (
	MinHeadingLevel = 1
	MaxHeadingLevel = 6
)

// Style is a set of inline style flags.
type Style uint8

// Inline styles. Emphasis and Strong may be combined.
const (
	Plain    Style = 0
	Emphasis Style = 1 << iota
	Strong
	Code
	Link
)

// Has reports whether all flags of f are set.
func (s Style) Has(f Style) bool { return s&f == f && f != 0 }

// Span is a run of text sharing one style.
type Span struct {
	Text  string
	Style Style
	Href  string // set when Style has Link
}

// PlainText concatenates the text of runs.
func PlainText(runs []Span) string {
	var sb strings.Builder
	for _, r := range runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Block is one structural unit of a Document.
type Block interface {
	block()
}

// Heading is a section title.
type Heading struct {
	Level int
	Runs  []Span
	Quote int
}

// Paragraph is a run of inline content.
type Paragraph struct {
	Runs  []Span
	Quote int
}

// List is a flattened, possibly nested list. Items carry their own depth
// and marker type so nested lists of a different kind survive flattening.
type List struct {
	Ordered bool
	Start   int
	Items   []ListItem
	Quote   int
}

// ListItem is one entry of a List.
type ListItem struct {
	Runs    []Span
	Depth   int
	Ordered bool
}

// Alignment of a table column.
type Alignment uint8

// Column alignments.
const (
	AlignNone Alignment = iota
	AlignLeft
	AlignCenter
	AlignRight
)

// Cell is a table cell.
type Cell struct {
	Runs []Span
}

// Table always has a header row.
type Table struct {
	Header []Cell
	Rows   [][]Cell
	Align  []Alignment
	Quote  int
}

// Columns returns the widest row length.
func (t *Table) Columns() int {
	n := len(t.Header)
	for _, r := range t.Rows {
		n = max(n, len(r))
	}
	return n
}

// CodeBlock holds raw code, never re-processed as markdown.
type CodeBlock struct {
	Language string
	Text     string
	Quote    int
}

// Image references an asset table entry.
type Image struct {
	AssetID string
	Alt     string
	Quote   int
}

// PlaceholderKind classifies a Placeholder.
type PlaceholderKind uint8

// Placeholder kinds.
const (
	ImageNotFound PlaceholderKind = iota
	DiagramUnavailable
	ExternalImage
)

// Placeholder is an explicit marker rendered in place of content that could
// not be resolved.
type Placeholder struct {
	Kind    PlaceholderKind
	Message string
	Quote   int
}

// DiagramRef marks the Seq-th diagram of the document before diagram
// descriptors are bound. It never reaches a renderer.
type DiagramRef struct {
	Seq    int
	Source string
	Quote  int
}

// QuoteOf returns the blockquote group of b: 0 outside any blockquote,
// otherwise the 1-based number of the top-level blockquote holding it.
// Nested blockquotes share their outermost group. Adjacent blocks with the
// same group render as one quotation.
func QuoteOf(b Block) int {
	switch v := b.(type) {
	case *Heading:
		return v.Quote
	case *Paragraph:
		return v.Quote
	case *List:
		return v.Quote
	case *Table:
		return v.Quote
	case *CodeBlock:
		return v.Quote
	case *Image:
		return v.Quote
	case *Placeholder:
		return v.Quote
	case *DiagramRef:
		return v.Quote
	}
	return 0
}

// Rule is a thematic break.
type Rule struct{}

func (*Heading) block()     {}
func (*Paragraph) block()   {}
func (*List) block()        {}
func (*Table) block()       {}
func (*CodeBlock) block()   {}
func (*Image) block()       {}
func (*Placeholder) block() {}
func (*DiagramRef) block()  {}
func (*Rule) block()        {}

// Document is the ordered block sequence of one markdown file.
type Document struct {
	Blocks []Block
	// Name is an explicit title, such as a front matter title. It wins
	// over the first heading.
	Name string
}

// Title returns Name, else the plain text of the first level-1 heading,
// else "".
func (d *Document) Title() string {
	if name := strings.TrimSpace(d.Name); name != "" {
		return name
	}
	for _, b := range d.Blocks {
		if h, ok := b.(*Heading); ok && h.Level == 1 {
			return strings.TrimSpace(PlainText(h.Runs))
		}
	}
	return ""
}

// Images returns the image blocks in document order.
func (d *Document) Images() []*Image {
	var out []*Image
	for _, b := range d.Blocks {
		if img, ok := b.(*Image); ok {
			out = append(out, img)
		}
	}
	return out
}

// Validate checks that every image references a known asset and that no
// diagram placeholder is left unbound.
func (d *Document) Validate(hasAsset func(id string) bool) error {
	for i, b := range d.Blocks {
		switch v := b.(type) {
		case *Image:
			if v.AssetID == "" || !hasAsset(v.AssetID) {
				return fmt.Errorf("%w: block %d references %q", ErrDanglingAsset, i, v.AssetID)
			}
		case *DiagramRef:
			return fmt.Errorf("%w: diagram %d at block %d", ErrUnboundDiagram, v.Seq, i)
		}
	}
	return nil
}

package docmodel

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// DiagramLanguage is the fenced code info string that marks a diagram
// placeholder.
const DiagramLanguage = "mermaid"

// Resolution is the outcome of looking up an image reference.
// An empty AssetID means the reference could not be resolved; Kind and
// Message describe the placeholder to render instead.
type Resolution struct {
	AssetID string
	Kind    PlaceholderKind
	Message string
}

// Lookup resolves image references (markdown destinations) to asset ids.
type Lookup interface {
	Lookup(ref string) Resolution
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ref string) Resolution

// Lookup implements Lookup.
func (f LookupFunc) Lookup(ref string) Resolution { return f(ref) }

// parser is shared: goldmark parsers are safe for concurrent use.
var parser = goldmark.New(
	goldmark.WithExtensions(
		extension.Table,
		extension.Strikethrough,
		extension.Linkify,
		extension.TaskList,
	),
).Parser()

// Source is a parsed markdown document, ready to be built into a Document
// once its image references have been resolved.
type Source struct {
	src  []byte
	root ast.Node
}

// Parse parses markdown text.
func Parse(markdown string) *Source {
	src := []byte(markdown)
	return &Source{src: src, root: parser.Parse(text.NewReader(src))}
}

// ImageRefs returns the destinations of every image in document order,
// without duplicates.
func (s *Source) ImageRefs() []string {
	var refs []string
	seen := make(map[string]bool)
	_ = ast.Walk(s.root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if img, ok := n.(*ast.Image); ok {
			dest := string(img.Destination)
			if !seen[dest] {
				seen[dest] = true
				refs = append(refs, dest)
			}
		}
		return ast.WalkContinue, nil
	})
	return refs
}

// DiagramCount returns the number of diagram placeholders, nested ones
// included. Build numbers exactly these.
func (s *Source) DiagramCount() int {
	n := 0
	_ = ast.Walk(s.root, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && isDiagramFence(node, s.src) {
			n++
		}
		return ast.WalkContinue, nil
	})
	return n
}

// Build converts the parsed markdown to a Document. Images resolve through
// lookup; unresolved ones become Placeholder blocks. Diagram fences become
// DiagramRef blocks numbered in document order.
//
// Images and diagrams nested in a list, table or heading cannot be blocks
// of their own there: they follow the enclosing block, in order, and
// images leave their alt text in place.
func (s *Source) Build(lookup Lookup) *Document {
	b := &builder{src: s.src, lookup: lookup}
	for n := s.root.FirstChild(); n != nil; n = n.NextSibling() {
		b.block(n)
	}
	b.flushDeferred()
	return &Document{Blocks: b.blocks}
}

// Build parses and builds markdown in one step.
func Build(markdown string, lookup Lookup) *Document {
	return Parse(markdown).Build(lookup)
}

type builder struct {
	src      []byte
	lookup   Lookup
	blocks   []Block
	deferred []Block // nested images and diagrams awaiting their container
	diagrams int
	quote    int // group of the blockquote being built, 0 outside
	quotes   int
}

// emit appends blk, then whatever was deferred while building it.
func (b *builder) emit(blk Block) {
	b.blocks = append(b.blocks, blk)
	b.flushDeferred()
}

func (b *builder) flushDeferred() {
	b.blocks = append(b.blocks, b.deferred...)
	b.deferred = nil
}

// diagram numbers fc in document order.
func (b *builder) diagram(fc *ast.FencedCodeBlock) *DiagramRef {
	ref := &DiagramRef{Seq: b.diagrams, Source: b.lines(fc), Quote: b.quote}
	b.diagrams++
	return ref
}

func (b *builder) block(n ast.Node) {
	switch v := n.(type) {
	case *ast.Heading:
		b.emit(&Heading{Level: clampLevel(v.Level), Runs: trimRuns(b.inline(v)), Quote: b.quote})
	case *ast.Paragraph, *ast.TextBlock:
		b.paragraph(n)
	case *ast.List:
		list := &List{Ordered: v.IsOrdered(), Start: v.Start, Quote: b.quote}
		b.listItems(v, 0, list)
		if len(list.Items) > 0 {
			b.emit(list)
		} else {
			b.flushDeferred()
		}
	case *ast.FencedCodeBlock:
		if isDiagramFence(v, b.src) {
			b.emit(b.diagram(v))
			return
		}
		b.emit(&CodeBlock{Language: fenceLanguage(v, b.src), Text: b.lines(v), Quote: b.quote})
	case *ast.CodeBlock:
		b.emit(&CodeBlock{Text: b.lines(v), Quote: b.quote})
	case *ast.Blockquote:
		outer := b.quote
		if outer == 0 {
			b.quotes++
			b.quote = b.quotes
		}
		for c := v.FirstChild(); c != nil; c = c.NextSibling() {
			b.block(c)
		}
		b.quote = outer
	case *ast.ThematicBreak:
		b.emit(&Rule{})
	case *extast.Table:
		b.table(v)
	case *ast.HTMLBlock:
		raw := strings.TrimSpace(b.lines(v))
		if raw == "" || v.HTMLBlockType == ast.HTMLBlockType2 {
			return // comments carry no visible content
		}
		b.emit(&Paragraph{Runs: []Span{{Text: raw}}, Quote: b.quote})
	default:
		if n.Type() == ast.TypeBlock && n.HasChildren() {
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				b.block(c)
			}
		}
	}
}

// paragraph splits a paragraph around block-level images.
func (b *builder) paragraph(n ast.Node) {
	var runs []Span
	flush := func() {
		if trimmed := trimRuns(runs); len(trimmed) > 0 {
			b.emit(&Paragraph{Runs: trimmed, Quote: b.quote})
		} else {
			b.flushDeferred()
		}
		runs = nil
	}

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		img, ok := c.(*ast.Image)
		if !ok {
			b.collect(c, Plain, "", &runs)
			continue
		}
		flush()
		b.emit(b.image(img))
	}
	flush()
}

// image resolves img to an Image block or a Placeholder.
func (b *builder) image(img *ast.Image) Block {
	dest := string(img.Destination)
	alt := b.text(img)

	res := Resolution{Message: "image not found: " + dest}
	if b.lookup != nil {
		res = b.lookup.Lookup(dest)
	}
	if res.AssetID == "" {
		msg := res.Message
		if msg == "" {
			msg = "image not found: " + dest
		}
		return &Placeholder{Kind: res.Kind, Message: msg, Quote: b.quote}
	}
	return &Image{AssetID: res.AssetID, Alt: alt, Quote: b.quote}
}

func (b *builder) listItems(list *ast.List, depth int, out *List) {
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		li, ok := item.(*ast.ListItem)
		if !ok {
			continue
		}
		// The entry precedes its nested items but is filled while walking
		// the children in source order, so deferred blocks keep that order.
		idx := len(out.Items)
		out.Items = append(out.Items, ListItem{})
		entry := ListItem{Depth: depth, Ordered: list.IsOrdered()}
		for c := li.FirstChild(); c != nil; c = c.NextSibling() {
			if nl, ok := c.(*ast.List); ok {
				b.listItems(nl, depth+1, out)
				continue
			}
			appendSep(&entry.Runs)
			b.collect(c, Plain, "", &entry.Runs)
		}
		entry.Runs = trimRuns(entry.Runs)
		out.Items[idx] = entry
	}
}

func (b *builder) table(t *extast.Table) {
	tbl := &Table{Quote: b.quote}
	for _, a := range t.Alignments {
		tbl.Align = append(tbl.Align, convertAlignment(a))
	}
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		cells := b.cells(row)
		switch row.(type) {
		case *extast.TableHeader:
			tbl.Header = cells
		case *extast.TableRow:
			tbl.Rows = append(tbl.Rows, cells)
		}
	}
	if len(tbl.Header) == 0 {
		// Tables require a header row; degrade to text.
		for _, r := range tbl.Rows {
			var runs []Span
			for i, c := range r {
				if i > 0 {
					runs = append(runs, Span{Text: " | "})
				}
				runs = append(runs, c.Runs...)
			}
			b.emit(&Paragraph{Runs: runs, Quote: b.quote})
		}
		return
	}
	b.emit(tbl)
}

func (b *builder) cells(row ast.Node) []Cell {
	var cells []Cell
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*extast.TableCell); !ok {
			continue
		}
		cells = append(cells, Cell{Runs: trimRuns(b.inline(c))})
	}
	return cells
}

// lines joins the raw lines of a block verbatim.
func (b *builder) lines(n ast.Node) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(b.src))
	}
	return sb.String()
}

func isDiagramFence(n ast.Node, src []byte) bool {
	fc, ok := n.(*ast.FencedCodeBlock)
	return ok && strings.EqualFold(fenceLanguage(fc, src), DiagramLanguage)
}

func fenceLanguage(fc *ast.FencedCodeBlock, src []byte) string {
	return strings.TrimSpace(string(fc.Language(src)))
}

func clampLevel(level int) int {
	return min(max(level, MinHeadingLevel), MaxHeadingLevel)
}

func convertAlignment(a extast.Alignment) Alignment {
	switch a {
	case extast.AlignLeft:
		return AlignLeft
	case extast.AlignCenter:
		return AlignCenter
	case extast.AlignRight:
		return AlignRight
	default:
		return AlignNone
	}
}

func appendSep(runs *[]Span) {
	if len(*runs) > 0 {
		*runs = append(*runs, Span{Text: " "})
	}
}

package docx

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alnah/go-mdexport/internal/docmodel"
	"github.com/alnah/go-mdexport/internal/media"
	"github.com/alnah/go-mdexport/internal/sizing"
)

// ErrPackage indicates the package could not be serialized.
var ErrPackage = errors.New("docx package could not be written")

// MarginInches is the page margin on every side.
const MarginInches = 0.5

// Default page size, US Letter portrait.
const (
	DefaultPageWidth  = 8.5
	DefaultPageHeight = 11.0
)

const pictureURI = "http://schemas.openxmlformats.org/drawingml/2006/picture"

// Options configures a Writer. Page dimensions are in inches and already
// account for orientation.
type Options struct {
	PageWidth  float64
	PageHeight float64
}

// Output is a finished package plus per-block degradation notes.
type Output struct {
	Data     []byte
	Warnings []string
}

// Writer converts documents to DOCX. It holds no per-document state and is
// safe for concurrent use.
type Writer struct {
	opts Options
}

// NewWriter creates a Writer. Zero page dimensions select US Letter.
func NewWriter(opts Options) *Writer {
	if opts.PageWidth <= 0 || opts.PageHeight <= 0 {
		opts.PageWidth, opts.PageHeight = DefaultPageWidth, DefaultPageHeight
	}
	return &Writer{opts: opts}
}

// Write renders doc with images from table.
func (w *Writer) Write(ctx context.Context, doc *docmodel.Document, table *media.Table) (*Output, error) {
	b := &builder{
		box:      sizing.ContentBox(w.opts.PageWidth, w.opts.PageHeight, MarginInches),
		table:    table,
		rels:     newRelations(),
		num:      &numbering{},
		imageRel: make(map[string]imageRef),
	}
	b.contentTwips = sizing.InchesToTwips(w.opts.PageWidth - 2*MarginInches)

	var els []bodyElement
	for _, block := range doc.Blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		els = append(els, b.block(block)...)
	}
	els = runPasses(els, bodyPasses)
	if len(els) == 0 {
		els = append(els, &paragraphXML{})
	}

	body := bodyXML{Elements: els, SectPr: w.section()}
	parts, err := b.parts(doc.Title(), body)
	if err != nil {
		return nil, err
	}
	data, err := writeZip(parts)
	if err != nil {
		return nil, err
	}
	return &Output{Data: data, Warnings: b.warnings}, nil
}

func (w *Writer) section() sectPrXML {
	s := sectPrXML{
		PageSize: pageSizeXML{
			W: sizing.InchesToTwips(w.opts.PageWidth),
			H: sizing.InchesToTwips(w.opts.PageHeight),
		},
	}
	if w.opts.PageWidth > w.opts.PageHeight {
		s.PageSize.Orient = "landscape"
	}
	m := sizing.InchesToTwips(MarginInches)
	s.PageMargin = pageMarginXML{Top: m, Right: m, Bottom: m, Left: m, Header: m / 2, Footer: m / 2}
	return s
}

type imageRef struct {
	relID  string
	width  int
	height int
}

// builder holds the state of one Write call.
type builder struct {
	box          sizing.Box
	contentTwips int
	table        *media.Table
	rels         *relations
	num          *numbering
	images       []part
	imageRel     map[string]imageRef
	drawingID    int
	warnings     []string
}

func (b *builder) parts(title string, body bodyXML) ([]part, error) {
	docPart, err := marshalPart("word/document.xml", newDocumentXML(body))
	if err != nil {
		return nil, err
	}
	relsPart, err := marshalPart("word/_rels/document.xml.rels", &relationshipsXML{Rels: b.rels.rels})
	if err != nil {
		return nil, err
	}
	ctPart, err := marshalPart("[Content_Types].xml", contentTypes(b.images))
	if err != nil {
		return nil, err
	}
	rootRels, err := marshalPart("_rels/.rels", packageRels())
	if err != nil {
		return nil, err
	}

	parts := []part{
		ctPart,
		rootRels,
		{name: "docProps/core.xml", data: coreProps(title)},
		docPart,
		relsPart,
		{name: "word/styles.xml", data: stylesXML},
		{name: "word/numbering.xml", data: b.num.xml()},
	}
	return append(parts, b.images...), nil
}

// quoteIndentTwips matches the left indent of the Quote style.
const quoteIndentTwips = 567

func (b *builder) block(block docmodel.Block) []bodyElement {
	out := b.elements(block)
	switch block.(type) {
	case *docmodel.Paragraph, *docmodel.List, *docmodel.Table:
	default:
		if docmodel.QuoteOf(block) > 0 {
			indentQuoted(out)
		}
	}
	return out
}

// indentQuoted shifts paragraphs of a quoted block to the quote margin.
func indentQuoted(elems []bodyElement) {
	for _, e := range elems {
		p, ok := e.(*paragraphXML)
		if !ok {
			continue
		}
		if p.Properties == nil {
			p.Properties = &paragraphPropsXML{}
		}
		p.Properties.Ind = &indentXML{Left: quoteIndentTwips}
	}
}

// elements converts one block. Quoted paragraphs take the Quote style and
// quoted lists indent each level past the quote margin.
func (b *builder) elements(block docmodel.Block) []bodyElement {
	switch v := block.(type) {
	case *docmodel.Heading:
		level := min(max(v.Level, docmodel.MinHeadingLevel), docmodel.MaxHeadingLevel)
		return []bodyElement{b.paragraph(fmt.Sprintf("Heading%d", level), v.Runs)}
	case *docmodel.Paragraph:
		style := ""
		if v.Quote > 0 {
			style = "Quote"
		}
		return []bodyElement{b.paragraph(style, v.Runs)}
	case *docmodel.List:
		return b.list(v)
	case *docmodel.Table:
		return []bodyElement{b.tableBlock(v)}
	case *docmodel.CodeBlock:
		return []bodyElement{b.code(v)}
	case *docmodel.Image:
		return []bodyElement{b.image(v)}
	case *docmodel.Placeholder:
		return []bodyElement{placeholder(v.Message)}
	case *docmodel.DiagramRef:
		return []bodyElement{placeholder(fmt.Sprintf("Diagram %d unavailable", v.Seq+1))}
	case *docmodel.Rule:
		return []bodyElement{&paragraphXML{Properties: &paragraphPropsXML{
			Border: &paraBorderXML{Bottom: borderXML{Val: "single", Size: 6, Space: 1, Color: "BFBFBF"}},
		}}}
	}
	return nil
}

func (b *builder) paragraph(style string, runs []docmodel.Span) *paragraphXML {
	p := &paragraphXML{Content: b.inline(runs, false)}
	if style != "" {
		p.Properties = &paragraphPropsXML{Style: val(style)}
	}
	return p
}

func placeholder(msg string) *paragraphXML {
	return &paragraphXML{
		Properties: &paragraphPropsXML{Style: val("Placeholder")},
		Content:    []any{textRun(msg, nil)},
	}
}

func (b *builder) list(l *docmodel.List) []bodyElement {
	orderedID := 0
	if l.Ordered {
		orderedID = b.num.ordered(l.Start)
	}
	out := make([]bodyElement, 0, len(l.Items))
	for _, item := range l.Items {
		numID := bulletNumID
		if item.Ordered {
			if orderedID == 0 {
				orderedID = b.num.ordered(1)
			}
			numID = orderedID
		}
		lvl := min(item.Depth, maxListLevel)
		p := b.paragraph("ListParagraph", item.Runs)
		p.Properties.NumPr = &numPropsXML{
			ILvl:  valXML{Val: fmt.Sprint(lvl)},
			NumID: valXML{Val: fmt.Sprint(numID)},
		}
		if l.Quote > 0 {
			p.Properties.Ind = &indentXML{Left: listIndentTwips*(lvl+1) + quoteIndentTwips, Hanging: listHangingTwips}
		}
		out = append(out, p)
	}
	return out
}

func (b *builder) tableBlock(t *docmodel.Table) *tableXML {
	cols := max(t.Columns(), 1)
	colWidth := b.contentTwips / cols

	tbl := &tableXML{Properties: tablePropsXML{Width: widthXML{W: 5000, Type: "pct"}}}
	for range cols {
		tbl.Grid.Cols = append(tbl.Grid.Cols, widthOnlyXML{W: colWidth})
	}

	row := func(cells []docmodel.Cell, header bool) tableRowXML {
		r := tableRowXML{}
		if header {
			r.Properties = &rowPropsXML{Header: &flagXML{}}
		}
		for i := range cols {
			var runs []docmodel.Span
			if i < len(cells) {
				runs = cells[i].Runs
			}
			p := &paragraphXML{Content: b.inline(runs, header)}
			if jc := alignment(t.Align, i); jc != "" {
				p.Properties = &paragraphPropsXML{Jc: val(jc)}
			}
			cell := tableCellXML{
				Properties: cellPropsXML{Width: widthXML{W: colWidth, Type: "dxa"}},
				Paragraphs: []*paragraphXML{p},
			}
			if header {
				cell.Properties.Shading = &shdXML{Val: "clear", Color: "auto", Fill: "DBE5F1"}
			}
			r.Cells = append(r.Cells, cell)
		}
		return r
	}

	tbl.Rows = append(tbl.Rows, row(t.Header, true))
	for _, cells := range t.Rows {
		tbl.Rows = append(tbl.Rows, row(cells, false))
	}
	return tbl
}

func alignment(align []docmodel.Alignment, col int) string {
	if col >= len(align) {
		return ""
	}
	switch align[col] {
	case docmodel.AlignLeft:
		return "left"
	case docmodel.AlignCenter:
		return "center"
	case docmodel.AlignRight:
		return "right"
	}
	return ""
}

// code renders a code block as one paragraph with line breaks.
func (b *builder) code(c *docmodel.CodeBlock) *paragraphXML {
	r := &runXML{}
	for i, line := range strings.Split(strings.TrimSuffix(c.Text, "\n"), "\n") {
		if i > 0 {
			r.Content = append(r.Content, &breakXML{})
		}
		r.Content = append(r.Content, &textXML{Space: "preserve", Value: line})
	}
	return &paragraphXML{
		Properties: &paragraphPropsXML{Style: val("SourceCode")},
		Content:    []any{r},
	}
}

// image embeds an asset, or degrades to a placeholder paragraph.
func (b *builder) image(img *docmodel.Image) *paragraphXML {
	ref, err := b.embed(img.AssetID)
	if err != nil {
		b.warnings = append(b.warnings, fmt.Sprintf("image %s not embedded: %v", img.AssetID, err))
		msg := "image unavailable"
		if img.Alt != "" {
			msg += ": " + img.Alt
		}
		return placeholder(msg)
	}

	b.drawingID++
	cx, cy := sizing.PixelsToEMU(ref.width), sizing.PixelsToEMU(ref.height)
	pr := docPrXML{ID: b.drawingID, Name: fmt.Sprintf("Picture %d", b.drawingID), Descr: img.Alt}
	d := &drawingXML{Inline: inlineXML{
		Extent: extentXML{Cx: cx, Cy: cy},
		DocPr:  pr,
		Graphic: graphicXML{Data: graphicDataXML{
			URI: pictureURI,
			Pic: picXML{
				NvPicPr:  nvPicPrXML{CNvPr: docPrXML{ID: b.drawingID, Name: pr.Name}},
				BlipFill: blipFillXML{Blip: blipXML{Embed: ref.relID}},
				SpPr: spPrXML{
					Xfrm: xfrmXML{Ext: extentXML{Cx: cx, Cy: cy}},
					Geom: prstGeomXML{Prst: "rect"},
				},
			},
		}},
	}}
	return &paragraphXML{
		Properties: &paragraphPropsXML{Style: val("Figure")},
		Content:    []any{&runXML{Content: []any{d}}},
	}
}

// embed adds the image part for id once and returns its relationship and
// fitted size.
func (b *builder) embed(id string) (imageRef, error) {
	if ref, ok := b.imageRel[id]; ok {
		return ref, nil
	}
	if b.table == nil {
		return imageRef{}, media.ErrNoImageData
	}
	asset, ok := b.table.Get(id)
	if !ok {
		return imageRef{}, media.ErrNoImageData
	}
	enc, err := asset.Select(media.PreferRaster)
	if err != nil {
		return imageRef{}, err
	}
	enc, err = media.Transcode(enc, wordImageTypes...)
	if err != nil {
		return imageRef{}, err
	}
	if err := media.Verify(enc); err != nil {
		return imageRef{}, err
	}

	width, height := asset.Width, asset.Height
	if width <= 0 || height <= 0 {
		if width, height, err = media.Dimensions(enc.Data, enc.MIME); err != nil {
			return imageRef{}, err
		}
	}
	width, height, _ = sizing.Fit(width, height, b.box)

	name := fmt.Sprintf("media/image%d.%s", len(b.images)+1, imageExtension[enc.MIME])
	b.images = append(b.images, part{name: "word/" + name, data: enc.Data})
	ref := imageRef{relID: b.rels.add(relImage, name, ""), width: width, height: height}
	b.imageRel[id] = ref
	return ref, nil
}

// inline converts spans to runs and hyperlinks. bold forces strong text,
// as in header cells.
func (b *builder) inline(spans []docmodel.Span, bold bool) []any {
	var out []any
	for _, s := range spans {
		props := &runPropsXML{}
		if bold || s.Style.Has(docmodel.Strong) {
			props.Bold = &flagXML{}
		}
		if s.Style.Has(docmodel.Emphasis) {
			props.Italic = &flagXML{}
		}
		if s.Style.Has(docmodel.Code) {
			props.Style = val("VerbatimChar")
		}

		target, external := linkTarget(s)
		if s.Style.Has(docmodel.Link) && props.Style == nil {
			props.Style = val("Hyperlink")
		}
		if *props == (runPropsXML{}) {
			props = nil
		}
		r := textRun(s.Text, props)
		if external {
			out = append(out, &hyperlinkXML{ID: b.rels.hyperlink(target), Runs: []*runXML{r}})
			continue
		}
		out = append(out, r)
	}
	return out
}

// linkTarget returns the external URL of a link span. Only web and mail
// links become hyperlinks; anything else stays styled text.
func linkTarget(s docmodel.Span) (string, bool) {
	if !s.Style.Has(docmodel.Link) {
		return "", false
	}
	href := strings.TrimSpace(s.Href)
	lower := strings.ToLower(href)
	for _, scheme := range []string{"http://", "https://", "mailto:"} {
		if strings.HasPrefix(lower, scheme) {
			return href, true
		}
	}
	return "", false
}

// textRun builds a run, turning newlines into breaks.
func textRun(text string, props *runPropsXML) *runXML {
	r := &runXML{Properties: props}
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			r.Content = append(r.Content, &breakXML{})
		}
		if line != "" {
			r.Content = append(r.Content, &textXML{Space: "preserve", Value: line})
		}
	}
	return r
}

package pipeline

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode"

	"github.com/alnah/go-mdexport/internal/docmodel"
	"github.com/alnah/go-mdexport/internal/media"
	"github.com/alnah/go-mdexport/internal/sizing"
)

// Profile selects the stylesheet and layout rules of a rendered document.
type Profile string

// Rendering profiles.
const (
	ProfileStandard Profile = "standard"
	ProfilePrint    Profile = "print"
)

// RenderOptions configures BodyRenderer.
type RenderOptions struct {
	Profile Profile

	// Prefer selects vector or raster representations of assets.
	Prefer media.Preference

	// Box bounds image sizes. A fluid box keeps natural sizes.
	Box sizing.Box

	// Highlighter renders fenced code with a known language. Nil renders
	// plain preformatted text.
	Highlighter *Highlighter

	// Text escapes a run of text to HTML. Nil means html.EscapeString.
	Text func(string) string
}

// Body is a rendered document body.
type Body struct {
	HTML     string
	Title    string
	Warnings []string
}

// BodyRenderer renders a document model to an HTML fragment. Blocks are
// emitted in model order.
type BodyRenderer struct {
	opts RenderOptions
}

// NewBodyRenderer creates a BodyRenderer.
func NewBodyRenderer(opts RenderOptions) *BodyRenderer {
	if opts.Profile == "" {
		opts.Profile = ProfileStandard
	}
	if opts.Text == nil {
		opts.Text = html.EscapeString
	}
	return &BodyRenderer{opts: opts}
}

// Render renders doc. Images are looked up in table; an image that cannot
// be embedded is replaced by a placeholder and reported as a warning.
func (r *BodyRenderer) Render(ctx context.Context, doc *docmodel.Document, table *media.Table) (*Body, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := &bodyWriter{opts: r.opts, table: table, slugs: make(map[string]int)}
	for i := 0; i < len(doc.Blocks); i++ {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if docmodel.QuoteOf(doc.Blocks[i]) > 0 {
			i = w.blockquote(doc.Blocks, i)
			continue
		}
		w.block(doc.Blocks[i])
	}
	return &Body{HTML: w.sb.String(), Title: doc.Title(), Warnings: w.warnings}, nil
}

type bodyWriter struct {
	opts     RenderOptions
	table    *media.Table
	sb       strings.Builder
	slugs    map[string]int
	warnings []string
}

func (w *bodyWriter) block(b docmodel.Block) {
	switch v := b.(type) {
	case *docmodel.Heading:
		w.heading(v)
	case *docmodel.Paragraph:
		w.sb.WriteString("<p>")
		w.runs(v.Runs)
		w.sb.WriteString("</p>\n")
	case *docmodel.List:
		w.list(v)
	case *docmodel.Table:
		w.tableBlock(v)
	case *docmodel.CodeBlock:
		w.code(v)
	case *docmodel.Image:
		w.image(v)
	case *docmodel.Placeholder:
		w.placeholder(v.Kind, v.Message)
	case *docmodel.Rule:
		w.sb.WriteString("<hr>\n")
	case *docmodel.DiagramRef:
		w.placeholder(docmodel.DiagramUnavailable, fmt.Sprintf("Diagram %d unavailable", v.Seq+1))
	}
}

// blockquote writes the blocks of the quote group starting at i and
// returns the index of the last one.
func (w *bodyWriter) blockquote(blocks []docmodel.Block, i int) int {
	group := docmodel.QuoteOf(blocks[i])
	w.sb.WriteString("<blockquote>\n")
	for ; i < len(blocks) && docmodel.QuoteOf(blocks[i]) == group; i++ {
		w.block(blocks[i])
	}
	w.sb.WriteString("</blockquote>\n")
	return i - 1
}

func (w *bodyWriter) heading(h *docmodel.Heading) {
	level := min(max(h.Level, docmodel.MinHeadingLevel), docmodel.MaxHeadingLevel)
	slug := w.slug(docmodel.PlainText(h.Runs))
	fmt.Fprintf(&w.sb, `<h%d id="%s">`, level, html.EscapeString(slug))
	w.runs(h.Runs)
	fmt.Fprintf(&w.sb, "</h%d>\n", level)
}

// slug returns a unique anchor id for heading text.
func (w *bodyWriter) slug(text string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			dash = false
		case !dash && sb.Len() > 0:
			sb.WriteByte('-')
			dash = true
		}
	}
	base := strings.TrimSuffix(sb.String(), "-")
	if base == "" {
		base = "section"
	}
	n := w.slugs[base]
	w.slugs[base] = n + 1
	if n == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

func (w *bodyWriter) runs(runs []docmodel.Span) {
	for _, r := range runs {
		text := strings.ReplaceAll(w.opts.Text(r.Text), "\n", "<br>")
		if r.Style.Has(docmodel.Code) {
			text = "<code>" + text + "</code>"
		}
		if r.Style.Has(docmodel.Emphasis) {
			text = "<em>" + text + "</em>"
		}
		if r.Style.Has(docmodel.Strong) {
			text = "<strong>" + text + "</strong>"
		}
		if r.Style.Has(docmodel.Link) && safeHref(r.Href) {
			text = `<a href="` + html.EscapeString(r.Href) + `">` + text + "</a>"
		}
		w.sb.WriteString(text)
	}
}

// safeHref rejects script-bearing link targets.
func safeHref(href string) bool {
	scheme, _, found := strings.Cut(strings.ToLower(strings.TrimSpace(href)), ":")
	if !found || strings.ContainsAny(scheme, "/?#") {
		return href != ""
	}
	switch scheme {
	case "http", "https", "mailto", "tel", "ftp":
		return true
	}
	return false
}

func listTag(ordered bool) string {
	if ordered {
		return "ol"
	}
	return "ul"
}

// list rebuilds nesting from item depths. A nested list opens inside the
// preceding item.
func (w *bodyWriter) list(l *docmodel.List) {
	var stack []string
	open := func(tag string, start int) {
		if tag == "ol" && start != 1 {
			fmt.Fprintf(&w.sb, `<ol start="%d">`, start)
		} else {
			w.sb.WriteString("<" + tag + ">")
		}
		stack = append(stack, tag)
	}
	closeTop := func() {
		w.sb.WriteString("</li></" + stack[len(stack)-1] + ">")
		stack = stack[:len(stack)-1]
	}

	for _, it := range l.Items {
		tag := listTag(it.Ordered)
		depth := max(it.Depth, 0)
		switch {
		case len(stack) == 0:
			start := 1
			if it.Ordered && l.Ordered {
				start = l.Start
			}
			open(tag, start)
		case depth+1 > len(stack):
			for len(stack) < depth+1 {
				open(tag, 1)
			}
		default:
			for len(stack) > depth+1 {
				closeTop()
			}
			if stack[len(stack)-1] != tag {
				closeTop()
				open(tag, 1)
			} else {
				w.sb.WriteString("</li>")
			}
		}
		w.sb.WriteString("<li>")
		w.runs(it.Runs)
	}
	for len(stack) > 0 {
		closeTop()
	}
	w.sb.WriteString("\n")
}

func alignStyle(a docmodel.Alignment) string {
	switch a {
	case docmodel.AlignLeft:
		return ` style="text-align:left"`
	case docmodel.AlignCenter:
		return ` style="text-align:center"`
	case docmodel.AlignRight:
		return ` style="text-align:right"`
	}
	return ""
}

func (w *bodyWriter) tableBlock(t *docmodel.Table) {
	cols := t.Columns()
	align := func(i int) string {
		if i < len(t.Align) {
			return alignStyle(t.Align[i])
		}
		return ""
	}
	row := func(cells []docmodel.Cell, tag string) {
		w.sb.WriteString("<tr>")
		for i := 0; i < cols; i++ {
			w.sb.WriteString("<" + tag + align(i) + ">")
			if i < len(cells) {
				w.runs(cells[i].Runs)
			}
			w.sb.WriteString("</" + tag + ">")
		}
		w.sb.WriteString("</tr>\n")
	}

	w.sb.WriteString("<table>\n<thead>\n")
	row(t.Header, "th")
	w.sb.WriteString("</thead>\n")
	if len(t.Rows) > 0 {
		w.sb.WriteString("<tbody>\n")
		for _, r := range t.Rows {
			row(r, "td")
		}
		w.sb.WriteString("</tbody>\n")
	}
	w.sb.WriteString("</table>\n")
}

func (w *bodyWriter) code(c *docmodel.CodeBlock) {
	if h := w.opts.Highlighter; h != nil && h.Supports(c.Language) {
		if out, err := h.Highlight(c.Language, c.Text, w.opts.Text); err == nil {
			w.sb.WriteString(out)
			w.sb.WriteString("\n")
			return
		}
	}
	if c.Language != "" {
		fmt.Fprintf(&w.sb, `<pre><code class="language-%s">`, html.EscapeString(c.Language))
	} else {
		w.sb.WriteString("<pre><code>")
	}
	w.sb.WriteString(w.opts.Text(c.Text))
	w.sb.WriteString("</code></pre>\n")
}

func (w *bodyWriter) image(img *docmodel.Image) {
	var asset *media.Asset
	if w.table != nil {
		asset, _ = w.table.Get(img.AssetID)
	}
	if asset == nil {
		w.degrade(img, fmt.Errorf("unknown asset %q", img.AssetID))
		return
	}

	enc, err := asset.Select(w.opts.Prefer)
	if err == nil && w.opts.Profile == ProfilePrint {
		err = media.Verify(enc)
	}
	if err != nil {
		w.degrade(img, err)
		return
	}

	width, height, _ := sizing.Fit(asset.Width, asset.Height, w.opts.Box)
	w.sb.WriteString(`<figure class="image"><img src="`)
	w.sb.WriteString(enc.DataURI())
	w.sb.WriteString(`" alt="`)
	w.sb.WriteString(html.EscapeString(img.Alt))
	w.sb.WriteString(`"`)
	if width > 0 && height > 0 {
		fmt.Fprintf(&w.sb, ` width="%d" height="%d"`, width, height)
	}
	w.sb.WriteString("></figure>\n")
}

func (w *bodyWriter) degrade(img *docmodel.Image, err error) {
	label := img.Alt
	if label == "" {
		label = img.AssetID
	}
	w.warnings = append(w.warnings, fmt.Sprintf("image %s not embedded: %v", img.AssetID, err))
	w.placeholder(docmodel.ImageNotFound, "Image unavailable: "+label)
}

func (w *bodyWriter) placeholder(kind docmodel.PlaceholderKind, msg string) {
	class := "placeholder"
	if kind == docmodel.ExternalImage {
		class += " external"
	}
	fmt.Fprintf(&w.sb, `<div class="%s" role="note">`, class)
	w.sb.WriteString(w.opts.Text(msg))
	w.sb.WriteString("</div>\n")
}

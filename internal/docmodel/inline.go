package docmodel

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
)

// Task list markers.
const (
	checkedBox   = "☑"
	uncheckedBox = "☐"
)

// inline collects the inline runs of all children of n.
func (b *builder) inline(n ast.Node) []Span {
	var runs []Span
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		b.collect(c, Plain, "", &runs)
	}
	return runs
}

// collect appends the runs of n with the inherited style and link target.
func (b *builder) collect(n ast.Node, style Style, href string, runs *[]Span) {
	switch v := n.(type) {
	case *ast.Text:
		appendRun(runs, Span{Text: string(v.Segment.Value(b.src)), Style: style, Href: href})
		switch {
		case v.HardLineBreak():
			appendRun(runs, Span{Text: "\n", Style: style, Href: href})
		case v.SoftLineBreak():
			appendRun(runs, Span{Text: " ", Style: style, Href: href})
		}
	case *ast.String:
		appendRun(runs, Span{Text: string(v.Value), Style: style, Href: href})
	case *ast.CodeSpan:
		appendRun(runs, Span{Text: b.text(v), Style: style | Code, Href: href})
	case *ast.Emphasis:
		s := Emphasis
		if v.Level >= 2 {
			s = Strong
		}
		b.collectChildren(v, style|s, href, runs)
	case *ast.Link:
		b.collectChildren(v, style|Link, string(v.Destination), runs)
	case *ast.AutoLink:
		dest := string(v.URL(b.src))
		if v.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(dest, "mailto:") {
			dest = "mailto:" + dest
		}
		appendRun(runs, Span{Text: string(v.Label(b.src)), Style: style | Link, Href: dest})
	case *ast.Image:
		// The image itself follows the enclosing block.
		if alt := b.text(v); alt != "" {
			appendRun(runs, Span{Text: alt, Style: style, Href: href})
		}
		b.deferred = append(b.deferred, b.image(v))
	case *ast.FencedCodeBlock:
		if isDiagramFence(v, b.src) {
			b.deferred = append(b.deferred, b.diagram(v))
			return
		}
		b.codeRun(v, style, runs)
	case *ast.CodeBlock:
		b.codeRun(v, style, runs)
	case *ast.RawHTML:
		var sb strings.Builder
		for i := 0; i < v.Segments.Len(); i++ {
			seg := v.Segments.At(i)
			sb.Write(seg.Value(b.src))
		}
		if raw := sb.String(); strings.EqualFold(raw, "<br>") || strings.EqualFold(raw, "<br/>") || strings.EqualFold(raw, "<br />") {
			appendRun(runs, Span{Text: "\n", Style: style, Href: href})
		}
	case *extast.TaskCheckBox:
		box := uncheckedBox
		if v.IsChecked {
			box = checkedBox
		}
		appendRun(runs, Span{Text: box + " ", Style: style, Href: href})
	case *extast.Strikethrough:
		b.collectChildren(v, style, href, runs)
	default:
		b.collectChildren(n, style, href, runs)
	}
}

// codeRun flattens a code block nested where only runs fit, such as a
// list item.
func (b *builder) codeRun(n ast.Node, style Style, runs *[]Span) {
	appendRun(runs, Span{Text: strings.TrimRight(b.lines(n), "\n"), Style: style | Code})
}

func (b *builder) collectChildren(n ast.Node, style Style, href string, runs *[]Span) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		b.collect(c, style, href, runs)
	}
}

// text returns the plain text content of n. It defers nothing.
func (b *builder) text(n ast.Node) string {
	deferred := b.deferred
	var runs []Span
	b.collectChildren(n, Plain, "", &runs)
	b.deferred = deferred
	return PlainText(runs)
}

// appendRun appends s, merging it into the previous run when both share a
// style and link target.
func appendRun(runs *[]Span, s Span) {
	if s.Text == "" {
		return
	}
	if n := len(*runs); n > 0 {
		last := &(*runs)[n-1]
		if last.Style == s.Style && last.Href == s.Href {
			last.Text += s.Text
			return
		}
	}
	*runs = append(*runs, s)
}

// trimRuns strips leading and trailing whitespace from a run sequence and
// drops runs left empty.
func trimRuns(runs []Span) []Span {
	out := make([]Span, 0, len(runs))
	for _, r := range runs {
		if r.Text != "" {
			out = append(out, r)
		}
	}
	for len(out) > 0 {
		out[0].Text = strings.TrimLeft(out[0].Text, " \t\n")
		if out[0].Text != "" {
			break
		}
		out = out[1:]
	}
	for len(out) > 0 {
		last := len(out) - 1
		out[last].Text = strings.TrimRight(out[last].Text, " \t\n")
		if out[last].Text != "" {
			break
		}
		out = out[:last]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

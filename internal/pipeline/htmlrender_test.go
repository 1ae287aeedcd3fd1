package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/alnah/go-mdexport/internal/docmodel"
	"github.com/alnah/go-mdexport/internal/media"
	"github.com/alnah/go-mdexport/internal/sizing"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func render(t *testing.T, doc *docmodel.Document, table *media.Table, opts RenderOptions) *Body {
	t.Helper()

	body, err := NewBodyRenderer(opts).Render(context.Background(), doc, table)
	if err != nil {
		t.Fatalf("Render() unexpected error: %v", err)
	}
	return body
}

func TestBodyRenderer_Blocks(t *testing.T) {
	t.Parallel()

	doc := docmodel.Build("# Title & more\n\nSome *em* and **strong** `x<y`.\n\n"+
		"> quoted one\n>\n> quoted two\n\n---\n\n"+
		"| A | B |\n|:--|--:|\n| 1 | 2 |\n\n"+
		"[ok](https://example.com) [bad](javascript:alert(1))\n", nil)

	body := render(t, doc, nil, RenderOptions{})
	for _, want := range []string{
		`<h1 id="title-more">Title &amp; more</h1>`,
		"<em>em</em>",
		"<strong>strong</strong>",
		"<code>x&lt;y</code>",
		"<blockquote>\n<p>quoted one</p>\n<p>quoted two</p>\n</blockquote>",
		"<hr>",
		`<th style="text-align:left">A</th>`,
		`<td style="text-align:right">2</td>`,
		`<a href="https://example.com">ok</a>`,
	} {
		if !strings.Contains(body.HTML, want) {
			t.Errorf("body missing %q\n%s", want, body.HTML)
		}
	}
	if strings.Contains(body.HTML, "javascript:") {
		t.Error("javascript link must not be rendered as a link")
	}
	if body.Title != "Title & more" {
		t.Errorf("Title = %q", body.Title)
	}
}

func TestBodyRenderer_BlockOrderPreserved(t *testing.T) {
	t.Parallel()

	doc := &docmodel.Document{Blocks: []docmodel.Block{
		&docmodel.Paragraph{Runs: []docmodel.Span{{Text: "first"}}},
		&docmodel.Heading{Level: 2, Runs: []docmodel.Span{{Text: "second"}}},
		&docmodel.Placeholder{Message: "third"},
		&docmodel.CodeBlock{Text: "fourth"},
	}}
	out := render(t, doc, nil, RenderOptions{}).HTML

	last := -1
	for _, s := range []string{"first", "second", "third", "fourth"} {
		idx := strings.Index(out, s)
		if idx <= last {
			t.Fatalf("%q out of order in\n%s", s, out)
		}
		last = idx
	}
}

func TestBodyRenderer_NestedLists(t *testing.T) {
	t.Parallel()

	doc := docmodel.Build("3. a\n   - b\n   - c\n4. d\n", nil)
	out := render(t, doc, nil, RenderOptions{}).HTML

	want := `<ol start="3"><li>a<ul><li>b</li><li>c</li></ul></li><li>d</li></ol>`
	if !strings.Contains(out, want) {
		t.Errorf("list html = %s, want %s", out, want)
	}
}

func TestBodyRenderer_BlockquoteGroups(t *testing.T) {
	t.Parallel()

	doc := docmodel.Build("> - one\n>\n> ```go\n> x := 1\n> ```\n\n> second\n", nil)
	out := render(t, doc, nil, RenderOptions{}).HTML

	if got := strings.Count(out, "<blockquote>"); got != 2 {
		t.Fatalf("got %d blockquotes, want 2:\n%s", got, out)
	}
	first, rest, _ := strings.Cut(out, "</blockquote>")
	for _, want := range []string{"<li>one</li>", "x := 1"} {
		if !strings.Contains(first, want) {
			t.Errorf("first quote missing %q:\n%s", want, first)
		}
	}
	if strings.Contains(first, "second") || !strings.Contains(rest, "<blockquote>\n<p>second</p>\n</blockquote>") {
		t.Errorf("separate quotes merged:\n%s", out)
	}
}

func TestBodyRenderer_Images(t *testing.T) {
	t.Parallel()

	table := media.NewTable()
	big := table.Add(&media.Asset{
		Ref: "big.png", Origin: media.LocalImage, Width: 2000, Height: 1000,
		Raster: &media.Encoded{Data: testPNG(t, 20, 10), MIME: media.MIMEPNG},
	})
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"><rect width="10" height="10"/></svg>`)
	diagram := table.Add(&media.Asset{
		Origin: media.DiagramCapture, Width: 100, Height: 100, DPI: 96,
		Raster: &media.Encoded{Data: testPNG(t, 4, 4), MIME: media.MIMEPNG},
		Vector: &media.Encoded{Data: svg, MIME: media.MIMESVG},
	})
	doc := &docmodel.Document{Blocks: []docmodel.Block{
		&docmodel.Image{AssetID: big, Alt: "big <one>"},
		&docmodel.Image{AssetID: diagram, Alt: "diagram"},
	}}

	t.Run("standard profile prefers vector and keeps natural size", func(t *testing.T) {
		t.Parallel()

		out := render(t, doc, table, RenderOptions{Prefer: media.PreferVector}).HTML
		if !strings.Contains(out, `src="data:image/svg+xml;base64,`) {
			t.Error("diagram should embed its SVG form")
		}
		if !strings.Contains(out, `width="2000" height="1000"`) {
			t.Errorf("fluid box must keep natural size:\n%s", out)
		}
		if !strings.Contains(out, `alt="big &lt;one&gt;"`) {
			t.Error("alt text must be escaped")
		}
	})

	t.Run("print profile prefers raster and fits the page", func(t *testing.T) {
		t.Parallel()

		box := sizing.ContentBox(8.5, 11, 0.5)
		out := render(t, doc, table, RenderOptions{Profile: ProfilePrint, Prefer: media.PreferRaster, Box: box}).HTML
		if strings.Contains(out, "image/svg+xml") {
			t.Error("print profile should embed raster forms")
		}
		if !strings.Contains(out, `width="720" height="360"`) {
			t.Errorf("image not fitted to content box:\n%s", out)
		}
	})
}

func TestBodyRenderer_UndecodableImageDegrades(t *testing.T) {
	t.Parallel()

	table := media.NewTable()
	id := table.Add(&media.Asset{
		Ref: "bad.png", Origin: media.LocalImage, Width: 10, Height: 10,
		Raster: &media.Encoded{Data: []byte("not a png"), MIME: media.MIMEPNG},
	})
	doc := &docmodel.Document{Blocks: []docmodel.Block{
		&docmodel.Image{AssetID: id, Alt: "broken"},
		&docmodel.Paragraph{Runs: []docmodel.Span{{Text: "after"}}},
	}}

	body := render(t, doc, table, RenderOptions{Profile: ProfilePrint})
	if !strings.Contains(body.HTML, `class="placeholder"`) || !strings.Contains(body.HTML, "broken") {
		t.Errorf("expected placeholder, got:\n%s", body.HTML)
	}
	if !strings.Contains(body.HTML, "after") {
		t.Error("rendering must continue after a degraded image")
	}
	if len(body.Warnings) != 1 {
		t.Errorf("Warnings = %v, want one", body.Warnings)
	}
}

func TestBodyRenderer_TextHook(t *testing.T) {
	t.Parallel()

	doc := docmodel.Build("hello\n", nil)
	opts := RenderOptions{Text: func(s string) string { return "[" + s + "]" }}
	if out := render(t, doc, nil, opts).HTML; !strings.Contains(out, "<p>[hello]</p>") {
		t.Errorf("text hook not applied: %s", out)
	}
}

func TestBodyRenderer_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewBodyRenderer(RenderOptions{}).Render(ctx, &docmodel.Document{}, nil); err == nil {
		t.Error("Render() with cancelled context should fail")
	}
}

func TestBodyRenderer_HeadingSlugsAreUnique(t *testing.T) {
	t.Parallel()

	doc := docmodel.Build("## Intro\n\n## Intro\n\n## !!!\n", nil)
	out := render(t, doc, nil, RenderOptions{}).HTML
	for _, want := range []string{`id="intro"`, `id="intro-1"`, `id="section"`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
}

func TestSafeHref(t *testing.T) {
	t.Parallel()

	tests := []struct {
		href string
		want bool
	}{
		{"https://example.com", true},
		{"mailto:a@b.c", true},
		{"other.md", true},
		{"#section", true},
		{"javascript:alert(1)", false},
		{"JavaScript:alert(1)", false},
		{"vbscript:x", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := safeHref(tt.href); got != tt.want {
			t.Errorf("safeHref(%q) = %v, want %v", tt.href, got, tt.want)
		}
	}
}

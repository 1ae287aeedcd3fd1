package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"golang.org/x/net/html"
)

// ErrShellRender indicates the document shell template failed to execute.
var ErrShellRender = errors.New("document template rendering failed")

// CSSInjector defines the contract for CSS injection into HTML.
type CSSInjector interface {
	InjectCSS(ctx context.Context, htmlContent, cssContent string) string
}

// CSSInjection adds a <style> block to a rendered document.
type CSSInjection struct{}

// InjectCSS places cssContent before </head>, else right after the <body>
// start tag, else at the start of htmlContent.
func (s *CSSInjection) InjectCSS(ctx context.Context, htmlContent, cssContent string) string {
	if cssContent == "" || ctx.Err() != nil {
		return htmlContent
	}
	at := styleOffset(htmlContent)
	return htmlContent[:at] + "<style>" + sanitizeCSS(cssContent) + "</style>" + htmlContent[at:]
}

// styleOffset walks the tokens of doc, so tags inside comments, scripts
// or attribute values never match.
func styleOffset(doc string) int {
	z := html.NewTokenizer(strings.NewReader(doc))
	pos, afterBody := 0, -1
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return max(afterBody, 0)
		}
		size := len(z.Raw())
		name, _ := z.TagName()
		switch {
		case tt == html.EndTagToken && string(name) == "head":
			return pos
		case tt == html.StartTagToken && string(name) == "body" && afterBody < 0:
			afterBody = pos + size
		}
		pos += size
	}
}

// sanitizeCSS escapes sequences that could close the <style> element.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// ShellData fills the document shell template.
type ShellData struct {
	Lang    string
	Title   string
	Profile Profile
	CSS     template.CSS
	Body    template.HTML
}

// DocumentShell wraps a rendered body in a complete HTML document.
type DocumentShell struct {
	tmpl *template.Template
}

// NewDocumentShell parses the shell template content.
func NewDocumentShell(tmplContent string) (*DocumentShell, error) {
	tmpl, err := template.New("document").Parse(tmplContent)
	if err != nil {
		return nil, fmt.Errorf("parsing document template: %w", err)
	}
	return &DocumentShell{tmpl: tmpl}, nil
}

// Render executes the shell. The title defaults to "Document" and the
// language to "en".
func (d *DocumentShell) Render(ctx context.Context, data ShellData) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if data.Title == "" {
		data.Title = "Document"
	}
	if data.Lang == "" {
		data.Lang = "en"
	}
	data.CSS = template.CSS(sanitizeCSS(string(data.CSS)))

	var buf bytes.Buffer
	if err := d.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrShellRender, err)
	}
	return buf.String(), nil
}

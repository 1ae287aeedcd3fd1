package pipeline

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// ErrHighlight indicates a code block could not be highlighted.
var ErrHighlight = errors.New("syntax highlighting failed")

// DefaultHighlightStyle is the chroma style used when none is configured.
const DefaultHighlightStyle = "github"

// Highlighter renders code blocks with class-based chroma markup. The
// chroma formatter only supplies the stylesheet.
type Highlighter struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

// NewHighlighter creates a Highlighter for a chroma style name. Unknown
// names fall back to chroma's default style.
func NewHighlighter(styleName string) *Highlighter {
	if styleName == "" {
		styleName = DefaultHighlightStyle
	}
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}
	return &Highlighter{
		style: style,
		formatter: chromahtml.New(
			chromahtml.WithClasses(true),
			chromahtml.TabWidth(4),
		),
	}
}

// Supports reports whether language names a known lexer.
func (h *Highlighter) Supports(language string) bool {
	return language != "" && lexers.Get(language) != nil
}

// Highlight returns the HTML for code in language as a complete <pre>
// element. Token spans carry the formatter's class names, so CSS applies
// unchanged. text escapes each token's value; nil means plain HTML
// escaping.
func (h *Highlighter) Highlight(language, code string, text func(string) string) (string, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		return "", fmt.Errorf("%w: no lexer for %q", ErrHighlight, language)
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHighlight, err)
	}
	if text == nil {
		text = html.EscapeString
	}

	var sb strings.Builder
	sb.WriteString(`<pre class="chroma"><code>`)
	for _, tok := range iterator.Tokens() {
		value := text(tok.Value)
		if cls := tokenClass(tok.Type); cls != "" {
			fmt.Fprintf(&sb, `<span class="%s">%s</span>`, cls, value)
		} else {
			sb.WriteString(value)
		}
	}
	sb.WriteString("</code></pre>")
	return sb.String(), nil
}

// tokenClass mirrors the formatter's lookup: the exact type first, then
// its sub-category and category.
func tokenClass(tt chroma.TokenType) string {
	for _, t := range []chroma.TokenType{tt, tt.SubCategory(), tt.Category()} {
		if cls, ok := chroma.StandardTypes[t]; ok {
			return cls
		}
	}
	return ""
}

// CSS returns the stylesheet for the highlighter's token classes.
func (h *Highlighter) CSS() string {
	var sb strings.Builder
	if err := h.formatter.WriteCSS(&sb, h.style); err != nil {
		return ""
	}
	return sb.String()
}

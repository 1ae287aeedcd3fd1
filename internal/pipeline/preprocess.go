package pipeline

import (
	"context"
	"regexp"
	"strings"

	"github.com/alnah/go-mdexport/internal/yamlutil"
)

var (
	lineBreaks    = regexp.MustCompile(`\r\n?`)
	fenceOpen     = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})")
	atxHeading    = regexp.MustCompile(`^ {0,3}#{1,6}(\s|$)`)
	bulletItem    = regexp.MustCompile(`^ {0,3}[-*+]\s`)
	orderedItem   = regexp.MustCompile(`^ {0,3}[0-9]{1,9}[.)]\s`)
	indentedBlock = regexp.MustCompile(`^( {4}|\t)`)
)

const byteOrderMark = "\uFEFF"

// frontMatterDelimiter opens and closes a YAML front matter block on the
// first line of a document.
const frontMatterDelimiter = "---"

// FrontMatter holds the front matter keys the exporter uses. Other keys
// are ignored.
type FrontMatter struct {
	Title string `yaml:"title"`
}

// Prepared is markdown ready for parsing.
type Prepared struct {
	Markdown    string
	FrontMatter FrontMatter
}

// MarkdownPreprocessor prepares markdown for parsing.
type MarkdownPreprocessor interface {
	Preprocess(ctx context.Context, content string) Prepared
}

// CommonMarkPreprocessor normalizes line endings, strips YAML front matter
// and fixes block spacing that CommonMark would otherwise read as lazy
// continuation. Code blocks are copied verbatim.
type CommonMarkPreprocessor struct{}

// Preprocess returns content unchanged when ctx is already done.
func (p *CommonMarkPreprocessor) Preprocess(ctx context.Context, content string) Prepared {
	if ctx.Err() != nil {
		return Prepared{Markdown: content}
	}

	content = strings.TrimPrefix(content, byteOrderMark)
	content = lineBreaks.ReplaceAllString(content, "\n")
	meta, body := splitFrontMatter(content)
	return Prepared{Markdown: respace(body), FrontMatter: meta}
}

// splitFrontMatter removes a leading YAML block delimited by "---" lines.
// A block that is not valid YAML is left in place: it is then an ordinary
// thematic break followed by text.
func splitFrontMatter(content string) (FrontMatter, string) {
	var meta FrontMatter
	first, rest, ok := strings.Cut(content, "\n")
	if !ok || strings.TrimRight(first, " ") != frontMatterDelimiter {
		return meta, content
	}

	lines := strings.Split(rest, "\n")
	for i, line := range lines {
		trimmed := strings.TrimRight(line, " ")
		if trimmed != frontMatterDelimiter && trimmed != "..." {
			continue
		}
		block := strings.Join(lines[:i], "\n")
		if strings.TrimSpace(block) != "" {
			if err := yamlutil.Unmarshal([]byte(block), &meta); err != nil {
				return FrontMatter{}, content
			}
		}
		return meta, strings.Join(lines[i+1:], "\n")
	}
	return meta, content
}

// fence tracks an open fenced code block. It closes on a line of the same
// character at least as long as the opener.
type fence struct {
	char byte
	size int
}

func (f *fence) open() bool { return f.size > 0 }

// toggle updates f for line and reports whether line is a fence line.
func (f *fence) toggle(line string) bool {
	m := fenceOpen.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	marker := m[1]
	switch {
	case !f.open():
		f.char, f.size = marker[0], len(marker)
	case marker[0] == f.char && len(marker) >= f.size && strings.TrimSpace(line[len(m[0]):]) == "":
		f.char, f.size = 0, 0
	default:
		return false
	}
	return true
}

// respace inserts a blank line before headings and lists that follow a
// paragraph line and collapses runs of blank lines, outside code.
func respace(content string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	var code fence
	prev := ""
	blanks := 0

	for i, line := range lines {
		wasCode := code.open()
		if code.toggle(line) || wasCode {
			out = append(out, line)
			prev, blanks = line, 0
			continue
		}

		if isBlank(line) {
			blanks++
			if blanks == 1 {
				out = append(out, "")
			}
			prev = line
			continue
		}
		blanks = 0

		if i > 0 && !isBlank(prev) && !indentedBlock.MatchString(line) && needsBlankBefore(prev, line) {
			out = append(out, "")
		}
		out = append(out, line)
		prev = line
	}
	return strings.Join(out, "\n")
}

func needsBlankBefore(prev, line string) bool {
	if atxHeading.MatchString(line) {
		return true
	}
	return isListItem(line) && !isListItem(prev) && !atxHeading.MatchString(prev) && !indentedBlock.MatchString(prev)
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

func isListItem(line string) bool {
	return bulletItem.MatchString(line) || orderedItem.MatchString(line)
}

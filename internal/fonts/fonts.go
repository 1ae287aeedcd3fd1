// Package fonts embeds the fonts used for PDF output and checks glyph
// coverage.
//
// The primary family is the Go font family. Text the primary family cannot
// display is wrapped in a fallback span whose font chain lists configured
// fallback fonts first and common system emoji fonts after them.
package fonts

import (
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Sentinel errors for font loading and coverage.
var (
	ErrFontLoad        = errors.New("font could not be loaded")
	ErrGlyphsUncovered = errors.New("characters not covered by any configured font")
)

// Family names used in generated CSS.
const (
	PrimaryFamily   = "Go"
	MonoFamily      = "Go Mono"
	FallbackClass   = "glyph-fallback"
	maxFallbackSize = 64 << 20
)

// systemFallbacks are appended to the fallback chain. They are never
// embedded.
var systemFallbacks = []string{
	"Noto Color Emoji",
	"Apple Color Emoji",
	"Segoe UI Emoji",
	"Noto Emoji",
	"DejaVu Sans",
}

// Face is one embedded font file.
type Face struct {
	Family string
	Weight string
	Style  string
	data   []byte
	font   *truetype.Font
}

// Has reports whether the face has a glyph for r.
func (f *Face) Has(r rune) bool {
	return f.font.Index(r) != 0
}

// Set is the primary family plus configured fallbacks.
type Set struct {
	primary  []*Face
	mono     *Face
	fallback []*Face
}

// Load parses the embedded Go fonts and the fallback font files at paths.
// Any fallback that cannot be read or parsed fails the whole load.
func Load(paths []string) (*Set, error) {
	set := &Set{}
	builtin := []struct {
		ttf    []byte
		family string
		weight string
		style  string
	}{
		{goregular.TTF, PrimaryFamily, "normal", "normal"},
		{gobold.TTF, PrimaryFamily, "bold", "normal"},
		{goitalic.TTF, PrimaryFamily, "normal", "italic"},
		{gomono.TTF, MonoFamily, "normal", "normal"},
	}
	for _, b := range builtin {
		face, err := parseFace(b.ttf, b.family, b.weight, b.style)
		if err != nil {
			return nil, fmt.Errorf("%w: builtin %s: %v", ErrFontLoad, b.family, err)
		}
		if b.family == MonoFamily {
			set.mono = face
			continue
		}
		set.primary = append(set.primary, face)
	}

	for i, p := range paths {
		data, err := readFont(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrFontLoad, p, err)
		}
		family := fmt.Sprintf("Fallback %d %s", i+1, strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)))
		face, err := parseFace(data, family, "normal", "normal")
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrFontLoad, p, err)
		}
		set.fallback = append(set.fallback, face)
	}
	return set, nil
}

func readFont(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() || info.Size() > maxFallbackSize {
		return nil, fmt.Errorf("not a font file")
	}
	return os.ReadFile(path) // #nosec G304 -- configured by the operator
}

func parseFace(data []byte, family, weight, style string) (*Face, error) {
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, err
	}
	return &Face{Family: family, Weight: weight, Style: style, data: data, font: f}, nil
}

// PrimaryCovers reports whether the primary regular face has a glyph for r.
// Whitespace and control characters always count as covered.
func (s *Set) PrimaryCovers(r rune) bool {
	if isNeutral(r) {
		return true
	}
	return s.primary[0].Has(r)
}

// Covers reports whether the primary family or any configured fallback
// has a glyph for r.
func (s *Set) Covers(r rune) bool {
	if s.PrimaryCovers(r) {
		return true
	}
	for _, f := range s.fallback {
		if f.Has(r) {
			return true
		}
	}
	return false
}

// isNeutral reports runes that never need a glyph of their own.
func isNeutral(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsControl(r)
}

// isJoiner reports runes that attach to the preceding character, such as
// zero width joiners, variation selectors and skin tone modifiers.
func isJoiner(r rune) bool {
	return r == '\u200d' ||
		(r >= '\ufe00' && r <= '\ufe0f') ||
		(r >= 0x1f3fb && r <= 0x1f3ff) ||
		(r >= 0xe0020 && r <= 0xe007f) ||
		unicode.Is(unicode.Mn, r)
}

// FontFaceCSS returns @font-face rules embedding every face as a data URI,
// plus the fallback span rule.
func (s *Set) FontFaceCSS() string {
	var sb strings.Builder
	faces := append(append([]*Face{}, s.primary...), s.mono)
	faces = append(faces, s.fallback...)
	for _, f := range faces {
		fmt.Fprintf(&sb, "@font-face{font-family:%q;font-weight:%s;font-style:%s;src:url(data:font/ttf;base64,%s) format(\"truetype\");}\n",
			f.Family, f.Weight, f.Style, base64.StdEncoding.EncodeToString(f.data))
	}
	fmt.Fprintf(&sb, ".%s{font-family:%s;}\n", FallbackClass, s.fallbackChain())
	return sb.String()
}

func (s *Set) fallbackChain() string {
	names := make([]string, 0, len(s.fallback)+len(systemFallbacks)+1)
	for _, f := range s.fallback {
		names = append(names, fmt.Sprintf("%q", f.Family))
	}
	for _, n := range systemFallbacks {
		names = append(names, fmt.Sprintf("%q", n))
	}
	names = append(names, "sans-serif")
	return strings.Join(names, ",")
}

// Wrapper escapes text to HTML and wraps runs the primary font cannot
// display in fallback spans. It collects characters no configured font
// covers. A Wrapper is not safe for concurrent use.
type Wrapper struct {
	set       *Set
	uncovered map[rune]struct{}
}

// NewWrapper creates a Wrapper over s.
func (s *Set) NewWrapper() *Wrapper {
	return &Wrapper{set: s, uncovered: make(map[rune]struct{})}
}

// HTML escapes text and wraps uncovered runs.
func (w *Wrapper) HTML(text string) string {
	var sb strings.Builder
	var run strings.Builder
	inFallback := false

	flush := func() {
		if run.Len() == 0 {
			return
		}
		escaped := html.EscapeString(run.String())
		if inFallback {
			sb.WriteString(`<span class="` + FallbackClass + `">` + escaped + "</span>")
		} else {
			sb.WriteString(escaped)
		}
		run.Reset()
	}

	for _, r := range text {
		needs := inFallback
		if !isJoiner(r) {
			needs = !w.set.PrimaryCovers(r)
			if needs && !w.set.Covers(r) {
				w.uncovered[r] = struct{}{}
			}
		}
		if needs != inFallback {
			flush()
			inFallback = needs
		}
		run.WriteRune(r)
	}
	flush()
	return sb.String()
}

// Uncovered returns the characters seen so far that no configured font
// covers, sorted.
func (w *Wrapper) Uncovered() []rune {
	out := make([]rune, 0, len(w.uncovered))
	for r := range w.uncovered {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Check returns ErrGlyphsUncovered listing the uncovered characters, or nil.
func (w *Wrapper) Check() error {
	missing := w.Uncovered()
	if len(missing) == 0 {
		return nil
	}
	parts := make([]string, 0, min(len(missing), 10))
	for i, r := range missing {
		if i == 10 {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, fmt.Sprintf("U+%04X", r))
	}
	return fmt.Errorf("%w: %s", ErrGlyphsUncovered, strings.Join(parts, " "))
}

package mdexport

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alnah/go-mdexport/internal/media"
)

// Format is an export target.
type Format string

// Supported export formats.
const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatHTML Format = "html"
)

// Formats lists the supported formats in display order.
var Formats = []Format{FormatPDF, FormatDOCX, FormatHTML}

// ParseFormat parses a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatPDF, FormatDOCX, FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q (must be pdf, docx or html)", ErrUnsupportedFormat, s)
}

// Extension returns the file extension without a dot.
func (f Format) Extension() string { return string(f) }

// MIMEType returns the media type of the format's output.
func (f Format) MIMEType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatHTML:
		return "text/html; charset=utf-8"
	}
	return "application/octet-stream"
}

// Page size constants.
const (
	PageSizeLetter = "letter"
	PageSizeA4     = "a4"
	PageSizeLegal  = "legal"
)

// Orientation constants.
const (
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// Margin bounds in inches.
const (
	MinMargin     = 0.25
	MaxMargin     = 3.0
	DefaultMargin = 0.5
)

// pageDimensions maps page sizes to portrait width and height in inches.
var pageDimensions = map[string]struct{ width, height float64 }{
	PageSizeLetter: {8.5, 11.0},
	PageSizeA4:     {8.27, 11.69},
	PageSizeLegal:  {8.5, 14.0},
}

// PageSettings configures paper for paginated formats. DOCX uses the page
// size and orientation; its margins are always DefaultMargin.
type PageSettings struct {
	Size        string  // "letter", "a4", "legal"
	Orientation string  // "portrait", "landscape"
	Margin      float64 // inches, applied to all sides
}

// DefaultPageSettings returns page settings with default values.
func DefaultPageSettings() *PageSettings {
	return &PageSettings{
		Size:        PageSizeLetter,
		Orientation: OrientationPortrait,
		Margin:      DefaultMargin,
	}
}

// Validate checks that page settings are valid.
// Returns nil if p is nil (nil means use defaults).
func (p *PageSettings) Validate() error {
	if p == nil {
		return nil
	}
	if _, ok := pageDimensions[strings.ToLower(p.Size)]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPageSize, p.Size)
	}
	switch strings.ToLower(p.Orientation) {
	case OrientationPortrait, OrientationLandscape:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOrientation, p.Orientation)
	}
	if p.Margin < MinMargin || p.Margin > MaxMargin {
		return fmt.Errorf("%w: %.2f (must be between %.2f and %.2f)", ErrInvalidMargin, p.Margin, MinMargin, MaxMargin)
	}
	return nil
}

// resolvePageDimensions returns width, height and margin in inches.
// Nil settings and unknown sizes fall back to letter portrait.
func resolvePageDimensions(p *PageSettings) (width, height, margin float64) {
	if p == nil {
		p = DefaultPageSettings()
	}
	dims, ok := pageDimensions[strings.ToLower(p.Size)]
	if !ok {
		dims = pageDimensions[PageSizeLetter]
	}
	width, height = dims.width, dims.height
	if strings.EqualFold(p.Orientation, OrientationLandscape) {
		width, height = height, width
	}
	margin = p.Margin
	if margin <= 0 {
		margin = DefaultMargin
	}
	return width, height, margin
}

// Request is one export request. It is not modified by Export.
type Request struct {
	Path     string        // markdown document location
	Format   Format        // target format
	Diagrams []Diagram     // captured diagrams in document order
	DPI      int           // diagram resolution, 0 uses the exporter default
	Page     *PageSettings // nil uses the exporter default
}

// Result is a successful export.
type Result struct {
	Data     []byte
	MIMEType string
	Filename string

	// Warnings describe content that was replaced by a placeholder.
	Warnings []string
}

// Diagram is one externally captured diagram. Either form may be absent.
// Index, when set, names the diagram placeholder it belongs to; otherwise
// diagrams bind by position.
type Diagram struct {
	Index  *int
	SVG    []byte
	PNG    []byte
	Width  int
	Height int
	DPI    int
}

// diagramJSON is the wire form: images travel as data URIs.
type diagramJSON struct {
	Index  *int   `json:"index,omitempty"`
	SVG    string `json:"svg,omitempty"`
	PNG    string `json:"png,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	DPI    int    `json:"dpi,omitempty"`
}

// MarshalJSON encodes the images as data URIs.
func (d Diagram) MarshalJSON() ([]byte, error) {
	w := diagramJSON{Index: d.Index, Width: d.Width, Height: d.Height, DPI: d.DPI}
	if len(d.SVG) > 0 {
		w.SVG = (&media.Encoded{Data: d.SVG, MIME: media.MIMESVG}).DataURI()
	}
	if len(d.PNG) > 0 {
		w.PNG = (&media.Encoded{Data: d.PNG, MIME: media.MIMEPNG}).DataURI()
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes data URIs. The svg field also accepts raw markup.
// A field that cannot be decoded is left empty so the diagram degrades to
// a placeholder instead of failing the request.
func (d *Diagram) UnmarshalJSON(data []byte) error {
	var w diagramJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*d = Diagram{Index: w.Index, Width: w.Width, Height: w.Height, DPI: w.DPI}
	if s := strings.TrimSpace(w.SVG); s != "" {
		if strings.HasPrefix(s, "<") {
			d.SVG = []byte(s)
		} else if enc, err := media.DecodeDataURI(s); err == nil {
			d.SVG = enc.Data
		}
	}
	if s := strings.TrimSpace(w.PNG); s != "" {
		if enc, err := media.DecodeDataURI(s); err == nil {
			d.PNG = enc.Data
		}
	}
	return nil
}

// descriptor converts d to the binding form.
func (d Diagram) descriptor() media.Descriptor {
	out := media.Descriptor{SVG: d.SVG, PNG: d.PNG, Width: d.Width, Height: d.Height, DPI: d.DPI}
	if d.Index != nil {
		out.Index, out.Indexed = *d.Index, true
	}
	return out
}

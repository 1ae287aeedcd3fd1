package mdexport

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"pdf", FormatPDF, false},
		{" DOCX ", FormatDOCX, false},
		{"Html", FormatHTML, false},
		{"odt", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr && !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ParseFormat(%q) error = %v, want ErrUnsupportedFormat", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormat_MIMEType(t *testing.T) {
	t.Parallel()

	if got := FormatPDF.MIMEType(); got != "application/pdf" {
		t.Errorf("MIMEType() = %q", got)
	}
	if got := Format("x").MIMEType(); got != "application/octet-stream" {
		t.Errorf("unknown MIMEType() = %q", got)
	}
}

// ---------------------------------------------------------------------------
// PageSettings
// ---------------------------------------------------------------------------

func TestPageSettings_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		page    *PageSettings
		wantErr error
	}{
		{"nil", nil, nil},
		{"defaults", DefaultPageSettings(), nil},
		{"a4 landscape", &PageSettings{Size: "A4", Orientation: "Landscape", Margin: 1}, nil},
		{"unknown size", &PageSettings{Size: "tabloid", Orientation: OrientationPortrait, Margin: 1}, ErrInvalidPageSize},
		{"bad orientation", &PageSettings{Size: PageSizeA4, Orientation: "diagonal", Margin: 1}, ErrInvalidOrientation},
		{"margin too small", &PageSettings{Size: PageSizeA4, Orientation: OrientationPortrait, Margin: 0.1}, ErrInvalidMargin},
		{"margin too large", &PageSettings{Size: PageSizeA4, Orientation: OrientationPortrait, Margin: 4}, ErrInvalidMargin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.page.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolvePageDimensions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		page    *PageSettings
		w, h, m float64
	}{
		{"nil is letter", nil, 8.5, 11, 0.5},
		{"a4", &PageSettings{Size: PageSizeA4, Orientation: OrientationPortrait, Margin: 1}, 8.27, 11.69, 1},
		{"legal landscape", &PageSettings{Size: PageSizeLegal, Orientation: OrientationLandscape, Margin: 0.5}, 14, 8.5, 0.5},
		{"zero margin uses default", &PageSettings{Size: PageSizeLetter, Orientation: OrientationPortrait}, 8.5, 11, DefaultMargin},
	}
	for _, tt := range tests {
		w, h, m := resolvePageDimensions(tt.page)
		if w != tt.w || h != tt.h || m != tt.m {
			t.Errorf("%s: resolvePageDimensions() = %v, %v, %v, want %v, %v, %v", tt.name, w, h, m, tt.w, tt.h, tt.m)
		}
	}
}

// ---------------------------------------------------------------------------
// Diagram JSON
// ---------------------------------------------------------------------------

func TestDiagram_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	png := []byte("\x89PNG\r\n\x1a\nrest")
	pngURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	svgURI := "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(sampleSVG))

	tests := []struct {
		name      string
		in        string
		wantIndex int // -1 for none
		wantSVG   bool
		wantPNG   bool
		wantWidth int
	}{
		{"both data uris", `{"index":2,"svg":"` + svgURI + `","png":"` + pngURI + `","width":300}`, 2, true, true, 300},
		{"raw svg", `{"svg":` + jsonString(sampleSVG) + `}`, -1, true, false, 0},
		{"undecodable png dropped", `{"png":"data:image/png;base64,@@@"}`, -1, false, false, 0},
		{"empty", `{}`, -1, false, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var d Diagram
			if err := json.Unmarshal([]byte(tt.in), &d); err != nil {
				t.Fatalf("Unmarshal() unexpected error: %v", err)
			}
			if tt.wantIndex < 0 && d.Index != nil {
				t.Errorf("Index = %d, want none", *d.Index)
			}
			if tt.wantIndex >= 0 && (d.Index == nil || *d.Index != tt.wantIndex) {
				t.Errorf("Index = %v, want %d", d.Index, tt.wantIndex)
			}
			if (len(d.SVG) > 0) != tt.wantSVG {
				t.Errorf("SVG present = %v, want %v", len(d.SVG) > 0, tt.wantSVG)
			}
			if (len(d.PNG) > 0) != tt.wantPNG {
				t.Errorf("PNG present = %v, want %v", len(d.PNG) > 0, tt.wantPNG)
			}
			if d.Width != tt.wantWidth {
				t.Errorf("Width = %d, want %d", d.Width, tt.wantWidth)
			}
		})
	}
}

func TestDiagram_MarshalJSON(t *testing.T) {
	t.Parallel()

	idx := 1
	data, err := json.Marshal(Diagram{Index: &idx, SVG: []byte(sampleSVG), Height: 40})
	if err != nil {
		t.Fatal(err)
	}
	var d Diagram
	if err := json.Unmarshal(data, &d); err != nil {
		t.Fatal(err)
	}
	if string(d.SVG) != sampleSVG || d.Height != 40 || d.Index == nil || *d.Index != 1 {
		t.Errorf("round trip = %+v", d)
	}

	desc := d.descriptor()
	if !desc.Indexed || desc.Index != 1 {
		t.Errorf("descriptor() = %+v, want indexed 1", desc)
	}
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

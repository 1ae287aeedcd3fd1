package media

import (
	"errors"
	"strings"
	"testing"

	"github.com/alnah/go-mdexport/internal/docmodel"
)

func diagramDoc(n int) *docmodel.Document {
	doc := &docmodel.Document{}
	for i := 0; i < n; i++ {
		doc.Blocks = append(doc.Blocks,
			&docmodel.Paragraph{Runs: []docmodel.Span{{Text: "before"}}},
			&docmodel.DiagramRef{Seq: i},
		)
	}
	return doc
}

func TestBindDiagrams_PositionalBinding(t *testing.T) {
	t.Parallel()

	doc := diagramDoc(2)
	table := NewTable()
	descriptors := []Descriptor{
		{PNG: pngBytes(t, 300, 150)},
		{SVG: svgBytes(200, 100)},
	}

	bound, err := BindDiagrams(doc, table, descriptors, 0)
	if err != nil {
		t.Fatalf("BindDiagrams() unexpected error: %v", err)
	}
	if bound != 2 {
		t.Errorf("bound = %d, want 2", bound)
	}

	first, ok := doc.Blocks[1].(*docmodel.Image)
	if !ok {
		t.Fatalf("block 1 is %T, want *docmodel.Image", doc.Blocks[1])
	}
	a, _ := table.Get(first.AssetID)
	if a.Origin != DiagramCapture || a.Kind() != Raster || a.DPI != DefaultDPI {
		t.Errorf("first diagram asset = %+v", a)
	}
	// 300 px captured at 150 dpi displays at 192 reference pixels.
	if a.Width != 192 || a.Height != 96 {
		t.Errorf("first diagram size = %dx%d, want 192x96", a.Width, a.Height)
	}

	second := doc.Blocks[3].(*docmodel.Image)
	b, _ := table.Get(second.AssetID)
	if b.Kind() != Vector || b.Width != 200 || b.Height != 100 {
		t.Errorf("second diagram asset = %+v", b)
	}

	if err := doc.Validate(table.Has); err != nil {
		t.Errorf("Validate() after binding = %v", err)
	}
}

func TestBindDiagrams_KeepsQuoteGroup(t *testing.T) {
	t.Parallel()

	doc := &docmodel.Document{Blocks: []docmodel.Block{
		&docmodel.DiagramRef{Seq: 0, Quote: 2},
		&docmodel.DiagramRef{Seq: 1, Quote: 3},
	}}
	if _, err := BindDiagrams(doc, NewTable(), []Descriptor{{SVG: svgBytes(20, 10)}}, 0); err != nil {
		t.Fatalf("BindDiagrams() unexpected error: %v", err)
	}

	if _, ok := doc.Blocks[0].(*docmodel.Image); !ok {
		t.Errorf("block 0 is %T, want *docmodel.Image", doc.Blocks[0])
	}
	if _, ok := doc.Blocks[1].(*docmodel.Placeholder); !ok {
		t.Errorf("block 1 is %T, want *docmodel.Placeholder", doc.Blocks[1])
	}
	for i, want := range []int{2, 3} {
		if got := docmodel.QuoteOf(doc.Blocks[i]); got != want {
			t.Errorf("block %d QuoteOf() = %d, want %d", i, got, want)
		}
	}
}

func TestBindDiagrams_MissingAndSurplus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		diagrams    int
		descriptors []Descriptor
		wantBound   int
		wantHolders int
	}{
		{name: "fewer descriptors than diagrams", diagrams: 3, descriptors: []Descriptor{{SVG: svgBytes(10, 10)}}, wantBound: 1, wantHolders: 2},
		{name: "surplus descriptors ignored", diagrams: 1, descriptors: []Descriptor{{SVG: svgBytes(10, 10)}, {SVG: svgBytes(5, 5)}}, wantBound: 1},
		{name: "empty descriptor", diagrams: 1, descriptors: []Descriptor{{}}, wantHolders: 1},
		{name: "undecodable descriptor", diagrams: 1, descriptors: []Descriptor{{PNG: []byte("junk")}}, wantHolders: 1},
		{name: "no descriptors", diagrams: 2, wantHolders: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc := diagramDoc(tt.diagrams)
			table := NewTable()
			bound, err := BindDiagrams(doc, table, tt.descriptors, 96)
			if err != nil {
				t.Fatalf("BindDiagrams() unexpected error: %v", err)
			}
			if bound != tt.wantBound {
				t.Errorf("bound = %d, want %d", bound, tt.wantBound)
			}

			holders := 0
			for _, b := range doc.Blocks {
				switch v := b.(type) {
				case *docmodel.Placeholder:
					holders++
					if v.Kind != docmodel.DiagramUnavailable || !strings.Contains(v.Message, "unavailable") {
						t.Errorf("placeholder = %+v", v)
					}
				case *docmodel.DiagramRef:
					t.Error("DiagramRef left unbound")
				}
			}
			if holders != tt.wantHolders {
				t.Errorf("placeholders = %d, want %d", holders, tt.wantHolders)
			}
		})
	}
}

func TestBindDiagrams_IndexedDescriptors(t *testing.T) {
	t.Parallel()

	doc := diagramDoc(2)
	table := NewTable()
	descriptors := []Descriptor{
		{Index: 1, Indexed: true, SVG: svgBytes(11, 11)},
		{Index: 0, Indexed: true, SVG: svgBytes(22, 22)},
	}
	if _, err := BindDiagrams(doc, table, descriptors, 0); err != nil {
		t.Fatalf("BindDiagrams() unexpected error: %v", err)
	}

	first, _ := table.Get(doc.Blocks[1].(*docmodel.Image).AssetID)
	second, _ := table.Get(doc.Blocks[3].(*docmodel.Image).AssetID)
	if first.Width != 22 || second.Width != 11 {
		t.Errorf("indexed binding widths = %d, %d; want 22, 11", first.Width, second.Width)
	}
}

func TestValidateDPI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      int
		want    int
		wantErr bool
	}{
		{in: 0, want: DefaultDPI},
		{in: 72, want: 72},
		{in: 600, want: 600},
		{in: 71, wantErr: true},
		{in: 601, wantErr: true},
		{in: -5, wantErr: true},
	}

	for _, tt := range tests {
		got, err := ValidateDPI(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidDPI) {
				t.Errorf("ValidateDPI(%d) error = %v, want ErrInvalidDPI", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ValidateDPI(%d) = %d, %v; want %d", tt.in, got, err, tt.want)
		}
	}
}

func TestBindDiagrams_InvalidDPI(t *testing.T) {
	t.Parallel()

	_, err := BindDiagrams(diagramDoc(1), NewTable(), nil, 1000)
	if !errors.Is(err, ErrInvalidDPI) {
		t.Errorf("BindDiagrams() error = %v, want ErrInvalidDPI", err)
	}
}

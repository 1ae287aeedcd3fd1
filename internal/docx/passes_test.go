package docx

import "testing"

func textParagraph(s string) *paragraphXML {
	return &paragraphXML{Content: []any{textRun(s, nil)}}
}

func TestTrimLeadingEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []bodyElement
		want int
	}{
		{
			name: "empty body",
			in:   nil,
			want: 0,
		},
		{
			name: "leading blank paragraphs removed",
			in:   []bodyElement{&paragraphXML{}, textParagraph("   "), textParagraph("x")},
			want: 1,
		},
		{
			name: "only leading paragraphs removed",
			in:   []bodyElement{textParagraph("x"), &paragraphXML{}, textParagraph("y")},
			want: 3,
		},
		{
			name: "table stops trimming",
			in:   []bodyElement{&tableXML{}, &paragraphXML{}},
			want: 2,
		},
		{
			name: "rule is visible",
			in: []bodyElement{&paragraphXML{Properties: &paragraphPropsXML{
				Border: &paraBorderXML{},
			}}},
			want: 1,
		},
		{
			name: "drawing is visible",
			in:   []bodyElement{&paragraphXML{Content: []any{&runXML{Content: []any{&drawingXML{}}}}}},
			want: 1,
		},
		{
			name: "hyperlink text is visible",
			in:   []bodyElement{&paragraphXML{Content: []any{&hyperlinkXML{Runs: []*runXML{textRun("go", nil)}}}}},
			want: 1,
		},
		{
			name: "all blank",
			in:   []bodyElement{&paragraphXML{}, textParagraph("\n")},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := trimLeadingEmpty(tt.in); len(got) != tt.want {
				t.Errorf("trimLeadingEmpty() left %d elements, want %d", len(got), tt.want)
			}
		})
	}
}

func TestApplyTableLook(t *testing.T) {
	t.Parallel()

	tbl := &tableXML{}
	p := textParagraph("x")
	out := applyTableLook([]bodyElement{p, tbl})

	if len(out) != 2 || out[0] != p {
		t.Fatal("applyTableLook() must not add, drop or reorder elements")
	}
	if tbl.Properties.Style == nil || tbl.Properties.Style.Val != "LightListAccent1" {
		t.Errorf("table style = %+v, want LightListAccent1", tbl.Properties.Style)
	}
	look := tbl.Properties.Look
	if look == nil {
		t.Fatal("tblLook not set")
	}
	if look.FirstRow != "0" || look.FirstColumn != "0" || look.NoHBand != "0" {
		t.Errorf("tblLook = %+v, want firstRow=0 firstColumn=0 banded rows", look)
	}
	if p.Properties != nil {
		t.Error("paragraphs must be left alone")
	}
}

func TestNumbering(t *testing.T) {
	t.Parallel()

	n := &numbering{}
	if id := n.ordered(3); id != firstOrderedNum {
		t.Errorf("first ordered id = %d, want %d", id, firstOrderedNum)
	}
	if id := n.ordered(0); id != firstOrderedNum+1 {
		t.Errorf("second ordered id = %d, want %d", id, firstOrderedNum+1)
	}
	if n.starts[1] != 1 {
		t.Errorf("start below 1 should clamp to 1, got %d", n.starts[1])
	}
}

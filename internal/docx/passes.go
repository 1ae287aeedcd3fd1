package docx

// pass rewrites the body element list before serialization.
type pass func([]bodyElement) []bodyElement

// bodyPasses run in order on every document.
var bodyPasses = []pass{trimLeadingEmpty, applyTableLook}

// tableStyle is the table style applied to every table.
const tableStyle = "LightListAccent1"

// trimLeadingEmpty drops paragraphs without visible content from the start
// of the body.
func trimLeadingEmpty(els []bodyElement) []bodyElement {
	for len(els) > 0 {
		p, ok := els[0].(*paragraphXML)
		if !ok || p.visible() {
			break
		}
		els = els[1:]
	}
	return els
}

// applyTableLook styles every table with banded rows and without first row
// or first column emphasis.
func applyTableLook(els []bodyElement) []bodyElement {
	for _, el := range els {
		t, ok := el.(*tableXML)
		if !ok {
			continue
		}
		t.Properties.Style = val(tableStyle)
		t.Properties.Look = &tableLookXML{
			Val:         "0400",
			FirstRow:    "0",
			LastRow:     "0",
			FirstColumn: "0",
			LastColumn:  "0",
			NoHBand:     "0",
			NoVBand:     "1",
		}
	}
	return els
}

func runPasses(els []bodyElement, passes []pass) []bodyElement {
	for _, p := range passes {
		els = p(els)
	}
	return els
}

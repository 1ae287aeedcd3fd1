package docx

import (
	"fmt"
	"strings"
)

// Numbering instance ids. Every ordered list gets its own instance so its
// count restarts; all bullet items share one.
const (
	bulletNumID      = 1
	firstOrderedNum  = 2
	maxListLevel     = 8
	listIndentTwips  = 720
	listHangingTwips = 360
)

var bulletGlyphs = []string{"•", "◦", "▪"}

// numbering tracks the ordered list instances of one document.
type numbering struct {
	starts []int
}

// ordered allocates a new decimal list instance beginning at start.
func (n *numbering) ordered(start int) int {
	if start < 1 {
		start = 1
	}
	n.starts = append(n.starts, start)
	return firstOrderedNum + len(n.starts) - 1
}

// xml renders word/numbering.xml.
func (n *numbering) xml() []byte {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	sb.WriteString(`<w:numbering xmlns:w="` + nsW + `">`)

	sb.WriteString(`<w:abstractNum w:abstractNumId="0"><w:multiLevelType w:val="hybridMultilevel"/>`)
	for lvl := 0; lvl <= maxListLevel; lvl++ {
		writeLevel(&sb, lvl, "bullet", bulletGlyphs[lvl%len(bulletGlyphs)])
	}
	sb.WriteString(`</w:abstractNum>`)

	sb.WriteString(`<w:abstractNum w:abstractNumId="1"><w:multiLevelType w:val="hybridMultilevel"/>`)
	for lvl := 0; lvl <= maxListLevel; lvl++ {
		writeLevel(&sb, lvl, "decimal", fmt.Sprintf("%%%d.", lvl+1))
	}
	sb.WriteString(`</w:abstractNum>`)

	fmt.Fprintf(&sb, `<w:num w:numId="%d"><w:abstractNumId w:val="0"/></w:num>`, bulletNumID)
	for i, start := range n.starts {
		fmt.Fprintf(&sb, `<w:num w:numId="%d"><w:abstractNumId w:val="1"/>`+
			`<w:lvlOverride w:ilvl="0"><w:startOverride w:val="%d"/></w:lvlOverride></w:num>`,
			firstOrderedNum+i, start)
	}
	sb.WriteString(`</w:numbering>`)
	return []byte(sb.String())
}

func writeLevel(sb *strings.Builder, lvl int, format, text string) {
	fmt.Fprintf(sb, `<w:lvl w:ilvl="%d"><w:start w:val="1"/><w:numFmt w:val="%s"/>`+
		`<w:lvlText w:val="%s"/><w:lvlJc w:val="left"/>`+
		`<w:pPr><w:ind w:left="%d" w:hanging="%d"/></w:pPr></w:lvl>`,
		lvl, format, text, listIndentTwips*(lvl+1), listHangingTwips)
}

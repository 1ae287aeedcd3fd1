package docx

import (
	"encoding/xml"
	"strings"
)

// XML namespaces declared on the document root.
const (
	nsW   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsWP  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPic = "http://schemas.openxmlformats.org/drawingml/2006/picture"
)

// documentXML is word/document.xml. Element names carry their prefix
// literally; the prefixes are declared once on the root.
type documentXML struct {
	XMLName xml.Name `xml:"w:document"`
	W       string   `xml:"xmlns:w,attr"`
	R       string   `xml:"xmlns:r,attr"`
	WP      string   `xml:"xmlns:wp,attr"`
	A       string   `xml:"xmlns:a,attr"`
	Pic     string   `xml:"xmlns:pic,attr"`
	Body    bodyXML  `xml:"w:body"`
}

func newDocumentXML(body bodyXML) *documentXML {
	return &documentXML{W: nsW, R: nsR, WP: nsWP, A: nsA, Pic: nsPic, Body: body}
}

// bodyXML keeps paragraphs and tables in one ordered list.
type bodyXML struct {
	Elements []bodyElement
	SectPr   sectPrXML `xml:"w:sectPr"`
}

// bodyElement is a top-level body child: *paragraphXML or *tableXML.
type bodyElement interface {
	visible() bool
}

// paragraphXML represents a paragraph element (<w:p>).
type paragraphXML struct {
	XMLName    xml.Name           `xml:"w:p"`
	Properties *paragraphPropsXML `xml:"w:pPr,omitempty"`
	Content    []any              // *runXML or *hyperlinkXML
}

// visible reports whether the paragraph shows anything: non-blank text,
// a drawing or a border.
func (p *paragraphXML) visible() bool {
	if p.Properties != nil && p.Properties.Border != nil {
		return true
	}
	for _, c := range p.Content {
		switch v := c.(type) {
		case *runXML:
			if v.visible() {
				return true
			}
		case *hyperlinkXML:
			for _, r := range v.Runs {
				if r.visible() {
					return true
				}
			}
		}
	}
	return false
}

// paragraphPropsXML represents paragraph properties (<w:pPr>).
type paragraphPropsXML struct {
	Style  *valXML        `xml:"w:pStyle,omitempty"`
	NumPr  *numPropsXML   `xml:"w:numPr,omitempty"`
	Border *paraBorderXML `xml:"w:pBdr,omitempty"`
	Ind    *indentXML     `xml:"w:ind,omitempty"`
	Jc     *valXML        `xml:"w:jc,omitempty"`
}

// indentXML is a paragraph indent in twips.
type indentXML struct {
	Left    int `xml:"w:left,attr"`
	Hanging int `xml:"w:hanging,attr,omitempty"`
}

// valXML is any element carrying a single w:val attribute.
type valXML struct {
	Val string `xml:"w:val,attr"`
}

func val(s string) *valXML { return &valXML{Val: s} }

// numPropsXML represents numbering properties for lists.
type numPropsXML struct {
	ILvl  valXML `xml:"w:ilvl"`
	NumID valXML `xml:"w:numId"`
}

type paraBorderXML struct {
	Bottom borderXML `xml:"w:bottom"`
}

type borderXML struct {
	Val   string `xml:"w:val,attr"`
	Size  int    `xml:"w:sz,attr"`
	Space int    `xml:"w:space,attr"`
	Color string `xml:"w:color,attr"`
}

// runXML represents a text run (<w:r>).
type runXML struct {
	XMLName    xml.Name     `xml:"w:r"`
	Properties *runPropsXML `xml:"w:rPr,omitempty"`
	Content    []any        // *textXML, *breakXML or *drawingXML
}

func (r *runXML) visible() bool {
	for _, c := range r.Content {
		switch v := c.(type) {
		case *textXML:
			if strings.TrimSpace(v.Value) != "" {
				return true
			}
		case *drawingXML:
			return true
		}
	}
	return false
}

// runPropsXML represents run properties (<w:rPr>).
type runPropsXML struct {
	Style  *valXML  `xml:"w:rStyle,omitempty"`
	Bold   *flagXML `xml:"w:b,omitempty"`
	Italic *flagXML `xml:"w:i,omitempty"`
}

// flagXML is an on/off property written as an empty element.
type flagXML struct{}

type textXML struct {
	XMLName xml.Name `xml:"w:t"`
	Space   string   `xml:"xml:space,attr,omitempty"`
	Value   string   `xml:",chardata"`
}

type breakXML struct {
	XMLName xml.Name `xml:"w:br"`
}

type hyperlinkXML struct {
	XMLName xml.Name  `xml:"w:hyperlink"`
	ID      string    `xml:"r:id,attr"`
	Runs    []*runXML `xml:"w:r"`
}

// drawingXML is an inline picture.
type drawingXML struct {
	XMLName xml.Name  `xml:"w:drawing"`
	Inline  inlineXML `xml:"wp:inline"`
}

type inlineXML struct {
	DistT   int        `xml:"distT,attr"`
	DistB   int        `xml:"distB,attr"`
	DistL   int        `xml:"distL,attr"`
	DistR   int        `xml:"distR,attr"`
	Extent  extentXML  `xml:"wp:extent"`
	DocPr   docPrXML   `xml:"wp:docPr"`
	Graphic graphicXML `xml:"a:graphic"`
}

type extentXML struct {
	Cx int64 `xml:"cx,attr"`
	Cy int64 `xml:"cy,attr"`
}

type docPrXML struct {
	ID    int    `xml:"id,attr"`
	Name  string `xml:"name,attr"`
	Descr string `xml:"descr,attr,omitempty"`
}

type graphicXML struct {
	Data graphicDataXML `xml:"a:graphicData"`
}

type graphicDataXML struct {
	URI string `xml:"uri,attr"`
	Pic picXML `xml:"pic:pic"`
}

type picXML struct {
	NvPicPr  nvPicPrXML  `xml:"pic:nvPicPr"`
	BlipFill blipFillXML `xml:"pic:blipFill"`
	SpPr     spPrXML     `xml:"pic:spPr"`
}

type nvPicPrXML struct {
	CNvPr    docPrXML `xml:"pic:cNvPr"`
	CNvPicPr struct{} `xml:"pic:cNvPicPr"`
}

type blipFillXML struct {
	Blip    blipXML    `xml:"a:blip"`
	Stretch stretchXML `xml:"a:stretch"`
}

type blipXML struct {
	Embed string `xml:"r:embed,attr"`
}

type stretchXML struct {
	FillRect struct{} `xml:"a:fillRect"`
}

type spPrXML struct {
	Xfrm xfrmXML     `xml:"a:xfrm"`
	Geom prstGeomXML `xml:"a:prstGeom"`
}

type xfrmXML struct {
	Off offXML    `xml:"a:off"`
	Ext extentXML `xml:"a:ext"`
}

type offXML struct {
	X int `xml:"x,attr"`
	Y int `xml:"y,attr"`
}

type prstGeomXML struct {
	Prst  string   `xml:"prst,attr"`
	AvLst struct{} `xml:"a:avLst"`
}

// tableXML represents a table element (<w:tbl>).
type tableXML struct {
	XMLName    xml.Name      `xml:"w:tbl"`
	Properties tablePropsXML `xml:"w:tblPr"`
	Grid       tableGridXML  `xml:"w:tblGrid"`
	Rows       []tableRowXML `xml:"w:tr"`
}

func (*tableXML) visible() bool { return true }

type tablePropsXML struct {
	Style *valXML       `xml:"w:tblStyle,omitempty"`
	Width widthXML      `xml:"w:tblW"`
	Look  *tableLookXML `xml:"w:tblLook,omitempty"`
}

type widthXML struct {
	W    int    `xml:"w:w,attr"`
	Type string `xml:"w:type,attr"`
}

// tableLookXML selects which conditional formats of the table style apply.
type tableLookXML struct {
	Val         string `xml:"w:val,attr"`
	FirstRow    string `xml:"w:firstRow,attr"`
	LastRow     string `xml:"w:lastRow,attr"`
	FirstColumn string `xml:"w:firstColumn,attr"`
	LastColumn  string `xml:"w:lastColumn,attr"`
	NoHBand     string `xml:"w:noHBand,attr"`
	NoVBand     string `xml:"w:noVBand,attr"`
}

type tableGridXML struct {
	Cols []widthOnlyXML `xml:"w:gridCol"`
}

type widthOnlyXML struct {
	W int `xml:"w:w,attr"`
}

type tableRowXML struct {
	Properties *rowPropsXML   `xml:"w:trPr,omitempty"`
	Cells      []tableCellXML `xml:"w:tc"`
}

type rowPropsXML struct {
	Header *flagXML `xml:"w:tblHeader,omitempty"`
}

type tableCellXML struct {
	Properties cellPropsXML    `xml:"w:tcPr"`
	Paragraphs []*paragraphXML `xml:"w:p"`
}

type cellPropsXML struct {
	Width   widthXML `xml:"w:tcW"`
	Shading *shdXML  `xml:"w:shd,omitempty"`
}

type shdXML struct {
	Val   string `xml:"w:val,attr"`
	Color string `xml:"w:color,attr"`
	Fill  string `xml:"w:fill,attr"`
}

// sectPrXML holds page size and margins, all in twips.
type sectPrXML struct {
	PageSize   pageSizeXML   `xml:"w:pgSz"`
	PageMargin pageMarginXML `xml:"w:pgMar"`
}

type pageSizeXML struct {
	W      int    `xml:"w:w,attr"`
	H      int    `xml:"w:h,attr"`
	Orient string `xml:"w:orient,attr,omitempty"`
}

type pageMarginXML struct {
	Top    int `xml:"w:top,attr"`
	Right  int `xml:"w:right,attr"`
	Bottom int `xml:"w:bottom,attr"`
	Left   int `xml:"w:left,attr"`
	Header int `xml:"w:header,attr"`
	Footer int `xml:"w:footer,attr"`
	Gutter int `xml:"w:gutter,attr"`
}

package docx

import (
	"archive/zip"
	"bytes"
	_ "embed"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/alnah/go-mdexport/internal/media"
)

//go:embed styles.xml
var stylesXML []byte

// packageTime is stamped on every zip entry so identical input yields
// identical bytes.
var packageTime = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Relationship and content types.
const (
	relOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relCoreProps      = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	relStyles         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	relNumbering      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering"
	relImage          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	relHyperlink      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"

	ctDocument  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	ctStyles    = "application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"
	ctNumbering = "application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"
	ctCore      = "application/vnd.openxmlformats-package.core-properties+xml"
	ctRels      = "application/vnd.openxmlformats-package.relationships+xml"

	nsContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"
	nsRelationships = "http://schemas.openxmlformats.org/package/2006/relationships"
)

// part is one file of the package.
type part struct {
	name string
	data []byte
}

type contentTypesXML struct {
	XMLName   xml.Name      `xml:"http://schemas.openxmlformats.org/package/2006/content-types Types"`
	Defaults  []defaultXML  `xml:"Default"`
	Overrides []overrideXML `xml:"Override"`
}

type defaultXML struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type overrideXML struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type relationshipsXML struct {
	XMLName xml.Name          `xml:"http://schemas.openxmlformats.org/package/2006/relationships Relationships"`
	Rels    []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// relations allocates relationship ids for word/document.xml. Styles and
// numbering always take rId1 and rId2.
type relations struct {
	rels       []relationshipXML
	hyperlinks map[string]string
}

func newRelations() *relations {
	return &relations{
		rels: []relationshipXML{
			{ID: "rId1", Type: relStyles, Target: "styles.xml"},
			{ID: "rId2", Type: relNumbering, Target: "numbering.xml"},
		},
		hyperlinks: make(map[string]string),
	}
}

func (r *relations) add(typ, target, mode string) string {
	id := fmt.Sprintf("rId%d", len(r.rels)+1)
	r.rels = append(r.rels, relationshipXML{ID: id, Type: typ, Target: target, TargetMode: mode})
	return id
}

// hyperlink returns the relationship id for url, reusing earlier ids.
func (r *relations) hyperlink(url string) string {
	if id, ok := r.hyperlinks[url]; ok {
		return id
	}
	id := r.add(relHyperlink, url, "External")
	r.hyperlinks[url] = id
	return id
}

// imageExtension maps the MIME types Word displays to part extensions.
var imageExtension = map[string]string{
	media.MIMEPNG:  "png",
	media.MIMEJPEG: "jpeg",
	media.MIMEGIF:  "gif",
}

// wordImageTypes lists the MIME types embedded without transcoding.
var wordImageTypes = []string{media.MIMEPNG, media.MIMEJPEG, media.MIMEGIF}

func marshalPart(name string, v any) (part, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(v); err != nil {
		return part{}, fmt.Errorf("%w: %s: %v", ErrPackage, name, err)
	}
	return part{name: name, data: buf.Bytes()}, nil
}

func contentTypes(images []part) *contentTypesXML {
	ct := &contentTypesXML{
		Defaults: []defaultXML{
			{Extension: "rels", ContentType: ctRels},
			{Extension: "xml", ContentType: "application/xml"},
		},
		Overrides: []overrideXML{
			{PartName: "/word/document.xml", ContentType: ctDocument},
			{PartName: "/word/styles.xml", ContentType: ctStyles},
			{PartName: "/word/numbering.xml", ContentType: ctNumbering},
			{PartName: "/docProps/core.xml", ContentType: ctCore},
		},
	}
	seen := make(map[string]bool)
	for _, img := range images {
		ext := img.name[strings.LastIndexByte(img.name, '.')+1:]
		if seen[ext] {
			continue
		}
		seen[ext] = true
		ct.Defaults = append(ct.Defaults, defaultXML{Extension: ext, ContentType: "image/" + ext})
	}
	return ct
}

func packageRels() *relationshipsXML {
	return &relationshipsXML{Rels: []relationshipXML{
		{ID: "rId1", Type: relOfficeDocument, Target: "word/document.xml"},
		{ID: "rId2", Type: relCoreProps, Target: "docProps/core.xml"},
	}}
}

// coreProps renders docProps/core.xml. No dates are written.
func coreProps(title string) []byte {
	var esc bytes.Buffer
	_ = xml.EscapeText(&esc, []byte(title))
	return []byte(xml.Header +
		`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" ` +
		`xmlns:dc="http://purl.org/dc/elements/1.1/">` +
		`<dc:title>` + esc.String() + `</dc:title>` +
		`<dc:creator>go-mdexport</dc:creator>` +
		`</cp:coreProperties>`)
}

// writeZip stores parts in order with fixed timestamps.
func writeZip(parts []part) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     p.name,
			Method:   zip.Deflate,
			Modified: packageTime,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrPackage, p.name, err)
		}
		if _, err := w.Write(p.data); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrPackage, p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPackage, err)
	}
	return buf.Bytes(), nil
}

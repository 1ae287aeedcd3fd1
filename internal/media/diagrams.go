package media

import (
	"fmt"
	"math"

	"github.com/alnah/go-mdexport/internal/docmodel"
	"github.com/alnah/go-mdexport/internal/sizing"
)

const referenceDPI = sizing.ReferenceDPI

// Diagram resolution bounds in dots per inch.
const (
	DefaultDPI = 150
	MinDPI     = 72
	MaxDPI     = 600
)

// Descriptor is one externally rendered diagram capture. Indexed marks
// descriptors that carry an explicit placeholder index; others bind by
// position. Width and Height are the display size in reference pixels and
// may be zero.
type Descriptor struct {
	Index   int
	Indexed bool
	SVG     []byte
	PNG     []byte
	Width   int
	Height  int
	DPI     int
}

// ValidateDPI returns dpi, DefaultDPI when dpi is zero, or ErrInvalidDPI.
func ValidateDPI(dpi int) (int, error) {
	if dpi == 0 {
		return DefaultDPI, nil
	}
	if dpi < MinDPI || dpi > MaxDPI {
		return 0, fmt.Errorf("%w: %d (allowed %d-%d)", ErrInvalidDPI, dpi, MinDPI, MaxDPI)
	}
	return dpi, nil
}

// BindDiagrams replaces every DiagramRef block of doc with an Image bound
// to descriptor i, or with a diagram-unavailable placeholder. Surplus
// descriptors are ignored. It returns the number of diagrams bound.
func BindDiagrams(doc *docmodel.Document, t *Table, descriptors []Descriptor, dpi int) (int, error) {
	dpi, err := ValidateDPI(dpi)
	if err != nil {
		return 0, err
	}

	bySeq := assignDescriptors(descriptors)
	bound := 0
	for i, blk := range doc.Blocks {
		ref, ok := blk.(*docmodel.DiagramRef)
		if !ok {
			continue
		}
		d, ok := bySeq[ref.Seq]
		if !ok {
			doc.Blocks[i] = unavailable(ref, "no capture supplied")
			continue
		}
		asset, reason := diagramAsset(d, dpi)
		if asset == nil {
			doc.Blocks[i] = unavailable(ref, reason)
			continue
		}
		id := t.Add(asset)
		doc.Blocks[i] = &docmodel.Image{AssetID: id, Alt: fmt.Sprintf("Diagram %d", ref.Seq+1), Quote: ref.Quote}
		bound++
	}
	return bound, nil
}

// assignDescriptors maps placeholder sequence numbers to descriptors.
// Explicit indexes win; the first descriptor claiming an index keeps it.
func assignDescriptors(descriptors []Descriptor) map[int]Descriptor {
	bySeq := make(map[int]Descriptor, len(descriptors))
	for _, d := range descriptors {
		if !d.Indexed || d.Index < 0 {
			continue
		}
		if _, taken := bySeq[d.Index]; !taken {
			bySeq[d.Index] = d
		}
	}
	for pos, d := range descriptors {
		if d.Indexed {
			continue
		}
		if _, taken := bySeq[pos]; !taken {
			bySeq[pos] = d
		}
	}
	return bySeq
}

// diagramAsset builds an asset from the usable representations of d.
// Undecodable representations are dropped; with none left it returns nil
// and a reason.
func diagramAsset(d Descriptor, dpi int) (*Asset, string) {
	if d.DPI > 0 {
		if v, err := ValidateDPI(d.DPI); err == nil {
			dpi = v
		}
	}
	a := &Asset{Origin: DiagramCapture, DPI: dpi, Width: d.Width, Height: d.Height}

	if len(d.PNG) > 0 {
		enc := &Encoded{Data: d.PNG, MIME: MIMEPNG}
		if mime, err := DetectMIME(d.PNG, ""); err == nil && mime != MIMESVG {
			enc.MIME = mime
		}
		if w, h, err := Dimensions(enc.Data, enc.MIME); err == nil {
			a.Raster = enc
			if a.Width <= 0 || a.Height <= 0 {
				// Captures are taken at dpi; display at reference resolution.
				scale := float64(dpi) / referenceDPI
				a.Width = max(int(math.Round(float64(w)/scale)), 1)
				a.Height = max(int(math.Round(float64(h)/scale)), 1)
			}
		}
	}

	if len(d.SVG) > 0 && looksLikeSVG(d.SVG) {
		a.Vector = &Encoded{Data: d.SVG, MIME: MIMESVG}
		if a.Width <= 0 || a.Height <= 0 {
			if w, h, err := svgDimensions(d.SVG); err == nil {
				a.Width, a.Height = w, h
			}
		}
	}

	switch {
	case a.Raster == nil && a.Vector == nil && len(d.PNG) == 0 && len(d.SVG) == 0:
		return nil, "capture is empty"
	case a.Raster == nil && a.Vector == nil:
		return nil, "capture could not be decoded"
	}
	return a, ""
}

func unavailable(ref *docmodel.DiagramRef, reason string) *docmodel.Placeholder {
	return &docmodel.Placeholder{
		Kind:    docmodel.DiagramUnavailable,
		Message: fmt.Sprintf("Diagram %d unavailable: %s", ref.Seq+1, reason),
		Quote:   ref.Quote,
	}
}

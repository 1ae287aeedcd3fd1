package media

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	xdraw "golang.org/x/image/draw"
)

// Preference selects which representation a renderer wants.
type Preference uint8

// Representation preferences. HTML prefers vector; PDF and DOCX prefer raster.
const (
	PreferRaster Preference = iota
	PreferVector
)

// maxRasterSide bounds the canvas created for rasterized vector images.
const maxRasterSide = 8192

// Select returns the representation of a matching pref. A vector-only
// asset asked for raster is rasterized at its DPI.
func (a *Asset) Select(pref Preference) (*Encoded, error) {
	switch {
	case pref == PreferVector && a.Vector != nil:
		return a.Vector, nil
	case a.Raster != nil:
		return a.Raster, nil
	case a.Vector == nil:
		return nil, fmt.Errorf("%w: %s", ErrNoImageData, a.ID)
	case pref == PreferVector:
		return a.Vector, nil
	}

	dpi := a.DPI
	if dpi <= 0 {
		dpi = referenceDPI
	}
	enc, _, _, err := Rasterize(a.Vector.Data, a.Width, a.Height, float64(dpi)/referenceDPI)
	if err != nil {
		return nil, fmt.Errorf("rasterizing %s: %w", a.ID, err)
	}
	return enc, nil
}

// Rasterize renders an SVG document to PNG. The canvas is the natural size
// (width x height, or the view box when zero) multiplied by scale.
func Rasterize(svg []byte, width, height int, scale float64) (*Encoded, int, int, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: parse svg: %v", ErrDecode, err)
	}

	w, h := float64(width), float64(height)
	if w <= 0 || h <= 0 {
		w, h = icon.ViewBox.W, icon.ViewBox.H
	}
	if w <= 0 || h <= 0 {
		w, h = defaultVectorWidth, defaultVectorHeight
	}
	if scale <= 0 {
		scale = 1
	}
	pw := int(math.Ceil(w * scale))
	ph := int(math.Ceil(h * scale))
	if pw > maxRasterSide || ph > maxRasterSide {
		shrink := math.Min(maxRasterSide/float64(pw), maxRasterSide/float64(ph))
		pw = max(int(float64(pw)*shrink), 1)
		ph = max(int(float64(ph)*shrink), 1)
	}

	icon.SetTarget(0, 0, float64(pw), float64(ph))
	canvas := image.NewRGBA(image.Rect(0, 0, pw, ph))
	scanner := rasterx.NewScannerGV(pw, ph, canvas, canvas.Bounds())
	icon.Draw(rasterx.NewDasher(pw, ph, scanner), 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, 0, 0, fmt.Errorf("encode png: %w", err)
	}
	return &Encoded{Data: buf.Bytes(), MIME: MIMEPNG}, pw, ph, nil
}

// Transcode returns enc unchanged when its MIME type is accepted, and a PNG
// re-encoding otherwise. SVG input is rasterized at natural size.
func Transcode(enc *Encoded, accepted ...string) (*Encoded, error) {
	for _, m := range accepted {
		if enc.MIME == m {
			return enc, nil
		}
	}
	if enc.MIME == MIMESVG {
		out, _, _, err := Rasterize(enc.Data, 0, 0, 1)
		return out, err
	}

	src, _, err := image.Decode(bytes.NewReader(enc.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return &Encoded{Data: buf.Bytes(), MIME: MIMEPNG}, nil
}

// Verify checks that enc decodes as an image of its declared type.
func Verify(enc *Encoded) error {
	if enc == nil || len(enc.Data) == 0 {
		return ErrNoImageData
	}
	if enc.MIME == MIMESVG {
		if !looksLikeSVG(enc.Data) {
			return fmt.Errorf("%w: not an svg document", ErrDecode)
		}
		return nil
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(enc.Data)); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

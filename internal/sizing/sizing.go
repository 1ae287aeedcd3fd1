// Package sizing decides the rendered dimensions of images.
//
// All dimensions are CSS pixels at the reference resolution of 96 pixels per
// inch. Images that already fit the content box keep their natural size;
// larger images are scaled down uniformly until they fit. Images are never
// scaled up.
package sizing

import "math"

// ReferenceDPI is the pixel density used to convert between page units and
// image pixels.
const ReferenceDPI = 96.0

// Box is the addressable content area of a target format, in pixels.
// A zero dimension means the target imposes no limit on that axis.
type Box struct {
	MaxWidth  float64
	MaxHeight float64
}

// Fluid reports whether the box imposes no constraint at all.
func (b Box) Fluid() bool {
	return b.MaxWidth <= 0 && b.MaxHeight <= 0
}

// ContentBox returns the content area of a page given its size in inches and
// a uniform margin in inches.
func ContentBox(pageWidthIn, pageHeightIn, marginIn float64) Box {
	w := (pageWidthIn - 2*marginIn) * ReferenceDPI
	h := (pageHeightIn - 2*marginIn) * ReferenceDPI
	return Box{MaxWidth: math.Max(w, 1), MaxHeight: math.Max(h, 1)}
}

// Fit returns the rendered size of an image with the given natural size.
// The second return value reports whether the image was scaled.
func Fit(width, height int, box Box) (int, int, bool) {
	if width <= 0 || height <= 0 || box.Fluid() {
		return width, height, false
	}

	ratio := 1.0
	if box.MaxWidth > 0 && float64(width) > box.MaxWidth {
		ratio = math.Min(ratio, box.MaxWidth/float64(width))
	}
	if box.MaxHeight > 0 && float64(height) > box.MaxHeight {
		ratio = math.Min(ratio, box.MaxHeight/float64(height))
	}
	if ratio >= 1 {
		return width, height, false
	}

	w := int(math.Round(float64(width) * ratio))
	h := int(math.Round(float64(height) * ratio))
	// Rounding may push the binding axis one pixel over the limit.
	if box.MaxWidth > 0 && float64(w) > box.MaxWidth {
		w = int(box.MaxWidth)
	}
	if box.MaxHeight > 0 && float64(h) > box.MaxHeight {
		h = int(box.MaxHeight)
	}
	return max(w, 1), max(h, 1), true
}

// PixelsToEMU converts reference pixels to English Metric Units as used by
// OOXML drawings (914400 EMU per inch).
func PixelsToEMU(px int) int64 {
	return int64(px) * 914400 / int64(ReferenceDPI)
}

// InchesToTwips converts inches to twentieths of a point.
func InchesToTwips(in float64) int {
	return int(math.Round(in * 1440))
}

package media

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"math"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/srwiley/oksvg"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder
)

// Supported image MIME types.
const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
	MIMEGIF  = "image/gif"
	MIMESVG  = "image/svg+xml"
	MIMEWebP = "image/webp"
	MIMEBMP  = "image/bmp"
	MIMETIFF = "image/tiff"
)

// Natural size assumed for vector images that declare none.
const (
	defaultVectorWidth  = 800
	defaultVectorHeight = 600
)

// extensionMIME is the fallback when content sniffing is inconclusive.
var extensionMIME = map[string]string{
	".png":  MIMEPNG,
	".jpg":  MIMEJPEG,
	".jpeg": MIMEJPEG,
	".gif":  MIMEGIF,
	".svg":  MIMESVG,
	".webp": MIMEWebP,
	".bmp":  MIMEBMP,
	".tif":  MIMETIFF,
	".tiff": MIMETIFF,
}

func supported(mime string) bool {
	for _, m := range extensionMIME {
		if m == mime {
			return true
		}
	}
	return false
}

// DetectMIME returns the image MIME type of data. Content sniffing wins;
// the extension of name is consulted when sniffing finds no image type.
func DetectMIME(data []byte, name string) (string, error) {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		mime, _, _ := strings.Cut(m.String(), ";")
		if supported(mime) {
			return mime, nil
		}
	}

	ext := strings.ToLower(filepath.Ext(name))
	if mime, ok := extensionMIME[ext]; ok {
		if mime == MIMESVG && !looksLikeSVG(data) {
			return "", fmt.Errorf("%w: %s is not SVG", ErrUnsupportedFormat, name)
		}
		return mime, nil
	}
	return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedFormat, name, detected.String())
}

func looksLikeSVG(data []byte) bool {
	head := data
	if len(head) > 4096 {
		head = head[:4096]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}

// Dimensions returns the natural size of an image in pixels.
func Dimensions(data []byte, mime string) (int, int, error) {
	if mime == MIMESVG {
		return svgDimensions(data)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return cfg.Width, cfg.Height, nil
}

// svgDimensions prefers the declared width and height of the root element
// and falls back to the view box.
func svgDimensions(data []byte) (int, int, error) {
	if w, h, ok := svgRootSize(data); ok {
		return w, h, nil
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode)
	if err != nil {
		if !looksLikeSVG(data) {
			return 0, 0, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return defaultVectorWidth, defaultVectorHeight, nil
	}
	w := int(math.Ceil(icon.ViewBox.W))
	h := int(math.Ceil(icon.ViewBox.H))
	if w <= 0 || h <= 0 {
		return defaultVectorWidth, defaultVectorHeight, nil
	}
	return w, h, nil
}

// svgRootSize reads absolute width and height attributes from the root
// <svg> element. Relative sizes such as "100%" are ignored.
func svgRootSize(data []byte) (int, int, bool) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err != nil {
			return 0, 0, false
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "svg" {
			return 0, 0, false
		}
		var w, h float64
		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "width":
				w = parseLength(attr.Value)
			case "height":
				h = parseLength(attr.Value)
			}
		}
		if w <= 0 || h <= 0 {
			return 0, 0, false
		}
		return int(math.Ceil(w)), int(math.Ceil(h)), true
	}
}

// parseLength parses an SVG length in px (or unitless). Other units return 0.
func parseLength(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "px"))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// DecodeDataURI decodes an RFC 2397 data URI.
func DecodeDataURI(uri string) (*Encoded, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURI)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing payload separator", ErrInvalidDataURI)
	}

	isBase64 := false
	mime := ""
	for i, part := range strings.Split(meta, ";") {
		switch {
		case i == 0:
			mime = strings.ToLower(strings.TrimSpace(part))
		case strings.EqualFold(part, "base64"):
			isBase64 = true
		}
	}

	var data []byte
	if isBase64 {
		payload = strings.Map(func(r rune) rune {
			if r == '\n' || r == '\r' || r == ' ' {
				return -1
			}
			return r
		}, payload)
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
			}
		}
		data = decoded
	} else {
		decoded, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
		}
		data = []byte(decoded)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidDataURI)
	}
	return &Encoded{Data: data, MIME: mime}, nil
}

// DataURI encodes e as a base64 data URI.
func (e *Encoded) DataURI() string {
	return "data:" + e.MIME + ";base64," + base64.StdEncoding.EncodeToString(e.Data)
}

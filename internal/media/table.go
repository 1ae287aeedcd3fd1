// Package media resolves the images and diagram captures of one export
// request into an asset table.
//
// Assets are request-local: a Table is built during resolution, extended by
// diagram binding and read by exactly one renderer. Nothing is cached
// between requests.
package media

import (
	"errors"
	"fmt"
)

// Sentinel errors for asset resolution.
var (
	ErrPathEscapesRoot   = errors.New("image path escapes permitted root")
	ErrAbsolutePath      = errors.New("absolute image paths are not permitted")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrDecode            = errors.New("image could not be decoded")
	ErrNoImageData       = errors.New("asset has no image data")
	ErrInvalidDataURI    = errors.New("invalid data URI")
	ErrInvalidDPI        = errors.New("diagram resolution out of range")
)

// Origin tells where an asset came from.
type Origin uint8

// Asset origins.
const (
	LocalImage Origin = iota
	DiagramCapture
)

func (o Origin) String() string {
	if o == DiagramCapture {
		return "diagram-capture"
	}
	return "local-image"
}

// Kind is the representation a renderer receives by default.
type Kind uint8

// Asset kinds.
const (
	Raster Kind = iota
	Vector
)

// Encoded is image bytes with their MIME type.
type Encoded struct {
	Data []byte
	MIME string
}

// Asset is one embeddable image. Width and Height are the natural size in
// reference pixels.
type Asset struct {
	ID     string
	Ref    string
	Origin Origin
	Width  int
	Height int
	DPI    int
	Raster *Encoded
	Vector *Encoded
}

// Kind returns Raster when raster bytes are present, Vector otherwise.
func (a *Asset) Kind() Kind {
	if a.Raster != nil {
		return Raster
	}
	return Vector
}

// Failure records an image reference that could not be resolved.
type Failure struct {
	Ref string
	Err error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Ref, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Table maps asset ids to assets. Ids are assigned in insertion order.
type Table struct {
	assets   map[string]*Asset
	order    []string
	byRef    map[string]string
	images   int
	diagrams int

	// Failures lists references that resolved to nothing. Resolution
	// failures are never fatal to the request.
	Failures []Failure

	// External lists remote references that were deliberately not fetched.
	External []string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		assets: make(map[string]*Asset),
		byRef:  make(map[string]string),
	}
}

// Add inserts an asset and assigns its id. Local images get ids img-1,
// img-2, ...; diagram captures get diagram-1, diagram-2, .... A local
// image whose Ref is already present is not inserted again; the existing
// id is returned.
func (t *Table) Add(a *Asset) string {
	if a.Origin == LocalImage && a.Ref != "" {
		if id, ok := t.byRef[a.Ref]; ok {
			return id
		}
	}

	switch a.Origin {
	case DiagramCapture:
		t.diagrams++
		a.ID = fmt.Sprintf("diagram-%d", t.diagrams)
	default:
		t.images++
		a.ID = fmt.Sprintf("img-%d", t.images)
	}

	t.assets[a.ID] = a
	t.order = append(t.order, a.ID)
	if a.Origin == LocalImage && a.Ref != "" {
		t.byRef[a.Ref] = a.ID
	}
	return a.ID
}

// Get returns the asset with the given id.
func (t *Table) Get(id string) (*Asset, bool) {
	a, ok := t.assets[id]
	return a, ok
}

// Has reports whether id names an asset.
func (t *Table) Has(id string) bool {
	_, ok := t.assets[id]
	return ok
}

// IDForRef returns the id assigned to a local image reference.
func (t *Table) IDForRef(ref string) (string, bool) {
	id, ok := t.byRef[ref]
	return id, ok
}

// FailureFor returns the recorded failure for ref, if any.
func (t *Table) FailureFor(ref string) (Failure, bool) {
	for _, f := range t.Failures {
		if f.Ref == ref {
			return f, true
		}
	}
	return Failure{}, false
}

// Len returns the number of assets.
func (t *Table) Len() int { return len(t.order) }

// Assets returns the assets in insertion order.
func (t *Table) Assets() []*Asset {
	out := make([]*Asset, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.assets[id])
	}
	return out
}

package mdexport

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/alnah/go-mdexport/internal/assets"
	"github.com/alnah/go-mdexport/internal/docmodel"
	"github.com/alnah/go-mdexport/internal/fonts"
	"github.com/alnah/go-mdexport/internal/media"
)

// Sentinel errors for export operations.
var (
	// Request validation errors.
	ErrEmptyPath         = errors.New("document path cannot be empty")
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrNotMarkdown       = errors.New("document is not a markdown file")
	ErrInvalidDPI        = errors.New("invalid diagram resolution")

	// Source errors.
	ErrSourceNotFound   = errors.New("source document not found")
	ErrPermissionDenied = errors.New("path outside permitted root")

	// Rendering errors.
	ErrRender         = errors.New("rendering failed")
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrFontLoad       = errors.New("fallback font could not be loaded")
	ErrGlyphCoverage  = errors.New("text contains characters no configured font covers")

	// Page settings validation errors.
	ErrInvalidPageSize    = errors.New("invalid page size")
	ErrInvalidOrientation = errors.New("invalid orientation")
	ErrInvalidMargin      = errors.New("invalid margin")

	// Asset loading errors.
	ErrStyleNotFound    = errors.New("style not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrInvalidAssetPath = errors.New("invalid asset path")
)

// Kind classifies export failures.
type Kind int

// Error kinds. AssetUnavailable never fails a request; it only appears in
// Result.Warnings.
const (
	RenderFailure Kind = iota
	InvalidRequest
	SourceNotFound
	AssetUnavailable
	PermissionDenied
)

var kindNames = map[Kind]string{
	RenderFailure:    "RenderFailure",
	InvalidRequest:   "InvalidRequest",
	SourceNotFound:   "SourceNotFound",
	AssetUnavailable: "AssetUnavailable",
	PermissionDenied: "PermissionDenied",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// HTTPStatus maps the kind to a response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case InvalidRequest:
		return http.StatusBadRequest
	case SourceNotFound:
		return http.StatusNotFound
	case PermissionDenied:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// Error is a classified export failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err. Unclassified errors are RenderFailure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return classify(err)
}

// classify maps sentinel errors onto kinds.
func classify(err error) Kind {
	switch {
	case errors.Is(err, ErrEmptyPath),
		errors.Is(err, ErrUnsupportedFormat),
		errors.Is(err, ErrNotMarkdown),
		errors.Is(err, ErrInvalidDPI),
		errors.Is(err, media.ErrInvalidDPI),
		errors.Is(err, ErrInvalidPageSize),
		errors.Is(err, ErrInvalidOrientation),
		errors.Is(err, ErrInvalidMargin):
		return InvalidRequest
	case errors.Is(err, ErrSourceNotFound):
		return SourceNotFound
	case errors.Is(err, ErrPermissionDenied),
		errors.Is(err, media.ErrPathEscapesRoot),
		errors.Is(err, media.ErrAbsolutePath):
		return PermissionDenied
	}
	return RenderFailure
}

// newError wraps err with its kind and a message.
func newError(err error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg += ": " + err.Error()
	}
	return &Error{Kind: KindOf(err), Message: msg, Err: err}
}

// asError returns err as an *Error, classifying it when needed.
func asError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: classify(err), Message: err.Error(), Err: err}
}

// translateInternal maps internal package errors onto public sentinels so
// callers can match them with errors.Is.
func translateInternal(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fonts.ErrFontLoad):
		return wrapError(ErrFontLoad, err)
	case errors.Is(err, fonts.ErrGlyphsUncovered):
		return wrapError(ErrGlyphCoverage, err)
	case errors.Is(err, media.ErrInvalidDPI):
		return wrapError(ErrInvalidDPI, err)
	case errors.Is(err, docmodel.ErrDanglingAsset), errors.Is(err, docmodel.ErrUnboundDiagram):
		return wrapError(ErrRender, err)
	}
	return convertAssetError(err)
}

// convertAssetError maps internal asset errors to public errors.
func convertAssetError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, assets.ErrStyleNotFound), errors.Is(err, assets.ErrInvalidAssetName):
		return wrapError(ErrStyleNotFound, err)
	case errors.Is(err, assets.ErrTemplateNotFound):
		return wrapError(ErrTemplateNotFound, err)
	case errors.Is(err, assets.ErrInvalidBasePath), errors.Is(err, assets.ErrPathTraversal):
		return wrapError(ErrInvalidAssetPath, err)
	}
	return err
}

// wrapError creates an error that keeps the original message and matches
// the public sentinel with errors.Is.
func wrapError(sentinel, original error) error {
	return &wrappedError{sentinel: sentinel, original: original}
}

type wrappedError struct {
	sentinel error
	original error
}

func (e *wrappedError) Error() string {
	return e.original.Error()
}

// Unwrap returns the public sentinel for errors.Is matching. Internal errors
// are not exposed.
func (e *wrappedError) Unwrap() error {
	return e.sentinel
}

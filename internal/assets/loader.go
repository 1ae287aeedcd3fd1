package assets

import (
	"fmt"
	"path"
	"strings"
)

// AssetLoader loads stylesheets and templates by name.
type AssetLoader interface {
	// LoadStyle returns ErrStyleNotFound if the style doesn't exist and
	// ErrInvalidAssetName if the name is unsafe.
	LoadStyle(name string) (string, error)

	// LoadTemplate returns ErrTemplateNotFound if the template doesn't exist
	// and ErrInvalidAssetName if the name is unsafe.
	LoadTemplate(name string) (string, error)
}

// kind is a family of assets sharing a directory and an extension.
type kind struct {
	dir      string
	ext      string
	notFound error
}

var (
	styleKind    = kind{dir: "styles", ext: ".css", notFound: ErrStyleNotFound}
	templateKind = kind{dir: "templates", ext: ".html", notFound: ErrTemplateNotFound}
)

// file is the slash-separated path of name relative to an asset root.
func (k kind) file(name string) string {
	return path.Join(k.dir, name+k.ext)
}

func (k kind) missing(name string) error {
	return fmt.Errorf("%w: %q", k.notFound, name)
}

// ValidateAssetName rejects empty names and names containing path
// separators or dots, so a name can never leave its asset directory.
func ValidateAssetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	}
	if strings.ContainsAny(name, "/\\.") {
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}

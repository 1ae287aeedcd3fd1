package mdexport

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-mdexport/internal/media"
)

// MaxSourceSize bounds the markdown documents Export reads.
const MaxSourceSize = 16 << 20

var markdownExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".mdown":    true,
	".mkd":      true,
	".mkdn":     true,
}

// CanExport reports whether path names a document that can be exported.
// Hosts poll it to decide whether export actions are available; it does
// not touch the filesystem.
func CanExport(path string) bool {
	return strings.TrimSpace(path) != "" && markdownExtensions[strings.ToLower(filepath.Ext(path))]
}

// SuggestedFilename derives the output filename from the source filename
// by replacing its extension.
func SuggestedFilename(path string, format Format) string {
	return fileStem(path) + "." + format.Extension()
}

// fileStem is the base name of path without its extension, or "document".
func fileStem(path string) string {
	base := filepath.Base(strings.TrimSpace(path))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return "document"
	}
	return stem
}

// validateRequest checks the fields that need no filesystem access.
func validateRequest(req Request) error {
	if strings.TrimSpace(req.Path) == "" {
		return ErrEmptyPath
	}
	if _, err := ParseFormat(string(req.Format)); err != nil {
		return err
	}
	if !CanExport(req.Path) {
		return fmt.Errorf("%w: %s", ErrNotMarkdown, filepath.Base(req.Path))
	}
	if req.DPI != 0 {
		if _, err := media.ValidateDPI(req.DPI); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDPI, err)
		}
	}
	return req.Page.Validate()
}

// source is a located and read markdown document.
type source struct {
	path     string // symlink-resolved absolute path
	dir      string // directory relative image references resolve against
	root     string // permitted root for images
	markdown string
}

// openSource resolves req.Path, checks it against the permitted root and
// reads it. An empty root permits any document and confines images to the
// document's directory.
func openSource(path, root string) (*source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceNotFound, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
	}

	if root != "" {
		permitted, err := resolveRoot(root)
		if err != nil {
			return nil, err
		}
		if !isUnder(resolved, permitted) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		root = permitted
	}

	data, err := readSource(resolved)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(resolved)
	if root == "" {
		root = dir
	}
	return &source{path: resolved, dir: dir, root: root, markdown: string(data)}, nil
}

func resolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving permitted root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolving permitted root: %w", err)
	}
	return resolved, nil
}

func readSource(path string) ([]byte, error) {
	f, err := os.Open(path) // #nosec G304 -- path checked against the permitted root
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s is not readable", ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a file", ErrSourceNotFound, path)
	}
	data, err := io.ReadAll(io.LimitReader(f, MaxSourceSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrSourceNotFound, path, err)
	}
	if len(data) > MaxSourceSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrNotMarkdown, path, MaxSourceSize)
	}
	return data, nil
}

// isUnder reports whether path is dir or inside it.
func isUnder(path, dir string) bool {
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(dir, string(filepath.Separator))+string(filepath.Separator))
}

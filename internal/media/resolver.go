package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-mdexport/internal/docmodel"
)

// MaxAssetSize bounds the size of a single local image.
const MaxAssetSize = 32 << 20

// ErrAssetTooLarge indicates an image exceeds MaxAssetSize.
var ErrAssetTooLarge = errors.New("image exceeds size limit")

// Resolver loads the local images referenced by a markdown document.
type Resolver struct {
	// Root is the permitted root directory. Empty means the directory of
	// the document being resolved.
	Root string

	// Workers bounds concurrent file reads. Zero means GOMAXPROCS.
	Workers int

	Logger *slog.Logger
}

// refKind classifies an image reference.
type refKind uint8

const (
	refLocal refKind = iota
	refData
	refRemote
	refSkip
)

func classifyRef(ref string) refKind {
	lower := strings.ToLower(strings.TrimSpace(ref))
	switch {
	case lower == "" || strings.HasPrefix(lower, "#"):
		return refSkip
	case strings.HasPrefix(lower, "data:"):
		return refData
	case strings.HasPrefix(lower, "http://"),
		strings.HasPrefix(lower, "https://"),
		strings.HasPrefix(lower, "//"):
		return refRemote
	}
	return refLocal
}

// ResolveRefs resolves image references relative to baseDir. Per-image
// failures are recorded in Table.Failures; only cancellation or an unusable
// root is returned as an error.
func (r *Resolver) ResolveRefs(ctx context.Context, baseDir string, refs []string) (*Table, error) {
	root, err := r.permittedRoot(baseDir)
	if err != nil {
		return nil, err
	}

	type outcome struct {
		asset *Asset
		err   error
	}
	results := make([]outcome, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for i, ref := range refs {
		switch classifyRef(ref) {
		case refSkip, refRemote:
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a, err := r.load(baseDir, root, ref)
			results[i] = outcome{asset: a, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	table := NewTable()
	for i, ref := range refs {
		switch classifyRef(ref) {
		case refSkip:
			continue
		case refRemote:
			table.External = append(table.External, ref)
			continue
		}
		res := results[i]
		if res.err != nil {
			table.Failures = append(table.Failures, Failure{Ref: ref, Err: res.err})
			r.logFailure(ref, res.err)
			continue
		}
		table.Add(res.asset)
	}
	return table, nil
}

func (r *Resolver) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func (r *Resolver) logFailure(ref string, err error) {
	if errors.Is(err, ErrPathEscapesRoot) || errors.Is(err, ErrAbsolutePath) {
		r.logger().Warn("rejected image path", "event", "security", "ref", ref, "error", err)
		return
	}
	r.logger().Debug("image unavailable", "ref", ref, "error", err)
}

// permittedRoot returns the symlink-resolved absolute root directory.
func (r *Resolver) permittedRoot(baseDir string) (string, error) {
	root := r.Root
	if root == "" {
		root = baseDir
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root %q: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolving root %q: %w", root, err)
	}
	return resolved, nil
}

// load reads one reference into an asset.
func (r *Resolver) load(baseDir, root, ref string) (*Asset, error) {
	if classifyRef(ref) == refData {
		enc, err := DecodeDataURI(ref)
		if err != nil {
			return nil, err
		}
		return newAsset(ref, enc.Data, "")
	}

	path, err := r.localPath(baseDir, root, ref)
	if err != nil {
		return nil, err
	}
	data, err := readLimited(path)
	if err != nil {
		return nil, err
	}
	return newAsset(ref, data, path)
}

// localPath turns a relative reference into a verified absolute path.
func (r *Resolver) localPath(baseDir, root, ref string) (string, error) {
	cleaned := strings.TrimPrefix(ref, "file://")
	if unescaped, err := url.PathUnescape(cleaned); err == nil {
		cleaned = unescaped
	}
	if strings.HasPrefix(ref, "file://") || filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "/") {
		return "", fmt.Errorf("%w: %s", ErrAbsolutePath, ref)
	}

	joined, err := filepath.Abs(filepath.Join(baseDir, filepath.FromSlash(cleaned)))
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", ref, err)
	}
	// Lexical check first so that missing files outside the root are
	// reported as escapes, not as missing.
	if !isUnder(joined, root) && !isUnder(evalDir(joined), root) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesRoot, ref)
	}

	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", fmt.Errorf("image %q: %w", ref, err)
	}
	if !isUnder(resolved, root) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesRoot, ref)
	}
	return resolved, nil
}

// evalDir resolves symlinks in the parent directory of path, so a
// document directory reached through a symlink still matches the root.
func evalDir(path string) string {
	dir, err := filepath.EvalSymlinks(filepath.Dir(path))
	if err != nil {
		return path
	}
	return filepath.Join(dir, filepath.Base(path))
}

// isUnder reports whether path equals dir or lies beneath it.
func isUnder(path, dir string) bool {
	cleanPath := filepath.Clean(path)
	cleanDir := filepath.Clean(dir)
	if cleanPath == cleanDir {
		return true
	}
	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}
	return strings.HasPrefix(cleanPath, cleanDir)
}

func readLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnsupportedFormat, path)
	}
	if info.Size() > MaxAssetSize {
		return nil, fmt.Errorf("%w: %s (%d bytes)", ErrAssetTooLarge, path, info.Size())
	}
	return io.ReadAll(io.LimitReader(f, MaxAssetSize+1))
}

func newAsset(ref string, data []byte, name string) (*Asset, error) {
	if name == "" {
		name = ref
	}
	mime, err := DetectMIME(data, name)
	if err != nil {
		return nil, err
	}
	w, h, err := Dimensions(data, mime)
	if err != nil {
		return nil, err
	}

	a := &Asset{Ref: ref, Origin: LocalImage, Width: w, Height: h, DPI: int(referenceDPI)}
	enc := &Encoded{Data: data, MIME: mime}
	if mime == MIMESVG {
		a.Vector = enc
	} else {
		a.Raster = enc
	}
	return a, nil
}

// Lookup implements docmodel.Lookup over the resolved references.
func (t *Table) Lookup(ref string) docmodel.Resolution {
	if id, ok := t.byRef[ref]; ok {
		return docmodel.Resolution{AssetID: id}
	}
	for _, ext := range t.External {
		if ext == ref {
			return docmodel.Resolution{
				Kind:    docmodel.ExternalImage,
				Message: "external image not embedded: " + ref,
			}
		}
	}
	return docmodel.Resolution{Kind: docmodel.ImageNotFound, Message: "image not found: " + ref}
}

// Package fileutil writes export artifacts to disk and classifies
// config arguments.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for file utility operations.
var (
	ErrExtensionEmpty   = errors.New("extension cannot be empty")
	ErrExtensionInvalid = errors.New("extension contains path separator or null byte")
)

// tempPrefix names every temporary file this module creates.
const tempPrefix = "mdexport-"

// WriteTemp stores data in a new temporary file ending in "."+ext. The
// caller must call cleanup once the file is no longer needed.
func WriteTemp(data []byte, ext string) (path string, cleanup func(), err error) {
	if err := checkExtension(ext); err != nil {
		return "", nil, err
	}

	f, err := os.CreateTemp("", tempPrefix+"*."+ext)
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}
	path = f.Name()
	cleanup = func() { _ = os.Remove(path) }

	if err := finish(f, data); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("writing temp file: %w", err)
	}
	return path, cleanup, nil
}

// WriteAtomic replaces path with data. The bytes go to a sibling temporary
// file first, so readers of path see either the old document or the new
// one, never a partial write. Missing parent directories are created with
// dirPerm.
func WriteAtomic(path string, data []byte, perm, dirPerm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, "."+tempPrefix+"*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if err := f.Chmod(perm); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := finish(f, data); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// finish writes data and closes f, reporting the first failure.
func finish(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func checkExtension(ext string) error {
	if ext == "" {
		return ErrExtensionEmpty
	}
	if strings.ContainsAny(ext, "/\\\x00") {
		return ErrExtensionInvalid
	}
	return nil
}

// FileExists reports whether path names an existing non-directory.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// IsFilePath reports whether a --config argument is a path ("./team.yaml",
// `C:\cfg\team.yaml`) rather than a name to search for ("team").
func IsFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

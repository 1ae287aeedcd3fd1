// Package yamlutil is the single place goccy/go-yaml is imported. Config
// files decode strictly, so a misspelled key is an error; markdown front
// matter decodes leniently, since it carries keys for other tools.
package yamlutil

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// MaxInputSize caps the bytes decoded from one document.
var MaxInputSize = 1 << 20

var (
	ErrNilData        = errors.New("yamlutil: nil or empty data")
	ErrNilDestination = errors.New("yamlutil: nil destination pointer")
	ErrInputTooLarge  = errors.New("yamlutil: input exceeds maximum size")
)

func checkSize(n int64) error {
	if n > int64(MaxInputSize) {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, n, MaxInputSize)
	}
	return nil
}

func decode(data []byte, v any, opts ...yaml.DecodeOption) error {
	switch {
	case len(data) == 0:
		return ErrNilData
	case v == nil:
		return ErrNilDestination
	}
	if err := checkSize(int64(len(data))); err != nil {
		return err
	}
	if err := yaml.UnmarshalWithOptions(data, v, opts...); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}

// UnmarshalStrict decodes data into v and rejects keys v does not declare.
func UnmarshalStrict(data []byte, v any) error {
	return decode(data, v, yaml.Strict())
}

// Unmarshal decodes data into v, ignoring undeclared keys.
func Unmarshal(data []byte, v any) error {
	return decode(data, v)
}

// ReadFile strictly decodes the file at path into v, checking its size
// before reading it. File system errors come back unwrapped, so callers
// can still test them with os.IsNotExist.
func ReadFile(path string, v any) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if err := checkSize(info.Size()); err != nil {
		return err
	}
	data, err := os.ReadFile(path) // #nosec G304 -- caller-chosen config path
	if err != nil {
		return err
	}
	return UnmarshalStrict(data, v)
}

// Marshal encodes v with two-space indentation and indented sequences.
func Marshal(v any) ([]byte, error) {
	out, err := yaml.MarshalWithOptions(v, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		return nil, fmt.Errorf("yamlutil: %w", err)
	}
	return out, nil
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-mdexport"
	"github.com/alnah/go-mdexport/internal/fileutil"
	"github.com/alnah/go-mdexport/internal/hints"
)

// Sentinel errors for CLI operations.
var (
	ErrUsage           = errors.New("invalid usage")
	ErrNoInput         = errors.New("no input specified")
	ErrReadDiagrams    = errors.New("failed to read diagram captures")
	ErrInvalidDiagrams = errors.New("invalid diagram captures")
	ErrWriteOutput     = errors.New("failed to write output file")
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// stdioPath selects stdin or stdout instead of a file.
const stdioPath = "-"

// runExport exports one markdown file.
func runExport(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseExportFlags(args, env.Stderr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	switch {
	case len(positional) == 0:
		return ErrNoInput
	case len(positional) > 1:
		return fmt.Errorf("%w: export takes one file, got %d", ErrUsage, len(positional))
	}
	input := positional[0]

	cfg, err := loadConfig(flags.common.config)
	if err != nil {
		return err
	}
	if err := mergeEngineFlags(&flags.engine, cfg); err != nil {
		return err
	}

	format, err := resolveFormat(flags.format, flags.output)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	diagrams, err := readDiagrams(flags.diagrams, env.Stdin)
	if err != nil {
		return err
	}

	logger := newLogger(env.Stderr, flags.common.verbose, flags.common.quiet, slog.LevelWarn)
	opts := exporterOptions(cfg, logger)
	if flags.common.verbose {
		opts = append(opts, mdexport.WithStateObserver(func(tr mdexport.Transition) {
			fmt.Fprintf(env.Stderr, "  %s -> %s\n", tr.From, tr.To)
		}))
	}

	svc, err := env.NewService(1, opts...)
	if err != nil {
		return withHint(err, cfg)
	}
	defer func() { _ = svc.Close() }()

	start := env.Now()
	res, err := svc.Export(ctx, mdexport.Request{Path: input, Format: format, Diagrams: diagrams})
	if err != nil {
		return withHint(err, cfg)
	}

	outPath := resolveOutputPath(input, flags.output, res.Filename)
	status := env.Stdout
	if outPath == stdioPath {
		if _, err := env.Stdout.Write(res.Data); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteOutput, err)
		}
		status = env.Stderr
	} else if err := writeOutput(outPath, res.Data); err != nil {
		return withHint(err, cfg)
	}

	if flags.common.quiet {
		return nil
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(env.Stderr, "warning: %s\n", w)
	}
	if outPath == stdioPath {
		outPath = "stdout"
	}
	if flags.common.verbose {
		fmt.Fprintf(status, "Created %s (%s, %d bytes, %v)\n", outPath, format, len(res.Data), env.Now().Sub(start).Round(time.Millisecond))
	} else {
		fmt.Fprintf(status, "Created %s\n", outPath)
	}
	return nil
}

// resolveFormat picks the format from --format, then the --output
// extension, then PDF.
func resolveFormat(flagFormat, output string) (mdexport.Format, error) {
	if flagFormat != "" {
		return mdexport.ParseFormat(flagFormat)
	}
	if output != "" && output != stdioPath {
		if ext := strings.TrimPrefix(filepath.Ext(output), "."); ext != "" {
			if f, err := mdexport.ParseFormat(ext); err == nil {
				return f, nil
			}
		}
	}
	return mdexport.FormatPDF, nil
}

// diagramFile is the object form of a diagram capture file. A bare JSON
// array of diagrams is accepted too.
type diagramFile struct {
	Diagrams []mdexport.Diagram `json:"mermaidDiagrams"`
}

// readDiagrams loads captured diagrams from path, or stdin for "-".
func readDiagrams(path string, stdin io.Reader) ([]mdexport.Diagram, error) {
	if path == "" {
		return nil, nil
	}

	var data []byte
	var err error
	if path == stdioPath {
		data, err = io.ReadAll(io.LimitReader(stdin, mdexport.MaxSourceSize*4))
	} else {
		data, err = os.ReadFile(path) // #nosec G304 -- user-provided capture file
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadDiagrams, err)
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []mdexport.Diagram
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDiagrams, err)
		}
		return list, nil
	}
	var file diagramFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDiagrams, err)
	}
	return file.Diagrams, nil
}

// resolveOutputPath places the output next to the input unless --output
// names a file, a directory, or stdout.
func resolveOutputPath(input, output, filename string) string {
	switch {
	case output == stdioPath:
		return stdioPath
	case output == "":
		return filepath.Join(filepath.Dir(input), filename)
	case strings.HasSuffix(output, "/") || strings.HasSuffix(output, string(filepath.Separator)):
		return filepath.Join(output, filename)
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, filename)
	}
	return output
}

// writeOutput replaces path with data, creating parent directories.
func writeOutput(path string, data []byte) error {
	if err := fileutil.WriteAtomic(path, data, filePermissions, dirPermissions); err != nil { // #nosec G306 -- exported documents are meant to be shared
		return fmt.Errorf("%w: %w%s", ErrWriteOutput, err, hints.ForWriteOutput(path))
	}
	return nil
}

package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// rateLimitUnset detects if --rate-limit was explicitly set.
// 0 is meaningful (unlimited), so an out-of-range sentinel is used.
const rateLimitUnset = -1

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// pageFlags holds page layout flags.
type pageFlags struct {
	size        string
	orientation string
	margin      float64
}

// engineFlags holds exporter settings shared by export and serve.
type engineFlags struct {
	root            string
	timeout         string
	workers         int
	assetPath       string
	fallbackFonts   []string
	requireCoverage bool
	highlightStyle  string
	dpi             int
	page            pageFlags
}

// exportFlags holds all flags for the export command.
type exportFlags struct {
	common   commonFlags
	engine   engineFlags
	format   string
	output   string
	diagrams string
}

// serveFlags holds all flags for the serve command.
type serveFlags struct {
	common    commonFlags
	engine    engineFlags
	addr      string
	rateLimit int
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show export states and timing")
}

// addPageFlags adds page layout flags to a FlagSet.
func addPageFlags(fs *flag.FlagSet, f *pageFlags) {
	fs.StringVarP(&f.size, "page-size", "p", "", "page size: letter, a4, legal")
	fs.StringVar(&f.orientation, "orientation", "", "page orientation: portrait, landscape")
	fs.Float64Var(&f.margin, "margin", 0, "PDF margin in inches (0.25-3.0)")
}

// addEngineFlags adds exporter flags to a FlagSet.
func addEngineFlags(fs *flag.FlagSet, f *engineFlags) {
	fs.StringVar(&f.root, "root", "", "permitted root for documents and images")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "export timeout (e.g., 30s, 2m)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "browser instances (0 = auto)")
	fs.StringVar(&f.assetPath, "asset-path", "", "custom stylesheet and template directory")
	fs.StringArrayVar(&f.fallbackFonts, "fallback-font", nil, "TrueType font for characters the Go font lacks (repeatable)")
	fs.BoolVar(&f.requireCoverage, "require-coverage", false, "fail PDF exports with characters no font covers")
	fs.StringVar(&f.highlightStyle, "highlight-style", "", "code highlighting style (chroma name)")
	fs.IntVar(&f.dpi, "dpi", 0, "diagram resolution (72-600, default 150)")
	addPageFlags(fs, &f.page)
}

// parseExportFlags parses export command flags and returns positional args.
func parseExportFlags(args []string, usage io.Writer) (*exportFlags, []string, error) {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	f := &exportFlags{}

	fs.StringVarP(&f.format, "format", "f", "", "output format: pdf, docx, html (default: from --output, else pdf)")
	fs.StringVarP(&f.output, "output", "o", "", "output file or directory (\"-\" = stdout)")
	fs.StringVar(&f.diagrams, "diagrams", "", "JSON file of captured diagrams (\"-\" = stdin)")

	addCommonFlags(fs, &f.common)
	addEngineFlags(fs, &f.engine)

	fs.SetOutput(usage)
	fs.Usage = func() { printExportUsage(usage) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseServeFlags parses serve command flags and returns positional args.
func parseServeFlags(args []string, usage io.Writer) (*serveFlags, []string, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	f := &serveFlags{}

	fs.StringVar(&f.addr, "addr", "", "listen address (default 127.0.0.1:8080)")
	fs.IntVar(&f.rateLimit, "rate-limit", rateLimitUnset, "requests per client per window (0 = unlimited)")

	addCommonFlags(fs, &f.common)
	addEngineFlags(fs, &f.engine)

	fs.SetOutput(usage)
	fs.Usage = func() { printServeUsage(usage) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

package mdexport

import (
	"log/slog"
	"time"
)

// Option configures an Exporter.
type Option func(*Exporter)

// exporterConfig holds internal configuration for Exporter.
type exporterConfig struct {
	timeout         time.Duration
	root            string
	workers         int
	assetPath       string
	page            *PageSettings
	dpi             int
	fallbackFonts   []string
	requireCoverage bool
	highlightStyle  string
}

// defaultTimeout is used when no timeout is specified.
const defaultTimeout = 30 * time.Second

// defaultHighlightStyle is the chroma style of fenced code.
const defaultHighlightStyle = "github"

// WithTimeout sets the export timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("mdexport: WithTimeout duration must be positive")
	}
	return func(e *Exporter) {
		e.cfg.timeout = d
	}
}

// WithRoot restricts documents and images to dir. Without it, any readable
// document is accepted and images are confined to the document's directory.
func WithRoot(dir string) Option {
	return func(e *Exporter) {
		e.cfg.root = dir
	}
}

// WithWorkers bounds concurrent image reads per export. Zero means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Exporter) {
		e.cfg.workers = n
	}
}

// WithAssetPath loads stylesheets and the document template from dir,
// falling back to the embedded defaults.
func WithAssetPath(dir string) Option {
	return func(e *Exporter) {
		e.cfg.assetPath = dir
	}
}

// WithAssetLoader sets a custom asset loader. It takes precedence over
// WithAssetPath.
func WithAssetLoader(loader AssetLoader) Option {
	return func(e *Exporter) {
		e.loader = loader
	}
}

// WithPageSettings sets the paper used when a request carries none.
func WithPageSettings(p *PageSettings) Option {
	return func(e *Exporter) {
		e.cfg.page = p
	}
}

// WithDiagramDPI sets the diagram resolution used when a request carries none.
func WithDiagramDPI(dpi int) Option {
	return func(e *Exporter) {
		e.cfg.dpi = dpi
	}
}

// WithFallbackFonts embeds the given TrueType files in PDF output for
// characters the primary font cannot display.
func WithFallbackFonts(paths ...string) Option {
	return func(e *Exporter) {
		e.cfg.fallbackFonts = append([]string(nil), paths...)
	}
}

// WithRequireCoverage fails PDF exports containing characters that no
// embedded font covers, instead of relying on system fonts.
func WithRequireCoverage(require bool) Option {
	return func(e *Exporter) {
		e.cfg.requireCoverage = require
	}
}

// WithHighlightStyle sets the chroma style used for fenced code.
func WithHighlightStyle(name string) Option {
	return func(e *Exporter) {
		e.cfg.highlightStyle = name
	}
}

// WithLogger sets the structured logger for diagnostics and security events.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) {
		e.logger = l
	}
}

// WithStateObserver registers fn to receive every state transition.
// fn runs synchronously on the exporting goroutine.
func WithStateObserver(fn StateObserver) Option {
	return func(e *Exporter) {
		e.observer = fn
	}
}

// withPDFRenderer injects the PDF backend (tests).
func withPDFRenderer(r pdfRenderer) Option {
	return func(e *Exporter) {
		e.pdf = r
	}
}

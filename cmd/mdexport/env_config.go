package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alnah/go-mdexport"
	"github.com/alnah/go-mdexport/internal/config"
	"github.com/alnah/go-mdexport/internal/hints"
)

// ErrInvalidTimeout is returned for unparsable or non-positive --timeout values.
var ErrInvalidTimeout = errors.New("invalid timeout")

// loadConfig loads the named config, or the defaults when name is empty.
func loadConfig(name string) (*config.Config, error) {
	if name == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadConfig(name)
	if errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmt.Errorf("loading config: %w%s", err, hints.ForConfigNotFound(config.SearchPaths(name)))
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// mergeEngineFlags applies CLI flags over cfg (CLI wins) and validates the result.
func mergeEngineFlags(f *engineFlags, cfg *config.Config) error {
	if f.root != "" {
		cfg.Root = f.root
	}
	if f.timeout != "" {
		d, err := time.ParseDuration(f.timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: %q (use a positive duration like 30s or 2m)", ErrInvalidTimeout, f.timeout)
		}
		cfg.Timeout = d
	}
	if f.workers != 0 {
		cfg.Workers = f.workers
	}
	if f.assetPath != "" {
		cfg.Assets.BasePath = f.assetPath
	}
	if len(f.fallbackFonts) > 0 {
		cfg.Fonts.Fallback = f.fallbackFonts
	}
	if f.requireCoverage {
		cfg.Fonts.RequireCoverage = true
	}
	if f.highlightStyle != "" {
		cfg.Code.HighlightStyle = f.highlightStyle
	}
	if f.dpi != 0 {
		cfg.Diagrams.DPI = f.dpi
	}
	if f.page.size != "" {
		cfg.Page.Size = f.page.size
	}
	if f.page.orientation != "" {
		cfg.Page.Orientation = f.page.orientation
	}
	if f.page.margin != 0 {
		cfg.Page.Margin = f.page.margin
	}
	return cfg.Validate()
}

// buildPageSettings returns nil when the config leaves the page untouched.
func buildPageSettings(cfg *config.Config) *mdexport.PageSettings {
	p := cfg.Page
	if p.Size == "" && p.Orientation == "" && p.Margin == 0 {
		return nil
	}
	page := mdexport.DefaultPageSettings()
	if p.Size != "" {
		page.Size = p.Size
	}
	if p.Orientation != "" {
		page.Orientation = p.Orientation
	}
	if p.Margin != 0 {
		page.Margin = p.Margin
	}
	return page
}

// exporterOptions translates the config into exporter options.
func exporterOptions(cfg *config.Config, logger *slog.Logger) []mdexport.Option {
	opts := []mdexport.Option{mdexport.WithLogger(logger)}
	if cfg.Root != "" {
		opts = append(opts, mdexport.WithRoot(cfg.Root))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mdexport.WithTimeout(cfg.Timeout))
	}
	if cfg.Assets.BasePath != "" {
		opts = append(opts, mdexport.WithAssetPath(cfg.Assets.BasePath))
	}
	if page := buildPageSettings(cfg); page != nil {
		opts = append(opts, mdexport.WithPageSettings(page))
	}
	if cfg.Diagrams.DPI != 0 {
		opts = append(opts, mdexport.WithDiagramDPI(cfg.Diagrams.DPI))
	}
	if len(cfg.Fonts.Fallback) > 0 {
		opts = append(opts, mdexport.WithFallbackFonts(cfg.Fonts.Fallback...))
	}
	if cfg.Fonts.RequireCoverage {
		opts = append(opts, mdexport.WithRequireCoverage(true))
	}
	if cfg.Code.HighlightStyle != "" {
		opts = append(opts, mdexport.WithHighlightStyle(cfg.Code.HighlightStyle))
	}
	return opts
}

// newLogger builds the diagnostics logger. --verbose lowers the level to
// debug and --quiet raises it to errors only.
func newLogger(w io.Writer, verbose, quiet bool, level slog.Level) *slog.Logger {
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// withHint appends the hint matching err, keeping err matchable.
func withHint(err error, cfg *config.Config) error {
	var hint string
	switch {
	case errors.Is(err, mdexport.ErrBrowserConnect), errors.Is(err, mdexport.ErrPageCreate):
		hint = hints.ForBrowserConnect()
	case errors.Is(err, context.DeadlineExceeded):
		hint = hints.ForTimeout()
	case mdexport.KindOf(err) == mdexport.PermissionDenied:
		hint = hints.ForPermissionDenied(cfg.Root)
	case errors.Is(err, mdexport.ErrFontLoad):
		hint = hints.ForFontLoad()
	case errors.Is(err, mdexport.ErrGlyphCoverage):
		hint = hints.ForGlyphCoverage()
	}
	if hint == "" {
		return err
	}
	return fmt.Errorf("%w%s", err, hint)
}

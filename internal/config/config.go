// Package config loads exporter settings from YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-mdexport/internal/fileutil"
	"github.com/alnah/go-mdexport/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrFieldRange      = errors.New("field out of range")
)

// Field limits for multi-tenant safety.
const (
	MaxPathLength        = 4096 // PATH_MAX on Linux
	MaxAddrLength        = 255  // host:port
	MaxPageSizeLength    = 10   // "letter", "a4", "legal"
	MaxOrientationLength = 10   // "portrait", "landscape"
	MaxStyleNameLength   = 64   // chroma style name
	MaxFallbackFonts     = 16
	MaxWorkers           = 64
	MinDiagramDPI        = 72
	MaxDiagramDPI        = 600
)

// Config holds all configuration for exports and the HTTP adapter.
type Config struct {
	Root     string         `yaml:"root"`    // Permitted root for documents and images (empty = document directory)
	Timeout  time.Duration  `yaml:"timeout"` // Per-export timeout (0 = library default)
	Workers  int            `yaml:"workers"` // Browser instances (0 = auto)
	Server   ServerConfig   `yaml:"server"`
	Page     PageConfig     `yaml:"page"`
	Diagrams DiagramsConfig `yaml:"diagrams"`
	Fonts    FontsConfig    `yaml:"fonts"`
	Code     CodeConfig     `yaml:"code"`
	Assets   AssetsConfig   `yaml:"assets"`
}

// ServerConfig defines the HTTP adapter options.
type ServerConfig struct {
	Addr       string        `yaml:"addr"`       // Listen address (default: "127.0.0.1:8080")
	RateLimit  int           `yaml:"rateLimit"`  // Requests per client per window (0 = unlimited)
	RateWindow time.Duration `yaml:"rateWindow"` // Rate limit window (default: 1m)
}

// PageConfig defines paper for PDF and DOCX.
type PageConfig struct {
	Size        string  `yaml:"size"`        // "letter", "a4", "legal" (default: "letter")
	Orientation string  `yaml:"orientation"` // "portrait", "landscape" (default: "portrait")
	Margin      float64 `yaml:"margin"`      // inches, PDF only (default: 0.5)
}

// DiagramsConfig defines diagram capture handling.
type DiagramsConfig struct {
	DPI int `yaml:"dpi"` // Resolution of captured PNGs (0 = 150)
}

// FontsConfig defines PDF font embedding.
type FontsConfig struct {
	Fallback        []string `yaml:"fallback"`        // TrueType files for characters the Go font lacks
	RequireCoverage bool     `yaml:"requireCoverage"` // Fail when a character has no embedded glyph
}

// CodeConfig defines fenced code rendering.
type CodeConfig struct {
	HighlightStyle string `yaml:"highlightStyle"` // chroma style (default: "github")
}

// AssetsConfig defines asset loading options.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // Empty = use embedded assets
}

// Validate checks field lengths and ranges to prevent abuse in
// multi-tenant scenarios. Semantic page checks (known sizes, margin
// bounds) are left to the exporter.
func (c *Config) Validate() error {
	if err := validateFieldLength("root", c.Root, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("assets.basePath", c.Assets.BasePath, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("server.addr", c.Server.Addr, MaxAddrLength); err != nil {
		return err
	}
	if err := validateFieldLength("page.size", c.Page.Size, MaxPageSizeLength); err != nil {
		return err
	}
	if err := validateFieldLength("page.orientation", c.Page.Orientation, MaxOrientationLength); err != nil {
		return err
	}
	if err := validateFieldLength("code.highlightStyle", c.Code.HighlightStyle, MaxStyleNameLength); err != nil {
		return err
	}

	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative, got %s", ErrFieldRange, c.Timeout)
	}
	if c.Workers < 0 || c.Workers > MaxWorkers {
		return fmt.Errorf("%w: workers must be between 0 and %d, got %d", ErrFieldRange, MaxWorkers, c.Workers)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("%w: server.rateLimit must not be negative, got %d", ErrFieldRange, c.Server.RateLimit)
	}
	if c.Server.RateWindow < 0 {
		return fmt.Errorf("%w: server.rateWindow must not be negative, got %s", ErrFieldRange, c.Server.RateWindow)
	}
	if c.Diagrams.DPI != 0 && (c.Diagrams.DPI < MinDiagramDPI || c.Diagrams.DPI > MaxDiagramDPI) {
		return fmt.Errorf("%w: diagrams.dpi must be between %d and %d, got %d", ErrFieldRange, MinDiagramDPI, MaxDiagramDPI, c.Diagrams.DPI)
	}
	if c.Page.Margin < 0 {
		return fmt.Errorf("%w: page.margin must not be negative, got %.2f", ErrFieldRange, c.Page.Margin)
	}

	if len(c.Fonts.Fallback) > MaxFallbackFonts {
		return fmt.Errorf("%w: fonts.fallback lists %d files (max %d)", ErrFieldRange, len(c.Fonts.Fallback), MaxFallbackFonts)
	}
	for i, p := range c.Fonts.Fallback {
		if err := validateFieldLength(fmt.Sprintf("fonts.fallback[%d]", i), p, MaxPathLength); err != nil {
			return err
		}
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:       "127.0.0.1:8080",
			RateLimit:  60,
			RateWindow: time.Minute,
		},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback). Fields the
// file leaves out keep their DefaultConfig values.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	if err := yamlutil.ReadFile(configPath, cfg); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SearchPaths lists the files tried for a config name, in lookup order:
// the current directory, then $XDG_CONFIG_HOME/go-mdexport/, each with
// .yaml before .yml.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)
	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, "go-mdexport", name+ext))
		}
	}
	return paths
}

// resolveConfigPath returns the first existing file of SearchPaths.
func resolveConfigPath(name string) (string, error) {
	tried := SearchPaths(name)
	for _, p := range tried {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}

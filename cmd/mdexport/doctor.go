package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"

	"github.com/alnah/go-mdexport"
	"github.com/alnah/go-mdexport/internal/assets"
	"github.com/alnah/go-mdexport/internal/config"
	"github.com/alnah/go-mdexport/internal/fileutil"
	"github.com/alnah/go-mdexport/internal/fonts"
	"github.com/alnah/go-mdexport/internal/hints"
	"github.com/alnah/go-mdexport/internal/yamlutil"
)

// Doctor statuses.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

// doctorResult is the outcome of every check. Formats reports which
// export targets work on this machine with this config.
type doctorResult struct {
	Status   string          `json:"status"`
	Formats  map[string]bool `json:"formats"`
	Browser  browserInfo     `json:"browser"`
	Env      envInfo         `json:"environment"`
	TempDir  string          `json:"temp_dir"`
	Config   *configInfo     `json:"config,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
	Errors   []string        `json:"errors,omitempty"`
}

// browserInfo describes the Chrome used for PDF printing.
type browserInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

// configInfo is the effective configuration and the checks that depend on it.
type configInfo struct {
	Source    string   `json:"source"`
	Effective string   `json:"effective"` // YAML
	RootOK    bool     `json:"root_ok"`
	FontsOK   bool     `json:"fonts_ok"`
	FontCount int      `json:"font_count"`
	AssetsOK  bool     `json:"assets_ok"`
	Overrides []string `json:"asset_overrides,omitempty"`
}

func (r *doctorResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *doctorResult) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// runDoctorCmd executes the doctor command. Only errors fail it: a machine
// without Chrome can still export HTML and DOCX.
func runDoctorCmd(args []string, env *Environment) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	jsonOutput := fs.Bool("json", false, "machine-readable output")
	configName := fs.StringP("config", "c", "", "config file name or path")
	fs.SetOutput(env.Stderr)
	fs.Usage = func() { printDoctorUsage(env.Stderr) }
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return ExitSuccess
		}
		return ExitUsage
	}

	result := runDoctor(*configName)

	if *jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == statusErrors {
		return ExitGeneral
	}
	return ExitSuccess
}

func runDoctor(configName string) *doctorResult {
	result := &doctorResult{
		Formats: map[string]bool{},
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  os.Getenv("ROD_NO_SANDBOX"),
			BrowserBin: os.Getenv("ROD_BROWSER_BIN"),
		},
	}

	checkEnvironment(result)
	checkBrowser(result)
	checkTempDir(result)
	checkConfig(result, configName)
	result.summarize()
	return result
}

// summarize derives per-format readiness and the overall status.
func (r *doctorResult) summarize() {
	configOK := r.Config != nil && r.Config.RootOK && r.Config.AssetsOK
	for _, f := range mdexport.Formats {
		r.Formats[string(f)] = configOK
	}
	pdfOK := configOK && r.Browser.Found && r.TempDir != "" && r.Config.FontsOK
	r.Formats[string(mdexport.FormatPDF)] = pdfOK

	switch {
	case len(r.Errors) > 0:
		r.Status = statusErrors
	case len(r.Warnings) > 0:
		r.Status = statusWarnings
	default:
		r.Status = statusReady
	}
}

func checkEnvironment(r *doctorResult) {
	r.Env.Container, r.Env.ContainerHint = hints.DetectContainer()
	r.Env.CI = hints.DetectCI()
}

// checkBrowser locates Chrome. A missing browser only disables PDF.
func checkBrowser(r *doctorResult) {
	path := r.Env.BrowserBin
	if path == "" {
		var found bool
		if path, found = launcher.LookPath(); !found {
			r.warn("Chrome/Chromium not found; PDF export is unavailable. Install Chrome or set ROD_BROWSER_BIN")
			return
		}
	}
	if !fileutil.FileExists(path) {
		r.warn("ROD_BROWSER_BIN points to %s, which is not a file; PDF export is unavailable", path)
		return
	}

	r.Browser = browserInfo{Found: true, Path: path, Sandbox: r.Env.NoSandbox != "1"}
	out, err := exec.Command(path, "--version").Output() // #nosec G204 -- path from env or launcher lookup
	if err != nil {
		r.warn("Could not get Chrome version: %v", err)
	} else {
		r.Browser.Version = strings.TrimSpace(string(out))
	}

	if r.Browser.Sandbox && (r.Env.Container || r.Env.CI) {
		r.warn("Container/CI detected but ROD_NO_SANDBOX is not set; Chrome may fail to start. Set ROD_NO_SANDBOX=1")
	}
}

// checkTempDir verifies PDF printing can stage its HTML file.
func checkTempDir(r *doctorResult) {
	_, cleanup, err := fileutil.WriteTemp([]byte("<!DOCTYPE html>"), "html")
	if err != nil {
		r.fail("Temp directory %s is not writable: %v", os.TempDir(), err)
		return
	}
	cleanup()
	r.TempDir = os.TempDir()
}

// checkConfig loads the named config, shows it and checks the settings
// that only fail at export time: the permitted root, the asset directory
// and fallback fonts.
func checkConfig(r *doctorResult, name string) {
	cfg := config.DefaultConfig()
	source := "defaults"
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			r.fail("Config: %v", err)
			return
		}
		cfg, source = loaded, name
	}

	info := &configInfo{Source: source, RootOK: true, FontsOK: true, AssetsOK: true, FontCount: len(cfg.Fonts.Fallback)}
	if data, err := yamlutil.Marshal(cfg); err == nil {
		info.Effective = string(data)
	}
	if cfg.Root != "" {
		if st, err := os.Stat(cfg.Root); err != nil || !st.IsDir() {
			info.RootOK = false
			r.fail("Root %s is not a readable directory", cfg.Root)
		}
	}
	if cfg.Assets.BasePath != "" {
		overrides, err := assetOverrides(cfg.Assets.BasePath)
		if err != nil {
			info.AssetsOK = false
			r.fail("Assets: %v", err)
		}
		info.Overrides = overrides
	}
	if len(cfg.Fonts.Fallback) > 0 {
		if _, err := fonts.Load(cfg.Fonts.Fallback); err != nil {
			info.FontsOK = false
			r.fail("Fallback fonts: %v", err)
		}
	}
	r.Config = info
}

// assetOverrides lists the built-in assets that basePath replaces.
func assetOverrides(basePath string) ([]string, error) {
	custom, err := assets.NewFilesystemLoader(basePath)
	if err != nil {
		return nil, err
	}

	var found []string
	loadAsset := func(load func(string) (string, error), name, file string) error {
		_, err := load(name)
		switch {
		case err == nil:
			found = append(found, file)
		case !errors.Is(err, assets.ErrStyleNotFound) && !errors.Is(err, assets.ErrTemplateNotFound):
			return err
		}
		return nil
	}

	styles, templates := assets.NewEmbeddedLoader().Names()
	for _, name := range styles {
		if err := loadAsset(custom.LoadStyle, name, "styles/"+name+".css"); err != nil {
			return found, err
		}
	}
	for _, name := range templates {
		if err := loadAsset(custom.LoadTemplate, name, "templates/"+name+".html"); err != nil {
			return found, err
		}
	}
	return found, nil
}

func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "mdexport doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Formats")
	for _, f := range mdexport.Formats {
		if r.Formats[string(f)] {
			fmt.Fprintf(w, "  [OK] %s\n", f)
		} else {
			fmt.Fprintf(w, "  [--] %s unavailable\n", f)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Browser (PDF)")
	if r.Browser.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Browser.Path)
		if r.Browser.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Browser.Version)
		}
		if r.Browser.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled (ROD_NO_SANDBOX=1)")
		}
	} else {
		fmt.Fprintln(w, "  [--] Not found")
	}
	if r.TempDir != "" {
		fmt.Fprintf(w, "  [OK] Temp directory: %s\n", r.TempDir)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  CI: detected")
	}
	fmt.Fprintln(w)

	if c := r.Config; c != nil {
		fmt.Fprintf(w, "Config (%s)\n", c.Source)
		if !c.RootOK {
			fmt.Fprintln(w, "  [ERROR] Root: not a readable directory")
		}
		switch {
		case !c.AssetsOK:
			fmt.Fprintln(w, "  [ERROR] Assets: directory unusable")
		case len(c.Overrides) > 0:
			fmt.Fprintf(w, "  [OK] Asset overrides: %s\n", strings.Join(c.Overrides, ", "))
		}
		switch {
		case c.FontCount > 0 && c.FontsOK:
			fmt.Fprintf(w, "  [OK] Fallback fonts: %d loaded\n", c.FontCount)
		case c.FontCount > 0:
			fmt.Fprintln(w, "  [ERROR] Fallback fonts: failed to load")
		}
		for _, line := range strings.Split(strings.TrimRight(c.Effective, "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
		fmt.Fprintln(w)
	}

	printList(w, "Warnings:", "[WARN]", r.Warnings)
	printList(w, "Errors:", "[ERROR]", r.Errors)

	switch r.Status {
	case statusReady:
		fmt.Fprintln(w, "Status: Ready to export")
	case statusWarnings:
		fmt.Fprintln(w, "Status: Ready with warnings")
	case statusErrors:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}

func printList(w io.Writer, title, tag string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(w, title)
	for _, item := range items {
		fmt.Fprintf(w, "  %s %s\n", tag, item)
	}
	fmt.Fprintln(w)
}

// Package hints appends actionable advice to CLI error messages and
// detects the runtime environments that advice depends on.
//
// Every hint is a single line of the form "\n  hint: <text>".
package hints

import (
	"os"
	"path/filepath"
	"strings"
)

// dockerEnvPath is the marker file Docker creates in every container.
var dockerEnvPath = "/.dockerenv"

// ciVariables are set by the common CI providers.
var ciVariables = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}

// DetectContainer reports whether the process runs in a container and
// which signal gave it away. MDEXPORT_CONTAINER=1 forces detection for
// runtimes that leave no trace.
func DetectContainer() (bool, string) {
	if os.Getenv("MDEXPORT_CONTAINER") == "1" {
		return true, "MDEXPORT_CONTAINER=1"
	}
	if _, err := os.Stat(dockerEnvPath); err == nil {
		return true, dockerEnvPath
	}
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// DetectCI reports whether a CI provider variable is set.
func DetectCI() bool {
	for _, v := range ciVariables {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// ForBrowserConnect advises on Chrome launch failures during PDF export.
func ForBrowserConnect() string {
	var advice []string

	inContainer, _ := DetectContainer()
	if (inContainer || DetectCI()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		advice = append(advice, "set ROD_NO_SANDBOX=1 inside containers and CI")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		advice = append(advice, "point ROD_BROWSER_BIN at an installed Chrome")
	}
	if len(advice) == 0 {
		return ""
	}
	advice = append(advice, "run 'mdexport doctor' to check the setup")
	return line(strings.Join(advice, "; "))
}

// ForTimeout advises on exports that ran out of time.
func ForTimeout() string {
	return line("raise --timeout (or timeout: in the config) for documents with many images or diagrams")
}

// ForConfigNotFound lists where a config name could be created.
func ForConfigNotFound(searchedPaths []string) string {
	advice := "pass --config with a path to a YAML file"
	for _, p := range searchedPaths {
		if strings.Contains(p, "go-mdexport") {
			advice += ", or create " + p
			break
		}
	}
	return line(advice)
}

// ForWriteOutput advises on output files that could not be written.
func ForWriteOutput(path string) string {
	dir := filepath.Dir(path)
	if path == "" || dir == "." {
		return line("check that the current directory is writable, or pass -o - to write to stdout")
	}
	return line("check that " + dir + " is a writable directory, or pass -o - to write to stdout")
}

// ForPermissionDenied advises when a document or image lies outside the
// permitted root.
func ForPermissionDenied(root string) string {
	if root == "" {
		return line("move the document or pass --root with a directory containing it")
	}
	return line("documents and images must live under " + root + "; pass --root to widen it")
}

// ForFontLoad advises on fallback fonts that could not be parsed.
func ForFontLoad() string {
	return line("fallback fonts must be TrueType (.ttf) files readable by the exporter")
}

// ForGlyphCoverage advises when characters have no embedded glyph.
func ForGlyphCoverage() string {
	return line("add a font covering these characters with --fallback-font, or drop --require-coverage")
}

func line(text string) string {
	if text == "" {
		return ""
	}
	return "\n  hint: " + text
}

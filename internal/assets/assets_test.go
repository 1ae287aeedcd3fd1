package assets

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
)

func TestEmbeddedLoader_LoadStyle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		styleName string
		wantErr   error
		wantText  string
	}{
		{name: "html profile", styleName: StyleHTML, wantText: "max-width: 800px"},
		{name: "print profile", styleName: StylePrint, wantText: "#DBE5F1"},
		{name: "unknown style", styleName: "nonexistent", wantErr: ErrStyleNotFound},
		{name: "empty name", styleName: "", wantErr: ErrInvalidAssetName},
		{name: "traversal with slash", styleName: "../secret", wantErr: ErrInvalidAssetName},
		{name: "traversal with backslash", styleName: "..\\secret", wantErr: ErrInvalidAssetName},
		{name: "extension in name", styleName: "html.css", wantErr: ErrInvalidAssetName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			content, err := NewEmbeddedLoader().LoadStyle(tt.styleName)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("LoadStyle(%q) error = %v, want %v", tt.styleName, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadStyle(%q) unexpected error: %v", tt.styleName, err)
			}
			if !strings.Contains(content, tt.wantText) {
				t.Errorf("LoadStyle(%q) missing %q", tt.styleName, tt.wantText)
			}
		})
	}
}

func TestEmbeddedLoader_LoadTemplate(t *testing.T) {
	t.Parallel()

	content, err := NewEmbeddedLoader().LoadTemplate(TemplateDocument)
	if err != nil {
		t.Fatalf("LoadTemplate() unexpected error: %v", err)
	}
	for _, want := range []string{"{{.Title}}", "{{.CSS}}", "{{.Body}}", `charset="utf-8"`} {
		if !strings.Contains(content, want) {
			t.Errorf("document template missing %q", want)
		}
	}

	if _, err := NewEmbeddedLoader().LoadTemplate("cover"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("LoadTemplate(cover) error = %v, want ErrTemplateNotFound", err)
	}
}

func TestEmbeddedLoader_Names(t *testing.T) {
	t.Parallel()

	styles, templates := NewEmbeddedLoader().Names()
	if want := []string{StyleHTML, StylePrint}; !reflect.DeepEqual(styles, want) {
		t.Errorf("styles = %v, want %v", styles, want)
	}
	if want := []string{TemplateDocument}; !reflect.DeepEqual(templates, want) {
		t.Errorf("templates = %v, want %v", templates, want)
	}
}

func TestNewFilesystemLoader(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{name: "empty path", path: ""},
		{name: "missing directory", path: filepath.Join(t.TempDir(), "missing")},
		{name: "regular file", path: file},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := NewFilesystemLoader(tt.path); !errors.Is(err, ErrInvalidBasePath) {
				t.Errorf("NewFilesystemLoader(%q) error = %v, want ErrInvalidBasePath", tt.path, err)
			}
		})
	}
}

func TestFilesystemLoader_Load(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	mustWrite(t, filepath.Join(base, "styles", "print.css"), "body{color:red}")
	mustWrite(t, filepath.Join(base, "templates", "document.html"), "<html>{{.Body}}</html>")

	loader, err := NewFilesystemLoader(base)
	if err != nil {
		t.Fatalf("NewFilesystemLoader() unexpected error: %v", err)
	}

	if css, err := loader.LoadStyle("print"); err != nil || css != "body{color:red}" {
		t.Errorf("LoadStyle(print) = %q, %v", css, err)
	}
	if tmpl, err := loader.LoadTemplate("document"); err != nil || !strings.Contains(tmpl, "{{.Body}}") {
		t.Errorf("LoadTemplate(document) = %q, %v", tmpl, err)
	}
	if _, err := loader.LoadStyle("html"); !errors.Is(err, ErrStyleNotFound) {
		t.Errorf("LoadStyle(html) error = %v, want ErrStyleNotFound", err)
	}
}

func TestFilesystemLoader_SymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	t.Parallel()

	base := t.TempDir()
	outside := filepath.Join(t.TempDir(), "evil.css")
	mustWrite(t, outside, "body{}")
	if err := os.MkdirAll(filepath.Join(base, "styles"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(base, "styles", "evil.css")); err != nil {
		t.Fatalf("Symlink() error = %v", err)
	}

	loader, err := NewFilesystemLoader(base)
	if err != nil {
		t.Fatalf("NewFilesystemLoader() unexpected error: %v", err)
	}
	if _, err := loader.LoadStyle("evil"); !errors.Is(err, ErrPathTraversal) {
		t.Errorf("LoadStyle(evil) error = %v, want ErrPathTraversal", err)
	}
}

func TestAssetResolver_CustomFirstWithFallback(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	mustWrite(t, filepath.Join(base, "styles", "print.css"), "custom-print")

	resolver, err := NewAssetResolver(base)
	if err != nil {
		t.Fatalf("NewAssetResolver() unexpected error: %v", err)
	}
	if !resolver.HasCustomLoader() {
		t.Error("HasCustomLoader() = false, want true")
	}

	if css, _ := resolver.LoadStyle(StylePrint); css != "custom-print" {
		t.Errorf("LoadStyle(print) = %q, want custom override", css)
	}
	if css, err := resolver.LoadStyle(StyleHTML); err != nil || !strings.Contains(css, "max-width") {
		t.Errorf("LoadStyle(html) fallback = %q, %v", css, err)
	}
	if _, err := resolver.LoadTemplate(TemplateDocument); err != nil {
		t.Errorf("LoadTemplate(document) fallback error = %v", err)
	}
	if _, err := resolver.LoadStyle("../x"); !errors.Is(err, ErrInvalidAssetName) {
		t.Errorf("validation errors must not fall back, got %v", err)
	}
}

func TestNewAssetResolver_EmbeddedOnly(t *testing.T) {
	t.Parallel()

	resolver, err := NewAssetResolver("")
	if err != nil {
		t.Fatalf("NewAssetResolver(\"\") error = %v", err)
	}
	if resolver.HasCustomLoader() {
		t.Error("expected no custom loader for empty path")
	}
	if _, err := NewAssetResolver("/nonexistent/path/abc123xyz"); !errors.Is(err, ErrInvalidBasePath) {
		t.Errorf("NewAssetResolver(missing) error = %v, want ErrInvalidBasePath", err)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestInside(t *testing.T) {
	t.Parallel()

	root := filepath.Join(string(filepath.Separator), "srv", "assets")
	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "styles", "print.css"), true},
		{root, false},
		{filepath.Join(root, "..", "x.css"), false},
		{filepath.Join(string(filepath.Separator), "srv", "assets-evil", "x.css"), false},
		{filepath.Join(root, "..foo", "x.css"), true},
	}
	for _, tt := range tests {
		if got := inside(tt.path, root); got != tt.want {
			t.Errorf("inside(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

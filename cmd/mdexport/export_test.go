package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-mdexport"
)

// ---------------------------------------------------------------------------
// TestRunExport - export command end to end with a fake service
// ---------------------------------------------------------------------------

func TestRunExport_DefaultOutputNextToInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := writeMarkdown(t, dir, "report.md")
	svc := &fakeService{}
	env, stdout, _ := testEnv(svc)

	if err := runExport(t.Context(), []string{input}, env); err != nil {
		t.Fatalf("runExport() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "report.pdf"))
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if string(data) != "exported:pdf" {
		t.Errorf("output = %q", data)
	}
	if !strings.Contains(stdout.String(), "Created "+filepath.Join(dir, "report.pdf")) {
		t.Errorf("stdout = %q", stdout)
	}
	if !svc.closed {
		t.Error("service not closed")
	}
	if svc.workers != 1 {
		t.Errorf("workers = %d, want 1 for a single export", svc.workers)
	}
}

func TestRunExport_FormatFromOutputExtension(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := writeMarkdown(t, dir, "report.md")
	out := filepath.Join(dir, "build", "site.html")
	svc := &fakeService{}
	env, _, _ := testEnv(svc)

	if err := runExport(t.Context(), []string{input, "-o", out}, env); err != nil {
		t.Fatalf("runExport() error = %v", err)
	}
	if got := svc.lastRequest(t).Format; got != mdexport.FormatHTML {
		t.Errorf("Format = %q, want html", got)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output not written to nested path: %v", err)
	}
}

func TestRunExport_Stdout(t *testing.T) {
	t.Parallel()

	input := writeMarkdown(t, t.TempDir(), "report.md")
	env, stdout, stderr := testEnv(&fakeService{})

	if err := runExport(t.Context(), []string{input, "-f", "docx", "-o", "-"}, env); err != nil {
		t.Fatalf("runExport() error = %v", err)
	}
	if stdout.String() != "exported:docx" {
		t.Errorf("stdout = %q, want document bytes only", stdout)
	}
	if !strings.Contains(stderr.String(), "Created stdout") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRunExport_WarningsAndQuiet(t *testing.T) {
	t.Parallel()

	input := writeMarkdown(t, t.TempDir(), "report.md")
	result := &mdexport.Result{Data: []byte("x"), Filename: "report.pdf", Warnings: []string{"image not found: a.png"}}

	env, stdout, stderr := testEnv(&fakeService{result: result})
	if err := runExport(t.Context(), []string{input}, env); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stderr.String(), "warning: image not found: a.png") {
		t.Errorf("stderr = %q, want warning", stderr)
	}

	env, stdout, stderr = testEnv(&fakeService{result: result})
	if err := runExport(t.Context(), []string{input, "-q"}, env); err != nil {
		t.Fatal(err)
	}
	if stdout.Len() != 0 || stderr.Len() != 0 {
		t.Errorf("quiet mode printed stdout=%q stderr=%q", stdout, stderr)
	}
}

func TestRunExport_Diagrams(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := writeMarkdown(t, dir, "report.md")
	capture := filepath.Join(dir, "diagrams.json")
	body := `{"mermaidDiagrams":[{"index":1,"svg":"<svg xmlns=\"http://www.w3.org/2000/svg\" width=\"4\" height=\"4\"/>"}]}`
	if err := os.WriteFile(capture, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	svc := &fakeService{}
	env, _, _ := testEnv(svc)
	if err := runExport(t.Context(), []string{input, "--diagrams", capture, "--dpi", "300"}, env); err != nil {
		t.Fatalf("runExport() error = %v", err)
	}

	req := svc.lastRequest(t)
	if len(req.Diagrams) != 1 || req.Diagrams[0].Index == nil || *req.Diagrams[0].Index != 1 {
		t.Errorf("Diagrams = %+v", req.Diagrams)
	}
}

func TestRunExport_WriteFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := writeMarkdown(t, dir, "report.md")
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	env, _, _ := testEnv(&fakeService{})
	err := runExport(t.Context(), []string{input, "-o", filepath.Join(blocker, "out.pdf")}, env)
	if !errors.Is(err, ErrWriteOutput) {
		t.Fatalf("error = %v, want ErrWriteOutput", err)
	}
	if !strings.Contains(err.Error(), "hint:") {
		t.Errorf("error %q should carry a hint", err)
	}
	if exitCodeFor(err) != ExitIO {
		t.Errorf("exit code = %d, want %d", exitCodeFor(err), ExitIO)
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func TestResolveFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		flag    string
		output  string
		want    mdexport.Format
		wantErr bool
	}{
		{"default pdf", "", "", mdexport.FormatPDF, false},
		{"flag wins", "docx", "out.html", mdexport.FormatDOCX, false},
		{"flag case-insensitive", "HTML", "", mdexport.FormatHTML, false},
		{"from output", "", "out.docx", mdexport.FormatDOCX, false},
		{"unknown output extension", "", "out.txt", mdexport.FormatPDF, false},
		{"stdout", "", "-", mdexport.FormatPDF, false},
		{"bad flag", "odt", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := resolveFormat(tt.flag, tt.output)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("resolveFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadDiagrams(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		return p
	}
	svg := `"<svg xmlns=\"http://www.w3.org/2000/svg\" width=\"4\" height=\"4\"/>"`

	tests := []struct {
		name    string
		path    string
		stdin   string
		want    int
		wantErr error
	}{
		{"none", "", "", 0, nil},
		{"object form", write("obj.json", `{"mermaidDiagrams":[{"svg":`+svg+`},{"svg":`+svg+`}]}`), "", 2, nil},
		{"array form", write("arr.json", ` [{"svg":`+svg+`}]`), "", 1, nil},
		{"stdin", "-", `[{"svg":` + svg + `}]`, 1, nil},
		{"missing file", filepath.Join(dir, "absent.json"), "", 0, ErrReadDiagrams},
		{"malformed", write("bad.json", `{"mermaidDiagrams":`), "", 0, ErrInvalidDiagrams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readDiagrams(tt.path, strings.NewReader(tt.stdin))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("readDiagrams() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("readDiagrams() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("readDiagrams() = %d diagrams, want %d", len(got), tt.want)
			}
		})
	}
}

func TestResolveOutputPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	tests := []struct {
		name   string
		input  string
		output string
		want   string
	}{
		{"next to input", "/docs/a.md", "", filepath.Join("/docs", "a.pdf")},
		{"stdout", "/docs/a.md", "-", "-"},
		{"explicit file", "/docs/a.md", "/out/b.pdf", "/out/b.pdf"},
		{"trailing slash", "/docs/a.md", "/out/", filepath.Join("/out", "a.pdf")},
		{"existing directory", "/docs/a.md", dir, filepath.Join(dir, "a.pdf")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := resolveOutputPath(tt.input, tt.output, "a.pdf"); got != tt.want {
				t.Errorf("resolveOutputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

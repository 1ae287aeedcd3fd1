package mdexport_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-mdexport"
)

// Example exports a markdown file to standalone HTML.
// PDF output uses the same call with FormatPDF (requires Chrome).
func Example() {
	dir, err := os.MkdirTemp("", "mdexport-example")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(path, []byte("# Hello World\n\nThis is a test.\n"), 0o644); err != nil {
		fmt.Println("error:", err)
		return
	}

	exp, err := mdexport.NewExporter(mdexport.WithRoot(dir))
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer exp.Close()

	result, err := exp.Export(context.Background(), mdexport.Request{
		Path:   path,
		Format: mdexport.FormatHTML,
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(result.Filename)
	fmt.Println(strings.Contains(string(result.Data), "<h1"))
	// Output:
	// notes.html
	// true
}

// Example_missingSource shows how failures are classified.
func Example_missingSource() {
	exp, err := mdexport.NewExporter()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer exp.Close()

	_, err = exp.Export(context.Background(), mdexport.Request{
		Path:   filepath.Join(os.TempDir(), "mdexport-example-missing", "absent.md"),
		Format: mdexport.FormatDOCX,
	})
	kind := mdexport.KindOf(err)
	fmt.Println(kind, kind.HTTPStatus())
	// Output: SourceNotFound 404
}

func ExampleCanExport() {
	fmt.Println(mdexport.CanExport("docs/guide.md"))
	fmt.Println(mdexport.CanExport("docs/guide.txt"))
	// Output:
	// true
	// false
}

func ExampleSuggestedFilename() {
	fmt.Println(mdexport.SuggestedFilename("reports/q4.md", mdexport.FormatDOCX))
	// Output: q4.docx
}

func ExampleParseFormat() {
	f, err := mdexport.ParseFormat("PDF")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(f, f.MIMEType())
	// Output: pdf application/pdf
}

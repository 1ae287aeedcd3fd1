package mdexport

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// mockPDFRenderer records printed documents and returns a fixed PDF.
type mockPDFRenderer struct {
	mu     sync.Mutex
	html   []string
	opts   []*pdfOptions
	data   []byte
	err    error
	block  bool
	panics bool
	closed bool
}

func (m *mockPDFRenderer) Print(ctx context.Context, htmlContent string, opts *pdfOptions) ([]byte, error) {
	if m.panics {
		panic("renderer exploded")
	}
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.html = append(m.html, htmlContent)
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return nil, m.err
	}
	if m.data != nil {
		return bytes.Clone(m.data), nil
	}
	return []byte(samplePDF), nil
}

func (m *mockPDFRenderer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockPDFRenderer) lastHTML(t *testing.T) string {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.html) == 0 {
		t.Fatal("renderer was never called")
	}
	return m.html[len(m.html)-1]
}

const samplePDF = "%PDF-1.4\n1 0 obj\n<< /Creator (Chromium) /CreationDate (D:20250314092653+00'00') /ModDate (D:20250314092653+00'00') >>\nendobj\n" +
	"trailer\n<< /Size 2 /Root 1 0 R /ID [<3C9B5A0F9E6D4A2B8C1D7E0F3A2B1C4D> <3C9B5A0F9E6D4A2B8C1D7E0F3A2B1C4D>] >>\n%%EOF\n"

// newTestExporter creates an Exporter backed by a mock PDF renderer.
func newTestExporter(t *testing.T, opts ...Option) (*Exporter, *mockPDFRenderer) {
	t.Helper()

	mock := &mockPDFRenderer{}
	e, err := NewExporter(append([]Option{withPDFRenderer(mock)}, opts...)...)
	if err != nil {
		t.Fatalf("NewExporter() unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e, mock
}

// writeFile writes content under dir, creating parent directories.
func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

const sampleSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="120" height="60" viewBox="0 0 120 60"><rect width="120" height="60" fill="#36c"/></svg>`

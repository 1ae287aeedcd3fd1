package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-mdexport"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Fake export service
// ---------------------------------------------------------------------------

// fakeService records requests and options and returns a fixed outcome.
type fakeService struct {
	mu      sync.Mutex
	workers int
	opts    int
	reqs    []mdexport.Request
	result  *mdexport.Result
	err     error
	closed  bool
}

func (f *fakeService) Export(ctx context.Context, req mdexport.Request) (*mdexport.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &mdexport.Result{
		Data:     []byte("exported:" + string(req.Format)),
		MIMEType: req.Format.MIMEType(),
		Filename: mdexport.SuggestedFilename(req.Path, req.Format),
	}, nil
}

func (f *fakeService) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeService) lastRequest(t *testing.T) mdexport.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reqs) == 0 {
		t.Fatal("no export request recorded")
	}
	return f.reqs[len(f.reqs)-1]
}

// testEnv returns an environment writing to buffers and backed by svc.
func testEnv(svc *fakeService) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	fixed := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	env := &Environment{
		Now:    func() time.Time { return fixed },
		Stdin:  strings.NewReader(""),
		Stdout: &stdout,
		Stderr: &stderr,
		NewService: func(workers int, opts ...mdexport.Option) (exportService, error) {
			svc.mu.Lock()
			svc.workers, svc.opts = workers, len(opts)
			svc.mu.Unlock()
			return svc, nil
		},
	}
	return env, &stdout, &stderr
}

// writeMarkdown creates a markdown file and returns its path.
func writeMarkdown(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("# Title\n\nBody.\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

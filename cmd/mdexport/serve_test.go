package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/alnah/go-mdexport"
)

func TestRunServe_ShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	env, _, stderr := testEnv(svc)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	root := t.TempDir()
	err := runServe(ctx, []string{"--addr", "127.0.0.1:0", "--root", root, "-w", "3", "--rate-limit", "0"}, env)
	if err != nil {
		t.Fatalf("runServe() error = %v", err)
	}
	if svc.workers != 3 {
		t.Errorf("workers = %d, want 3", svc.workers)
	}
	if !svc.closed {
		t.Error("service not closed after shutdown")
	}
	if !strings.Contains(stderr.String(), "Serving "+root) {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRunServe_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"positional argument", []string{"docs"}, ErrUsage},
		{"unknown flag", []string{"--port", "80"}, ErrUsage},
		{"bad timeout", []string{"-t", "0s"}, ErrInvalidTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, _, _ := testEnv(&fakeService{})
			if err := runServe(t.Context(), tt.args, env); !errors.Is(err, tt.wantErr) {
				t.Errorf("runServe() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunServe_ServiceFailure(t *testing.T) {
	t.Parallel()

	env, _, _ := testEnv(&fakeService{})
	env.NewService = func(int, ...mdexport.Option) (exportService, error) {
		return nil, mdexport.ErrStyleNotFound
	}

	err := runServe(t.Context(), []string{"--root", os.TempDir()}, env)
	if !errors.Is(err, mdexport.ErrStyleNotFound) {
		t.Errorf("runServe() error = %v, want ErrStyleNotFound", err)
	}
	if exitCodeFor(err) != ExitUsage {
		t.Errorf("exit code = %d, want %d", exitCodeFor(err), ExitUsage)
	}
}

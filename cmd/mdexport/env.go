package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/alnah/go-mdexport"
)

// exportService is the export backend shared by the export and serve
// commands. *mdexport.ExporterPool satisfies it.
type exportService interface {
	Export(ctx context.Context, req mdexport.Request) (*mdexport.Result, error)
	Close() error
}

var _ exportService = (*mdexport.ExporterPool)(nil)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Now    func() time.Time
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// NewService builds the export backend with the given browser count.
	NewService func(workers int, opts ...mdexport.Option) (exportService, error)
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:        time.Now,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		NewService: newPoolService,
	}
}

// newPoolService sizes a pool from the worker count (0 = auto).
func newPoolService(workers int, opts ...mdexport.Option) (exportService, error) {
	return mdexport.NewExporterPool(mdexport.ResolvePoolSize(workers), opts...)
}

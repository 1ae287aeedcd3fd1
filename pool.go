package mdexport

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool sizing bounds. Each exporter may own a Chrome of roughly 200MB.
const (
	MinPoolSize = 1
	MaxPoolSize = 8

	// cpuDivisor leaves a core per exporter for Chrome's helper processes.
	cpuDivisor = 2
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("exporter pool is closed")

// ExporterPool bounds concurrent exports. Each Exporter owns its browser,
// so n exporters print n PDFs in parallel. Exporters past the first are
// built on demand.
type ExporterPool struct {
	size int
	opts []Option
	sem  *semaphore.Weighted

	mu     sync.Mutex
	idle   []*Exporter
	all    []*Exporter
	closed bool
}

// NewExporterPool builds the first exporter eagerly, so invalid options
// fail here rather than on the first export.
func NewExporterPool(n int, opts ...Option) (*ExporterPool, error) {
	n = max(n, MinPoolSize)

	first, err := NewExporter(opts...)
	if err != nil {
		return nil, err
	}
	return &ExporterPool{
		size: n,
		opts: opts,
		sem:  semaphore.NewWeighted(int64(n)),
		idle: []*Exporter{first},
		all:  []*Exporter{first},
	}, nil
}

// Acquire blocks until an exporter is free or ctx is done. Every exporter
// it returns must go back through Release.
func (p *ExporterPool) Acquire(ctx context.Context) (*Exporter, error) {
	if p.isClosed() {
		return nil, ErrPoolClosed
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	e, err := p.take()
	if err != nil {
		p.sem.Release(1)
		return nil, err
	}
	return e, nil
}

// take pops an idle exporter or builds a new one. A held permit
// guarantees fewer than size exporters are busy.
func (p *ExporterPool) take() (*Exporter, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if last := len(p.idle) - 1; last >= 0 {
		e := p.idle[last]
		p.idle = p.idle[:last]
		p.mu.Unlock()
		return e, nil
	}
	p.mu.Unlock()

	e, err := NewExporter(p.opts...)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		_ = e.Close()
		return nil, ErrPoolClosed
	}
	p.all = append(p.all, e)
	return e, nil
}

// Release returns e to the pool. After Close it only frees the slot, which
// wakes a blocked Acquire so it can report ErrPoolClosed.
func (p *ExporterPool) Release(e *Exporter) {
	p.mu.Lock()
	if !p.closed {
		p.idle = append(p.idle, e)
	}
	p.mu.Unlock()
	p.sem.Release(1)
}

// Export runs req on a pooled exporter.
func (p *ExporterPool) Export(ctx context.Context, req Request) (*Result, error) {
	e, err := p.Acquire(ctx)
	if err != nil {
		return nil, toExportError(err, defaultTimeout)
	}
	defer p.Release(e)
	return e.Export(ctx, req)
}

// Close shuts every exporter down, busy ones included, and joins their
// errors.
func (p *ExporterPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	all := p.all
	p.idle, p.all = nil, nil
	p.mu.Unlock()

	var errs []error
	for _, e := range all {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *ExporterPool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Size returns the pool capacity.
func (p *ExporterPool) Size() int {
	return p.size
}

// ResolvePoolSize returns workers when positive, otherwise half of
// GOMAXPROCS clamped to [MinPoolSize, MaxPoolSize]. GOMAXPROCS already
// reflects container CPU quotas through automaxprocs.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}
	return min(max(runtime.GOMAXPROCS(0)/cpuDivisor, MinPoolSize), MaxPoolSize)
}

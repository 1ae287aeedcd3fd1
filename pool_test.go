package mdexport

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"
)

// Compile-time interface check.
var _ interface {
	Acquire(context.Context) (*Exporter, error)
	Release(*Exporter)
	Size() int
	Close() error
} = (*ExporterPool)(nil)

func TestResolvePoolSize(t *testing.T) {
	t.Parallel()

	gomaxprocs := runtime.GOMAXPROCS(0)

	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{
			name:    "explicit takes priority",
			workers: 4,
			want:    4,
		},
		{
			name:    "explicit=1 for sequential",
			workers: 1,
			want:    1,
		},
		{
			name:    "zero uses auto calculation",
			workers: 0,
			want:    min(max(gomaxprocs/cpuDivisor, MinPoolSize), MaxPoolSize),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ResolvePoolSize(tt.workers)
			if got != tt.want {
				t.Errorf("ResolvePoolSize(%d) = %d, want %d", tt.workers, got, tt.want)
			}
		})
	}
}

func newTestPool(t *testing.T, n int) *ExporterPool {
	t.Helper()

	pool, err := NewExporterPool(n, withPDFRenderer(&mockPDFRenderer{}))
	if err != nil {
		t.Fatalf("NewExporterPool() unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func TestExporterPool_AcquireRelease(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t, 2)
	ctx := context.Background()

	a, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	b, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("two concurrent acquires returned the same exporter")
	}

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := pool.Acquire(waitCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire() on exhausted pool error = %v, want deadline exceeded", err)
	}

	pool.Release(a)
	c, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if c != a {
		t.Error("released exporter was not reused")
	}
}

func TestExporterPool_InvalidOptions(t *testing.T) {
	t.Parallel()

	_, err := NewExporterPool(2, WithDiagramDPI(1), withPDFRenderer(&mockPDFRenderer{}))
	if !errors.Is(err, ErrInvalidDPI) {
		t.Errorf("NewExporterPool() error = %v, want ErrInvalidDPI", err)
	}
}

func TestExporterPool_SizeMinimum(t *testing.T) {
	t.Parallel()

	if got := newTestPool(t, 0).Size(); got != 1 {
		t.Errorf("Size() = %d, want 1", got)
	}
}

func TestExporterPool_ConcurrentExport(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t, 3)
	path := sampleDoc(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pool.Export(context.Background(), Request{Path: path, Format: FormatHTML})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Export() unexpected error: %v", err)
		}
	}
}

func TestExporterPool_Close(t *testing.T) {
	t.Parallel()

	pool, err := NewExporterPool(1, withPDFRenderer(&mockPDFRenderer{}))
	if err != nil {
		t.Fatal(err)
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("Close() unexpected error: %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
	if _, err := pool.Acquire(context.Background()); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Acquire() after Close error = %v, want ErrPoolClosed", err)
	}
}

func TestExporterPool_CloseWakesWaiter(t *testing.T) {
	t.Parallel()

	pool, err := NewExporterPool(1, withPDFRenderer(&mockPDFRenderer{}))
	if err != nil {
		t.Fatal(err)
	}
	busy, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	got := make(chan error, 1)
	go func() {
		_, err := pool.Acquire(context.Background())
		got <- err
	}()

	if err := pool.Close(); err != nil {
		t.Fatalf("Close() unexpected error: %v", err)
	}
	pool.Release(busy)

	select {
	case err := <-got:
		if !errors.Is(err, ErrPoolClosed) {
			t.Errorf("waiting Acquire() error = %v, want ErrPoolClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("waiting Acquire() never returned")
	}
}

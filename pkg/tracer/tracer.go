// Package tracer defines the ray tracer backend contract shared by all
// velocity model variants, the travel-time tables backends produce, and
// the analytic and 1D-layered backend implementations. The volumetric
// fast-marching backend lives in package eikonal and satisfies the same
// contract.
package tracer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"seistt/pkg/velocity"
)

// Backend computes first-arrival travel times from one source to many
// receivers for a seismic phase. Implementations never mutate the velocity
// model they were built from, so a backend can serve concurrent calls.
//
// Guarantees common to all backends: travel times are non-negative, a
// receiver at the source position has exactly zero travel time, and
// receivers outside the model domain are reported per receiver inside the
// returned table rather than failing the whole computation. A source
// outside the model domain fails the computation with
// velocity.ErrOutOfDomain.
type Backend interface {
	Compute(source r3.Vec, receivers []r3.Vec, phase velocity.Phase) (*Table, error)
}

// ComputeParallel computes one table per source across a pool of workers.
// Each table computation is an independent unit of work with no shared
// mutable state, so sources are distributed over min(workers, len(sources))
// goroutines; workers <= 0 uses all CPUs. The returned slice is aligned
// with sources. Failed sources leave a nil table and their errors are
// joined into the returned error.
func ComputeParallel(b Backend, sources []r3.Vec, receivers []r3.Vec, phase velocity.Phase, workers int) ([]*Table, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(sources) {
		workers = len(sources)
	}

	tables := make([]*Table, len(sources))
	errs := make([]error, len(sources))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				table, err := b.Compute(sources[i], receivers, phase)
				if err != nil {
					errs[i] = fmt.Errorf("source %d: %w", i, err)
					continue
				}
				tables[i] = table
			}
		}()
	}
	for i := range sources {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return tables, errors.Join(errs...)
}

package hessian

import (
	"golang.org/x/sync/errgroup"
)

// parallelFor splits [0, n) into at most workers contiguous chunks and runs
// fn on each chunk concurrently. Chunks are disjoint, so fn may write to
// per-index output without synchronization.
func parallelFor(workers, n int, fn func(lo, hi int) error) error {
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		return fn(0, n)
	}

	chunk := (n + workers - 1) / workers
	var g errgroup.Group
	for lo := 0; lo < n; lo += chunk {
		lo := lo
		hi := min(lo+chunk, n)
		g.Go(func() error { return fn(lo, hi) })
	}
	return g.Wait()
}

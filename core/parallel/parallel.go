// Package parallel runs index-range loops across goroutines. Random forest
// trains its trees with it, XGBoost scans features, KNN answers queries.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Span is a half-open index range [Start, End).
type Span struct{ Start, End int }

// Split cuts [0, items) into at most workers contiguous spans of near-equal
// length. workers <= 0 means runtime.NumCPU().
func Split(items, workers int) []Span {
	if items <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, items)

	size := (items + workers - 1) / workers
	spans := make([]Span, 0, workers)
	for s := 0; s < items; s += size {
		spans = append(spans, Span{Start: s, End: min(s+size, items)})
	}
	return spans
}

// ParallelizeWorkers calls fn once per span of Split(items, workers) and
// waits for all of them. A single span runs on the calling goroutine.
func ParallelizeWorkers(items, workers int, fn func(start, end int)) {
	spans := Split(items, workers)
	if len(spans) == 1 {
		fn(spans[0].Start, spans[0].End)
		return
	}

	var g errgroup.Group
	for _, sp := range spans {
		g.Go(func() error {
			fn(sp.Start, sp.End)
			return nil
		})
	}
	_ = g.Wait()
}

// Parallelize uses one span per CPU core.
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeWorkers(items, 0, fn)
}

// ParallelizeWithThreshold stays on the calling goroutine when items <= threshold.
func ParallelizeWithThreshold(items, threshold int, fn func(start, end int)) {
	if items <= threshold {
		ParallelizeWorkers(items, 1, fn)
		return
	}
	Parallelize(items, fn)
}

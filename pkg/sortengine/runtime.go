package sortengine

import "runtime"

// defaultParallelism is the fallback worker count for the parallel
// engine when the caller doesn't specify one. GOMAXPROCS (rather than
// NumCPU) is used so that callers who wire go.uber.org/automaxprocs
// at process startup (see cmd/emergesort) get a worker count that
// respects container CPU quotas.
func defaultParallelism() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		return 1
	}
	return n
}

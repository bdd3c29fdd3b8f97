package sortengine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ExecutionMode selects a ParallelExecutionEngine's concurrency
// strategy. Both are behaviorally equivalent at the contract level
// (spec §4.8) but partition work differently:
//
//   - LockBased partitions positions into contiguous ranges, one per
//     worker, and relies on SwapEngine's ordered per-pair locking
//     (spec §4.8's literal description) to make cross-partition
//     neighbor swaps safe.
//   - Parallel partitions each step into three barrier-synchronized
//     phases (positions 0, 3, 6, ..., then 1, 4, 7, ..., then 2, 5,
//     8, ...) so that, within a phase, no two BUBBLE or INSERTION cells
//     ever attempt swaps that share a position — locks are acquired but
//     are never contended. A SELECTION cell's target is not confined to
//     its stripe.
type ExecutionMode int

const (
	// LockBased is the ordered-dual-lock strategy of spec §4.8.
	LockBased ExecutionMode = iota
	// Parallel is the lock-free (uncontended) disjoint-stripe strategy.
	Parallel
)

// ParallelExecutionEngine is the concurrent variant of ExecutionEngine.
// It accepts the same MetadataProvider-based construction and produces
// a sorted configuration equivalent to the sequential engine for any
// input it successfully converges on.
type ParallelExecutionEngine struct {
	cells    []Cell
	metadata []*CellMetadata

	swapEngine *SwapEngine
	probe      *Probe
	detector   ConvergenceDetector

	mode       ExecutionMode
	numWorkers int
	stallWarn  time.Duration

	log zerolog.Logger

	mu         sync.Mutex
	state      State
	stepNumber int
	started    bool
}

// NewParallelExecutionEngine constructs a parallel engine. numWorkers
// <= 0 defaults to runtime.GOMAXPROCS(0). stallWarn <= 0 disables the
// stall watchdog, which otherwise logs a warning, without cancelling
// anything, when a step's workers have not finished within stallWarn.
func NewParallelExecutionEngine(
	cells []Cell,
	provider MetadataProvider,
	swapEngine *SwapEngine,
	probe *Probe,
	detector ConvergenceDetector,
	mode ExecutionMode,
	numWorkers int,
	stallWarn time.Duration,
	log zerolog.Logger,
) (*ParallelExecutionEngine, error) {
	if len(cells) == 0 {
		return nil, NewInvalidArgumentError("cell array must be non-empty")
	}
	if provider == nil {
		return nil, NewInvalidArgumentError("metadata provider must not be nil")
	}
	if swapEngine == nil {
		return nil, NewInvalidArgumentError("swap engine must not be nil")
	}
	if probe == nil {
		return nil, NewInvalidArgumentError("probe must not be nil")
	}
	if detector == nil {
		return nil, NewInvalidArgumentError("convergence detector must not be nil")
	}
	if numWorkers <= 0 {
		numWorkers = defaultParallelism()
	}

	n := len(cells)
	metadata := make([]*CellMetadata, n)
	for i := range metadata {
		m := provider(i)
		if m == nil {
			return nil, NewInvalidArgumentError("metadata provider returned nil for index %d", i)
		}
		if m.LeftBoundary() < 0 || m.RightBoundary() >= n || m.LeftBoundary() > m.RightBoundary() {
			return nil, NewInvalidArgumentError(
				"metadata boundaries [%d, %d] out of range for index %d (array size %d)",
				m.LeftBoundary(), m.RightBoundary(), i, n)
		}
		metadata[i] = m
	}

	e := &ParallelExecutionEngine{
		cells:      cells,
		metadata:   metadata,
		swapEngine: swapEngine,
		probe:      probe,
		detector:   detector,
		mode:       mode,
		numWorkers: numWorkers,
		stallWarn:  stallWarn,
		log:        log,
		state:      IDLE,
	}
	probe.SetFrozenStatus(swapEngine.Frozen())
	probe.RecordInitialSnapshot(cells, metadata)
	return e, nil
}

// CurrentStep returns the number of steps completed so far.
func (e *ParallelExecutionEngine) CurrentStep() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stepNumber
}

// HasConverged reports whether the engine is in the CONVERGED state.
func (e *ParallelExecutionEngine) HasConverged() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == CONVERGED
}

// State returns the engine's current lifecycle state.
func (e *ParallelExecutionEngine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Probe returns the engine's probe.
func (e *ParallelExecutionEngine) Probe() *Probe { return e.probe }

// Cells returns an immutable view of the current cell array.
func (e *ParallelExecutionEngine) Cells() []Cell {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Cell, len(e.cells))
	copy(out, e.cells)
	return out
}

// Stop requests cooperative cancellation. Checked at the next step
// boundary; workers already running a step are never interrupted
// mid-step (spec §5).
func (e *ParallelExecutionEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == IDLE || e.state == RUNNING {
		e.state = TERMINATED
	}
}

// Reset restores step counters and probe state. It does not reorder
// the cells, and it fails with InvalidStateError if called while a
// step is in flight (start/started tracks this; a simple boolean is
// sufficient since RunUntilConvergence never calls Reset itself).
func (e *ParallelExecutionEngine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started && e.state == RUNNING {
		return NewInvalidStateError("cannot reset while a step is in flight")
	}
	e.stepNumber = 0
	e.state = IDLE
	e.started = false
	e.probe.reset(e.cells, e.metadata)
	return nil
}

// Step runs a single barrier-synchronized step: workers evaluate
// §4.6 for their assigned positions and call the swap engine; once
// every worker finishes, recordStep and hasConverged run on this
// (the caller's) goroutine, matching the single-threaded coordinator
// discipline of spec §4.8.
//
// RunUntilConvergence does not track earlier calls: calling it again
// on a RUNNING engine continues the same run, and on a CONVERGED or
// TERMINATED engine it returns the current step number without error.
// Repeated direct Step calls are fine, mirroring the sequential engine.
func (e *ParallelExecutionEngine) Step(ctx context.Context) (int, error) {
	e.mu.Lock()
	if e.state == CONVERGED || e.state == TERMINATED {
		e.mu.Unlock()
		return 0, NewInvalidStateError("cannot step an engine in state %s", e.state)
	}
	if e.state == IDLE {
		e.state = RUNNING
	}
	e.started = true
	e.mu.Unlock()

	localSwaps, err := e.runOneStep(ctx)
	if err != nil {
		e.mu.Lock()
		e.state = TERMINATED
		e.started = false
		e.mu.Unlock()
		e.log.Error().Err(err).Msg("sortengine: parallel step failed, terminating")
		return 0, err
	}

	e.mu.Lock()
	e.stepNumber++
	step := e.stepNumber
	e.started = false
	e.mu.Unlock()

	e.probe.RecordStep(step, e.cells, e.metadata, localSwaps)

	if e.detector.HasConverged(e.probe, step) {
		e.mu.Lock()
		e.state = CONVERGED
		e.mu.Unlock()
		e.log.Info().Int("step", step).Str("detector", e.detector.Name()).Msg("sortengine: parallel engine converged")
	}

	return localSwaps, nil
}

func (e *ParallelExecutionEngine) runOneStep(ctx context.Context) (int, error) {
	n := len(e.cells)
	var localSwaps atomic.Int64

	runPartition := func(ctx context.Context, indices []int) error {
		for _, i := range indices {
			meta := e.metadata[i]
			algotype := meta.Algotype()

			var neighbors []int
			switch algotype {
			case BUBBLE:
				if i-1 >= 0 {
					neighbors = append(neighbors, i-1)
				}
				if i+1 < n {
					neighbors = append(neighbors, i+1)
				}
			case INSERTION:
				if i-1 >= 0 {
					neighbors = []int{i - 1}
				}
			case SELECTION:
				neighbors = []int{meta.IdealPos()}
			}

			for _, j := range neighbors {
				want, err := e.wantsSwap(i, j, algotype, meta)
				e.probe.recordCompare()
				if err != nil {
					return NewComparisonFailureError(i, j, err)
				}
				if !want {
					// j == i is SELECTION's no-op case (spec §4.6), not
					// a denial: the cell has reached its target and
					// must rest, so only a genuine p != i rejection
					// advances.
					if algotype == SELECTION && j != i {
						meta.AdvanceIdealPos()
					}
					continue
				}
				result := e.swapEngine.AttemptSwap(e.cells, e.metadata, i, j, e.probe)
				if result == EXECUTED {
					localSwaps.Add(1)
				} else if algotype == SELECTION {
					meta.AdvanceIdealPos()
				}
			}
		}
		return nil
	}

	done := make(chan error, 1)
	go func() {
		switch e.mode {
		case Parallel:
			done <- e.runStriped(ctx, n, runPartition)
		default:
			done <- e.runContiguous(ctx, n, runPartition)
		}
	}()

	if e.stallWarn > 0 {
		select {
		case err := <-done:
			return int(localSwaps.Load()), err
		case <-time.After(e.stallWarn):
			e.log.Warn().Int("step", e.stepNumber+1).Msg("sortengine: step has not completed within soft deadline")
			err := <-done
			return int(localSwaps.Load()), err
		}
	}

	err := <-done
	return int(localSwaps.Load()), err
}

// runContiguous is the LockBased partitioning: contiguous ranges, one
// per worker, coordinated with an errgroup barrier.
func (e *ParallelExecutionEngine) runContiguous(ctx context.Context, n int, run func(context.Context, []int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	workers := e.numWorkers
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		indices := makeRange(lo, hi)
		workerID := w
		g.Go(func() error {
			if err := run(gctx, indices); err != nil {
				return NewWorkerFailureError(workerID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// runStriped is the Parallel (lock-free) partitioning: three barrier
// phases, positions i with i%3 == phase, split across workers. Within
// a phase assigned indices are three apart, so the positions a BUBBLE
// or INSERTION cell touches (i-1, i, i+1) never overlap another's and
// SwapEngine's per-pair locks are acquired but never contended.
func (e *ParallelExecutionEngine) runStriped(ctx context.Context, n int, run func(context.Context, []int) error) error {
	for phase := 0; phase < 3; phase++ {
		g, gctx := errgroup.WithContext(ctx)
		var phaseIndices []int
		for i := phase; i < n; i += 3 {
			phaseIndices = append(phaseIndices, i)
		}
		workers := e.numWorkers
		if workers > len(phaseIndices) {
			workers = len(phaseIndices)
		}
		if workers == 0 {
			continue
		}
		chunk := (len(phaseIndices) + workers - 1) / workers
		for w := 0; w < workers; w++ {
			lo := w * chunk
			hi := lo + chunk
			if hi > len(phaseIndices) {
				hi = len(phaseIndices)
			}
			if lo >= hi {
				continue
			}
			indices := phaseIndices[lo:hi]
			workerID := w
			g.Go(func() error {
				if err := run(gctx, indices); err != nil {
					return NewWorkerFailureError(workerID, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func makeRange(lo, hi int) []int {
	out := make([]int, hi-lo)
	for i := range out {
		out[i] = lo + i
	}
	return out
}

func (e *ParallelExecutionEngine) wantsSwap(i, j int, algotype Algotype, meta *CellMetadata) (bool, error) {
	if algotype == SELECTION && j == i {
		return false, nil
	}
	cmp, err := e.cells[i].CompareTo(e.cells[j])
	if err != nil {
		return false, err
	}
	d := meta.Direction()
	switch algotype {
	case BUBBLE:
		if j == i-1 {
			return better(cmp, d), nil
		}
		return better(-cmp, d), nil
	case INSERTION, SELECTION:
		return better(cmp, d), nil
	default:
		return false, nil
	}
}

// RunUntilConvergence repeats Step until the engine converges or
// reaches maxSteps, whichever comes first, and returns the final step
// number.
func (e *ParallelExecutionEngine) RunUntilConvergence(ctx context.Context, maxSteps int) (int, error) {
	if maxSteps <= 0 {
		return 0, NewInvalidArgumentError("maxSteps must be positive, got %d", maxSteps)
	}

	for {
		e.mu.Lock()
		state := e.state
		step := e.stepNumber
		e.mu.Unlock()

		if state == CONVERGED || state == TERMINATED {
			return step, nil
		}
		if step >= maxSteps {
			e.mu.Lock()
			if e.state == RUNNING || e.state == IDLE {
				e.state = TERMINATED
			}
			e.mu.Unlock()
			return step, nil
		}
		select {
		case <-ctx.Done():
			e.Stop()
			return step, ctx.Err()
		default:
		}

		if _, err := e.Step(ctx); err != nil {
			return step, err
		}
	}
}

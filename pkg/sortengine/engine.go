package sortengine

import (
	"sync"

	"github.com/rs/zerolog"
)

// State is one of the ExecutionEngine's lifecycle states.
type State int

const (
	// IDLE is the state before the first Step/RunUntilConvergence.
	IDLE State = iota
	// RUNNING is the state after the first step and before
	// convergence, a Stop, or maxSteps exhaustion.
	RUNNING
	// CONVERGED is entered when the ConvergenceDetector accepts.
	CONVERGED
	// TERMINATED is entered on Stop() or maxSteps exhaustion without
	// convergence, or on a worker failure in the parallel engine.
	TERMINATED
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case IDLE:
		return "IDLE"
	case RUNNING:
		return "RUNNING"
	case CONVERGED:
		return "CONVERGED"
	case TERMINATED:
		return "TERMINATED"
	default:
		return "State(unknown)"
	}
}

// ExecutionEngine runs the sequential step loop described in spec §4.7:
// each step asks the topology for an iteration order, for each index
// asks the topology for neighbor candidates under that cell's
// algotype, evaluates the swap-decision predicate, and arbitrates
// accepted swaps through a SwapEngine.
type ExecutionEngine struct {
	cells    []Cell
	metadata []*CellMetadata

	swapEngine *SwapEngine
	probe      *Probe
	detector   ConvergenceDetector
	topology   *NeighborTopology

	log zerolog.Logger

	mu         sync.Mutex
	state      State
	stepNumber int
}

// NewExecutionEngine constructs an engine over an owned cell array. It
// records the initial snapshot (step 0) immediately, as required by
// spec §3's lifecycle. log may be the zero value (a no-op logger).
func NewExecutionEngine(
	cells []Cell,
	provider MetadataProvider,
	swapEngine *SwapEngine,
	probe *Probe,
	detector ConvergenceDetector,
	topology *NeighborTopology,
	log zerolog.Logger,
) (*ExecutionEngine, error) {
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
	if topology == nil {
		topology = NewNeighborTopology(nil)
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

	e := &ExecutionEngine{
		cells:      cells,
		metadata:   metadata,
		swapEngine: swapEngine,
		probe:      probe,
		detector:   detector,
		topology:   topology,
		log:        log,
		state:      IDLE,
	}
	probe.SetFrozenStatus(swapEngine.Frozen())
	probe.RecordInitialSnapshot(cells, metadata)
	e.log.Debug().Int("size", n).Msg("sortengine: engine constructed")
	return e, nil
}

// CurrentStep returns the number of steps completed so far.
func (e *ExecutionEngine) CurrentStep() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stepNumber
}

// HasConverged reports whether the engine is in the CONVERGED state.
func (e *ExecutionEngine) HasConverged() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == CONVERGED
}

// IsRunning reports whether the engine is in the RUNNING state.
func (e *ExecutionEngine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == RUNNING
}

// State returns the engine's current lifecycle state.
func (e *ExecutionEngine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Cells returns an immutable view of the current cell array. Callers
// must not mutate the returned slice.
func (e *ExecutionEngine) Cells() []Cell {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Cell, len(e.cells))
	copy(out, e.cells)
	return out
}

// Probe returns the engine's probe.
func (e *ExecutionEngine) Probe() *Probe { return e.probe }

// Stop is the cooperative cancellation signal: it moves a RUNNING or
// IDLE engine to TERMINATED. It is a no-op if the engine is already
// CONVERGED or TERMINATED.
func (e *ExecutionEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == IDLE || e.state == RUNNING {
		e.state = TERMINATED
	}
}

// Reset restores step counters and probe state and records a fresh
// initial snapshot. It does not reorder the cells. Reset transitions
// the engine to IDLE from any state.
func (e *ExecutionEngine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stepNumber = 0
	e.state = IDLE
	e.probe.reset(e.cells, e.metadata)
}

// Step runs a single step of the algorithm described in spec §4.7. It
// returns the number of swaps executed in this step.
//
// A ComparisonFailureError is fatal: the engine moves to TERMINATED
// and no new snapshot is appended for the failing step — the cell
// array may be left in the intermediate state the failure occurred
// in, but stepNumber is not incremented, so the failure leaves no
// trace in the snapshot history or TotalSteps (spec §7). The probe's
// compare and swap counters keep whatever the partial step recorded.
func (e *ExecutionEngine) Step() (int, error) {
	e.mu.Lock()
	if e.state == CONVERGED || e.state == TERMINATED {
		e.mu.Unlock()
		return 0, NewInvalidStateError("cannot step an engine in state %s", e.state)
	}
	if e.state == IDLE {
		e.state = RUNNING
	}
	e.mu.Unlock()

	localSwaps, err := e.runOneStep()
	if err != nil {
		e.mu.Lock()
		e.state = TERMINATED
		e.mu.Unlock()
		e.log.Error().Err(err).Msg("sortengine: step failed, terminating")
		return 0, err
	}

	e.mu.Lock()
	e.stepNumber++
	step := e.stepNumber
	e.mu.Unlock()

	e.probe.RecordStep(step, e.cells, e.metadata, localSwaps)

	if e.detector.HasConverged(e.probe, step) {
		e.mu.Lock()
		e.state = CONVERGED
		e.mu.Unlock()
		e.log.Info().Int("step", step).Str("detector", e.detector.Name()).Msg("sortengine: converged")
	}

	return localSwaps, nil
}

// runOneStep performs the inner per-index, per-neighbor loop of §4.7
// against the live (unlocked) arrays: it is only ever called from
// Step, which holds no lock while this runs, matching the teacher's
// pattern of keeping long-running work outside the state-machine
// mutex.
func (e *ExecutionEngine) runOneStep() (int, error) {
	n := len(e.cells)
	order := e.topology.IterationOrder(n)
	localSwaps := 0

	for _, i := range order {
		meta := e.metadata[i]
		algotype := meta.Algotype()
		neighbors := e.topology.Neighbors(i, algotype, n, meta)

		for _, j := range neighbors {
			want, err := e.wantsSwap(i, j, algotype, meta)
			e.probe.recordCompare()
			if err != nil {
				return localSwaps, NewComparisonFailureError(i, j, err)
			}

			if !want {
				// j == i is SELECTION's no-op case (spec §4.6), not a
				// denial: the cell has reached its target and must
				// rest, so only a genuine p != i rejection advances.
				if algotype == SELECTION && j != i {
					meta.AdvanceIdealPos()
				}
				continue
			}

			result := e.swapEngine.AttemptSwap(e.cells, e.metadata, i, j, e.probe)
			if result == EXECUTED {
				localSwaps++
			} else if algotype == SELECTION {
				meta.AdvanceIdealPos()
			}
		}
	}

	return localSwaps, nil
}

// wantsSwap implements the per-algotype swap-decision predicate of
// spec §4.6.
func (e *ExecutionEngine) wantsSwap(i, j int, algotype Algotype, meta *CellMetadata) (bool, error) {
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
		// j == i+1: swap iff better(v(j), v(i)), i.e. cmp(j,i) is better,
		// which is the negation-and-flip of cmp(i,j).
		return better(-cmp, d), nil
	case INSERTION:
		return better(cmp, d), nil
	case SELECTION:
		return better(cmp, d), nil
	default:
		return false, nil
	}
}

// RunUntilConvergence repeats Step until the engine converges or
// reaches maxSteps, whichever comes first, and returns the final step
// number.
func (e *ExecutionEngine) RunUntilConvergence(maxSteps int) (int, error) {
	if maxSteps <= 0 {
		return 0, NewInvalidArgumentError("maxSteps must be positive, got %d", maxSteps)
	}

	for {
		e.mu.Lock()
		state := e.state
		step := e.stepNumber
		e.mu.Unlock()

		if state == CONVERGED {
			return step, nil
		}
		if state == TERMINATED {
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

		if _, err := e.Step(); err != nil {
			return step, err
		}
	}
}

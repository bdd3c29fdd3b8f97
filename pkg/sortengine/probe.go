package sortengine

import (
	"sync"
	"sync/atomic"

	"golang.org/x/exp/slices"
)

// CellLabel is the per-cell metadata summary recorded in a
// StepSnapshot: enough to reconstruct algotype, grouping, and
// mobility for a position without holding a live reference into the
// engine's arrays.
type CellLabel struct {
	AlgotypeOrdinal int
	GroupID         int
	Frozen          bool
}

// StepSnapshot is an immutable, append-only record of the array state
// after a completed step. Snapshot 0 (the initial snapshot) is taken
// at engine construction, before any step has run.
type StepSnapshot struct {
	Step           int
	Values         []any
	Labels         []CellLabel
	LocalSwapCount int
}

// snapshotPool recycles the backing slices of StepSnapshot values,
// the same "pool buffers of a recurring shape" idea the teacher
// applies to ConstraintStore instances (pool.go) — here applied to
// per-step snapshot slices, since runUntilConvergence over many steps
// produces one snapshot per step.
type snapshotPool struct {
	pools sync.Map // array size (int) -> *sync.Pool
}

func (p *snapshotPool) get(n int) ([]any, []CellLabel) {
	poolAny, _ := p.pools.LoadOrStore(n, &sync.Pool{
		New: func() any {
			return [2]any{make([]any, n), make([]CellLabel, n)}
		},
	})
	pool := poolAny.(*sync.Pool)
	pair := pool.Get().([2]any)
	values := pair[0].([]any)[:n]
	labels := pair[1].([]CellLabel)[:n]
	return values, labels
}

func (p *snapshotPool) put(n int, values []any, labels []CellLabel) {
	poolAny, ok := p.pools.Load(n)
	if !ok {
		return
	}
	pool := poolAny.(*sync.Pool)
	pool.Put([2]any{values[:cap(values)], labels[:cap(labels)]})
}

// Probe maintains thread-safe counters and, optionally, an append-only
// sequence of StepSnapshots. Counter tracking is independent of
// recording: disabling snapshot recording must never disable
// convergence-relevant counters (spec §4.4's critical contract), since
// ConvergenceDetector implementations read counters, not snapshots.
type Probe struct {
	swapCount            atomic.Int64
	casCount             atomic.Int64
	frozenAttempts       atomic.Int64
	totalSteps           atomic.Int64
	consecutiveZeroSwaps atomic.Int64

	recordingEnabled bool
	frozen           *FrozenStatus

	mu        sync.Mutex
	snapshots []StepSnapshot
	pool      snapshotPool
}

// NewProbe builds a Probe. If recordTrajectory is false, snapshots are
// never appended, but every counter still updates normally.
func NewProbe(recordTrajectory bool) *Probe {
	return &Probe{recordingEnabled: recordTrajectory}
}

// SetFrozenStatus attaches the mobility map snapshots should label
// positions against. Engine constructors call this with the same
// FrozenStatus their SwapEngine arbitrates against, so a recorded
// trajectory's frozen flag reflects the run's actual mobility policy
// instead of always reading false. A nil status (the default) labels
// every position unfrozen.
func (p *Probe) SetFrozenStatus(frozen *FrozenStatus) { p.frozen = frozen }

// recordSwap is called by the SwapEngine on every EXECUTED swap.
func (p *Probe) recordSwap() { p.swapCount.Add(1) }

// recordCompare is called by the execution engine for every swap
// decision considered, accepted or rejected. spec §9: "CAS count"
// here means swap decisions considered, not an atomic CPU primitive.
func (p *Probe) recordCompare() { p.casCount.Add(1) }

// recordFrozenAttempt is called by the SwapEngine whenever a swap is
// rejected for mobility reasons.
func (p *Probe) recordFrozenAttempt() { p.frozenAttempts.Add(1) }

// RecordStep is called once per completed step by the execution
// engine. It atomically updates totalSteps and the zero-swap gauge,
// and — only if recording is enabled — appends an immutable
// StepSnapshot built from the current array state.
func (p *Probe) RecordStep(stepNumber int, cells []Cell, metadata []*CellMetadata, localSwapCount int) {
	p.totalSteps.Store(int64(stepNumber))
	if localSwapCount > 0 {
		p.consecutiveZeroSwaps.Store(0)
	} else {
		p.consecutiveZeroSwaps.Add(1)
	}

	if !p.recordingEnabled {
		return
	}
	p.appendSnapshot(stepNumber, cells, metadata, localSwapCount)
}

func (p *Probe) appendSnapshot(stepNumber int, cells []Cell, metadata []*CellMetadata, localSwapCount int) {
	n := len(cells)
	values, labels := p.pool.get(n)
	for i, c := range cells {
		values[i] = c.Observable()
		m := metadata[i]
		frozen := p.frozen != nil && p.frozen.At(i) != NONE
		labels[i] = CellLabel{AlgotypeOrdinal: int(m.Algotype()), GroupID: 0, Frozen: frozen}
	}

	snap := StepSnapshot{
		Step:           stepNumber,
		Values:         slices.Clone(values),
		Labels:         slices.Clone(labels),
		LocalSwapCount: localSwapCount,
	}
	p.pool.put(n, values, labels)

	p.mu.Lock()
	p.snapshots = append(p.snapshots, snap)
	p.mu.Unlock()
}

// RecordInitialSnapshot appends snapshot 0, taken at construction or
// reset, before any step has run. It is a no-op if recording is
// disabled.
func (p *Probe) RecordInitialSnapshot(cells []Cell, metadata []*CellMetadata) {
	if !p.recordingEnabled {
		return
	}
	p.appendSnapshot(0, cells, metadata, 0)
}

// SwapCount returns the cumulative number of executed swaps.
func (p *Probe) SwapCount() int64 { return p.swapCount.Load() }

// CompareAndSwapCount returns the cumulative number of swap decisions
// considered, executed or not. Always >= SwapCount.
func (p *Probe) CompareAndSwapCount() int64 { return p.casCount.Load() }

// FrozenSwapAttempts returns the cumulative number of swaps rejected
// for mobility reasons.
func (p *Probe) FrozenSwapAttempts() int64 { return p.frozenAttempts.Load() }

// TotalSteps returns the number of steps completed so far.
func (p *Probe) TotalSteps() int64 { return p.totalSteps.Load() }

// ConsecutiveZeroSwapSteps returns the current run length of steps
// with zero executed swaps.
func (p *Probe) ConsecutiveZeroSwapSteps() int64 { return p.consecutiveZeroSwaps.Load() }

// RecordingEnabled reports whether snapshot recording is turned on.
func (p *Probe) RecordingEnabled() bool { return p.recordingEnabled }

// Snapshots returns a copy of the recorded snapshot list.
func (p *Probe) Snapshots() []StepSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.snapshots)
}

// SnapshotAt returns the snapshot for the given step number, and
// whether it was found.
func (p *Probe) SnapshotAt(step int) (StepSnapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.snapshots {
		if s.Step == step {
			return s, true
		}
	}
	return StepSnapshot{}, false
}

// reset clears all counters and the snapshot list, and — if recording
// is enabled — records a fresh initial snapshot from the given array
// state. It does not reorder cells; the caller (ExecutionEngine.Reset)
// owns that decision.
func (p *Probe) reset(cells []Cell, metadata []*CellMetadata) {
	p.swapCount.Store(0)
	p.casCount.Store(0)
	p.frozenAttempts.Store(0)
	p.totalSteps.Store(0)
	p.consecutiveZeroSwaps.Store(0)

	p.mu.Lock()
	p.snapshots = p.snapshots[:0]
	p.mu.Unlock()

	p.RecordInitialSnapshot(cells, metadata)
}

package sortengine_test

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/emergesort/pkg/sortengine"
)

func newEngine(t *testing.T, values []int, provider sortengine.MetadataProvider, detector sortengine.ConvergenceDetector, frozen *sortengine.FrozenStatus, seed uint64) (*sortengine.ExecutionEngine, *sortengine.Probe) {
	t.Helper()
	n := len(values)
	cells := intCells(values...)
	se := sortengine.NewSwapEngine(n, frozen)
	probe := sortengine.NewProbe(true)
	topo := sortengine.NewNeighborTopology(rand.New(rand.NewPCG(seed, seed)))

	e, err := sortengine.NewExecutionEngine(cells, provider, se, probe, detector, topo, zerolog.Nop())
	require.NoError(t, err)
	return e, probe
}

func TestScenarioTrivialSort(t *testing.T) {
	provider := sortengine.UniformMetadataProvider(sortengine.BUBBLE, sortengine.ASCENDING, 5)
	e, probe := newEngine(t, []int{5, 3, 1, 4, 2}, provider, sortengine.NewNoSwapForKSteps(3), nil, 1)

	_, err := e.RunUntilConvergence(1000)
	require.NoError(t, err)

	assert.True(t, e.HasConverged())
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ints(e.Cells()))
	assert.Greater(t, probe.SwapCount(), int64(0))
}

func TestScenarioAlreadySorted(t *testing.T) {
	provider := sortengine.UniformMetadataProvider(sortengine.BUBBLE, sortengine.ASCENDING, 5)
	e, probe := newEngine(t, []int{1, 2, 3, 4, 5}, provider, sortengine.NewNoSwapForKSteps(3), nil, 2)

	step, err := e.RunUntilConvergence(1000)
	require.NoError(t, err)

	assert.Equal(t, 3, step)
	assert.Equal(t, int64(0), probe.SwapCount())
	assert.Greater(t, probe.CompareAndSwapCount(), int64(0))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ints(e.Cells()))
}

func TestScenarioTwoElementReverse(t *testing.T) {
	provider := sortengine.UniformMetadataProvider(sortengine.BUBBLE, sortengine.ASCENDING, 2)
	e, probe := newEngine(t, []int{2, 1}, provider, sortengine.NewNoSwapForKSteps(3), nil, 3)

	_, err := e.RunUntilConvergence(1000)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, ints(e.Cells()))
	assert.Equal(t, int64(1), probe.SwapCount())
}

func TestScenarioCrossPurposeEquilibrium(t *testing.T) {
	dirs := []sortengine.Direction{
		sortengine.ASCENDING, sortengine.DESCENDING,
		sortengine.ASCENDING, sortengine.DESCENDING,
		sortengine.ASCENDING,
	}
	provider := func(i int) *sortengine.CellMetadata {
		return sortengine.NewCellMetadata(sortengine.BUBBLE, dirs[i], 0, 4)
	}
	e, probe := newEngine(t, []int{5, 3, 1, 4, 2}, provider, sortengine.NewNoSwapForKSteps(3), nil, 4)

	_, err := e.RunUntilConvergence(1000)
	require.NoError(t, err)

	assert.True(t, e.HasConverged())
	assert.Greater(t, probe.SwapCount(), int64(0))
	result := ints(e.Cells())
	sorted := append([]int(nil), result...)
	sort.Ints(sorted)
	assert.NotEqual(t, sorted, result, "a cross-purpose population must settle into a non-sorted equilibrium")
}

func TestScenarioSelectionChase(t *testing.T) {
	n := 5
	created := make([]*sortengine.CellMetadata, n)
	provider := func(i int) *sortengine.CellMetadata {
		m := sortengine.NewCellMetadata(sortengine.SELECTION, sortengine.ASCENDING, 0, n-1)
		created[i] = m
		return m
	}
	e, _ := newEngine(t, []int{5, 4, 3, 2, 1}, provider, sortengine.NewNoSwapForKSteps(3), nil, 5)

	_, err := e.RunUntilConvergence(10000)
	require.NoError(t, err)

	assert.True(t, e.HasConverged())
	final := ints(e.Cells())
	assert.Equal(t, []int{1, 2, 3, 4, 5}, final)

	// Every cell's idealPos must equal its final resting index: a cell
	// that has reached its target stays put instead of continuing to
	// chase toward rightBoundary (spec §4.6's p == i no-op case). The
	// initial array is [5,4,3,2,1], so the cell with value v started at
	// index n-v, and that is the metadata record (swapped alongside its
	// cell on every move) whose idealPos we check against v's final index.
	for idx, v := range final {
		assert.Equal(t, idx, created[n-v].IdealPos(), "value %d's metadata idealPos should equal its final index %d", v, idx)
	}
}

func TestSelectionCellRestsOnceIdealPosIsReached(t *testing.T) {
	// Regression for the SELECTION no-op bug: a cell sitting exactly at
	// its idealPos must not advance further just because it considered
	// (and trivially "rejected") the p == i case. Every cell starts with
	// its idealPos at its own index.
	n := 5
	created := make([]*sortengine.CellMetadata, n)
	provider := func(i int) *sortengine.CellMetadata {
		m := sortengine.NewCellMetadata(sortengine.SELECTION, sortengine.ASCENDING, 0, n-1)
		m.SetIdealPos(i)
		created[i] = m
		return m
	}
	e, _ := newEngine(t, []int{1, 2, 3, 4, 5}, provider, sortengine.NewNoSwapForKSteps(3), nil, 20)

	_, err := e.RunUntilConvergence(1000)
	require.NoError(t, err)

	assert.True(t, e.HasConverged())
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ints(e.Cells()))
	for i, m := range created {
		assert.Equal(t, i, m.IdealPos(), "an already-in-place SELECTION cell must not drift from its resting idealPos")
	}
}

func TestScenarioFrozenImmovable(t *testing.T) {
	provider := sortengine.UniformMetadataProvider(sortengine.BUBBLE, sortengine.ASCENDING, 3)
	frozen := sortengine.NewFrozenStatus(3)
	frozen.Set(0, sortengine.IMMOVABLE)
	e, probe := newEngine(t, []int{3, 1, 2}, provider, sortengine.NewNoSwapForKSteps(3), frozen, 6)

	_, err := e.RunUntilConvergence(1000)
	require.NoError(t, err)

	result := ints(e.Cells())
	assert.Equal(t, 3, result[0], "position 0 is immovable and must be unchanged")
	assert.Greater(t, probe.FrozenSwapAttempts(), int64(0))
	assert.True(t, e.HasConverged())
}

func TestIdempotenceOfConvergence(t *testing.T) {
	provider := sortengine.UniformMetadataProvider(sortengine.BUBBLE, sortengine.ASCENDING, 5)
	e, probe := newEngine(t, []int{5, 3, 1, 4, 2}, provider, sortengine.NewNoSwapForKSteps(3), nil, 7)

	_, err := e.RunUntilConvergence(1000)
	require.NoError(t, err)
	require.True(t, e.HasConverged())

	before := ints(e.Cells())
	swaps, err := e.Step()
	require.Error(t, err, "stepping a converged engine must return an error")
	assert.Equal(t, 0, swaps)
	assert.Equal(t, before, ints(e.Cells()))
	_ = probe
}

func TestResetRoundTripProducesIdenticalTrajectory(t *testing.T) {
	values := []int{5, 3, 1, 4, 2}
	provider := sortengine.UniformMetadataProvider(sortengine.BUBBLE, sortengine.ASCENDING, 5)

	cells := intCells(values...)
	se := sortengine.NewSwapEngine(5, nil)
	probe := sortengine.NewProbe(true)
	topo := sortengine.NewNeighborTopology(rand.New(rand.NewPCG(42, 42)))
	e, err := sortengine.NewExecutionEngine(cells, provider, se, probe, sortengine.NewNoSwapForKSteps(3), topo, zerolog.Nop())
	require.NoError(t, err)

	_, err = e.RunUntilConvergence(1000)
	require.NoError(t, err)
	firstTrajectory := probe.Snapshots()
	firstSwapCount := probe.SwapCount()

	e.Reset()
	assert.Equal(t, 0, e.CurrentStep())
	snaps := probe.Snapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, int64(0), probe.SwapCount())

	// Reset does not reorder cells: they remain at their
	// already-converged (sorted) positions, so re-running converges
	// immediately without reproducing the original trajectory shape.
	// To validate the seeded-determinism property instead, build a
	// fresh engine from the same seed and starting array.
	cells2 := intCells(values...)
	se2 := sortengine.NewSwapEngine(5, nil)
	probe2 := sortengine.NewProbe(true)
	topo2 := sortengine.NewNeighborTopology(rand.New(rand.NewPCG(42, 42)))
	e2, err := sortengine.NewExecutionEngine(cells2, provider, se2, probe2, sortengine.NewNoSwapForKSteps(3), topo2, zerolog.Nop())
	require.NoError(t, err)
	_, err = e2.RunUntilConvergence(1000)
	require.NoError(t, err)

	assert.Equal(t, firstSwapCount, probe2.SwapCount())
	assert.Equal(t, len(firstTrajectory), len(probe2.Snapshots()))
	for i := range firstTrajectory {
		assert.Equal(t, firstTrajectory[i].Values, probe2.Snapshots()[i].Values)
	}
}

func TestSeededDeterminismAcrossIndependentRuns(t *testing.T) {
	run := func() ([]sortengine.StepSnapshot, int64) {
		values := []int{9, 1, 8, 2, 7, 3, 6, 4, 5}
		provider := sortengine.UniformMetadataProvider(sortengine.BUBBLE, sortengine.ASCENDING, len(values))
		cells := intCells(values...)
		se := sortengine.NewSwapEngine(len(values), nil)
		probe := sortengine.NewProbe(true)
		topo := sortengine.NewNeighborTopology(rand.New(rand.NewPCG(123, 456)))
		e, err := sortengine.NewExecutionEngine(cells, provider, se, probe, sortengine.NewNoSwapForKSteps(3), topo, zerolog.Nop())
		require.NoError(t, err)
		_, err = e.RunUntilConvergence(1000)
		require.NoError(t, err)
		return probe.Snapshots(), probe.SwapCount()
	}

	snapsA, swapsA := run()
	snapsB, swapsB := run()

	assert.Equal(t, swapsA, swapsB)
	require.Equal(t, len(snapsA), len(snapsB))
	for i := range snapsA {
		assert.Equal(t, snapsA[i].Values, snapsB[i].Values)
		assert.Equal(t, snapsA[i].LocalSwapCount, snapsB[i].LocalSwapCount)
	}
}

func TestUniversalInvariantTotalStepsMatchesSnapshotCount(t *testing.T) {
	provider := sortengine.UniformMetadataProvider(sortengine.BUBBLE, sortengine.ASCENDING, 6)
	e, probe := newEngine(t, []int{6, 5, 4, 3, 2, 1}, provider, sortengine.NewNoSwapForKSteps(3), nil, 8)

	_, err := e.RunUntilConvergence(1000)
	require.NoError(t, err)

	assert.Equal(t, probe.TotalSteps(), int64(len(probe.Snapshots())-1))
}

func TestUniversalInvariantCompareAndSwapCountAtLeastSwapCount(t *testing.T) {
	provider := sortengine.UniformMetadataProvider(sortengine.BUBBLE, sortengine.ASCENDING, 6)
	e, probe := newEngine(t, []int{6, 5, 4, 3, 2, 1}, provider, sortengine.NewNoSwapForKSteps(3), nil, 9)

	_, err := e.RunUntilConvergence(1000)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, probe.CompareAndSwapCount(), probe.SwapCount())
}

func TestSelectionIdealPosStaysWithinBoundaries(t *testing.T) {
	n := 6
	created := make([]*sortengine.CellMetadata, n)
	provider := func(i int) *sortengine.CellMetadata {
		m := sortengine.NewCellMetadata(sortengine.SELECTION, sortengine.ASCENDING, 0, n-1)
		created[i] = m
		return m
	}
	e, _ := newEngine(t, []int{6, 5, 4, 3, 2, 1}, provider, sortengine.NewNoSwapForKSteps(3), nil, 10)

	for !e.HasConverged() {
		_, err := e.Step()
		require.NoError(t, err)
		if e.State() == sortengine.TERMINATED {
			t.Fatal("engine terminated without converging")
		}
		for _, m := range created {
			assert.GreaterOrEqual(t, m.IdealPos(), m.LeftBoundary())
			assert.LessOrEqual(t, m.IdealPos(), m.RightBoundary())
		}
	}
	assert.True(t, e.HasConverged())
}

func TestComparisonFailurePropagatesAndTerminates(t *testing.T) {
	cells := []sortengine.Cell{failingCell{}, failingCell{}}
	provider := sortengine.UniformMetadataProvider(sortengine.BUBBLE, sortengine.ASCENDING, 2)
	se := sortengine.NewSwapEngine(2, nil)
	probe := sortengine.NewProbe(false)
	topo := sortengine.NewNeighborTopology(rand.New(rand.NewPCG(1, 1)))

	e, err := sortengine.NewExecutionEngine(cells, provider, se, probe, sortengine.NewNoSwapForKSteps(3), topo, zerolog.Nop())
	require.NoError(t, err)

	_, err = e.Step()
	assert.Error(t, err)
	assert.Equal(t, sortengine.TERMINATED, e.State())
}

func TestNewExecutionEngineRejectsEmptyCells(t *testing.T) {
	_, err := sortengine.NewExecutionEngine(nil, sortengine.UniformMetadataProvider(sortengine.BUBBLE, sortengine.ASCENDING, 0), sortengine.NewSwapEngine(0, nil), sortengine.NewProbe(false), sortengine.NewNoSwapForKSteps(3), nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewExecutionEngineRejectsOutOfRangeBoundaries(t *testing.T) {
	provider := func(i int) *sortengine.CellMetadata {
		return sortengine.NewCellMetadata(sortengine.BUBBLE, sortengine.ASCENDING, 0, 99)
	}
	cells := intCells(1, 2, 3)
	_, err := sortengine.NewExecutionEngine(cells, provider, sortengine.NewSwapEngine(3, nil), sortengine.NewProbe(false), sortengine.NewNoSwapForKSteps(3), nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestStopTerminatesEngine(t *testing.T) {
	provider := sortengine.UniformMetadataProvider(sortengine.BUBBLE, sortengine.ASCENDING, 5)
	e, _ := newEngine(t, []int{5, 4, 3, 2, 1}, provider, sortengine.NewNoSwapForKSteps(3), nil, 11)
	e.Stop()
	assert.Equal(t, sortengine.TERMINATED, e.State())
	_, err := e.Step()
	assert.Error(t, err)
}

package sortengine

import "sync/atomic"

// CellMetadata is the per-agent execution metadata that travels
// alongside a Cell. The logical identity of an agent is the
// (Cell, *CellMetadata) pair, not its array index: when cells at
// indices i and j swap, their metadata records swap as well, so a
// *CellMetadata always describes the same logical agent no matter
// where it currently sits in the array.
//
// Algotype and Direction are immutable after initialization.
// idealPos, leftBoundary and rightBoundary are mutated during a run
// and are guarded by atomics so that concurrent readers (the parallel
// engine) and the single owning writer never race.
type CellMetadata struct {
	algotype Algotype
	dir      Direction

	idealPos      atomic.Int64
	leftBoundary  atomic.Int64
	rightBoundary atomic.Int64
}

// NewCellMetadata builds a metadata record for a cell with the given
// algotype, direction, and eligible range [left, right]. idealPos is
// initialized to left for ASCENDING cells and right for DESCENDING
// cells, matching updateForBoundary's contract.
func NewCellMetadata(algotype Algotype, dir Direction, left, right int) *CellMetadata {
	m := &CellMetadata{algotype: algotype, dir: dir}
	m.leftBoundary.Store(int64(left))
	m.rightBoundary.Store(int64(right))
	m.UpdateForBoundary(left, right)
	return m
}

// Algotype returns the cell's behavioral policy.
func (m *CellMetadata) Algotype() Algotype { return m.algotype }

// Direction returns the cell's sort direction.
func (m *CellMetadata) Direction() Direction { return m.dir }

// IdealPos atomically reads the SELECTION chase target.
func (m *CellMetadata) IdealPos() int { return int(m.idealPos.Load()) }

// SetIdealPos atomically sets the SELECTION chase target.
func (m *CellMetadata) SetIdealPos(pos int) { m.idealPos.Store(int64(pos)) }

// CompareAndSetIdealPos atomically sets idealPos to new if it is
// currently old, returning whether the swap took place.
func (m *CellMetadata) CompareAndSetIdealPos(old, new int) bool {
	return m.idealPos.CompareAndSwap(int64(old), int64(new))
}

// LeftBoundary returns the low end of the cell's currently-eligible
// range.
func (m *CellMetadata) LeftBoundary() int { return int(m.leftBoundary.Load()) }

// RightBoundary returns the high end of the cell's currently-eligible
// range.
func (m *CellMetadata) RightBoundary() int { return int(m.rightBoundary.Load()) }

// SetBoundaries atomically sets the eligible range. It does not touch
// idealPos; callers that want idealPos re-anchored to the new range
// should call UpdateForBoundary.
func (m *CellMetadata) SetBoundaries(left, right int) {
	m.leftBoundary.Store(int64(left))
	m.rightBoundary.Store(int64(right))
}

// UpdateForBoundary sets idealPos to left if the cell is ASCENDING,
// or right if DESCENDING, and nothing else. This is the only sanctioned
// side effect of a boundary update (spec §9): group-merge machinery
// that wants different behavior must not be layered in here.
func (m *CellMetadata) UpdateForBoundary(left, right int) {
	if m.dir == ASCENDING {
		m.idealPos.Store(int64(left))
	} else {
		m.idealPos.Store(int64(right))
	}
}

// AdvanceIdealPos implements the SELECTION "chase": on denial, idealPos
// advances by one slot toward rightBoundary (ASCENDING) or
// leftBoundary (DESCENDING), clamped so it never leaves
// [leftBoundary, rightBoundary]. It returns the new value.
func (m *CellMetadata) AdvanceIdealPos() int {
	for {
		cur := m.idealPos.Load()
		left := m.leftBoundary.Load()
		right := m.rightBoundary.Load()

		var next int64
		if m.dir == ASCENDING {
			next = cur + 1
			if next > right {
				next = right
			}
		} else {
			next = cur - 1
			if next < left {
				next = left
			}
		}
		if m.idealPos.CompareAndSwap(cur, next) {
			return int(next)
		}
	}
}

// MetadataProvider supplies the metadata for array index i at engine
// construction time. This is how callers inject chimeric populations,
// cross-purpose direction mixes, and per-index boundaries without
// touching Cell implementations.
type MetadataProvider func(i int) *CellMetadata

// UniformMetadataProvider returns a MetadataProvider that assigns the
// same algotype and direction to every index, with boundaries spanning
// the whole array — the common case for homogeneous populations.
func UniformMetadataProvider(algotype Algotype, dir Direction, n int) MetadataProvider {
	return func(i int) *CellMetadata {
		return NewCellMetadata(algotype, dir, 0, n-1)
	}
}

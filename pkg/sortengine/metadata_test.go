package sortengine_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/emergesort/pkg/sortengine"
)

func TestNewCellMetadataAnchorsIdealPos(t *testing.T) {
	asc := sortengine.NewCellMetadata(sortengine.SELECTION, sortengine.ASCENDING, 2, 8)
	assert.Equal(t, 2, asc.IdealPos())

	desc := sortengine.NewCellMetadata(sortengine.SELECTION, sortengine.DESCENDING, 2, 8)
	assert.Equal(t, 8, desc.IdealPos())
}

func TestAdvanceIdealPosClampsToBoundary(t *testing.T) {
	asc := sortengine.NewCellMetadata(sortengine.SELECTION, sortengine.ASCENDING, 0, 2)
	require.Equal(t, 0, asc.IdealPos())
	assert.Equal(t, 1, asc.AdvanceIdealPos())
	assert.Equal(t, 2, asc.AdvanceIdealPos())
	assert.Equal(t, 2, asc.AdvanceIdealPos(), "must clamp at rightBoundary")

	desc := sortengine.NewCellMetadata(sortengine.SELECTION, sortengine.DESCENDING, 0, 2)
	require.Equal(t, 2, desc.IdealPos())
	assert.Equal(t, 1, desc.AdvanceIdealPos())
	assert.Equal(t, 0, desc.AdvanceIdealPos())
	assert.Equal(t, 0, desc.AdvanceIdealPos(), "must clamp at leftBoundary")
}

func TestAdvanceIdealPosConcurrentIsAtomic(t *testing.T) {
	m := sortengine.NewCellMetadata(sortengine.SELECTION, sortengine.ASCENDING, 0, 1000)
	var wg sync.WaitGroup
	const goroutines = 50
	const perGoroutine = 10
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				m.AdvanceIdealPos()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, goroutines*perGoroutine, m.IdealPos())
}

func TestCompareAndSetIdealPos(t *testing.T) {
	m := sortengine.NewCellMetadata(sortengine.SELECTION, sortengine.ASCENDING, 0, 10)
	assert.True(t, m.CompareAndSetIdealPos(0, 5))
	assert.Equal(t, 5, m.IdealPos())
	assert.False(t, m.CompareAndSetIdealPos(0, 9), "stale old value must fail")
	assert.Equal(t, 5, m.IdealPos())
}

func TestUpdateForBoundaryHasNoOtherSideEffects(t *testing.T) {
	m := sortengine.NewCellMetadata(sortengine.SELECTION, sortengine.ASCENDING, 0, 10)
	m.SetIdealPos(7)
	m.UpdateForBoundary(3, 9)
	assert.Equal(t, 3, m.IdealPos())
	// Boundaries themselves are untouched by UpdateForBoundary per spec §9.
	assert.Equal(t, 0, m.LeftBoundary())
	assert.Equal(t, 10, m.RightBoundary())
}

func TestUniformMetadataProvider(t *testing.T) {
	p := sortengine.UniformMetadataProvider(sortengine.INSERTION, sortengine.DESCENDING, 5)
	for i := 0; i < 5; i++ {
		m := p(i)
		require.NotNil(t, m)
		assert.Equal(t, sortengine.INSERTION, m.Algotype())
		assert.Equal(t, sortengine.DESCENDING, m.Direction())
		assert.Equal(t, 0, m.LeftBoundary())
		assert.Equal(t, 4, m.RightBoundary())
	}
}

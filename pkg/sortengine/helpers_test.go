package sortengine_test

import "github.com/gitrdm/emergesort/pkg/sortengine"

// intCell is a minimal Cell implementation used across this package's
// tests.
type intCell int

func (c intCell) CompareTo(other sortengine.Cell) (int, error) {
	o := other.(intCell)
	switch {
	case c < o:
		return -1, nil
	case c > o:
		return 1, nil
	default:
		return 0, nil
	}
}

func (c intCell) Observable() any { return int(c) }

func intCells(values ...int) []sortengine.Cell {
	out := make([]sortengine.Cell, len(values))
	for i, v := range values {
		out[i] = intCell(v)
	}
	return out
}

func ints(cells []sortengine.Cell) []int {
	out := make([]int, len(cells))
	for i, c := range cells {
		out[i] = int(c.(intCell))
	}
	return out
}

// failingCell always returns an error from CompareTo, for exercising
// ComparisonFailureError.
type failingCell struct{}

func (failingCell) CompareTo(other sortengine.Cell) (int, error) {
	return 0, errComparisonBoom
}

func (failingCell) Observable() any { return "boom" }

var errComparisonBoom = errBoom("comparison boom")

type errBoom string

func (e errBoom) Error() string { return string(e) }

// Package democell provides a trivial integer Cell implementation used
// only by cmd/emergesort to demonstrate the engine.
// spec.md places domain-specific cells out of the engine's scope; this
// package is intentionally internal so nothing in pkg/sortengine ever
// depends on it.
package democell

import "github.com/gitrdm/emergesort/pkg/sortengine"

// IntCell is a Cell wrapping a plain int.
type IntCell int

// CompareTo implements sortengine.Cell.
func (c IntCell) CompareTo(other sortengine.Cell) (int, error) {
	o := other.(IntCell)
	switch {
	case c < o:
		return -1, nil
	case c > o:
		return 1, nil
	default:
		return 0, nil
	}
}

// Observable implements sortengine.Cell.
func (c IntCell) Observable() any { return int(c) }

// IntCells converts a plain []int into a []sortengine.Cell of IntCell.
func IntCells(values []int) []sortengine.Cell {
	out := make([]sortengine.Cell, len(values))
	for i, v := range values {
		out[i] = IntCell(v)
	}
	return out
}

// Ints converts a []sortengine.Cell of IntCell back to plain ints, for
// printing in cmd/emergesort.
func Ints(cells []sortengine.Cell) []int {
	out := make([]int, len(cells))
	for i, c := range cells {
		out[i] = int(c.(IntCell))
	}
	return out
}

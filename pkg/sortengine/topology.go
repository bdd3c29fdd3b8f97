package sortengine

import "math/rand/v2"

// NeighborTopology produces, for a given index and algotype, the
// ordered list of candidate neighbors to consider for a swap, and
// separately produces the iteration order a sequential step visits
// positions in. Representing neighbor visibility as a policy object
// rather than branching on algotype inside the engine is what makes
// chimeric populations (different algotypes per cell) fall out
// naturally: the engine simply asks the topology per cell.
type NeighborTopology struct {
	rng *rand.Rand
}

// NewNeighborTopology builds a topology. If rng is nil, a topology
// seeded from a fixed, unexported default is used instead — the
// sequential engine's determinism is then unspecified, per spec §6,
// but the run is still correct.
func NewNeighborTopology(rng *rand.Rand) *NeighborTopology {
	if rng == nil {
		rng = rand.New(rand.NewPCG(0, 0))
	}
	return &NeighborTopology{rng: rng}
}

// Neighbors returns the candidate neighbor indices for position i
// under algotype, clipped to [0, n), given the current metadata for i
// (needed for SELECTION's idealPos).
func (t *NeighborTopology) Neighbors(i int, algotype Algotype, n int, meta *CellMetadata) []int {
	switch algotype {
	case BUBBLE:
		var out []int
		if i-1 >= 0 {
			out = append(out, i-1)
		}
		if i+1 < n {
			out = append(out, i+1)
		}
		return out
	case INSERTION:
		if i-1 >= 0 {
			return []int{i - 1}
		}
		return nil
	case SELECTION:
		return []int{meta.IdealPos()}
	default:
		return nil
	}
}

// IterationOrder returns a uniformly-random permutation of [0, n) for
// one sequential step, drawn from the topology's rng. Re-sampled each
// call, as required by spec §4.2.
func (t *NeighborTopology) IterationOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	t.rng.Shuffle(n, func(a, b int) { order[a], order[b] = order[b], order[a] })
	return order
}

// Package leaf implements spec §4.9's per-leaf sample records: for
// each tree, a contiguous sample block of (row, multiplicity) pairs
// ordered by terminal index, plus an extent table that locates each
// leaf's slice, consumed later by prediction, quantile estimation and
// the Meinshausen forest-weight kernel.
//
// This is grounded on tree.go's LeafNode{RecordIds, NumberOfObjects,
// Prediction}: that type heap-allocates one struct per leaf holding
// its own record-id slice. Spec §4.9/§6 instead wants a single packed
// sample block per tree sliced by a leaf-id-indexed extent table (no
// per-leaf heap object, no pointer fields in the persisted layout),
// so the adaptation here is structural: the same "leaf holds its
// member rows" idea, flattened into one pool per tree.
package leaf

import (
	"sort"

	"github.com/hawkberry/Arborist/internal/frontier"
	"github.com/hawkberry/Arborist/internal/partition"
)

// Sample is one (row, multiplicity) record inside a leaf's contiguous
// sample block, per spec §3's "Leaf record" / "Sample block" contract.
type Sample struct {
	Row  int
	Mult int
}

// TreeLeaves is one tree's leaf pool: Extent[leafID] is the total
// sample multiplicity (Σ mult(s), not the bagged-record count)
// terminating at that leaf, the Meinshausen normalizer spec §4.9
// names, Blocks[leafID] the samples themselves. SortedIdx[leafID],
// when non-nil, gives Blocks[leafID]'s indices sorted by response
// value, so prediction-time quantile lookup never needs a second sort
// (the original_source/ leafbridge.cc pre-sorted-quantile behavior
// SPEC_FULL.md §2 supplements with).
type TreeLeaves struct {
	Extent    []int
	Blocks    [][]Sample
	SortedIdx [][]int
}

// LeafSet is the whole forest's per-tree leaf records. ThinLeaves
// mirrors the training configuration flag: when set, Blocks and
// SortedIdx are empty and only Extent (needed for forest bookkeeping)
// is populated, per spec §6's "disables quantile/weighting" contract.
type LeafSet struct {
	Trees      []TreeLeaves
	ThinLeaves bool
}

// Build assembles one tree's TreeLeaves from the Frontier's finished
// leaf ranges. part must still hold that tree's final restaged state
// (before the next tree reuses the buffers); rowOfSample and
// yOfSample give each bagged sample's source row and response value,
// indexed by sample index, and multOfSample its multiplicity. Leaf ids
// that LeafMerge aliased to a shared id (two pre-tree nodes routing to
// the same forest leaf) have their sample blocks concatenated here.
func Build(part *partition.Partition, leaves []frontier.Leaf, rowOfSample []int, multOfSample []int, yOfSample []float64, thinLeaves bool) *TreeLeaves {
	maxID := -1
	for _, lf := range leaves {
		if lf.LeafID > maxID {
			maxID = lf.LeafID
		}
	}
	tl := &TreeLeaves{Extent: make([]int, maxID+1)}
	if thinLeaves {
		for _, lf := range leaves {
			_, idx := part.CellsAt(0, lf.Range, lf.Buf)
			for _, s := range idx {
				tl.Extent[lf.LeafID] += multOfSample[s]
			}
		}
		return tl
	}

	tl.Blocks = make([][]Sample, maxID+1)
	responseOf := make([][]float64, maxID+1)
	for _, lf := range leaves {
		_, idx := part.CellsAt(0, lf.Range, lf.Buf)
		for _, s := range idx {
			tl.Extent[lf.LeafID] += multOfSample[s]
			tl.Blocks[lf.LeafID] = append(tl.Blocks[lf.LeafID], Sample{Row: rowOfSample[s], Mult: multOfSample[s]})
			responseOf[lf.LeafID] = append(responseOf[lf.LeafID], yOfSample[s])
		}
	}

	tl.SortedIdx = make([][]int, len(tl.Blocks))
	for id, block := range tl.Blocks {
		if len(block) == 0 {
			continue
		}
		order := make([]int, len(block))
		for i := range order {
			order[i] = i
		}
		resp := responseOf[id]
		sort.Slice(order, func(a, b int) bool { return resp[order[a]] < resp[order[b]] })
		tl.SortedIdx[id] = order
	}
	return tl
}

// Quantile returns the multiplicity-weighted quantile q of the
// responses in leaf id's sample block: the response of the first
// sample, in SortedIdx order, whose cumulative multiplicity reaches q
// times the block's total multiplicity. The result is always one of
// the block's responses; adjacent order-statistics are not
// interpolated.
func (tl *TreeLeaves) Quantile(leafID int, responseOf func(row int) float64, q float64) float64 {
	order := tl.SortedIdx[leafID]
	block := tl.Blocks[leafID]
	if len(order) == 0 {
		return 0
	}
	total := 0
	for _, s := range block {
		total += s.Mult
	}
	target := q * float64(total)
	acc := 0.0
	for _, oi := range order {
		s := block[oi]
		acc += float64(s.Mult)
		if acc >= target {
			return responseOf(s.Row)
		}
	}
	return responseOf(block[order[len(order)-1]].Row)
}

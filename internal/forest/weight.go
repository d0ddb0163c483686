package forest

import (
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"

	"github.com/hawkberry/Arborist/internal/leaf"
)

// denseTensorThreshold is the nObs size past which ForestWeightAuto
// builds a *tensor.Dense (via ForestWeightTensor) instead of a
// *mat.Dense; either buffer is allocated per call, mirroring find_the_best_split.go's rawHessian *tensor.Dense
// usage for a large, reusable numeric accumulator.
const denseTensorThreshold = 4096

// ForestWeight implements spec §4.9's Meinshausen forest-weight
// kernel: for each test row and tree, it finds the leaf the row falls
// into and spreads multiplicity(s)/|leafBlock|/nTree across every
// training sample s in that leaf. Rows are independent, so callers
// wanting the parallel-over-test-rows scope of spec §5 may shard
// rows across internal/workpool themselves and call ForestWeight per
// shard.
//
// The result is always a dense |rTest| x nObs matrix as *mat.Dense,
// whatever nObs is. ForestWeightTensor builds the same weights as a
// *tensor.Dense, and ForestWeightAuto chooses between the two.
func (f *Forest) ForestWeight(rows []Row, leaves *leaf.LeafSet, nObs int) (*mat.Dense, error) {
	w := mat.NewDense(len(rows), nObs, nil)
	nTree := float64(f.NTree())
	if nTree == 0 {
		return w, nil
	}
	for ri, row := range rows {
		for t := 0; t < f.NTree(); t++ {
			_, leafID := f.walkTree(t, row)
			tl := leaves.Trees[t]
			if leafID < 0 || leafID >= len(tl.Blocks) {
				continue
			}
			block := tl.Blocks[leafID]
			if len(block) == 0 {
				continue
			}
			denom := float64(tl.Extent[leafID]) * nTree
			for _, s := range block {
				w.Set(ri, s.Row, w.At(ri, s.Row)+float64(s.Mult)/denom)
			}
		}
	}
	return w, nil
}

// ForestWeightTensor is ForestWeight's large-nObs variant, building
// the |rTest| x nObs output as a *tensor.Dense per
// find_the_best_split.go's rawHessian usage. It always returns the
// tensor form; ForestWeightAuto calls it when nObs exceeds
// denseTensorThreshold and calls ForestWeight otherwise.
func (f *Forest) ForestWeightTensor(rows []Row, leaves *leaf.LeafSet, nObs int) (*tensor.Dense, error) {
	w := tensor.New(tensor.WithShape(len(rows), nObs), tensor.Of(tensor.Float64))
	nTree := float64(f.NTree())
	if nTree == 0 {
		return w, nil
	}
	for ri, row := range rows {
		for t := 0; t < f.NTree(); t++ {
			_, leafID := f.walkTree(t, row)
			tl := leaves.Trees[t]
			if leafID < 0 || leafID >= len(tl.Blocks) {
				continue
			}
			block := tl.Blocks[leafID]
			if len(block) == 0 {
				continue
			}
			denom := float64(tl.Extent[leafID]) * nTree
			for _, s := range block {
				cur, err := w.At(ri, s.Row)
				if err != nil {
					return nil, err
				}
				if err := w.SetAt(cur.(float64)+float64(s.Mult)/denom, ri, s.Row); err != nil {
					return nil, err
				}
			}
		}
	}
	return w, nil
}

// ForestWeightAuto dispatches to the mat.Dense or tensor.Dense form
// based on nObs, returning exactly one of the two non-nil.
func (f *Forest) ForestWeightAuto(rows []Row, leaves *leaf.LeafSet, nObs int) (dense *mat.Dense, sparse *tensor.Dense, err error) {
	if nObs > denseTensorThreshold {
		sparse, err = f.ForestWeightTensor(rows, leaves, nObs)
		return nil, sparse, err
	}
	dense, err = f.ForestWeight(rows, leaves, nObs)
	return dense, nil, err
}

// Package runaccum implements spec §4.5: folding a node's explicit
// cells into per-rank/category runs, the wide-run de-width sampling
// that caps factor-subset search, the classification checkerboard of
// per-category sums, and the heap orderings the split searcher scans
// for numeric and factor candidates.
//
// The checkerboard is a *mat.Dense (gonum), grounded on ematrix.go and
// find_the_best_split.go's use of mat.Dense as this teacher's default
// shape for a small 2-D numeric accumulator.
package runaccum

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/hawkberry/Arborist/internal/partition"
)

// MaxWidth caps factor-subset search at 2^MaxWidth, per spec §4.5.
const MaxWidth = 10

// Run is a maximal run of cells sharing one rank/category code within
// a node's explicit range, or the implicit residual run appended when
// the predictor has a dense rank.
type Run struct {
	Code       int
	SCount     int
	Sum        float64
	Start, End int // explicit index range within the node's buffer slice; zero-length for the residual
	IsResidual bool
}

// RunSet is one (node, predictor)'s folded runs plus, for a
// categorical response, the runCount×nCtg checkerboard of
// per-category sums spec §4.5 names.
type RunSet struct {
	Runs         []Run
	Checkerboard *mat.Dense // nil for a numeric response
	NCtg         int
}

// Build folds cells (already in the partition's node-contiguous,
// rank-sorted order for this predictor) into runs, right-to-left over
// the explicit range, then appends a residual run summarizing the
// implicit dense-rank mass when hasImplicit is set.
func Build(cells []partition.Cell, hasImplicit bool, residualSum float64, residualSCount int, residualCtg []float64, nCtg int) *RunSet {
	rs := &RunSet{NCtg: nCtg}
	n := len(cells)
	for i := n - 1; i >= 0; {
		j := i
		code := cells[i].Rank
		sum, scount := 0.0, 0
		for j >= 0 && cells[j].Rank == code {
			sum += cells[j].Sum
			scount += cells[j].SCount
			j--
		}
		rs.Runs = append(rs.Runs, Run{Code: code, SCount: scount, Sum: sum, Start: j + 1, End: i + 1})
		i = j
	}
	// Runs were appended high-index-first during the right-to-left
	// fold; restore ascending index order so Start/End stay in the
	// partition's natural order for callers that re-walk explicit
	// ranges.
	for l, r := 0, len(rs.Runs)-1; l < r; l, r = l+1, r-1 {
		rs.Runs[l], rs.Runs[r] = rs.Runs[r], rs.Runs[l]
	}
	if hasImplicit {
		rs.Runs = append(rs.Runs, Run{Code: -1, SCount: residualSCount, Sum: residualSum, IsResidual: true})
	}
	if nCtg > 0 {
		rs.buildCheckerboard(cells, residualCtg)
	}
	return rs
}

func (rs *RunSet) buildCheckerboard(cells []partition.Cell, residualCtg []float64) {
	rs.Checkerboard = mat.NewDense(len(rs.Runs), rs.NCtg, nil)
	for runIdx, r := range rs.Runs {
		if r.IsResidual {
			for c := 0; c < rs.NCtg; c++ {
				rs.Checkerboard.Set(runIdx, c, residualCtg[c])
			}
			continue
		}
		for k := r.Start; k < r.End; k++ {
			c := cells[k].Category
			rs.Checkerboard.Set(runIdx, c, rs.Checkerboard.At(runIdx, c)+cells[k].Sum)
		}
	}
}

// DeWidth implements spec §4.5's wide-run sampling: when the run set
// exceeds MaxWidth, it samples MaxWidth runs without replacement by
// taking the MaxWidth runs with the largest pre-drawn variate (a
// plain uniform key, not weighted by run size); the leading slots
// of the returned RunSet are overwritten with the sampled subset, as
// spec requires ("overwrite the leading slots ... before searching").
// variates must supply one pre-drawn uniform-[0,1) value per run
// (drawn once per frontier, per spec §5, not here).
func (rs *RunSet) DeWidth(variates []float64) *RunSet {
	if len(rs.Runs) <= MaxWidth {
		return rs
	}
	type keyed struct {
		key int
		v   float64
	}
	keys := make([]keyed, len(rs.Runs))
	for i := range rs.Runs {
		keys[i] = keyed{i, variates[i]}
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a].v > keys[b].v })
	keys = keys[:MaxWidth]

	out := &RunSet{NCtg: rs.NCtg}
	if rs.Checkerboard != nil {
		out.Checkerboard = mat.NewDense(MaxWidth, rs.NCtg, nil)
	}
	for newIdx, k := range keys {
		out.Runs = append(out.Runs, rs.Runs[k.key])
		if out.Checkerboard != nil {
			row := rs.Checkerboard.RawRowView(k.key)
			out.Checkerboard.SetRow(newIdx, row)
		}
	}
	return out
}

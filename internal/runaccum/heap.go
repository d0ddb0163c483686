package runaccum

import "sort"

// OrderMode selects the run ordering used to scan for the best factor
// cut, per spec §4.5.
type OrderMode int

const (
	// OrderByMean orders runs by mean response (regression factor).
	OrderByMean OrderMode = iota
	// OrderByProbCategory1 orders runs by P(category=1) (binary
	// classification factor).
	OrderByProbCategory1
	// OrderByVariate orders runs by a pre-drawn random variate (wide
	// non-binary classification factor, after de-width sampling).
	OrderByVariate
)

// Order returns a permutation of run indices ascending by the given
// mode's key, ready for the split searcher to scan cumulative sums
// over (spec §4.5's heap ordering).
func (rs *RunSet) Order(mode OrderMode, variates []float64) []int {
	perm := make([]int, len(rs.Runs))
	for i := range perm {
		perm[i] = i
	}
	key := func(i int) float64 {
		r := rs.Runs[i]
		switch mode {
		case OrderByMean:
			if r.SCount == 0 {
				return 0
			}
			return r.Sum / float64(r.SCount)
		case OrderByProbCategory1:
			_ = r
			total := rs.Checkerboard.At(i, 0) + rs.Checkerboard.At(i, 1)
			if total == 0 {
				return 0
			}
			return rs.Checkerboard.At(i, 1) / total
		case OrderByVariate:
			return variates[i]
		default:
			return 0
		}
	}
	sort.SliceStable(perm, func(a, b int) bool { return key(perm[a]) < key(perm[b]) })
	return perm
}

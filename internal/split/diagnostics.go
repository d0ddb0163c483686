package split

import (
	"gonum.org/v1/gonum/stat"

	"github.com/hawkberry/Arborist/internal/partition"
)

// BoundaryMeans reports the left/right response means straddling a
// winning numeric split, by literal per-sample mean rather than the
// sum/count ratio the gain formulas use internally. It exists for the
// boundary-reporting path (logging and test assertions that a split
// actually separates the response the way its gain claimed to),
// independent of the accumulator arithmetic under test.
func BoundaryMeans(cells []partition.Cell, lhExtent int) (left, right float64) {
	var leftVals, rightVals []float64
	for i, c := range cells {
		v := c.Sum / float64(c.SCount)
		for k := 0; k < c.SCount; k++ {
			if i < lhExtent {
				leftVals = append(leftVals, v)
			} else {
				rightVals = append(rightVals, v)
			}
		}
	}
	if len(leftVals) > 0 {
		left = stat.Mean(leftVals, nil)
	}
	if len(rightVals) > 0 {
		right = stat.Mean(rightVals, nil)
	}
	return left, right
}

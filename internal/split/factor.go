package split

import "github.com/hawkberry/Arborist/internal/runaccum"

// SearchFactorRegression implements spec §4.6's regression factor
// search: runs are ordered by mean response, then a cumulative-sum
// scan over that order finds the best slot-cut.
func SearchFactorRegression(pred int, rs *runaccum.RunSet, totalSum float64, totalSCount int, preBias, minRatio, parentGain float64, minNode int) (Nucleus, bool) {
	order := rs.Order(runaccum.OrderByMean, nil)
	return scanOrderedRegression(pred, rs, order, totalSum, totalSCount, preBias, minRatio, parentGain, minNode)
}

// SearchFactorBinary implements spec §4.6's binary-classification
// factor search: runs are ordered by P(category=1) and scanned with
// the same binary accumulator used for the explicit numeric sweep,
// avoiding full subset enumeration.
func SearchFactorBinary(pred int, rs *runaccum.RunSet, totalSum float64, totalSCount int, totalCtgSum []float64, preBias, minRatio, parentGain float64, minNode int) (Nucleus, bool) {
	order := rs.Order(runaccum.OrderByProbCategory1, nil)
	return scanOrderedCtg(pred, rs, order, totalSum, totalSCount, totalCtgSum, preBias, minRatio, parentGain, minNode)
}

func scanOrderedRegression(pred int, rs *runaccum.RunSet, order []int, totalSum float64, totalSCount int, preBias, minRatio, parentGain float64, minNode int) (Nucleus, bool) {
	n := len(order)
	if n < 2 {
		return Nucleus{}, false
	}
	var sumL float64
	var sCountL int
	var best Nucleus
	var bestGain float64
	found := false

	for i := 0; i < n-1; i++ {
		r := rs.Runs[order[i]]
		sumL += r.Sum
		sCountL += r.SCount
		sumR := totalSum - sumL
		sCountR := totalSCount - sCountL
		if !childOK(sCountL, sCountR, minNode) || !stable(sumL, sumR) {
			continue
		}
		gain := regressionGain(sumL, sCountL, sumR, sCountR, preBias)
		if acceptGain(gain, bestGain, minRatio, parentGain, found) {
			bestGain, found = gain, true
			best = Nucleus{
				Pred: pred, LHSCount: sCountL, InfoGain: gain,
				Encoding: SplitEncoding{IsFactor: true, LeftCodes: leftCodesFromOrder(rs, order, i+1)},
			}
		}
	}
	if !passesFloor(found, bestGain, minRatio, parentGain) {
		return Nucleus{}, false
	}
	return best, true
}

func scanOrderedCtg(pred int, rs *runaccum.RunSet, order []int, totalSum float64, totalSCount int, totalCtgSum []float64, preBias, minRatio, parentGain float64, minNode int) (Nucleus, bool) {
	n := len(order)
	if n < 2 {
		return Nucleus{}, false
	}
	nCtg := len(totalCtgSum)
	ctgL := make([]float64, nCtg)
	var sumL float64
	var sCountL int
	var best Nucleus
	var bestGain float64
	found := false

	for i := 0; i < n-1; i++ {
		idx := order[i]
		r := rs.Runs[idx]
		sumL += r.Sum
		sCountL += r.SCount
		for c := 0; c < nCtg; c++ {
			ctgL[c] += rs.Checkerboard.At(idx, c)
		}
		sumR := totalSum - sumL
		sCountR := totalSCount - sCountL
		if !childOK(sCountL, sCountR, minNode) || !stable(sumL, sumR) {
			continue
		}
		ssL, ssR := 0.0, 0.0
		for c := 0; c < nCtg; c++ {
			right := totalCtgSum[c] - ctgL[c]
			ssL += ctgL[c] * ctgL[c]
			ssR += right * right
		}
		gain := classificationGain(ssL, sumL, ssR, sumR, preBias)
		if acceptGain(gain, bestGain, minRatio, parentGain, found) {
			bestGain, found = gain, true
			best = Nucleus{
				Pred: pred, LHSCount: sCountL, InfoGain: gain,
				Encoding: SplitEncoding{IsFactor: true, LeftCodes: leftCodesFromOrder(rs, order, i+1)},
			}
		}
	}
	if !passesFloor(found, bestGain, minRatio, parentGain) {
		return Nucleus{}, false
	}
	return best, true
}

func leftCodesFromOrder(rs *runaccum.RunSet, order []int, leftCount int) []int {
	codes := make([]int, 0, leftCount)
	for i := 0; i < leftCount; i++ {
		codes = append(codes, rs.Runs[order[i]].Code)
	}
	return codes
}

// SearchFactorMulticlass implements spec §4.6's multi-class factor
// search: after the caller's wide-run de-width, every non-empty proper
// subset of runs is enumerated as a candidate left side, with the
// highest-index run conventionally fixed to the right (never
// toggled), halving the search space.
func SearchFactorMulticlass(pred int, rs *runaccum.RunSet, totalCtgSum []float64, preBias, minRatio, parentGain float64, minNode int) (Nucleus, bool) {
	effCount := len(rs.Runs) - 1 // last run pinned right
	if effCount < 1 {
		return Nucleus{}, false
	}
	nCtg := len(totalCtgSum)
	totalSum, totalSCount := 0.0, 0
	for _, r := range rs.Runs {
		totalSum += r.Sum
		totalSCount += r.SCount
	}

	var best Nucleus
	var bestGain float64
	found := false

	limit := 1 << uint(effCount)
	for bits := 1; bits < limit; bits++ {
		sumL, sCountL := 0.0, 0
		ctgL := make([]float64, nCtg)
		for r := 0; r < effCount; r++ {
			if bits&(1<<uint(r)) == 0 {
				continue
			}
			run := rs.Runs[r]
			sumL += run.Sum
			sCountL += run.SCount
			for c := 0; c < nCtg; c++ {
				ctgL[c] += rs.Checkerboard.At(r, c)
			}
		}
		sumR := totalSum - sumL
		sCountR := totalSCount - sCountL
		if !childOK(sCountL, sCountR, minNode) || !stable(sumL, sumR) {
			continue
		}
		ssL, ssR := 0.0, 0.0
		for c := 0; c < nCtg; c++ {
			right := totalCtgSum[c] - ctgL[c]
			ssL += ctgL[c] * ctgL[c]
			ssR += right * right
		}
		gain := classificationGain(ssL, sumL, ssR, sumR, preBias)
		if acceptGain(gain, bestGain, minRatio, parentGain, found) {
			bestGain, found = gain, true
			var codes []int
			for r := 0; r < effCount; r++ {
				if bits&(1<<uint(r)) != 0 {
					codes = append(codes, rs.Runs[r].Code)
				}
			}
			best = Nucleus{
				Pred: pred, LHSCount: sCountL, InfoGain: gain,
				Encoding: SplitEncoding{IsFactor: true, LeftCodes: codes},
			}
		}
	}
	if !passesFloor(found, bestGain, minRatio, parentGain) {
		return Nucleus{}, false
	}
	return best, true
}

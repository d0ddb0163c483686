package split

import "github.com/hawkberry/Arborist/internal/partition"

// MonotoneParams bundles the optional monotonicity constraint for a
// regression predictor, resolved by the Frontier's per-(node,
// predictor) Bernoulli draw before the candidate is scheduled.
type MonotoneParams struct {
	Constraint float64 // m in [-1, +1]; 0 disables the check
	Active     bool
}

// SearchNumeric walks cells (ascending-rank order, as Partition yields
// them) from the high-rank end toward the low-rank end, evaluating
// gain at every rank boundary and keeping the argmax, per spec §4.6's
// explicit-only numeric search. It assumes the node carries no
// implicit (dense-rank) mass for this predictor; use
// SearchNumericImplicit otherwise.
func SearchNumeric(pred int, cells []partition.Cell, totalSum float64, totalSCount int, preBias, minRatio, parentGain float64, mono MonotoneParams, minNode int) (Nucleus, bool) {
	n := len(cells)
	if n < 2 {
		return Nucleus{}, false
	}
	var sumR float64
	var sCountR int
	var best Nucleus
	var bestGain float64
	found := false

	for i := n - 1; i > 0; i-- {
		sumR += cells[i].Sum
		sCountR += cells[i].SCount
		rkThis, rkRight := cells[i-1].Rank, cells[i].Rank
		if rkThis == rkRight {
			continue
		}
		sumL := totalSum - sumR
		sCountL := totalSCount - sCountR
		if !childOK(sCountL, sCountR, minNode) || !stable(sumL, sumR) {
			continue
		}
		if mono.Active && !monotoneOK(mono.Constraint, sumL, sCountL, sumR, sCountR) {
			continue
		}
		gain := regressionGain(sumL, sCountL, sumR, sCountR, preBias)
		if acceptGain(gain, bestGain, minRatio, parentGain, found) {
			bestGain, found = gain, true
			best = Nucleus{
				Pred: pred, LHExtent: i, LHSCount: sCountL, InfoGain: gain,
				Encoding: SplitEncoding{RankRangeLo: rkThis, RankRangeHi: rkRight},
			}
		}
	}
	if !passesFloor(found, bestGain, minRatio, parentGain) {
		return Nucleus{}, false
	}
	return best, true
}

// SearchNumericCtg is SearchNumeric's classification counterpart:
// the same high-to-low sweep, but maintaining a running per-category
// right-side sum so that Gini gain can be evaluated at each boundary.
func SearchNumericCtg(pred int, cells []partition.Cell, totalSum float64, totalSCount int, totalCtgSum []float64, preBias, minRatio, parentGain float64, minNode int) (Nucleus, bool) {
	n := len(cells)
	if n < 2 {
		return Nucleus{}, false
	}
	nCtg := len(totalCtgSum)
	ctgR := make([]float64, nCtg)
	var sumR float64
	var sCountR int
	var best Nucleus
	var bestGain float64
	found := false

	for i := n - 1; i > 0; i-- {
		c := cells[i]
		ctgR[c.Category] += c.Sum
		sumR += c.Sum
		sCountR += c.SCount
		rkThis, rkRight := cells[i-1].Rank, c.Rank
		if rkThis == rkRight {
			continue
		}
		sumL := totalSum - sumR
		sCountL := totalSCount - sCountR
		if !childOK(sCountL, sCountR, minNode) || !stable(sumL, sumR) {
			continue
		}
		ssL, ssR := 0.0, 0.0
		for k := 0; k < nCtg; k++ {
			left := totalCtgSum[k] - ctgR[k]
			ssL += left * left
			ssR += ctgR[k] * ctgR[k]
		}
		gain := classificationGain(ssL, sumL, ssR, sumR, preBias)
		if acceptGain(gain, bestGain, minRatio, parentGain, found) {
			bestGain, found = gain, true
			best = Nucleus{
				Pred: pred, LHExtent: i, LHSCount: sCountL, InfoGain: gain,
				Encoding: SplitEncoding{RankRangeLo: rkThis, RankRangeHi: rkRight},
			}
		}
	}
	if !passesFloor(found, bestGain, minRatio, parentGain) {
		return Nucleus{}, false
	}
	return best, true
}

// implicitSlot is one position of the virtual explicit+residual
// sequence SearchNumericImplicit sweeps: either a real explicit cell
// or the single synthetic slot standing in for the predictor's dense
// rank, inserted at its sorted rank position.
type implicitSlot struct {
	rank       int
	sum        float64
	sCount     int
	isResidual bool
}

func buildImplicitSlots(cells []partition.Cell, denseRank int, residualSum float64, residualSCount int) []implicitSlot {
	out := make([]implicitSlot, 0, len(cells)+1)
	inserted := false
	for _, c := range cells {
		if !inserted && c.Rank > denseRank {
			out = append(out, implicitSlot{rank: denseRank, sum: residualSum, sCount: residualSCount, isResidual: true})
			inserted = true
		}
		out = append(out, implicitSlot{rank: c.Rank, sum: c.Sum, sCount: c.SCount})
	}
	if !inserted {
		out = append(out, implicitSlot{rank: denseRank, sum: residualSum, sCount: residualSCount, isResidual: true})
	}
	return out
}

// SearchNumericImplicit covers spec §4.6's three dense-rank regimes
// (denseRight, denseLeft, denseMiddle) with a single sweep: the
// residual is inserted as a synthetic slot at its sorted rank
// position among the explicit cells, and the ordinary high-to-low
// boundary scan runs over the combined sequence. Because totalSum and
// totalSCount already include the residual's contribution, a boundary
// that falls to the residual's right automatically reports the
// correct implicit-inclusive left sample count; the returned
// encoding's ImplicitLHExtent follows spec §4.6's reconstruction rule
// directly from the residual's position relative to the cut.
func SearchNumericImplicit(pred int, cells []partition.Cell, denseRank, implicitCount int, residualSum float64, residualSCount int, totalSum float64, totalSCount int, preBias, minRatio, parentGain float64, mono MonotoneParams, minNode int) (Nucleus, bool) {
	slots := buildImplicitSlots(cells, denseRank, residualSum, residualSCount)
	n := len(slots)
	if n < 2 {
		return Nucleus{}, false
	}
	var sumR float64
	var sCountR int
	var best Nucleus
	var bestGain float64
	found := false

	for i := n - 1; i > 0; i-- {
		sumR += slots[i].sum
		sCountR += slots[i].sCount
		rkThis, rkRight := slots[i-1].rank, slots[i].rank
		if rkThis == rkRight {
			continue
		}
		sumL := totalSum - sumR
		sCountL := totalSCount - sCountR
		if !childOK(sCountL, sCountR, minNode) || !stable(sumL, sumR) {
			continue
		}
		if mono.Active && !monotoneOK(mono.Constraint, sumL, sCountL, sumR, sCountR) {
			continue
		}
		gain := regressionGain(sumL, sCountL, sumR, sCountR, preBias)
		if acceptGain(gain, bestGain, minRatio, parentGain, found) {
			bestGain, found = gain, true
			residualOnLeft := residualIndex(slots) < i
			implicitLH := 0
			if residualOnLeft {
				implicitLH = implicitCount
			}
			explicitLHExtent := i
			if residualOnLeft {
				explicitLHExtent--
			}
			best = Nucleus{
				Pred: pred, LHExtent: explicitLHExtent, LHSCount: sCountL, InfoGain: gain,
				Encoding: SplitEncoding{RankRangeLo: rkThis, RankRangeHi: rkRight, ImplicitLHExtent: implicitLH},
			}
		}
	}
	if !passesFloor(found, bestGain, minRatio, parentGain) {
		return Nucleus{}, false
	}
	return best, true
}

func residualIndex(slots []implicitSlot) int {
	for i, s := range slots {
		if s.isResidual {
			return i
		}
	}
	return -1
}

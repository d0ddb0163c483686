// Package split implements spec §4.6's SplitSearch: for each scheduled
// (node, predictor) candidate, an argmax over numeric cuts or factor
// subsets, with monotonicity constraints and dense/implicit-rank
// handling folded into the same sweep used for the fully explicit case.
//
// The high-to-low explicit sweep is grounded on selectTheBestSplit's
// single forward scan over an argsorted column in
// find_the_best_split.go, generalized from that file's fixed squared-
// loss weight update to the weighted-variance and Gini gain formulas
// spec §4.6 names, and reworked from a second-order Newton step into a
// single running (sCount, sum) accumulator pair since this forest
// walks ranks rather than raw feature values.
package split

import "math"

// epsilon is the stable-denominator guard spec §4.6 requires: a
// candidate whose left or right response-weighted sum falls below it
// is rejected outright, since both gain formulas divide by that sum.
const epsilon = 1e-9

// SplitEncoding carries enough information for the Frontier to emit a
// packed node (numeric threshold, or factor-bit offset) without
// re-deriving it from the Nucleus's rank range.
type SplitEncoding struct {
	IsFactor bool

	// Numeric encoding: the straddling rank pair spec §4.6 names.
	RankRangeLo, RankRangeHi int
	ImplicitLHExtent         int

	// Factor encoding: the subset of the predictor's factor codes that
	// route left. PreTree.BranchFac expands this into the PreTree's
	// cardinality-sized factor-bit slice when it records the split.
	LeftCodes []int
}

// Nucleus describes one candidate's winning split, per spec §4.6.
type Nucleus struct {
	Pred                        int
	LHStart, LHExtent, LHSCount int
	InfoGain                    float64
	Encoding                    SplitEncoding
}

func regressionGain(sumL float64, sCountL int, sumR float64, sCountR int, preBias float64) float64 {
	return sumL*sumL/float64(sCountL) + sumR*sumR/float64(sCountR) - preBias
}

func classificationGain(ssL, sumL, ssR, sumR, preBias float64) float64 {
	return ssL/sumL + ssR/sumR - preBias
}

// RegressionPreBias computes a node's pre-split bias term, the
// subtrahend common to every candidate's gain.
func RegressionPreBias(sum float64, sCount int) float64 {
	if sCount == 0 {
		return 0
	}
	return sum * sum / float64(sCount)
}

// ClassificationPreBias computes a node's pre-split Gini bias term.
func ClassificationPreBias(sumSquares, sum float64) float64 {
	if sum == 0 {
		return 0
	}
	return sumSquares / sum
}

// monotoneActive decides, by a single Bernoulli draw, whether a
// nonzero monotone constraint binds for this (node, predictor), per
// spec §4.6.
func monotoneActive(m float64, draw float64) bool {
	return draw < math.Abs(m)
}

// MonotoneActive exposes the Bernoulli gate so the Frontier can draw
// it once per (node, predictor) before scheduling candidates.
func MonotoneActive(m float64, draw float64) bool { return monotoneActive(m, draw) }

// monotoneOK reports whether the slope from left to right agrees with
// sign(m), computed from sumL·sCountR vs sumR·sCountL as spec §4.6
// specifies (the cross-multiplied comparison of the two side means).
func monotoneOK(m, sumL float64, sCountL int, sumR float64, sCountR int) bool {
	diff := sumR*float64(sCountL) - sumL*float64(sCountR)
	if m > 0 {
		return diff >= 0
	}
	return diff <= 0
}

func stable(sumL, sumR float64) bool {
	return math.Abs(sumL) >= epsilon && math.Abs(sumR) >= epsilon
}

func acceptGain(gain, bestGain, minRatio, parentGain float64, found bool) bool {
	if !found {
		return gain > 0
	}
	return gain > bestGain
}

func passesFloor(found bool, bestGain, minRatio, parentGain float64) bool {
	if !found {
		return false
	}
	return bestGain >= minRatio*parentGain
}

// childOK enforces spec §6's minNode as a per-candidate-child floor on
// summed multiplicity (sCount), not merely positivity: a boundary
// leaving either side short of minNode samples is rejected outright.
// minNode < 1 falls back to requiring each side be non-empty.
func childOK(sCountL, sCountR, minNode int) bool {
	if minNode < 1 {
		minNode = 1
	}
	return sCountL >= minNode && sCountR >= minNode
}

package split

import (
	"testing"

	"github.com/hawkberry/Arborist/internal/partition"
	"github.com/hawkberry/Arborist/internal/runaccum"
)

func TestSearchNumericFindsVarianceMaximizingCut(t *testing.T) {
	cells := []partition.Cell{
		{Rank: 0, Sum: 1, SCount: 1},
		{Rank: 1, Sum: 1, SCount: 1},
		{Rank: 2, Sum: 9, SCount: 1},
		{Rank: 3, Sum: 9, SCount: 1},
	}
	totalSum, totalSCount := 20.0, 4
	preBias := RegressionPreBias(totalSum, totalSCount)
	n, ok := SearchNumeric(0, cells, totalSum, totalSCount, preBias, 0, 0, MonotoneParams{}, 1)
	if !ok {
		t.Fatal("expected a winning split")
	}
	if n.LHExtent != 2 || n.LHSCount != 2 {
		t.Fatalf("expected cut after index 2, got %+v", n)
	}
}

func TestSearchNumericRejectsBelowMinRatio(t *testing.T) {
	cells := []partition.Cell{
		{Rank: 0, Sum: 1, SCount: 1},
		{Rank: 1, Sum: 9, SCount: 1},
	}
	// The only cut has a positive gain (1 + 81 - 50 = 32), far below
	// the floor minRatio*parentGain = 1e9.
	totalSum, totalSCount := 10.0, 2
	preBias := RegressionPreBias(totalSum, totalSCount)
	_, ok := SearchNumeric(0, cells, totalSum, totalSCount, preBias, 1, 1e9, MonotoneParams{}, 1)
	if ok {
		t.Fatal("expected minRatio floor to reject a trivial gain")
	}
}

func TestSearchNumericMonotoneRejectsWrongSlope(t *testing.T) {
	cells := []partition.Cell{
		{Rank: 0, Sum: 9, SCount: 1},
		{Rank: 1, Sum: 9, SCount: 1},
		{Rank: 2, Sum: 1, SCount: 1},
		{Rank: 3, Sum: 1, SCount: 1},
	}
	totalSum, totalSCount := 20.0, 4
	preBias := RegressionPreBias(totalSum, totalSCount)
	_, ok := SearchNumeric(0, cells, totalSum, totalSCount, preBias, 0, 0, MonotoneParams{Constraint: 1, Active: true}, 1)
	if ok {
		t.Fatal("expected a decreasing response to fail a positive monotone constraint")
	}
}

func TestSearchNumericImplicitAccountsForResidualOnLeft(t *testing.T) {
	// Dense rank 0 holds the bulk of the mass, residual sits leftmost;
	// explicit cells are all at higher ranks (denseLeft regime).
	cells := []partition.Cell{
		{Rank: 1, Sum: 9, SCount: 1},
		{Rank: 2, Sum: 9, SCount: 1},
	}
	residualSum, residualSCount := 2.0, 10
	totalSum := residualSum + 18
	totalSCount := residualSCount + 2
	preBias := RegressionPreBias(totalSum, totalSCount)
	n, ok := SearchNumericImplicit(0, cells, 0, residualSCount, residualSum, residualSCount, totalSum, totalSCount, preBias, 0, 0, MonotoneParams{}, 1)
	if !ok {
		t.Fatal("expected a winning split in the denseLeft regime")
	}
	if n.Encoding.ImplicitLHExtent != residualSCount {
		t.Fatalf("expected implicit mass folded into the left side, got %+v", n.Encoding)
	}
}

func TestSearchFactorRegressionOrdersByMean(t *testing.T) {
	cells := []partition.Cell{
		{Rank: 0, Sum: 90, SCount: 1}, // code 0: mean 90
		{Rank: 1, Sum: 10, SCount: 1}, // code 1: mean 10
		{Rank: 2, Sum: 50, SCount: 1}, // code 2: mean 50
	}
	rs := runaccum.Build(cells, false, 0, 0, nil, 0)
	totalSum, totalSCount := 150.0, 3
	preBias := RegressionPreBias(totalSum, totalSCount)
	n, ok := SearchFactorRegression(0, rs, totalSum, totalSCount, preBias, 0, 0, 1)
	if !ok {
		t.Fatal("expected a winning factor split")
	}
	if !n.Encoding.IsFactor || len(n.Encoding.LeftCodes) == 0 || len(n.Encoding.LeftCodes) >= 3 {
		t.Fatalf("expected a nonempty, proper subset of codes to route left, got %+v", n.Encoding)
	}
	// In mean order the runs are codes 1, 2, 0; the first best cut
	// (gain 2400) leaves code 1 alone on the left. Scanning in code
	// order would instead put code 0 alone on the left.
	if len(n.Encoding.LeftCodes) != 1 || n.Encoding.LeftCodes[0] != 1 {
		t.Fatalf("expected code 1 (lowest mean) alone on the left, got %v", n.Encoding.LeftCodes)
	}
}

func TestSearchFactorMulticlassPinsLastRunRight(t *testing.T) {
	cells := []partition.Cell{
		{Rank: 0, Sum: 1, SCount: 1, Category: 0},
		{Rank: 1, Sum: 1, SCount: 1, Category: 1},
		{Rank: 2, Sum: 1, SCount: 1, Category: 2},
	}
	rs := runaccum.Build(cells, false, 0, 0, nil, 3)
	totalCtg := []float64{1, 1, 1}
	preBias := ClassificationPreBias(3, 3)
	n, ok := SearchFactorMulticlass(0, rs, totalCtg, preBias, 0, 0, 1)
	if !ok {
		t.Fatal("expected a winning multiclass factor split")
	}
	lastCode := rs.Runs[len(rs.Runs)-1].Code
	for _, c := range n.Encoding.LeftCodes {
		if c == lastCode {
			t.Fatal("expected the highest-index run's code to remain on the right")
		}
	}
}

func TestBoundaryMeansMatchesWinningCut(t *testing.T) {
	cells := []partition.Cell{
		{Rank: 0, Sum: 1, SCount: 1},
		{Rank: 1, Sum: 1, SCount: 1},
		{Rank: 2, Sum: 9, SCount: 1},
		{Rank: 3, Sum: 9, SCount: 1},
	}
	totalSum, totalSCount := 20.0, 4
	preBias := RegressionPreBias(totalSum, totalSCount)
	n, ok := SearchNumeric(0, cells, totalSum, totalSCount, preBias, 0, 0, MonotoneParams{}, 1)
	if !ok {
		t.Fatal("expected a winning split")
	}
	left, right := BoundaryMeans(cells, n.LHExtent)
	if left != 1 || right != 9 {
		t.Fatalf("expected boundary means (1, 9), got (%v, %v)", left, right)
	}
}

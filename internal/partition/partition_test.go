package partition

import (
	"testing"

	"github.com/hawkberry/Arborist/internal/frame"
)

func buildS1Frame(t *testing.T) *frame.Frame {
	t.Helper()
	x1 := []float64{1, 1, 1, 1, 9, 9, 9, 9}
	x2 := []float64{0.1, 0.5, 0.2, 0.9, 0.3, 0.7, 0.4, 0.6}
	f, err := frame.Ingest(8, []frame.NumericSource{{Dense: x1}, {Dense: x2}}, nil, 1.0)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	return f
}

func TestStageAndRestageIsolatesX1Block(t *testing.T) {
	f := buildS1Frame(t)
	p := New(2, 8, 0)

	sampleOfRow := []int{0, 1, 2, 3, 4, 5, 6, 7}
	mult := []int{1, 1, 1, 1, 1, 1, 1, 1}
	y := []float64{1, 1, 1, 1, 9, 9, 9, 9} // response == x1

	root := p.Stage(f, sampleOfRow, mult, y, nil)
	if root.Len() != 8 {
		t.Fatalf("expected root range of 8 samples, got %d", root.Len())
	}

	// Split on predictor 0 (x1) at the rank boundary between rank 0
	// (value 1) and rank 1 (value 9).
	side := func(c Cell) int {
		if c.Rank == 0 {
			return 0
		}
		return 1
	}
	leftCount := p.ComputePaths(0, root, side)
	if leftCount != 4 {
		t.Fatalf("expected 4 samples on the left, got %d", leftCount)
	}
	leftRng, rightRng, singleton, err := p.Restage(root, leftCount)
	if err != nil {
		t.Fatalf("restage: %v", err)
	}
	if leftRng.Len() != 4 || rightRng.Len() != 4 {
		t.Fatalf("unexpected child ranges: %+v %+v", leftRng, rightRng)
	}
	if !singleton.Left[0] || !singleton.Right[0] {
		t.Fatalf("expected predictor 0 to be a singleton in both children (constant x1 within each)")
	}
	if singleton.Left[1] || singleton.Right[1] {
		t.Fatalf("expected predictor 1 (noise) not to be a singleton in either child")
	}

	p.FlipBuffer()
	cellsLeft, idxLeft := p.CellsOf(0, leftRng)
	for i, c := range cellsLeft {
		if c.Rank != 0 {
			t.Fatalf("expected every left cell on predictor 0 to have rank 0, got %+v", c)
		}
		_ = idxLeft[i]
	}
	cellsRight, _ := p.CellsOf(0, rightRng)
	for _, c := range cellsRight {
		if c.Rank != 1 {
			t.Fatalf("expected every right cell on predictor 0 to have rank 1, got %+v", c)
		}
	}

	// Predictor 1's child ranges must carry the same four underlying
	// samples as predictor 0's, just reordered by its own rank.
	_, idxLeftP1 := p.CellsOf(1, leftRng)
	seen := map[int]bool{}
	for _, s := range idxLeftP1 {
		seen[s] = true
	}
	for _, s := range idxLeft {
		if !seen[s] {
			t.Fatalf("sample %d present in predictor 0's left range but not predictor 1's", s)
		}
	}
}

func TestReplayExplicitAccumulatesCategorySums(t *testing.T) {
	x1 := []float64{0, 0, 0, 1, 1}
	f, err := frame.Ingest(5, []frame.NumericSource{{Dense: x1}}, nil, 1.0)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	p := New(1, 5, 2)
	sampleOfRow := []int{0, 1, 2, 3, 4}
	mult := []int{1, 1, 1, 1, 1}
	y := []float64{1, 1, 1, 1, 1}
	category := []int{0, 0, 0, 1, 1}
	root := p.Stage(f, sampleOfRow, mult, y, category)

	side := func(c Cell) int {
		if c.Rank == 0 {
			return 0
		}
		return 1
	}
	leftSum, leftSCount, ctgLeft := p.ReplayExplicit(0, root, side)
	if leftSCount != 3 {
		t.Fatalf("expected 3 samples on the left, got %d", leftSCount)
	}
	if leftSum != 3 {
		t.Fatalf("expected left sum 3, got %v", leftSum)
	}
	if ctgLeft[0] != 3 || ctgLeft[1] != 0 {
		t.Fatalf("unexpected category sums: %+v", ctgLeft)
	}
}

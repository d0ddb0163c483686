package leaf

import (
	"math/rand"
	"testing"

	"github.com/hawkberry/Arborist/internal/frame"
	"github.com/hawkberry/Arborist/internal/frontier"
	"github.com/hawkberry/Arborist/internal/partition"
)

func buildS1Leaves(t *testing.T) (*partition.Partition, []frontier.Leaf, []float64, []int) {
	x1 := []float64{1, 1, 1, 1, 9, 9, 9, 9}
	x2 := []float64{0.1, 0.5, 0.2, 0.9, 0.3, 0.7, 0.4, 0.6}
	f, err := frame.Ingest(8, []frame.NumericSource{{Dense: x1}, {Dense: x2}}, nil, 1.0)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	part := partition.New(2, 8, 0)
	sampleOfRow := []int{0, 1, 2, 3, 4, 5, 6, 7}
	mult := []int{1, 1, 1, 1, 1, 1, 1, 1}
	y := []float64{1, 1, 1, 1, 9, 9, 9, 9}
	root := part.Stage(f, sampleOfRow, mult, y, nil)

	sum, sCount := 0.0, 0
	for _, v := range y {
		sum += v
		sCount++
	}
	cfg := frontier.Config{MinNode: 1, TotLevels: 4, MinRatio: 0, LeafMax: 0, NThread: 1}
	rng := rand.New(rand.NewSource(1))
	_, leaves, err := frontier.OneTree(f, part, cfg, rng, root, sCount, sum, nil)
	if err != nil {
		t.Fatalf("OneTree: %v", err)
	}
	return part, leaves, y, mult
}

func TestBuildCoversEverySample(t *testing.T) {
	part, leaves, y, mult := buildS1Leaves(t)
	sampleOfRow := []int{0, 1, 2, 3, 4, 5, 6, 7}

	tl := Build(part, leaves, sampleOfRow, mult, y, false)

	total := 0
	for _, block := range tl.Blocks {
		total += len(block)
	}
	if total != 8 {
		t.Fatalf("expected 8 samples across all leaves, got %d", total)
	}
}

func TestBuildThinLeavesOmitsBlocks(t *testing.T) {
	part, leaves, y, mult := buildS1Leaves(t)
	sampleOfRow := []int{0, 1, 2, 3, 4, 5, 6, 7}

	tl := Build(part, leaves, sampleOfRow, mult, y, true)
	if tl.Blocks != nil {
		t.Fatalf("expected thinLeaves to omit sample blocks")
	}
	total := 0
	for _, e := range tl.Extent {
		total += e
	}
	if total != 8 {
		t.Fatalf("expected extent to still cover 8 samples, got %d", total)
	}
}

func TestSortedIdxOrdersByResponse(t *testing.T) {
	part, leaves, y, mult := buildS1Leaves(t)
	sampleOfRow := []int{0, 1, 2, 3, 4, 5, 6, 7}

	tl := Build(part, leaves, sampleOfRow, mult, y, false)
	for id, order := range tl.SortedIdx {
		block := tl.Blocks[id]
		for i := 1; i < len(order); i++ {
			prevRow := block[order[i-1]].Row
			curRow := block[order[i]].Row
			if y[rowToSample(prevRow, sampleOfRow)] > y[rowToSample(curRow, sampleOfRow)] {
				t.Fatalf("leaf %d: SortedIdx not ascending by response", id)
			}
		}
	}
}

func rowToSample(row int, sampleOfRow []int) int {
	for s, r := range sampleOfRow {
		if r == row {
			return s
		}
	}
	return -1
}

package frontier

import (
	"math/rand"
	"testing"

	"github.com/hawkberry/Arborist/internal/frame"
	"github.com/hawkberry/Arborist/internal/partition"
)

func TestOneTreeSplitsOnCausalPredictor(t *testing.T) {
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

	cfg := Config{MinNode: 1, TotLevels: 4, MinRatio: 0, LeafMax: 0, NThread: 1}
	rng := rand.New(rand.NewSource(1))
	pt, leaves, err := OneTree(f, part, cfg, rng, root, sCount, sum, nil)
	if err != nil {
		t.Fatalf("OneTree: %v", err)
	}
	if pt.Nodes[0].Terminal {
		t.Fatal("expected the root to split on the causal predictor")
	}
	if pt.Nodes[0].Pred != 0 {
		t.Fatalf("expected the root to split on predictor 0 (x1), got predictor %d", pt.Nodes[0].Pred)
	}
	if len(leaves) < 2 {
		t.Fatalf("expected at least 2 leaves, got %d", len(leaves))
	}
	total := 0
	for _, lf := range leaves {
		total += lf.Range.Len()
	}
	if total != 8 {
		t.Fatalf("expected leaf ranges to cover all 8 samples, got %d", total)
	}
}

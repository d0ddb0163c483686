package arborist

import (
	"math"
	"math/rand"
	"testing"

	"github.com/hawkberry/Arborist/internal/forest"
	"github.com/hawkberry/Arborist/internal/frame"
)

// TestFitAndPredictRegression exercises the root facade end to end:
// ingest, fit, predict, save, reload, predict again.
func TestFitAndPredictRegression(t *testing.T) {
	x1 := []float64{1, 1, 1, 1, 9, 9, 9, 9}
	x2 := []float64{0.1, 0.5, 0.2, 0.9, 0.3, 0.7, 0.4, 0.6}
	numeric := []frame.NumericSource{{Dense: x1}, {Dense: x2}}

	cfg := TrainConfig{NTree: 3, NSamp: 8, MinNode: 1, TotLevels: 4, NThread: 1, AutoCompressThreshold: 1.0}
	resp := Response{Y: x1}
	rng := rand.New(rand.NewSource(7))

	fst, leaves, _, err := Fit(cfg, 8, numeric, nil, resp, rng)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	rows := []forest.Row{{Numeric: []float64{1, 0.5}}, {Numeric: []float64{9, 0.5}}}
	got := PredictRegression(fst, rows, nil, false)
	if math.Abs(got[0]-1.0) > 1e-9 || math.Abs(got[1]-9.0) > 1e-9 {
		t.Fatalf("expected predictions [1,9], got %v", got)
	}

	w, _, err := ForestWeight(fst, rows[:1], leaves, 8)
	if err != nil {
		t.Fatalf("ForestWeight: %v", err)
	}
	total := 0.0
	for c := 0; c < 8; c++ {
		total += w.At(0, c)
	}
	if math.Abs(total-1.0) > 1e-9 {
		t.Fatalf("expected forest weights to sum to 1, got %v", total)
	}

	path := t.TempDir() + "/model.json"
	if err := SaveModel(path, &Model{Forest: fst, Leaves: leaves}); err != nil {
		t.Fatalf("SaveModel: %v", err)
	}
	m, err := LoadModel(path)
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	got2 := PredictRegression(m.Forest, rows, nil, false)
	if math.Abs(got2[0]-got[0]) > 1e-9 || math.Abs(got2[1]-got[1]) > 1e-9 {
		t.Fatalf("expected reloaded model to predict identically, got %v vs %v", got2, got)
	}
}

package runaccum

import (
	"testing"

	"github.com/hawkberry/Arborist/internal/partition"
)

func TestBuildFoldsRunsRegression(t *testing.T) {
	cells := []partition.Cell{
		{Rank: 0, Sum: 1, SCount: 1},
		{Rank: 0, Sum: 1, SCount: 1},
		{Rank: 1, Sum: 9, SCount: 1},
		{Rank: 1, Sum: 9, SCount: 1},
	}
	rs := Build(cells, false, 0, 0, nil, 0)
	if len(rs.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(rs.Runs))
	}
	if rs.Runs[0].Code != 0 || rs.Runs[0].SCount != 2 || rs.Runs[0].Sum != 2 {
		t.Fatalf("unexpected first run: %+v", rs.Runs[0])
	}
	if rs.Runs[1].Code != 1 || rs.Runs[1].SCount != 2 || rs.Runs[1].Sum != 18 {
		t.Fatalf("unexpected second run: %+v", rs.Runs[1])
	}
}

func TestBuildAppendsResidual(t *testing.T) {
	cells := []partition.Cell{{Rank: 2, Sum: 4, SCount: 1}}
	rs := Build(cells, true, 10, 3, nil, 0)
	if len(rs.Runs) != 2 {
		t.Fatalf("expected explicit run + residual, got %d", len(rs.Runs))
	}
	last := rs.Runs[len(rs.Runs)-1]
	if !last.IsResidual || last.Sum != 10 || last.SCount != 3 {
		t.Fatalf("unexpected residual run: %+v", last)
	}
}

func TestOrderByMeanAscending(t *testing.T) {
	cells := []partition.Cell{
		{Rank: 0, Sum: 90, SCount: 1},
		{Rank: 1, Sum: 10, SCount: 1},
		{Rank: 2, Sum: 50, SCount: 1},
	}
	rs := Build(cells, false, 0, 0, nil, 0)
	order := rs.Order(OrderByMean, nil)
	means := make([]float64, len(order))
	for i, idx := range order {
		means[i] = rs.Runs[idx].Sum / float64(rs.Runs[idx].SCount)
	}
	for i := 1; i < len(means); i++ {
		if means[i] < means[i-1] {
			t.Fatalf("expected ascending means, got %v", means)
		}
	}
}

func TestDeWidthCapsAtMaxWidth(t *testing.T) {
	var cells []partition.Cell
	for i := 0; i < 20; i++ {
		cells = append(cells, partition.Cell{Rank: i, Sum: float64(i), SCount: 1})
	}
	rs := Build(cells, false, 0, 0, nil, 0)
	variates := make([]float64, len(rs.Runs))
	for i := range variates {
		variates[i] = 0.1 + 0.01*float64(i)
	}
	narrowed := rs.DeWidth(variates)
	if len(narrowed.Runs) != MaxWidth {
		t.Fatalf("expected %d runs after de-width, got %d", MaxWidth, len(narrowed.Runs))
	}
}

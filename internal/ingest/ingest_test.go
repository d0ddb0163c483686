package ingest

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/sbinet/npyio"
)

// writeNpy round-trips through npyio.Write the same way
// extra_boost_main's predict/lcurve modes write model output, giving
// ReadNumericColumn a real .npy fixture without depending on any file
// checked into the repository.
func writeNpy(t *testing.T, vals []float64) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "col.npy")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := npyio.Write(f, vals); err != nil {
		t.Fatalf("npyio.Write: %v", err)
	}
	return path
}

func TestReadNumericColumnRoundTrips(t *testing.T) {
	want := []float64{1, 2, 3.5, -4, 0}
	path := writeNpy(t, want)

	got, err := ReadNumericColumn(path)
	if err != nil {
		t.Fatalf("ReadNumericColumn: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(got))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("value %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestReadFactorColumnRoundTrips(t *testing.T) {
	want := []float64{0, 1, 2, 1, 0}
	path := writeNpy(t, want)

	got, err := ReadFactorColumn(path, 3)
	if err != nil {
		t.Fatalf("ReadFactorColumn: %v", err)
	}
	for i, v := range want {
		if got[i] != int(v) {
			t.Fatalf("code %d: expected %d, got %d", i, int(v), got[i])
		}
	}
}

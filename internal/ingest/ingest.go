// Package ingest loads raw predictor columns from .npy files into the
// plain Go slices frame.Ingest consumes, per spec §6's "npy source"
// input contract.
//
// Grounded on ematrix.go's ReadNpy/ReadEMatrix: that function reads a
// whole file into a *mat.Dense feature block (many predictor columns
// at once, via the npyio.NewReader/r.Read(denseMat) call shape). This
// adaptation keeps that call shape but reads one predictor's column
// at a time, since frame.Ingest's NumericSource/FactorSource types
// are per-predictor, not per-file-of-many-columns; library code here
// returns errors explicitly instead of the teacher's
// log.Fatal/HandleError panic-on-read-failure idiom.
package ingest

import (
	"os"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/hawkberry/Arborist/internal/forestutil"
)

// ReadNumericColumn loads a dense numeric predictor column from an
// .npy file holding a single-column (or single-row) array, per
// ematrix.go's r.Read(denseMat) call shape.
func ReadNumericColumn(path string) ([]float64, error) {
	const op = "ingest.ReadNumericColumn"
	denseMat, err := ReadDenseMatrix(path)
	if err != nil {
		return nil, err
	}
	rows, cols := denseMat.Dims()
	switch {
	case cols == 1:
		col := make([]float64, rows)
		mat.Col(col, 0, denseMat)
		return col, nil
	case rows == 1:
		row := make([]float64, cols)
		mat.Row(row, 0, denseMat)
		return row, nil
	default:
		return nil, forestutil.BadInputf(op, "%s: expected a single column or row, got shape (%d,%d)", path, rows, cols)
	}
}

// ReadFactorColumn loads an integer-coded factor predictor column from
// an .npy file, along with the cardinality the caller supplies (the
// trained cardinality is not itself recoverable from the file).
func ReadFactorColumn(path string, cardinality int) ([]int, error) {
	const op = "ingest.ReadFactorColumn"
	vals, err := ReadNumericColumn(path)
	if err != nil {
		return nil, err
	}
	codes := make([]int, len(vals))
	for i, v := range vals {
		codes[i] = int(v)
	}
	return codes, nil
}

// ReadDenseMatrix loads a whole 2-D numeric block in one read, per
// ematrix.go's ReadNpy, for callers that already have a multi-column
// feature block on disk and want to slice it into per-predictor
// columns themselves (e.g. a CLI reading a single "features.npy").
func ReadDenseMatrix(path string) (*mat.Dense, error) {
	const op = "ingest.ReadDenseMatrix"
	f, err := os.Open(path)
	if err != nil {
		return nil, forestutil.New(forestutil.BadInput, op, err)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, forestutil.New(forestutil.BadInput, op, err)
	}
	denseMat := &mat.Dense{}
	if err := r.Read(denseMat); err != nil {
		return nil, forestutil.New(forestutil.BadInput, op, err)
	}
	return denseMat, nil
}

// ColumnsOf splits a dense feature block's columns into the
// []float64 slices frame.NumericSource.Dense expects.
func ColumnsOf(m *mat.Dense) []([]float64) {
	rows, cols := m.Dims()
	out := make([][]float64, cols)
	for c := 0; c < cols; c++ {
		col := make([]float64, rows)
		for r := 0; r < rows; r++ {
			col[r] = m.At(r, c)
		}
		out[c] = col
	}
	return out
}

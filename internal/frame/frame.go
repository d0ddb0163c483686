// Package frame implements the presorted, rank-encoded, RLE-compressed
// observation frame of spec §4.2: each predictor's values are replaced
// by sorted-rank codes and run-length compressed, with a designated
// dense rank that may remain implicit in the stored stream.
//
// The column container shape (one block per predictor, ingested then
// frozen) is grounded on ematrix.go's EMatrix; the RLE (row, rank,
// runLength) contract itself comes from the spec (§4.2) and from
// original_source/ArboristCore/rowrank.h, which no example repo
// implements directly.
package frame

import (
	"math"
	"sort"

	"github.com/hawkberry/Arborist/internal/forestutil"
)

// NoDenseRank marks a predictor for which no rank met the
// auto-compression threshold.
const NoDenseRank = -1

// Run is a maximal contiguous row range [Row, Row+RunLength) sharing
// Rank, in the predictor's RLE-sorted stream.
type Run struct {
	Row       int
	Rank      int
	RunLength int
}

// Predictor holds one predictor's rank-encoded stream plus, for
// numeric predictors, the rank→value side table needed for quantile
// interpolation.
type Predictor struct {
	IsFactor      bool
	Cardinality   int // 0 for numeric
	DistinctVals  int // number of distinct ranks
	DenseRank     int // NoDenseRank if none
	ImplicitCount int // rows reconstructed as residual
	Runs          []Run
	// AllRuns is the full rank-sorted run stream before dense-rank
	// compaction, including the rows Runs omits. Partition stages from
	// AllRuns so that every predictor's staged cell count stays equal
	// to the node's sample count regardless of any predictor's dense
	// rank; SplitSearch's dense-regime handling is applied by the
	// Frontier carving the dense-rank cells back out of that uniform
	// stream before searching, rather than by Partition never storing
	// them in the first place.
	AllRuns []Run
	NumVal  []float64 // len DistinctVals, numeric predictors only
}

// Frame is the immutable, ingest-once observation frame shared
// read-only by all training workers (spec §5).
type Frame struct {
	NRow                  int
	NPredNum              int
	NPredFac              int
	AutoCompressThreshold float64
	Predictors            []*Predictor // len NPredNum+NPredFac, numeric first
}

// NPred is the total predictor count.
func (f *Frame) NPred() int { return f.NPredNum + f.NPredFac }

// IsFactor reports whether predictor p is a factor predictor.
func (f *Frame) IsFactor(p int) bool { return p >= f.NPredNum }

// Cardinality returns predictor p's factor cardinality, or 0 for
// numeric predictors.
func (f *Frame) Cardinality(p int) int { return f.Predictors[p].Cardinality }

// NumericSource supplies a numeric predictor's column, either dense
// or sparse, per spec §6.
type NumericSource struct {
	Dense []float64 // len nRow, or nil if sparse

	// Sparse layout: a run is (Val[k], RowStart[k], RunLength[k]);
	// used only when Dense is nil.
	Val       []float64
	RowStart  []int
	RunLength []int
}

// FactorSource supplies a factor predictor's zero-based codes plus its
// cardinality.
type FactorSource struct {
	Codes       []int
	Cardinality int
}

// Ingest builds a Frame from nRow rows of numeric and factor
// predictor sources. autoCompressThreshold is spec §4.2's dense-rank
// trigger (typically 0.25; 1.0 disables dense-rank detection
// entirely, per spec §8 boundary behavior).
func Ingest(nRow int, numeric []NumericSource, factor []FactorSource, autoCompressThreshold float64) (*Frame, error) {
	const op = "frame.Ingest"
	if nRow <= 0 {
		return nil, forestutil.BadInputf(op, "nRow must be positive, got %d", nRow)
	}
	f := &Frame{
		NRow:                  nRow,
		NPredNum:              len(numeric),
		NPredFac:              len(factor),
		AutoCompressThreshold: autoCompressThreshold,
	}
	for _, src := range numeric {
		pred, err := ingestNumeric(op, nRow, src, autoCompressThreshold)
		if err != nil {
			return nil, err
		}
		f.Predictors = append(f.Predictors, pred)
	}
	for _, src := range factor {
		pred, err := ingestFactor(op, nRow, src, autoCompressThreshold)
		if err != nil {
			return nil, err
		}
		f.Predictors = append(f.Predictors, pred)
	}
	return f, nil
}

type rowVal struct {
	row int
	val float64
}

func ingestNumeric(op string, nRow int, src NumericSource, threshold float64) (*Predictor, error) {
	vals := make([]float64, nRow)
	if src.Dense != nil {
		if len(src.Dense) != nRow {
			return nil, forestutil.BadInputf(op, "dense column length %d != nRow %d", len(src.Dense), nRow)
		}
		copy(vals, src.Dense)
	} else {
		if src.RowStart == nil || src.RunLength == nil || src.Val == nil {
			return nil, forestutil.BadInputf(op, "unsupported sparse layout: missing rowStart/runLength/val")
		}
		if len(src.RowStart) != len(src.RunLength) || len(src.RowStart) != len(src.Val) {
			return nil, forestutil.BadInputf(op, "sparse layout arrays have mismatched lengths")
		}
		for k := range src.Val {
			start, length := src.RowStart[k], src.RunLength[k]
			if start < 0 || length < 0 || start+length > nRow {
				return nil, forestutil.BadInputf(op, "sparse run %d out of bounds", k)
			}
			for r := start; r < start+length; r++ {
				vals[r] = src.Val[k]
			}
		}
	}

	order := make([]rowVal, nRow)
	for r, v := range vals {
		order[r] = rowVal{r, v}
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].val < order[j].val })

	numVal := make([]float64, 0, nRow)
	rankOf := make([]int, nRow) // rankOf[row] = assigned rank
	rank := -1
	var prevVal float64
	for i, rv := range order {
		if i == 0 || rv.val != prevVal {
			rank++
			numVal = append(numVal, rv.val)
			prevVal = rv.val
		}
		rankOf[rv.row] = rank
	}

	runs := buildRuns(rankOf)
	denseRank, implicit, kept := detectDense(runs, nRow, threshold)

	return &Predictor{
		IsFactor:      false,
		DistinctVals:  len(numVal),
		DenseRank:     denseRank,
		ImplicitCount: implicit,
		Runs:          kept,
		AllRuns:       runs,
		NumVal:        numVal,
	}, nil
}

func ingestFactor(op string, nRow int, src FactorSource, threshold float64) (*Predictor, error) {
	if len(src.Codes) != nRow {
		return nil, forestutil.BadInputf(op, "factor column length %d != nRow %d", len(src.Codes), nRow)
	}
	if src.Cardinality <= 0 {
		return nil, forestutil.BadInputf(op, "factor cardinality must be positive, got %d", src.Cardinality)
	}
	rankOf := make([]int, nRow)
	copy(rankOf, src.Codes)
	for _, c := range rankOf {
		if c < 0 || c >= src.Cardinality {
			return nil, forestutil.BadInputf(op, "factor code %d out of range [0,%d)", c, src.Cardinality)
		}
	}
	runs := buildRuns(rankOf)
	denseRank, implicit, kept := detectDense(runs, nRow, threshold)
	return &Predictor{
		IsFactor:      true,
		Cardinality:   src.Cardinality,
		DistinctVals:  src.Cardinality,
		DenseRank:     denseRank,
		ImplicitCount: implicit,
		Runs:          kept,
		AllRuns:       runs,
	}, nil
}

// QuantileRank implements spec §4.2's quantile-rank interpolation: given
// the straddling rank pair a SplitSearch nucleus reports and a
// per-predictor quantile q in [0,1], it produces the concrete split
// value. Ties at the endpoints (q=0 or rLo==rHi) resolve to the left
// endpoint, since floor and ceil then coincide.
func (p *Predictor) QuantileRank(rLo, rHi int, q float64) float64 {
	if len(p.NumVal) == 0 {
		return 0
	}
	clampIdx := func(i int) int {
		if i < 0 {
			return 0
		}
		if i >= len(p.NumVal) {
			return len(p.NumVal) - 1
		}
		return i
	}
	pos := float64(rLo) + q*float64(rHi-rLo)
	lo := clampIdx(int(math.Floor(pos)))
	hi := clampIdx(int(math.Ceil(pos)))
	frac := pos - math.Floor(pos)
	return p.NumVal[lo]*(1-frac) + p.NumVal[hi]*frac
}

// buildRuns folds rankOf (indexed by row) into maximal contiguous
// same-rank runs, then reorders them ascending by rank so the stream
// is rank-sorted as spec §4.2 requires.
func buildRuns(rankOf []int) []Run {
	var runs []Run
	n := len(rankOf)
	for i := 0; i < n; {
		j := i + 1
		for j < n && rankOf[j] == rankOf[i] {
			j++
		}
		runs = append(runs, Run{Row: i, Rank: rankOf[i], RunLength: j - i})
		i = j
	}
	sort.SliceStable(runs, func(a, b int) bool { return runs[a].Rank < runs[b].Rank })
	return runs
}

// detectDense implements spec §4.2's auto-compression: the longest
// constant-rank run is compared against threshold×nRow; if it meets
// the bar, that rank's explicit runs are dropped and its rows become
// an implicit residual.
func detectDense(runs []Run, nRow int, threshold float64) (denseRank, implicitCount int, kept []Run) {
	if len(runs) == 0 {
		return NoDenseRank, 0, runs
	}
	longest := runs[0]
	for _, r := range runs[1:] {
		if r.RunLength > longest.RunLength {
			longest = r
		}
	}
	// Strict: at threshold 1.0, an all-identical predictor has
	// longest.RunLength == nRow, which must still fall through to
	// NoDenseRank rather than compress away its only rank.
	if float64(longest.RunLength) <= threshold*float64(nRow) {
		return NoDenseRank, 0, runs
	}
	explicit := 0
	kept = make([]Run, 0, len(runs))
	for _, r := range runs {
		if r.Rank == longest.Rank {
			continue
		}
		kept = append(kept, r)
		explicit += r.RunLength
	}
	return longest.Rank, nRow - explicit, kept
}

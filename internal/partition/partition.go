// Package partition implements the double-buffered per-predictor
// sample staging of spec §4.4: each predictor keeps its bagged
// samples in a contiguous, node-ordered buffer that is restaged
// (not re-sorted) every time a node splits, by composing the parent's
// predictor order with the split's path mapping.
//
// The restage-by-scatter shape is adapted from ematrix.go's Split
// (partition rows into left/right by a threshold), replacing its
// per-split allocation of two fresh matrices with two buffers
// pre-sized once for the life of a tree (spec §9's "manual new/delete"
// re-architecture item) and generalizing the single numeric-threshold
// test to the path-function spec §4.4 describes for both numeric and
// factor splits.
package partition

import (
	"github.com/hawkberry/Arborist/internal/forestutil"
	"github.com/hawkberry/Arborist/internal/frame"
)

// Cell is one (predictor, sample) observation inside the partition:
// the triple spec §3 names, with the category code carried alongside
// rather than bit-packed into it (cells are transient per-tree state,
// not part of the bit-exact serialized pools of spec §6).
type Cell struct {
	Rank     int
	Sum      float64
	SCount   int
	Category int // meaningful only for a categorical response
}

// Range is a node's contiguous sample range, identical across every
// predictor's buffer for that node (spec §3 invariant 1).
type Range struct {
	Start, End int
}

// Len reports the range's sample count.
func (r Range) Len() int { return r.End - r.Start }

const (
	extinct = -1
	left    = 0
	right   = 1
)

// Partition is a double-buffered, per-predictor sample ordering owned
// exclusively by one tree-worker for the life of that tree (spec §5).
type Partition struct {
	nPred    int
	bagCount int
	nCtg     int

	bufs [2]buffer
	cur  int // index of the buffer holding the most recently finished level

	// path[sampleIdx] is the live node's side assignment relative to
	// its most recent restage (left/right), or extinct once the
	// sample's node has become a leaf. It is consumed, not produced,
	// by Restage: ComputePaths writes it just before Restage reads it.
	path []int
}

type buffer struct {
	cells []Cell
	idx   []int // idx[predOffset(p)+k] = sampleIdx occupying slot k of predictor p
}

func newBuffer(nPred, bagCount int) buffer {
	return buffer{
		cells: make([]Cell, nPred*bagCount),
		idx:   make([]int, nPred*bagCount),
	}
}

func (p *Partition) predOffset(pred int) int { return pred * p.bagCount }

// New allocates the two pre-sized buffers for a tree with the given
// predictor count, bag size and category count (0 for regression).
func New(nPred, bagCount, nCtg int) *Partition {
	pt := &Partition{nPred: nPred, bagCount: bagCount, nCtg: nCtg}
	pt.bufs[0] = newBuffer(nPred, bagCount)
	pt.bufs[1] = newBuffer(nPred, bagCount)
	pt.path = make([]int, bagCount)
	return pt
}

// BagCount reports the number of bagged samples the partition holds.
func (p *Partition) BagCount() int { return p.bagCount }

// source returns the buffer holding the current level's state.
func (p *Partition) source() *buffer { return &p.bufs[p.cur] }
func (p *Partition) target() *buffer { return &p.bufs[1-p.cur] }

// Stage performs the level-0 staging of spec §4.4: for each
// predictor, walk its full RLE-sorted stream (frame.Predictor.AllRuns,
// which includes any dense-rank rows Frame's compacted Runs view
// omits) and, for every (row, rank) entry whose row is bagged, write a
// cell into that predictor's contiguous region of the source buffer.
// Staging every row keeps every predictor's explicit cell count equal
// to the node's sample count; the dense-regime split search carves the
// dense-rank cells back out as a residual itself, rather than relying
// on Partition to have never stored them.
//
// sampleOfRow maps a raw frame row to its sample index in [0,
// bagCount) (or -1 if the row was not bagged); multOfSample and
// yOfSample give each sample's multiplicity and response proxy sum
// contribution; categoryOfSample gives its category code (ignored for
// a numeric response).
func (p *Partition) Stage(
	f *frame.Frame,
	sampleOfRow []int,
	multOfSample []int,
	yOfSample []float64,
	categoryOfSample []int,
) Range {
	buf := p.source()
	for predIdx, pred := range f.Predictors {
		cursor := p.predOffset(predIdx)
		for _, run := range pred.AllRuns {
			for row := run.Row; row < run.Row+run.RunLength; row++ {
				s := sampleOfRow[row]
				if s < 0 {
					continue
				}
				mult := multOfSample[s]
				cat := 0
				if categoryOfSample != nil {
					cat = categoryOfSample[s]
				}
				buf.cells[cursor] = Cell{
					Rank:     run.Rank,
					Sum:      yOfSample[s] * float64(mult),
					SCount:   mult,
					Category: cat,
				}
				buf.idx[cursor] = s
				cursor++
			}
		}
	}
	for s := range p.path {
		p.path[s] = left // all samples start in the (sole) root node
	}
	return Range{Start: 0, End: p.bagCount}
}

// CellsOf returns predictor p's cells and sample indices within rng,
// in the current buffer's order, without copying.
//
// This is only correct for a range still live in the current level:
// a range that terminated into a leaf at an earlier level keeps its
// data in whichever buffer was current when it terminated, which may
// no longer be the buffer CellsOf reads once later levels have
// flipped past it. Callers holding on to a leaf's range across levels
// must use CellsAt with the buffer index captured at termination time
// (CurrentBuffer), not CellsOf.
func (p *Partition) CellsOf(pred int, rng Range) (cells []Cell, idx []int) {
	return p.CellsAt(pred, rng, p.cur)
}

// CurrentBuffer reports which of the two buffers is the live source
// for the level being processed right now. A leaf formed during this
// level must record this value if its cells are to be read correctly
// after FlipBuffer advances past it.
func (p *Partition) CurrentBuffer() int { return p.cur }

// CellsAt is CellsOf against an explicit buffer index rather than the
// partition's current one, for reading a leaf range whose buffer was
// fixed at the level it terminated.
func (p *Partition) CellsAt(pred int, rng Range, buf int) (cells []Cell, idx []int) {
	b := &p.bufs[buf]
	base := p.predOffset(pred)
	return b.cells[base+rng.Start : base+rng.End], b.idx[base+rng.Start : base+rng.End]
}

// SideFunc classifies one cell as left (0) or right (1) of a split.
type SideFunc func(Cell) int

// ComputePaths walks the winning predictor's cells within an
// ancestor's range and records each sample's side in the partition's
// path table; other predictors' Restage passes read this table
// instead of recomputing the split. Returns the left-side sample
// count (the only quantity Restage needs beyond the table itself).
func (p *Partition) ComputePaths(pred int, rng Range, side SideFunc) (leftCount int) {
	cells, idx := p.CellsOf(pred, rng)
	for i, c := range cells {
		s := side(c)
		p.path[idx[i]] = s
		if s == left {
			leftCount++
		}
	}
	return leftCount
}

// MarkExtinct removes every sample in rng from future restaging,
// because its node has become a leaf (spec §4.4/§3: "non-extinct"
// IdxPath entries point into the current frontier's range).
func (p *Partition) MarkExtinct(pred int, rng Range) {
	_, idx := p.CellsOf(pred, rng)
	for _, s := range idx {
		p.path[s] = extinct
	}
}

// SingletonReport tells the caller, per predictor, whether every
// sample reaching a given child shares one rank for that predictor —
// such a (node, predictor) pair is never a future split candidate
// (spec §3 invariant 4, §4.4).
type SingletonReport struct {
	Left, Right []bool // len nPred
}

// Restage redistributes every predictor's cells in rng into the two
// contiguous child ranges the just-computed path table implies,
// composing the parent's per-predictor order with the split's path
// mapping instead of re-sorting (spec §4.4). It must be called after
// ComputePaths has populated the path table for every sample in rng.
func (p *Partition) Restage(rng Range, leftCount int) (leftRng, rightRng Range, singleton SingletonReport, err error) {
	const op = "partition.Restage"
	if leftCount < 0 || leftCount > rng.Len() {
		return Range{}, Range{}, SingletonReport{}, forestutil.New(forestutil.ResourceExhausted, op, nil)
	}
	leftRng = Range{Start: rng.Start, End: rng.Start + leftCount}
	rightRng = Range{Start: rng.Start + leftCount, End: rng.End}
	singleton.Left = make([]bool, p.nPred)
	singleton.Right = make([]bool, p.nPred)

	src := p.source()
	dst := p.target()

	for pred := 0; pred < p.nPred; pred++ {
		base := p.predOffset(pred)
		leftCur := base + leftRng.Start
		rightCur := base + rightRng.Start

		leftRankSeen, rightRankSeen := -1, -1
		leftSingle, rightSingle := true, true

		for k := rng.Start; k < rng.End; k++ {
			srcPos := base + k
			s := src.idx[srcPos]
			cell := src.cells[srcPos]
			switch p.path[s] {
			case left:
				dst.cells[leftCur] = cell
				dst.idx[leftCur] = s
				leftCur++
				if leftRankSeen == -1 {
					leftRankSeen = cell.Rank
				} else if cell.Rank != leftRankSeen {
					leftSingle = false
				}
			case right:
				dst.cells[rightCur] = cell
				dst.idx[rightCur] = s
				rightCur++
				if rightRankSeen == -1 {
					rightRankSeen = cell.Rank
				} else if cell.Rank != rightRankSeen {
					rightSingle = false
				}
			default: // extinct: should not occur within a live range
			}
		}
		singleton.Left[pred] = leftSingle && leftRng.Len() > 0
		singleton.Right[pred] = rightSingle && rightRng.Len() > 0
	}
	return leftRng, rightRng, singleton, nil
}

// FlipBuffer advances the double buffer between levels: the level
// just restaged into target becomes the next level's source (spec
// §4.4, a single-writer event per spec §5).
func (p *Partition) FlipBuffer() { p.cur = 1 - p.cur }

// ReplayExplicit implements spec §4.4's block-replay: given a winning
// split's explicit sample range on predictor p, classify every cell
// by side, accumulate per-category explicit sums/counts when the
// response is categorical, and return the total explicit left-side
// response sum and sample count so the Frontier can learn the split's
// outcome without re-sorting.
func (p *Partition) ReplayExplicit(pred int, rng Range, side SideFunc) (leftSum float64, leftSCount int, ctgLeftSum []float64) {
	cells, _ := p.CellsOf(pred, rng)
	if p.nCtg > 0 {
		ctgLeftSum = make([]float64, p.nCtg)
	}
	for _, c := range cells {
		if side(c) == left {
			leftSum += c.Sum
			leftSCount += c.SCount
			if ctgLeftSum != nil {
				ctgLeftSum[c.Category] += c.Sum
			}
		}
	}
	return leftSum, leftSCount, ctgLeftSum
}

// Package frontier implements spec §4.7: the set of live nodes at the
// current level, the level-by-level scheduling loop that drives
// SplitSearch and Partition together, and the growable PreTree that
// records the winning splits.
//
// The flat, delta-addressed node array is adapted from tree.go's
// OneTree.TreeNodes/BuildTree: that file recurses one node at a time
// and stores explicit LeftIndex/RightIndex fields, whereas spec §5's
// "candidates within a level" parallel scope calls for scheduling
// every live node at once. BuildTree's recursion is unrolled here into
// an explicit per-level loop (OneTree) over a frontier slice, and the
// pair of sibling indices is reduced to a single left-child delta
// (the right child is always left+1) to match the packed node record
// spec §3 names.
package frontier

import (
	"github.com/hawkberry/Arborist/internal/frame"
	"github.com/hawkberry/Arborist/internal/partition"
	"github.com/hawkberry/Arborist/internal/runaccum"
	"github.com/hawkberry/Arborist/internal/sampler"
	"github.com/hawkberry/Arborist/internal/split"
	"github.com/hawkberry/Arborist/internal/workpool"
)

// Config bundles the scheduling and stopping parameters spec §4.7 and
// §6 name for growing a single tree.
type Config struct {
	PredFixed int
	PredProb  float64
	MinNode   int
	TotLevels int
	MinRatio  float64
	LeafMax   int
	NThread   int
	NCtg      int       // 0 for regression
	RegMono   []float64 // len nPred, numeric predictors only; 0 disables
}

// Leaf associates a finished PreTree leaf id with the partition sample
// range (in a canonical predictor's buffer ordering) that terminated
// there, so the Leaf component can build its sample blocks afterward.
// NodeID is resolved to a final LeafID only once growth (and any
// leafMerge collapsing) is complete, since LeafMerge can retroactively
// alias a pre-tree node's leaf id to a sibling's after this record is
// first appended.
//
// Buf records which of Partition's two buffers held Range's data at
// the moment this leaf was made terminal (Partition.CurrentBuffer()).
// The partition keeps restaging and flipping buffers for every level
// after this leaf's range has stopped moving, so a caller reading
// Range back later must use Partition.CellsAt(pred, Range, Buf), not
// CellsOf's "whatever is current now" buffer — two leaves from
// different levels can disagree on which buffer is current by the
// time growth finishes.
type Leaf struct {
	Range  partition.Range
	Buf    int
	NodeID int
	LeafID int
}

type liveNode struct {
	id         int
	rng        partition.Range
	sCount     int
	sum        float64
	ctgSum     []float64
	parentGain float64
}

func (nd *liveNode) preBias(nCtg int) float64 {
	if nCtg == 0 {
		return split.RegressionPreBias(nd.sum, nd.sCount)
	}
	ss := 0.0
	for _, v := range nd.ctgSum {
		ss += v * v
	}
	return split.ClassificationPreBias(ss, nd.sum)
}

// OneTree drives spec §4.7's level loop: starting from the already-
// staged root range and its aggregate statistics, it schedules
// candidates, invokes SplitSearch, restages Partition along the
// winning split, and grows the PreTree, until no live node splits,
// depth exceeds cfg.TotLevels, or every node has terminated.
func OneTree(
	f *frame.Frame,
	part *partition.Partition,
	cfg Config,
	rng sampler.RNG,
	root partition.Range,
	rootSCount int,
	rootSum float64,
	rootCtgSum []float64,
) (*PreTree, []Leaf, error) {
	pt := newPreTree()
	level := []*liveNode{{id: 0, rng: root, sCount: rootSCount, sum: rootSum, ctgSum: rootCtgSum}}
	var leaves []Leaf

	for depth := 0; len(level) > 0 && (cfg.TotLevels <= 0 || depth < cfg.TotLevels); depth++ {
		var next []*liveNode
		for _, nd := range level {
			if nd.sCount < 2*cfg.MinNode {
				pt.MakeTerminal(nd.id)
				leaves = append(leaves, Leaf{Range: nd.rng, Buf: part.CurrentBuffer(), NodeID: nd.id})
				continue
			}
			nucleus, pred, ok := searchBest(f, part, cfg, rng, nd)
			if !ok {
				pt.MakeTerminal(nd.id)
				leaves = append(leaves, Leaf{Range: nd.rng, Buf: part.CurrentBuffer(), NodeID: nd.id})
				continue
			}

			predInfo := f.Predictors[pred]
			side := sideFuncFor(nucleus)
			leftSum, leftSCount, ctgLeftSum := part.ReplayExplicit(pred, nd.rng, side)
			leftCount := part.ComputePaths(pred, nd.rng, side)
			leftRng, rightRng, _, err := part.Restage(nd.rng, leftCount)
			if err != nil {
				return nil, nil, err
			}

			var leftID, rightID int
			if predInfo.IsFactor {
				leftID, rightID = pt.BranchFac(nd.id, nucleus, predInfo.Cardinality)
			} else {
				leftID, rightID = pt.BranchNum(nd.id, nucleus)
			}

			leftChild := &liveNode{id: leftID, rng: leftRng, sCount: leftSCount, sum: leftSum, parentGain: nucleus.InfoGain}
			rightChild := &liveNode{id: rightID, rng: rightRng, sCount: nd.sCount - leftSCount, sum: nd.sum - leftSum, parentGain: nucleus.InfoGain}
			if cfg.NCtg > 0 {
				leftChild.ctgSum = ctgLeftSum
				rightChild.ctgSum = subtractCtg(nd.ctgSum, ctgLeftSum)
			}
			next = append(next, leftChild, rightChild)
		}
		part.FlipBuffer()
		pt.LeafMerge(cfg.LeafMax)
		level = next
	}

	for _, nd := range level {
		pt.MakeTerminal(nd.id)
		leaves = append(leaves, Leaf{Range: nd.rng, Buf: part.CurrentBuffer(), NodeID: nd.id})
	}
	pt.LeafMerge(cfg.LeafMax)

	// LeafMerge can alias a node's LeafID to a sibling's after this
	// record was first appended, so the final id is resolved only now.
	for i := range leaves {
		leaves[i].LeafID = pt.Nodes[leaves[i].NodeID].LeafID
	}
	return pt, leaves, nil
}

func subtractCtg(total, left []float64) []float64 {
	if total == nil {
		return nil
	}
	out := make([]float64, len(total))
	for c := range total {
		out[c] = total[c] - left[c]
	}
	return out
}

// searchBest schedules this node's candidate predictors and invokes
// SplitSearch across them in parallel, picking the per-node argmax
// spec §4.6 requires the Frontier to take.
//
// Every draw from rng for this node's candidates happens here, on the
// calling goroutine, before searchOne runs across internal/workpool:
// spec §9's design notes require the per-(node,predictor) monotonicity
// gate and the per-run wide-run de-width variates to be pre-drawn so
// placement is deterministic irrespective of candidate completion
// order, and rng (typically *math/rand.Rand) is not safe for
// concurrent use in any case.
func searchBest(f *frame.Frame, part *partition.Partition, cfg Config, rng sampler.RNG, nd *liveNode) (split.Nucleus, int, bool) {
	candidates := scheduleCandidates(f.NPred(), cfg.PredFixed, cfg.PredProb, rng)
	results := make([]split.Nucleus, len(candidates))
	found := make([]bool, len(candidates))
	preBias := nd.preBias(cfg.NCtg)

	monoDraw := make([]float64, len(candidates))
	wideVariates := make([][]float64, len(candidates))
	for i, pred := range candidates {
		monoDraw[i] = rng.Float64()
		p := f.Predictors[pred]
		if p.IsFactor {
			// One variate per possible run: every distinct factor code
			// plus the dense-rank residual, an upper bound on rs.Runs
			// independent of this node's actual data.
			variates := make([]float64, p.Cardinality+1)
			for j := range variates {
				variates[j] = rng.Float64()
			}
			wideVariates[i] = variates
		}
	}

	workpool.Parallel(cfg.NThread, len(candidates), func(i int) {
		results[i], found[i] = searchOne(f, part, cfg, nd, candidates[i], preBias, monoDraw[i], wideVariates[i])
	})

	best := -1
	for i, ok := range found {
		if !ok {
			continue
		}
		if best == -1 || results[i].InfoGain > results[best].InfoGain {
			best = i
		}
	}
	if best == -1 {
		return split.Nucleus{}, -1, false
	}
	return results[best], candidates[best], true
}

func searchOne(f *frame.Frame, part *partition.Partition, cfg Config, nd *liveNode, pred int, preBias, monoDraw float64, wideVariates []float64) (split.Nucleus, bool) {
	cells, _ := part.CellsOf(pred, nd.rng)
	p := f.Predictors[pred]

	if p.IsFactor {
		rs := buildRunSetForFactor(cells, p, cfg.NCtg)
		if len(rs.Runs) > runaccum.MaxWidth {
			rs = rs.DeWidth(wideVariates[:len(rs.Runs)])
		}
		switch {
		case cfg.NCtg == 0:
			return split.SearchFactorRegression(pred, rs, nd.sum, nd.sCount, preBias, cfg.MinRatio, nd.parentGain, cfg.MinNode)
		case cfg.NCtg == 2:
			return split.SearchFactorBinary(pred, rs, nd.sum, nd.sCount, nd.ctgSum, preBias, cfg.MinRatio, nd.parentGain, cfg.MinNode)
		default:
			return split.SearchFactorMulticlass(pred, rs, nd.ctgSum, preBias, cfg.MinRatio, nd.parentGain, cfg.MinNode)
		}
	}

	mono := split.MonotoneParams{}
	if cfg.NCtg == 0 && cfg.RegMono != nil && cfg.RegMono[pred] != 0 {
		mono.Constraint = cfg.RegMono[pred]
		mono.Active = split.MonotoneActive(mono.Constraint, monoDraw)
	}

	if p.DenseRank != frame.NoDenseRank {
		if cfg.NCtg == 0 {
			explicit, residualSum, residualSCount := splitResidual(cells, p.DenseRank)
			return split.SearchNumericImplicit(pred, explicit, p.DenseRank, p.ImplicitCount, residualSum, residualSCount, nd.sum, nd.sCount, preBias, cfg.MinRatio, nd.parentGain, mono, cfg.MinNode)
		}
		// Classification has no dedicated dense-regime sweep; the dense
		// rank's cells are still present in cells (Partition stages
		// every row), so the ordinary explicit sweep already covers
		// them correctly, just without the residual-splicing shortcut.
		return split.SearchNumericCtg(pred, cells, nd.sum, nd.sCount, nd.ctgSum, preBias, cfg.MinRatio, nd.parentGain, cfg.MinNode)
	}

	if cfg.NCtg == 0 {
		return split.SearchNumeric(pred, cells, nd.sum, nd.sCount, preBias, cfg.MinRatio, nd.parentGain, mono, cfg.MinNode)
	}
	return split.SearchNumericCtg(pred, cells, nd.sum, nd.sCount, nd.ctgSum, preBias, cfg.MinRatio, nd.parentGain, cfg.MinNode)
}

// splitResidual carves a predictor's dense-rank cells (staged inline
// by Partition) back out of the explicit sweep and folds them into a
// residual sum/count, per spec §4.6's dense-regime handling.
func splitResidual(cells []partition.Cell, denseRank int) (explicit []partition.Cell, residualSum float64, residualSCount int) {
	explicit = make([]partition.Cell, 0, len(cells))
	for _, c := range cells {
		if c.Rank == denseRank {
			residualSum += c.Sum
			residualSCount += c.SCount
			continue
		}
		explicit = append(explicit, c)
	}
	return explicit, residualSum, residualSCount
}

func buildRunSetForFactor(cells []partition.Cell, p *frame.Predictor, nCtg int) *runaccum.RunSet {
	if p.DenseRank == frame.NoDenseRank {
		return runaccum.Build(cells, false, 0, 0, nil, nCtg)
	}
	explicit, residualSum, residualSCount := splitResidual(cells, p.DenseRank)
	var residualCtg []float64
	if nCtg > 0 {
		residualCtg = make([]float64, nCtg)
		for _, c := range cells {
			if c.Rank == p.DenseRank {
				residualCtg[c.Category] += c.Sum
			}
		}
	}
	return runaccum.Build(explicit, true, residualSum, residualSCount, residualCtg, nCtg)
}

// sideFuncFor builds the SideFunc ComputePaths and ReplayExplicit need
// from a winning Nucleus: numeric splits route by rank threshold,
// factor splits route by code membership.
func sideFuncFor(n split.Nucleus) partition.SideFunc {
	if n.Encoding.IsFactor {
		left := make(map[int]bool, len(n.Encoding.LeftCodes))
		for _, c := range n.Encoding.LeftCodes {
			left[c] = true
		}
		return func(c partition.Cell) int {
			if left[c.Rank] {
				return 0
			}
			return 1
		}
	}
	lo := n.Encoding.RankRangeLo
	return func(c partition.Cell) int {
		if c.Rank <= lo {
			return 0
		}
		return 1
	}
}

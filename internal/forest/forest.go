// Package forest implements spec §4.8: the packed, cross-tree node
// pool and factor-bit pool addressed by per-tree prefix-sum offset
// tables, the prediction walker, and the debug graph renderer.
//
// The flat node array is grounded on tree.go's TreeNodes (no pointer
// fields, leaf vs. interior discriminated by a sentinel) and on
// ebooster.go's PredictValue's walk-to-leaf loop, adapted from one
// array per tree to a single forest-wide pool sliced by
// NodeOrigin/FacOrigin per spec §4.8/§6 — no per-tree allocation
// survives past Trainer.Fit.
package forest

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/hawkberry/Arborist/internal/forestutil"
	"github.com/hawkberry/Arborist/internal/frame"
	"github.com/hawkberry/Arborist/internal/frontier"
)

// Node is one packed decision node. Terminal nodes (LeftDelta == 0,
// per spec §3's invariant) carry a Score and, for classification, a
// CtgProbs distribution; interior nodes carry the predictor, the
// split test (Threshold for numeric, FacOffset/FacLen into the
// forest's factor-bit pool for a factor), and the delta to the left
// child (the right child is always leftChild+1).
type Node struct {
	Pred      int
	IsFactor  bool
	Threshold float64
	FacOffset int
	FacLen    int
	LeftDelta int
	InfoGain  float64

	Score     float64
	CtgProbs  []float64
	LeafID    int
}

// Row is one prediction-time observation, split into its numeric and
// factor fields using the same global predictor indexing as Frame:
// Numeric[p] for p < NPredNum, Factor[p-NPredNum] for p >= NPredNum.
type Row struct {
	Numeric []float64
	Factor  []int
}

// Forest is the packed cross-tree pool of spec §4.8/§6.
type Forest struct {
	Nodes   []Node
	FacBits []bool

	NodeOrigin []int // len nTree+1, prefix sums
	FacOrigin  []int // len nTree+1, prefix sums

	NPredNum      int
	NPredFac      int
	Cardinalities []int // len NPredFac

	NCtg int // 0 for regression

	DefaultRegression float64   // training response mean fallback
	DefaultCategory   int       // most frequent training category fallback
	DefaultProb       []float64 // empirical category distribution fallback
}

// NTree reports the number of trees packed into the forest.
func (f *Forest) NTree() int {
	if len(f.NodeOrigin) == 0 {
		return 0
	}
	return len(f.NodeOrigin) - 1
}

// New allocates an empty forest for the given predictor layout.
func New(npredNum, npredFac int, cardinalities []int, nCtg int) *Forest {
	return &Forest{
		NPredNum:      npredNum,
		NPredFac:      npredFac,
		Cardinalities: cardinalities,
		NCtg:          nCtg,
		NodeOrigin:    []int{0},
		FacOrigin:     []int{0},
	}
}

// ConsumeTree implements spec §4.7's "Consume" step: it walks pt's
// pre-tree array in storage order (the level-by-level order in which
// the Frontier allocated the nodes, not pre-order; each left-child
// delta carries over unchanged) and emits one
// packed Node per pre-tree node, translating numeric rank ranges into
// concrete thresholds via the predictor's quantile interpolation and
// copying factor-bit ranges into the forest's pool. leafScore and
// leafProbs are indexed by pre-tree leaf id (leafProbs nil for a
// regression tree).
func (f *Forest) ConsumeTree(fr *frame.Frame, pt *frontier.PreTree, splitQuant []float64, leafScore []float64, leafProbs [][]float64) {
	for _, n := range pt.Nodes {
		if n.Terminal {
			node := Node{LeafID: n.LeafID}
			if n.LeafID >= 0 && n.LeafID < len(leafScore) {
				node.Score = leafScore[n.LeafID]
			}
			if leafProbs != nil && n.LeafID >= 0 && n.LeafID < len(leafProbs) {
				node.CtgProbs = leafProbs[n.LeafID]
			}
			f.Nodes = append(f.Nodes, node)
			continue
		}
		if n.IsFactor {
			offset := len(f.FacBits)
			f.FacBits = append(f.FacBits, pt.FacBits[n.FacBitStart:n.FacBitStart+n.FacBitLen]...)
			f.Nodes = append(f.Nodes, Node{
				Pred: n.Pred, IsFactor: true,
				FacOffset: offset, FacLen: n.FacBitLen, LeftDelta: n.LeftDelta, InfoGain: n.InfoGain,
			})
			continue
		}
		q := 0.5
		if splitQuant != nil && n.Pred < len(splitQuant) {
			q = splitQuant[n.Pred]
		}
		threshold := fr.Predictors[n.Pred].QuantileRank(n.RankLo, n.RankHi, q)
		f.Nodes = append(f.Nodes, Node{
			Pred: n.Pred, Threshold: threshold, LeftDelta: n.LeftDelta, InfoGain: n.InfoGain,
		})
	}

	f.NodeOrigin = append(f.NodeOrigin, len(f.Nodes))
	f.FacOrigin = append(f.FacOrigin, len(f.FacBits))
}

// walkTree descends tree t for row, returning the terminal node's
// pool index and its pre-tree leaf id, per spec §4.8's prediction
// walk. An unseen factor code (>= the predictor's trained
// cardinality) routes right unconditionally, preserving the source
// behavior spec §9's open question names.
func (f *Forest) walkTree(t int, row Row) (nodeIdx, leafID int) {
	idx := f.NodeOrigin[t]
	for {
		n := f.Nodes[idx]
		if n.LeftDelta == 0 {
			return idx, n.LeafID
		}
		var goLeft bool
		if n.IsFactor {
			factorIdx := n.Pred - f.NPredNum
			code := row.Factor[factorIdx]
			if code < f.Cardinalities[factorIdx] {
				goLeft = f.FacBits[n.FacOffset+code]
			}
		} else {
			goLeft = row.Numeric[n.Pred] < n.Threshold
		}
		if goLeft {
			idx += n.LeftDelta
		} else {
			idx += n.LeftDelta + 1
		}
	}
}

// PredictRegression implements spec §4.8's regression aggregation:
// the arithmetic mean of per-tree leaf scores, masking out in-bag
// trees when oob is requested. A row hit by no tree (possible under
// OOB) falls back to DefaultRegression.
func (f *Forest) PredictRegression(rows []Row, inBag func(tree, row int) bool, oob bool) []float64 {
	out := make([]float64, len(rows))
	for ri, row := range rows {
		sum, hit := 0.0, 0
		for t := 0; t < f.NTree(); t++ {
			if oob && inBag != nil && inBag(t, ri) {
				continue
			}
			nodeIdx, _ := f.walkTree(t, row)
			sum += f.Nodes[nodeIdx].Score
			hit++
		}
		if hit == 0 {
			out[ri] = f.DefaultRegression
			continue
		}
		out[ri] = sum / float64(hit)
	}
	return out
}

// Jitter supplies the deterministic per-(tree, category) tie-break
// draw spec §9's open question resolves: seeded from (treeIndex,
// categoryIndex), not a shared accumulator, so parallel tree
// completion order cannot perturb the result.
type Jitter func(tree, category int) float64

// PredictClassification implements spec §4.8's classification
// aggregation: argmax over per-tree category tallies (each tree
// contributing 1 + a small jitter to its predicted category), plus
// per-row category probabilities as the mean of per-tree leaf
// distributions. A row hit by no tree falls back to the forest's
// training-frequency default.
func (f *Forest) PredictClassification(rows []Row, inBag func(tree, row int) bool, oob bool, jitter Jitter) (categories []int, probs [][]float64) {
	categories = make([]int, len(rows))
	probs = make([][]float64, len(rows))
	for ri, row := range rows {
		tally := make([]float64, f.NCtg)
		probSum := make([]float64, f.NCtg)
		hit := 0
		for t := 0; t < f.NTree(); t++ {
			if oob && inBag != nil && inBag(t, ri) {
				continue
			}
			nodeIdx, _ := f.walkTree(t, row)
			n := f.Nodes[nodeIdx]
			if n.CtgProbs == nil {
				continue
			}
			cat := int(n.Score)
			tally[cat] += 1 + jitter(t, cat)
			for c, p := range n.CtgProbs {
				probSum[c] += p
			}
			hit++
		}
		if hit == 0 {
			categories[ri] = f.DefaultCategory
			probs[ri] = f.DefaultProb
			continue
		}
		best, bestVal := 0, -1.0
		for c, v := range tally {
			if v > bestVal {
				bestVal, best = v, c
			}
		}
		categories[ri] = best
		rowProbs := make([]float64, f.NCtg)
		for c := range rowProbs {
			rowProbs[c] = probSum[c] / float64(hit)
		}
		probs[ri] = rowProbs
	}
	return categories, probs
}

// LeafExtent exposes, per (tree, row), the pool index and pre-tree
// leaf id the prediction walk reaches — the shared lookup spec §4.9
// names as the thing the forest-weight kernel reuses from the
// prediction walker.
func (f *Forest) LeafExtent(tree int, row Row) (nodeIdx, leafID int) { return f.walkTree(tree, row) }

// Validate checks the packed-pool invariants SPEC_FULL.md's
// Dump/Validate pass names: per-tree ranges are contiguous and
// non-overlapping, every interior node's left-child delta lands
// inside its own tree's node range, and every terminal's leaf id is
// non-negative.
func (f *Forest) Validate() error {
	const op = "forest.Validate"
	if len(f.NodeOrigin) != len(f.FacOrigin) {
		return forestutil.New(forestutil.ResourceExhausted, op, fmt.Errorf("NodeOrigin/FacOrigin length mismatch"))
	}
	for t := 0; t < f.NTree(); t++ {
		lo, hi := f.NodeOrigin[t], f.NodeOrigin[t+1]
		if hi < lo {
			return forestutil.New(forestutil.ResourceExhausted, op, fmt.Errorf("tree %d has negative extent", t))
		}
		for i := lo; i < hi; i++ {
			n := f.Nodes[i]
			if n.LeftDelta == 0 {
				if n.LeafID < 0 {
					return forestutil.New(forestutil.ResourceExhausted, op, fmt.Errorf("tree %d node %d: terminal with no leaf id", t, i))
				}
				continue
			}
			left := i + n.LeftDelta
			right := left + 1
			if left <= i || right >= hi || left < lo {
				return forestutil.New(forestutil.ResourceExhausted, op, fmt.Errorf("tree %d node %d: left delta %d out of range", t, i, n.LeftDelta))
			}
		}
	}
	return nil
}

// Dump renders a human-inspectable summary, one line per tree.
func (f *Forest) Dump(w io.Writer) {
	for t := 0; t < f.NTree(); t++ {
		fmt.Fprintf(w, "tree %d: nodes [%d,%d) facBits [%d,%d)\n", t, f.NodeOrigin[t], f.NodeOrigin[t+1], f.FacOrigin[t], f.FacOrigin[t+1])
	}
}

func (n Node) graphLabel() string {
	var sb strings.Builder
	if n.LeftDelta == 0 {
		fmt.Fprintf(&sb, "leaf %d\nscore %6.4f", n.LeafID, n.Score)
		return sb.String()
	}
	if n.IsFactor {
		fmt.Fprintf(&sb, "f_%d in {bits %d..%d}", n.Pred, n.FacOffset, n.FacOffset+n.FacLen)
	} else {
		fmt.Fprintf(&sb, "f_%d < %6.5f", n.Pred, n.Threshold)
	}
	fmt.Fprintf(&sb, "\ngain %6.4f", n.InfoGain)
	return sb.String()
}

func (f *Forest) recurrentDraw(g *cgraph.Graph, idx int, parent *cgraph.Node) error {
	node, err := g.CreateNode(fmt.Sprint(idx))
	if err != nil {
		return err
	}
	if parent != nil {
		if _, err := g.CreateEdge("", parent, node); err != nil {
			return err
		}
	}
	n := f.Nodes[idx]
	node.Set("label", n.graphLabel())
	if n.LeftDelta == 0 {
		node.Set("shape", "box")
		return nil
	}
	if err := f.recurrentDraw(g, idx+n.LeftDelta, node); err != nil {
		return err
	}
	return f.recurrentDraw(g, idx+n.LeftDelta+1, node)
}

// RenderTree renders tree treeIdx as a graph, grounded on tree.go's
// DrawGraph/recurrentDraw and ebooster.go's RenderTrees, walking the
// packed pool instead of a per-tree TreeNodes array.
func (f *Forest) RenderTree(treeIdx int, w io.Writer, format string) error {
	const op = "forest.RenderTree"
	if treeIdx < 0 || treeIdx >= f.NTree() {
		return forestutil.BadInputf(op, "tree index %d out of range", treeIdx)
	}
	gv := graphviz.New()
	graph, err := gv.Graph()
	if err != nil {
		return forestutil.New(forestutil.ResourceExhausted, op, err)
	}
	defer graph.Close()
	if err := f.recurrentDraw(graph, f.NodeOrigin[treeIdx], nil); err != nil {
		return forestutil.New(forestutil.ResourceExhausted, op, err)
	}
	fm := map[string]graphviz.Format{
		"png": graphviz.PNG,
		"svg": graphviz.SVG,
		"jpg": graphviz.JPG,
	}[format]
	if fm == "" {
		fm = graphviz.SVG
	}
	return gv.Render(graph, fm, w)
}

// scoreWeight is one of a row's per-tree leaf hits, which
// PredictQuantile sorts by score before the weighted cumulative
// scan, per spec §4.8's "sorted leaf-score weighted by sample count".
type scoreWeight struct {
	score  float64
	weight int
}

// PredictQuantile implements spec §4.8's quantile aggregation: for a
// test row, collect every tree's leaf score weighted by that leaf's
// training sample count, sort by score, and return the first score
// whose cumulative weight reaches q times the total weight. The
// result is always one of the leaf scores; no interpolation between
// adjacent scores takes place.
func (f *Forest) PredictQuantile(rows []Row, leafExtent func(tree, leafID int) int, q float64) []float64 {
	out := make([]float64, len(rows))
	for ri, row := range rows {
		var entries []scoreWeight
		total := 0
		for t := 0; t < f.NTree(); t++ {
			nodeIdx, leafID := f.walkTree(t, row)
			w := leafExtent(t, leafID)
			if w == 0 {
				continue
			}
			entries = append(entries, scoreWeight{score: f.Nodes[nodeIdx].Score, weight: w})
			total += w
		}
		if total == 0 {
			out[ri] = f.DefaultRegression
			continue
		}
		sort.Slice(entries, func(a, b int) bool { return entries[a].score < entries[b].score })
		target := q * float64(total)
		acc, val := 0.0, entries[0].score
		for _, e := range entries {
			acc += float64(e.weight)
			val = e.score
			if acc >= target {
				break
			}
		}
		out[ri] = val
	}
	return out
}

// Package train implements spec §5/§4.7's orchestration: it draws one
// bag per tree, stages a fresh Partition, drives Frontier.OneTree to
// grow that tree, and hands the result to Forest/Leaf in tree-index
// order. Trees within a tree-block run concurrently on
// internal/workpool; a failed tree is dropped with a diagnostic
// rather than aborting the whole fit.
//
// Grounded on ebooster.go's NewEBooster stage loop (build a tree, fold
// its contribution into shared state, log progress every tree),
// adapted from a sequential per-stage loop accumulating a bias matrix
// into a tree-block loop that dispatches trees to internal/workpool
// and drains them, by construction, in tree-index order: each tree's
// result is written into a pre-sized, index-addressed slice rather
// than appended as workers finish, which gives spec §5's ordering
// guarantee without a separate priority queue.
package train

import (
	"log"
	"math/rand"

	"github.com/hawkberry/Arborist/internal/forest"
	"github.com/hawkberry/Arborist/internal/forestutil"
	"github.com/hawkberry/Arborist/internal/frame"
	"github.com/hawkberry/Arborist/internal/frontier"
	"github.com/hawkberry/Arborist/internal/leaf"
	"github.com/hawkberry/Arborist/internal/partition"
	"github.com/hawkberry/Arborist/internal/sampler"
	"github.com/hawkberry/Arborist/internal/workpool"
)

// Response is the training target spec §4.3 describes: a numeric
// response, or a categorical one with per-category weights.
type Response struct {
	NCtg        int // 0 for regression
	Y           []float64
	Category    []int // len nObs, only when NCtg > 0
	ClassWeight []float64
}

// Config bundles spec §6's training configuration exactly, passed by
// value into Fit (cf. ebooster.go's EBoosterParams) rather than
// carried as package-level mutable state.
type Config struct {
	NTree                 int
	NSamp                 int
	WithReplacement       bool
	SampleWeight          []float64
	PredFixed             int
	PredProb              float64
	MinNode               int
	TotLevels             int
	MinRatio              float64
	LeafMax               int
	SplitQuant            []float64
	RegMono               []float64
	AutoCompressThreshold float64
	NThread               int
	TreeBlock             int
	ThinLeaves            bool

	// FailureFloor is the maximum tolerated tree failure rate (spec
	// §5's "implementation-defined floor") before the whole fit fails.
	// 0 selects DefaultFailureFloor.
	FailureFloor float64
}

// DefaultFailureFloor matches no corpus precedent (no repo in the pack
// trains an ensemble of independently-droppable trees); chosen as a
// conservative default that still lets a handful of pathological
// trees drop without failing a large forest.
const DefaultFailureFloor = 0.5

func (c Config) failureFloor() float64 {
	if c.FailureFloor <= 0 {
		return DefaultFailureFloor
	}
	return c.FailureFloor
}

// Result is one tree's growth output, or a non-nil err if the tree
// failed and was dropped before it ever reaches Forest/Leaf.
type Result struct {
	pt     *frontier.PreTree
	leaves []frontier.Leaf
	part   *partition.Partition
	rows   []int     // rows[s] = source row of sample s
	mults  []int     // mults[s] = multiplicity of sample s
	y      []float64 // y[s] = response proxy of sample s
	err    error
}

// Fit implements spec §5's trainer loop: draws NTree bags, grows each
// tree via Frontier.OneTree, and consumes every surviving tree into a
// forest.Forest and leaf.LeafSet in tree-index order. It also returns
// the accumulated per-predictor information gain spec §2 names as a
// Trainer responsibility (variable-importance raw material).
func Fit(f *frame.Frame, resp Response, cfg Config, rng sampler.RNG) (*forest.Forest, *leaf.LeafSet, []float64, error) {
	const op = "train.Fit"
	if cfg.NTree <= 0 {
		return nil, nil, nil, forestutil.ConfigInvalidf(op, "NTree must be positive, got %d", cfg.NTree)
	}
	if cfg.NSamp <= 0 {
		return nil, nil, nil, forestutil.ConfigInvalidf(op, "NSamp must be positive, got %d", cfg.NSamp)
	}
	if cfg.PredFixed > f.NPred() {
		return nil, nil, nil, forestutil.ConfigInvalidf(op, "PredFixed %d exceeds NPred %d", cfg.PredFixed, f.NPred())
	}

	samp, err := sampler.New(f.NRow, cfg.WithReplacement, cfg.SampleWeight, 0)
	if err != nil {
		return nil, nil, nil, err
	}

	block := cfg.TreeBlock
	if block <= 0 {
		block = cfg.NTree
	}

	// Each tree worker gets its own *rand.Rand, seeded from the shared
	// rng on this goroutine before any worker starts: sampler.RNG (e.g.
	// *math/rand.Rand) is not safe for concurrent use, so the trees
	// within a block cannot all draw from the caller's rng directly
	// once cfg.NThread > 1.
	seeds := make([]int64, cfg.NTree)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	results := make([]Result, cfg.NTree)
	for start := 0; start < cfg.NTree; start += block {
		end := start + block
		if end > cfg.NTree {
			end = cfg.NTree
		}
		workpool.Parallel(cfg.NThread, end-start, func(i int) {
			tIdx := start + i
			treeRNG := rand.New(rand.NewSource(seeds[tIdx]))
			results[tIdx] = growOneTree(f, resp, cfg, samp, treeRNG)
		})
	}

	fst := forest.New(f.NPredNum, f.NPredFac, cardinalities(f), resp.NCtg)
	ls := &leaf.LeafSet{ThinLeaves: cfg.ThinLeaves}
	gain := make([]float64, f.NPred())
	setForestDefaults(fst, resp)

	failures := 0
	for t, res := range results {
		if res.err != nil {
			failures++
			log.Printf("tree %d: dropped (%v)", t, res.err)
			continue
		}
		log.Printf("tree %d: grown, %d leaves", t, len(res.leaves))
		consumeTree(f, resp, cfg, res, fst, ls, gain)
	}

	if failures > 0 && float64(failures)/float64(cfg.NTree) > cfg.failureFloor() {
		return nil, nil, nil, forestutil.New(forestutil.ResourceExhausted, op, nil)
	}
	return fst, ls, gain, nil
}

func cardinalities(f *frame.Frame) []int {
	out := make([]int, f.NPredFac)
	for i := 0; i < f.NPredFac; i++ {
		out[i] = f.Predictors[f.NPredNum+i].Cardinality
	}
	return out
}

// setForestDefaults computes the training-population fallback values
// spec §4.8 names for a row no tree lands (relevant under OOB).
func setForestDefaults(fst *forest.Forest, resp Response) {
	if resp.NCtg == 0 {
		sum := 0.0
		for _, v := range resp.Y {
			sum += v
		}
		if len(resp.Y) > 0 {
			fst.DefaultRegression = sum / float64(len(resp.Y))
		}
		return
	}
	freq := make([]float64, resp.NCtg)
	for _, c := range resp.Category {
		freq[c]++
	}
	best, bestFreq := 0, -1.0
	for c := range freq {
		freq[c] /= float64(len(resp.Category))
		if freq[c] > bestFreq {
			bestFreq, best = freq[c], c
		}
	}
	fst.DefaultCategory = best
	fst.DefaultProb = freq
}

// growOneTree draws one bag, stages a fresh Partition, and runs
// Frontier.OneTree to grow that tree in isolation, per spec §5's
// single-tree-worker ownership rule.
func growOneTree(f *frame.Frame, resp Response, cfg Config, samp *sampler.Sampler, rng sampler.RNG) Result {
	bag, err := samp.DrawTree(cfg.NSamp, rng)
	if err != nil {
		return Result{err: err}
	}

	rows := bag.Rows(samp)
	mults := bag.Multiplicities(samp)
	sampleOfRow := make([]int, f.NRow)
	for i := range sampleOfRow {
		sampleOfRow[i] = -1
	}
	yOfSample := make([]float64, bag.BagCount)
	var categoryOfSample []int
	if resp.NCtg > 0 {
		categoryOfSample = make([]int, bag.BagCount)
	}
	for s, row := range rows {
		sampleOfRow[row] = s
		if resp.NCtg > 0 {
			cat := resp.Category[row]
			categoryOfSample[s] = cat
			w := 1.0 / float64(resp.NCtg)
			if resp.ClassWeight != nil {
				w = resp.ClassWeight[cat]
			}
			yOfSample[s] = w
		} else {
			yOfSample[s] = resp.Y[row]
		}
	}

	part := partition.New(f.NPred(), bag.BagCount, resp.NCtg)
	root := part.Stage(f, sampleOfRow, mults, yOfSample, categoryOfSample)

	rootSum, rootSCount := 0.0, 0
	var rootCtgSum []float64
	if resp.NCtg > 0 {
		rootCtgSum = make([]float64, resp.NCtg)
	}
	for s := 0; s < bag.BagCount; s++ {
		rootSum += yOfSample[s] * float64(mults[s])
		rootSCount += mults[s]
		if resp.NCtg > 0 {
			rootCtgSum[categoryOfSample[s]] += yOfSample[s] * float64(mults[s])
		}
	}

	fcfg := frontier.Config{
		PredFixed: cfg.PredFixed,
		PredProb:  cfg.PredProb,
		MinNode:   cfg.MinNode,
		TotLevels: cfg.TotLevels,
		MinRatio:  cfg.MinRatio,
		LeafMax:   cfg.LeafMax,
		NThread:   1, // per-tree candidate parallelism is orthogonal to the tree-block scope
		NCtg:      resp.NCtg,
		RegMono:   cfg.RegMono,
	}
	pt, leaves, err := frontier.OneTree(f, part, fcfg, rng, root, rootSCount, rootSum, rootCtgSum)
	if err != nil {
		return Result{err: err}
	}
	return Result{pt: pt, leaves: leaves, part: part, rows: rows, mults: mults, y: yOfSample}
}

// consumeTree implements spec §4.7's "Consume" step for one finished
// tree: compute each leaf's score (mean response, or the argmax
// category plus its probability distribution), pack the tree into
// fst, build its sample blocks into ls, and fold its per-predictor
// info gain into the running accumulator.
func consumeTree(f *frame.Frame, resp Response, cfg Config, res Result, fst *forest.Forest, ls *leaf.LeafSet, gain []float64) {
	pt, leaves, part := res.pt, res.leaves, res.part

	maxLeaf := -1
	for _, lf := range leaves {
		if lf.LeafID > maxLeaf {
			maxLeaf = lf.LeafID
		}
	}
	leafScore := make([]float64, maxLeaf+1)
	var leafProbs [][]float64
	if resp.NCtg > 0 {
		leafProbs = make([][]float64, maxLeaf+1)
	}

	for _, lf := range leaves {
		cells, _ := part.CellsAt(0, lf.Range, lf.Buf)
		if resp.NCtg == 0 {
			sum, cnt := 0.0, 0
			for _, c := range cells {
				sum += c.Sum
				cnt += c.SCount
			}
			if cnt > 0 {
				leafScore[lf.LeafID] = sum / float64(cnt)
			}
			continue
		}
		ctgSum := make([]float64, resp.NCtg)
		total := 0.0
		for _, c := range cells {
			ctgSum[c.Category] += c.Sum
			total += c.Sum
		}
		best, bestVal := 0, -1.0
		probs := make([]float64, resp.NCtg)
		for c, v := range ctgSum {
			if total > 0 {
				probs[c] = v / total
			}
			if v > bestVal {
				bestVal, best = v, c
			}
		}
		leafScore[lf.LeafID] = float64(best)
		leafProbs[lf.LeafID] = probs
	}

	fst.ConsumeTree(f, pt, cfg.SplitQuant, leafScore, leafProbs)
	tl := leaf.Build(part, leaves, res.rows, res.mults, res.y, cfg.ThinLeaves)
	ls.Trees = append(ls.Trees, *tl)

	for _, n := range pt.Nodes {
		if !n.Terminal {
			gain[n.Pred] += n.InfoGain
		}
	}
}

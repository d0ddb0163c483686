// Package sampler draws the per-tree bagging multiplicities of spec
// §4.3: which rows are drawn (with or without replacement, optionally
// weighted), how many times each row is drawn, and the bagged-row
// bitmap used later for out-of-bag prediction.
//
// The packed (deltaRow, multiplicity) word is adapted from tree.go's
// flat-array idiom (small fields packed into one slot instead of a
// pointer-chasing struct); the binning pass that turns random-access
// row counting into sequential, cache-friendly scatter is the spec's
// own algorithm (no corpus repo implements weighted bagging at all).
package sampler

import (
	"github.com/hawkberry/Arborist/internal/bitpack"
	"github.com/hawkberry/Arborist/internal/forestutil"
)

// RNG is the randomness contract spec §1 asks the core to specify but
// not implement: uniform doubles in [0,1), unbiased draws in [0,n),
// and a 63-bit draw for deriving independent per-worker generators
// (internal/train uses this to hand each tree its own *rand.Rand
// before fanning out, since RNG implementations are not assumed safe
// for concurrent use). *math/rand.Rand satisfies this directly.
type RNG interface {
	Float64() float64
	Intn(n int) int
	Int63() int64
}

// Nux is one packed (deltaRow, multiplicity) sample record.
type Nux uint64

// Sampler draws per-tree row multiplicities over a fixed population
// of nObs rows.
type Sampler struct {
	nObs            int
	withReplacement bool
	weights         []float64 // per-row, nil => uniform
	deltaBits       uint      // spec §9 open question: runtime, not compile-time
	multBits        uint
}

// DefaultDeltaBits is used when the caller does not care to tune the
// packing split between row-span width and multiplicity width.
const DefaultDeltaBits = 40

// New builds a Sampler over nObs rows. weights may be nil for uniform
// sampling. deltaBits sizes the row-delta field of the packed Nux
// word (0 selects DefaultDeltaBits); the remaining bits of the 64-bit
// word hold the multiplicity.
func New(nObs int, withReplacement bool, weights []float64, deltaBits uint) (*Sampler, error) {
	const op = "sampler.New"
	if nObs <= 0 {
		return nil, forestutil.ConfigInvalidf(op, "nObs must be positive, got %d", nObs)
	}
	if weights != nil && len(weights) != nObs {
		return nil, forestutil.BadInputf(op, "weights length %d != nObs %d", len(weights), nObs)
	}
	if deltaBits == 0 {
		deltaBits = DefaultDeltaBits
	}
	if deltaBits >= 64 {
		return nil, forestutil.ConfigInvalidf(op, "deltaBits must leave room for multiplicity, got %d", deltaBits)
	}
	return &Sampler{
		nObs:            nObs,
		withReplacement: withReplacement,
		weights:         weights,
		deltaBits:       deltaBits,
		multBits:        64 - deltaBits,
	}, nil
}

func (s *Sampler) pack(deltaRow, mult int) (Nux, error) {
	const op = "sampler.pack"
	if uint64(deltaRow) >= uint64(1)<<s.deltaBits {
		return 0, forestutil.New(forestutil.SamplerOverflow, op, nil)
	}
	if uint64(mult) >= uint64(1)<<s.multBits {
		return 0, forestutil.New(forestutil.SamplerOverflow, op, nil)
	}
	return Nux(uint64(deltaRow)<<s.multBits | uint64(mult)), nil
}

// Unpack decodes a Nux into its delta-row and multiplicity fields.
func (s *Sampler) Unpack(n Nux) (deltaRow, mult int) {
	mask := uint64(1)<<s.multBits - 1
	return int(uint64(n) >> s.multBits), int(uint64(n) & mask)
}

// Bag is one tree's drawn sample: a compact ascending-row stream of
// (deltaRow, multiplicity) records covering only rows with
// multiplicity >= 1 (bagCount entries, per spec §4.3).
type Bag struct {
	Nux      []Nux
	BagCount int
	NSamp    int
}

// Rows decodes the bag's absolute row numbers, ascending.
func (b *Bag) Rows(s *Sampler) []int {
	rows := make([]int, len(b.Nux))
	row := -1
	for i, n := range b.Nux {
		d, _ := s.Unpack(n)
		row += d + 1
		rows[i] = row
	}
	return rows
}

// Multiplicities decodes the bag's per-sample multiplicities, in the
// same order as Rows.
func (b *Bag) Multiplicities(s *Sampler) []int {
	mults := make([]int, len(b.Nux))
	for i, n := range b.Nux {
		_, m := s.Unpack(n)
		mults[i] = m
	}
	return mults
}

// binSize is chosen to keep a bin's count table resident in cache
// during the scatter pass (spec §4.3).
const binSize = 4096

// drawIndices produces the raw nSamp row draws (with duplicates when
// withReplacement), before binning.
func (s *Sampler) drawIndices(nSamp int, rng RNG) []int {
	draws := make([]int, nSamp)
	if s.withReplacement {
		for i := range draws {
			draws[i] = s.weightedDraw(rng)
		}
		return draws
	}
	// Without replacement: partial Fisher-Yates over a row permutation,
	// weights are not applied (unbiased uniform row sampling per spec
	// §1's stated contract for the without-replacement case).
	perm := make([]int, s.nObs)
	for i := range perm {
		perm[i] = i
	}
	limit := nSamp
	if limit > s.nObs {
		limit = s.nObs
	}
	for i := 0; i < limit; i++ {
		j := i + rng.Intn(s.nObs-i)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm[:limit]
}

func (s *Sampler) weightedDraw(rng RNG) int {
	if s.weights == nil {
		return rng.Intn(s.nObs)
	}
	total := 0.0
	for _, w := range s.weights {
		total += w
	}
	target := rng.Float64() * total
	acc := 0.0
	for i, w := range s.weights {
		acc += w
		if target < acc {
			return i
		}
	}
	return s.nObs - 1
}

// DrawTree draws one tree's bag: counts row multiplicities via the
// cache-friendly binning pass of spec §4.3, then emits the packed
// Nux stream. The bag bitmap is not built here; BagMatrix builds it
// from the drawn bags.
func (s *Sampler) DrawTree(nSamp int, rng RNG) (*Bag, error) {
	const op = "sampler.DrawTree"
	if nSamp <= 0 {
		return nil, forestutil.ConfigInvalidf(op, "nSamp must be positive, got %d", nSamp)
	}
	draws := s.drawIndices(nSamp, rng)
	counts := s.binnedCount(draws)

	bag := &Bag{NSamp: nSamp}
	lastRow := -1
	for row, mult := range counts {
		if mult == 0 {
			continue
		}
		n, err := s.pack(row-lastRow-1, mult)
		if err != nil {
			return nil, forestutil.New(forestutil.SamplerOverflow, op, nil)
		}
		bag.Nux = append(bag.Nux, n)
		lastRow = row
		bag.BagCount++
	}
	return bag, nil
}

// binnedCount implements the radix-like binning pass: count per-bin
// frequency, prefix-sum into a right-exclusive scan, scatter draws
// into their bin-reserved region in decreasing order, then do one
// sequential pass over the permuted stream to increment a length-nObs
// count array. This trades one pass of random access (the final
// increment) for cache-friendly sequential writes during the scatter.
func (s *Sampler) binnedCount(draws []int) []int {
	nBins := (s.nObs + binSize - 1) / binSize
	binOf := func(row int) int { return row / binSize }

	binFreq := make([]int, nBins)
	for _, row := range draws {
		binFreq[binOf(row)]++
	}
	// Right-exclusive scan: scanEnd[b] is one past bin b's region.
	scanEnd := make([]int, nBins)
	acc := 0
	for b := 0; b < nBins; b++ {
		acc += binFreq[b]
		scanEnd[b] = acc
	}
	cursor := make([]int, nBins)
	copy(cursor, scanEnd)

	permuted := make([]int, len(draws))
	for i := len(draws) - 1; i >= 0; i-- {
		row := draws[i]
		b := binOf(row)
		cursor[b]--
		permuted[cursor[b]] = row
	}

	counts := make([]int, s.nObs)
	for _, row := range permuted {
		counts[row]++
	}
	return counts
}

// BagMatrix builds the nTree×nObs strided bag bitmap of spec §4.3
// from a set of per-tree bags. Bagging disabled (bags == nil) yields
// a 0×0 matrix per spec, so OOB prediction treats all rows as
// out-of-bag.
func BagMatrix(s *Sampler, bags []*Bag) *bitpack.Matrix {
	if bags == nil {
		return bitpack.NewMatrix(0, 0)
	}
	m := bitpack.NewMatrix(len(bags), s.nObs)
	for t, bag := range bags {
		for _, row := range bag.Rows(s) {
			m.SetBit(t, row, true)
		}
	}
	return m
}

// Overflowed reports, for diagnostics, whether a row delta of maxDelta
// or a multiplicity of maxMult is too wide for the sampler's
// deltaBits/multBits split.
func (s *Sampler) Overflowed(maxDelta, maxMult int) bool {
	return uint64(maxDelta) >= uint64(1)<<s.deltaBits || uint64(maxMult) >= uint64(1)<<s.multBits
}

package frontier

import "github.com/hawkberry/Arborist/internal/sampler"

// scheduleCandidates picks the (node, predictor) candidates spec §4.7
// names, governed by predFixed (a fixed-size subset drawn per node) or
// predProb (each predictor independently included with that
// probability). predFixed takes precedence when positive; with
// neither set, every predictor is a candidate.
func scheduleCandidates(nPred, predFixed int, predProb float64, rng sampler.RNG) []int {
	switch {
	case predFixed > 0 && predFixed < nPred:
		return samplePredFixed(nPred, predFixed, rng)
	case predFixed <= 0 && predProb > 0 && predProb < 1:
		out := make([]int, 0, nPred)
		for p := 0; p < nPred; p++ {
			if rng.Float64() < predProb {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			out = append(out, rng.Intn(nPred))
		}
		return out
	default:
		out := make([]int, nPred)
		for i := range out {
			out[i] = i
		}
		return out
	}
}

// samplePredFixed draws k distinct predictor indices via a partial
// Fisher-Yates shuffle, the same without-replacement technique
// internal/sampler uses for its own row draws.
func samplePredFixed(nPred, k int, rng sampler.RNG) []int {
	idx := make([]int, nPred)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.Intn(nPred-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	out := make([]int, k)
	copy(out, idx[:k])
	return out
}

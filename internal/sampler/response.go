package sampler

// Response is the training response consumed by the splitter: either
// a numeric target or a categorical one with optional class weights,
// per spec §4.3.
type Response struct {
	Categorical bool
	Y           []float64 // len nObs, numeric response
	Category    []int     // len nObs, category code, categorical response
	NCtg        int
	ClassWeight []float64 // len NCtg, optional
}

// Proxies computes, for every row, the per-row response proxy the
// splitter treats as "y": the response value itself for a numeric
// response, or a class-weighted probability mass for a categorical
// one. rowWeight may be nil for uniform row weighting.
//
// For categorical responses: if class weights are supplied they
// multiply the per-row proxy; otherwise the proxy is 1/nObs scaled by
// the category's frequency, per spec §4.3.
func (r Response) Proxies(rowWeight []float64) []float64 {
	nObs := len(r.Category)
	if !r.Categorical {
		nObs = len(r.Y)
	}
	proxy := make([]float64, nObs)
	if !r.Categorical {
		copy(proxy, r.Y)
		if rowWeight != nil {
			for i := range proxy {
				proxy[i] *= rowWeight[i]
			}
		}
		return proxy
	}

	freq := make([]float64, r.NCtg)
	for _, c := range r.Category {
		freq[c]++
	}
	for i, c := range r.Category {
		var p float64
		if r.ClassWeight != nil {
			p = r.ClassWeight[c]
		} else {
			p = freq[c] / float64(nObs) / float64(nObs)
		}
		if rowWeight != nil {
			p *= rowWeight[i]
		}
		proxy[i] = p
	}
	return proxy
}

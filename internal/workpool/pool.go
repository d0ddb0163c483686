// Package workpool implements the single worker-pool abstraction spec
// §5 assumes: nThread configures parallelism for the training scopes
// (trees within a tree-block, candidates within a level). Prediction
// and forest-weight readers do not use the pool; they run on the
// calling goroutine.
//
// The NewPool/AddTask/Close/WaitAll call shape is grounded on
// tree.go's TheBestSplit, which drives exactly this pool across a
// predictor loop; the pool's own body was not present in the retrieved
// slice of that file, so it is written fresh against the standard
// library, since no ecosystem worker-pool library appears anywhere in
// the corpus.
package workpool

import "sync"

// Task is a unit of work submitted to a Pool.
type Task func()

// Pool runs Tasks across a fixed number of goroutines.
type Pool struct {
	tasks chan Task
	wg    sync.WaitGroup
	once  sync.Once
}

// NewPool starts n worker goroutines draining a shared task channel.
// n <= 1 still returns a usable pool (a single worker).
func NewPool(n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{tasks: make(chan Task, n*4)}
	for i := 0; i < n; i++ {
		go p.drain()
	}
	return p
}

func (p *Pool) drain() {
	for t := range p.tasks {
		t()
		p.wg.Done()
	}
}

// AddTask enqueues a task, blocking only if every worker is busy and
// the internal buffer is full.
func (p *Pool) AddTask(t Task) {
	p.wg.Add(1)
	p.tasks <- t
}

// Close signals that no further tasks will be submitted. Safe to call
// more than once.
func (p *Pool) Close() { p.once.Do(func() { close(p.tasks) }) }

// WaitAll blocks until every submitted task has completed.
func (p *Pool) WaitAll() { p.wg.Wait() }

// Parallel runs fn(i) for i in [0, n) across nThread workers and
// blocks until all calls complete. nThread <= 1 runs sequentially on
// the calling goroutine, per spec §5's single-thread fallback. This is
// the convenience entry point the Trainer and Frontier use for their
// respective parallel scopes.
func Parallel(nThread, n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if nThread <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	p := NewPool(nThread)
	for i := 0; i < n; i++ {
		i := i
		p.AddTask(func() { fn(i) })
	}
	p.Close()
	p.WaitAll()
}

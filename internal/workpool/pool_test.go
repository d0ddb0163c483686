package workpool

import (
	"sync/atomic"
	"testing"
)

func TestPoolRunsAllTasks(t *testing.T) {
	p := NewPool(4)
	var count atomic.Int64
	for i := 0; i < 100; i++ {
		p.AddTask(func() { count.Add(1) })
	}
	p.Close()
	p.WaitAll()
	if count.Load() != 100 {
		t.Fatalf("expected 100 completions, got %d", count.Load())
	}
}

func TestParallelSequentialFallback(t *testing.T) {
	seen := make([]bool, 10)
	Parallel(1, 10, func(i int) { seen[i] = true })
	for i, ok := range seen {
		if !ok {
			t.Fatalf("index %d never visited", i)
		}
	}
}

func TestParallelConcurrentCoversAllIndices(t *testing.T) {
	var visited [50]atomic.Bool
	Parallel(8, 50, func(i int) { visited[i].Store(true) })
	for i := range visited {
		if !visited[i].Load() {
			t.Fatalf("index %d never visited", i)
		}
	}
}

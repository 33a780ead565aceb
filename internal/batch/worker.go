package batch

import (
	"context"
	"runtime"
	"sync"

	"github.com/good-yellow-bee/secdash/internal/ingest"
)

// ImportFunc imports one file.
type ImportFunc func(ctx context.Context, path string) (*ingest.Result, error)

// FileResult is the outcome of one submitted path.
type FileResult struct {
	Path   string
	Result *ingest.Result
	Err    error
}

// WorkerPool imports files in parallel.
type WorkerPool struct {
	workers    int
	bufferSize int
	jobs       chan string
	results    chan FileResult
	wg         sync.WaitGroup
	started    bool
	mu         sync.Mutex
}

// NewWorkerPool creates a pool with N workers.
// If workers <= 0, defaults to runtime.NumCPU().
func NewWorkerPool(workers, bufferSize int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if bufferSize <= 0 {
		bufferSize = workers * 2
	}

	return &WorkerPool{
		workers:    workers,
		bufferSize: bufferSize,
		jobs:       make(chan string, bufferSize),
		results:    make(chan FileResult, bufferSize),
	}
}

// Start begins worker goroutines running fn.
func (p *WorkerPool) Start(ctx context.Context, fn ImportFunc) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case path, ok := <-p.jobs:
					if !ok {
						return
					}
					res, err := fn(ctx, path)
					select {
					case p.results <- FileResult{Path: path, Result: res, Err: err}:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}
}

// Submit adds a file path to the job queue.
func (p *WorkerPool) Submit(ctx context.Context, path string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.jobs <- path:
		return nil
	}
}

// Close signals no more jobs and waits for completion.
// The results channel is closed after all workers finish.
func (p *WorkerPool) Close() {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
}

// Results returns the results channel.
func (p *WorkerPool) Results() <-chan FileResult {
	return p.results
}

// Workers returns the number of workers.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// ImportAll runs fn over paths with the given parallelism and returns
// results in input order.
func ImportAll(ctx context.Context, workers int, paths []string, fn ImportFunc) []FileResult {
	pool := NewWorkerPool(workers, 0)
	pool.Start(ctx, fn)

	go func() {
		defer pool.Close()
		for _, path := range paths {
			if err := pool.Submit(ctx, path); err != nil {
				return
			}
		}
	}()

	byPath := make(map[string][]FileResult, len(paths))
	for r := range pool.Results() {
		byPath[r.Path] = append(byPath[r.Path], r)
	}

	out := make([]FileResult, 0, len(paths))
	for _, path := range paths {
		rs := byPath[path]
		if len(rs) == 0 {
			out = append(out, FileResult{Path: path, Err: context.Cause(ctx)})
			continue
		}
		out = append(out, rs[0])
		byPath[path] = rs[1:]
	}
	return out
}

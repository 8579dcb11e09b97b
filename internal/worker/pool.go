package worker

import (
	"context"
	"sync"
)

// Job is a unit of work producing R
type Job[R any] interface {
	Execute(ctx context.Context) R
}

// JobFunc adapts a function to Job
type JobFunc[R any] func(ctx context.Context) R

// Execute calls f
func (f JobFunc[R]) Execute(ctx context.Context) R { return f(ctx) }

// Pool runs jobs on a fixed number of goroutines. Output is drained while
// jobs are still being submitted, so Submit never blocks on a full output
// channel.
type Pool[R any] struct {
	size    int
	queue   chan Job[R]
	out     chan R
	results []R
	drained chan struct{}
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
}

// NewPool creates a pool bound to parent; cancelling parent stops the
// workers after their current job.
func NewPool[R any](parent context.Context, workers int) *Pool[R] {
	if workers <= 0 {
		workers = 1
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	return &Pool[R]{
		size:    workers,
		queue:   make(chan Job[R], workers*2),
		out:     make(chan R, workers*2),
		drained: make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers and the output drain
func (p *Pool[R]) Start() {
	go func() {
		defer close(p.drained)
		for r := range p.out {
			p.results = append(p.results, r)
		}
	}()

	p.wg.Add(p.size)
	for i := 0; i < p.size; i++ {
		go p.run()
	}
}

func (p *Pool[R]) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.queue:
			if !ok {
				return
			}
			p.out <- job.Execute(p.ctx)
		}
	}
}

// Submit queues a job. It returns false once the pool has been cancelled.
func (p *Pool[R]) Submit(job Job[R]) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.queue <- job:
		return true
	}
}

// Wait closes the queue, lets in-flight and queued jobs finish, and returns
// every output in completion order
func (p *Pool[R]) Wait() []R {
	close(p.queue)
	return p.finish()
}

// Shutdown cancels the pool and returns whatever finished before cancellation
func (p *Pool[R]) Shutdown() []R {
	p.cancel()
	return p.finish()
}

func (p *Pool[R]) finish() []R {
	p.wg.Wait()
	p.once.Do(func() { close(p.out) })
	<-p.drained
	p.cancel()
	return p.results
}

// Package pool runs jobs on a fixed number of worker goroutines.
package pool

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("pool is closed")

// Job is a unit of work. It receives the context of the Submit call.
type Job[T any] func(ctx context.Context) (T, error)

type request[T any] struct {
	ctx    context.Context
	job    Job[T]
	result chan<- response[T]
}

type response[T any] struct {
	val T
	err error
}

// Pool executes at most n jobs at a time. Callers block in Submit until
// their job has run or their context ends.
type Pool[T any] struct {
	jobs   chan request[T]
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func New[T any](n int) *Pool[T] {
	if n < 1 {
		n = 1
	}
	p := &Pool[T]{jobs: make(chan request[T])}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.work()
	}
	return p
}

func (p *Pool[T]) work() {
	defer p.wg.Done()
	for req := range p.jobs {
		// a caller that gave up while queued is not run
		if err := req.ctx.Err(); err != nil {
			req.result <- response[T]{err: err}
			continue
		}
		val, err := req.job(req.ctx)
		req.result <- response[T]{val: val, err: err}
	}
}

// Submit queues job and waits for its result.
func (p *Pool[T]) Submit(ctx context.Context, job Job[T]) (T, error) {
	var zero T
	result := make(chan response[T], 1)

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return zero, ErrClosed
	}
	select {
	case p.jobs <- request[T]{ctx: ctx, job: job, result: result}:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return zero, ctx.Err()
	}

	select {
	case res := <-result:
		return res.val, res.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close stops accepting jobs and waits for running ones to finish.
func (p *Pool[T]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

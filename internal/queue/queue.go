package queue

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrShutdown is returned when processing on a queue whose context is done
var ErrShutdown = errors.New("queue has been shutdown")

// Queue is a worker queue with a fixed amount of workers
type Queue struct {
	workers int
	handler func(context.Context, interface{}) (interface{}, error)

	ctx   context.Context
	queue chan job

	pending atomic.Int64
	active  atomic.Int64
}

type job struct {
	ctx    context.Context
	data   interface{}
	result chan jobResult
}

type jobResult struct {
	result interface{}
	err    error
}

// New creates a new Queue with the specified amount of workers, running until ctx is done
func New(ctx context.Context, workers int, handler func(context.Context, interface{}) (interface{}, error)) *Queue {
	return &Queue{
		workers: workers,
		handler: handler,
		ctx:     ctx,
		queue:   make(chan job),
	}
}

// Run starts the workers and blocks until the queue context is done
func (q *Queue) Run() {
	done := make(chan struct{})

	for i := 0; i < q.workers; i++ {
		go func() {
			q.worker()
			done <- struct{}{}
		}()
	}

	for i := 0; i < q.workers; i++ {
		<-done
	}
}

func (q *Queue) worker() {
	for {
		select {
		case <-q.ctx.Done():
			return
		case j := <-q.queue:
			q.pending.Add(-1)

			// The caller gave up while the job was waiting for a worker
			if err := j.ctx.Err(); err != nil {
				j.result <- jobResult{err: err}
				continue
			}

			q.active.Add(1)
			result, err := q.handler(j.ctx, j.data)
			q.active.Add(-1)

			j.result <- jobResult{
				result: result,
				err:    err,
			}
		}
	}
}

// Process adds a job to the queue, waits for it to process, and returns the result
func (q *Queue) Process(ctx context.Context, data interface{}) (interface{}, error) {
	if q.ctx.Err() != nil {
		return nil, ErrShutdown
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Buffered so a worker never blocks on a caller that has left
	resultChan := make(chan jobResult, 1)

	q.pending.Add(1)
	select {
	case q.queue <- job{ctx: ctx, data: data, result: resultChan}:
	case <-ctx.Done():
		q.pending.Add(-1)
		return nil, ctx.Err()
	case <-q.ctx.Done():
		q.pending.Add(-1)
		return nil, ErrShutdown
	}

	select {
	case result := <-resultChan:
		if result.err != nil {
			return nil, result.err
		}
		return result.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Pending returns the number of callers waiting for a worker
func (q *Queue) Pending() int {
	return int(q.pending.Load())
}

// Active returns the number of jobs currently being processed
func (q *Queue) Active() int {
	return int(q.active.Load())
}

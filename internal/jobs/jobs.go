// Package jobs runs analysis requests detached from the HTTP request that
// submitted them. The handler enqueues and returns; completion is observable
// only through the persisted result and the metrics stream.
package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"voicecoach-go/internal/logger"
	"voicecoach-go/internal/metrics"
	"voicecoach-go/internal/types"
)

// Runner executes one analysis job to completion.
type Runner interface {
	Run(ctx context.Context, req types.AnalyzeRequest)
}

type Queue struct {
	ch   chan types.AnalyzeRequest
	sink *metrics.Sink
}

func NewQueue(size int, sink *metrics.Sink) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{ch: make(chan types.AnalyzeRequest, size), sink: sink}
}

// Enqueue submits without blocking; false means the queue is full and the
// caller should shed the request.
func (q *Queue) Enqueue(req types.AnalyzeRequest) bool {
	select {
	case q.ch <- req:
		if q.sink != nil {
			q.sink.QueueDepth(len(q.ch))
		}
		return true
	default:
		return false
	}
}

func (q *Queue) Dequeue() <-chan types.AnalyzeRequest {
	return q.ch
}

// Pool drains the queue with a fixed number of workers. Jobs are independent
// of each other; shared state lives behind the quota and persistence
// protocols, not in-process locks.
type Pool struct {
	queue  *Queue
	runner Runner
	count  int

	wg   sync.WaitGroup
	done chan struct{}
	log  *logrus.Entry
}

func NewPool(count int, queue *Queue, runner Runner) *Pool {
	if count < 1 {
		count = 1
	}
	return &Pool{
		queue:  queue,
		runner: runner,
		count:  count,
		done:   make(chan struct{}),
		log:    logger.Component("worker-pool"),
	}
}

// Start launches the workers. They run until ctx is canceled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go func(n int) {
			defer p.wg.Done()
			log := p.log.WithField("worker", n)
			for {
				select {
				case <-ctx.Done():
					return
				case req, ok := <-p.queue.Dequeue():
					if !ok {
						return
					}
					if p.queue.sink != nil {
						p.queue.sink.QueueDepth(len(p.queue.ch))
					}
					log.WithField("transcript_id", req.TranscriptID).Debug("job picked up")
					p.runner.Run(ctx, req)
				}
			}
		}(i)
	}

	go func() {
		p.wg.Wait()
		close(p.done)
	}()
}

// Shutdown waits for in-flight jobs to finish or the context to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker pool shutdown timed out: %w", ctx.Err())
	}
}

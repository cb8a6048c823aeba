package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"voicecoach-go/internal/metrics"
	"voicecoach-go/internal/types"
)

type countingRunner struct {
	mu   sync.Mutex
	seen []string
	done chan struct{}
	want int
}

func (r *countingRunner) Run(_ context.Context, req types.AnalyzeRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, req.TranscriptID)
	if len(r.seen) == r.want {
		close(r.done)
	}
}

func TestPoolDrainsQueue(t *testing.T) {
	sink := metrics.NewSink(prometheus.NewRegistry())
	queue := NewQueue(16, sink)
	runner := &countingRunner{done: make(chan struct{}), want: 5}
	pool := NewPool(3, queue, runner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	for i := 0; i < 5; i++ {
		if !queue.Enqueue(types.AnalyzeRequest{TranscriptID: string(rune('a' + i))}) {
			t.Fatalf("enqueue %d failed", i)
		}
	}

	select {
	case <-runner.done:
	case <-time.After(5 * time.Second):
		t.Fatal("jobs not drained in time")
	}

	cancel()
	shutdownCtx, sdCancel := context.WithTimeout(context.Background(), time.Second)
	defer sdCancel()
	if err := pool.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestEnqueueShedsWhenFull(t *testing.T) {
	queue := NewQueue(1, nil)

	if !queue.Enqueue(types.AnalyzeRequest{TranscriptID: "first"}) {
		t.Fatal("first enqueue should fit")
	}
	if queue.Enqueue(types.AnalyzeRequest{TranscriptID: "second"}) {
		t.Fatal("second enqueue should be shed, queue is full")
	}
}
